package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultMaxRedirects bounds how many consecutive redirects one navigation may follow.
const DefaultMaxRedirects = 8

var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrDuplicateRoute = errors.New("duplicate route name")
	ErrInvalidRoute   = errors.New("invalid route")
	ErrMissingParam   = errors.New("missing route parameter")
	ErrRedirectLoop   = errors.New("too many redirects")
	ErrNoHistory      = errors.New("no previous location")
)

// Guard runs before a transition from from to to.
type Guard func(ctx context.Context, to, from Location) Decision

// entry is a flattened route: its absolute pattern and the chain leading to it.
type entry struct {
	path     string
	segments []string
	chain    []*Route
}

// Router resolves targets against a route table and tracks the current location.
//
// Navigations are serialized. Guards must not call [Router.Navigate] or [Router.Back].
type Router struct {
	entries []*entry
	byName  map[string]*entry

	navMu        sync.Mutex
	mu           sync.RWMutex
	guards       []Guard
	current      Location
	history      []Location
	logger       *log.Logger
	maxRedirects int
}

// Option configures a [Router].
type Option func(*Router)

// WithLogger sets the logger used to trace navigations.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxRedirects overrides [DefaultMaxRedirects]. Values below one are ignored.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// New builds a router from routes. Route names must be unique and top-level paths absolute.
func New(routes []Route, opts ...Option) (*Router, error) {
	r := &Router{
		byName:       make(map[string]*entry),
		logger:       log.New(io.Discard),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, rt := range routes {
		if !strings.HasPrefix(rt.Path, "/") {
			return nil, fmt.Errorf("%w: top-level path %q must start with /", ErrInvalidRoute, rt.Path)
		}
	}

	if err := r.add(nil, "", routes); err != nil {
		return nil, err
	}
	return r, nil
}

// add registers routes depth first. Children are added before their parent so
// that a child with an empty path wins over the parent for the same URL.
func (r *Router) add(parent []*Route, parentPath string, routes []Route) error {
	for i := range routes {
		node := new(Route)
		*node = routes[i]

		chain := make([]*Route, 0, len(parent)+1)
		chain = append(chain, parent...)
		chain = append(chain, node)

		full := joinPath(parentPath, node.Path)
		if err := r.add(chain, full, node.Children); err != nil {
			return err
		}

		e := &entry{path: full, segments: segments(full), chain: chain}
		r.entries = append(r.entries, e)

		if node.Name == "" {
			continue
		}
		if _, ok := r.byName[node.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateRoute, node.Name)
		}
		r.byName[node.Name] = e
	}
	return nil
}

// BeforeEach appends a guard. Guards run in registration order.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, g)
}

// Resolve matches target against the route table without navigating.
func (r *Router) Resolve(target Target) (Location, error) {
	if target.Name != "" {
		e, ok := r.byName[target.Name]
		if !ok {
			return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, target)
		}
		path, params, err := e.build(target.Params)
		if err != nil {
			return Location{}, err
		}
		return e.location(path, params), nil
	}

	if target.Path == "" {
		return Location{}, fmt.Errorf("%w: empty target", ErrRouteNotFound)
	}

	segs := segments(target.Path)
	for _, e := range r.entries {
		if params, ok := e.match(segs); ok {
			return e.location("/"+strings.Join(segs, "/"), params), nil
		}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, target.Path)
}

// Navigate resolves target, runs the guards and makes the result current.
// The previous location is pushed onto the history.
func (r *Router) Navigate(ctx context.Context, target Target) (Location, error) {
	r.navMu.Lock()
	defer r.navMu.Unlock()

	from := r.Current()
	to, err := r.transition(ctx, target, from)
	if err != nil {
		return Location{}, err
	}

	r.mu.Lock()
	if !from.IsZero() && from.Path != to.Path {
		r.history = append(r.history, from)
	}
	r.current = to
	r.mu.Unlock()

	return to.clone(), nil
}

// Back returns to the previous location. The transition is guarded like any other.
func (r *Router) Back(ctx context.Context) (Location, error) {
	r.navMu.Lock()
	defer r.navMu.Unlock()

	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return Location{}, ErrNoHistory
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	from := r.current
	r.mu.Unlock()

	to, err := r.transition(ctx, Path(prev.Path), from)
	if err != nil {
		r.mu.Lock()
		r.history = append(r.history, prev)
		r.mu.Unlock()
		return Location{}, err
	}

	r.mu.Lock()
	r.current = to
	r.mu.Unlock()

	return to.clone(), nil
}

// transition follows guard redirects until a location is allowed.
func (r *Router) transition(ctx context.Context, target Target, from Location) (Location, error) {
	r.mu.RLock()
	guards := append([]Guard(nil), r.guards...)
	r.mu.RUnlock()

	requested := ""
	for redirects := 0; ; redirects++ {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}

		to, err := r.Resolve(target)
		if err != nil {
			return Location{}, err
		}
		if requested == "" {
			requested = to.Path
		}

		next, redirected := runGuards(ctx, guards, to, from)
		if !redirected {
			if redirects > 0 {
				to.RedirectedFrom = requested
			}
			r.logger.Debug("navigated", "to", to.Path, "name", to.Name, "from", from.Path)
			return to, nil
		}

		if redirects >= r.maxRedirects {
			return Location{}, fmt.Errorf("%w: gave up at %s after %d redirects", ErrRedirectLoop, to.Path, redirects)
		}
		r.logger.Debug("navigation redirected", "requested", to.Path, "redirect", next)
		target = next
	}
}

func runGuards(ctx context.Context, guards []Guard, to, from Location) (Target, bool) {
	for _, g := range guards {
		if next, ok := g(ctx, to.clone(), from.clone()).Target(); ok {
			return next, true
		}
	}
	return Target{}, false
}

// Current returns the location of the last successful navigation.
func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.clone()
}

// Href builds the path of the named route.
func (r *Router) Href(name string, params map[string]string) (string, error) {
	e, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: name:%s", ErrRouteNotFound, name)
	}
	path, _, err := e.build(params)
	return path, err
}

// Routes lists every named route in registration order.
func (r *Router) Routes() []RouteInfo {
	var out []RouteInfo
	for _, e := range r.entries {
		leaf := e.chain[len(e.chain)-1]
		if leaf.Name == "" {
			continue
		}
		out = append(out, RouteInfo{
			Path:         e.path,
			Name:         leaf.Name,
			RequiresAuth: RequiresAuth(Location{Matched: e.chain}),
		})
	}
	return out
}

func (e *entry) location(path string, params map[string]string) Location {
	leaf := e.chain[len(e.chain)-1]
	return Location{
		Path:    path,
		Name:    leaf.Name,
		Params:  params,
		Matched: append([]*Route(nil), e.chain...),
	}
}

func (e *entry) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(e.segments) {
		return nil, false
	}

	params := map[string]string{}
	for i, pattern := range e.segments {
		if name, ok := strings.CutPrefix(pattern, ":"); ok {
			params[name] = segs[i]
			continue
		}
		if pattern != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func (e *entry) build(given map[string]string) (string, map[string]string, error) {
	params := map[string]string{}
	parts := make([]string, len(e.segments))
	for i, pattern := range e.segments {
		name, ok := strings.CutPrefix(pattern, ":")
		if !ok {
			parts[i] = pattern
			continue
		}
		v := given[name]
		if v == "" || strings.Contains(v, "/") {
			return "", nil, fmt.Errorf("%w: %q for %s", ErrMissingParam, name, e.path)
		}
		parts[i] = v
		params[name] = v
	}
	return "/" + strings.Join(parts, "/"), params, nil
}

func joinPath(parent, child string) string {
	switch {
	case strings.HasPrefix(child, "/"):
		return "/" + strings.Join(segments(child), "/")
	case child == "":
		if parent == "" {
			return "/"
		}
		return parent
	default:
		return "/" + strings.Join(append(segments(parent), segments(child)...), "/")
	}
}

// segments splits a path on "/", dropping empty parts and any query string.
func segments(path string) []string {
	path, _, _ = strings.Cut(path, "?")
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
