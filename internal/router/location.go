package router

import "maps"

// Route is a static entry of the route table. View is opaque to the router.
type Route struct {
	Path         string
	Name         string
	View         any
	RequiresAuth bool
	Children     []Route
}

// Target identifies a navigation destination by path or by route name.
// Name takes precedence when both are set.
type Target struct {
	Path   string
	Name   string
	Params map[string]string
}

// Path targets a concrete path such as "/room/42".
func Path(p string) Target {
	return Target{Path: p}
}

// Named targets the route called name, filling its ":param" segments from params.
func Named(name string, params map[string]string) Target {
	return Target{Name: name, Params: params}
}

func (t Target) String() string {
	if t.Name != "" {
		return "name:" + t.Name
	}
	return t.Path
}

// Location is a resolved target.
type Location struct {
	Path   string
	Name   string
	Params map[string]string
	// Matched is the route chain from root to leaf.
	Matched []*Route
	// RedirectedFrom holds the path first requested when guards redirected the navigation.
	RedirectedFrom string
}

// IsZero reports whether l is the empty location held before the first navigation.
func (l Location) IsZero() bool {
	return l.Path == "" && len(l.Matched) == 0
}

// Route returns the leaf route, or nil for the zero location.
func (l Location) Route() *Route {
	if len(l.Matched) == 0 {
		return nil
	}
	return l.Matched[len(l.Matched)-1]
}

// Param returns the value bound to a ":name" segment.
func (l Location) Param(name string) string {
	return l.Params[name]
}

// Redirected reports whether guards sent the navigation somewhere other than requested.
func (l Location) Redirected() bool {
	return l.RedirectedFrom != ""
}

func (l Location) clone() Location {
	l.Params = maps.Clone(l.Params)
	l.Matched = append([]*Route(nil), l.Matched...)
	return l
}

// Decision is the outcome of a [Guard].
type Decision struct {
	redirect *Target
}

// Allow lets navigation continue to the next guard.
func Allow() Decision {
	return Decision{}
}

// Redirect abandons the current navigation in favour of target.
func Redirect(target Target) Decision {
	return Decision{redirect: &target}
}

// Target returns the redirect target and whether the decision is a redirect.
func (d Decision) Target() (Target, bool) {
	if d.redirect == nil {
		return Target{}, false
	}
	return *d.redirect, true
}

// RouteInfo describes a flattened route for listings.
type RouteInfo struct {
	Path         string
	Name         string
	RequiresAuth bool
}
