package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/desertthunder/hpx/internal/storage"
)

// Store is the single writer of the [Session]. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	storage   storage.Storage
	session   Session
	logger    *log.Logger
	listeners map[int]func(Session)
	nextID    int
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for warnings about persisted data.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store backed by st. Call [Store.Initialize] to load persisted state.
func New(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		logger:    log.New(io.Discard),
		listeners: make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize replaces the in-memory session with what the substrate holds.
//
// Each key is read independently. A missing key yields an absent value.
// Malformed credentials, or credentials stored without a token, are dropped
// with a warning and their key is removed. Only a failed read is an error,
// in which case the session is left empty.
func (s *Store) Initialize(ctx context.Context) error {
	token, _, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.reset()
		return fmt.Errorf("%w: read %s: %v", shared.ErrStorage, TokenKey, err)
	}

	raw, found, err := s.storage.Get(ctx, CredentialsKey)
	if err != nil {
		s.reset()
		return fmt.Errorf("%w: read %s: %v", shared.ErrStorage, CredentialsKey, err)
	}

	next := Session{Token: token}
	if found {
		switch creds, err := models.UnmarshalCredentials(raw); {
		case err != nil:
			s.logger.Warn("discarding malformed credentials", "error", err)
			s.discard(ctx, CredentialsKey)
		case token == "":
			s.logger.Warn("discarding credentials stored without a token", "user", creds.Username)
			s.discard(ctx, CredentialsKey)
		default:
			next.Credentials = &creds
		}
	}

	s.mu.Lock()
	s.session = next
	s.mu.Unlock()

	s.notify(next)
	s.logger.Debug("session initialized", "authenticated", next.Authenticated(), "credentials", next.Credentials != nil)
	return nil
}

// IsAuthenticated reports whether a non-empty token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated()
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Credentials returns a copy of the loaded credentials.
func (s *Store) Credentials() (models.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.Credentials == nil {
		return models.Credentials{}, false
	}
	return *s.session.Credentials, true
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.clone()
}

// SetToken stores token in memory and in the substrate.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	return s.update(ctx, func(cur Session) (Session, []change, error) {
		next := cur.clone()
		next.Token = token
		return next, []change{{key: TokenKey, value: token}}, nil
	})
}

// SetCredentials stores creds in memory and persists them as JSON. A token must already be set.
func (s *Store) SetCredentials(ctx context.Context, creds models.Credentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	return s.update(ctx, func(cur Session) (Session, []change, error) {
		if !cur.Authenticated() {
			return cur, nil, ErrNoToken
		}
		return s.withCredentials(cur, creds)
	})
}

// MarkExternalServiceConnected flags the loaded credentials as linked to Spotify and re-persists them.
//
// It fails with [ErrNoCredentials] when no credentials are loaded.
func (s *Store) MarkExternalServiceConnected(ctx context.Context) error {
	return s.update(ctx, func(cur Session) (Session, []change, error) {
		if cur.Credentials == nil {
			return cur, nil, ErrNoCredentials
		}
		creds := *cur.Credentials
		creds.SpotifyConnected = true
		return s.withCredentials(cur, creds)
	})
}

// Clear signs out: both fields become absent and both keys are removed.
//
// The in-memory session is cleared even when a removal fails; the failure is still returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = Session{}
	var errs []error
	for _, key := range []string{TokenKey, CredentialsKey} {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	s.mu.Unlock()

	s.notify(Session{})

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return nil
}

// Subscribe registers fn to receive a snapshot after every successful change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) withCredentials(cur Session, creds models.Credentials) (Session, []change, error) {
	raw, err := models.MarshalCredentials(creds)
	if err != nil {
		return cur, nil, err
	}
	next := cur.clone()
	next.Credentials = &creds
	return next, []change{{key: CredentialsKey, value: raw}}, nil
}

// update applies transition to the current session, persists its changes and
// notifies listeners. A failed write restores the previous session.
func (s *Store) update(ctx context.Context, transition func(Session) (Session, []change, error)) error {
	s.mu.Lock()
	prev := s.session
	next, changes, err := transition(prev.clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.session = next
	if err := s.persist(ctx, changes); err != nil {
		s.session = prev
		s.mu.Unlock()
		return err
	}
	snapshot := next.clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context, changes []change) error {
	for _, c := range changes {
		if err := s.storage.Set(ctx, c.key, c.value); err != nil {
			return fmt.Errorf("%w: write %s: %v", shared.ErrStorage, c.key, err)
		}
	}
	return nil
}

func (s *Store) discard(ctx context.Context, key string) {
	if err := s.storage.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to remove key", "key", key, "error", err)
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	s.session = Session{}
	s.mu.Unlock()
}

// notify calls listeners in subscription order outside the lock.
func (s *Store) notify(snapshot Session) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snapshot.clone())
	}
}
