package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
	tu "github.com/desertthunder/hpx/internal/testing"
)

var alice = models.Credentials{ID: 7, Username: "alice", Email: "alice@example.com"}

func newStore(t *testing.T, seed map[string]string) (*Store, *tu.RecordingStorage) {
	t.Helper()
	st := tu.NewRecordingStorage(seed)
	s := New(st)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return s, st
}

func mustEncode(t *testing.T, c models.Credentials) string {
	t.Helper()
	raw, err := models.MarshalCredentials(c)
	if err != nil {
		t.Fatalf("MarshalCredentials() error = %v", err)
	}
	return raw
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		seed        map[string]string
		wantToken   string
		wantCreds   bool
		wantKeyGone bool
	}{
		{name: "Empty", seed: nil},
		{name: "Token Only", seed: map[string]string{TokenKey: "abc"}, wantToken: "abc"},
		{
			name:      "Token And Credentials",
			seed:      map[string]string{TokenKey: "abc", CredentialsKey: `{"id":7,"username":"alice","email":"alice@example.com","spotify_connected":true}`},
			wantToken: "abc",
			wantCreds: true,
		},
		{name: "Malformed JSON", seed: map[string]string{TokenKey: "abc", CredentialsKey: "{not json"}, wantToken: "abc", wantKeyGone: true},
		{name: "Null Record", seed: map[string]string{TokenKey: "abc", CredentialsKey: "null"}, wantToken: "abc", wantKeyGone: true},
		{name: "Wrong Shape", seed: map[string]string{TokenKey: "abc", CredentialsKey: `["alice"]`}, wantToken: "abc", wantKeyGone: true},
		{name: "Missing Username", seed: map[string]string{TokenKey: "abc", CredentialsKey: `{"id":7}`}, wantToken: "abc", wantKeyGone: true},
		{name: "Credentials Without Token", seed: map[string]string{CredentialsKey: `{"id":7,"username":"alice"}`}, wantKeyGone: true},
		{name: "Empty Token With Credentials", seed: map[string]string{TokenKey: "", CredentialsKey: `{"id":7,"username":"alice"}`}, wantKeyGone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newStore(t, tt.seed)

			if s.Token() != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, s.Token())
			}
			if _, ok := s.Credentials(); ok != tt.wantCreds {
				t.Errorf("expected credentials present=%v, got %v", tt.wantCreds, ok)
			}
			if tt.wantKeyGone && st.Has(CredentialsKey) {
				t.Error("expected discarded credentials key to be removed")
			}
			if snap := s.Snapshot(); snap.Credentials != nil && snap.Token == "" {
				t.Error("credentials loaded without a token")
			}
		})
	}

	t.Run("Malformed Credentials Logged", func(t *testing.T) {
		var buf bytes.Buffer
		st := tu.NewRecordingStorage(map[string]string{TokenKey: "abc", CredentialsKey: "{"})
		s := New(st, WithLogger(log.New(&buf)))

		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if !strings.Contains(buf.String(), "malformed credentials") {
			t.Errorf("expected warning in log, got %q", buf.String())
		}
	})

	t.Run("Read Failure", func(t *testing.T) {
		st := tu.NewRecordingStorage(map[string]string{TokenKey: "abc"})
		st.FailGet = true
		s := New(st)

		err := s.Initialize(context.Background())
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if s.IsAuthenticated() {
			t.Error("session should stay empty after a failed read")
		}
	})

	t.Run("Reload Replaces State", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc"})
		st.Memory.Set(context.Background(), TokenKey, "def")

		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if s.Token() != "def" {
			t.Errorf("expected reloaded token def, got %q", s.Token())
		}
	})
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("Absent Token", func(t *testing.T) {
		s, _ := newStore(t, nil)
		if s.IsAuthenticated() {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("Persisted Empty Token", func(t *testing.T) {
		s, _ := newStore(t, map[string]string{TokenKey: ""})
		if s.IsAuthenticated() {
			t.Error("empty token must not authenticate")
		}
	})

	t.Run("Non-Empty Tokens", func(t *testing.T) {
		for _, token := range []string{"a", "abc", " ", "eyJhbGciOiJIUzI1NiJ9.e30.x"} {
			s, _ := newStore(t, nil)
			if err := s.SetToken(ctx, token); err != nil {
				t.Fatalf("SetToken(%q) error = %v", token, err)
			}
			if !s.IsAuthenticated() {
				t.Errorf("token %q should authenticate", token)
			}
		}
	})
}

func TestSetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Persists", func(t *testing.T) {
		s, st := newStore(t, nil)
		if err := s.SetToken(ctx, "abc"); err != nil {
			t.Fatalf("SetToken() error = %v", err)
		}
		if st.Value(TokenKey) != "abc" {
			t.Errorf("expected persisted token abc, got %q", st.Value(TokenKey))
		}
		if st.Writes() != 1 {
			t.Errorf("expected exactly one write, got %d", st.Writes())
		}
	})

	t.Run("Overwrites", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "old"})
		s.SetToken(ctx, "new")
		if s.Token() != "new" || st.Value(TokenKey) != "new" {
			t.Errorf("expected new token, memory=%q stored=%q", s.Token(), st.Value(TokenKey))
		}
	})

	t.Run("Rejects Empty", func(t *testing.T) {
		s, st := newStore(t, nil)
		if err := s.SetToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if st.Writes() != 0 {
			t.Error("rejected token should not be written")
		}
	})

	t.Run("Write Failure Rolls Back", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "old"})
		st.FailSet = true

		err := s.SetToken(ctx, "new")
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if s.Token() != "old" {
			t.Errorf("expected rollback to old token, got %q", s.Token())
		}
	})
}

func TestSetCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires Token", func(t *testing.T) {
		s, st := newStore(t, nil)
		if err := s.SetCredentials(ctx, alice); !errors.Is(err, ErrNoToken) {
			t.Fatalf("expected ErrNoToken, got %v", err)
		}
		if _, ok := s.Credentials(); ok {
			t.Error("credentials should stay absent")
		}
		if st.Writes() != 0 {
			t.Error("nothing should be written")
		}
	})

	t.Run("Rejects Invalid Record", func(t *testing.T) {
		s, _ := newStore(t, map[string]string{TokenKey: "abc"})
		if err := s.SetCredentials(ctx, models.Credentials{Username: "bob"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Persists JSON", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc"})
		if err := s.SetCredentials(ctx, alice); err != nil {
			t.Fatalf("SetCredentials() error = %v", err)
		}

		got, err := models.UnmarshalCredentials(st.Value(CredentialsKey))
		if err != nil {
			t.Fatalf("stored credentials do not decode: %v", err)
		}
		if got != alice {
			t.Errorf("expected %+v, got %+v", alice, got)
		}
		if st.Sets != 1 {
			t.Errorf("expected one write, got %d", st.Sets)
		}
	})

	t.Run("Caller Copy Is Detached", func(t *testing.T) {
		s, _ := newStore(t, map[string]string{TokenKey: "abc"})
		in := alice
		s.SetCredentials(ctx, in)
		in.Username = "mallory"

		snap := s.Snapshot()
		snap.Credentials.Email = "changed"

		got, _ := s.Credentials()
		if got != alice {
			t.Errorf("store state leaked, got %+v", got)
		}
	})

	t.Run("Write Failure Rolls Back", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc"})
		st.FailSet = true

		if err := s.SetCredentials(ctx, alice); !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if _, ok := s.Credentials(); ok {
			t.Error("credentials should be rolled back")
		}
	})
}

func TestMarkExternalServiceConnected(t *testing.T) {
	ctx := context.Background()

	t.Run("Without Credentials", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc"})
		if err := s.MarkExternalServiceConnected(ctx); !errors.Is(err, ErrNoCredentials) {
			t.Fatalf("expected ErrNoCredentials, got %v", err)
		}
		if st.Writes() != 0 {
			t.Error("nothing should be written")
		}
	})

	t.Run("Flips Only The Flag And Round-Trips", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc"})
		if err := s.SetCredentials(ctx, alice); err != nil {
			t.Fatalf("SetCredentials() error = %v", err)
		}
		if err := s.MarkExternalServiceConnected(ctx); err != nil {
			t.Fatalf("MarkExternalServiceConnected() error = %v", err)
		}

		want := alice
		want.SpotifyConnected = true

		got, ok := s.Credentials()
		if !ok || got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		reloaded := New(st)
		if err := reloaded.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if got, _ := reloaded.Credentials(); got != want {
			t.Errorf("persisted record %+v does not match %+v", got, want)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		s, _ := newStore(t, map[string]string{TokenKey: "abc", CredentialsKey: mustEncode(t, alice)})
		s.MarkExternalServiceConnected(ctx)
		if err := s.MarkExternalServiceConnected(ctx); err != nil {
			t.Fatalf("second call error = %v", err)
		}
		if got, _ := s.Credentials(); !got.SpotifyConnected {
			t.Error("expected spotify connected")
		}
	})

	t.Run("Write Failure Rolls Back", func(t *testing.T) {
		s, st := newStore(t, map[string]string{TokenKey: "abc", CredentialsKey: mustEncode(t, alice)})
		st.FailSet = true

		if err := s.MarkExternalServiceConnected(ctx); !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if got, _ := s.Credentials(); got.SpotifyConnected {
			t.Error("flag should be rolled back")
		}
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	seed := func() map[string]string {
		return map[string]string{TokenKey: "abc", CredentialsKey: mustEncode(t, alice), "other": "kept"}
	}

	t.Run("Removes Both Keys", func(t *testing.T) {
		s, st := newStore(t, seed())
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if s.IsAuthenticated() {
			t.Error("expected signed out")
		}
		if _, ok := s.Credentials(); ok {
			t.Error("expected credentials absent")
		}
		if st.Has(TokenKey) || st.Has(CredentialsKey) {
			t.Error("expected both keys removed")
		}
		if !st.Has("other") {
			t.Error("unrelated keys must survive")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		s, st := newStore(t, seed())
		for i := 0; i < 2; i++ {
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear() #%d error = %v", i+1, err)
			}
		}
		if s.IsAuthenticated() || st.Has(TokenKey) || st.Has(CredentialsKey) {
			t.Error("second Clear changed the outcome")
		}
	})

	t.Run("Clear Then Initialize", func(t *testing.T) {
		s, st := newStore(t, seed())
		s.Clear(ctx)

		fresh := New(st)
		if err := fresh.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if fresh.Token() != "" {
			t.Errorf("expected absent token, got %q", fresh.Token())
		}
		if _, ok := fresh.Credentials(); ok {
			t.Error("expected absent credentials")
		}
	})

	t.Run("Remove Failure Still Signs Out", func(t *testing.T) {
		s, st := newStore(t, seed())
		st.FailRemove = true

		if err := s.Clear(ctx); !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if s.IsAuthenticated() {
			t.Error("memory should be cleared even when removal fails")
		}
		if st.Removes != 2 {
			t.Errorf("expected both removals attempted, got %d", st.Removes)
		}
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)

	var got []Session
	unsubscribe := s.Subscribe(func(snap Session) {
		got = append(got, snap)
	})

	s.SetToken(ctx, "abc")
	s.SetCredentials(ctx, alice)
	s.MarkExternalServiceConnected(ctx)
	s.SetToken(ctx, "")
	s.Clear(ctx)
	unsubscribe()
	s.SetToken(ctx, "ignored")

	if len(got) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(got))
	}
	if got[0].Token != "abc" || got[0].Credentials != nil {
		t.Errorf("unexpected first snapshot %+v", got[0])
	}
	if got[2].Credentials == nil || !got[2].Credentials.SpotifyConnected {
		t.Errorf("expected connected credentials in third snapshot")
	}
	if got[3].Authenticated() {
		t.Error("expected signed-out snapshot after Clear")
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, map[string]string{TokenKey: "abc", CredentialsKey: mustEncode(t, alice)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.MarkExternalServiceConnected(ctx)
			s.SetToken(ctx, "abc")
		}()
		go func() {
			defer wg.Done()
			_ = s.IsAuthenticated()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	if !s.IsAuthenticated() {
		t.Error("expected authenticated")
	}
}
