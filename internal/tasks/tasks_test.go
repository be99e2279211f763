package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/repositories"
	"github.com/desertthunder/hpx/internal/shared"
	th "github.com/desertthunder/hpx/internal/testing"
)

// mockSource serves songs from a map and counts fetches per ID.
type mockSource struct {
	mu       sync.Mutex
	songs    map[string]models.Song
	fetches  map[string]int
	searches int
	err      error
}

func newMockSource(ids ...string) *mockSource {
	m := &mockSource{songs: map[string]models.Song{}, fetches: map[string]int{}}
	for _, id := range ids {
		m.songs[id] = models.Song{ID: id, Name: "Song " + id, Artists: []string{"Artist"}}
	}
	return m
}

func (m *mockSource) Song(ctx context.Context, id string) (*models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[id]++

	if m.err != nil {
		return nil, m.err
	}
	song, ok := m.songs[id]
	if !ok {
		return nil, shared.ErrSongNotFound
	}
	return &song, nil
}

func (m *mockSource) SearchSongs(ctx context.Context, query string, limit int) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++

	if m.err != nil {
		return nil, m.err
	}
	out := []models.Song{}
	for _, s := range m.songs {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSource) fetchCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id]
}

// mockCache is a map-backed SongCache with injectable failures.
type mockCache struct {
	mu      sync.Mutex
	songs   map[string]models.Song
	failGet bool
	failSet bool
}

func newMockCache() *mockCache {
	return &mockCache{songs: map[string]models.Song{}}
}

func (c *mockCache) Upsert(ctx context.Context, song models.Song) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return th.ErrInjected
	}
	c.songs[song.ID] = song
	return nil
}

func (c *mockCache) Get(ctx context.Context, id string) (*models.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, th.ErrInjected
	}
	song, ok := c.songs[id]
	if !ok {
		return nil, shared.ErrSongNotFound
	}
	return &song, nil
}

func (c *mockCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.songs)
}

func setupSongRepo(t *testing.T) *repositories.SongRepository {
	t.Helper()
	db, err := shared.OpenMigrated(shared.MemoryDatabase, shared.DatabaseConfig{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewSongRepository(db)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("Miss Fetches And Caches", func(t *testing.T) {
		source := newMockSource("a")
		repo := setupSongRepo(t)
		engine := NewSongEngine(source, repo, nil)

		song, cached, err := engine.Lookup(ctx, "a", false)
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if cached || song.Name != "Song a" {
			t.Errorf("expected fresh fetch, got cached=%v song=%+v", cached, song)
		}

		if _, err := repo.Get(ctx, "a"); err != nil {
			t.Errorf("expected song to be cached, got %v", err)
		}
	})

	t.Run("Hit Skips Source", func(t *testing.T) {
		source := newMockSource("a")
		engine := NewSongEngine(source, setupSongRepo(t), nil)

		engine.Lookup(ctx, "a", false)
		_, cached, err := engine.Lookup(ctx, "a", false)
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if !cached {
			t.Error("expected second lookup to hit the cache")
		}
		if n := source.fetchCount("a"); n != 1 {
			t.Errorf("expected 1 fetch, got %d", n)
		}
	})

	t.Run("Refresh Bypasses Cache", func(t *testing.T) {
		source := newMockSource("a")
		engine := NewSongEngine(source, setupSongRepo(t), nil)

		engine.Lookup(ctx, "a", false)
		if _, cached, _ := engine.Lookup(ctx, "a", true); cached {
			t.Error("expected refresh to fetch")
		}
		if n := source.fetchCount("a"); n != 2 {
			t.Errorf("expected 2 fetches, got %d", n)
		}
	})

	t.Run("Cache Failures Are Not Fatal", func(t *testing.T) {
		cache := newMockCache()
		cache.failGet, cache.failSet = true, true
		engine := NewSongEngine(newMockSource("a"), cache, nil)

		if _, _, err := engine.Lookup(ctx, "a", false); err != nil {
			t.Errorf("expected lookup to succeed despite cache errors, got %v", err)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		engine := NewSongEngine(newMockSource(), nil, nil)
		if _, _, err := engine.Lookup(ctx, "zzz", false); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
	})

	t.Run("Missing ID", func(t *testing.T) {
		engine := NewSongEngine(newMockSource(), nil, nil)
		if _, _, err := engine.Lookup(ctx, "", false); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("No Source", func(t *testing.T) {
		engine := NewSongEngine(nil, newMockCache(), nil)
		if _, _, err := engine.Lookup(ctx, "a", false); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Without Cache", func(t *testing.T) {
		cache := newMockCache()
		engine := NewSongEngine(newMockSource("a", "b"), cache, nil)

		songs, err := engine.Search(ctx, "x", 5, false)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(songs) != 2 || cache.len() != 0 {
			t.Errorf("expected 2 uncached songs, got %d songs, %d cached", len(songs), cache.len())
		}
	})

	t.Run("With Cache", func(t *testing.T) {
		cache := newMockCache()
		engine := NewSongEngine(newMockSource("a", "b"), cache, nil)

		if _, err := engine.Search(ctx, "x", 5, true); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if cache.len() != 2 {
			t.Errorf("expected 2 cached songs, got %d", cache.len())
		}
	})

	t.Run("Source Error", func(t *testing.T) {
		source := newMockSource()
		source.err = shared.ErrTokenExpired
		engine := NewSongEngine(source, nil, nil)

		if _, err := engine.Search(ctx, "x", 5, false); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestWarm(t *testing.T) {
	ctx := context.Background()
	fast := WarmOpts{RateLimit: 1000}

	t.Run("Fetches All", func(t *testing.T) {
		ids := make([]string, 12)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%02d", i)
		}
		repo := setupSongRepo(t)
		engine := NewSongEngine(newMockSource(ids...), repo, nil)

		result, err := engine.Warm(ctx, nil, ids, WarmOpts{NumWorkers: 3, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.Total != 12 || result.Fetched != 12 || result.Failed != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		for i, res := range result.Results {
			if res.ID != ids[i] {
				t.Errorf("expected results in input order, position %d has %s", i, res.ID)
			}
		}

		cached, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(cached) != 12 {
			t.Errorf("expected 12 cached songs, got %d", len(cached))
		}
	})

	t.Run("Partial Failure", func(t *testing.T) {
		engine := NewSongEngine(newMockSource("a", "b"), newMockCache(), nil)

		result, err := engine.Warm(ctx, nil, []string{"a", "missing", "b"}, fast)
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.Fetched != 2 || result.Failed != 1 {
			t.Errorf("expected 2 fetched and 1 failed, got %+v", result)
		}
		if !errors.Is(result.Results[1].Error, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound for missing, got %v", result.Results[1].Error)
		}
	})

	t.Run("Upsert Failure", func(t *testing.T) {
		cache := newMockCache()
		cache.failSet = true
		engine := NewSongEngine(newMockSource("a"), cache, nil)

		result, err := engine.Warm(ctx, nil, []string{"a"}, fast)
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.Failed != 1 || !errors.Is(result.Results[0].Error, th.ErrInjected) {
			t.Errorf("expected injected cache failure, got %+v", result.Results)
		}
	})

	t.Run("Skip Cached", func(t *testing.T) {
		source := newMockSource("a", "b")
		cache := newMockCache()
		cache.songs["a"] = models.Song{ID: "a", Name: "Cached A"}
		engine := NewSongEngine(source, cache, nil)

		result, err := engine.Warm(ctx, nil, []string{"a", "b"}, WarmOpts{RateLimit: 1000, SkipCached: true})
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.Skipped != 1 || result.Fetched != 1 {
			t.Errorf("expected 1 skipped and 1 fetched, got %+v", result)
		}
		if source.fetchCount("a") != 0 {
			t.Error("cached song should not be fetched")
		}
		if result.Results[0].Name != "Cached A" {
			t.Errorf("expected cached name, got %s", result.Results[0].Name)
		}
	})

	t.Run("Deduplicates IDs", func(t *testing.T) {
		source := newMockSource("a")
		engine := NewSongEngine(source, newMockCache(), nil)

		result, err := engine.Warm(ctx, nil, []string{"a", " a ", "", "a"}, fast)
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.Total != 1 || source.fetchCount("a") != 1 {
			t.Errorf("expected one fetch for duplicated id, got total=%d fetches=%d", result.Total, source.fetchCount("a"))
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		engine := NewSongEngine(newMockSource("a", "b"), newMockCache(), nil)
		prog := make(chan ProgressUpdate, 16)

		if _, err := engine.Warm(ctx, prog, []string{"a", "b"}, fast); err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		close(prog)

		phases := map[Phase]int{}
		for u := range prog {
			phases[u.Phase]++
		}
		if phases[FetchSongs] != 2 || phases[CacheSongs] != 2 {
			t.Errorf("unexpected phase counts %v", phases)
		}
	})

	t.Run("Unbuffered Progress Does Not Block", func(t *testing.T) {
		engine := NewSongEngine(newMockSource("a"), newMockCache(), nil)
		if _, err := engine.Warm(ctx, make(chan ProgressUpdate), []string{"a"}, fast); err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		engine := NewSongEngine(newMockSource("a"), newMockCache(), nil)
		path := filepath.Join(t.TempDir(), "warm", "manifest.json")

		result, err := engine.Warm(ctx, nil, []string{"a", "gone"}, WarmOpts{RateLimit: 1000, ManifestPath: path})
		if err != nil {
			t.Fatalf("Warm() error = %v", err)
		}
		if result.ManifestPath != path {
			t.Errorf("expected manifest path %s, got %s", path, result.ManifestPath)
		}

		var m manifest
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &m); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if m.Total != 2 || m.Fetched != 1 || m.Failed != 1 {
			t.Errorf("unexpected manifest counts %+v", m)
		}
		if m.Songs[0].Status != "fetched" || m.Songs[1].Status != "failed" || m.Songs[1].Error == "" {
			t.Errorf("unexpected manifest entries %+v", m.Songs)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		engine := NewSongEngine(newMockSource("a", "b"), newMockCache(), nil)

		result, err := engine.Warm(cctx, nil, []string{"a", "b"}, fast)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.Fetched != 0 {
			t.Errorf("expected empty partial result, got %+v", result)
		}
	})

	t.Run("Requires Cache", func(t *testing.T) {
		engine := NewSongEngine(newMockSource("a"), nil, nil)
		if _, err := engine.Warm(ctx, nil, []string{"a"}, fast); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		CheckCache:    "check_cache",
		FetchSongs:    "fetch_songs",
		CacheSongs:    "cache_songs",
		WriteManifest: "write_manifest",
		Phase(99):     "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
