package repositories

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenMigrated(shared.MemoryDatabase, shared.DatabaseConfig{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testSong(id, name string) models.Song {
	return models.Song{
		ID:      id,
		URI:     "spotify:track:" + id,
		Name:    name,
		Artists: []string{"Daft Punk", "Pharrell Williams"},
		Album:   "Random Access Memories",
		Image: models.Image{
			URL:    "https://i.scdn.co/image/" + id,
			Height: 64,
			Width:  64,
		},
		DurationMS:  369_626,
		Explicit:    false,
		ExternalURL: "https://open.spotify.com/track/" + id,
	}
}

func TestKVRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		value, found, err := repo.Get(ctx, "jwt")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found || value != "" {
			t.Errorf("expected missing key, got %q found=%v", value, found)
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set(ctx, "jwt", "abc"); err != nil {
			t.Fatalf("failed to set key: %v", err)
		}

		value, found, err := repo.Get(ctx, "jwt")
		if err != nil || !found || value != "abc" {
			t.Errorf("expected abc, got %q found=%v err=%v", value, found, err)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		repo.Set(ctx, "jwt", "first")
		if err := repo.Set(ctx, "jwt", "second"); err != nil {
			t.Fatalf("failed to overwrite key: %v", err)
		}

		value, _, _ := repo.Get(ctx, "jwt")
		if value != "second" {
			t.Errorf("expected second, got %q", value)
		}

		keys, err := repo.Keys(ctx)
		if err != nil {
			t.Fatalf("failed to list keys: %v", err)
		}
		if len(keys) != 1 {
			t.Errorf("expected a single key, got %v", keys)
		}
	})

	t.Run("Remove is idempotent", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		repo.Set(ctx, "credentials", "{}")
		for i := 0; i < 2; i++ {
			if err := repo.Remove(ctx, "credentials"); err != nil {
				t.Fatalf("remove #%d failed: %v", i+1, err)
			}
		}

		if _, found, _ := repo.Get(ctx, "credentials"); found {
			t.Error("expected key to be removed")
		}
	})

	t.Run("closed database surfaces errors", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewKVRepository(db)
		db.Close()

		if _, _, err := repo.Get(ctx, "jwt"); err == nil {
			t.Error("expected error reading from closed database")
		}
		if err := repo.Set(ctx, "jwt", "x"); err == nil {
			t.Error("expected error writing to closed database")
		}
	})
}

func TestSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert and Get", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		song := testSong("2Foc5Q5nqNiosCNqttzHof", "Get Lucky")

		if err := repo.Upsert(ctx, song); err != nil {
			t.Fatalf("failed to upsert song: %v", err)
		}

		got, err := repo.Get(ctx, song.ID)
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}

		if !reflect.DeepEqual(*got, song) {
			t.Errorf("got %+v, want %+v", *got, song)
		}
	})

	t.Run("Upsert refreshes existing row", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		song := testSong("abc", "Instant Crush")
		repo.Upsert(ctx, song)

		song.Explicit = true
		song.Artists = []string{"Daft Punk"}
		if err := repo.Upsert(ctx, song); err != nil {
			t.Fatalf("failed to upsert song: %v", err)
		}

		got, _ := repo.Get(ctx, "abc")
		if !got.Explicit || len(got.Artists) != 1 {
			t.Errorf("expected refreshed row, got %+v", got)
		}

		all, _ := repo.List(ctx, "", 0)
		if len(all) != 1 {
			t.Errorf("expected one cached song, got %d", len(all))
		}
	})

	t.Run("Upsert requires id", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))

		err := repo.Upsert(ctx, testSong(" ", "Nameless"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))

		_, err := repo.Get(ctx, "missing")
		if !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
	})

	t.Run("List filters and limits", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		step := 0
		repo.now = func() time.Time {
			step++
			return base.Add(time.Duration(step) * time.Minute)
		}

		for _, s := range []models.Song{
			testSong("1", "Get Lucky"),
			testSong("2", "Lose Yourself to Dance"),
			testSong("3", "Lucky Star"),
		} {
			if err := repo.Upsert(ctx, s); err != nil {
				t.Fatalf("failed to upsert %s: %v", s.ID, err)
			}
		}

		lucky, err := repo.List(ctx, "LUCKY", 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(lucky) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(lucky))
		}
		if lucky[0].ID != "3" {
			t.Errorf("expected most recent first, got %s", lucky[0].ID)
		}

		limited, _ := repo.List(ctx, "", 1)
		if len(limited) != 1 {
			t.Errorf("expected limit 1, got %d", len(limited))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		repo.Upsert(ctx, testSong("x", "Touch"))

		if err := repo.Delete(ctx, "x"); err != nil {
			t.Fatalf("failed to delete song: %v", err)
		}

		if err := repo.Delete(ctx, "x"); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound deleting twice, got %v", err)
		}
	})

	t.Run("malformed JSON column", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSongRepository(db)
		now := time.Now()

		_, err := db.Exec(`INSERT INTO songs (id, uri, name, artists, album, image, duration_ms, explicit, external_url, created_at, updated_at)
			VALUES ('bad', 'u', 'n', 'not-json', '', '{}', 0, 0, '', ?, ?)`, now, now)
		if err != nil {
			t.Fatalf("failed to insert raw row: %v", err)
		}

		if _, err := repo.Get(ctx, "bad"); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})
}
