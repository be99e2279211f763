package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
)

// SongRepository caches [models.Song] records keyed by Spotify track ID.
//
// Artists and album art are stored as JSON columns.
type SongRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSongRepository creates a new [SongRepository] with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db, now: time.Now}
}

const songColumns = "id, uri, name, artists, album, image, duration_ms, explicit, external_url"

// Upsert inserts song or refreshes an existing row with the same ID.
func (r *SongRepository) Upsert(ctx context.Context, song models.Song) error {
	if strings.TrimSpace(song.ID) == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrInvalidInput)
	}

	artists, err := jsonColumn(song.Artists)
	if err != nil {
		return err
	}
	image, err := jsonColumn(song.Image)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	query := `
		INSERT INTO songs (` + songColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uri = excluded.uri,
			name = excluded.name,
			artists = excluded.artists,
			album = excluded.album,
			image = excluded.image,
			duration_ms = excluded.duration_ms,
			explicit = excluded.explicit,
			external_url = excluded.external_url,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		song.ID,
		song.URI,
		song.Name,
		artists,
		song.Album,
		image,
		song.DurationMS,
		song.Explicit,
		song.ExternalURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert song: %w", err)
	}

	return nil
}

// Get retrieves a cached song by Spotify ID.
func (r *SongRepository) Get(ctx context.Context, id string) (*models.Song, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+songColumns+" FROM songs WHERE id = ?", id)

	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return song, nil
}

// List returns cached songs whose name contains query (case-insensitive), most recently updated first.
// An empty query lists everything; limit <= 0 means no limit.
func (r *SongRepository) List(ctx context.Context, query string, limit int) ([]models.Song, error) {
	stmt := "SELECT " + songColumns + " FROM songs"
	args := []any{}

	if query = strings.TrimSpace(query); query != "" {
		stmt += " WHERE name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+query+"%")
	}

	stmt += " ORDER BY updated_at DESC, name ASC"

	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// Delete removes a cached song.
func (r *SongRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	return affectedOne(result, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id))
}

func scanSong(row scanner) (*models.Song, error) {
	var (
		song    models.Song
		artists string
		image   string
	)

	err := row.Scan(
		&song.ID,
		&song.URI,
		&song.Name,
		&artists,
		&song.Album,
		&image,
		&song.DurationMS,
		&song.Explicit,
		&song.ExternalURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	if err := json.Unmarshal([]byte(artists), &song.Artists); err != nil {
		return nil, fmt.Errorf("%w: song %s artists: %v", shared.ErrMalformedRecord, song.ID, err)
	}
	if err := json.Unmarshal([]byte(image), &song.Image); err != nil {
		return nil, fmt.Errorf("%w: song %s image: %v", shared.ErrMalformedRecord, song.ID, err)
	}

	return &song, nil
}
