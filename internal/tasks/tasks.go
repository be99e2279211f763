// package tasks implements song cache operations on top of the Spotify client.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
)

// SongSource fetches songs from a remote catalogue. [services.SpotifyService] implements it.
type SongSource interface {
	Song(ctx context.Context, trackID string) (*models.Song, error)
	SearchSongs(ctx context.Context, query string, limit int) ([]models.Song, error)
}

// SongCache persists songs locally. [repositories.SongRepository] implements it.
type SongCache interface {
	Upsert(ctx context.Context, song models.Song) error
	Get(ctx context.Context, id string) (*models.Song, error)
}

// SongEngine combines a [SongSource] with a [SongCache].
type SongEngine struct {
	source SongSource
	cache  SongCache
	logger *log.Logger
}

// NewSongEngine creates a SongEngine. cache may be nil, in which case nothing is cached.
func NewSongEngine(source SongSource, cache SongCache, logger *log.Logger) *SongEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SongEngine{source: source, cache: cache, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *SongEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Lookup returns the song with trackID. The cache is consulted first unless refresh is set.
// The second return value reports whether the song came from the cache.
func (e *SongEngine) Lookup(ctx context.Context, trackID string, refresh bool) (*models.Song, bool, error) {
	if trackID == "" {
		return nil, false, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	if e.cache != nil && !refresh {
		song, err := e.cache.Get(ctx, trackID)
		switch {
		case err == nil:
			return song, true, nil
		case !errors.Is(err, shared.ErrSongNotFound):
			e.logger.Warn("song cache read failed", "id", trackID, "error", err)
		}
	}

	if e.source == nil {
		return nil, false, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}

	song, err := e.source.Song(ctx, trackID)
	if err != nil {
		return nil, false, err
	}
	e.store(ctx, *song)
	return song, false, nil
}

// Search queries the catalogue and, when cache is set, stores every hit.
func (e *SongEngine) Search(ctx context.Context, query string, limit int, cache bool) ([]models.Song, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}

	songs, err := e.source.SearchSongs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if cache {
		for _, song := range songs {
			e.store(ctx, song)
		}
	}
	return songs, nil
}

func (e *SongEngine) store(ctx context.Context, song models.Song) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Upsert(ctx, song); err != nil {
		e.logger.Warn("failed to cache song", "id", song.ID, "error", err)
	}
}
