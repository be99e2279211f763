package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/hpx/internal/formatter"
	"github.com/desertthunder/hpx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWarmWorkers = 5
	maxWarmWorkers     = 10
	defaultWarmRate    = 5.0
)

// WarmOpts contains configuration for bulk cache fills.
type WarmOpts struct {
	NumWorkers   int     // Concurrent workers (default: 5, max: 10)
	RateLimit    float64 // Spotify requests per second (default: 5)
	SkipCached   bool    // Leave songs already in the cache untouched
	ManifestPath string  // Optional JSON manifest destination
}

// SongResult is the outcome for one track ID.
type SongResult struct {
	Index  int
	ID     string
	Name   string
	Cached bool // already present, not fetched
	Error  error
}

// WarmResult summarizes a [SongEngine.Warm] run.
type WarmResult struct {
	Total        int
	Fetched      int
	Skipped      int
	Failed       int
	Results      []SongResult // in input order
	ManifestPath string
	Duration     time.Duration
}

type warmJob struct {
	index int
	id    string
}

type manifestEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Total       int             `json:"total"`
	Fetched     int             `json:"fetched"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	Songs       []manifestEntry `json:"songs"`
}

// Warm fetches every track in ids from Spotify and stores it in the cache.
//
// Work is spread over a worker pool; all workers share one [rate.Limiter].
// Individual failures are recorded in the result and do not stop the run.
// Duplicate and blank IDs are dropped. Cancelling ctx stops dispatching new IDs
// and the partial result is returned along with the context error.
func (e *SongEngine) Warm(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts WarmOpts) (*WarmResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}
	if e.cache == nil {
		return nil, fmt.Errorf("%w: song cache not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWarmWorkers
	}
	if opts.NumWorkers > maxWarmWorkers {
		opts.NumWorkers = maxWarmWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultWarmRate
	}

	ids = uniqueIDs(ids)
	started := time.Now()
	result := &WarmResult{Total: len(ids), Results: make([]SongResult, 0, len(ids))}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan warmJob, len(ids))
	results := make(chan SongResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.warmWorker(ctx, &wg, jobs, results)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		for i, id := range ids {
			if ctx.Err() != nil {
				return
			}

			if opts.SkipCached {
				if song, err := e.cache.Get(ctx, id); err == nil {
					e.sendProgress(prog, cachedSongUpdate(i+1, len(ids), id))
					results <- SongResult{Index: i, ID: id, Name: song.Name, Cached: true}
					continue
				}
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, fetchingSongUpdate(i+1, len(ids), id))
			jobs <- warmJob{index: i, id: id}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Cached:
			result.Skipped++
		case res.Error != nil:
			result.Failed++
			e.sendProgress(prog, songFailedUpdate(completed, len(ids), res))
		default:
			result.Fetched++
			e.sendProgress(prog, songCachedUpdate(completed, len(ids), res))
		}
	}

	slices.SortFunc(result.Results, func(a, b SongResult) int { return a.Index - b.Index })
	result.Duration = time.Since(started)

	e.logger.Info("cache warm finished",
		"total", result.Total, "fetched", result.Fetched, "skipped", result.Skipped, "failed", result.Failed)

	if opts.ManifestPath != "" {
		e.sendProgress(prog, manifestUpdate(opts.ManifestPath))
		if err := writeManifest(result, opts.ManifestPath); err != nil {
			return result, fmt.Errorf("cache warm completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = opts.ManifestPath
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("cache warm interrupted: %w", err)
	}
	return result, nil
}

// warmWorker fetches and caches songs from the jobs channel.
func (e *SongEngine) warmWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan warmJob, results chan<- SongResult) {
	defer wg.Done()

	for job := range jobs {
		res := SongResult{Index: job.index, ID: job.id}

		song, err := e.source.Song(ctx, job.id)
		if err != nil {
			res.Error = fmt.Errorf("failed to fetch song: %w", err)
			results <- res
			continue
		}
		res.Name = song.Name

		if err := e.cache.Upsert(ctx, *song); err != nil {
			res.Error = fmt.Errorf("failed to cache song: %w", err)
		}
		results <- res
	}
}

func writeManifest(result *WarmResult, path string) error {
	m := manifest{
		GeneratedAt: time.Now().UTC(),
		Total:       result.Total,
		Fetched:     result.Fetched,
		Skipped:     result.Skipped,
		Failed:      result.Failed,
		Songs:       make([]manifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := manifestEntry{ID: res.ID, Name: res.Name, Status: "fetched"}
		switch {
		case res.Cached:
			entry.Status = "skipped"
		case res.Error != nil:
			entry.Status = "failed"
			entry.Error = res.Error.Error()
		}
		m.Songs = append(m.Songs, entry)
	}

	data, err := formatter.ToJSON(m)
	if err != nil {
		return err
	}
	return formatter.WriteFile(path, data)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
