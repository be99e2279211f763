package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/hpx/internal/formatter"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/desertthunder/hpx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SongsGet shows one track, served from the cache unless --refresh is set.
func (r *Runner) SongsGet(ctx context.Context, cmd *cli.Command) error {
	id := trackID(strings.TrimSpace(cmd.Args().First()))
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	song, cached, err := r.engine.Lookup(ctx, id, cmd.Bool("refresh"))
	if err != nil {
		return err
	}
	r.logger.Debug("song resolved", "id", id, "cached", cached)

	if f != formatter.FormatText {
		data, err := formatter.Songs([]models.Song{*song}, f, song.Name)
		if err != nil {
			return err
		}
		return formatter.Write(r.output, data)
	}

	r.writePlain("%s\n", song.Name)
	r.writePlain("Artists: %s\n", song.ArtistLine())
	if song.Album != "" {
		r.writePlain("Album: %s\n", song.Album)
	}
	r.writePlain("Duration: %s\n", shared.FormatDuration(song.DurationMS))
	if song.Explicit {
		r.writePlain("Explicit: yes\n")
	}
	if song.ExternalURL != "" {
		r.writePlain("URL: %s\n", song.ExternalURL)
	}
	if cached {
		r.writePlain("(from cache)\n")
	}
	return nil
}

// SongsSearch searches Spotify, optionally caching the results.
func (r *Runner) SongsSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	songs, err := r.engine.Search(ctx, query, int(cmd.Int("limit")), cmd.Bool("cache"))
	if err != nil {
		return err
	}

	data, err := formatter.Songs(songs, f, fmt.Sprintf("Results for %q", query))
	if err != nil {
		return err
	}
	return r.emit(cmd.String("output"), data)
}

// SongsCached lists the local song cache. It needs no session.
func (r *Runner) SongsCached(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	songs, err := r.songs.List(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	data, err := formatter.Songs(songs, f, "Cached songs")
	if err != nil {
		return err
	}
	return r.emit(cmd.String("output"), data)
}

// SongsCache fetches every track ID from the arguments and --file into the cache.
func (r *Runner) SongsCache(ctx context.Context, cmd *cli.Command) error {
	var ids []string
	for _, arg := range cmd.Args().Slice() {
		ids = append(ids, trackID(arg))
	}
	if path := cmd.String("file"); path != "" {
		fromFile, err := readIDs(path)
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: track ids or --file", shared.ErrMissingArgument)
	}

	opts := tasks.WarmOpts{
		NumWorkers:   int(cmd.Int("workers")),
		RateLimit:    cmd.Float("rate"),
		SkipCached:   cmd.Bool("skip-cached"),
		ManifestPath: cmd.String("manifest"),
	}

	r.writePlainHeader("Caching songs")

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.printProgress(update)
		}
	}()

	result, err := r.engine.Warm(ctx, progress, ids, opts)
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("Fetched: %d  Skipped: %d  Failed: %d  (%s)",
			result.Fetched, result.Skipped, result.Failed, result.Duration.Round(time.Millisecond))
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  ✗ %s: %v\n", res.ID, res.Error)
			}
		}
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
	}
	return err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	if update.Phase == tasks.WriteManifest {
		r.writePlain("→ %s\n", update.Message)
		return
	}
	r.writePlain("%s\n", update.Message)
}

// readIDs reads one track ID per line, ignoring blanks and "#" comments.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, trackID(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}
	return ids, nil
}

// trackID accepts a bare ID, a spotify:track: URI or an open.spotify.com track URL.
func trackID(s string) string {
	if id, ok := strings.CutPrefix(s, "spotify:track:"); ok {
		return id
	}
	if _, rest, ok := strings.Cut(s, "/track/"); ok {
		id, _, _ := strings.Cut(rest, "?")
		return id
	}
	return s
}
