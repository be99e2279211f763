package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CheckCache Phase = iota
	FetchSongs
	CacheSongs
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case CheckCache:
		return "check_cache"
	case FetchSongs:
		return "fetch_songs"
	case CacheSongs:
		return "cache_songs"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func cachedSongUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckCache,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] already cached: %s", step, total, id),
	}
}

func fetchingSongUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, id),
	}
}

func songCachedUpdate(step, total int, res SongResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Name),
		Data:    res,
	}
}

func songFailedUpdate(step, total int, res SongResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.ID, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest to %s", path),
	}
}
