// Package tasks keeps the local song cache in step with Spotify, reporting progress as it goes.
//
// # Core Operations
//
// [SongEngine] exposes three operations:
//
//  1. [SongEngine.Lookup] : cache-first single track lookup
//     - Returns the cached [models.Song] when present
//     - Fetches from Spotify on a miss (or when refreshing) and caches the result
//
//  2. [SongEngine.Search] : catalogue search
//     - Optionally caches every hit
//
//  3. [SongEngine.Warm] : bulk cache fill
//     - Worker pool fetching track IDs concurrently
//     - Paced by a shared [rate.Limiter]
//     - Optionally writes a JSON manifest of the run
//
// # Progress Reporting
//
// Long-running operations accept a send-only [ProgressUpdate] channel.
// Updates use select with default, so a slow or absent reader never blocks the work.
//
// # Caching
//
// Cache write failures during Lookup and Search are logged and swallowed; the caller still gets the song.
package tasks
