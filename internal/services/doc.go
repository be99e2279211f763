// Package services implements HTTP clients for the HouseParty backend and the Spotify Web API.
//
// # HouseParty API
//
// [APIService] wraps the backend's REST routes (signup, login, rooms, spotify token).
// The bearer token is read from a [TokenSource] on every request, so the session
// store can be passed directly. Requests are paced by a token bucket limiter and
// tagged with an X-Request-ID header.
//
// # Spotify
//
// [SpotifyService] talks to the Spotify Web API with an [oauth2.Client] built from
// the token the backend hands out at /get/token. Tracks are converted to
// [models.Song] with [ToSong].
//
// # Error Handling
//
// Non-2xx responses become [*APIError]. Services wrap errors from the shared package:
//   - [shared.ErrNotAuthenticated] : the backend rejected the bearer token (401)
//   - [shared.ErrAPIRequest] : transport failure or unexpected status
//   - [shared.ErrRateLimited] : the context ended while waiting on the limiter
//   - [shared.ErrSongNotFound] : Spotify returned 404 for a track
//   - [shared.ErrSpotifyNotLinked] : the backend holds no Spotify token
package services
