// Package models defines the data shapes shared by the hpx client.
//
// The package contains three groups of types:
//
// 1. Session records
//   - [Credentials] : the authenticated user's profile snapshot held by the session store
//
// 2. Backend DTOs mirroring the HouseParty API
//   - [Room] and [RoomResponse] : listening rooms and their host
//   - [Song] and [Image] : simplified Spotify tracks with album art
//
// 3. The Spotify Web Playback SDK surface
//   - [Player], [PlayerEvent] and [PlayerOptions] : declared for collaborators; hpx does not implement playback
package models
