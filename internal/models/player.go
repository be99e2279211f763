package models

import "context"

// PlayerEvent names an event emitted by the Spotify Web Playback SDK player.
type PlayerEvent string

const (
	EventInitializationError PlayerEvent = "initialization_error"
	EventAuthenticationError PlayerEvent = "authentication_error"
	EventAccountError        PlayerEvent = "account_error"
	EventPlaybackError       PlayerEvent = "playback_error"
	EventPlayerStateChanged  PlayerEvent = "player_state_changed"
	EventReady               PlayerEvent = "ready"
	EventNotReady            PlayerEvent = "not_ready"
)

// PlayerEvents lists every event a [Player] can emit.
var PlayerEvents = []PlayerEvent{
	EventInitializationError,
	EventAuthenticationError,
	EventAccountError,
	EventPlaybackError,
	EventPlayerStateChanged,
	EventReady,
	EventNotReady,
}

// Valid reports whether e is a known SDK event.
func (e PlayerEvent) Valid() bool {
	for _, known := range PlayerEvents {
		if e == known {
			return true
		}
	}
	return false
}

// Player is the playback SDK surface consumed by room views. hpx declares it; it does not implement it.
type Player interface {
	AddListener(event PlayerEvent, callback func(params any))
	Connect(ctx context.Context) (bool, error)
	Disconnect()
}

// PlayerOptions configures a new SDK player.
type PlayerOptions struct {
	Name          string
	GetOAuthToken func(cb func(token string))
	Volume        *float64
}
