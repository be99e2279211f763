package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrSpotifyNotLinked = fmt.Errorf("spotify account not connected")

	// Storage errors
	ErrStorage         = fmt.Errorf("storage failure")
	ErrUnknownDriver   = fmt.Errorf("unknown storage driver")
	ErrSongNotFound    = fmt.Errorf("song not found")
	ErrMalformedRecord = fmt.Errorf("malformed record")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrRateLimited        = fmt.Errorf("rate limit wait cancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
