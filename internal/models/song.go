package models

import "strings"

// Song is a simplified Spotify track.
type Song struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	Image       Image    `json:"image"`
	DurationMS  int      `json:"duration_ms"`
	Explicit    bool     `json:"explicit"`
	ExternalURL string   `json:"external_url"`
}

// Image is album artwork.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ArtistLine joins artist names for display.
func (s Song) ArtistLine() string {
	return strings.Join(s.Artists, ", ")
}
