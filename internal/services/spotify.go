// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// thumbnailMin is the smallest album image edge worth showing.
	thumbnailMin = 64

	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

type trackPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

// BackendTokenSource fetches the Spotify token from the HouseParty backend.
//
// Wrap it with [oauth2.ReuseTokenSource] so the backend is only asked again once the token expires.
type BackendTokenSource struct {
	ctx context.Context
	api *APIService
}

// NewBackendTokenSource returns a caching [oauth2.TokenSource] backed by api.
func NewBackendTokenSource(ctx context.Context, api *APIService) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &BackendTokenSource{ctx: ctx, api: api})
}

func (b *BackendTokenSource) Token() (*oauth2.Token, error) {
	return b.api.SpotifyToken(b.ctx)
}

// SpotifyService reads tracks from the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyService creates a client whose requests are authorized by ts.
// An empty baseURL uses the public API.
func NewSpotifyService(ctx context.Context, baseURL string, ts oauth2.TokenSource, logger *log.Logger) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: oauth2.NewClient(ctx, ts),
		logger:     logger,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET and decodes the body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: spotify request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("spotify request", "endpoint", endpoint, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrSongNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify rejected the access token", shared.ErrTokenExpired)
	case !isSuccess(resp.StatusCode):
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// SearchTracks searches the catalogue. limit defaults to 5 and is capped at 50.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var response struct {
		Tracks trackPage `json:"tracks"`
	}
	if err := s.doRequest(ctx, "/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return response.Tracks.Items, nil
}

// Song fetches a track and converts it with [ToSong].
func (s *SpotifyService) Song(ctx context.Context, trackID string) (*models.Song, error) {
	track, err := s.Track(ctx, trackID)
	if err != nil {
		return nil, err
	}
	song := ToSong(*track)
	return &song, nil
}

// SearchSongs searches the catalogue and converts each hit with [ToSong].
func (s *SpotifyService) SearchSongs(ctx context.Context, query string, limit int) ([]models.Song, error) {
	tracks, err := s.SearchTracks(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(tracks))
	for _, t := range tracks {
		songs = append(songs, ToSong(t))
	}
	return songs, nil
}

// ToSong flattens a Spotify track into a [models.Song].
func ToSong(t SpotifyTrack) models.Song {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return models.Song{
		ID:          t.ID,
		URI:         t.URI,
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		Image:       pickImage(t.Album.Images),
		DurationMS:  t.DurationMS,
		Explicit:    t.Explicit,
		ExternalURL: t.ExternalURLs.Spotify,
	}
}

// pickImage returns the smallest image at least [thumbnailMin] tall, else the last one.
func pickImage(images []SpotifyImage) models.Image {
	if len(images) == 0 {
		return models.Image{}
	}

	best := -1
	for i, img := range images {
		if img.Height < thumbnailMin {
			continue
		}
		if best < 0 || img.Height < images[best].Height {
			best = i
		}
	}
	if best < 0 {
		best = len(images) - 1
	}

	img := images[best]
	return models.Image{URL: img.URL, Height: img.Height, Width: img.Width}
}
