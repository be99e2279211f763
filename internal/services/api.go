// HouseParty backend client
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://127.0.0.1:8080"

// APIService makes requests to the HouseParty backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *log.Logger
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithTokenSource attaches a bearer token to each request.
func WithTokenSource(ts TokenSource) APIOption {
	return func(a *APIService) { a.tokens = ts }
}

// WithRateLimit paces requests to rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) APIOption {
	return func(a *APIService) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			a.limiter = nil
		}
	}
}

// WithAPILogger sets the logger used to trace requests.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *APIService) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPIService creates a new backend client. An empty baseURL uses the local default and a nil client uses [http.DefaultClient].
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		tokens:     StaticToken(""),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BaseURL returns the backend root without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login. The backend accepts either username or email.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string             `json:"message"`
	User    models.Credentials `json:"user"`
	Token   string             `json:"token"`
}

// RoomsResponse is returned by GET /rooms.
type RoomsResponse struct {
	Message     string                `json:"message"`
	PublicRooms []models.RoomResponse `json:"public_rooms"`
	UserRoom    *models.RoomResponse  `json:"user_room"`
}

// CreateRoomRequest is the body of POST /room/create.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// SpotifyTokenObject is the token record the backend stores after the Spotify consent flow.
type SpotifyTokenObject struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TimeIssued   int64  `json:"time_issued"`
}

// OAuth2 converts the record to an [oauth2.Token] with an absolute expiry.
func (t SpotifyTokenObject) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.TimeIssued > 0 && t.ExpiresIn > 0 {
		tok.Expiry = time.Unix(t.TimeIssued+int64(t.ExpiresIn), 0)
	}
	return tok
}

// Signup registers a user and returns the issued token.
func (a *APIService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", shared.ErrMissingArgument)
	}

	var resp AuthResponse
	if err := a.doJSON(ctx, http.MethodPost, "/signup", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: signup response has no token", shared.ErrAuthFailed)
	}
	return &resp, nil
}

// Login exchanges a username or email and password for a token.
func (a *APIService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if (req.Username == "" && req.Email == "") || req.Password == "" {
		return nil, fmt.Errorf("%w: username or email and password are required", shared.ErrMissingArgument)
	}

	var resp AuthResponse
	if err := a.doJSON(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, apiErr)
		}
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response has no token", shared.ErrAuthFailed)
	}
	return &resp, nil
}

// Rooms lists public rooms hosted by others and the caller's own room.
func (a *APIService) Rooms(ctx context.Context) (*RoomsResponse, error) {
	var resp RoomsResponse
	if err := a.doJSON(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRoom creates a room hosted by the caller.
func (a *APIService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: room name is required", shared.ErrMissingArgument)
	}

	var resp struct {
		Room models.Room `json:"room"`
	}
	if err := a.doJSON(ctx, http.MethodPost, "/room/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Room, nil
}

// DeleteRoom deletes a room. The backend refuses while clients are connected.
func (a *APIService) DeleteRoom(ctx context.Context, id string) (*models.RoomResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: room id", shared.ErrMissingArgument)
	}

	var resp struct {
		Room models.RoomResponse `json:"room"`
	}
	if err := a.doJSON(ctx, http.MethodDelete, "/room/delete/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Room, nil
}

// JoinURL returns the websocket URL for a room. The backend accepts the token as a query parameter on upgrade.
func (a *APIService) JoinURL(id string) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", shared.ErrInvalidConfig, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/join/room/" + url.PathEscape(id)

	if token := a.tokens.Token(); token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// SpotifyAuthURL is the backend route that redirects a browser to the Spotify consent page.
func (a *APIService) SpotifyAuthURL() string {
	return a.baseURL + "/auth/token"
}

// SpotifyToken fetches the Spotify token the backend stored after consent.
func (a *APIService) SpotifyToken(ctx context.Context) (*oauth2.Token, error) {
	var resp struct {
		Token *SpotifyTokenObject `json:"token"`
	}
	if err := a.doJSON(ctx, http.MethodGet, "/get/token", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %v", shared.ErrSpotifyNotLinked, apiErr)
		}
		return nil, err
	}
	if resp.Token == nil || resp.Token.AccessToken == "" {
		return nil, shared.ErrSpotifyNotLinked
	}
	return resp.Token.OAuth2(), nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, data)
}

func (a *APIService) raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	resp, respBody, _, err := a.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// doJSON sends in as JSON and decodes a 2xx body into out.
func (a *APIService) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, respBody, requestID, err := a.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if !isSuccess(resp.StatusCode) {
		apiErr := decodeAPIError(resp.StatusCode, respBody, requestID)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, apiErr)
		}
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, path, apiErr)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, path, err)
		}
	}
	return nil
}

// send waits on the limiter, issues the request and reads the whole body.
func (a *APIService) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, []byte, string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %v", shared.ErrRateLimited, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, requestID, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, requestID, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(start))
	return resp, respBody, requestID, nil
}
