package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TokenSource supplies the bearer token attached to backend requests. An empty token sends no Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed [TokenSource].
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// APIError is a non-2xx response from the HouseParty backend.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
	RequestID  string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Detail != "" {
		b.WriteString(" (" + e.Detail + ")")
	}
	return b.String()
}

// errorBody is the backend's error envelope. "error" is usually a string but
// the auth middleware sometimes serializes a Go error value as an object.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// decodeAPIError builds an [APIError] from a response body, falling back to the raw text.
func decodeAPIError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Message = eb.Message
		var detail string
		if json.Unmarshal(eb.Error, &detail) == nil {
			apiErr.Detail = detail
		}
	}

	if apiErr.Message == "" && apiErr.Detail == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
