package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Credentials is the authenticated user's profile as returned by the backend on signup or login.
type Credentials struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	SpotifyConnected bool   `json:"spotify_connected"`
}

// Validate reports whether the record identifies a user.
func (c Credentials) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("credentials: id must be positive, got %d", c.ID)
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("credentials: username is required")
	}
	return nil
}

// MarshalCredentials serializes c for the persistent substrate.
func MarshalCredentials(c Credentials) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	return string(data), nil
}

// UnmarshalCredentials parses a persisted record. The literal "null" and
// records that fail [Credentials.Validate] are reported as errors.
func UnmarshalCredentials(raw string) (Credentials, error) {
	var c *Credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if c == nil {
		return Credentials{}, fmt.Errorf("credentials record is null")
	}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return *c, nil
}
