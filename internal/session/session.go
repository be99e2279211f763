package session

import (
	"errors"

	"github.com/desertthunder/hpx/internal/models"
)

// Persistent substrate keys.
const (
	TokenKey       = "jwt"
	CredentialsKey = "credentials"
)

var (
	ErrNoToken       = errors.New("session has no token")
	ErrNoCredentials = errors.New("session has no credentials")
	ErrInvalidToken  = errors.New("token must not be empty")
)

// Session is a point-in-time copy of the store's state.
type Session struct {
	Token       string
	Credentials *models.Credentials
}

// Authenticated reports whether the session carries a non-empty token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// clone returns a copy that shares no memory with s.
func (s Session) clone() Session {
	if s.Credentials == nil {
		return s
	}
	c := *s.Credentials
	return Session{Token: s.Token, Credentials: &c}
}

// change is a pending write of value under key.
type change struct {
	key   string
	value string
}
