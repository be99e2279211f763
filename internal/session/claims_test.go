package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestClaims(t *testing.T) {
	ctx := context.Background()

	t.Run("Decodes Backend Claims", func(t *testing.T) {
		exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
		token := signToken(t, jwt.MapClaims{
			"email":    "alice@example.com",
			"userId":   7,
			"username": "alice",
			"exp":      exp.Unix(),
		})

		s, _ := newStore(t, nil)
		s.SetToken(ctx, token)

		claims, err := s.Claims()
		if err != nil {
			t.Fatalf("Claims() error = %v", err)
		}
		if claims.UserID != 7 || claims.Username != "alice" || claims.Email != "alice@example.com" {
			t.Errorf("unexpected claims %+v", claims)
		}
		if !claims.ExpiresAt.Time.Equal(exp) {
			t.Errorf("expected exp %v, got %v", exp, claims.ExpiresAt.Time)
		}
		if claims.Expired(time.Now()) {
			t.Error("token should not be expired")
		}
		if !claims.Expired(exp.Add(time.Second)) {
			t.Error("token should be expired after exp")
		}
	})

	t.Run("Expired Token Still Authenticates", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"userId": 1, "exp": time.Now().Add(-time.Hour).Unix()})
		s, _ := newStore(t, map[string]string{TokenKey: token})

		claims, err := s.Claims()
		if err != nil {
			t.Fatalf("Claims() error = %v", err)
		}
		if !claims.Expired(time.Now()) {
			t.Error("expected expired claims")
		}
		if !s.IsAuthenticated() {
			t.Error("IsAuthenticated must not depend on claims")
		}
	})

	t.Run("No Token", func(t *testing.T) {
		s, _ := newStore(t, nil)
		if _, err := s.Claims(); !errors.Is(err, ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})

	t.Run("Opaque Token", func(t *testing.T) {
		if _, err := ParseClaims("abc"); err == nil {
			t.Error("expected error decoding a non-JWT token")
		}
	})

	t.Run("No Expiry", func(t *testing.T) {
		claims, err := ParseClaims(signToken(t, jwt.MapClaims{"username": "bob"}))
		if err != nil {
			t.Fatalf("ParseClaims() error = %v", err)
		}
		if claims.Expired(time.Now()) {
			t.Error("token without exp never expires")
		}
	})
}
