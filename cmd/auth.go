package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/hpx/internal/services"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthSignup registers an account with the backend and stores the returned session.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or HPX_PASSWORD is required", shared.ErrMissingArgument)
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	req := services.SignupRequest{
		Username: strings.TrimSpace(cmd.String("username")),
		Email:    strings.TrimSpace(cmd.String("email")),
		Password: password,
	}

	r.logger.Info("signing up", "username", req.Username)

	resp, err := r.api.Signup(ctx, req)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	if err := r.saveSession(ctx, resp); err != nil {
		return err
	}
	return r.writePlain("✓ Account created, logged in as %s\n", resp.User.Username)
}

// AuthLogin logs in with a username or email. An identifier containing "@" is sent as the email.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: username or email", shared.ErrMissingArgument)
	}

	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or HPX_PASSWORD is required", shared.ErrMissingArgument)
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	req := services.LoginRequest{Password: password}
	if strings.Contains(id, "@") {
		req.Email = id
	} else {
		req.Username = id
	}

	r.logger.Info("logging in", "user", id)

	resp, err := r.api.Login(ctx, req)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := r.saveSession(ctx, resp); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", resp.User.Username)
}

// saveSession stores the token before the credentials, which require one.
func (r *Runner) saveSession(ctx context.Context, resp *services.AuthResponse) error {
	if err := r.store.SetToken(ctx, resp.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := r.store.SetCredentials(ctx, resp.User); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	r.logger.Info("session saved", "user", resp.User.Username, "driver", r.handle.Driver)
	return nil
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	if !r.store.IsAuthenticated() {
		return r.writePlain("Not logged in\n")
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated    bool       `json:"authenticated"`
	Username         string     `json:"username,omitempty"`
	Email            string     `json:"email,omitempty"`
	UserID           int64      `json:"user_id,omitempty"`
	SpotifyConnected bool       `json:"spotify_connected"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Expired          bool       `json:"expired"`
}

// AuthStatus reports the stored session. Token claims are decoded for display only.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	snap := r.store.Snapshot()
	status := authStatus{Authenticated: snap.Authenticated()}

	if snap.Credentials != nil {
		status.Username = snap.Credentials.Username
		status.Email = snap.Credentials.Email
		status.UserID = snap.Credentials.ID
		status.SpotifyConnected = snap.Credentials.SpotifyConnected
	}

	if status.Authenticated {
		if claims, err := r.store.Claims(); err != nil {
			r.logger.Warn("could not decode token", "error", err)
		} else {
			if status.Username == "" {
				status.Username = claims.Username
			}
			if claims.ExpiresAt != nil {
				exp := claims.ExpiresAt.Time
				status.ExpiresAt = &exp
			}
			status.Expired = claims.Expired(time.Now())
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		r.writePlain("✗ Not logged in\n")
		return r.writePlain("Run `hpx auth login` to start a session.\n")
	}

	r.writePlain("✓ Logged in\n")
	if status.Username != "" {
		r.writePlain("User: %s\n", status.Username)
	}
	if status.Email != "" {
		r.writePlain("Email: %s\n", status.Email)
	}
	if status.SpotifyConnected {
		r.writePlain("Spotify: ✓ Connected\n")
	} else {
		r.writePlain("Spotify: ✗ Not connected\n")
	}
	if status.ExpiresAt != nil {
		r.writePlain("Token expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	if status.Expired {
		r.writePlain("⚠ Token has expired, log in again\n")
	}
	return nil
}
