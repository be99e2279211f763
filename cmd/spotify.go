package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hpx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	defaultConnectTimeout = 2 * time.Minute
	connectPollInterval   = 2 * time.Second
)

// SpotifyConnect sends the user through the backend's Spotify consent flow.
//
// The backend owns the OAuth callback, so the CLI opens the consent URL and polls
// the backend until it reports a stored token.
func (r *Runner) SpotifyConnect(ctx context.Context, cmd *cli.Command) error {
	if tok, err := r.api.SpotifyToken(ctx); err == nil {
		r.logger.Debug("spotify already linked", "expiry", tok.Expiry)
		if err := r.store.MarkExternalServiceConnected(ctx); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return r.writePlain("✓ Spotify is already connected\n")
	} else if !errors.Is(err, shared.ErrSpotifyNotLinked) {
		return fmt.Errorf("failed to check spotify token: %w", err)
	}

	authURL := r.api.SpotifyAuthURL()
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	tok, err := r.waitForSpotify(ctx, timeout, connectPollInterval)
	if err != nil {
		return err
	}
	r.logger.Info("spotify token stored by backend", "expiry", tok.Expiry)

	if err := r.store.MarkExternalServiceConnected(ctx); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	r.writePlainln("✓ Spotify connected")
	return r.writePlain("You can now use: hpx songs search \"your song\"\n")
}

// waitForSpotify polls the backend until it holds a Spotify token or timeout elapses.
func (r *Runner) waitForSpotify(ctx context.Context, timeout, interval time.Duration) (*oauth2.Token, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrSpotifyNotLinked, timeout)
		case <-ticker.C:
			tok, err := r.api.SpotifyToken(ctx)
			if err == nil {
				return tok, nil
			}
			if !errors.Is(err, shared.ErrSpotifyNotLinked) {
				return nil, fmt.Errorf("failed to check spotify token: %w", err)
			}
			r.logger.Debug("spotify not linked yet")
		}
	}
}

// SpotifyStatus asks the backend for its Spotify token and syncs the session flag.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	tok, err := r.api.SpotifyToken(ctx)
	switch {
	case errors.Is(err, shared.ErrSpotifyNotLinked):
		r.writePlain("Spotify: ✗ Not connected\n")
		return r.writePlain("Run `hpx spotify connect` to authorize.\n")
	case err != nil:
		return fmt.Errorf("failed to check spotify token: %w", err)
	}

	if creds, ok := r.store.Credentials(); ok && !creds.SpotifyConnected {
		if err := r.store.MarkExternalServiceConnected(ctx); err != nil {
			r.logger.Warn("failed to update session", "error", err)
		}
	}

	r.writePlain("Spotify: ✓ Connected\n")
	if !tok.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", tok.Expiry.Local().Format(time.RFC1123))
	}
	return nil
}
