package main

import (
	"context"
	"strings"

	"github.com/desertthunder/hpx/internal/router"
	"github.com/urfave/cli/v3"
)

// Routes prints the route table with where each route currently leads.
func (r *Runner) Routes(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	r.writePlainHeader("Routes")
	for _, info := range r.router.Routes() {
		access := "public"
		if info.RequiresAuth {
			access = "auth"
		}

		dest := info.Path
		if !strings.Contains(info.Path, ":") {
			if loc, err := r.router.Navigate(ctx, router.Path(info.Path)); err != nil {
				dest = "error: " + err.Error()
			} else {
				dest = loc.Path
			}
		}

		r.writePlain("%-18s %-16s %-7s → %s\n", info.Path, info.Name, access, dest)
	}

	if r.store.IsAuthenticated() {
		return r.writePlainln("Session: logged in")
	}
	return r.writePlainln("Session: logged out")
}
