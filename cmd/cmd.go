// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/desertthunder/hpx/internal/ui"
	"github.com/urfave/cli/v3"
)

// app is the root "hpx" command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "hpx",
		Usage:   "Terminal client for HouseParty listening rooms",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.configure,
		After:    func(context.Context, *cli.Command) error { return r.Close() },
		Commands: r.register(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   "text",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write output to a file instead of stdout",
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the local database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles HouseParty account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the HouseParty session",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account and start a session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("HPX_PASSWORD")},
				},
				Action: r.AuthSignup,
			},
			{
				Name:      "login",
				Usage:     "Log in with a username or email",
				ArgsUsage: "<username|email>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("HPX_PASSWORD")},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// roomsCommand handles listening room operations
func roomsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "rooms",
		Aliases: []string{"room"},
		Usage:   "Listening room operations",
		Commands: []*cli.Command{
			r.guarded(ui.RouteHome, &cli.Command{
				Name:   "list",
				Usage:  "List public rooms and your own room",
				Flags:  []cli.Flag{formatFlag(), outputFlag()},
				Action: r.RoomsList,
			}),
			r.guarded(ui.RouteCreateRoom, &cli.Command{
				Name:      "create",
				Usage:     "Create a room",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Room description"},
					&cli.BoolFlag{Name: "private", Usage: "Hide the room from the public list"},
				},
				Action: r.RoomsCreate,
			}),
			r.guarded(ui.RouteJoinRoom, &cli.Command{
				Name:      "join",
				Usage:     "Print the websocket URL for a room",
				ArgsUsage: "<id>",
				Action:    r.RoomsJoin,
			}),
			r.guarded(ui.RouteHome, &cli.Command{
				Name:      "delete",
				Usage:     "Delete a room you host",
				ArgsUsage: "<id>",
				Action:    r.RoomsDelete,
			}),
		},
	}
}

// spotifyCommand handles the Spotify connection held by the backend
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account connection",
		Commands: []*cli.Command{
			r.guarded(ui.RouteHome, &cli.Command{
				Name:  "connect",
				Usage: "Authorize Spotify through the backend consent flow",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for consent", Value: defaultConnectTimeout},
					&cli.BoolFlag{Name: "no-browser", Usage: "Print the consent URL instead of opening a browser"},
				},
				Action: r.SpotifyConnect,
			}),
			r.guarded(ui.RouteHome, &cli.Command{
				Name:   "status",
				Usage:  "Check whether the backend holds a Spotify token",
				Action: r.SpotifyStatus,
			}),
		},
	}
}

// songsCommand handles Spotify track lookups and the local song cache
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "songs",
		Aliases: []string{"song"},
		Usage:   "Spotify track lookups and the local song cache",
		Commands: []*cli.Command{
			r.guarded(ui.RouteHome, &cli.Command{
				Name:      "get",
				Usage:     "Show a track, reading the cache first",
				ArgsUsage: "<track-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh", Usage: "Bypass the cache and fetch from Spotify"},
					formatFlag(),
				},
				Action: r.SongsGet,
			}),
			r.guarded(ui.RouteHome, &cli.Command{
				Name:      "search",
				Usage:     "Search Spotify for tracks",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results", Value: 10},
					&cli.BoolFlag{Name: "cache", Usage: "Store results in the local cache"},
					formatFlag(),
					outputFlag(),
				},
				Action: r.SongsSearch,
			}),
			{
				Name:      "cached",
				Usage:     "List songs in the local cache",
				ArgsUsage: "[query]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results"},
					formatFlag(),
					outputFlag(),
				},
				Action: r.SongsCached,
			},
			r.guarded(ui.RouteHome, &cli.Command{
				Name:      "cache",
				Usage:     "Fetch many tracks into the local cache",
				ArgsUsage: "[track-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Read track IDs from a file, one per line"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers (max 10)", Value: 5},
					&cli.FloatFlag{Name: "rate", Usage: "Spotify requests per second", Value: 5},
					&cli.BoolFlag{Name: "skip-cached", Usage: "Leave already cached songs untouched"},
					&cli.StringFlag{Name: "manifest", Usage: "Write a JSON manifest of the run"},
				},
				Action: r.SongsCache,
			}),
		},
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the HouseParty backend",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET a backend path and print the response",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output compact JSON"},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "POST a JSON body to a backend path",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// routesCommand prints the route table and the current guard decision for each route.
func routesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "routes",
		Usage:  "List the application routes",
		Action: r.Routes,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}
