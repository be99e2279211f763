package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/repositories"
	"github.com/desertthunder/hpx/internal/router"
	"github.com/desertthunder/hpx/internal/services"
	"github.com/desertthunder/hpx/internal/session"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/desertthunder/hpx/internal/storage"
	"github.com/desertthunder/hpx/internal/tasks"
	"github.com/desertthunder/hpx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, the session store and the API clients are opened lazily by [Runner.open] so that
// commands such as "setup config" never touch the database.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client

	handle  *storage.Handle
	store   *session.Store
	router  *router.Router
	api     *services.APIService
	spotify *services.SpotifyService
	songs   *repositories.SongRepository
	engine  *tasks.SongEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is loaded from ConfigPath by the root command's Before hook.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger. Must be called before [Runner.open].
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// configure loads the config file named by --config when no config was injected and applies the log level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		}
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}
	return ctx, nil
}

// open connects storage, restores the session and builds the API clients. Repeated calls are no-ops.
func (r *Runner) open(ctx context.Context) error {
	if r.handle != nil {
		return nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	handle, err := storage.Open(ctx, r.config, r.logger)
	if err != nil {
		return err
	}

	store := session.New(handle.Storage, session.WithLogger(r.logger))
	if err := store.Initialize(ctx); err != nil {
		handle.Close()
		return fmt.Errorf("failed to restore session: %w", err)
	}

	rt, err := ui.NewRouter(store, r.logger)
	if err != nil {
		handle.Close()
		return fmt.Errorf("failed to build router: %w", err)
	}

	client := r.httpClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(r.config.API.Timeout) * time.Second}
	}

	api := services.NewAPIService(r.config.API.BaseURL, client,
		services.WithTokenSource(store),
		services.WithRateLimit(r.config.API.RateLimit),
		services.WithAPILogger(shared.WithLogger(r.logger, "service", "api")),
	)

	spotify := services.NewSpotifyService(ctx, r.config.Spotify.APIURL,
		services.NewBackendTokenSource(ctx, api),
		shared.WithLogger(r.logger, "service", "spotify"),
	)

	songs := repositories.NewSongRepository(handle.DB)

	r.handle = handle
	r.store = store
	r.router = rt
	r.api = api
	r.spotify = spotify
	r.songs = songs
	r.engine = tasks.NewSongEngine(spotify, songs, r.logger)
	return nil
}

// Close releases storage opened by [Runner.open].
func (r *Runner) Close() error {
	if r.handle == nil {
		return nil
	}
	err := r.handle.Close()
	r.handle = nil
	return err
}

// requireRoute is the Before hook of commands that set Metadata["route"].
//
// It navigates to the named route, filling ":id" from the first argument,
// and reports a redirect to the login route as [shared.ErrNotAuthenticated].
func (r *Runner) requireRoute(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	name, _ := cmd.Metadata["route"].(string)
	if name == "" {
		return ctx, nil
	}

	if err := r.open(ctx); err != nil {
		return ctx, err
	}

	var params map[string]string
	if id := cmd.Args().First(); id != "" {
		params = map[string]string{"id": id}
	}

	loc, err := r.router.Navigate(ctx, router.Named(name, params))
	if err != nil {
		if errors.Is(err, router.ErrMissingParam) {
			return ctx, fmt.Errorf("%w: %v", shared.ErrMissingArgument, err)
		}
		return ctx, fmt.Errorf("failed to navigate to %s: %w", name, err)
	}

	if loc.Redirected() && loc.Name == ui.RouteLogin {
		return ctx, fmt.Errorf("%w: run `hpx auth login` first", shared.ErrNotAuthenticated)
	}

	r.logger.Debug("route allowed", "route", loc.Name, "path", loc.Path)
	return ctx, nil
}

// guarded marks cmd as bound to route.
func (r *Runner) guarded(route string, cmd *cli.Command) *cli.Command {
	if cmd.Metadata == nil {
		cmd.Metadata = map[string]any{}
	}
	cmd.Metadata["route"] = route
	cmd.Before = r.requireRoute
	return cmd
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, roomsCommand, spotifyCommand, songsCommand, apiCommand, routesCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
