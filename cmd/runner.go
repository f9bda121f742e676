package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-bff/internal/services"
	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config, the Spotify client and the database are resolved lazily so commands that do not
// need credentials (config init, setup database) work before the app is configured.
type Runner struct {
	config      *shared.Config
	spotify     *services.SpotifyClient
	db          *sql.DB
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Spotify     *services.SpotifyClient
	DB          *sql.DB
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		spotify:     opts.Spotify,
		db:          opts.DB,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, configCommand, setupCommand, usersCommand, authCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration once per process from the --config and --env-file flags.
//
// validate is false for commands that only touch local files.
func (r *Runner) loadConfig(cmd *cli.Command, validate bool) (*shared.Config, error) {
	if r.config == nil {
		config, err := shared.Read(cmd.String("config"), cmd.StringSlice("env-file")...)
		if err != nil {
			return nil, err
		}
		r.config = config

		if err := shared.ApplyLogConfig(r.logger, config.Log); err != nil {
			return nil, err
		}
	}

	if validate {
		if err := r.config.Validate(); err != nil {
			return nil, err
		}
	}
	return r.config, nil
}

// spotifyClient builds the Spotify client from validated configuration.
func (r *Runner) spotifyClient(cmd *cli.Command) (*services.SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	config, err := r.loadConfig(cmd, true)
	if err != nil {
		return nil, err
	}

	client, err := services.NewSpotifyClient(
		config.Credentials.Spotify,
		services.WithRateLimit(config.Upstream.RequestsPerSecond, config.Upstream.Burst),
	)
	if err != nil {
		return nil, err
	}
	r.spotify = client
	return client, nil
}

// database opens the configured database and applies pending migrations.
func (r *Runner) database(cmd *cli.Command) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	config, err := r.loadConfig(cmd, false)
	if err != nil {
		return nil, err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
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

// writeLine writes s verbatim followed by a newline.
func (r *Runner) writeLine(s string) error {
	return r.writePlain("%s\n", s)
}
