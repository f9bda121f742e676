package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/desertthunder/spotify-bff/internal/ui"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the embedded example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)

	s := ui.Styles
	r.writeLine(s.OK("Configuration written to " + path))
	r.writeLine(s.Help("Set credentials.spotify.client_id and client_secret, or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in .env"))
	return nil
}

// ConfigShow prints the effective configuration after files and environment are applied.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, false)
	if err != nil {
		return err
	}

	masked := *config
	masked.Credentials.Spotify.ClientSecret = mask(config.Credentials.Spotify.ClientSecret)
	masked.Session.StateSecret = mask(config.Session.StateSecret)

	if cmd.Bool("json") {
		return r.writeJSON(masked, true)
	}

	s := ui.Styles
	sp := masked.Credentials.Spotify

	r.writeLine(s.Title("Configuration"))
	r.writeLine(s.Field("listen", masked.Addr()))
	r.writeLine(s.Field("environment", masked.Server.Environment))
	r.writeLine(s.Field("frontend", masked.Server.FrontendURL))
	r.writeLine(s.Field("post login", masked.FrontendPath(masked.Server.PostLoginPath)))
	r.writeLine(s.Field("client id", sp.ClientID))
	r.writeLine(s.Field("client secret", sp.ClientSecret))
	r.writeLine(s.Field("redirect uri", sp.RedirectURI))
	r.writeLine(s.Field("scopes", strings.Join(sp.Scopes, " ")))
	r.writeLine(s.Field("required", strings.Join(masked.Session.Required, ",")))
	r.writeLine(s.Field("verify state", fmt.Sprint(masked.Session.VerifyState)))
	r.writeLine(s.Field("database", orNone(masked.Database.Path)))

	if err := config.Validate(); err != nil {
		r.writeLine(s.Err(err.Error()))
	}
	return nil
}

// SetupDatabase creates the login ledger and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, false)
	if err != nil {
		return err
	}

	if config.Database.Path == "" {
		return fmt.Errorf("%w: set database.path or DATABASE_PATH", shared.ErrMissingConfig)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	if _, err := r.database(cmd); err != nil {
		return err
	}
	defer r.close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writeLine(ui.Styles.OK("Database ready at " + config.Database.Path))
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, false)
	if err != nil {
		return err
	}

	if config.Database.Path == "" {
		return fmt.Errorf("%w: set database.path or DATABASE_PATH", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	return r.writeLine(ui.Styles.OK("Rolled back the latest migration"))
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
