package main

import (
	"context"

	"github.com/desertthunder/spotify-bff/internal/repositories"
	"github.com/desertthunder/spotify-bff/internal/server"
	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/desertthunder/spotify-bff/internal/ui"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server until the process is interrupted.
//
// Logins are recorded when database.path is set, unless --no-db is given.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, true)
	if err != nil {
		return err
	}

	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	client, err := r.spotifyClient(cmd)
	if err != nil {
		return err
	}

	var users server.LoginRecorder
	if config.Database.Path != "" && !cmd.Bool("no-db") {
		db, err := r.database(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		users = repositories.NewUserRepository(db)
	}

	router, err := server.NewRouter(config, client, users, r.logger)
	if err != nil {
		return err
	}

	r.printBanner(config, users != nil)

	return server.NewServer(config.Addr(), router, shared.WithLogger(r.logger, "component", "http")).ListenAndServe(ctx)
}

func (r *Runner) printBanner(config *shared.Config, ledger bool) {
	s := ui.Styles

	env := config.Server.Environment
	if config.IsProduction() {
		env = s.As(env+" (secure cookies)", ui.Amber)
	}

	ledgerStatus := s.Help("off")
	if ledger {
		ledgerStatus = config.Database.Path
	}

	r.writeLine(s.On(" Spotify BFF ", ui.Green))
	r.writeLine(s.Field("listening", "http://"+config.Addr()))
	r.writeLine(s.Field("frontend", config.Server.FrontendURL))
	r.writeLine(s.Field("callback", config.Credentials.Spotify.RedirectURI))
	r.writeLine(s.Field("environment", env))
	r.writeLine(s.Field("login ledger", ledgerStatus))
	if !config.Session.VerifyState {
		r.writeLine(s.Warn("state verification is disabled"))
	}
}
