package main

import (
	"context"
	"net"
	"strconv"

	"github.com/desertthunder/spotify-bff/internal/session"
	"github.com/desertthunder/spotify-bff/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the login entry point of the configured server.
//
// With --upstream it prints the provider authorize URL built from the same
// credentials and state signing the server uses.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, cmd.Bool("upstream"))
	if err != nil {
		return err
	}

	target := "http://" + loginHost(config.Server.Host, config.Server.Port) + "/auth/login"

	if cmd.Bool("upstream") {
		client, err := r.spotifyClient(cmd)
		if err != nil {
			return err
		}

		states, err := session.NewStateIssuer(config.Session.StateSecret, config.Session.StateTTL)
		if err != nil {
			return err
		}

		state, err := states.Issue()
		if err != nil {
			return err
		}
		target = client.AuthCodeURL(state)
	}

	if err := r.writeLine(target); err != nil {
		return err
	}

	if cmd.Bool("open") {
		if err := r.openBrowser(target); err != nil {
			r.logger.Warn("could not open browser", "error", err)
			return r.writeLine(ui.Styles.Warn("Open the URL above manually"))
		}
	}
	return nil
}

// loginHost maps wildcard listen addresses to localhost.
func loginHost(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

