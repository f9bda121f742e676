package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command with the global flags every subcommand reads.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "bff",
		Usage:   "Spotify backend-for-frontend: OAuth login, cookie sessions and library proxy",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Dotenv files loaded before the environment is read",
				Value: []string{".env"},
			},
		},
		Commands: r.register(),
	}
}
