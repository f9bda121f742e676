// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the backend-for-frontend HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Do not record logins even when database.path is set",
			},
		},
		Action: r.Serve,
	}
}

// configCommand handles the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the example configuration to --config",
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets masked",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the login ledger and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// usersCommand reads the login ledger
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Inspect Spotify accounts that have logged in",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users by most recent login",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of users to return (0 for all)",
						Value: 50,
					},
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Only users seen within this window, e.g. 24h",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.UsersList,
			},
			{
				Name:  "export",
				Usage: "Export the ledger as CSV, Markdown or text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
				},
				Action: r.UsersExport,
			},
			{
				Name:  "forget",
				Usage: "Delete a user's login history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.UsersForget,
			},
		},
	}
}

// authCommand helps exercise the login flow from a terminal
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Login flow helpers",
		Commands: []*cli.Command{
			{
				Name:  "url",
				Usage: "Print the login URL of the running server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the URL in the default browser",
					},
					&cli.BoolFlag{
						Name:  "upstream",
						Usage: "Print the Spotify authorize URL instead, to inspect client id, scopes and redirect",
					},
				},
				Action: r.AuthURL,
			},
		},
	}
}
