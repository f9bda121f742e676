package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotify-bff/internal/formatter"
	"github.com/desertthunder/spotify-bff/internal/models"
	"github.com/desertthunder/spotify-bff/internal/repositories"
	"github.com/desertthunder/spotify-bff/internal/shared"
	"github.com/desertthunder/spotify-bff/internal/ui"
	"github.com/urfave/cli/v3"
)

type userRow struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Country     string    `json:"country,omitempty"`
	Product     string    `json:"product,omitempty"`
	Logins      int       `json:"login_count"`
	FirstLogin  time.Time `json:"first_login_at"`
	LastLogin   time.Time `json:"last_login_at"`
}

func toRows(users []*models.User) []userRow {
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:          u.ID(),
			DisplayName: u.DisplayName(),
			Email:       u.Email(),
			Country:     u.Country(),
			Product:     u.Product(),
			Logins:      u.LoginCount(),
			FirstLogin:  u.FirstLoginAt(),
			LastLogin:   u.LastLoginAt(),
		})
	}
	return rows
}

func (r *Runner) users(cmd *cli.Command) (*repositories.UserRepository, error) {
	db, err := r.database(cmd)
	if err != nil {
		return nil, err
	}
	return repositories.NewUserRepository(db), nil
}

// UsersList prints users by most recent login.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.users(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	var since time.Time
	if window := cmd.Duration("since"); window > 0 {
		since = time.Now().Add(-window)
	}

	users, err := repo.List(ctx, since, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toRows(users), cmd.Bool("pretty"))
	}

	s := ui.Styles
	if len(users) == 0 {
		return r.writeLine(s.Warn("No logins recorded"))
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	r.writeLine(s.Title(fmt.Sprintf("Users (%d of %d)", len(users), total)))
	for _, u := range users {
		r.writeLine(fmt.Sprintf("%s  %s  %s  %d logins",
			s.Help(u.ID()), u.Name(), u.LastLoginAt().Local().Format(time.DateTime), u.LoginCount()))
	}
	return nil
}

// UsersExport writes the ledger in the requested format to stdout or --output.
func (r *Runner) UsersExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.users(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	users, err := repo.List(ctx, time.Time{}, 0)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteUsersExport(users, format, path); err != nil {
			return err
		}
		r.logger.Info("exported users", "count", len(users), "path", path)
		return r.writeLine(ui.Styles.OK(fmt.Sprintf("Exported %d users to %s", len(users), path)))
	}

	data, err := formatter.ExportUsers(users, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// UsersForget deletes the login history for a single user.
func (r *Runner) UsersForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	repo, err := r.users(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	r.logger.Info("forgot user", "id", id)
	return r.writeLine(ui.Styles.OK("Removed " + id))
}
