package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotify-bff/internal/models"
)

const userColumns = `id, display_name, email, country, product, login_count, first_login_at, last_login_at`

// UserRepository persists [models.User] records.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// RecordLogin stores a login for user.
//
// The first login inserts the row. Later logins refresh the profile fields, bump login_count
// and move last_login_at, leaving first_login_at untouched.
func (r *UserRepository) RecordLogin(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			country = excluded.country,
			product = excluded.product,
			login_count = users.login_count + 1,
			last_login_at = excluded.last_login_at
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID(), user.DisplayName(), user.Email(), user.Country(), user.Product(),
		user.FirstLoginAt().UTC(), user.LastLoginAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}

	return nil
}

// Get retrieves a user by Spotify id.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, userNotFound(err, id)
	}
	return user, nil
}

// List returns users ordered by most recent login.
//
// since filters to users seen at or after that time; the zero value returns everyone.
// limit <= 0 means no limit.
func (r *UserRepository) List(ctx context.Context, since time.Time, limit int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}

	if !since.IsZero() {
		query += " WHERE last_login_at >= ?"
		args = append(args, since.UTC())
	}

	query += " ORDER BY last_login_at DESC, id ASC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// Count returns the number of distinct users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Delete removes a user's login history.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return userNotFound(sql.ErrNoRows, id)
	}

	return nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id, displayName, email string
		country, product       string
		loginCount             int
		firstLoginAt           time.Time
		lastLoginAt            time.Time
	)

	if err := s.Scan(&id, &displayName, &email, &country, &product, &loginCount, &firstLoginAt, &lastLoginAt); err != nil {
		return nil, err
	}

	user := models.NewUser(id, displayName, email, lastLoginAt)
	user.SetMarket(country, product)
	user.SetLogins(loginCount, firstLoginAt, lastLoginAt)
	return user, nil
}
