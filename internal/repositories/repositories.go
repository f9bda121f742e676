// package repositories provides SQLite persistence for the models package.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spotify-bff/internal/shared"
)

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// notFound maps [sql.ErrNoRows] to err, wrapping everything else as a query failure.
func notFound(scanErr error, err error, id string) error {
	if errors.Is(scanErr, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", err, id)
	}
	return fmt.Errorf("failed to query: %w", scanErr)
}

// userNotFound is [notFound] for the users table.
func userNotFound(scanErr error, id string) error {
	return notFound(scanErr, shared.ErrUserNotFound, id)
}
