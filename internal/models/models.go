// package models defines the records the backend keeps about Spotify accounts
package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotify-bff/internal/shared"
)

// Model is the base interface for persisted records.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was first stored
	UpdatedAt() time.Time // UpdatedAt returns when this model was last written
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// User is a Spotify account that has completed the login flow at least once.
//
// The ID is the Spotify user id, so repeat logins update the same row.
type User struct {
	id           string
	displayName  string
	email        string
	country      string
	product      string
	loginCount   int
	firstLoginAt time.Time
	lastLoginAt  time.Time
}

// NewUser creates a user record for a login that happened at seenAt.
func NewUser(id, displayName, email string, seenAt time.Time) *User {
	return &User{
		id:           id,
		displayName:  displayName,
		email:        email,
		loginCount:   1,
		firstLoginAt: seenAt,
		lastLoginAt:  seenAt,
	}
}

func (u *User) ID() string { return u.id }
func (u *User) DisplayName() string { return u.displayName }
func (u *User) Email() string { return u.email }
func (u *User) Country() string { return u.country }
func (u *User) Product() string { return u.product }
func (u *User) LoginCount() int { return u.loginCount }
func (u *User) FirstLoginAt() time.Time { return u.firstLoginAt }
func (u *User) LastLoginAt() time.Time { return u.lastLoginAt }

// CreatedAt is the first login.
func (u *User) CreatedAt() time.Time { return u.firstLoginAt }

// UpdatedAt is the most recent login.
func (u *User) UpdatedAt() time.Time { return u.lastLoginAt }

// SetMarket records the account's country and subscription level.
func (u *User) SetMarket(country, product string) {
	u.country = country
	u.product = product
}

// SetLogins overwrites the login bookkeeping, used when loading a stored row.
func (u *User) SetLogins(count int, first, last time.Time) {
	u.loginCount = count
	u.firstLoginAt = first
	u.lastLoginAt = last
}

// Name returns the display name, falling back to the id for accounts without one.
func (u *User) Name() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.id
}

// Validate checks that the user can be stored.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if u.lastLoginAt.IsZero() {
		return fmt.Errorf("%w: last login time is required", shared.ErrInvalidInput)
	}
	if u.lastLoginAt.Before(u.firstLoginAt) {
		return fmt.Errorf("%w: last login precedes first login", shared.ErrInvalidInput)
	}
	return nil
}
