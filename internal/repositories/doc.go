// Package repositories implements SQLite persistence for the login ledger.
//
// Key Implementations:
//   - [UserRepository] : upserts a row per Spotify account on every successful login
//
// The ledger is write-mostly: the callback handler records logins best-effort and the CLI reads them back.
// Tables are created by the embedded migrations in the shared package.
package repositories
