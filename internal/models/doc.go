// Package models defines the records the backend persists.
//
// Sessions are never stored: tokens live in browser cookies only. The one persisted entity is:
//   - [User] : a Spotify account seen at login, with its login count and first/last login times
//
// Persisted records implement [Model], which provides identity, timestamps and validation.
package models
