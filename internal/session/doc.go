// Package session reconstructs the caller's Spotify session from browser cookies.
//
// # Cookies
//
// A session is three cookies written by [CookieStore]: access_token, refresh_token and user_id.
// Nothing is kept server-side. Every cookie is HttpOnly and SameSite=Lax, and Secure when the
// service runs in production. The access token cookie lives as long as the upstream expires_in;
// the refresh token and user id use a fixed long TTL so they outlive the access token.
//
// # Validity
//
// [Policy] decides whether a [Session] counts as authenticated. It only checks presence of
// fields; token correctness is left to upstream and expiry is discovered when a proxied call fails.
//
// # Authorization State
//
// [StateIssuer] mints the OAuth2 state parameter as a short-lived HS256 token. The login handler
// also stores it in the oauth_state cookie so the callback can bind the redirect to the browser
// that started it.
package session
