// Package services implements the upstream clients used by the backend-for-frontend.
//
// # Spotify Client
//
// [SpotifyClient] covers two Spotify hosts:
//   - the accounts service: [SpotifyClient.AuthCodeURL], [SpotifyClient.ExchangeCode] and [SpotifyClient.Refresh]
//   - the Web API: [SpotifyClient.Profile] and the library calls used by the proxy routes
//
// The client holds no per-user state. Every call takes the token it needs, which lets one
// client serve every browser session concurrently.
//
// Token endpoint calls go through [oauth2.Config.Exchange] and [oauth2.Config.TokenSource] with
// HTTP Basic client authentication, and come back as a [TokenResult]. A refresh response that
// omits refresh_token, or repeats the one sent, leaves [TokenResult.RefreshToken] empty so the
// caller keeps the token it already has.
//
// Web API calls go through an [oauth2.StaticTokenSource] client, which sets the Bearer header.
//
// # Error Handling
//
// Failures come back in three shapes:
//   - [*UpstreamError] : upstream answered non-2xx; carries the status code and reason phrase
//   - [*SchemaError] : upstream answered 2xx without a field the caller needs
//   - [shared.ErrAPIRequest] : the request never got a response
//
// [UpstreamError] matches [shared.ErrUpstreamStatus] and [SchemaError] matches [shared.ErrUpstreamSchema]
// with [errors.Is]. No call is retried.
//
// # Rate Limiting
//
// [WithRateLimit] installs a token bucket shared by all calls. Waiting honors the request context.
package services
