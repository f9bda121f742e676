// Package server provides HTTP routing, middleware, and the handlers of the backend-for-frontend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// The [BasicRouter] implementation uses [http.ServeMux] with "METHOD /path" patterns.
// Global [Middleware] wraps the whole mux; each [Route] may add its own middleware on top.
// The first middleware added is the outermost.
//
// # Handler Interface
//
// Handlers implement [Handler] and return their [Route] list, keeping route definitions next to the code that serves them:
//   - [AuthHandler] : the OAuth2 Authorization Code flow (/auth/*)
//   - [LibraryHandler] : gated proxy calls to the Spotify Web API
//   - [HealthHandler] : GET /status
//
// # Sessions
//
// All session state lives in cookies written by the session package. [RequireSession] is the
// authorization gate: it checks cookie presence against the configured policy and never calls upstream.
// An expired access token passes the gate and surfaces as an upstream 401, which the frontend answers
// by calling POST /auth/refresh.
//
// # Errors
//
// Every failure is a JSON [ErrorResponse]. Upstream status codes pass through with Spotify's reason
// phrase; malformed upstream bodies become 502 and transport failures 500.
//
// [NewRouter] wires all of the above from configuration.
package server
