package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-bff/internal/models"
	"github.com/desertthunder/spotify-bff/internal/services"
	"github.com/desertthunder/spotify-bff/internal/session"
)

// AuthClient is the slice of the Spotify client the OAuth flow needs.
type AuthClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*services.TokenResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenResult, error)
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// LoginRecorder stores a login for bookkeeping. Implemented by repositories.UserRepository.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, user *models.User) error
}

// AuthOptions configures an [AuthHandler].
type AuthOptions struct {
	Store        *session.CookieStore
	Policy       session.Policy
	States       *session.StateIssuer
	VerifyState  bool   // compare the callback state against the browser-bound cookie
	RedirectURI  string // sent with the code exchange; empty uses the client's configured URI
	PostLoginURL string // where a successful callback lands
	LogoutURL    string // where logout lands
	Users        LoginRecorder
	Logger       *log.Logger
}

// AuthHandler drives the OAuth2 Authorization Code flow and owns the session cookies.
type AuthHandler struct {
	client AuthClient
	opts   AuthOptions
	now    func() time.Time
}

// NewAuthHandler creates an [AuthHandler]. Unset options get defaults.
func NewAuthHandler(client AuthClient, opts AuthOptions) (*AuthHandler, error) {
	if client == nil {
		return nil, errors.New("auth handler requires a client")
	}
	if opts.Store == nil {
		opts.Store = session.NewCookieStore(false, 0)
	}
	if opts.Policy.Required == 0 {
		opts.Policy = session.DefaultPolicy
	}
	if opts.States == nil {
		states, err := session.NewStateIssuer("", 0)
		if err != nil {
			return nil, err
		}
		opts.States = states
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.PostLoginURL == "" {
		opts.PostLoginURL = "/"
	}
	if opts.LogoutURL == "" {
		opts.LogoutURL = "/"
	}
	return &AuthHandler{client: client, opts: opts, now: time.Now}, nil
}

// Routes implements [Handler].
func (h *AuthHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/auth/login", Handler: h.Login},
		{Method: http.MethodGet, Path: "/auth/callback", Handler: h.Callback},
		{Method: http.MethodPost, Path: "/auth/refresh", Handler: h.Refresh},
		{Method: http.MethodGet, Path: "/auth/logout", Handler: h.Logout},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: h.Logout},
		{Method: http.MethodGet, Path: "/auth/is-authenticated", Handler: h.IsAuthenticated},
	}
}

// Login redirects the browser to the Spotify authorize page with a fresh state.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.opts.States.Issue()
	if err != nil {
		h.opts.Logger.Error("failed to issue state", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to get login URL", err.Error())
		return
	}

	if h.opts.VerifyState {
		h.opts.Store.WriteState(w, state, h.opts.States.TTL())
	}

	http.Redirect(w, r, h.client.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: exchange the code, set the token cookies, look up the user, set user_id.
//
// Token cookies are written before the profile lookup, so a failed lookup leaves them in place.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bound := h.opts.Store.ReadState(r)
	if bound != "" {
		h.opts.Store.ClearState(w)
	}

	if q.Has("error") {
		writeError(w, http.StatusBadRequest, "Authorization failed", fmt.Sprintf("Authorization failed: %s", q.Get("error")))
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "Invalid callback", "Missing authorization code or state parameter")
		return
	}

	if h.opts.VerifyState {
		if err := h.opts.States.Verify(state, bound); err != nil {
			h.opts.Logger.Warn("rejected callback state", "err", err)
			writeError(w, http.StatusBadRequest, "Invalid callback", "State parameter does not match this login attempt")
			return
		}
	}

	ctx := r.Context()

	tok, err := h.client.ExchangeCode(ctx, code, h.opts.RedirectURI)
	if err != nil {
		writeUpstreamError(w, h.opts.Logger, "Failed to authenticate", err)
		return
	}

	h.opts.Store.Write(w, session.Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, tok.ExpiresIn)

	user, err := h.client.Profile(ctx, tok.AccessToken)
	if err != nil {
		writeUpstreamError(w, h.opts.Logger, "Failed to get user profile", err)
		return
	}

	h.opts.Store.WriteUserID(w, user.ID)
	h.recordLogin(ctx, user)

	http.Redirect(w, r, h.opts.PostLoginURL, http.StatusFound)
}

// recordLogin stores the login when a ledger is configured. Failures never fail the callback.
func (h *AuthHandler) recordLogin(ctx context.Context, su *services.SpotifyUser) {
	if h.opts.Users == nil {
		return
	}

	user := models.NewUser(su.ID, su.DisplayName, su.Email, h.now().UTC())
	user.SetMarket(su.Country, su.Product)

	if err := h.opts.Users.RecordLogin(ctx, user); err != nil {
		h.opts.Logger.Warn("failed to record login", "user_id", su.ID, "err", err)
	}
}

// Refresh mints a new access token from the refresh_token cookie and answers 204.
//
// The refresh cookie is replaced only when Spotify rotates it.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.opts.Store.Read(r).RefreshToken
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "No refresh token provided", "Refresh token cookie is missing")
		return
	}

	tok, err := h.client.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeUpstreamError(w, h.opts.Logger, "Failed to refresh token", err)
		return
	}

	// An empty RefreshToken leaves the existing cookie in place.
	h.opts.Store.Write(w, session.Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, tok.ExpiresIn)

	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session cookies and redirects to the frontend. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.opts.Store.Clear(w)
	http.Redirect(w, r, h.opts.LogoutURL, http.StatusFound)
}

// IsAuthenticated reports whether the session cookies satisfy the validity policy.
func (h *AuthHandler) IsAuthenticated(w http.ResponseWriter, r *http.Request) {
	ok := h.opts.Policy.Authenticated(h.opts.Store, r)

	status := http.StatusOK
	if !ok {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]bool{"authenticated": ok})
}
