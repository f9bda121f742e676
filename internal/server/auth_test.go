package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotify-bff/internal/models"
	"github.com/desertthunder/spotify-bff/internal/session"
	"github.com/desertthunder/spotify-bff/internal/shared"
	tu "github.com/desertthunder/spotify-bff/internal/testing"
)

type recordedLogins struct {
	mu    sync.Mutex
	users []*models.User
	err   error
}

func (r *recordedLogins) RecordLogin(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
	return r.err
}

// login runs GET /auth/login and returns the issued state and its browser-bound cookie.
func login(t *testing.T, app *testApp) (string, *http.Cookie) {
	t.Helper()

	rec := app.do(http.MethodGet, "/auth/login", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 from login, got %d", rec.Code)
	}

	state := mustParseURL(t, rec.Header().Get("Location")).Query().Get("state")
	return state, tu.FindCookie(rec.Result().Cookies(), session.StateCookie)
}

func scriptSuccessfulLogin(fake *tu.FakeSpotify) {
	fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{
		"access_token": "AT", "refresh_token": "RT", "expires_in": 3600, "token_type": "Bearer",
	})
	fake.On(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{
		"id": "U1", "display_name": "Test User", "email": "test@example.com", "country": "US", "product": "premium",
	})
}

func TestAuthLogin(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(http.MethodGet, "/auth/login", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, app.fake.Server.URL+"/authorize?") {
		t.Errorf("expected authorize URL, got %s", loc)
	}

	q := mustParseURL(t, loc).Query()
	if q.Get("response_type") != "code" {
		t.Errorf("expected response_type=code, got %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "test_client_id" {
		t.Errorf("expected configured client id, got %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != app.cfg.Credentials.Spotify.RedirectURI {
		t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") == "" {
		t.Error("expected scopes")
	}

	first := q.Get("state")
	if first == "" {
		t.Fatal("expected non-empty state")
	}

	cookie := tu.FindCookie(rec.Result().Cookies(), session.StateCookie)
	if cookie == nil || cookie.Value != first {
		t.Error("expected state cookie bound to the issued state")
	}

	second, _ := login(t, app)
	if second == first {
		t.Error("expected successive logins to issue distinct states")
	}

	if len(app.fake.Calls()) != 0 {
		t.Error("login must not call upstream")
	}
}

func TestAuthCallback(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		users := &recordedLogins{}
		app := newTestApp(t, users)
		scriptSuccessfulLogin(app.fake)

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != testFrontend+"/dashboard" {
			t.Errorf("expected redirect to post-login path, got %s", loc)
		}

		cookies := rec.Result().Cookies()
		for name, want := range map[string]string{
			session.AccessTokenCookie:  "AT",
			session.RefreshTokenCookie: "RT",
			session.UserIDCookie:       "U1",
		} {
			c := tu.FindCookie(cookies, name)
			if c == nil || c.Value != want {
				t.Errorf("expected cookie %s=%s, got %v", name, want, c)
				continue
			}
			if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Secure {
				t.Errorf("unexpected attributes on %s: %+v", name, c)
			}
		}

		if c := tu.FindCookie(cookies, session.AccessTokenCookie); c != nil && c.MaxAge != 3600 {
			t.Errorf("expected access token max-age 3600, got %d", c.MaxAge)
		}
		if c := tu.FindCookie(cookies, session.RefreshTokenCookie); c != nil && c.MaxAge != 30*24*60*60 {
			t.Errorf("expected refresh token max-age of 30 days, got %d", c.MaxAge)
		}
		if c := tu.FindCookie(cookies, session.StateCookie); c == nil || c.MaxAge >= 0 {
			t.Error("expected state cookie to be cleared")
		}

		calls := app.fake.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected exactly 2 upstream calls, got %d", len(calls))
		}
		if calls[0].Path != "/api/token" || calls[1].Path != "/v1/me" {
			t.Errorf("expected token exchange then profile, got %s then %s", calls[0].Path, calls[1].Path)
		}
		if calls[1].Header.Get("Authorization") != "Bearer AT" {
			t.Errorf("expected profile call with new access token, got %q", calls[1].Header.Get("Authorization"))
		}

		if len(users.users) != 1 || users.users[0].ID() != "U1" || users.users[0].Country() != "US" {
			t.Errorf("expected login to be recorded for U1, got %v", users.users)
		}
	})

	t.Run("Recorder Failure Does Not Fail Login", func(t *testing.T) {
		app := newTestApp(t, &recordedLogins{err: errors.New("disk full")})
		scriptSuccessfulLogin(app.fake)

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		if rec.Code != http.StatusFound {
			t.Errorf("expected 302, got %d", rec.Code)
		}
	})

	t.Run("Upstream Error Parameter", func(t *testing.T) {
		for _, target := range []string{
			"/auth/callback?error=access_denied",
			"/auth/callback?error=access_denied&code=abc&state=xyz",
			"/auth/callback?error=",
		} {
			app := newTestApp(t, nil)
			rec := app.do(http.MethodGet, target, nil)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
			body := tu.MustReadJSON(t, rec)
			if body["error"] != "Authorization failed" {
				t.Errorf("%s: unexpected error kind %v", target, body["error"])
			}
			if len(app.fake.Calls()) != 0 {
				t.Errorf("%s: expected no upstream call", target)
			}
		}

		app := newTestApp(t, nil)
		body := tu.MustReadJSON(t, app.do(http.MethodGet, "/auth/callback?error=access_denied", nil))
		if msg, _ := body["message"].(string); !strings.Contains(msg, "access_denied") {
			t.Errorf("expected message to include the upstream code, got %q", msg)
		}
	})

	t.Run("Missing Code Or State", func(t *testing.T) {
		for _, target := range []string{
			"/auth/callback?code=abc",
			"/auth/callback?state=xyz",
			"/auth/callback",
		} {
			app := newTestApp(t, nil)
			rec := app.do(http.MethodGet, target, nil)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
			if body := tu.MustReadJSON(t, rec); body["error"] != "Invalid callback" {
				t.Errorf("%s: unexpected error kind %v", target, body["error"])
			}
			if len(app.fake.Calls()) != 0 {
				t.Errorf("%s: expected no upstream call", target)
			}
		}
	})

	t.Run("State Verification", func(t *testing.T) {
		t.Run("No Bound Cookie", func(t *testing.T) {
			app := newTestApp(t, nil)
			state, _ := login(t, app)

			rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(app.fake.Calls()) != 0 {
				t.Error("expected no upstream call")
			}
		})

		t.Run("Mismatch", func(t *testing.T) {
			app := newTestApp(t, nil)
			_, bound := login(t, app)
			other, _ := login(t, app)

			rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+other, nil, bound)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})

		t.Run("Forged", func(t *testing.T) {
			app := newTestApp(t, nil)
			forged := &http.Cookie{Name: session.StateCookie, Value: "xyz"}

			rec := app.do(http.MethodGet, "/auth/callback?code=abc&state=xyz", nil, forged)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for unsigned state, got %d", rec.Code)
			}
		})

		t.Run("Disabled", func(t *testing.T) {
			app := newTestApp(t, nil, func(c *shared.Config) { c.Session.VerifyState = false })
			scriptSuccessfulLogin(app.fake)

			loginRec := app.do(http.MethodGet, "/auth/login", nil)
			if tu.FindCookie(loginRec.Result().Cookies(), session.StateCookie) != nil {
				t.Error("state cookie should not be set when verification is off")
			}

			rec := app.do(http.MethodGet, "/auth/callback?code=abc&state=xyz", nil)
			if rec.Code != http.StatusFound {
				t.Errorf("expected 302 with any non-empty state, got %d", rec.Code)
			}
		})
	})

	t.Run("Token Exchange Failure", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=bad&state="+state, nil, bound)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected upstream status 400, got %d", rec.Code)
		}
		body := tu.MustReadJSON(t, rec)
		if body["error"] != "Failed to authenticate" || body["message"] != "Bad Request" {
			t.Errorf("unexpected body %v", body)
		}
		if len(app.fake.CallsTo(http.MethodGet, "/v1/me")) != 0 {
			t.Error("profile must not be fetched after a failed exchange")
		}
		if tu.FindCookie(rec.Result().Cookies(), session.AccessTokenCookie) != nil {
			t.Error("no token cookies should be set")
		}
	})

	t.Run("Token Response Without Refresh Token", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{"access_token": "AT", "expires_in": 3600})

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("Profile Failure Keeps Tokens", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{
			"access_token": "AT", "refresh_token": "RT", "expires_in": 3600,
		})
		app.fake.On(http.MethodGet, "/v1/me", http.StatusForbidden, map[string]any{"error": map[string]any{"status": 403}})

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected upstream status 403, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["error"] != "Failed to get user profile" {
			t.Errorf("unexpected error kind %v", body["error"])
		}

		cookies := rec.Result().Cookies()
		if c := tu.FindCookie(cookies, session.AccessTokenCookie); c == nil || c.Value != "AT" {
			t.Error("expected access token cookie to survive profile failure")
		}
		if c := tu.FindCookie(cookies, session.RefreshTokenCookie); c == nil || c.Value != "RT" {
			t.Error("expected refresh token cookie to survive profile failure")
		}
		if tu.FindCookie(cookies, session.UserIDCookie) != nil {
			t.Error("user id cookie must not be set")
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		app := newTestApp(t, nil, func(c *shared.Config) {
			c.Credentials.Spotify.TokenURL = "http://127.0.0.1:1/api/token"
		})

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["error"] != "Failed to authenticate" {
			t.Errorf("unexpected error kind %v", body["error"])
		}
	})

	t.Run("Secure Cookies In Production", func(t *testing.T) {
		app := newTestApp(t, nil, func(c *shared.Config) { c.Server.Environment = "production" })
		scriptSuccessfulLogin(app.fake)

		state, bound := login(t, app)
		rec := app.do(http.MethodGet, "/auth/callback?code=abc&state="+state, nil, bound)

		for _, c := range rec.Result().Cookies() {
			if !c.Secure {
				t.Errorf("expected Secure on %s in production", c.Name)
			}
		}
	})
}

func TestAuthRefresh(t *testing.T) {
	t.Run("Rotated", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{
			"access_token": "AT2", "refresh_token": "RT2", "expires_in": 3600,
		})

		rec := app.do(http.MethodPost, "/auth/refresh", nil, sessionCookies("AT1", "RT1", "U1")...)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", rec.Body.String())
		}

		cookies := rec.Result().Cookies()
		if c := tu.FindCookie(cookies, session.AccessTokenCookie); c == nil || c.Value != "AT2" {
			t.Error("expected access token to be overwritten")
		}
		if c := tu.FindCookie(cookies, session.RefreshTokenCookie); c == nil || c.Value != "RT2" {
			t.Error("expected refresh token to be overwritten")
		}

		call := app.fake.CallsTo(http.MethodPost, "/api/token")[0]
		if call.Form.Get("refresh_token") != "RT1" {
			t.Errorf("expected refresh with RT1, got %q", call.Form.Get("refresh_token"))
		}
	})

	t.Run("Preserved", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{"access_token": "AT2", "expires_in": 3600})

		rec := app.do(http.MethodPost, "/auth/refresh", nil, sessionCookies("AT1", "RT1", "")...)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if tu.FindCookie(rec.Result().Cookies(), session.RefreshTokenCookie) != nil {
			t.Error("refresh token cookie must be left untouched when upstream omits it")
		}
	})

	t.Run("Echoed Refresh Token", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusOK, map[string]any{
			"access_token": "AT2", "refresh_token": "RT1", "expires_in": 1800,
		})

		rec := app.do(http.MethodPost, "/auth/refresh", nil, sessionCookies("AT1", "RT1", "")...)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		cookies := rec.Result().Cookies()
		if c := tu.FindCookie(cookies, session.AccessTokenCookie); c == nil || c.MaxAge != 1800 {
			t.Errorf("expected access token cookie with Max-Age 1800, got %+v", c)
		}
		if tu.FindCookie(cookies, session.RefreshTokenCookie) != nil {
			t.Error("refresh token cookie must not be rewritten when upstream echoes the same value")
		}
	})

	t.Run("Missing Refresh Token", func(t *testing.T) {
		app := newTestApp(t, nil)

		rec := app.do(http.MethodPost, "/auth/refresh", nil, sessionCookies("AT1", "", "")...)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["error"] != "No refresh token provided" {
			t.Errorf("unexpected error kind %v", body["error"])
		}
		if len(app.fake.Calls()) != 0 {
			t.Error("expected no upstream call")
		}
	})

	t.Run("Upstream Rejects", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		rec := app.do(http.MethodPost, "/auth/refresh", nil, sessionCookies("", "RT1", "")...)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["error"] != "Failed to refresh token" {
			t.Errorf("unexpected error kind %v", body["error"])
		}
	})

	t.Run("GET Not Allowed", func(t *testing.T) {
		app := newTestApp(t, nil)
		if rec := app.do(http.MethodGet, "/auth/refresh", nil); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestAuthLogout(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			app := newTestApp(t, nil)

			for _, cookies := range [][]*http.Cookie{sessionCookies("AT", "RT", "U1"), nil} {
				rec := app.do(method, "/auth/logout", nil, cookies...)

				if rec.Code != http.StatusFound {
					t.Errorf("expected 302, got %d", rec.Code)
				}
				if loc := rec.Header().Get("Location"); loc != testFrontend+"/" {
					t.Errorf("expected redirect to frontend root, got %s", loc)
				}

				for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie, session.UserIDCookie} {
					c := tu.FindCookie(rec.Result().Cookies(), name)
					if c == nil || c.Value != "" || c.MaxAge >= 0 {
						t.Errorf("expected %s to be cleared, got %+v", name, c)
					}
				}
			}

			if len(app.fake.Calls()) != 0 {
				t.Error("logout must not call upstream")
			}
		})
	}
}

func TestAuthIsAuthenticated(t *testing.T) {
	t.Run("Default Policy", func(t *testing.T) {
		app := newTestApp(t, nil)

		rec := app.do(http.MethodGet, "/auth/is-authenticated", nil, sessionCookies("AT", "RT", "")...)
		if rec.Code != http.StatusOK || tu.MustReadJSON(t, rec)["authenticated"] != true {
			t.Errorf("expected authenticated, got %d %s", rec.Code, rec.Body.String())
		}

		rec = app.do(http.MethodGet, "/auth/is-authenticated", nil, sessionCookies("AT", "", "U1")...)
		if rec.Code != http.StatusUnauthorized || tu.MustReadJSON(t, rec)["authenticated"] != false {
			t.Errorf("expected unauthenticated, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Policy Requiring User ID", func(t *testing.T) {
		app := newTestApp(t, nil, func(c *shared.Config) {
			c.Session.Required = []string{"access_token", "refresh_token", "user_id"}
		})

		rec := app.do(http.MethodGet, "/auth/is-authenticated", nil, sessionCookies("AT", "RT", "")...)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 without user id, got %d", rec.Code)
		}

		rec = app.do(http.MethodGet, "/auth/is-authenticated", nil, sessionCookies("AT", "RT", "U1")...)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 with user id, got %d", rec.Code)
		}
	})
}

func TestNewRouter(t *testing.T) {
	t.Run("Unknown Session Field", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Session.Required = []string{"password"}

		_, err := NewRouter(cfg, nil, nil, shared.NewLogger(nil))
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
