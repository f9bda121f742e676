package session

import (
	"net/http"
	"time"
)

// CookieStore encodes a [Session] to and from response and request cookies.
type CookieStore struct {
	secure     bool
	refreshTTL time.Duration
	path       string
}

// NewCookieStore creates a [CookieStore]. secure sets the Secure attribute (production);
// refreshTTL is the lifetime of the refresh token and user id cookies and defaults to [DefaultRefreshTTL].
func NewCookieStore(secure bool, refreshTTL time.Duration) *CookieStore {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &CookieStore{secure: secure, refreshTTL: refreshTTL, path: "/"}
}

// Read extracts the session cookies from r. Missing cookies yield empty fields.
func (c *CookieStore) Read(r *http.Request) Session {
	return Session{
		AccessToken:  cookieValue(r, AccessTokenCookie),
		RefreshToken: cookieValue(r, RefreshTokenCookie),
		UserID:       cookieValue(r, UserIDCookie),
	}
}

// WriteAccessToken sets the access token cookie to expire with the upstream token.
func (c *CookieStore) WriteAccessToken(w http.ResponseWriter, token string, expiresIn int) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, token, expiresIn))
}

// WriteRefreshToken sets the refresh token cookie with the long TTL.
func (c *CookieStore) WriteRefreshToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshTokenCookie, token, int(c.refreshTTL.Seconds())))
}

// WriteUserID sets the user id cookie with the long TTL.
func (c *CookieStore) WriteUserID(w http.ResponseWriter, id string) {
	http.SetCookie(w, c.cookie(UserIDCookie, id, int(c.refreshTTL.Seconds())))
}

// Write sets every non-empty field of s. The access token uses expiresIn.
func (c *CookieStore) Write(w http.ResponseWriter, s Session, expiresIn int) {
	if s.AccessToken != "" {
		c.WriteAccessToken(w, s.AccessToken, expiresIn)
	}
	if s.RefreshToken != "" {
		c.WriteRefreshToken(w, s.RefreshToken)
	}
	if s.UserID != "" {
		c.WriteUserID(w, s.UserID)
	}
}

// Clear expires all three session cookies with the same attributes they were written with.
func (c *CookieStore) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, UserIDCookie} {
		c.expire(w, name)
	}
}

// WriteState stores the authorization state for the callback to compare against.
func (c *CookieStore) WriteState(w http.ResponseWriter, state string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(StateCookie, state, int(ttl.Seconds())))
}

// ReadState returns the stored authorization state, or "".
func (c *CookieStore) ReadState(r *http.Request) string {
	return cookieValue(r, StateCookie)
}

// ClearState expires the authorization state cookie.
func (c *CookieStore) ClearState(w http.ResponseWriter) {
	c.expire(w, StateCookie)
}

func (c *CookieStore) expire(w http.ResponseWriter, name string) {
	ck := c.cookie(name, "", -1)
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

func (c *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
