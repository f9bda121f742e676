package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Cookie names.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	UserIDCookie       = "user_id"
	StateCookie        = "oauth_state"
)

// DefaultRefreshTTL is the lifetime of the refresh token and user id cookies.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// Session is the per-request view of the caller's credentials. Any field may be empty.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// Capability is a bit set of the session fields that are present.
type Capability uint8

const (
	HasAccessToken Capability = 1 << iota
	HasRefreshToken
	HasUserID
)

var capabilityNames = map[string]Capability{
	AccessTokenCookie:  HasAccessToken,
	RefreshTokenCookie: HasRefreshToken,
	UserIDCookie:       HasUserID,
}

// Capabilities returns the set of non-empty fields.
func (s Session) Capabilities() Capability {
	var c Capability
	if s.AccessToken != "" {
		c |= HasAccessToken
	}
	if s.RefreshToken != "" {
		c |= HasRefreshToken
	}
	if s.UserID != "" {
		c |= HasUserID
	}
	return c
}

func (c Capability) String() string {
	var names []string
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, UserIDCookie} {
		if c&capabilityNames[name] != 0 {
			names = append(names, name)
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Policy is the set of fields a session must carry to be treated as authenticated.
type Policy struct {
	Required Capability
}

// DefaultPolicy requires both tokens; the user id is not needed to pass.
var DefaultPolicy = Policy{Required: HasAccessToken | HasRefreshToken}

// ParsePolicy builds a [Policy] from cookie names. An empty list yields [DefaultPolicy].
func ParsePolicy(names []string) (Policy, error) {
	if len(names) == 0 {
		return DefaultPolicy, nil
	}

	var p Policy
	for _, name := range names {
		c, ok := capabilityNames[strings.TrimSpace(name)]
		if !ok {
			return Policy{}, fmt.Errorf("unknown session field %q", name)
		}
		p.Required |= c
	}
	return p, nil
}

// Allows reports whether s carries every required field.
func (p Policy) Allows(s Session) bool {
	return s.Capabilities()&p.Required == p.Required
}

// Authenticated reads the session from r and applies the policy.
func (p Policy) Authenticated(store *CookieStore, r *http.Request) bool {
	return p.Allows(store.Read(r))
}
