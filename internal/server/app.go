package server

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-bff/internal/session"
	"github.com/desertthunder/spotify-bff/internal/shared"
)

// SpotifyAPI is everything the HTTP surface calls on Spotify. Implemented by services.SpotifyClient.
type SpotifyAPI interface {
	AuthClient
	LibraryClient
}

// NewRouter wires the full HTTP surface from configuration: global middleware, health,
// the OAuth flow and the gated library routes. users may be nil.
func NewRouter(cfg *shared.Config, client SpotifyAPI, users LoginRecorder, logger *log.Logger) (*BasicRouter, error) {
	policy, err := session.ParsePolicy(cfg.Session.Required)
	if err != nil {
		return nil, fmt.Errorf("%w: session.required: %v", shared.ErrInvalidConfig, err)
	}

	states, err := session.NewStateIssuer(cfg.Session.StateSecret, cfg.Session.StateTTL)
	if err != nil {
		return nil, err
	}

	store := session.NewCookieStore(cfg.IsProduction(), cfg.Session.RefreshTTL)

	auth, err := NewAuthHandler(client, AuthOptions{
		Store:        store,
		Policy:       policy,
		States:       states,
		VerifyState:  cfg.Session.VerifyState,
		RedirectURI:  cfg.Credentials.Spotify.RedirectURI,
		PostLoginURL: cfg.FrontendPath(cfg.Server.PostLoginPath),
		LogoutURL:    cfg.FrontendPath(cfg.Server.LogoutPath),
		Users:        users,
		Logger:       shared.WithLogger(logger, "handler", "auth"),
	})
	if err != nil {
		return nil, err
	}

	library := NewLibraryHandler(client, store, RequireSession(store, policy), shared.WithLogger(logger, "handler", "library"))

	r := NewBasicRouter()
	r.Use(
		RequestID(),
		Logging(logger),
		Recover(logger),
		CORS(cfg.Server.FrontendURL),
	)
	r.Register(NewHealthHandler(), auth, library)

	return r, nil
}
