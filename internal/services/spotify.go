// Spotify Web API implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spotify-bff/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	URI         string         `json:"uri"`
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres,omitempty"`
	Popularity int            `json:"popularity,omitempty"`
	Followers  *followers     `json:"followers,omitempty"`
	Images     []SpotifyImage `json:"images,omitempty"`
	URI        string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	AlbumType            string          `json:"album_type"`
	AlbumGroup           string          `json:"album_group,omitempty"`
	Artists              []SpotifyArtist `json:"artists"`
	ReleaseDate          string          `json:"release_date"`
	ReleaseDatePrecision string          `json:"release_date_precision"`
	TotalTracks          int             `json:"total_tracks"`
	Images               []SpotifyImage  `json:"images"`
	URI                  string          `json:"uri"`
}

// Owner is the user a playlist belongs to.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// SpotifyPlaylist represents a simplified playlist object, as returned by list and create calls.
type SpotifyPlaylist struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Owner         Owner          `json:"owner"`
	Public        bool           `json:"public"`
	Collaborative bool           `json:"collaborative"`
	SnapshotID    string         `json:"snapshot_id"`
	Tracks        playlistTracks `json:"tracks"`
	Images        []SpotifyImage `json:"images"`
	URI           string         `json:"uri"`
}

// Page is Spotify's paging object.
type Page[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// TimeRange values accepted by the top items endpoint.
const (
	ShortTerm  = "short_term"
	MediumTerm = "medium_term"
	LongTerm   = "long_term"
)

// SpotifyClient talks to the Spotify accounts service and Web API on behalf of the caller.
//
// It holds no per-user state: every call takes the access or refresh token it needs.
type SpotifyClient struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a [SpotifyClient].
type Option func(*SpotifyClient)

// WithHTTPClient sets the client used for every upstream call.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyClient) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRateLimit throttles upstream calls to rps requests per second. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *SpotifyClient) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewSpotifyClient creates a Spotify client from application credentials.
func NewSpotifyClient(c shared.SpotifyConfig, opts ...Option) (*SpotifyClient, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if c.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	authURL, tokenURL, apiURL := c.AuthURL, c.TokenURL, c.APIURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if apiURL == "" {
		apiURL = spotifyBaseURL
	}

	s := &SpotifyClient{
		config: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       c.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// AuthCodeURL returns the authorization URL the browser is sent to.
//
// The URL carries response_type=code, client_id, redirect_uri, the configured scopes and state.
func (s *SpotifyClient) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

func (s *SpotifyClient) wait(ctx context.Context, op string) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return transportError(op, err)
	}
	return nil
}

// bearerClient returns an HTTP client that authorizes every request with accessToken.
func (s *SpotifyClient) bearerClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

// doRequest performs an authenticated Web API request and decodes a 2xx body into result.
func (s *SpotifyClient) doRequest(ctx context.Context, op, accessToken, method, endpoint string, query url.Values, body any, result any) error {
	if err := s.wait(ctx, op); err != nil {
		return err
	}

	apiURL := s.apiURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.bearerClient(ctx, accessToken).Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return upstreamError(op, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &SchemaError{Op: op, Err: err}
		}
	}

	return nil
}

// Profile retrieves the profile of the user the access token belongs to.
func (s *SpotifyClient) Profile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	const op = "get current user"

	var user SpotifyUser
	if err := s.doRequest(ctx, op, accessToken, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, &SchemaError{Op: op, Field: "id"}
	}
	return &user, nil
}

// TopArtists retrieves the user's top artists for a time range.
func (s *SpotifyClient) TopArtists(ctx context.Context, accessToken string, limit, offset int, timeRange string) (*Page[SpotifyArtist], error) {
	if timeRange == "" {
		timeRange = MediumTerm
	}

	query := pageQuery(limit, offset)
	query.Set("time_range", timeRange)

	var page Page[SpotifyArtist]
	if err := s.doRequest(ctx, "get top artists", accessToken, http.MethodGet, "/me/top/artists", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ArtistAlbums retrieves an artist's albums filtered by include groups (album, single, appears_on, compilation).
func (s *SpotifyClient) ArtistAlbums(ctx context.Context, accessToken, artistID string, limit, offset int, groups []string) (*Page[SpotifyAlbum], error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	query := pageQuery(limit, offset)
	if len(groups) > 0 {
		query.Set("include_groups", strings.Join(groups, ","))
	}

	endpoint := fmt.Sprintf("/artists/%s/albums", url.PathEscape(artistID))

	var page Page[SpotifyAlbum]
	if err := s.doRequest(ctx, "get artist albums", accessToken, http.MethodGet, endpoint, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyClient) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*Page[SpotifyPlaylist], error) {
	var page Page[SpotifyPlaylist]
	if err := s.doRequest(ctx, "get user playlists", accessToken, http.MethodGet, "/me/playlists", pageQuery(limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, accessToken, userID, name string) (*SpotifyPlaylist, error) {
	const op = "create playlist"

	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := map[string]string{"name": name}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, op, accessToken, http.MethodPost, endpoint, nil, body, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, &SchemaError{Op: op, Field: "id"}
	}
	return &playlist, nil
}

// pageQuery clamps limit to Spotify's 1..50 range and offset to >= 0.
func pageQuery(limit, offset int) url.Values {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}
