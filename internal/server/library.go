package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-bff/internal/services"
	"github.com/desertthunder/spotify-bff/internal/session"
)

// PageSize is the fixed number of items per proxied page.
const PageSize = 5

// LibraryClient is the slice of the Spotify client the proxy routes need.
type LibraryClient interface {
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
	TopArtists(ctx context.Context, accessToken string, limit, offset int, timeRange string) (*services.Page[services.SpotifyArtist], error)
	ArtistAlbums(ctx context.Context, accessToken, artistID string, limit, offset int, groups []string) (*services.Page[services.SpotifyAlbum], error)
	UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*services.Page[services.SpotifyPlaylist], error)
	CreatePlaylist(ctx context.Context, accessToken, userID, name string) (*services.SpotifyPlaylist, error)
}

// Pagination summarizes a page for the frontend's pager.
type Pagination struct {
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
}

// LibraryHandler forwards gated library calls to Spotify with the caller's access token.
type LibraryHandler struct {
	client LibraryClient
	store  *session.CookieStore
	gate   Middleware
	logger *log.Logger
}

// NewLibraryHandler creates a [LibraryHandler]. Every route sits behind gate.
func NewLibraryHandler(client LibraryClient, store *session.CookieStore, gate Middleware, logger *log.Logger) *LibraryHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &LibraryHandler{client: client, store: store, gate: gate, logger: logger}
}

// Routes implements [Handler].
func (h *LibraryHandler) Routes() []Route {
	gated := []Middleware{h.gate}
	return []Route{
		{Method: http.MethodGet, Path: "/user/profile", Handler: h.Profile, Middleware: gated},
		{Method: http.MethodGet, Path: "/artist/me/top-artists", Handler: h.TopArtists, Middleware: gated},
		{Method: http.MethodGet, Path: "/artist/{artistId}/albums", Handler: h.ArtistAlbums, Middleware: gated},
		{Method: http.MethodGet, Path: "/playlist/me", Handler: h.Playlists, Middleware: gated},
		{Method: http.MethodPost, Path: "/playlist/me", Handler: h.CreatePlaylist, Middleware: gated},
	}
}

func (h *LibraryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	const kind = "Failed to get user profile"

	user, err := h.client.Profile(r.Context(), h.store.Read(r).AccessToken)
	if err != nil {
		writeUpstreamError(w, h.logger, kind, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Message: "User profile retrieved successfully", Data: user})
}

// TopArtists returns one page of the user's medium-term top artists.
func (h *LibraryHandler) TopArtists(w http.ResponseWriter, r *http.Request) {
	const kind = "Failed to get top artists"

	offset := parseOffset(r.URL.Query().Get("offset"))

	page, err := h.client.TopArtists(r.Context(), h.store.Read(r).AccessToken, PageSize, offset, services.MediumTerm)
	if err != nil {
		writeUpstreamError(w, h.logger, kind, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Message:    "Top artists retrieved successfully",
		Data:       page,
		Pagination: paginate(page.Next != nil, page.Previous != nil, offset, page.Total),
	})
}

// ArtistAlbums returns one page of an artist's albums and singles.
func (h *LibraryHandler) ArtistAlbums(w http.ResponseWriter, r *http.Request) {
	const kind = "Failed to get artist albums"

	offset := parseOffset(r.URL.Query().Get("offset"))
	groups := []string{"album", "single"}

	page, err := h.client.ArtistAlbums(r.Context(), h.store.Read(r).AccessToken, r.PathValue("artistId"), PageSize, offset, groups)
	if err != nil {
		writeUpstreamError(w, h.logger, kind, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Message: "Artist albums retrieved successfully", Data: page})
}

// Playlists returns one page of the user's playlists.
func (h *LibraryHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	const kind = "Failed to get user playlists"

	offset := parseOffset(r.URL.Query().Get("offset"))

	page, err := h.client.UserPlaylists(r.Context(), h.store.Read(r).AccessToken, PageSize, offset)
	if err != nil {
		writeUpstreamError(w, h.logger, kind, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Message: "User playlists retrieved successfully", Data: page})
}

type createPlaylistRequest struct {
	Name string `json:"name"`
}

// CreatePlaylist creates a playlist owned by the user in the user_id cookie.
func (h *LibraryHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	const kind = "Failed to create playlist"

	var body createPlaylistRequest
	if r.Body != nil {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body", "Request body must be a JSON object of at most 64 KiB")
			return
		}
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required to create a playlist", "Request body must include a non-empty name")
		return
	}

	s := h.store.Read(r)
	if s.UserID == "" {
		writeError(w, http.StatusBadRequest, kind, "User id cookie is missing; log in again")
		return
	}

	playlist, err := h.client.CreatePlaylist(r.Context(), s.AccessToken, s.UserID, name)
	if err != nil {
		writeUpstreamError(w, h.logger, kind, err)
		return
	}

	writeJSON(w, http.StatusCreated, DataResponse{Message: "Playlist created successfully", Data: playlist})
}

// parseOffset reads a non-negative page offset. Anything unparsable is 0.
func parseOffset(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func paginate(hasNext, hasPrevious bool, offset, total int) *Pagination {
	return &Pagination{
		HasNext:     hasNext,
		HasPrevious: hasPrevious,
		CurrentPage: offset/PageSize + 1,
		TotalPages:  (total + PageSize - 1) / PageSize,
	}
}
