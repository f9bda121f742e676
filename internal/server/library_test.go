package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	tu "github.com/desertthunder/spotify-bff/internal/testing"
)

func TestLibraryGate(t *testing.T) {
	routes := []struct{ method, path string }{
		{http.MethodGet, "/user/profile"},
		{http.MethodGet, "/artist/me/top-artists"},
		{http.MethodGet, "/artist/A1/albums"},
		{http.MethodGet, "/playlist/me"},
		{http.MethodPost, "/playlist/me"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			for _, cookies := range [][]*http.Cookie{nil, sessionCookies("AT", "", "U1"), sessionCookies("", "RT", "U1")} {
				app := newTestApp(t, nil)

				rec := app.do(route.method, route.path, strings.NewReader(`{"name":"x"}`), cookies...)
				if rec.Code != http.StatusUnauthorized {
					t.Errorf("expected 401, got %d", rec.Code)
				}
				if len(app.fake.Calls()) != 0 {
					t.Errorf("expected no upstream call, got %d", len(app.fake.Calls()))
				}
			}
		})
	}
}

func TestLibraryProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{"id": "U1", "display_name": "Test User"})

		rec := app.do(http.MethodGet, "/user/profile", nil, sessionCookies("AT", "RT", "U1")...)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := tu.MustReadJSON(t, rec)
		if body["message"] != "User profile retrieved successfully" {
			t.Errorf("unexpected message %v", body["message"])
		}
		data, _ := body["data"].(map[string]any)
		if data["id"] != "U1" {
			t.Errorf("expected profile data, got %v", body["data"])
		}
		if _, ok := body["pagination"]; ok {
			t.Error("profile should not carry pagination")
		}
	})

	t.Run("Expired Token Passes Gate", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodGet, "/v1/me", http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401}})

		rec := app.do(http.MethodGet, "/user/profile", nil, sessionCookies("expired", "RT", "")...)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected upstream 401 to pass through, got %d", rec.Code)
		}
		body := tu.MustReadJSON(t, rec)
		if body["error"] != "Failed to get user profile" || body["message"] != "Unauthorized" {
			t.Errorf("unexpected body %v", body)
		}
		if len(app.fake.Calls()) != 1 {
			t.Errorf("expected exactly one upstream call, got %d", len(app.fake.Calls()))
		}
	})
}

func TestLibraryTopArtists(t *testing.T) {
	t.Run("Pagination", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodGet, "/v1/me/top/artists", http.StatusOK, map[string]any{
			"items":    []map[string]any{{"id": "A6", "name": "Sixth"}},
			"total":    12,
			"limit":    5,
			"offset":   5,
			"next":     "https://api.spotify.com/v1/me/top/artists?offset=10",
			"previous": "https://api.spotify.com/v1/me/top/artists?offset=0",
		})

		rec := app.do(http.MethodGet, "/artist/me/top-artists?offset=5", nil, sessionCookies("AT", "RT", "")...)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body struct {
			Message    string     `json:"message"`
			Pagination Pagination `json:"pagination"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid body: %v", err)
		}

		want := Pagination{HasNext: true, HasPrevious: true, CurrentPage: 2, TotalPages: 3}
		if body.Pagination != want {
			t.Errorf("expected %+v, got %+v", want, body.Pagination)
		}

		q := app.fake.CallsTo(http.MethodGet, "/v1/me/top/artists")[0].Query
		if q.Get("limit") != "5" || q.Get("offset") != "5" || q.Get("time_range") != "medium_term" {
			t.Errorf("unexpected upstream query %v", q)
		}
	})

	t.Run("Offset Parsing", func(t *testing.T) {
		for raw, want := range map[string]string{"abc": "0", "-10": "0", "": "0", "15": "15"} {
			app := newTestApp(t, nil)
			app.fake.On(http.MethodGet, "/v1/me/top/artists", http.StatusOK, map[string]any{"items": []any{}, "total": 0})

			app.do(http.MethodGet, "/artist/me/top-artists?offset="+raw, nil, sessionCookies("AT", "RT", "")...)

			calls := app.fake.CallsTo(http.MethodGet, "/v1/me/top/artists")
			if len(calls) != 1 {
				t.Fatalf("offset %q: expected 1 call, got %d", raw, len(calls))
			}
			if got := calls[0].Query.Get("offset"); got != want {
				t.Errorf("offset %q: expected upstream offset %s, got %s", raw, want, got)
			}
		}
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodGet, "/v1/me/top/artists", http.StatusTooManyRequests, map[string]any{})

		rec := app.do(http.MethodGet, "/artist/me/top-artists", nil, sessionCookies("AT", "RT", "")...)

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["error"] != "Failed to get top artists" {
			t.Errorf("unexpected error kind %v", body["error"])
		}
	})
}

func TestLibraryArtistAlbums(t *testing.T) {
	app := newTestApp(t, nil)
	app.fake.On(http.MethodGet, "/v1/artists/A1/albums", http.StatusOK, map[string]any{"items": []map[string]any{{"id": "AL1"}}, "total": 1})

	rec := app.do(http.MethodGet, "/artist/A1/albums?offset=10", nil, sessionCookies("AT", "RT", "")...)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := tu.MustReadJSON(t, rec); body["message"] != "Artist albums retrieved successfully" {
		t.Errorf("unexpected message %v", body["message"])
	}

	q := app.fake.CallsTo(http.MethodGet, "/v1/artists/A1/albums")[0].Query
	if q.Get("include_groups") != "album,single" || q.Get("limit") != "5" || q.Get("offset") != "10" {
		t.Errorf("unexpected upstream query %v", q)
	}
}

func TestLibraryPlaylists(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodGet, "/v1/me/playlists", http.StatusOK, map[string]any{"items": []any{}, "total": 0})

		rec := app.do(http.MethodGet, "/playlist/me", nil, sessionCookies("AT", "RT", "")...)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := tu.MustReadJSON(t, rec); body["message"] != "User playlists retrieved successfully" {
			t.Errorf("unexpected message %v", body["message"])
		}
	})

	t.Run("Create", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.fake.On(http.MethodPost, "/v1/users/U1/playlists", http.StatusCreated, map[string]any{"id": "P1", "name": "Road Trip"})

		rec := app.do(http.MethodPost, "/playlist/me", strings.NewReader(`{"name":"Road Trip"}`), sessionCookies("AT", "RT", "U1")...)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if body := tu.MustReadJSON(t, rec); body["message"] != "Playlist created successfully" {
			t.Errorf("unexpected message %v", body["message"])
		}

		call := app.fake.CallsTo(http.MethodPost, "/v1/users/U1/playlists")[0]
		if call.Header.Get("Authorization") != "Bearer AT" {
			t.Errorf("expected bearer token, got %q", call.Header.Get("Authorization"))
		}
	})

	t.Run("Create Without Name", func(t *testing.T) {
		for _, payload := range []string{`{}`, `{"name":"  "}`, ``} {
			app := newTestApp(t, nil)

			rec := app.do(http.MethodPost, "/playlist/me", strings.NewReader(payload), sessionCookies("AT", "RT", "U1")...)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("payload %q: expected 400, got %d", payload, rec.Code)
			}
			if body := tu.MustReadJSON(t, rec); body["error"] != "Name is required to create a playlist" {
				t.Errorf("payload %q: unexpected error kind %v", payload, body["error"])
			}
			if len(app.fake.Calls()) != 0 {
				t.Errorf("payload %q: expected no upstream call", payload)
			}
		}
	})

	t.Run("Create With Malformed Body", func(t *testing.T) {
		oversized := `{"name":"` + strings.Repeat("a", 1<<17) + `"}`
		for _, payload := range []string{`not json`, `{"name":`, oversized} {
			app := newTestApp(t, nil)

			rec := app.do(http.MethodPost, "/playlist/me", strings.NewReader(payload), sessionCookies("AT", "RT", "U1")...)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("body of %d bytes: expected 400, got %d", len(payload), rec.Code)
			}
			if body := tu.MustReadJSON(t, rec); body["error"] != "Invalid request body" {
				t.Errorf("body of %d bytes: unexpected error kind %v", len(payload), body["error"])
			}
			if len(app.fake.Calls()) != 0 {
				t.Errorf("body of %d bytes: expected no upstream call", len(payload))
			}
		}
	})

	t.Run("Create Without User ID", func(t *testing.T) {
		app := newTestApp(t, nil)

		rec := app.do(http.MethodPost, "/playlist/me", strings.NewReader(`{"name":"Road Trip"}`), sessionCookies("AT", "RT", "")...)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if len(app.fake.Calls()) != 0 {
			t.Error("expected no upstream call")
		}
	})
}

func TestParseOffset(t *testing.T) {
	tc := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"7", 7},
		{" 12 ", 12},
		{"-1", 0},
		{"1.5", 0},
		{"ten", 0},
	}

	for _, tt := range tc {
		if got := parseOffset(tt.raw); got != tt.want {
			t.Errorf("parseOffset(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
