// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotify-bff/internal/shared"
)

// Call is one request received by [FakeSpotify].
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
	Body   []byte
}

type reply struct {
	status int
	body   any
}

// FakeSpotify is an httptest server standing in for the accounts service and Web API.
//
// Replies are scripted per "METHOD /path"; unscripted requests get a 404. Every request is recorded.
type FakeSpotify struct {
	Server *httptest.Server

	mu      sync.Mutex
	replies map[string]reply
	calls   []Call
}

// NewFakeSpotify starts a fake upstream that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{replies: make(map[string]reply)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// On scripts the reply for method and path. body is JSON encoded unless it is a string, which is written raw.
func (f *FakeSpotify) On(method, path string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+path] = reply{status: status, body: body}
}

// Calls returns every recorded request in arrival order.
func (f *FakeSpotify) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded requests for method and path.
func (f *FakeSpotify) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Config returns Spotify settings pointing at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:3000/auth/callback",
		Scopes:       []string{"user-read-private", "user-read-email"},
		AuthURL:      f.Server.URL + "/authorize",
		TokenURL:     f.Server.URL + "/api/token",
		APIURL:       f.Server.URL + "/v1",
	}
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		call.Form, _ = url.ParseQuery(string(body))
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	rep, ok := f.replies[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		rep = reply{status: http.StatusNotFound, body: map[string]any{"error": map[string]any{"status": 404, "message": "not scripted"}}}
	}

	switch b := rep.body.(type) {
	case nil:
		w.WriteHeader(rep.status)
	case string:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		io.WriteString(w, b)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		json.NewEncoder(w).Encode(b)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ErrTransport is returned by [FailingClient].
var ErrTransport = errors.New("connection refused")

// FailingClient returns an http.Client whose every request fails at the transport.
func FailingClient() *http.Client {
	return &http.Client{Transport: NewMockRoundTripper(nil, ErrTransport)}
}

// FindCookie returns the last cookie named name, or nil.
func FindCookie(cookies []*http.Cookie, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range cookies {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// MustReadJSON decodes the recorder body into a map.
func MustReadJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return out
}
