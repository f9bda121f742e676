package services

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/spotify-bff/internal/shared"
)

// UpstreamError is a non-2xx response from the provider. Status is the upstream reason phrase, verbatim.
type UpstreamError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify %s: status %d %s", e.Op, e.StatusCode, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return shared.ErrUpstreamStatus
}

// SchemaError is a 2xx response that lacks a field the caller depends on, or cannot be decoded at all.
type SchemaError struct {
	Op    string
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spotify %s: malformed response: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("spotify %s: response missing %s", e.Op, e.Field)
}

func (e *SchemaError) Unwrap() error {
	return shared.ErrUpstreamSchema
}

func upstreamError(op string, resp *http.Response) *UpstreamError {
	return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Status: statusText(resp)}
}

// statusText returns the reason phrase of resp, e.g. "Bad Request" for "400 Bad Request".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: spotify %s: %v", shared.ErrAPIRequest, op, err)
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
