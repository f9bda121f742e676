package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrInvalidState = fmt.Errorf("invalid authorization state")

	// Upstream errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrUpstreamStatus = fmt.Errorf("upstream returned an error status")
	ErrUpstreamSchema = fmt.Errorf("upstream response missing required fields")

	// Persistence errors
	ErrUserNotFound = fmt.Errorf("user not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
