package integration

import (
	"errors"
	"fmt"
)

// APIError is returned when an upstream service answers with a non-success status.
type APIError struct {
	StatusCode int
	Body       string
	Method     string
	URL        string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request failed: %s %s returned %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("API request failed: %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// DecodeError is returned when a success response carries malformed JSON.
type DecodeError struct {
	URL     string
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by clients built without a base URL or key.
var ErrNotConfigured = errors.New("service is not configured")

// IsStatus reports whether err wraps an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// StatusCode returns the HTTP status wrapped in err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

const maxErrorBody = 512

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
