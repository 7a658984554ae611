package shopify

import (
	"fmt"
	"time"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	ErrRateLimited ErrorKind = "rate_limited"
	ErrServer      ErrorKind = "server_error"
	ErrClient      ErrorKind = "client_error"
	ErrTransport   ErrorKind = "transport"
	ErrDecode      ErrorKind = "decode"
)

// APIError is returned for every failed admin API call. Body is truncated.
type APIError struct {
	Kind       ErrorKind
	Path       string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case ErrRateLimited:
		return fmt.Sprintf("shopify rate limit hit for %s (retry after %s)", e.Path, e.RetryAfter)
	case ErrTransport:
		return fmt.Sprintf("shopify request to %s failed: %v", e.Path, e.Err)
	case ErrDecode:
		return fmt.Sprintf("failed to decode shopify response for %s: %v", e.Path, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("shopify responded with %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("shopify responded with %d for %s: %s", e.StatusCode, e.Path, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimited, ErrServer, ErrTransport:
		return true
	}
	return false
}

// FailureClass is the label used when reporting the failure to telemetry.
func (e *APIError) FailureClass() string {
	return string(e.Kind)
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
