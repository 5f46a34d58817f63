package wallet

import (
	"errors"
	"fmt"
)

// AuthError means the bearer token was rejected (HTTP 401/403). The caller is
// expected to obtain a new credential; retrying with the same one is pointless.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("wallet: authentication failed (status %d)", e.StatusCode)
}

// RateLimitError means the API throttled the request (HTTP 429). RetryAfter is
// the server-suggested wait in seconds, 0 when the header was absent.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("wallet: rate limit exceeded, retry after %ds", e.RetryAfter)
	}
	return "wallet: rate limit exceeded"
}

// TransportError covers network failures, timeouts and server 5xx responses.
// These are transient; the next scheduled cycle retries naturally.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wallet: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("wallet: network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the response did not match the expected shape, which
// usually indicates a remote API contract change.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wallet: unexpected response: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
