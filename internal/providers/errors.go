package providers

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no provider in the configured priority
// order passes its readiness predicate. It is surfaced before any
// generation attempt.
var ErrNoProvider = errors.New("no generation provider is configured or reachable")

// AuthError means the provider rejected our credentials. The provider is
// permanently ineligible for the remainder of the run.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError means the provider throttled the call. Retried with backoff.
type RateLimitError struct {
	Provider string
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limited"
}

// NetworkError covers transport failures, timeouts, and provider-side 5xx
// responses. Retried with backoff.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseError means the provider answered but the payload was malformed or
// empty. Not retried against the same provider.
type ResponseError struct {
	Provider string
	Message  string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: bad response: %s", e.Provider, e.Message)
}

// ExhaustedError is returned by the chain when every eligible provider has
// failed. It wraps the last provider failure.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all eligible providers failed, last error: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// classifyStatus maps an HTTP status from a provider API onto the error
// taxonomy the fallback policy understands.
func classifyStatus(provider string, status int, body []byte) error {
	switch {
	case status == 200:
		return nil
	case status == 429:
		return &RateLimitError{Provider: provider}
	case status == 401 || status == 403:
		return &AuthError{Provider: provider, Message: trimBody(body)}
	case status >= 500:
		return &NetworkError{Provider: provider, Err: fmt.Errorf("server returned %d: %s", status, trimBody(body))}
	default:
		return &ResponseError{Provider: provider, Message: fmt.Sprintf("unexpected status %d: %s", status, trimBody(body))}
	}
}

func trimBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// retryable reports whether the same provider should be retried after err.
func retryable(err error) bool {
	var rl *RateLimitError
	var ne *NetworkError
	return errors.As(err, &rl) || errors.As(err, &ne)
}
