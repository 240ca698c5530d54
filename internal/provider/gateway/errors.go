package gateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProviderNetwork        = errors.New("provider_network_error")
	ErrProviderServer         = errors.New("provider_server_error")
	ErrProviderInvalidRequest = errors.New("provider_invalid_request")
	ErrProviderRateLimited    = errors.New("provider_rate_limited")
)

// RateLimitedError wraps ErrProviderRateLimited with the provider's
// Retry-After hint when one was sent.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider_rate_limited: retry after %s", e.RetryAfter)
	}
	return "provider_rate_limited"
}

func (e *RateLimitedError) Unwrap() error { return ErrProviderRateLimited }
