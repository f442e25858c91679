package util

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// retrySleepFunc is replaced in tests to avoid real delays
var retrySleepFunc = sleepContext

// sleepContext waits for d or until ctx is done, whichever comes first
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryTransport retries requests that fail with 429, 5xx or a transport error.
// Request bodies are replayed through GetBody, which http.NewRequest sets for
// in-memory bodies.
type RetryTransport struct {
	Base        http.RoundTripper
	MaxAttempts int           // Total attempts, including the first; <= 1 disables retries
	Backoff     time.Duration // Base delay, doubled after each failed attempt
}

// RoundTrip implements http.RoundTripper
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	ctx := req.Context()
	current := req
	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(current)

		last := attempt == attempts-1
		if last || !retryable(ctx, resp, err) {
			return resp, err
		}
		if current.Body != nil && current.GetBody == nil {
			// Body cannot be replayed
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		if err := retrySleepFunc(ctx, backoff(t.Backoff, attempt)); err != nil {
			return nil, err
		}

		next := req.Clone(ctx)
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		current = next
	}
}

func retryable(ctx context.Context, resp *http.Response, err error) bool {
	if err != nil {
		return ctx.Err() == nil && !errors.Is(err, context.Canceled)
	}
	return IsTransientStatus(resp.StatusCode)
}

// IsTransientStatus reports whether a response status is worth retrying
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	return base * (1 << attempt)
}
