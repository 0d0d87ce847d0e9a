package providers

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryConfig bounds the retry/backoff behaviour shared by every adapter's
// HTTP calls (§4.2 "all adapters share: reqwest→Error normalisation").
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the conservative default used across adapters:
// up to 3 attempts, exponential backoff starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// RetryableHTTPStatus reports whether an HTTP status code should be retried.
func RetryableHTTPStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// RetryDo runs fn up to cfg.MaxAttempts times with exponential backoff and
// jitter, retrying on network timeouts, context.DeadlineExceeded, and any
// *HTTPError whose status RetryableHTTPStatus accepts. It gives up immediately
// on ctx cancellation and on the caller's last attempt.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == cfg.MaxAttempts-1 {
			return zero, err
		}
		if hook := RetryHookFromCtx(ctx); hook != nil {
			hook(attempt+1, cfg.MaxAttempts, err)
		}
		delay := backoffDelay(cfg, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.BaseDelay << attempt
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d/2 + jitter
}

// HTTPError is the normalised shape every adapter returns for a non-2xx
// upstream response, so RetryDo and the turn runtime's error taxonomy (§7
// Provider{subkind: http}) don't need adapter-specific parsing.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return "provider http error: status " + http.StatusText(e.Status) + ": " + e.Body
}

// ParseRetryAfter parses a Retry-After header (seconds, or an HTTP-date) into
// a duration. Returns 0 if the header is empty or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return RetryableHTTPStatus(httpErr.Status)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
