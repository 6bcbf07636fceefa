package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- jitter to prevent thundering herd

	// Classify decides whether an error is worth another attempt.
	// Nil means IsRetryable.
	Classify func(error) bool
}

// QuickConfig returns a profile for lightweight calls (health checks,
// single-row reads): 3 attempts with 50ms initial delay, capped at 1s.
func QuickConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// DatabaseConfig returns a profile for durable operations like mutation
// application: 5 attempts with 200ms initial delay, capped at 10s, with
// wider jitter since concurrent seeders tend to collide on the same tables.
func DatabaseConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}
}

// applyJitter adds random jitter to a delay to prevent thundering herd.
// Jitter is calculated as: delay +/- (delay * jitterFactor * random(-1 to +1))
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn with exponential backoff, retrying only errors the
// configured classifier deems transient. The op name is carried in the
// exhaustion error for diagnostics.
//
// Context cancellation always wins: a pending backoff wait is interrupted
// and ctx.Err() is returned rather than a retry-exhausted error.
func Do(ctx context.Context, op string, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, op, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value alongside the error.
func DoWithResult[T any](ctx context.Context, op string, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = QuickConfig()
	}
	classify := cfg.Classify
	if classify == nil {
		classify = IsRetryable
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		// Permanent failures (bad SQL, auth, cancellation) are not worth
		// another attempt.
		if !classify(err) {
			return result, err
		}

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, fmt.Errorf("%s: max attempts (%d) exceeded: %w", op, cfg.MaxAttempts, lastErr)
}

// RetryableError is an interface for errors that explicitly declare their
// retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable determines if an error is transient and worth retrying.
// This prevents wasting retries on permanent failures (auth errors, bad
// SQL, malformed seed data).
//
// The function checks errors in this order:
//  1. If the error implements RetryableError, use its IsRetryable() method
//  2. gRPC status codes: Unavailable, ResourceExhausted, DeadlineExceeded
//     and Internal are transient; Canceled is never retried
//  3. Otherwise, pattern-match against known transport error strings
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	if err == context.Canceled {
		// Caller-initiated cancellation; retrying would just burn the
		// remaining attempts against a dead context.
		return false
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return true
	case codes.Canceled:
		return false
	case codes.Unknown:
		// Fall through to pattern matching for errors that lost their
		// status code crossing a library boundary.
	default:
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"timed out",
		"temporary failure",
		"network is unreachable",
		"transport is closing",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
