package llm

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/podiumlabs/podium/internal/core"
)

// BackoffFunc returns the delay before retry attempt n (1-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff returns a backoff function with base*2^(n-1) growth,
// capped at max, with up to jitter fraction of random variation added.
func ExponentialBackoff(base, max time.Duration, jitter float64) BackoffFunc {
	return func(attempt int) time.Duration {
		d := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
		if d > max {
			d = max
		}
		if jitter > 0 {
			d += time.Duration(rand.Float64() * jitter * float64(d))
		}
		return d
	}
}

// Policy is a bounded-retry policy for completion calls.
type Policy struct {
	// MaxAttempts is the total attempt ceiling, including the first call.
	MaxAttempts int

	// Backoff computes the delay before each retry.
	Backoff BackoffFunc

	// Retryable decides whether a failure is worth retrying.
	// Defaults to IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy returns the standard retry policy: 3 attempts, exponential
// backoff from 2s capped at 10s, 50% jitter, transient errors only.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(2*time.Second, 10*time.Second, 0.5),
		Retryable:   IsTransient,
	}
}

type retryCompleter struct {
	next   Completer
	policy Policy
}

// WithRetry wraps a Completer with the given retry policy.
func WithRetry(next Completer, policy Policy) Completer {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Retryable == nil {
		policy.Retryable = IsTransient
	}
	if policy.Backoff == nil {
		policy.Backoff = ExponentialBackoff(2*time.Second, 10*time.Second, 0.5)
	}
	return &retryCompleter{next: next, policy: policy}
}

// Complete calls the wrapped completer, retrying transient failures up to
// the attempt ceiling. Permanent failures propagate immediately.
func (r *retryCompleter) Complete(ctx context.Context, role core.Role, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.policy.Backoff(attempt - 1)
			slog.Info("Retrying completion after backoff",
				"role", role,
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"backoff", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &UpstreamError{Transient: true, Message: "aborted while waiting to retry", Err: ctx.Err()}
			}
		}

		result, err := r.next.Complete(ctx, role, prompt)
		if err == nil {
			if attempt > 1 {
				slog.Info("Completion succeeded after retry", "role", role, "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		if !r.policy.Retryable(err) {
			slog.Debug("Completion error is not retryable", "role", role, "error", err)
			return "", err
		}
		if ctx.Err() != nil {
			return "", &UpstreamError{Transient: true, Message: "call budget exhausted", Err: ctx.Err()}
		}
	}

	slog.Error("Completion failed after all attempts",
		"role", role,
		"attempts", r.policy.MaxAttempts,
		"error", lastErr,
	)
	return "", &UpstreamError{
		Transient: true,
		Message:   "exhausted retry attempts",
		Err:       lastErr,
	}
}
