// Package llm wraps HTTP access to an upstream LLM completion API.
//
// The upstream is unreliable; errors are classified at this boundary as
// transient or permanent so that callers never have to inspect HTTP
// details. Retry is handled here as well (see Policy); the debate engine
// itself never retries.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/podiumlabs/podium/internal/core"
)

// Completer generates text for a role-specific prompt.
type Completer interface {
	Complete(ctx context.Context, role core.Role, prompt string) (string, error)
}

// UpstreamError represents a failure from the completion API, classified
// as transient (worth retrying) or permanent.
type UpstreamError struct {
	// Transient indicates the error is expected to resolve on retry
	// (timeout, rate limit, 5xx).
	Transient bool

	// StatusCode is the HTTP status, if the request got that far.
	StatusCode int

	Message string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream error (%s): %s: %v", kind, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error (%s): %s", kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient upstream error.
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient
	}
	return false
}
