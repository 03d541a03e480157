package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/podiumlabs/podium/internal/core"
)

// fakeCompleter returns scripted errors before succeeding.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	failures []error
}

func (f *fakeCompleter) Complete(_ context.Context, _ core.Role, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= len(f.failures) {
		return "", f.failures[f.calls-1]
	}
	return "ok", nil
}

// noBackoff keeps retry tests fast.
func noBackoff(int) time.Duration { return 0 }

func TestRetryTransientThenSuccess(t *testing.T) {
	transient := &UpstreamError{Transient: true, StatusCode: 503, Message: "service unavailable"}
	fake := &fakeCompleter{failures: []error{transient, transient}}
	c := WithRetry(fake, Policy{MaxAttempts: 3, Backoff: noBackoff})

	result, err := c.Complete(context.Background(), core.RolePro, "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result mismatch: got %q, want %q", result, "ok")
	}
	if fake.calls != 3 {
		t.Errorf("call count mismatch: got %d, want 3", fake.calls)
	}
}

func TestRetryPermanentFailsImmediately(t *testing.T) {
	permanent := &UpstreamError{StatusCode: 401, Message: "invalid api key"}
	fake := &fakeCompleter{failures: []error{permanent, permanent, permanent}}
	c := WithRetry(fake, Policy{MaxAttempts: 3, Backoff: noBackoff})

	_, err := c.Complete(context.Background(), core.RolePro, "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Errorf("call count mismatch: got %d, want 1", fake.calls)
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Transient {
		t.Errorf("expected permanent upstream error, got %v", err)
	}
}

func TestRetryExhausted(t *testing.T) {
	transient := &UpstreamError{Transient: true, StatusCode: 429, Message: "rate limited"}
	fake := &fakeCompleter{failures: []error{transient, transient, transient}}
	c := WithRetry(fake, Policy{MaxAttempts: 3, Backoff: noBackoff})

	_, err := c.Complete(context.Background(), core.RolePro, "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 3 {
		t.Errorf("call count mismatch: got %d, want 3", fake.calls)
	}
	// The wrapping error stays transient and keeps the last cause.
	if !IsTransient(err) {
		t.Errorf("exhausted error should be transient: %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if !errors.Is(err, transient) {
		t.Error("last cause not wrapped")
	}
}

func TestRetryContextCancelledDuringBackoff(t *testing.T) {
	transient := &UpstreamError{Transient: true, StatusCode: 500, Message: "boom"}
	fake := &fakeCompleter{failures: []error{transient, transient, transient}}
	c := WithRetry(fake, Policy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Minute },
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Complete(ctx, core.RolePro, "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation did not interrupt the backoff wait: %v", elapsed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("call count mismatch: got %d, want 1", fake.calls)
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(2*time.Second, 10*time.Second, 0)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{8, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := backoff(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialBackoffJitter(t *testing.T) {
	backoff := ExponentialBackoff(2*time.Second, 10*time.Second, 0.5)
	for i := 0; i < 50; i++ {
		d := backoff(1)
		if d < 2*time.Second || d > 3*time.Second {
			t.Fatalf("jittered delay out of range: %v", d)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&UpstreamError{Transient: true}) {
		t.Error("transient upstream error not recognized")
	}
	if IsTransient(&UpstreamError{Transient: false}) {
		t.Error("permanent upstream error misclassified")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error misclassified as transient")
	}
	// Classification survives wrapping.
	wrapped := &UpstreamError{Transient: true, Message: "outer", Err: errors.New("inner")}
	if !IsTransient(wrapped) {
		t.Error("wrapped transient error not recognized")
	}
}
