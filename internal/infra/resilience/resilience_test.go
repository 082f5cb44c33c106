package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/cardpay-ledger-go/internal/infra/resilience"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	attempts := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	lastErr := errors.New("still broken")
	attempts := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		return lastErr
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 { // initial attempt + 2 retries
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 10, InitialBackoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- resilience.RetryWithBackoff(ctx, cfg, func() error {
			attempts++
			return errors.New("fail")
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not respect cancellation")
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")

	failing := func() (any, error) { return nil, errors.New("down") }
	for i := 0; i < 10; i++ {
		cb.Execute(failing)
	}

	_, err := cb.Execute(func() (any, error) { return nil, nil })
	if err == nil {
		t.Fatal("expected the open breaker to reject the call")
	}
}
