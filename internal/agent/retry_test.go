package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koopa0/sage/internal/log"
	"github.com/koopa0/sage/internal/provider"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestCompleteWithRetrySucceedsFirstTry(t *testing.T) {
	var calls atomic.Int32
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	got, err := completeWithRetry(context.Background(), fastRetryConfig(), breaker, log.NewNop(), func(context.Context) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("completeWithRetry() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCompleteWithRetryRecoversFromRateLimit(t *testing.T) {
	var calls atomic.Int32
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	got, err := completeWithRetry(context.Background(), fastRetryConfig(), breaker, log.NewNop(), func(context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", fmt.Errorf("%w: 429", provider.ErrRateLimited)
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("completeWithRetry() error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q, want %q", got, "recovered")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteWithRetryStopsOnTerminalError(t *testing.T) {
	var calls atomic.Int32
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	_, err := completeWithRetry(context.Background(), fastRetryConfig(), breaker, log.NewNop(), func(context.Context) (string, error) {
		calls.Add(1)
		return "", provider.ErrContentFiltered
	})
	if !errors.Is(err, provider.ErrContentFiltered) {
		t.Fatalf("error = %v, want ErrContentFiltered", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (content filter is not retryable)", calls.Load())
	}
}

func TestCompleteWithRetryExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	cfg := fastRetryConfig()
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	_, err := completeWithRetry(context.Background(), cfg, breaker, log.NewNop(), func(context.Context) (string, error) {
		calls.Add(1)
		return "", provider.ErrCompletionUnavailable
	})
	if !errors.Is(err, provider.ErrCompletionUnavailable) {
		t.Fatalf("error = %v, want ErrCompletionUnavailable", err)
	}
	if got := calls.Load(); got != int32(cfg.MaxRetries)+1 {
		t.Errorf("calls = %d, want %d", got, cfg.MaxRetries+1)
	}
}

func TestCompleteWithRetryRespectsOpenBreaker(t *testing.T) {
	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Hour,
	})
	breaker.Failure()

	_, err := completeWithRetry(context.Background(), fastRetryConfig(), breaker, log.NewNop(), func(context.Context) (string, error) {
		t.Fatal("fn must not be called while the breaker is open")
		return "", nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestCompleteWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	cfg := RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Minute, // never elapses; cancel wins
		MaxInterval:     time.Minute,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := completeWithRetry(ctx, cfg, breaker, log.NewNop(), func(context.Context) (string, error) {
		return "", provider.ErrRateLimited
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
