package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koopa0/sage/internal/provider"
)

// RetryConfig bounds the backoff loop around completion calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns defaults suited to LLM API hiccups.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryable reports whether the error class is worth another attempt.
// Content-filter rejections are terminal, and anything unclassified is
// assumed to be a programming or input error rather than a hiccup.
func retryable(err error) bool {
	return errors.Is(err, provider.ErrRateLimited) ||
		errors.Is(err, provider.ErrCompletionUnavailable) ||
		errors.Is(err, provider.ErrEmbeddingUnavailable)
}

// completeWithRetry runs fn under the circuit breaker with exponential
// backoff. fn is any completion-shaped call (plan, research answer,
// synthesis). The breaker sees every attempt, so a dead provider opens it
// after a few steps instead of after MaxRetries times the plan length.
func completeWithRetry(ctx context.Context, cfg RetryConfig, breaker *CircuitBreaker, logger *slog.Logger, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := breaker.Allow(); err != nil {
			return "", err
		}

		text, err := fn(ctx)
		if err == nil {
			breaker.Success()
			return text, nil
		}
		breaker.Failure()
		lastErr = err

		if !retryable(err) {
			return "", err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return "", fmt.Errorf("after %d retries (elapsed %v): %w",
		cfg.MaxRetries, time.Since(start), lastErr)
}
