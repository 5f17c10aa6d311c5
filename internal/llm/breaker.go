package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClient wraps a Client in a circuit breaker, same shape as
// internal/fetch's CollyFetcher breaker: a handful of consecutive failures
// trips it, and it stays open for a cooldown window before probing again.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps inner with a circuit breaker named after the
// provider, so /health can report per-provider state.
func NewBreakerClient(inner Client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BreakerClient{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (c *BreakerClient) Name() string { return c.inner.Name() }

func (c *BreakerClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &LLMError{
				Err:         ErrProviderUnavailable,
				Provider:    c.Name(),
				UserMessage: "AI provider circuit breaker open",
				Retryable:   true,
			}
		}
		return nil, err
	}
	return res.(*CompletionResult), nil
}

// State reports the breaker's current state for health reporting.
func (c *BreakerClient) State() string {
	return c.breaker.State().String()
}
