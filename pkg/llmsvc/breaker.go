package llmsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClient wraps a Client with a circuit breaker, grounded on
// jordigilh-kubernaut's use of github.com/sony/gobreaker. When the
// breaker trips, the Step Failure Classifier (pkg/failure) can report
// retryable immediately without burning the attempt budget on a call that
// will fail fast (see SPEC_FULL.md Supplemented Features 2).
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps inner with a breaker named for telemetry/log
// correlation. It opens after 5 consecutive failures and probes again
// after 30 seconds.
func NewBreakerClient(name string, inner Client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerClient{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

type breakerResult struct {
	message Message
	usage   TokenUsage
}

func (b *BreakerClient) GetChatMessageContent(ctx context.Context, history []Message, settings Settings) (Message, TokenUsage, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		msg, usage, err := b.inner.GetChatMessageContent(ctx, history, settings)
		if err != nil {
			return nil, err
		}
		return breakerResult{message: msg, usage: usage}, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return Message{}, TokenUsage{}, &RetryableError{Err: fmt.Errorf("llm circuit breaker open: %w", err)}
		}
		return Message{}, TokenUsage{}, err
	}
	r := result.(breakerResult)
	return r.message, r.usage, nil
}
