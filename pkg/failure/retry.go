package failure

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy configures the exponential-backoff-with-jitter retry utility
// that wraps any collaborator call (LLM, blob, docs). Grounded on
// go-retry usage in the jordigilh-kubernaut pack and the teacher's own
// retry-flavored recovery logic in pkg/agent/controller/iterating.go
// (buildRetryMessage, partial-output recovery) — see SPEC_FULL.md
// Supplemented Features 1.
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries uint64
	JitterPct  uint64
}

// DefaultRetryPolicy matches the teacher's general retry posture: short
// base delay, capped total attempts, enough jitter to avoid thundering
// herds against the LLM service.
var DefaultRetryPolicy = RetryPolicy{
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   10 * time.Second,
	MaxRetries: 3,
	JitterPct:  20,
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithMaxRetries(p.MaxRetries, b)
	b = retry.WithJitterPercent(p.JitterPct, b)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	return b
}

// Do runs fn under the policy's backoff schedule. fn should return an
// error satisfying RetryableError (e.g. via Classify) for transient
// failures it wants retried; any other error is returned immediately
// without further attempts. The immediate-retry channel (PhaseState's
// RequiresImmediateRetry) is distinct from this and never crosses with
// this generic exponential-backoff path (spec.md §4.6).
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	b := policy.backoff()
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if Classify(err) == Retryable {
			return retry.RetryableError(err)
		}
		return err
	})
}
