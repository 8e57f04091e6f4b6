package apiclient

import (
	"context"
	"errors"
	"time"

	"weathergo/internal/core"
)

// RetryPolicy holds the per-failure-class retry budgets.
//
// Rate-limit backoff uses long fixed steps because the upstream throttles by
// wall-clock windows, not load; server-error backoff is exponential because
// transient server load should clear quickly. The budgets are independent so
// a flapping rate limit cannot exhaust the budget meant for real outages.
type RetryPolicy struct {
	// RateLimitDelays is the fixed escalating delay table for 429 responses.
	// The retry budget for the class is the length of the table.
	RateLimitDelays []time.Duration

	// ServerRetries is the retry budget for 5xx responses.
	ServerRetries int

	// ServerInitialDelay is the base for exponential 5xx backoff
	// (delay = initial * 2^attempt).
	ServerInitialDelay time.Duration
}

// DefaultRetryPolicy returns the standard policy: three fixed rate-limit
// steps of 5s/10s/20s and three exponential server-error retries from 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitDelays:    []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		ServerRetries:      3,
		ServerInitialDelay: 1 * time.Second,
	}
}

// Retryer wraps a remote operation with classification-driven retries.
// It is stateless across calls; attempt counters live on the stack of one Do.
type Retryer struct {
	provider string
	policy   RetryPolicy
	hooks    Hooks

	// sleep is replaced in tests to record delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer creates a retry executor for the named provider.
func NewRetryer(provider string, policy RetryPolicy, hooks Hooks) *Retryer {
	return &Retryer{
		provider: provider,
		policy:   policy,
		hooks:    hooks,
		sleep:    sleepContext,
	}
}

// Do invokes op, retrying according to the failure classification:
//
//   - rate-limited (429): retried up to len(RateLimitDelays) times, sleeping
//     the next fixed table entry before each retry
//   - upstream server error (5xx): retried up to ServerRetries times with
//     exponential backoff
//   - not-found, network errors and everything else: returned immediately
//
// The last classified error is returned when a budget is exhausted. Sleeps
// are cancelled by ctx, which is the only bound on total retry latency.
func (r *Retryer) Do(ctx context.Context, op func(context.Context) error) error {
	var rateAttempts, serverAttempts int

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var apiErr *core.APIError
		if !errors.As(err, &apiErr) {
			return err
		}

		var delay time.Duration
		switch {
		case apiErr.Type == core.ErrorTypeRateLimited:
			if rateAttempts >= len(r.policy.RateLimitDelays) {
				return err
			}
			delay = r.policy.RateLimitDelays[rateAttempts]
			rateAttempts++

		case apiErr.Type == core.ErrorTypeUpstreamServer && apiErr.StatusCode >= 500:
			if serverAttempts >= r.policy.ServerRetries {
				return err
			}
			delay = r.policy.ServerInitialDelay << serverAttempts
			serverAttempts++

		default:
			return err
		}

		if r.hooks.OnRetry != nil {
			r.hooks.OnRetry(r.provider, apiErr.Type)
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
