package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/nuri428/ontology-chat/internal/coreerr"
)

// Strategy names a backoff shape (spec.md §4.2).
type Strategy string

const (
	StrategyFixed             Strategy = "fixed"
	StrategyLinear            Strategy = "linear"
	StrategyExponential       Strategy = "exponential"
	StrategyExponentialJitter Strategy = "exponential_jitter"
)

// RetryPolicy configures a Retrier. Retryable defaults to coreerr.Retryable
// (Timeout and BackendUnavailable only) when nil.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Strategy    Strategy
	Retryable   func(error) bool
}

// Retrier retries a call around a breaker using one of four backoff
// strategies. It never extends the caller's deadline: a context that
// expires mid-backoff aborts the retry loop immediately (§4.2).
type Retrier struct {
	policy RetryPolicy
	rng    *rand.Rand
}

// NewRetrier builds a Retrier. rng supplies backoff jitter; pass a
// context-seeded *rand.Rand (see internal/workflow) for deterministic
// replay, or nil for a process-local source.
func NewRetrier(policy RetryPolicy, rng *rand.Rand) *Retrier {
	if policy.Retryable == nil {
		policy.Retryable = coreerr.Retryable
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Retrier{policy: policy, rng: rng}
}

// Do runs fn, retrying on retryable failures per the configured strategy up
// to MaxAttempts total attempts (the first attempt plus MaxAttempts-1
// retries).
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, attempt-1); err != nil {
				return lastErr
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !r.policy.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (r *Retrier) sleep(ctx context.Context, attempt int) error {
	delay := r.backoff(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff computes the delay before the (attempt+1)th retry, following
// graph/policy.go's computeBackoff shape (base*2^attempt capped at
// maxDelay, plus jitter in [0, base) for the jittered strategy).
func (r *Retrier) backoff(attempt int) time.Duration {
	base := r.policy.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	maxDelay := r.policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = base
	}

	switch r.policy.Strategy {
	case StrategyFixed:
		return capDelay(base, maxDelay)
	case StrategyLinear:
		return capDelay(base*time.Duration(attempt+1), maxDelay)
	case StrategyExponentialJitter:
		d := capDelay(base*time.Duration(int64(1)<<uint(attempt)), maxDelay)
		return d + time.Duration(r.rng.Int63n(int64(base)))
	case StrategyExponential:
		fallthrough
	default:
		return capDelay(base*time.Duration(int64(1)<<uint(attempt)), maxDelay)
	}
}

func capDelay(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
