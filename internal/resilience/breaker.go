// Package resilience provides per-backend circuit breakers and retry with
// backoff (spec.md §4.2, component C2).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nuri428/ontology-chat/internal/coreerr"
)

// State is the externally observable circuit-breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// BreakerState is a point-in-time snapshot of a named breaker, exposed for
// the observability gauge (`breaker_state{name}`) and for degradation-level
// derivation (internal/degrade).
type BreakerState struct {
	Name                string
	State               State
	ConsecutiveFailures int
}

// Settings configures one named breaker per spec.md §4.2.
type Settings struct {
	FailureThreshold         int
	RecoveryTimeout          time.Duration
	HalfOpenSuccessThreshold int
	CallTimeout              time.Duration
}

// Breaker wraps gobreaker.CircuitBreaker with the three-state machine named
// by spec.md §4.2: CLOSED executes and counts consecutive failures toward
// FailureThreshold; OPEN fails fast with CircuitOpen until RecoveryTimeout
// elapses; HALF_OPEN admits HalfOpenSuccessThreshold probes, closing on that
// many consecutive successes and reopening on any failure.
type Breaker struct {
	name        string
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
}

// NewBreaker builds a Breaker named for one backend (graph, search, market,
// lm, embedder — spec.md §4.2's "one instance per named backend").
func NewBreaker(name string, s Settings) *Breaker {
	threshold := uint32(s.FailureThreshold)
	halfOpenMax := uint32(s.HalfOpenSuccessThreshold)
	if halfOpenMax == 0 {
		halfOpenMax = 1
	}

	cbSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenMax,
		Interval:    0,
		Timeout:     s.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}

	return &Breaker{
		name:        name,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		callTimeout: s.CallTimeout,
	}
}

// Execute runs fn under the breaker's call timeout, short-circuiting with a
// CircuitOpen coreerr.Error when the breaker is OPEN or when HALF_OPEN has
// no free probe slots.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx := ctx
	var cancel context.CancelFunc
	if b.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(callCtx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return coreerr.New(coreerr.KindCircuitOpen, b.name, "circuit open", err)
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return coreerr.New(coreerr.KindTimeout, b.name, "call timeout exceeded", err)
	}
	return err
}

// State returns the current snapshot for observability and degradation.
func (b *Breaker) State() BreakerState {
	counts := b.cb.Counts()
	var s State
	switch b.cb.State() {
	case gobreaker.StateClosed:
		s = StateClosed
	case gobreaker.StateOpen:
		s = StateOpen
	case gobreaker.StateHalfOpen:
		s = StateHalfOpen
	}
	return BreakerState{
		Name:                b.name,
		State:               s,
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
	}
}

// Name returns the breaker's backend name.
func (b *Breaker) Name() string { return b.name }
