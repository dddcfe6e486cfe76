// Package resilience provides reliability patterns for external capability calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a consecutive-failure circuit breaker. After threshold failures
// it rejects calls for the cooldown period, then admits a single probe; the
// probe's result decides between closing and re-opening.
type Breaker struct {
	mu        sync.Mutex
	state     state
	streak    int
	threshold int
	cooldown  time.Duration
	trippedAt time.Time
	now       func() time.Time // injectable clock for tests
}

// NewBreaker creates a Breaker that trips after maxFailures consecutive
// failures and cools down for timeout before probing again.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		threshold: maxFailures,
		cooldown:  timeout,
		now:       time.Now,
	}
}

// Execute runs fn unless the breaker is open, and feeds the outcome back
// into the breaker state.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()
	b.observe(err)
	return err
}

// admit decides whether a call may proceed, moving open to half-open once
// the cooldown has elapsed.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if b.now().Sub(b.trippedAt) < b.cooldown {
			return false
		}
		b.state = stateHalfOpen
	}
	return true
}

func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.streak = 0
		b.state = stateClosed
		return
	}

	b.streak++
	if b.state == stateHalfOpen || b.streak >= b.threshold {
		b.state = stateOpen
		b.trippedAt = b.now()
	}
}
