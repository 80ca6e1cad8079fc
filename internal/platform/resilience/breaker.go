// internal/platform/resilience/breaker.go
package resilience

import (
	"sync"
	"time"

	"sentinel/internal/platform/errors"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State of a Breaker.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected until the cooldown ends
	StateHalfOpen              // a few trial calls decide whether to close again
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Options configures a Breaker. Zero values get defaults in New.
type Options struct {
	Threshold   int           // consecutive failures that open the circuit (5)
	Cooldown    time.Duration // open time before trial calls (60s)
	HalfOpenMax int           // successful trials needed to close (1)

	// IsFailure decides which errors count against the upstream.
	// Default: errors.IsRetryable (timeouts, 5xx, 429, connection errors).
	IsFailure func(error) bool
	Now       func() time.Time
}

// Breaker stops hammering an upstream that keeps failing. It is shared across
// loop cycles so an outage seen in one cycle short-circuits the next.
type Breaker struct {
	opts Options

	mu        sync.Mutex
	state     State
	failures  int
	trials    int
	successes int
	openedAt  time.Time
}

func New(opts Options) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 60 * time.Second
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = 1
	}
	if opts.IsFailure == nil {
		opts.IsFailure = errors.IsRetryable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Breaker{opts: opts}
}

// Do runs fn unless the circuit is open. Errors that IsFailure rejects are
// returned untouched and do not move the breaker.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.opts.Now().Sub(b.openedAt) < b.opts.Cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.trials, b.successes = 0, 0
		fallthrough
	case StateHalfOpen:
		if b.trials >= b.opts.HalfOpenMax {
			return false
		}
		b.trials++
		return true
	default:
		return true
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.opts.IsFailure(err)
	switch b.state {
	case StateHalfOpen:
		if failed {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.opts.HalfOpenMax {
			b.state = StateClosed
			b.failures = 0
		}
	case StateClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.opts.Threshold {
			b.trip()
		}
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.opts.Now()
	b.failures = 0
}

// State reports the current state without moving it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
