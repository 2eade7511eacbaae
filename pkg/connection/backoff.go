package connection

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// Default retry delays, by the fault that ended the previous endpoint.
const (
	// DefaultInterruptedDelay follows peer-interrupted and
	// termination-imminent faults. The service existed a moment ago and
	// is likely restarting.
	DefaultInterruptedDelay = 50 * time.Millisecond

	// DefaultInvalidDelay follows connection-invalid faults. Nothing is
	// listening under the name yet.
	DefaultInvalidDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps every delay.
	DefaultMaxDelay = 10 * time.Second

	// DefaultHealthyAfter is how long an endpoint must live for its fault
	// to count as a fresh start instead of another failed attempt.
	DefaultHealthyAfter = 5 * time.Second

	// DefaultJitter is the fraction of a delay that may be shaved off at
	// random, so clients of one restarted service do not dial in step.
	DefaultJitter = 0.2
)

// BackoffConfig tunes a Backoff. Zero fields take the defaults.
type BackoffConfig struct {
	Interrupted  time.Duration
	Invalid      time.Duration
	Max          time.Duration
	HealthyAfter time.Duration
	// Jitter outside [0, 1] disables jitter.
	Jitter float64
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Interrupted <= 0 {
		c.Interrupted = DefaultInterruptedDelay
	}
	if c.Invalid <= 0 {
		c.Invalid = DefaultInvalidDelay
	}
	if c.Max <= 0 {
		c.Max = DefaultMaxDelay
	}
	if c.HealthyAfter <= 0 {
		c.HealthyAfter = DefaultHealthyAfter
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = 0
	}
	return c
}

// Backoff picks the delay before a supervisor dials a replacement
// endpoint. A streak of faults doubles the delay, starting from the floor
// for the fault kind. An endpoint that lived HealthyAfter or longer ends
// the streak.
type Backoff struct {
	mu sync.Mutex

	cfg BackoffConfig

	// Faults in the current streak and the last delay before jitter.
	attempts int
	base     time.Duration

	rng *rand.Rand
}

// NewBackoff returns a Backoff with the default delays.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: DefaultJitter})
}

// NewBackoffWithConfig returns a Backoff tuned by cfg.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	return &Backoff{
		cfg: cfg.withDefaults(),
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Delay records the fault err that ended an endpoint after it lived for
// lived, and returns how long to wait before dialing again.
func (b *Backoff) Delay(err error, lived time.Duration) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if lived >= b.cfg.HealthyAfter {
		b.attempts, b.base = 0, 0
	}
	b.attempts++

	floor := b.floor(err)
	next := floor
	if b.attempts > 1 {
		next = max(2*b.base, floor)
	}
	b.base = min(next, b.cfg.Max)

	if b.cfg.Jitter == 0 {
		return b.base
	}
	return b.base - time.Duration(float64(b.base)*b.cfg.Jitter*b.rng.Float64())
}

func (b *Backoff) floor(err error) time.Duration {
	if errors.Is(err, ErrConnectionInvalid) {
		return b.cfg.Invalid
	}
	return b.cfg.Interrupted
}

// Attempts returns the number of faults in the current streak.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Reset ends the current streak.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts, b.base = 0, 0
}
