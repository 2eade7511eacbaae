package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSupervisorRunning indicates Run was called twice.
var ErrSupervisorRunning = errors.New("supervisor already running")

// DialFunc creates a fresh, not yet resumed endpoint.
type DialFunc func() *Connection

// Supervisor keeps an endpoint to one service alive above the core: when
// the current endpoint faults it is cancelled and, after a backoff delay,
// replaced by a new one. Endpoints themselves never retry.
type Supervisor struct {
	mu sync.RWMutex

	// Endpoint currently in use
	current *Connection
	running bool

	backoff *Backoff

	dial DialFunc

	// Callbacks
	onConnected func(c *Connection)
	onFault     func(c *Connection, err error)
	onRetry     func(attempt int, delay time.Duration)
}

// NewSupervisor creates a supervisor that obtains endpoints from dial.
func NewSupervisor(dial DialFunc) *Supervisor {
	return NewSupervisorWithBackoff(dial, NewBackoff())
}

// NewSupervisorWithBackoff creates a supervisor with a custom backoff.
func NewSupervisorWithBackoff(dial DialFunc, b *Backoff) *Supervisor {
	return &Supervisor{
		backoff: b,
		dial:    dial,
	}
}

// Current returns the endpoint in use, or nil between endpoints.
func (s *Supervisor) Current() *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Run dials, resumes and watches endpoints until ctx is done or an
// endpoint is cancelled instead of faulting. It returns nil after a
// cancellation and ctx.Err() after ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSupervisorRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.current = nil
		s.mu.Unlock()
	}()

	for {
		c := s.dial()
		s.mu.Lock()
		s.current = c
		onConnected := s.onConnected
		s.mu.Unlock()

		started := time.Now()
		c.Resume()
		if onConnected != nil {
			onConnected(c)
		}

		select {
		case <-ctx.Done():
			c.Cancel()
			return ctx.Err()
		case <-c.Done():
		}

		err := c.Err()
		if err == nil {
			return nil
		}
		c.Cancel()

		s.mu.Lock()
		s.current = nil
		onFault, onRetry := s.onFault, s.onRetry
		s.mu.Unlock()

		if onFault != nil {
			onFault(c, err)
		}
		delay := s.backoff.Delay(err, time.Since(started))
		if onRetry != nil {
			onRetry(s.backoff.Attempts(), delay)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Attempts returns the number of retries since the last healthy endpoint.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// OnConnected sets a callback for every new endpoint, called right after
// it has been resumed.
func (s *Supervisor) OnConnected(fn func(c *Connection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = fn
}

// OnFault sets a callback for endpoint faults.
func (s *Supervisor) OnFault(fn func(c *Connection, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFault = fn
}

// OnRetry sets a callback for retry attempts.
func (s *Supervisor) OnRetry(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}
