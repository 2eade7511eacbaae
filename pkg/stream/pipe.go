package stream

import (
	"sync"
)

// Pipe is an unbounded, multi-producer, single-consumer event stream.
//
// Producers never block: events are buffered until the consumer reads them
// from Events. The first terminal event wins; Next, Fail and Complete after
// termination are ignored and report false.
//
// Done and Err let any number of observers watch for termination without
// consuming events.
//
// A consumer that stops reading calls Abandon. Buffered and later events
// are then discarded and the Events channel is closed.
type Pipe[T any] struct {
	mu         sync.Mutex
	buf        []Event[T]
	terminated bool
	abandoned  bool
	err        error
	wake       chan struct{}
	done       chan struct{}

	startOnce   sync.Once
	abandonOnce sync.Once
	abandon     chan struct{}
	out         chan Event[T]
}

// NewPipe creates an empty pipe.
func NewPipe[T any]() *Pipe[T] {
	return &Pipe[T]{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		abandon: make(chan struct{}),
		out:     make(chan Event[T]),
	}
}

// Next buffers a value event.
func (p *Pipe[T]) Next(v T) bool {
	return p.push(Next(v))
}

// Fail terminates the pipe with err.
func (p *Pipe[T]) Fail(err error) bool {
	return p.push(Failed[T](err))
}

// Complete terminates the pipe normally.
func (p *Pipe[T]) Complete() bool {
	return p.push(Completed[T]())
}

func (p *Pipe[T]) push(ev Event[T]) bool {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return false
	}
	if !p.abandoned {
		p.buf = append(p.buf, ev)
	}
	if ev.IsTerminal() {
		p.terminated = true
		p.err = ev.Err
		close(p.done)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// Events returns the receive side of the pipe. The delivery goroutine starts
// on the first call; every call returns the same channel. The channel is
// closed after the terminal event has been received.
func (p *Pipe[T]) Events() <-chan Event[T] {
	p.startOnce.Do(func() {
		go p.pump()
	})
	return p.out
}

// Abandon releases the pipe on the consumer side. Buffered events are
// dropped, later events are not buffered, and the Events channel is closed
// without a terminal event. Done and Err keep working. Idempotent.
func (p *Pipe[T]) Abandon() {
	p.abandonOnce.Do(func() {
		p.mu.Lock()
		p.abandoned = true
		clear(p.buf)
		p.buf = nil
		p.mu.Unlock()
		close(p.abandon)
	})
	// Releases a consumer waiting on an Events channel that was never
	// pumped.
	p.startOnce.Do(func() { close(p.out) })
}

// Done returns a channel that is closed when a terminal event has been
// accepted, whether or not it has been consumed yet.
func (p *Pipe[T]) Done() <-chan struct{} {
	return p.done
}

// Err returns the error of a Failed termination, or nil while the pipe is
// open or after normal completion.
func (p *Pipe[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Terminated reports whether a terminal event has been accepted.
func (p *Pipe[T]) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// pump moves buffered events to the consumer channel in order. It exits
// after delivering the terminal event or once the pipe is abandoned.
func (p *Pipe[T]) pump() {
	defer close(p.out)

	for {
		p.mu.Lock()
		if p.abandoned {
			p.mu.Unlock()
			return
		}
		if len(p.buf) == 0 {
			p.mu.Unlock()
			select {
			case <-p.wake:
			case <-p.abandon:
				return
			}
			continue
		}
		ev := p.buf[0]
		p.buf[0] = Event[T]{}
		p.buf = p.buf[1:]
		p.mu.Unlock()

		select {
		case p.out <- ev:
		case <-p.abandon:
			return
		}
		if ev.IsTerminal() {
			return
		}
	}
}

// Compile-time interface satisfaction check.
var _ Sink[int] = (*sinkAdapter[int])(nil)

// sinkAdapter exposes a Pipe as a Sink.
type sinkAdapter[T any] struct {
	p *Pipe[T]
}

func (s *sinkAdapter[T]) Next(v T)  { s.p.Next(v) }
func (s *sinkAdapter[T]) Complete() { s.p.Complete() }

// AsSink returns a Sink that feeds the pipe.
func (p *Pipe[T]) AsSink() Sink[T] {
	return &sinkAdapter[T]{p: p}
}
