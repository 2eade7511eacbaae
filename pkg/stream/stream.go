// Package stream provides the small event-stream vocabulary used by
// connections: typed events, an unbounded single-consumer pipe, a sink
// interface for outbound values, and a handful of operators.
//
// A stream delivers any number of Next events followed by at most one
// terminal event: Failed (carrying an error) or Completed. Nothing is
// delivered after a terminal event and a terminated stream cannot be
// restarted.
//
// Event channels are plain Go channels. The channel is closed right after
// the terminal event has been delivered, so a consumer may range over it:
//
//	for ev := range conn.Inbound() {
//	    switch ev.Kind {
//	    case stream.KindNext:
//	        handle(ev.Value)
//	    case stream.KindFailed:
//	        log.Printf("stream failed: %v", ev.Err)
//	    }
//	}
package stream

// Kind classifies an event.
type Kind uint8

const (
	// KindNext carries a value.
	KindNext Kind = iota
	// KindFailed terminates the stream with an error.
	KindFailed
	// KindCompleted terminates the stream normally.
	KindCompleted
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNext:
		return "NEXT"
	case KindFailed:
		return "FAILED"
	case KindCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Event is one item of a stream.
type Event[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Next returns a value event.
func Next[T any](v T) Event[T] {
	return Event[T]{Kind: KindNext, Value: v}
}

// Failed returns a terminal error event.
func Failed[T any](err error) Event[T] {
	return Event[T]{Kind: KindFailed, Err: err}
}

// Completed returns a terminal completion event.
func Completed[T any]() Event[T] {
	return Event[T]{Kind: KindCompleted}
}

// IsTerminal reports whether the event ends its stream.
func (e Event[T]) IsTerminal() bool {
	return e.Kind != KindNext
}

// Sink receives a sequence of values optionally followed by completion.
// Implementations must be safe for concurrent use.
type Sink[T any] interface {
	// Next submits one value.
	Next(v T)

	// Complete signals that no more values will be submitted.
	Complete()
}

// SinkFunc adapts a pair of functions to a Sink. A nil complete is a no-op.
type SinkFunc[T any] struct {
	OnNext     func(T)
	OnComplete func()
}

// Next calls OnNext.
func (s SinkFunc[T]) Next(v T) {
	if s.OnNext != nil {
		s.OnNext(v)
	}
}

// Complete calls OnComplete.
func (s SinkFunc[T]) Complete() {
	if s.OnComplete != nil {
		s.OnComplete()
	}
}
