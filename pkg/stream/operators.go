package stream

import (
	"context"
	"iter"
)

// Map returns a stream with f applied to every value. Terminal events pass
// through unchanged.
func Map[T, U any](in <-chan Event[T], f func(T) U) <-chan Event[U] {
	return FilterMap(in, func(v T) (U, bool) {
		return f(v), true
	})
}

// FilterMap returns a stream with f applied to every value, keeping only the
// results f reports as present.
func FilterMap[T, U any](in <-chan Event[T], f func(T) (U, bool)) <-chan Event[U] {
	out := make(chan Event[U])
	go func() {
		defer close(out)
		for ev := range in {
			switch ev.Kind {
			case KindNext:
				if u, ok := f(ev.Value); ok {
					out <- Next(u)
				}
			case KindFailed:
				out <- Failed[U](ev.Err)
				return
			default:
				out <- Completed[U]()
				return
			}
		}
	}()
	return out
}

// IgnoreErrors returns a stream in which a Failed termination is replaced by
// normal completion.
func IgnoreErrors[T any](in <-chan Event[T]) <-chan Event[T] {
	out := make(chan Event[T])
	go func() {
		defer close(out)
		for ev := range in {
			if ev.Kind == KindFailed {
				out <- Completed[T]()
				return
			}
			out <- ev
			if ev.IsTerminal() {
				return
			}
		}
	}()
	return out
}

// Values returns an iterator over the values of a stream. Iteration ends at
// the terminal event, when ctx is done, or when the caller stops early.
// Use Err-returning sources (Pipe.Err, a connection's Err) to learn why a
// stream ended. When iteration stops before the stream closed, the rest of
// in is drained so upstream goroutines can finish.
func Values[T any](ctx context.Context, in <-chan Event[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			select {
			case <-ctx.Done():
				go Drain(in)
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if ev.IsTerminal() {
					return
				}
				if !yield(ev.Value) {
					go Drain(in)
					return
				}
			}
		}
	}
}

// Forward feeds every value of in to sink. Completion of in completes the
// sink. A Failed termination stops forwarding without completing the sink
// and is returned. Forward returns ctx.Err() if ctx ends first; the rest of
// in is then drained.
func Forward[T any](ctx context.Context, in <-chan Event[T], sink Sink[T]) error {
	for {
		select {
		case <-ctx.Done():
			go Drain(in)
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case KindNext:
				sink.Next(ev.Value)
			case KindFailed:
				return ev.Err
			default:
				sink.Complete()
				return nil
			}
		}
	}
}

// Drain discards events until in is closed.
func Drain[T any](in <-chan Event[T]) {
	for range in {
	}
}

// FromSlice returns a stream that emits each value then completes.
func FromSlice[T any](values []T) <-chan Event[T] {
	out := make(chan Event[T])
	go func() {
		defer close(out)
		for _, v := range values {
			out <- Next(v)
		}
		out <- Completed[T]()
	}()
	return out
}
