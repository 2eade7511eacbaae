package log

import "unicode/utf8"

// MaxSummaryLen bounds MessageEvent.Summary in runes.
const MaxSummaryLen = 256

// Logger is the interface applications implement to receive protocol log events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe.
	// Log is called from endpoint queues; blocking stalls the endpoint.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or NoopLogger if l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Summarize shortens s to MaxSummaryLen runes, marking the cut with "...".
func Summarize(s string) string {
	if utf8.RuneCountInString(s) <= MaxSummaryLen {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxSummaryLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
