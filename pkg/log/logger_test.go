package log

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{ConnectionID: "x"})

	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	rec := &recordingLogger{}
	if OrNoop(rec) != rec {
		t.Error("OrNoop should return a non-nil logger unchanged")
	}
}

func TestMultiLogger(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	if m.Len() != 2 {
		t.Fatalf("expected nil logger to be skipped, Len() = %d", m.Len())
	}

	m.Log(Event{ConnectionID: "1"})
	m.Log(Event{ConnectionID: "2"})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("expected 2 events each, got %d and %d", a.count(), b.count())
	}
}

func TestSummarize(t *testing.T) {
	short := "hello"
	if Summarize(short) != short {
		t.Errorf("short string changed: %q", Summarize(short))
	}

	long := strings.Repeat("é", MaxSummaryLen+10)
	got := Summarize(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got suffix %q", got[len(got)-3:])
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != MaxSummaryLen {
		t.Errorf("expected %d runes, got %d", MaxSummaryLen, n)
	}
	if !utf8.ValidString(got) {
		t.Error("summary split a rune")
	}
}
