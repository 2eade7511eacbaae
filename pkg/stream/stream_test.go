package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func collect[T any](t *testing.T, in <-chan Event[T]) []Event[T] {
	t.Helper()
	var events []Event[T]
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close, got %d events", len(events))
		}
	}
}

func TestPipeDeliversInOrderThenCloses(t *testing.T) {
	p := NewPipe[int]()
	for i := 0; i < 5; i++ {
		p.Next(i)
	}
	p.Complete()

	events := collect(t, p.Events())
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	for i := 0; i < 5; i++ {
		if events[i].Kind != KindNext || events[i].Value != i {
			t.Errorf("event %d: got %+v", i, events[i])
		}
	}
	if events[5].Kind != KindCompleted {
		t.Errorf("expected completion, got %v", events[5].Kind)
	}
}

func TestPipeFirstTerminalWins(t *testing.T) {
	p := NewPipe[string]()
	boom := errors.New("boom")

	if !p.Fail(boom) {
		t.Fatal("first Fail should be accepted")
	}
	if p.Complete() {
		t.Error("Complete after Fail should be ignored")
	}
	if p.Next("late") {
		t.Error("Next after Fail should be ignored")
	}

	events := collect(t, p.Events())
	if len(events) != 1 || events[0].Kind != KindFailed || !errors.Is(events[0].Err, boom) {
		t.Fatalf("unexpected events: %+v", events)
	}
	if !errors.Is(p.Err(), boom) {
		t.Errorf("Err: expected boom, got %v", p.Err())
	}
}

func TestPipeDoneBeforeConsumption(t *testing.T) {
	p := NewPipe[int]()
	p.Next(1)
	p.Complete()

	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed once a terminal event is accepted")
	}
	if p.Err() != nil {
		t.Errorf("Err after completion: expected nil, got %v", p.Err())
	}
	if !p.Terminated() {
		t.Error("Terminated should be true")
	}
}

func TestPipeConcurrentProducers(t *testing.T) {
	p := NewPipe[int]()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Next(j)
			}
		}()
	}
	wg.Wait()
	p.Complete()

	events := collect(t, p.Events())
	if len(events) != 401 {
		t.Errorf("expected 401 events, got %d", len(events))
	}
}

func TestPipeEventsReturnsSameChannel(t *testing.T) {
	p := NewPipe[int]()
	if p.Events() != p.Events() {
		t.Error("Events should return the same channel on every call")
	}
	p.Complete()
}

func TestFilterMap(t *testing.T) {
	in := FromSlice([]string{"a", "", "b"})
	out := FilterMap(in, func(s string) (string, bool) {
		if s == "" {
			return "", false
		}
		return strings.ToUpper(s), true
	})

	events := collect(t, out)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Value != "A" || events[1].Value != "B" {
		t.Errorf("unexpected values: %+v", events)
	}
	if events[2].Kind != KindCompleted {
		t.Errorf("expected completion, got %v", events[2].Kind)
	}
}

func TestMapPassesFailure(t *testing.T) {
	p := NewPipe[int]()
	p.Next(2)
	p.Fail(errors.New("broken"))

	events := collect(t, Map(p.Events(), func(v int) int { return v * 10 }))
	if len(events) != 2 || events[0].Value != 20 || events[1].Kind != KindFailed {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestIgnoreErrors(t *testing.T) {
	p := NewPipe[int]()
	p.Next(1)
	p.Fail(errors.New("broken"))

	events := collect(t, IgnoreErrors(p.Events()))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Kind != KindCompleted {
		t.Errorf("failure should become completion, got %v", events[1].Kind)
	}
}

func TestValuesStopsAtTerminal(t *testing.T) {
	var got []int
	for v := range Values(context.Background(), FromSlice([]int{1, 2, 3})) {
		got = append(got, v)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 values, got %v", got)
	}
}

func TestValuesStopsOnContext(t *testing.T) {
	p := NewPipe[int]()
	ctx, cancel := context.WithCancel(context.Background())
	p.Next(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range Values(ctx, p.Events()) {
			cancel()
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Values did not stop after context cancellation")
	}
}

func TestForward(t *testing.T) {
	var (
		got       []int
		completed bool
	)
	sink := SinkFunc[int]{
		OnNext:     func(v int) { got = append(got, v) },
		OnComplete: func() { completed = true },
	}

	if err := Forward(context.Background(), FromSlice([]int{7, 8}), sink); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if len(got) != 2 || !completed {
		t.Errorf("got %v completed=%v", got, completed)
	}
}

func TestForwardFailureDoesNotComplete(t *testing.T) {
	p := NewPipe[int]()
	boom := errors.New("boom")
	p.Fail(boom)

	completed := false
	err := Forward(context.Background(), p.Events(), SinkFunc[int]{OnComplete: func() { completed = true }})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if completed {
		t.Error("sink should not be completed after a failure")
	}
}

func TestPipeAsSink(t *testing.T) {
	p := NewPipe[int]()
	s := p.AsSink()
	s.Next(3)
	s.Complete()

	events := collect(t, p.Events())
	if len(events) != 2 || events[0].Value != 3 || events[1].Kind != KindCompleted {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestPipeAbandonStopsPump(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewPipe[int]()
	p.Next(1)
	p.Next(2)
	events := p.Events()
	<-events

	p.Abandon()
	p.Abandon()
	if !p.Next(3) {
		t.Error("Next after Abandon must still be accepted")
	}
	p.Complete()

	for ev := range events {
		if ev.Kind == KindNext && ev.Value == 3 {
			t.Error("value pushed after Abandon was delivered")
		}
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done not closed after Complete")
	}
}

func TestPipeAbandonBeforeEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewPipe[int]()
	p.Next(1)
	p.Abandon()
	if _, ok := <-p.Events(); ok {
		t.Error("Events of an abandoned pipe delivered an event")
	}
}

func TestValuesEarlyStopDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for range 20 {
		p := NewPipe[int]()
		for i := range 5 {
			p.Next(i)
		}
		strs := Map(FilterMap(p.Events(), func(n int) (int, bool) { return n, n%2 == 0 }), func(n int) string {
			return strings.Repeat("x", n)
		})
		for range Values(context.Background(), strs) {
			break
		}
		p.Next(10)
		p.Complete()
	}
}

func TestValuesContextDoneDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewPipe[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range Values(ctx, IgnoreErrors(p.Events())) {
		t.Fatal("no values expected")
	}
	p.Next(1)
	p.Fail(errors.New("late"))
}

func TestForwardContextDoneDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewPipe[int]()
	p.Next(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Forward(ctx, p.Events(), SinkFunc[int]{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Forward = %v, want context.Canceled", err)
	}
	p.Complete()
}
