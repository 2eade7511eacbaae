package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/transport"
	"github.com/indragiek/reactivexpc/pkg/transport/memory"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// reverser serves name on n, answering every string with its reverse.
func reverser(t *testing.T, n *memory.Network, name string) <-chan *connection.Connection {
	t.Helper()
	a, err := n.Listen(name)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	accepted := make(chan *connection.Connection, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.AcceptLoop(ctx, func(tc transport.Conn) {
			c := connection.Wrap(connection.Config{}, tc)
			replies := stream.Map(stream.FilterMap(c.Inbound(), wire.UnpackString), func(s string) wire.Value {
				r := []rune(s)
				for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
					r[i], r[j] = r[j], r[i]
				}
				return wire.String(string(r))
			})
			go stream.Forward(context.Background(), replies, c.Outbound())
			c.Resume()
			accepted <- c
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return accepted
}

func startSession(t *testing.T, n *memory.Network, out *syncBuffer) *session {
	t.Helper()
	dial := func() *connection.Connection {
		return connection.New(connection.Config{Transport: n.Factory()}, "rev")
	}
	b := connection.NewBackoffWithConfig(connection.BackoffConfig{Interrupted: 5 * time.Millisecond, Invalid: 5 * time.Millisecond, Max: 20 * time.Millisecond})
	s := newSession(dial, b, out)
	s.replies = make(chan string, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func waitReply(t *testing.T, s *session, want string) {
	t.Helper()
	select {
	case got := <-s.replies:
		if got != want {
			t.Fatalf("reply = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func waitConnected(t *testing.T, s *session) *connection.Connection {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c := s.sup.Current(); c != nil && c.State() == connection.StateResumed {
			return c
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session never connected")
	return nil
}

func TestSessionSendsLines(t *testing.T) {
	n := memory.NewNetwork()
	reverser(t, n, "rev")

	out := &syncBuffer{}
	s := startSession(t, n, out)
	waitConnected(t, s)

	if s.handleLine("  abc  ") {
		t.Fatal("plain line ended the session")
	}
	waitReply(t, s, "cba")

	if !strings.Contains(out.String(), "Received cba") {
		t.Errorf("reply not printed:\n%s", out.String())
	}
}

func TestSessionCommands(t *testing.T) {
	n := memory.NewNetwork()
	out := &syncBuffer{}
	s := startSession(t, n, out)

	if s.handleLine("") {
		t.Error("empty line ended the session")
	}
	s.handleLine("/help")
	if !strings.Contains(out.String(), "/status") {
		t.Errorf("help not printed:\n%s", out.String())
	}
	if !s.handleLine("/quit") {
		t.Error("/quit did not end the session")
	}
	if !s.handleLine("/exit") {
		t.Error("/exit did not end the session")
	}
}

func TestSessionReconnectsAfterFault(t *testing.T) {
	n := memory.NewNetwork()
	accepted := reverser(t, n, "rev")

	out := &syncBuffer{}
	s := startSession(t, n, out)
	first := waitConnected(t, s)

	select {
	case server := <-accepted:
		server.Cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}

	deadline := time.Now().Add(2 * time.Second)
	var second *connection.Connection
	for time.Now().Before(deadline) {
		if c := s.sup.Current(); c != nil && c != first && c.State() == connection.StateResumed {
			second = c
			break
		}
		time.Sleep(time.Millisecond)
	}
	if second == nil {
		t.Fatalf("session did not reconnect:\n%s", out.String())
	}

	s.handleLine("xyz")
	waitReply(t, s, "zyx")

	s.handleLine("/status")
	output := out.String()
	for _, want := range []string{"lost", "Reconnecting", "RESUMED"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSessionNotConnected(t *testing.T) {
	out := &syncBuffer{}
	s := newSession(func() *connection.Connection { return nil }, connection.NewBackoff(), out)

	s.handleLine("hello")
	s.handleLine("/status")
	if !strings.Contains(out.String(), "Not connected, message dropped") {
		t.Errorf("missing drop note:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Not connected (attempts: 0)") {
		t.Errorf("missing status:\n%s", out.String())
	}
}
