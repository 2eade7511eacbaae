package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

// session sends typed lines to a service and prints the strings it sends
// back. A supervisor replaces the endpoint after a fault.
type session struct {
	sup *connection.Supervisor

	mu  sync.Mutex
	out io.Writer

	// replies receives every printed reply (optional).
	replies chan string
}

func newSession(dial connection.DialFunc, b *connection.Backoff, out io.Writer) *session {
	s := &session{
		sup: connection.NewSupervisorWithBackoff(dial, b),
		out: out,
	}
	s.sup.OnConnected(s.connected)
	s.sup.OnFault(func(c *connection.Connection, err error) {
		s.printf("Connection %s lost: %v\n", shortID(c.ID()), err)
	})
	s.sup.OnRetry(func(attempt int, delay time.Duration) {
		s.printf("Reconnecting in %s (attempt %d)\n", delay.Round(time.Millisecond), attempt)
	})
	return s
}

// run supervises endpoints until ctx is done.
func (s *session) run(ctx context.Context) error {
	return s.sup.Run(ctx)
}

func (s *session) connected(c *connection.Connection) {
	s.printf("Connected to %s [%s]\n", c.ServiceName(), shortID(c.ID()))
	strs := stream.FilterMap(c.Inbound(), wire.UnpackString)
	go func() {
		for str := range stream.Values(context.Background(), strs) {
			s.printf("Received %s\n", str)
			if s.replies != nil {
				s.replies <- str
			}
		}
	}()
}

// handleLine sends line, or runs it as a command when it starts with a
// slash. It reports whether the session should end.
func (s *session) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	switch line {
	case "/quit", "/exit":
		return true
	case "/help":
		s.printHelp()
		return false
	case "/status":
		s.printStatus()
		return false
	}

	c := s.sup.Current()
	if c == nil {
		s.printf("Not connected, message dropped\n")
		return false
	}
	c.Send(wire.PackString(line))
	return false
}

func (s *session) printHelp() {
	s.printf(`Type a line to send it to the service.

Commands:
  /status   Show the current endpoint
  /help     Show this help
  /quit     Exit
`)
}

func (s *session) printStatus() {
	c := s.sup.Current()
	if c == nil {
		s.printf("Not connected (attempts: %d)\n", s.sup.Attempts())
		return
	}
	s.printf("Endpoint %s: %s, peer pid %d, %d dropped\n",
		shortID(c.ID()), c.State(), c.ProcessID(), c.Dropped())
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
