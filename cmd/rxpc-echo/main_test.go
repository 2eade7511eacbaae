package main

import (
	"context"
	"testing"
	"time"

	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/listener"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/transport/memory"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

func TestUppercaseEcho(t *testing.T) {
	n := memory.NewNetwork()
	a, err := n.Listen("echo")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	l := listener.New(listener.Config{Acceptor: a, Policy: uppercase})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	client := connection.New(connection.Config{Transport: n.Factory()}, "echo")
	client.Resume()
	defer client.Cancel()

	client.Send(wire.Int64(7))
	client.Send(wire.String("hello"))
	client.Send(wire.Dictionary{"ignored": wire.Bool(true)})
	client.Send(wire.String("World"))

	for _, want := range []string{"HELLO", "WORLD"} {
		select {
		case ev := <-client.Inbound():
			if ev.Kind != stream.KindNext {
				t.Fatalf("unexpected event %v (%v)", ev.Kind, ev.Err)
			}
			got, ok := wire.UnpackString(ev.Value)
			if !ok || got != want {
				t.Fatalf("got %v, want %q", ev.Value, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestUppercaseCancelsAfterFault(t *testing.T) {
	n := memory.NewNetwork()
	a, err := n.Listen("echo")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	accepted := make(chan *connection.Connection, 1)
	l := listener.New(listener.Config{
		Acceptor: a,
		Policy: func(c *connection.Connection) bool {
			accepted <- c
			return uppercase(c)
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	client := connection.New(connection.Config{Transport: n.Factory()}, "echo")
	client.Resume()

	var server *connection.Connection
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}

	client.Cancel()
	deadline := time.After(2 * time.Second)
	for server.State() != connection.StateCancelled {
		select {
		case <-deadline:
			t.Fatalf("server endpoint state = %v, want CANCELLED", server.State())
		case <-time.After(time.Millisecond):
		}
	}
}
