package reactivexpc_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/listener"
	"github.com/indragiek/reactivexpc/pkg/shm"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/transport"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

const e2eTimeout = 5 * time.Second

// e2eService runs a socket service in a temp directory. The handler
// answers every inbound value with the handler's result.
type e2eService struct {
	t        *testing.T
	resolver transport.Resolver
	name     string
	handler  func(c *connection.Connection, v wire.Value) wire.Value

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newE2EService(t *testing.T, handler func(*connection.Connection, wire.Value) wire.Value) *e2eService {
	t.Helper()
	// Keep socket paths short.
	dir, err := os.MkdirTemp("", "rxpc-e2e")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s := &e2eService{
		t:        t,
		resolver: transport.Resolver{RuntimeDir: filepath.Join(dir, "run")},
		name:     "e2e",
		handler:  handler,
	}
	t.Cleanup(s.stop)
	return s
}

func (s *e2eService) start() {
	s.t.Helper()
	server, err := transport.NewServer(transport.ServerConfig{Name: s.name, Resolver: s.resolver})
	if err != nil {
		s.t.Fatalf("NewServer: %v", err)
	}

	l := listener.New(listener.Config{
		Acceptor: server,
		Policy: func(c *connection.Connection) bool {
			go func() {
				for v := range c.Messages(context.Background()) {
					c.Send(s.handler(c, v))
				}
			}()
			return true
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Run(ctx); err != nil {
			s.t.Errorf("listener: %v", err)
		}
	}()

	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	path := server.Path()
	deadline := time.Now().Add(e2eTimeout)
	for time.Now().Before(deadline) {
		if fi, err := os.Stat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	s.t.Fatalf("socket %s never appeared", path)
}

func (s *e2eService) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *e2eService) dial(t *testing.T) *connection.Connection {
	t.Helper()
	c := connection.New(connection.Config{Resolver: s.resolver}, s.name)
	c.Resume()
	t.Cleanup(c.Cancel)
	return c
}

func nextValue(t *testing.T, c *connection.Connection) wire.Value {
	t.Helper()
	select {
	case ev, ok := <-c.Inbound():
		if !ok {
			t.Fatal("inbound stream closed")
		}
		if ev.Kind != stream.KindNext {
			t.Fatalf("unexpected %v event: %v", ev.Kind, ev.Err)
		}
		return ev.Value
	case <-time.After(e2eTimeout):
		t.Fatal("timed out waiting for value")
		return nil
	}
}

func echoValue(_ *connection.Connection, v wire.Value) wire.Value { return v }

func TestE2E_ValuesRoundTrip(t *testing.T) {
	svc := newE2EService(t, echoValue)
	svc.start()
	client := svc.dial(t)

	id := uuid.New()
	values := []wire.Value{
		wire.String("plain"),
		wire.Null{},
		wire.UUID(id),
		wire.Dictionary{
			"name":    wire.String("sensor"),
			"reading": wire.Double(21.5),
			"count":   wire.UInt64(1 << 40),
			"offset":  wire.Int64(-7),
			"at":      wire.Date{Time: time.Unix(1700000000, 0)},
			"raw":     wire.Data{0x00, 0xff},
			"tags":    wire.Array{wire.String("a"), wire.Bool(true), wire.Array{}},
		},
	}
	for _, v := range values {
		client.Send(v)
	}
	for _, want := range values {
		got := nextValue(t, client)
		if !wire.Equal(want, got) {
			t.Errorf("round trip: got %v, want %v", got, want)
		}
	}
}

func TestE2E_FileHandle(t *testing.T) {
	svc := newE2EService(t, func(_ *connection.Connection, v wire.Value) wire.Value {
		f, ok := wire.UnpackFileHandle(v)
		if !ok {
			return wire.String("not a file")
		}
		defer f.Close()
		data, err := io.ReadAll(io.NewSectionReader(f, 0, 1<<20))
		if err != nil {
			return wire.String("read: " + err.Error())
		}
		return wire.String(data)
	})
	svc.start()
	client := svc.dial(t)

	path := filepath.Join(t.TempDir(), "payload.txt")
	if err := os.WriteFile(path, []byte("passed by descriptor"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	client.Send(wire.PackFile(f))
	if got, _ := wire.UnpackString(nextValue(t, client)); got != "passed by descriptor" {
		t.Errorf("service read %q", got)
	}
}

func TestE2E_SharedMemory(t *testing.T) {
	svc := newE2EService(t, func(_ *connection.Connection, v wire.Value) wire.Value {
		m, ok := wire.UnpackSharedMemory(v)
		if !ok {
			return wire.String("not shared memory")
		}
		defer m.Unmap()
		b := m.Bytes()
		n := 0
		for n < len(b) && b[n] != 0 {
			n++
		}
		return wire.String(b[:n])
	})
	svc.start()
	client := svc.dial(t)

	r, err := shm.Create("rxpc-e2e", 4096)
	if err != nil {
		t.Fatalf("shm.Create: %v", err)
	}
	defer r.Unmap()
	copy(r.Bytes(), "mapped on both sides")

	client.Send(wire.NewSharedMemory(r))
	if got, _ := wire.UnpackString(nextValue(t, client)); got != "mapped on both sides" {
		t.Errorf("service saw %q", got)
	}
}

func TestE2E_PeerIdentity(t *testing.T) {
	svc := newE2EService(t, func(c *connection.Connection, _ wire.Value) wire.Value {
		return wire.Dictionary{
			"pid":  wire.Int64(c.ProcessID()),
			"euid": wire.UInt64(c.EffectiveUserID()),
		}
	})
	svc.start()
	client := svc.dial(t)

	client.Send(wire.String("who am i"))
	dict, ok := wire.UnpackDictionary(nextValue(t, client))
	if !ok {
		t.Fatal("expected dictionary")
	}
	if runtime.GOOS != "linux" {
		// Accessors report zero values without SO_PEERCRED.
		return
	}
	if pid, _ := wire.UnpackInt64(dict["pid"]); pid != int64(os.Getpid()) {
		t.Errorf("service saw pid %d, want %d", pid, os.Getpid())
	}
	if euid, _ := wire.UnpackUInt64(dict["euid"]); euid != uint64(os.Geteuid()) {
		t.Errorf("service saw euid %d, want %d", euid, os.Geteuid())
	}
}

func TestE2E_Reconnection(t *testing.T) {
	svc := newE2EService(t, echoValue)
	svc.start()

	b := connection.NewBackoffWithConfig(connection.BackoffConfig{Interrupted: 10 * time.Millisecond, Invalid: 10 * time.Millisecond, Max: 50 * time.Millisecond})
	sup := connection.NewSupervisorWithBackoff(func() *connection.Connection {
		return connection.New(connection.Config{Resolver: svc.resolver}, svc.name)
	}, b)

	connected := make(chan *connection.Connection, 256)
	faults := make(chan error, 256)
	sup.OnConnected(func(c *connection.Connection) {
		select {
		case connected <- c:
		default:
		}
	})
	sup.OnFault(func(_ *connection.Connection, err error) {
		select {
		case faults <- err:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- sup.Run(ctx) }()
	defer func() {
		cancel()
		<-result
	}()

	await := func() *connection.Connection {
		t.Helper()
		select {
		case c := <-connected:
			return c
		case <-time.After(e2eTimeout):
			t.Fatal("timed out waiting for endpoint")
			return nil
		}
	}

	first := await()
	first.Send(wire.String("one"))
	if got, _ := wire.UnpackString(nextValue(t, first)); got != "one" {
		t.Fatalf("first endpoint got %q", got)
	}

	// Service shutdown interrupts the client.
	svc.stop()
	select {
	case err := <-faults:
		if !connection.IsFault(err) {
			t.Fatalf("fault = %v", err)
		}
	case <-time.After(e2eTimeout):
		t.Fatal("client never saw the service go away")
	}

	svc.start()
	// Attempts made while the service was down fault with
	// connection-invalid. Wait for an endpoint that answers.
	deadline := time.After(e2eTimeout)
	for {
		var c *connection.Connection
		select {
		case c = <-connected:
		case <-deadline:
			t.Fatal("supervisor never reconnected")
		}
		c.Send(wire.String("two"))
		select {
		case ev, ok := <-c.Inbound():
			if ok && ev.Kind == stream.KindNext {
				if got, _ := wire.UnpackString(ev.Value); got != "two" {
					t.Fatalf("reconnected endpoint got %q", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("reconnected endpoint never answered")
		}
	}
}
