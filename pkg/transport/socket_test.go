package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/indragiek/reactivexpc/pkg/native"
	"github.com/indragiek/reactivexpc/pkg/queue"
)

const eventTimeout = 2 * time.Second

// recorder collects connection events on a channel.
type recorder struct {
	events chan native.Object
}

func newRecorder() *recorder {
	return &recorder{events: make(chan native.Object, 16)}
}

func (r *recorder) handle(obj native.Object) {
	r.events <- obj
}

func (r *recorder) next(t *testing.T) native.Object {
	t.Helper()
	select {
	case obj := <-r.events:
		return obj
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case obj := <-r.events:
		t.Fatalf("unexpected event %#v", obj)
	case <-time.After(wait):
	}
}

// testService runs a Server named "echo" under a temp directory. Accepted
// connections are sent on the returned channel.
type testService struct {
	resolver Resolver
	server   *Server
	accepted chan Conn
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

func startService(t *testing.T) *testService {
	t.Helper()
	dir := t.TempDir()
	resolver := Resolver{
		RuntimeDir:    filepath.Join(dir, "run"),
		SystemDir:     filepath.Join(dir, "sys"),
		PrivilegedDir: filepath.Join(dir, "priv"),
	}
	server, err := NewServer(ServerConfig{Name: "echo", Resolver: resolver})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &testService{
		resolver: resolver,
		server:   server,
		accepted: make(chan Conn, 4),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		s.err = server.AcceptLoop(ctx, func(c Conn) { s.accepted <- c })
		close(s.done)
	}()
	t.Cleanup(s.stop)

	deadline := time.Now().Add(eventTimeout)
	for {
		if fi, err := os.Stat(server.Path()); err == nil && fi.Mode()&os.ModeSocket != 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server socket never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s
}

func (s *testService) stop() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(eventTimeout):
	}
}

func (s *testService) accept(t *testing.T) Conn {
	t.Helper()
	select {
	case c := <-s.accepted:
		return c
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for accepted connection")
		return nil
	}
}

func (s *testService) dial(t *testing.T, rec *recorder) Conn {
	t.Helper()
	q := queue.New("client")
	t.Cleanup(q.Close)
	c := NewSocketFactory(SocketConfig{Resolver: s.resolver}).Create("echo", q, 0)
	c.SetEventHandler(rec.handle)
	c.Resume()
	t.Cleanup(c.Cancel)
	return c
}

func serve(t *testing.T, c Conn, rec *recorder) {
	t.Helper()
	q := queue.New("service")
	t.Cleanup(q.Close)
	c.SetTargetQueue(q)
	c.SetEventHandler(rec.handle)
	c.Resume()
	t.Cleanup(c.Cancel)
}

func TestSocketSendReceive(t *testing.T) {
	svc := startService(t)

	clientRec := newRecorder()
	client := svc.dial(t, clientRec)
	client.Send(native.Dictionary{"greeting": native.String("hello")})

	serverRec := newRecorder()
	accepted := svc.accept(t)
	serve(t, accepted, serverRec)

	got, ok := serverRec.next(t).(native.Dictionary)
	if !ok {
		t.Fatal("expected dictionary")
	}
	if got["greeting"] != native.String("hello") {
		t.Errorf("greeting = %#v", got["greeting"])
	}

	accepted.Send(native.Int64(42))
	if obj := clientRec.next(t); obj != native.Int64(42) {
		t.Errorf("client received %#v", obj)
	}

	if svc.server.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", svc.server.ConnectionCount())
	}
}

func TestSocketQueuedSendsKeepOrder(t *testing.T) {
	svc := startService(t)

	q := queue.New("client")
	defer q.Close()
	client := NewSocketFactory(SocketConfig{Resolver: svc.resolver}).Create("echo", q, 0)
	defer client.Cancel()

	// Sent before the first Resume, so they wait for the dial.
	for i := range 5 {
		client.Send(native.Int64(i))
	}
	client.Resume()

	rec := newRecorder()
	serve(t, svc.accept(t), rec)
	for i := range 5 {
		if obj := rec.next(t); obj != native.Int64(i) {
			t.Fatalf("message %d = %#v", i, obj)
		}
	}
}

func TestSocketPassesDescriptors(t *testing.T) {
	svc := startService(t)

	f, err := os.Create(filepath.Join(t.TempDir(), "shared"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("contents"); err != nil {
		t.Fatal(err)
	}

	client := svc.dial(t, newRecorder())
	client.Send(native.Array{native.NewFD(f)})

	files := make(chan []byte, 1)
	accepted := svc.accept(t)
	q := queue.New("service")
	defer q.Close()
	accepted.SetTargetQueue(q)
	accepted.SetEventHandler(func(obj native.Object) {
		arr, ok := obj.(native.Array)
		if !ok || len(arr) != 1 {
			files <- nil
			return
		}
		fd, ok := arr[0].(*native.FD)
		if !ok {
			files <- nil
			return
		}
		// The descriptor is only valid while the handler runs.
		data, _ := io.ReadAll(io.NewSectionReader(fd.File(), 0, 64))
		files <- data
	})
	accepted.Resume()
	defer accepted.Cancel()

	select {
	case data := <-files:
		if string(data) != "contents" {
			t.Errorf("received file contents = %q", data)
		}
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for descriptor")
	}
}

func TestSocketSuspendHoldsEvents(t *testing.T) {
	svc := startService(t)

	client := svc.dial(t, newRecorder())

	rec := newRecorder()
	accepted := svc.accept(t)
	serve(t, accepted, rec)

	client.Send(native.String("first"))
	if obj := rec.next(t); obj != native.String("first") {
		t.Fatalf("got %#v", obj)
	}

	accepted.Suspend()
	client.Send(native.String("second"))
	rec.none(t, 100*time.Millisecond)

	accepted.Resume()
	if obj := rec.next(t); obj != native.String("second") {
		t.Errorf("got %#v after resume", obj)
	}
}

func TestSocketClientSeesInterrupted(t *testing.T) {
	svc := startService(t)

	rec := newRecorder()
	svc.dial(t, rec)

	accepted := svc.accept(t)
	serve(t, accepted, newRecorder())
	accepted.Cancel()

	if obj := rec.next(t); obj != native.ErrorConnectionInterrupted {
		t.Errorf("expected interrupted, got %#v", obj)
	}
}

func TestSocketServiceSeesInvalidOnClientExit(t *testing.T) {
	svc := startService(t)

	client := svc.dial(t, newRecorder())
	client.Send(native.Null{})

	rec := newRecorder()
	accepted := svc.accept(t)
	serve(t, accepted, rec)
	if obj := rec.next(t); obj != native.Object(native.Null{}) {
		t.Fatalf("got %#v", obj)
	}

	client.Cancel()
	if obj := rec.next(t); obj != native.ErrorConnectionInvalid {
		t.Errorf("expected invalid, got %#v", obj)
	}

	deadline := time.Now().Add(eventTimeout)
	for svc.server.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("server still tracks the connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSocketDialFailureIsInvalid(t *testing.T) {
	resolver := Resolver{RuntimeDir: t.TempDir()}
	q := queue.New("client")
	defer q.Close()

	rec := newRecorder()
	c := NewSocketFactory(SocketConfig{Resolver: resolver}).Create("missing", q, 0)
	c.SetEventHandler(rec.handle)
	c.Resume()
	defer c.Cancel()

	if obj := rec.next(t); obj != native.ErrorConnectionInvalid {
		t.Errorf("expected invalid, got %#v", obj)
	}
}

func TestSocketAnonymousIsInvalid(t *testing.T) {
	q := queue.New("client")
	defer q.Close()

	rec := newRecorder()
	c := NewSocketFactory(SocketConfig{Resolver: Resolver{RuntimeDir: t.TempDir()}}).Create("", q, 0)
	c.SetEventHandler(rec.handle)
	c.Resume()
	defer c.Cancel()

	if obj := rec.next(t); obj != native.ErrorConnectionInvalid {
		t.Errorf("expected invalid, got %#v", obj)
	}
	if c.ServiceName() != "" {
		t.Errorf("ServiceName() = %q", c.ServiceName())
	}
}

func TestSocketCancelStopsDelivery(t *testing.T) {
	svc := startService(t)

	client := svc.dial(t, newRecorder())

	rec := newRecorder()
	accepted := svc.accept(t)
	serve(t, accepted, rec)

	accepted.Cancel()
	accepted.Cancel()
	client.Send(native.String("late"))
	rec.none(t, 100*time.Millisecond)
}

func TestServerTerminationImminent(t *testing.T) {
	svc := startService(t)

	svc.dial(t, newRecorder())

	rec := newRecorder()
	serve(t, svc.accept(t), rec)

	svc.cancel()
	if obj := rec.next(t); obj != native.ErrorTerminationImminent {
		t.Fatalf("expected termination-imminent, got %#v", obj)
	}

	select {
	case <-svc.done:
		if svc.err != nil {
			t.Errorf("AcceptLoop returned %v", svc.err)
		}
	case <-time.After(eventTimeout):
		t.Fatal("AcceptLoop did not return")
	}
	if _, err := os.Stat(svc.server.Path()); !os.IsNotExist(err) {
		t.Errorf("socket file still present: %v", err)
	}
}

func TestServerRejectsSecondLoop(t *testing.T) {
	svc := startService(t)
	err := svc.server.AcceptLoop(context.Background(), func(Conn) {})
	if err != ErrServerRunning {
		t.Errorf("expected ErrServerRunning, got %v", err)
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stale.sock")

	first, err := NewServer(ServerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	ln, err := first.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	// Closing without unlinking leaves a stale socket file behind.
	ln.Close()

	second, err := NewServer(ServerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	ln, err = second.listen()
	if err != nil {
		t.Fatalf("listen over stale socket failed: %v", err)
	}
	ln.Close()
	os.Remove(path)
}

func TestServerRefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.sock")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewServer(ServerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.listen(); err == nil {
		t.Error("expected error listening over a regular file")
	}
}

func TestSocketPeerCredentials(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("peer credentials are read with SO_PEERCRED")
	}
	svc := startService(t)
	svc.dial(t, newRecorder())

	accepted := svc.accept(t)
	q := queue.New("service")
	defer q.Close()
	accepted.SetTargetQueue(q)
	defer accepted.Cancel()

	var pid int32
	var euid uint32
	q.Sync(func() {
		pid = accepted.PID()
		euid = accepted.EUID()
	})
	if pid != int32(os.Getpid()) {
		t.Errorf("PID() = %d, want %d", pid, os.Getpid())
	}
	if euid != uint32(os.Geteuid()) {
		t.Errorf("EUID() = %d, want %d", euid, os.Geteuid())
	}
}
