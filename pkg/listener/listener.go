package listener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/log"
	"github.com/indragiek/reactivexpc/pkg/transport"
)

// Listener errors.
var (
	ErrNoAcceptor      = errors.New("listener has no acceptor")
	ErrListenerRunning = errors.New("listener already running")
)

// Registry removal causes other than fault names.
const (
	causeCancelled = "cancelled"
	causeError     = "error"
)

// Config configures a listener.
type Config struct {
	// Acceptor produces inbound transport handles.
	Acceptor transport.Acceptor

	// Connection configures the endpoints wrapping accepted handles.
	Connection connection.Config

	// Policy decides which endpoints are kept. A nil Policy keeps all.
	Policy AcceptPolicy

	// Logger for protocol logging (optional).
	Logger log.Logger

	// Slog is the optional logger for debug output.
	Slog *slog.Logger

	// Metrics records accept decisions (optional).
	Metrics *Metrics
}

// Listener wraps every inbound handle in an endpoint and keeps the
// endpoints its policy accepts alive until they fault or are cancelled.
type Listener struct {
	config   Config
	logger   log.Logger
	registry *Registry

	running  atomic.Bool
	watchers sync.WaitGroup
}

// New creates a listener. Call Run to start accepting.
func New(cfg Config) *Listener {
	return &Listener{
		config:   cfg,
		logger:   log.OrNoop(cfg.Logger),
		registry: NewRegistry(),
	}
}

// Registry returns the endpoints currently kept alive.
func (l *Listener) Registry() *Registry {
	return l.registry
}

// Run accepts connections until ctx is done or the acceptor fails.
// Endpoints accepted earlier stay registered until they terminate; the
// acceptor normally faults them with termination-imminent on shutdown.
func (l *Listener) Run(ctx context.Context) error {
	if l.config.Acceptor == nil {
		return ErrNoAcceptor
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrListenerRunning
	}
	defer l.running.Store(false)

	l.debugLog("listener started")
	err := l.config.Acceptor.AcceptLoop(ctx, l.accept)
	l.debugLog("listener stopped", "error", err, "live", l.registry.Len())
	return err
}

// Wait blocks until every accepted endpoint has left the registry.
func (l *Listener) Wait() {
	l.watchers.Wait()
}

func (l *Listener) accept(c transport.Conn) {
	conn := connection.Wrap(l.config.Connection, c)

	if l.config.Policy != nil && !l.config.Policy(conn) {
		l.logDecision(conn, "REJECTED", "policy")
		conn.Cancel()
		l.config.Metrics.reject()
		l.debugLog("connection rejected", "conn", conn.ID())
		return
	}

	l.registry.Add(conn)
	l.config.Metrics.accept()
	l.debugLog("connection accepted", "conn", conn.ID(), "live", l.registry.Len())
	l.logDecision(conn, "ACCEPTED", "")

	l.watchers.Add(1)
	go l.watch(conn)
	conn.Resume()
}

// watch removes c from the registry once its inbound stream terminates.
// A faulted endpoint is cancelled.
func (l *Listener) watch(c *connection.Connection) {
	defer l.watchers.Done()
	<-c.Done()

	cause := causeCancelled
	if err := c.Err(); err != nil {
		c.Cancel()
		cause = causeError
		var f *connection.Fault
		if errors.As(err, &f) {
			cause = f.Name()
		}
	}

	if !l.registry.Remove(c) {
		return
	}
	l.config.Metrics.remove(cause)
	l.debugLog("connection removed", "conn", c.ID(), "cause", cause, "live", l.registry.Len())
	l.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ID(),
		Layer:        log.LayerListener,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityListener,
			OldState: "ACCEPTED",
			NewState: "REMOVED",
			Reason:   cause,
		},
	})
}

func (l *Listener) logDecision(c *connection.Connection, decision, reason string) {
	if _, noop := l.logger.(log.NoopLogger); noop {
		return
	}
	l.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerListener,
		Category:     log.CategoryState,
		PeerPID:      c.ProcessID(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityListener,
			NewState: decision,
			Reason:   reason,
		},
	})
}

func (l *Listener) debugLog(msg string, args ...any) {
	if l.config.Slog != nil {
		l.config.Slog.Debug(msg, args...)
	}
}
