package connection

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/indragiek/reactivexpc/pkg/log"
	"github.com/indragiek/reactivexpc/pkg/native"
	"github.com/indragiek/reactivexpc/pkg/queue"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/transport"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

// State represents the endpoint lifecycle state.
type State uint32

const (
	// StateCreated indicates the transport handle exists but was never
	// resumed.
	StateCreated State = iota

	// StateResumed indicates messages flow both ways.
	StateResumed

	// StateSuspended indicates event delivery is paused.
	StateSuspended

	// StateCancelled indicates the endpoint is shut down. Terminal.
	StateCancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateResumed:
		return "RESUMED"
	case StateSuspended:
		return "SUSPENDED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Config configures an endpoint.
type Config struct {
	// Transport creates handles for New and NewSystem. Defaults to a Unix
	// socket factory using Resolver.
	Transport transport.Factory

	// Resolver locates services for the default transport.
	Resolver transport.Resolver

	// Logger for protocol logging (optional).
	Logger log.Logger

	// Slog is the optional logger for debug output.
	Slog *slog.Logger

	// Metrics records traffic counters (optional).
	Metrics *Metrics
}

func (c Config) factory() transport.Factory {
	if c.Transport != nil {
		return c.Transport
	}
	return transport.NewSocketFactory(transport.SocketConfig{
		Resolver: c.Resolver,
		Logger:   c.Logger,
		Slog:     c.Slog,
	})
}

// Connection is one side of a bidirectional message channel.
//
// Every transport call and every state change runs on the endpoint's
// serial queue. Resume, Suspend, Cancel and Send return immediately. The
// credential accessors block on the queue and must not be called from an
// inbound handler running on it.
type Connection struct {
	id      string
	name    string
	config  Config
	logger  log.Logger
	conn    transport.Conn
	q       *queue.Serial
	inbound *stream.Pipe[wire.Value]

	state   atomic.Uint32
	dropped atomic.Uint64

	// Owned by q.
	suspensions int
	cancelled   bool
	faulted     bool
}

// New connects to a service bundled with the calling application.
// An empty name creates an anonymous endpoint, which faults with
// ErrConnectionInvalid on Resume.
func New(cfg Config, serviceName string) *Connection {
	c := newConnection(cfg, serviceName)
	c.conn = cfg.factory().Create(serviceName, c.q, 0)
	c.start()
	return c
}

// NewSystem connects to a system-registered service, optionally in the
// privileged namespace.
func NewSystem(cfg Config, name string, privileged bool) *Connection {
	flags := transport.FlagSystemService
	if privileged {
		flags |= transport.FlagPrivileged
	}
	c := newConnection(cfg, name)
	c.conn = cfg.factory().Create(name, c.q, flags)
	c.start()
	return c
}

// Wrap adopts an accepted transport handle. The endpoint owns conn from
// now on.
func Wrap(cfg Config, conn transport.Conn) *Connection {
	c := newConnection(cfg, "")
	c.conn = conn
	conn.SetTargetQueue(c.q)
	c.start()
	return c
}

func newConnection(cfg Config, name string) *Connection {
	id := uuid.New().String()
	return &Connection{
		id:          id,
		name:        name,
		config:      cfg,
		logger:      log.OrNoop(cfg.Logger),
		q:           queue.New("rxpc.connection." + id),
		inbound:     stream.NewPipe[wire.Value](),
		suspensions: 1,
	}
}

func (c *Connection) start() {
	c.conn.SetEventHandler(c.handle)
	c.debugLog("connection created", "conn", c.id, "service", c.name)
}

// ID returns the endpoint identifier used in logs.
func (c *Connection) ID() string {
	return c.id
}

// State returns the most recent lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Dropped returns the number of inbound events discarded because they did
// not decode.
func (c *Connection) Dropped() uint64 {
	return c.dropped.Load()
}

// Inbound returns the inbound event stream. It carries values until a
// fault terminates it with a *Fault, or Cancel completes it normally.
// Every call returns the same channel.
func (c *Connection) Inbound() <-chan stream.Event[wire.Value] {
	return c.inbound.Events()
}

// Messages iterates inbound values until the stream terminates or ctx is
// done. Use Err afterwards to tell a fault from a cancellation.
//
// Messages owns the inbound stream. If iteration stops before the stream
// terminated, the endpoint keeps running but its remaining inbound values
// are discarded.
func (c *Connection) Messages(ctx context.Context) iter.Seq[wire.Value] {
	return func(yield func(wire.Value) bool) {
		for v := range stream.Values(ctx, c.Inbound()) {
			if !yield(v) {
				c.inbound.Abandon()
				return
			}
		}
		if ctx.Err() != nil {
			c.inbound.Abandon()
		}
	}
}

// Done returns a channel closed once the inbound stream has terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.inbound.Done()
}

// Err returns the fault that terminated the inbound stream, or nil.
func (c *Connection) Err() error {
	return c.inbound.Err()
}

// Outbound returns a sink that sends every value it receives. Completing
// the sink cancels the endpoint.
func (c *Connection) Outbound() stream.Sink[wire.Value] {
	return stream.SinkFunc[wire.Value]{
		OnNext:     c.Send,
		OnComplete: c.Cancel,
	}
}

// Send wraps v and hands it to the transport. Sends are ordered and never
// block. Sends after Cancel are discarded.
//
// Descriptors held by FileHandle and SharedMemory values are duplicated
// before Send returns, so the caller may close its handles right away.
func (c *Connection) Send(v wire.Value) {
	if v == nil {
		v = wire.Null{}
	}
	obj, owned, err := detach(wire.Wrap(v))
	if err != nil {
		c.debugLog("dropping send: cannot duplicate descriptor", "conn", c.id, "error", err)
		return
	}
	_, isDict := v.(wire.Dictionary)
	queued := c.q.Async(func() {
		defer closeAll(owned)
		if c.cancelled {
			return
		}
		c.conn.Send(obj)
		kind := wire.Kind(v)
		c.config.Metrics.messageSent(kind)
		c.logMessage(log.DirectionOut, kind, v, !isDict)
	})
	if !queued {
		closeAll(owned)
	}
}

// SendPackable packs p and sends the result.
func (c *Connection) SendPackable(p wire.Packable) {
	c.Send(wire.Pack(p))
}

// Resume activates the endpoint, or undoes one Suspend.
func (c *Connection) Resume() {
	c.q.Async(func() {
		if c.cancelled {
			return
		}
		c.conn.Resume()
		if c.suspensions > 0 {
			c.suspensions--
		}
		if c.suspensions == 0 {
			c.setState(StateResumed, "")
		}
	})
}

// Suspend pauses inbound delivery until a matching Resume. Calls must be
// balanced.
func (c *Connection) Suspend() {
	c.q.Async(func() {
		if c.cancelled {
			return
		}
		c.conn.Suspend()
		c.suspensions++
		c.setState(StateSuspended, "")
	})
}

// Cancel shuts the endpoint down. Once the transport has been cancelled
// the inbound stream completes normally. Later transport events are
// ignored. Idempotent.
func (c *Connection) Cancel() {
	c.q.Async(func() {
		if c.cancelled {
			return
		}
		c.cancelled = true
		c.conn.Cancel()
		c.setState(StateCancelled, "")
		c.inbound.Complete()
		c.q.Close()
	})
}

// AuditSessionID returns the peer's audit session identifier.
func (c *Connection) AuditSessionID() int32 {
	var v int32
	c.q.Sync(func() { v = c.conn.AuditSessionID() })
	return v
}

// EffectiveGroupID returns the peer's effective group ID.
func (c *Connection) EffectiveGroupID() uint32 {
	var v uint32
	c.q.Sync(func() { v = c.conn.EGID() })
	return v
}

// EffectiveUserID returns the peer's effective user ID.
func (c *Connection) EffectiveUserID() uint32 {
	var v uint32
	c.q.Sync(func() { v = c.conn.EUID() })
	return v
}

// ProcessID returns the peer's process ID.
func (c *Connection) ProcessID() int32 {
	var v int32
	c.q.Sync(func() { v = c.conn.PID() })
	return v
}

// ServiceName returns the service the endpoint connects to, or "" for
// accepted and anonymous endpoints.
func (c *Connection) ServiceName() string {
	var v string
	c.q.Sync(func() { v = c.conn.ServiceName() })
	return v
}

// handle runs on q for every transport event.
func (c *Connection) handle(obj native.Object) {
	if c.cancelled || c.faulted {
		return
	}

	if fault, ok := faultFor(obj); ok {
		c.fail(fault)
		return
	}

	v, ok := wire.Unwrap(obj)
	if !ok {
		c.drop(obj)
		return
	}

	kind := wire.Kind(v)
	c.config.Metrics.messageReceived(kind)
	c.logMessage(log.DirectionIn, kind, v, isWrapped(obj))
	c.inbound.Next(v)
}

func (c *Connection) fail(f *Fault) {
	c.faulted = true

	c.debugLog("connection fault", "conn", c.id, "fault", f.Name())
	c.config.Metrics.fault(f.Name())
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerEndpoint,
		Category:     log.CategoryFault,
		ServiceName:  c.name,
		Fault:        &log.FaultEvent{Name: f.Native().Name()},
	})
	c.inbound.Fail(f)
}

// drop records an inbound event that did not decode. The event is not
// delivered.
func (c *Connection) drop(obj native.Object) {
	n := c.dropped.Add(1)
	typ := "nil"
	if obj != nil {
		typ = obj.Type().String()
	}

	c.debugLog("dropping undecodable event", "conn", c.id, "native_type", typ, "dropped", n)
	c.config.Metrics.messageDropped(typ)
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryDrop,
		ServiceName:  c.name,
		Drop: &log.DropEvent{
			NativeType: typ,
			Reason:     "unsupported top-level value",
			Count:      n,
		},
	})
}

func (c *Connection) setState(s State, reason string) {
	old := State(c.state.Swap(uint32(s)))
	if old == s {
		return
	}
	c.debugLog("connection state", "conn", c.id, "old", old, "new", s)
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerEndpoint,
		Category:     log.CategoryState,
		ServiceName:  c.name,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityEndpoint,
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
}

func (c *Connection) logMessage(dir log.Direction, kind string, v wire.Value, wrapped bool) {
	if _, noop := c.logger.(log.NoopLogger); noop {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		ServiceName:  c.name,
		Message: &log.MessageEvent{
			Kind:    kind,
			Summary: log.Summarize(v.String()),
			Wrapped: wrapped,
		},
	})
}

func (c *Connection) debugLog(msg string, args ...any) {
	if c.config.Slog != nil {
		c.config.Slog.Debug(msg, args...)
	}
}

// isWrapped reports whether obj carries a value under the reserved key.
func isWrapped(obj native.Object) bool {
	dict, ok := obj.(native.Dictionary)
	if !ok || len(dict) != 1 {
		return false
	}
	_, ok = dict[wire.SingleValueKey]
	return ok
}
