package transport

import (
	"context"

	"github.com/indragiek/reactivexpc/pkg/native"
	"github.com/indragiek/reactivexpc/pkg/queue"
)

// EventHandler receives every native event of a connection: messages and
// the fault sentinels native.ErrorConnectionInterrupted,
// native.ErrorConnectionInvalid and native.ErrorTerminationImminent.
// Handlers run on the connection's target queue, one at a time.
//
// Descriptors inside a delivered object are valid only until the handler
// returns.
type EventHandler func(native.Object)

// Conn is a native connection handle.
//
// Resume, Suspend, Cancel and Send never block on the peer. The credential
// accessors and ServiceName must be called from the target queue.
type Conn interface {
	// SetTargetQueue sets the queue events are delivered on. Must be
	// called before the first Resume.
	SetTargetQueue(q *queue.Serial)

	// SetEventHandler installs h, replacing any previous handler. A nil
	// handler discards events.
	SetEventHandler(h EventHandler)

	// Resume decrements the suspension count. A new connection starts
	// suspended once; the first Resume activates it.
	Resume()

	// Suspend increments the suspension count. Events are held while the
	// count is positive.
	Suspend()

	// Cancel tears the connection down. No events are delivered after
	// Cancel returns. Idempotent.
	Cancel()

	// Send transmits obj, best effort. Objects sent before the connection
	// is established are queued.
	Send(obj native.Object)

	// AuditSessionID returns the peer's session identifier.
	AuditSessionID() int32

	// EGID returns the peer's effective group ID.
	EGID() uint32

	// EUID returns the peer's effective user ID.
	EUID() uint32

	// PID returns the peer's process ID.
	PID() int32

	// ServiceName returns the name the connection was created with, or ""
	// for accepted and anonymous connections.
	ServiceName() string
}

// Factory creates connections to named services.
type Factory interface {
	// Create returns a suspended connection to name. An empty name yields
	// an anonymous connection that has no peer to reach.
	Create(name string, q *queue.Serial, flags Flags) Conn
}

// Acceptor produces inbound connections.
type Acceptor interface {
	// AcceptLoop calls accept for every inbound connection until ctx is
	// done. Accepted connections are suspended; the callee owns them.
	AcceptLoop(ctx context.Context, accept func(Conn)) error
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ Conn            = (*SocketConn)(nil)
	_ Factory         = (*SocketFactory)(nil)
	_ Acceptor        = (*Server)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
