package transport

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indragiek/reactivexpc/pkg/log"
	"github.com/indragiek/reactivexpc/pkg/native"
	"github.com/indragiek/reactivexpc/pkg/queue"
)

// ErrCredentialsUnsupported indicates the platform cannot report peer
// credentials for a socket.
var ErrCredentialsUnsupported = errors.New("peer credentials not supported")

// DefaultDialTimeout bounds connecting to a service socket.
const DefaultDialTimeout = 5 * time.Second

// Credentials identify the process on the other end of a socket.
type Credentials struct {
	PID            int32
	EUID           uint32
	EGID           uint32
	AuditSessionID int32
}

// SocketConfig configures Unix socket connections.
type SocketConfig struct {
	// Resolver maps service names to socket paths.
	Resolver Resolver

	// MaxMessageSize is the maximum frame payload (default: 1 MB).
	MaxMessageSize uint32

	// DialTimeout bounds connecting to a service (default: 5s).
	DialTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger

	// Slog is the optional logger for debug output.
	Slog *slog.Logger
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.Resolver == (Resolver{}) {
		c.Resolver = DefaultResolver()
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	return c
}

// SocketFactory creates connections to services listening on Unix domain
// sockets.
type SocketFactory struct {
	config SocketConfig
}

// NewSocketFactory creates a factory.
func NewSocketFactory(config SocketConfig) *SocketFactory {
	return &SocketFactory{config: config.withDefaults()}
}

// Create returns a suspended connection to name. The socket is dialed on
// the first Resume.
func (f *SocketFactory) Create(name string, q *queue.Serial, flags Flags) Conn {
	c := newSocketConn(f.config, name, q)
	c.flags = flags
	if name != "" {
		c.path, c.resolveErr = f.config.Resolver.Path(name, flags)
	}
	return c
}

// delivery is a decoded frame waiting for the event handler. The files
// are closed once the handler returns.
type delivery struct {
	obj   native.Object
	files []*os.File
}

// pendingFrame is an encoded frame waiting for the dial to finish. The
// files are private duplicates.
type pendingFrame struct {
	data  []byte
	files []*os.File
}

// SocketConn is a connection over a Unix domain stream socket.
//
// A client connection reports native.ErrorConnectionInterrupted when the
// service closes the socket and native.ErrorConnectionInvalid when the
// service cannot be reached. An accepted connection reports
// native.ErrorConnectionInvalid when the client goes away. Either way the
// connection is dead afterwards; it is never redialed.
type SocketConn struct {
	config     SocketConfig
	id         string
	name       string
	path       string
	flags      Flags
	resolveErr error
	accepted   bool
	onClose    func(*SocketConn)

	mu        sync.Mutex
	q         *queue.Serial
	ownQueue  bool
	handler   EventHandler
	suspended int
	started   bool
	cancelled bool
	failed    bool
	held      []delivery
	pending   []pendingFrame
	conn      *net.UnixConn
	framer    *Framer
	creds     Credentials

	// writeMu orders frame writes, including the pending flush after dial.
	writeMu sync.Mutex
}

func newSocketConn(config SocketConfig, name string, q *queue.Serial) *SocketConn {
	return &SocketConn{
		config:    config,
		id:        uuid.New().String(),
		name:      name,
		q:         q,
		suspended: 1,
	}
}

// newAcceptedConn wraps a socket returned by a listener.
func newAcceptedConn(config SocketConfig, uc *net.UnixConn) *SocketConn {
	c := newSocketConn(config, "", nil)
	c.accepted = true
	c.bind(uc)
	return c
}

// ID returns the connection identifier used in protocol logs.
func (c *SocketConn) ID() string {
	return c.id
}

// SetTargetQueue sets the queue events are delivered on.
func (c *SocketConn) SetTargetQueue(q *queue.Serial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.q = q
	c.ownQueue = false
}

// SetEventHandler installs h.
func (c *SocketConn) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Resume activates the connection on its first call, then releases held
// events once every Suspend has been matched.
func (c *SocketConn) Resume() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	if c.suspended > 0 {
		c.suspended--
	}
	if c.suspended > 0 {
		c.mu.Unlock()
		return
	}
	held := c.held
	c.held = nil
	for _, d := range held {
		c.dispatchLocked(d)
	}
	start := !c.started
	c.started = true
	c.mu.Unlock()

	if !start {
		return
	}
	if c.accepted {
		go c.readLoop()
	} else {
		go c.dial()
	}
}

// Suspend holds event delivery until a matching Resume.
func (c *SocketConn) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cancelled {
		c.suspended++
	}
}

// Cancel closes the socket and discards held events and queued sends.
// Called from the target queue, it guarantees no handler runs afterwards.
func (c *SocketConn) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	conn := c.conn
	held, pending := c.held, c.pending
	c.held, c.pending = nil, nil
	q, own := c.q, c.ownQueue
	c.mu.Unlock()

	for _, d := range held {
		closeFiles(d.files)
	}
	for _, p := range pending {
		closeFiles(p.files)
	}
	if conn != nil {
		conn.Close()
	}
	if own && q != nil {
		q.Async(q.Close)
	}

	c.logState("CANCELLED", "")
	if c.onClose != nil {
		c.onClose(c)
	}
}

// Send encodes obj and writes it, or queues it until the socket is
// connected. Send errors are logged, never returned.
func (c *SocketConn) Send(obj native.Object) {
	data, files, err := native.Marshal(obj)
	if err != nil {
		c.debugLog("dropping unserializable object", "conn", c.id, "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.cancelled || c.failed {
		c.mu.Unlock()
		return
	}
	if c.framer == nil {
		owned, err := dupFiles(files)
		if err != nil {
			c.mu.Unlock()
			c.logError("queue send", err)
			return
		}
		c.pending = append(c.pending, pendingFrame{data: data, files: owned})
		c.mu.Unlock()
		return
	}
	framer := c.framer
	c.mu.Unlock()

	if err := framer.WriteFrameFiles(data, files); err != nil {
		c.logError("send", err)
	}
}

// AuditSessionID returns the session ID of the peer process.
func (c *SocketConn) AuditSessionID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.AuditSessionID
}

// EGID returns the peer's effective group ID.
func (c *SocketConn) EGID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.EGID
}

// EUID returns the peer's effective user ID.
func (c *SocketConn) EUID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.EUID
}

// PID returns the peer's process ID.
func (c *SocketConn) PID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.PID
}

// ServiceName returns the service name the connection was created with.
func (c *SocketConn) ServiceName() string {
	return c.name
}

// terminate tells the handler the local process is about to exit.
func (c *SocketConn) terminate() {
	c.deliver(delivery{obj: native.ErrorTerminationImminent})
}

func (c *SocketConn) dial() {
	if c.name == "" {
		c.fail(native.ErrorConnectionInvalid, "anonymous connection has no peer")
		return
	}
	if c.resolveErr != nil {
		c.fail(native.ErrorConnectionInvalid, c.resolveErr.Error())
		return
	}

	d := net.Dialer{Timeout: c.config.DialTimeout}
	nc, err := d.Dial("unix", c.path)
	if err != nil {
		c.debugLog("dial failed", "service", c.name, "path", c.path, "error", err)
		c.fail(native.ErrorConnectionInvalid, err.Error())
		return
	}
	uc := nc.(*net.UnixConn)

	c.writeMu.Lock()
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		c.writeMu.Unlock()
		uc.Close()
		return
	}
	c.bind(uc)
	framer := c.framer
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, p := range pending {
		if err := framer.WriteFrameFiles(p.data, p.files); err != nil {
			c.logError("send", err)
		}
		closeFiles(p.files)
	}
	c.writeMu.Unlock()

	c.logState("CONNECTED", c.path)
	c.readLoop()
}

// bind attaches a connected socket. Callers hold mu or own c exclusively.
func (c *SocketConn) bind(uc *net.UnixConn) {
	creds, err := peerCredentials(uc)
	if err != nil {
		c.debugLog("peer credentials unavailable", "conn", c.id, "error", err)
	}
	framer := NewFramerWithMaxSize(uc, c.config.MaxMessageSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, c.id)
	}
	c.conn = uc
	c.framer = framer
	c.creds = creds
}

func (c *SocketConn) readLoop() {
	c.mu.Lock()
	framer := c.framer
	c.mu.Unlock()

	for {
		data, files, err := framer.ReadFrameFiles()
		if err != nil {
			c.mu.Lock()
			cancelled := c.cancelled
			c.mu.Unlock()
			if cancelled {
				return
			}

			fault := native.ErrorConnectionInterrupted
			if c.accepted || !errors.Is(err, io.EOF) {
				fault = native.ErrorConnectionInvalid
			}
			c.fail(fault, err.Error())
			return
		}

		obj, err := native.Unmarshal(data, files)
		if err != nil {
			closeFiles(files)
			c.logError("decode frame", err)
			continue
		}
		c.deliver(delivery{obj: obj, files: files})
	}
}

// fail marks the connection dead and delivers fault.
func (c *SocketConn) fail(fault *native.Error, reason string) {
	c.mu.Lock()
	if c.failed || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.failed = true
	conn := c.conn
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, p := range pending {
		closeFiles(p.files)
	}
	if conn != nil {
		conn.Close()
	}

	c.logState(fault.Name(), reason)
	c.deliver(delivery{obj: fault})
	if c.onClose != nil {
		c.onClose(c)
	}
}

// deliver hands d to the handler, or holds it while suspended.
func (c *SocketConn) deliver(d delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		closeFiles(d.files)
		return
	}
	if c.suspended > 0 {
		c.held = append(c.held, d)
		return
	}
	c.dispatchLocked(d)
}

func (c *SocketConn) dispatchLocked(d delivery) {
	if c.q == nil {
		c.q = queue.New("rxpc.transport." + c.id)
		c.ownQueue = true
	}
	c.q.Async(func() {
		c.mu.Lock()
		h := c.handler
		cancelled := c.cancelled
		c.mu.Unlock()
		if h != nil && !cancelled {
			h(d.obj)
		}
		closeFiles(d.files)
	})
}

func (c *SocketConn) logState(state, reason string) {
	c.debugLog("connection state", "conn", c.id, "service", c.name, "state", state, "reason", reason)
	if c.config.Logger == nil {
		return
	}
	c.mu.Lock()
	pid := c.creds.PID
	c.mu.Unlock()
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		ServiceName:  c.name,
		PeerPID:      pid,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			NewState: state,
			Reason:   reason,
		},
	})
}

func (c *SocketConn) logError(context string, err error) {
	c.debugLog("transport error", "conn", c.id, "context", context, "error", err)
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		ServiceName:  c.name,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (c *SocketConn) debugLog(msg string, args ...any) {
	if c.config.Slog != nil {
		c.config.Slog.Debug(msg, args...)
	}
}

func dupFiles(files []*os.File) ([]*os.File, error) {
	if len(files) == 0 {
		return nil, nil
	}
	owned := make([]*os.File, 0, len(files))
	for _, f := range files {
		dup, err := native.DupFile(f)
		if err != nil {
			closeFiles(owned)
			return nil, err
		}
		owned = append(owned, dup)
	}
	return owned, nil
}
