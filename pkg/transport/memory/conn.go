package memory

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/indragiek/reactivexpc/pkg/native"
	"github.com/indragiek/reactivexpc/pkg/queue"
	"github.com/indragiek/reactivexpc/pkg/transport"
)

// delivery is a copied object waiting for the handler. The files are
// private duplicates, closed once the handler returns.
type delivery struct {
	obj   native.Object
	files []*os.File
}

func (d delivery) release() {
	for _, f := range d.files {
		f.Close()
	}
}

// Conn is one end of an in-process connection.
type Conn struct {
	id       string
	name     string
	flags    transport.Flags
	network  *Network
	accepted bool
	onClose  func(*Conn)

	mu        sync.Mutex
	q         *queue.Serial
	ownQueue  bool
	handler   transport.EventHandler
	suspended int
	started   bool
	cancelled bool
	failed    bool
	held      []delivery
	pending   []delivery
	peer      *Conn
	creds     transport.Credentials

	// sendMu orders sends, including the pending flush on connect.
	sendMu sync.Mutex
}

func newConn(name string, q *queue.Serial) *Conn {
	return &Conn{
		id:        uuid.New().String(),
		name:      name,
		q:         q,
		suspended: 1,
	}
}

func link(a, b *Conn, creds transport.Credentials) {
	a.mu.Lock()
	a.peer, a.creds = b, creds
	a.mu.Unlock()

	b.mu.Lock()
	b.peer, b.creds = a, creds
	b.mu.Unlock()
}

func unlink(a, b *Conn) {
	a.mu.Lock()
	a.peer = nil
	a.mu.Unlock()

	b.mu.Lock()
	b.peer = nil
	b.mu.Unlock()
}

// ID returns the connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// SetTargetQueue sets the queue events are delivered on.
func (c *Conn) SetTargetQueue(q *queue.Serial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.q = q
	c.ownQueue = false
}

// SetEventHandler installs h.
func (c *Conn) SetEventHandler(h transport.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Resume releases held events once every Suspend has been matched. The
// first call connects a client connection to its service.
func (c *Conn) Resume() {
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

	if start && !c.accepted {
		c.dial()
	}
}

// Suspend holds event delivery until a matching Resume.
func (c *Conn) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cancelled {
		c.suspended++
	}
}

// Cancel disconnects both ends. The peer sees
// native.ErrorConnectionInterrupted if it is the client and
// native.ErrorConnectionInvalid otherwise.
func (c *Conn) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	peer := c.peer
	c.peer = nil
	held, pending := c.held, c.pending
	c.held, c.pending = nil, nil
	q, own := c.q, c.ownQueue
	c.mu.Unlock()

	for _, d := range held {
		d.release()
	}
	for _, d := range pending {
		d.release()
	}
	if own && q != nil {
		q.Async(q.Close)
	}
	if peer != nil {
		peer.peerGone()
	}
	if c.onClose != nil {
		c.onClose(c)
	}
}

// Send copies obj to the peer, or queues the copy until connected.
// Objects the native codec cannot carry are dropped.
func (c *Conn) Send(obj native.Object) {
	d, err := copyObject(obj)
	if err != nil {
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.cancelled || c.failed {
		c.mu.Unlock()
		d.release()
		return
	}
	peer := c.peer
	if peer == nil {
		c.pending = append(c.pending, d)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	peer.deliver(d)
}

// Inject delivers obj to the handler as if the peer had sent it. obj is
// delivered as is, without a copy.
func (c *Conn) Inject(obj native.Object) {
	c.deliver(delivery{obj: obj})
}

// AuditSessionID returns the peer's session ID.
func (c *Conn) AuditSessionID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.AuditSessionID
}

// EGID returns the peer's effective group ID.
func (c *Conn) EGID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.EGID
}

// EUID returns the peer's effective user ID.
func (c *Conn) EUID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.EUID
}

// PID returns the peer's process ID.
func (c *Conn) PID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.PID
}

// ServiceName returns the name the connection was created with.
func (c *Conn) ServiceName() string {
	return c.name
}

func (c *Conn) dial() {
	if c.name == "" || c.network == nil {
		c.fail(native.ErrorConnectionInvalid)
		return
	}
	if transport.ValidateServiceName(c.name) != nil {
		c.fail(native.ErrorConnectionInvalid)
		return
	}

	c.sendMu.Lock()
	if !c.network.connect(c) {
		c.sendMu.Unlock()
		c.fail(native.ErrorConnectionInvalid)
		return
	}

	c.mu.Lock()
	peer := c.peer
	if c.cancelled {
		c.peer = nil
		c.mu.Unlock()
		c.sendMu.Unlock()
		if peer != nil {
			peer.peerGone()
		}
		return
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, d := range pending {
		peer.deliver(d)
	}
	c.sendMu.Unlock()
}

// peerGone reports the other end's cancellation.
func (c *Conn) peerGone() {
	if c.accepted {
		c.fail(native.ErrorConnectionInvalid)
	} else {
		c.fail(native.ErrorConnectionInterrupted)
	}
}

func (c *Conn) terminate() {
	c.deliver(delivery{obj: native.ErrorTerminationImminent})
}

// fail marks the connection dead and delivers fault.
func (c *Conn) fail(fault *native.Error) {
	c.mu.Lock()
	if c.failed || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.failed = true
	peer := c.peer
	c.peer = nil
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, d := range pending {
		d.release()
	}
	if peer != nil {
		peer.peerGone()
	}

	c.deliver(delivery{obj: fault})
	if c.onClose != nil {
		c.onClose(c)
	}
}

func (c *Conn) deliver(d delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		d.release()
		return
	}
	if c.suspended > 0 {
		c.held = append(c.held, d)
		return
	}
	c.dispatchLocked(d)
}

func (c *Conn) dispatchLocked(d delivery) {
	if c.q == nil {
		c.q = queue.New("rxpc.memory." + c.id)
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
		d.release()
	})
}

// copyObject round-trips obj through the native codec with duplicated
// descriptors.
func copyObject(obj native.Object) (delivery, error) {
	data, files, err := native.Marshal(obj)
	if err != nil {
		return delivery{}, err
	}
	dups := make([]*os.File, 0, len(files))
	for _, f := range files {
		dup, err := native.DupFile(f)
		if err != nil {
			delivery{files: dups}.release()
			return delivery{}, fmt.Errorf("memory: %w", err)
		}
		dups = append(dups, dup)
	}
	out, err := native.Unmarshal(data, dups)
	if err != nil {
		delivery{files: dups}.release()
		return delivery{}, err
	}
	return delivery{obj: out, files: dups}, nil
}
