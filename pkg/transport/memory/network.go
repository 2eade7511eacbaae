// Package memory is an in-process transport.
//
// A Network is a namespace of named services that live in the current
// process. Connections behave like their socket counterparts: they start
// suspended, connect on the first Resume, hold events while suspended and
// report the same fault sentinels. Every sent object is copied through the
// native codec, so descriptors are duplicated and a receiver never aliases
// the sender's values.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/indragiek/reactivexpc/pkg/queue"
	"github.com/indragiek/reactivexpc/pkg/transport"
)

// ErrAddressInUse indicates a service name that already has an acceptor.
var ErrAddressInUse = errors.New("memory: service name in use")

// serviceKey separates the bundled, system and privileged namespaces.
type serviceKey struct {
	name  string
	flags transport.Flags
}

// Network is a set of in-process services.
type Network struct {
	mu       sync.Mutex
	services map[serviceKey]*Acceptor
	creds    transport.Credentials
}

// NewNetwork creates an empty network. Peers report the credentials of
// the current process until SetCredentials is called.
func NewNetwork() *Network {
	return &Network{
		services: make(map[serviceKey]*Acceptor),
		creds:    ProcessCredentials(),
	}
}

// ProcessCredentials returns the credentials of the current process.
func ProcessCredentials() transport.Credentials {
	c := transport.Credentials{
		PID:  int32(os.Getpid()),
		EUID: uint32(os.Geteuid()),
		EGID: uint32(os.Getegid()),
	}
	if sid, err := unix.Getsid(0); err == nil {
		c.AuditSessionID = int32(sid)
	}
	return c
}

// SetCredentials sets the credentials both ends report for connections
// established after the call.
func (n *Network) SetCredentials(c transport.Credentials) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.creds = c
}

// Listen registers an acceptor for the bundled service name.
func (n *Network) Listen(name string) (*Acceptor, error) {
	return n.ListenFlags(name, 0)
}

// ListenFlags registers an acceptor for name in the namespace selected by
// flags.
func (n *Network) ListenFlags(name string, flags transport.Flags) (*Acceptor, error) {
	if err := transport.ValidateServiceName(name); err != nil {
		return nil, err
	}
	key := serviceKey{name: name, flags: normalize(flags)}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.services[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddressInUse, name)
	}
	a := &Acceptor{
		network: n,
		key:     key,
		wake:    make(chan struct{}, 1),
		conns:   make(map[*Conn]struct{}),
	}
	n.services[key] = a
	return a, nil
}

// Factory returns a factory that connects to this network's services.
func (n *Network) Factory() transport.Factory {
	return factory{network: n}
}

// Pipe returns two connected anonymous connections. Both start suspended.
func (n *Network) Pipe() (*Conn, *Conn) {
	n.mu.Lock()
	creds := n.creds
	n.mu.Unlock()

	a := newConn("", nil)
	b := newConn("", nil)
	a.accepted, b.accepted = true, true
	link(a, b, creds)
	return a, b
}

// connect links c to the acceptor registered for its name.
func (n *Network) connect(c *Conn) bool {
	n.mu.Lock()
	a, ok := n.services[serviceKey{name: c.name, flags: normalize(c.flags)}]
	creds := n.creds
	n.mu.Unlock()
	if !ok {
		return false
	}

	server := newConn("", nil)
	server.accepted = true
	link(c, server, creds)
	if !a.enqueue(server) {
		unlink(c, server)
		return false
	}
	return true
}

func (n *Network) unregister(a *Acceptor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.services[a.key] == a {
		delete(n.services, a.key)
	}
}

// Privileged implies system.
func normalize(flags transport.Flags) transport.Flags {
	if flags&transport.FlagPrivileged != 0 {
		return transport.FlagSystemService | transport.FlagPrivileged
	}
	return flags
}

type factory struct {
	network *Network
}

func (f factory) Create(name string, q *queue.Serial, flags transport.Flags) transport.Conn {
	c := newConn(name, q)
	c.flags = flags
	c.network = f.network
	return c
}

// Acceptor receives connections for one service name.
type Acceptor struct {
	network *Network
	key     serviceKey

	mu      sync.Mutex
	backlog []*Conn
	closed  bool
	running bool
	conns   map[*Conn]struct{}
	wake    chan struct{}
}

// Name returns the service name.
func (a *Acceptor) Name() string {
	return a.key.name
}

// ConnectionCount returns the number of live accepted connections.
func (a *Acceptor) ConnectionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// AcceptLoop calls accept for every inbound connection. When ctx is done
// it delivers native.ErrorTerminationImminent to every live connection,
// unregisters the name and returns nil.
func (a *Acceptor) AcceptLoop(ctx context.Context, accept func(transport.Conn)) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return errors.New("memory: acceptor closed")
	}
	if a.running {
		a.mu.Unlock()
		return transport.ErrServerRunning
	}
	a.running = true
	a.mu.Unlock()

	for {
		a.mu.Lock()
		backlog := a.backlog
		a.backlog = nil
		a.mu.Unlock()

		for _, c := range backlog {
			accept(c)
		}

		select {
		case <-a.wake:
		case <-ctx.Done():
			a.shutdown()
			return nil
		}
	}
}

// Close unregisters the name without notifying live connections.
// Connections not yet accepted are cancelled.
func (a *Acceptor) Close() {
	a.network.unregister(a)

	a.mu.Lock()
	a.closed = true
	backlog := a.backlog
	a.backlog = nil
	a.mu.Unlock()

	for _, c := range backlog {
		c.Cancel()
	}
}

func (a *Acceptor) shutdown() {
	a.network.unregister(a)

	a.mu.Lock()
	a.closed = true
	backlog := a.backlog
	a.backlog = nil
	live := make([]*Conn, 0, len(a.conns))
	for c := range a.conns {
		live = append(live, c)
	}
	a.mu.Unlock()

	for _, c := range live {
		c.terminate()
	}
	for _, c := range backlog {
		c.Cancel()
	}
}

func (a *Acceptor) enqueue(c *Conn) bool {
	c.onClose = a.untrack

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.backlog = append(a.backlog, c)
	a.conns[c] = struct{}{}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

func (a *Acceptor) untrack(c *Conn) {
	a.mu.Lock()
	delete(a.conns, c)
	a.mu.Unlock()
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Acceptor = (*Acceptor)(nil)
	_ transport.Factory  = factory{}
	_ transport.Conn     = (*Conn)(nil)
)
