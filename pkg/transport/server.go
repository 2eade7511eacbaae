package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indragiek/reactivexpc/pkg/log"
)

// ErrServerRunning indicates AcceptLoop was called twice.
var ErrServerRunning = errors.New("server already running")

// ServerConfig configures a socket server.
type ServerConfig struct {
	// Name is the service name to listen as.
	Name string

	// Flags select the namespace the name is registered in.
	Flags Flags

	// Path overrides the socket path derived from Name.
	Path string

	// Resolver maps Name to a socket path (default: DefaultResolver).
	Resolver Resolver

	// MaxMessageSize is the maximum frame payload (default: 1 MB).
	MaxMessageSize uint32

	// Logger for protocol logging (optional).
	Logger log.Logger

	// Slog is the optional logger for debug output.
	Slog *slog.Logger
}

// Server accepts connections on a Unix domain socket.
type Server struct {
	config ServerConfig
	path   string
	socket SocketConfig

	// Active connections
	conns   map[*SocketConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
}

// NewServer creates a server. The socket is created by AcceptLoop.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Resolver == (Resolver{}) {
		config.Resolver = DefaultResolver()
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	path := config.Path
	if path == "" {
		var err error
		path, err = config.Resolver.Path(config.Name, config.Flags)
		if err != nil {
			return nil, err
		}
	}

	return &Server{
		config: config,
		path:   path,
		socket: SocketConfig{
			Resolver:       config.Resolver,
			MaxMessageSize: config.MaxMessageSize,
			Logger:         config.Logger,
			Slog:           config.Slog,
		}.withDefaults(),
		conns: make(map[*SocketConn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// ConnectionCount returns the number of live accepted connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// AcceptLoop listens on the socket and calls accept for every inbound
// connection. When ctx is done it delivers native.ErrorTerminationImminent
// to every live connection, closes the socket and returns nil. Any other
// return is a listen or accept failure.
func (s *Server) AcceptLoop(ctx context.Context, accept func(Conn)) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}
	defer s.running.Store(false)

	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.debugLog("listening", "path", s.path)

	stop := context.AfterFunc(ctx, func() {
		s.terminateAll()
		ln.Close()
	})
	defer stop()

	var tempDelay time.Duration
	for {
		uc, err := ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				os.Remove(s.path)
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else if tempDelay *= 2; tempDelay > time.Second {
					tempDelay = time.Second
				}
				time.Sleep(tempDelay)
				continue
			}
			ln.Close()
			os.Remove(s.path)
			return fmt.Errorf("accept: %w", err)
		}
		tempDelay = 0

		conn := newAcceptedConn(s.socket, uc)
		conn.onClose = s.untrack

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.logAccepted(conn)

		accept(conn)
	}
}

// listen creates the socket, replacing a stale socket file left by a
// previous process.
func (s *Server) listen() (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}

	if fi, err := os.Lstat(s.path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", s.path)
		}
		if c, err := net.DialTimeout("unix", s.path, 100*time.Millisecond); err == nil {
			c.Close()
			return nil, fmt.Errorf("service already listening at %s", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	addr := &net.UnixAddr{Name: s.path, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	ln.SetUnlinkOnClose(false)
	return ln, nil
}

func (s *Server) untrack(c *SocketConn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

func (s *Server) terminateAll() {
	s.connsMu.RLock()
	conns := make([]*SocketConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	for _, c := range conns {
		c.terminate()
	}
}

func (s *Server) logAccepted(c *SocketConn) {
	s.debugLog("accepted connection", "conn", c.id, "pid", c.creds.PID, "euid", c.creds.EUID)
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		ServiceName:  s.config.Name,
		PeerPID:      c.creds.PID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			NewState: "CONNECTED",
		},
	})
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Slog != nil {
		s.config.Slog.Debug(msg, args...)
	}
}
