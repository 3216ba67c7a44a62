package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// Reply is one answer an instrument sends back.
// Exactly one of Text and Block is meaningful.
type Reply struct {
	Text  string
	Block []byte
}

// Responder is the instrument side of a link.
type Responder interface {
	// Handle processes one command line and returns the replies it
	// produced, in order. Writes produce none.
	Handle(cmd string) ([]Reply, error)
}

// ServerConfig configures an instrument socket server.
type ServerConfig struct {
	// Address to listen on (default: ":5025").
	Address string

	// Responder answers every command. It is shared by all connections
	// and called with the server's lock held.
	Responder Responder

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives session state events. Nil disables it.
	ProtocolLogger log.Logger

	// OnError is called when an error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server exposes a Responder on a raw TCP socket, the way LAN instruments
// serve SCPI on port 5025: newline-terminated commands in, text lines or
// IEEE 488.2 blocks out.
type Server struct {
	config   ServerConfig
	listener net.Listener

	// Serializes Responder calls across connections.
	handleMu sync.Mutex

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server for cfg.Responder.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Responder == nil {
		return nil, errors.New("responder is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultSocketPort)
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.debugLog("server listening", "address", listener.Addr().String())
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sconn := &ServerConn{
		conn:       conn,
		r:          bufio.NewReader(conn),
		server:     s,
		remoteAddr: conn.RemoteAddr(),
		connID:     uuid.New().String(),
	}

	s.logState(sconn, "", "CONNECTED")

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()
	sconn.Close()

	s.logState(sconn, "CONNECTED", "DISCONNECTED")
}

func (s *Server) logState(c *ServerConn, oldState, newState string) {
	s.debugLog("session "+strings.ToLower(newState), "conn_id", c.connID, "remote", c.remoteAddr.String())
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		Address:      c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: oldState,
			NewState: newState,
		},
	})
}

func (s *Server) handle(cmd string) ([]Reply, error) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	return s.config.Responder.Handle(cmd)
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// ServerConn is one client connected to the server.
type ServerConn struct {
	conn       net.Conn
	r          *bufio.Reader
	server     *Server
	remoteAddr net.Addr
	connID     string
	closeOnce  sync.Once
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.server.ctx.Done():
			return
		default:
		}

		line, err := c.r.ReadString('\n')
		if err != nil {
			if line == "" {
				return
			}
		}
		cmd := strings.TrimRight(line, "\r\n")
		if cmd != "" {
			if herr := c.respond(cmd); herr != nil {
				if c.server.config.OnError != nil && c.server.running.Load() {
					c.server.config.OnError(c, herr)
				}
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *ServerConn) respond(cmd string) error {
	replies, err := c.server.handle(cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	for _, r := range replies {
		var out []byte
		if r.Block != nil {
			out = EncodeBlock(r.Block)
		} else {
			out = []byte(r.Text + "\n")
		}
		if _, err := c.conn.Write(out); err != nil {
			return err
		}
	}
	return nil
}
