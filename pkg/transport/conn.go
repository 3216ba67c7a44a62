package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/term"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// Default link settings.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultBaudRate       = 115200
)

// Config configures an instrument link.
type Config struct {
	// Timeout bounds each write and each reply read (default: 5s).
	Timeout time.Duration

	// ConnectTimeout bounds the TCP dial (default: 10s).
	ConnectTimeout time.Duration

	// BaudRate for serial links (default: 115200).
	BaudRate int

	// MaxBlockSize limits binary block replies (default: 64 MB).
	MaxBlockSize int

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives transport-layer protocol events. Nil disables it.
	ProtocolLogger log.Logger

	// ConnectionID tags protocol events.
	ConnectionID string
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.MaxBlockSize == 0 {
		c.MaxBlockSize = DefaultMaxBlockSize
	}
}

// Conn is a newline-terminated, half-duplex link to one instrument.
// It is not safe for concurrent use; the owning driver serializes access.
type Conn struct {
	rw      io.ReadWriteCloser
	r       *bufio.Reader
	cfg     Config
	address string

	// setDeadline is nil when the link applies its own read timeout.
	setDeadline func(time.Time) error

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the instrument at address.
func Open(ctx context.Context, address string, cfg Config) (*Conn, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	switch addr.Kind {
	case KindSocket:
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		dialer := &net.Dialer{}
		nc, err := dialer.DialContext(ctx, "tcp", addr.HostPort())
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		c := NewConn(nc, address, cfg)
		c.setDeadline = nc.SetDeadline
		c.debugLog("connected", "address", addr.String(), "remote", nc.RemoteAddr().String())
		return c, nil

	case KindSerial:
		tty, err := term.Open(addr.Device, term.Speed(cfg.BaudRate), term.RawMode)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", addr.Device, err)
		}
		if err := tty.SetReadTimeout(cfg.Timeout); err != nil {
			tty.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", addr.Device, err)
		}
		c := NewConn(tty, address, cfg)
		c.debugLog("opened serial port", "device", addr.Device, "baud", cfg.BaudRate)
		return c, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
}

// NewConn wraps an already open stream. Deadlines are applied when rw
// is a net.Conn.
func NewConn(rw io.ReadWriteCloser, address string, cfg Config) *Conn {
	cfg.applyDefaults()
	c := &Conn{
		rw:      rw,
		r:       bufio.NewReader(rw),
		cfg:     cfg,
		address: address,
	}
	if nc, ok := rw.(net.Conn); ok {
		c.setDeadline = nc.SetDeadline
	}
	return c
}

// Address returns the resource address the link was opened with.
func (c *Conn) Address() string {
	return c.address
}

// Write sends one command followed by a newline.
func (c *Conn) Write(cmd string) error {
	if err := c.armDeadline(); err != nil {
		return err
	}
	if _, err := io.WriteString(c.rw, cmd+"\n"); err != nil {
		c.logError("write", err)
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	c.logCommand(log.DirectionOut, log.NewCommandEvent(log.CommandWrite, cmd, nil))
	return nil
}

// Read reads one text reply with the terminator and surrounding
// whitespace removed.
func (c *Conn) Read() (string, error) {
	if err := c.armDeadline(); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.logError("read", err)
		return "", fmt.Errorf("read reply: %w", err)
	}
	reply := strings.TrimSpace(line)
	c.logCommand(log.DirectionIn, log.NewCommandEvent(log.CommandReply, reply, nil))
	return reply, nil
}

// ReadBinaryBlock reads one IEEE 488.2 definite or indefinite length block.
func (c *Conn) ReadBinaryBlock() ([]byte, error) {
	if err := c.armDeadline(); err != nil {
		return nil, err
	}
	data, err := ReadBlock(c.r, c.cfg.MaxBlockSize)
	if err != nil {
		c.logError("read block", err)
		return nil, fmt.Errorf("read block: %w", err)
	}
	c.logCommand(log.DirectionIn, log.NewCommandEvent(log.CommandBlock, "", data))
	return data, nil
}

// Close closes the link. It is safe to call Close multiple times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.rw.Close()
		c.debugLog("closed", "address", c.address)
	})
	return c.closeErr
}

func (c *Conn) armDeadline() error {
	if c.setDeadline == nil {
		return nil
	}
	if err := c.setDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	return nil
}

func (c *Conn) logCommand(dir log.Direction, cmd *log.CommandEvent) {
	if c.cfg.ProtocolLogger == nil {
		return
	}
	c.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.cfg.ConnectionID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryCommand,
		Address:      c.address,
		Command:      cmd,
	})
}

func (c *Conn) logError(op string, err error) {
	if c.cfg.ProtocolLogger == nil {
		return
	}
	c.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.cfg.ConnectionID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		Address:      c.address,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
}

func (c *Conn) debugLog(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}
