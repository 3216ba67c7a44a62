package scpi

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// OperationComplete is the IEEE 488.2 query that blocks until all pending
// operations finish.
const OperationComplete = "*OPC?"

// Channel is an open, half-duplex link to one instrument. Every query is
// answered by exactly one reply.
type Channel interface {
	Write(cmd string) error
	Read() (string, error)
	ReadBinaryBlock() ([]byte, error)
	Close() error
}

// Commander is the dispatcher surface drivers depend on.
type Commander interface {
	Write(cmd string) error
	WriteSync(cmd string) error
	Query(cmd string) (string, error)
	QueryBytes(cmd string) ([]byte, error)
}

// Kind classifies a dispatched operation for observers.
type Kind uint8

const (
	KindWrite Kind = iota
	KindQuery
	KindQueryBytes
)

// String returns the operation name.
func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindQuery:
		return "query"
	case KindQueryBytes:
		return "query_bytes"
	default:
		return "unknown"
	}
}

// Observer is notified after every dispatched operation.
type Observer interface {
	ObserveCommand(kind Kind, elapsed time.Duration, replyBytes int, err error)
}

// Config configures a Dispatcher.
type Config struct {
	// Address tags protocol events with the instrument address.
	Address string

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives dispatcher-layer events. Nil disables it.
	ProtocolLogger log.Logger

	// Observer receives per-operation timings. Nil disables it.
	Observer Observer

	// ConnectionID tags protocol events. A random UUID is used when empty.
	ConnectionID string
}

// Dispatcher sends commands over one Channel.
type Dispatcher struct {
	ch     Channel
	cfg    Config
	connID string
}

// New creates a Dispatcher that owns ch.
func New(ch Channel, cfg Config) *Dispatcher {
	connID := cfg.ConnectionID
	if connID == "" {
		connID = uuid.New().String()
	}
	return &Dispatcher{ch: ch, cfg: cfg, connID: connID}
}

// ConnectionID returns the identifier tagging this dispatcher's events.
func (d *Dispatcher) ConnectionID() string {
	return d.connID
}

// Address returns the configured instrument address.
func (d *Dispatcher) Address() string {
	return d.cfg.Address
}

// Write sends cmd without waiting for the instrument.
func (d *Dispatcher) Write(cmd string) error {
	start := time.Now()
	err := d.write(cmd, log.CommandWrite)
	d.observe(KindWrite, start, 0, err)
	return err
}

// WriteSync sends cmd and then blocks on *OPC?, discarding its reply, so
// the instrument has finished cmd when WriteSync returns.
func (d *Dispatcher) WriteSync(cmd string) error {
	start := time.Now()
	err := d.write(cmd, log.CommandWrite)
	if err == nil {
		_, err = d.query(OperationComplete)
	}
	d.observe(KindWrite, start, 0, err)
	return err
}

// Query sends cmd and returns the trimmed text reply.
func (d *Dispatcher) Query(cmd string) (string, error) {
	start := time.Now()
	reply, err := d.query(cmd)
	d.observe(KindQuery, start, len(reply), err)
	return reply, err
}

// QueryBytes sends cmd and returns the binary block reply undecoded.
func (d *Dispatcher) QueryBytes(cmd string) ([]byte, error) {
	start := time.Now()
	if err := d.write(cmd, log.CommandBlockQuery); err != nil {
		d.observe(KindQueryBytes, start, 0, err)
		return nil, err
	}
	data, err := d.ch.ReadBinaryBlock()
	if err != nil {
		err = d.fail(cmd, err)
		d.observe(KindQueryBytes, start, 0, err)
		return nil, err
	}
	elapsed := time.Since(start)
	ev := log.NewCommandEvent(log.CommandBlock, "", data)
	ev.Elapsed = &elapsed
	d.logCommand(log.DirectionIn, ev)
	d.observe(KindQueryBytes, start, len(data), nil)
	return data, nil
}

// Close closes the underlying channel.
func (d *Dispatcher) Close() error {
	d.debugLog("closing dispatcher", "conn_id", d.connID, "address", d.cfg.Address)
	return d.ch.Close()
}

func (d *Dispatcher) write(cmd string, kind log.CommandKind) error {
	if err := d.ch.Write(cmd); err != nil {
		return d.fail(cmd, err)
	}
	d.logCommand(log.DirectionOut, log.NewCommandEvent(kind, cmd, nil))
	return nil
}

func (d *Dispatcher) query(cmd string) (string, error) {
	start := time.Now()
	if err := d.write(cmd, log.CommandQuery); err != nil {
		return "", err
	}
	reply, err := d.ch.Read()
	if err != nil {
		return "", d.fail(cmd, err)
	}
	reply = strings.TrimSpace(reply)
	elapsed := time.Since(start)
	ev := log.NewCommandEvent(log.CommandReply, reply, nil)
	ev.Elapsed = &elapsed
	d.logCommand(log.DirectionIn, ev)
	return reply, nil
}

func (d *Dispatcher) fail(cmd string, err error) error {
	d.debugLog("command failed", "conn_id", d.connID, "command", cmd, "error", err)
	if d.cfg.ProtocolLogger != nil {
		d.cfg.ProtocolLogger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: d.connID,
			Layer:        log.LayerDispatcher,
			Category:     log.CategoryError,
			Address:      d.cfg.Address,
			Error: &log.ErrorEventData{
				Layer:   log.LayerDispatcher,
				Message: err.Error(),
				Context: cmd,
			},
		})
	}
	return fmt.Errorf("%s: %w", cmd, err)
}

func (d *Dispatcher) logCommand(dir log.Direction, ev *log.CommandEvent) {
	if d.cfg.ProtocolLogger == nil {
		return
	}
	d.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    dir,
		Layer:        log.LayerDispatcher,
		Category:     log.CategoryCommand,
		Address:      d.cfg.Address,
		Command:      ev,
	})
}

func (d *Dispatcher) observe(kind Kind, start time.Time, n int, err error) {
	if d.cfg.Observer != nil {
		d.cfg.Observer.ObserveCommand(kind, time.Since(start), n, err)
	}
}

func (d *Dispatcher) debugLog(msg string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction check.
var _ Commander = (*Dispatcher)(nil)
