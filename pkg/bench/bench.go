package bench

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inctrl/inctrl-go/pkg/drivers/siglent"
	"github.com/inctrl/inctrl-go/pkg/instrument"
	"github.com/inctrl/inctrl-go/pkg/log"
	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/scpi"
	"github.com/inctrl/inctrl-go/pkg/transport"
)

// IdentifyCommand is the IEEE 488.2 identification query.
const IdentifyCommand = "*IDN?"

// Compile-time checks that both link implementations satisfy scpi.Channel.
var (
	_ scpi.Channel = (*transport.Conn)(nil)
	_ scpi.Channel = (*siglent.Simulator)(nil)
)

// OpenFunc opens the link to address.
type OpenFunc func(ctx context.Context, address string, cfg transport.Config) (scpi.Channel, error)

// DriverConfig is handed to every driver registered by NewRegistry.
type DriverConfig struct {
	Logger         *slog.Logger
	ProtocolLogger log.Logger
}

// NewRegistry returns a registry holding every driver in this module.
func NewRegistry(cfg DriverConfig) *instrument.Registry {
	reg := instrument.NewRegistry()
	siglent.Register(reg, siglent.Config{
		Logger:         cfg.Logger,
		ProtocolLogger: cfg.ProtocolLogger,
	})
	return reg
}

var defaultRegistry = NewRegistry(DriverConfig{})

// DefaultRegistry returns the registry used when Options.Registry is nil.
func DefaultRegistry() *instrument.Registry {
	return defaultRegistry
}

// Options configures the entry points. The zero value opens real links
// with transport defaults and the default registry.
type Options struct {
	// Transport configures the link. Logger, ProtocolLogger and
	// ConnectionID are filled in from the fields below.
	Transport transport.Config

	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives transport and dispatcher events. Nil disables it.
	ProtocolLogger log.Logger

	// Observer receives per-command timings. Nil disables it.
	Observer scpi.Observer

	// Registry resolves drivers (default: DefaultRegistry()).
	Registry *instrument.Registry

	// Open replaces transport.Open, for simulators and tests.
	Open OpenFunc
}

func (o Options) registry() *instrument.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return defaultRegistry
}

func (o Options) debugLog(msg string, args ...any) {
	if o.Logger != nil {
		o.Logger.Debug(msg, args...)
	}
}

// Dial opens a link to address and returns a dispatcher that owns it.
func Dial(ctx context.Context, address string, opts Options) (*scpi.Dispatcher, error) {
	connID := uuid.New().String()

	tcfg := opts.Transport
	tcfg.Logger = opts.Logger
	tcfg.ProtocolLogger = opts.ProtocolLogger
	tcfg.ConnectionID = connID

	open := opts.Open
	if open == nil {
		open = openTransport
	}
	ch, err := open(ctx, address, tcfg)
	if err != nil {
		return nil, err
	}

	opts.debugLog("link open", "address", address, "conn_id", connID)
	return scpi.New(ch, scpi.Config{
		Address:        address,
		Logger:         opts.Logger,
		ProtocolLogger: opts.ProtocolLogger,
		Observer:       opts.Observer,
		ConnectionID:   connID,
	}), nil
}

func openTransport(ctx context.Context, address string, cfg transport.Config) (scpi.Channel, error) {
	return transport.Open(ctx, address, cfg)
}

// Simulated returns an OpenFunc that connects every address to a fresh
// in-process SDS800X HD simulator.
func Simulated(cfg siglent.SimulatorConfig) OpenFunc {
	return func(_ context.Context, _ string, _ transport.Config) (scpi.Channel, error) {
		return siglent.NewSimulator(cfg), nil
	}
}

// Identify queries *IDN? on an open dispatcher and resolves the reply.
func Identify(cmd scpi.Commander, address string, reg *instrument.Registry) (instrument.ISpec, error) {
	idn, err := cmd.Query(IdentifyCommand)
	if err != nil {
		return instrument.ISpec{}, err
	}
	if reg == nil {
		reg = defaultRegistry
	}
	return reg.Resolve(address, idn), nil
}

// Describe opens address, identifies the instrument and closes the link.
func Describe(ctx context.Context, address string, opts Options) (instrument.ISpec, error) {
	d, err := Dial(ctx, address, opts)
	if err != nil {
		return instrument.ISpec{}, err
	}
	defer d.Close()
	return Identify(d, address, opts.registry())
}

// List describes each address in order. It stops at the first failure.
func List(ctx context.Context, addresses []string, opts Options) ([]instrument.ISpec, error) {
	specs := make([]instrument.ISpec, 0, len(addresses))
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return specs, err
		}
		spec, err := Describe(ctx, addr, opts)
		if err != nil {
			return specs, fmt.Errorf("%s: %w", addr, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Session is an identified instrument with a bound driver. It owns the
// link until Close.
type Session struct {
	spec       instrument.ISpec
	instrument instrument.Instrument
	dispatcher *scpi.Dispatcher
}

// Open identifies the instrument at address and binds its driver.
// Unbound instruments return instrument.ErrNoDriver.
func Open(ctx context.Context, address string, opts Options) (*Session, error) {
	d, err := Dial(ctx, address, opts)
	if err != nil {
		return nil, err
	}
	spec, err := Identify(d, address, opts.registry())
	if err != nil {
		d.Close()
		return nil, err
	}
	inst, err := spec.Open(d)
	if err != nil {
		d.Close()
		return nil, err
	}
	opts.debugLog("driver bound", "address", address, "make", spec.Make, "model", spec.Model, "type", spec.Type.String())
	return &Session{spec: spec, instrument: inst, dispatcher: d}, nil
}

// Spec returns the resolved descriptor.
func (s *Session) Spec() instrument.ISpec {
	return s.spec
}

// Instrument returns the bound driver.
func (s *Session) Instrument() instrument.Instrument {
	return s.instrument
}

// Dispatcher returns the dispatcher owning the link.
func (s *Session) Dispatcher() *scpi.Dispatcher {
	return s.dispatcher
}

// Oscilloscope returns the driver as an oscilloscope, or
// instrument.ErrNotOscilloscope.
func (s *Session) Oscilloscope() (scope.Oscilloscope, error) {
	o, ok := s.instrument.(scope.Oscilloscope)
	if !ok || s.spec.Type != instrument.TypeOscilloscope {
		return nil, fmt.Errorf("%w: %s", instrument.ErrNotOscilloscope, s.spec)
	}
	return o, nil
}

// Close releases the link.
func (s *Session) Close() error {
	return s.dispatcher.Close()
}

// Scope is an open oscilloscope session.
type Scope struct {
	scope.Oscilloscope
	session *Session
}

// OpenOscilloscope opens address and returns its oscilloscope driver.
func OpenOscilloscope(ctx context.Context, address string, opts Options) (*Scope, error) {
	s, err := Open(ctx, address, opts)
	if err != nil {
		return nil, err
	}
	o, err := s.Oscilloscope()
	if err != nil {
		s.Close()
		return nil, err
	}
	return &Scope{Oscilloscope: o, session: s}, nil
}

// Session returns the underlying session.
func (s *Scope) Session() *Session {
	return s.session
}

// Close releases the link.
func (s *Scope) Close() error {
	return s.session.Close()
}
