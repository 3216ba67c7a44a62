package siglent

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/instrument"
	"github.com/inctrl/inctrl-go/pkg/log"
	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/scpi"
)

// Config configures driver instances built by the registered factory.
type Config struct {
	// Logger receives debug output. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives trigger state changes. Nil disables it.
	ProtocolLogger log.Logger
}

// Register adds the SDS800X HD rule to reg.
func Register(reg *instrument.Registry, cfg Config) {
	reg.Register(instrument.Rule{
		Vendor:  instrument.Exact(Vendor),
		Model:   instrument.Prefix(ModelPrefix),
		Type:    instrument.TypeOscilloscope,
		Factory: NewFactory(cfg),
	})
}

// NewFactory returns an instrument.Factory producing *Scope drivers.
func NewFactory(cfg Config) instrument.Factory {
	return func(spec instrument.ISpec, cmd scpi.Commander) (instrument.Instrument, error) {
		return New(spec, cmd, cfg)
	}
}

// Scope is an SDS800X HD oscilloscope.
type Scope struct {
	spec    instrument.ISpec
	cmd     scpi.Commander
	props   scope.Properties
	trigger *Trigger
	logger  *slog.Logger
}

// New creates a driver for spec on cmd.
func New(spec instrument.ISpec, cmd scpi.Commander, cfg Config) (*Scope, error) {
	props, err := ModelProperties(spec.Model)
	if err != nil {
		return nil, err
	}
	return &Scope{
		spec:    spec,
		cmd:     cmd,
		props:   props,
		trigger: newTrigger(cmd, spec.Address, cfg),
		logger:  cfg.Logger,
	}, nil
}

// Spec returns the instrument descriptor.
func (s *Scope) Spec() instrument.ISpec {
	return s.spec
}

// Properties returns the model's capabilities.
func (s *Scope) Properties() scope.Properties {
	return s.props
}

// Trigger returns the trigger subsystem.
func (s *Scope) Trigger() scope.Trigger {
	return s.trigger
}

// Channel switches channel id on and returns it.
func (s *Scope) Channel(id int) (scope.Channel, error) {
	if !s.props.ValidChannel(id) {
		return nil, fmt.Errorf("%w: %d (model %s has %d)", scope.ErrInvalidChannel, id, s.spec.Model, s.props.Channels)
	}
	if err := s.cmd.Write(fmt.Sprintf(":CHANnel%d:SWITch ON", id)); err != nil {
		return nil, err
	}
	s.debugLog("channel enabled", "channel", id)
	return &channel{id: id, cmd: s.cmd, props: s.props}, nil
}

// SetTimeScale requests a per-division timebase. The instrument settles on
// a value from its ladder, which is returned.
func (s *Scope) SetTimeScale(perDiv duration.Duration) (duration.Duration, error) {
	if err := s.cmd.Write(":TIMebase:SCALe " + formatFloat(perDiv.Float(duration.S))); err != nil {
		return duration.Duration{}, err
	}
	return s.TimeScale()
}

// TimeScale returns the per-division timebase.
func (s *Scope) TimeScale() (duration.Duration, error) {
	v, err := queryFloat(s.cmd, ":TIMebase:SCALe?")
	if err != nil {
		return duration.Duration{}, err
	}
	return duration.Seconds(v), nil
}

// Reset restores factory defaults and switches every channel off.
func (s *Scope) Reset() error {
	if err := s.cmd.WriteSync("*RST"); err != nil {
		return err
	}
	for id := 1; id <= s.props.Channels; id++ {
		if err := s.cmd.Write(fmt.Sprintf(":CHANnel%d:SWITch OFF", id)); err != nil {
			return err
		}
	}
	s.trigger.setState(scope.Disarmed, "reset")
	return nil
}

func (s *Scope) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'E', -1, 64)
}

func queryFloat(cmd scpi.Commander, q string) (float64, error) {
	reply, err := cmd.Query(q)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s reply %q", scope.ErrDecode, q, reply)
	}
	return v, nil
}

// Compile-time interface satisfaction check.
var _ scope.Oscilloscope = (*Scope)(nil)
