package scope

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/instrument"
	"github.com/inctrl/inctrl-go/pkg/waveform"
)

// Scope errors.
var (
	// ErrUnsupportedValue indicates the instrument did not accept a value
	// and the caller asked for strict behaviour.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrDecode indicates a malformed reply from the instrument.
	ErrDecode = errors.New("protocol decode error")

	// ErrTimeout indicates no waveform arrived before the deadline.
	ErrTimeout = errors.New("timed out waiting for waveform")

	// ErrNotArmed indicates a wait on a trigger that is not armed.
	ErrNotArmed = errors.New("trigger is not armed")

	// ErrInvalidChannel indicates a channel id or name this scope lacks.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrInvalidRange indicates a voltage range with min >= max.
	ErrInvalidRange = errors.New("invalid voltage range")
)

// Coupling is the input coupling of a channel.
type Coupling uint8

const (
	CouplingDC Coupling = iota
	CouplingAC
	CouplingGND
)

// String returns the coupling name.
func (c Coupling) String() string {
	switch c {
	case CouplingDC:
		return "DC"
	case CouplingAC:
		return "AC"
	case CouplingGND:
		return "GND"
	default:
		return "UNKNOWN"
	}
}

// ParseCoupling parses "AC", "DC" or "GND", ignoring case.
func ParseCoupling(s string) (Coupling, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DC":
		return CouplingDC, nil
	case "AC":
		return CouplingAC, nil
	case "GND":
		return CouplingGND, nil
	default:
		return 0, fmt.Errorf("%w: coupling %q", ErrUnsupportedValue, s)
	}
}

// Slope is the edge direction an edge trigger fires on.
type Slope uint8

const (
	SlopeRising Slope = iota
	SlopeFalling
)

// String returns the slope name.
func (s Slope) String() string {
	switch s {
	case SlopeRising:
		return "RISING"
	case SlopeFalling:
		return "FALLING"
	default:
		return "UNKNOWN"
	}
}

// ParseSlope parses "rising" or "falling", ignoring case.
func ParseSlope(s string) (Slope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RISING", "RISE", "POS":
		return SlopeRising, nil
	case "FALLING", "FALL", "NEG":
		return SlopeFalling, nil
	default:
		return 0, fmt.Errorf("%w: slope %q", ErrUnsupportedValue, s)
	}
}

// Properties is the static capability set of one scope model.
type Properties struct {
	ValidImpedances   []float64
	TimeDivisions     int
	VerticalDivisions int
	Channels          int
}

// MinImpedance returns the smallest valid input impedance in ohm.
func (p Properties) MinImpedance() (float64, error) {
	if len(p.ValidImpedances) == 0 {
		return 0, fmt.Errorf("%w: no valid impedances", ErrUnsupportedValue)
	}
	return slices.Min(p.ValidImpedances), nil
}

// MaxImpedance returns the largest valid input impedance in ohm.
func (p Properties) MaxImpedance() (float64, error) {
	if len(p.ValidImpedances) == 0 {
		return 0, fmt.Errorf("%w: no valid impedances", ErrUnsupportedValue)
	}
	return slices.Max(p.ValidImpedances), nil
}

// ValidChannel reports whether id names a channel (1-based).
func (p Properties) ValidChannel(id int) bool {
	return id >= 1 && id <= p.Channels
}

// TriggerSource is anything a trigger can be sourced from.
type TriggerSource interface {
	// SourceID returns the instrument's identifier for the source, e.g. "C2".
	SourceID() string
}

// Channel is one analog input of an oscilloscope.
type Channel interface {
	TriggerSource

	// ID returns the 1-based channel number.
	ID() int

	// Properties returns the owning scope's properties.
	Properties() Properties

	// Waveform downloads the last acquisition. An empty name defaults
	// to the channel's source id.
	Waveform(name string) (*waveform.Waveform, error)

	SetCoupling(c Coupling, failOnError bool) (Coupling, error)
	Coupling() (Coupling, error)

	SetImpedance(ohm float64, failOnError bool) (float64, error)
	Impedance() (float64, error)

	SetScaleV(voltsPerDiv float64) (float64, error)
	ScaleV() (float64, error)
	SetOffsetV(volts float64) (float64, error)
	OffsetV() (float64, error)
}

// Trigger is the trigger subsystem of one scope.
type Trigger interface {
	// Configure applies cfg; it takes effect on the next arm.
	Configure(cfg TriggerConfig) error

	ArmSingle() error
	ArmAuto() error
	ArmNormal() error
	Disarm() error

	// IsArmed polls the instrument without changing State.
	IsArmed() (bool, error)

	// WaitForWaveform blocks until a waveform is captured, the wait
	// times out or ctx is done.
	WaitForWaveform(ctx context.Context, opts ...WaitOption) (bool, error)

	// State returns the last known state.
	State() TriggerState
}

// Oscilloscope is the driver-independent surface of a scope.
type Oscilloscope interface {
	instrument.Instrument

	// Channel enables channel id and returns a handle to it.
	Channel(id int) (Channel, error)

	Trigger() Trigger

	// SetTimeScale requests a per-division timebase and returns the value
	// the instrument settled on.
	SetTimeScale(perDiv duration.Duration) (duration.Duration, error)
	TimeScale() (duration.Duration, error)

	Properties() Properties

	// Reset restores defaults and disables all channels.
	Reset() error
}
