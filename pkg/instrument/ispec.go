package instrument

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/scpi"
)

// Errors returned when binding instruments.
var (
	// ErrNoDriver indicates the instrument resolved without a driver.
	ErrNoDriver = errors.New("no driver for instrument")

	// ErrNotOscilloscope indicates the instrument is not an oscilloscope.
	ErrNotOscilloscope = errors.New("instrument is not an oscilloscope")
)

// InstrumentType classifies an instrument.
type InstrumentType uint8

const (
	TypeUnknown InstrumentType = iota
	TypePowerSupply
	TypeOscilloscope
	TypeElectronicLoad
)

// String returns the display name of the type.
func (t InstrumentType) String() string {
	switch t {
	case TypePowerSupply:
		return "Power Supply"
	case TypeOscilloscope:
		return "Oscilloscope"
	case TypeElectronicLoad:
		return "Electronic Load"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t InstrumentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Instrument is a driver bound to an open dispatcher.
type Instrument interface {
	Spec() ISpec
}

// Factory constructs a driver for a resolved instrument.
type Factory func(spec ISpec, cmd scpi.Commander) (Instrument, error)

// ISpec describes one instrument as identified on the bench.
type ISpec struct {
	Name            string         `json:"name" yaml:"name"`
	Address         string         `json:"address" yaml:"address"`
	Make            string         `json:"make" yaml:"make"`
	Model           string         `json:"model" yaml:"model"`
	SerialNumber    string         `json:"serial_number" yaml:"serial_number"`
	FirmwareVersion string         `json:"firmware_version" yaml:"firmware_version"`
	Type            InstrumentType `json:"instrument_type" yaml:"instrument_type"`

	// Factory is set when a registry rule bound a driver.
	Factory Factory `json:"-" yaml:"-"`
}

// Bound reports whether a driver is bound.
func (s ISpec) Bound() bool {
	return s.Factory != nil
}

// Open constructs the bound driver on cmd.
func (s ISpec) Open(cmd scpi.Commander) (Instrument, error) {
	if s.Factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDriver, s)
	}
	return s.Factory(s, cmd)
}

// String returns a one-line summary.
func (s ISpec) String() string {
	if s.Make == "" {
		return fmt.Sprintf("%s (unidentified)", s.Address)
	}
	return fmt.Sprintf("%s %s (%s) at %s", s.Make, s.Model, s.Type, s.Address)
}

// idnPattern is greedy: with more than four fields the make absorbs the
// extra commas, and every field must be non-empty.
var idnPattern = regexp.MustCompile(`^(.+),(.+),(.+),(.+)$`)

// ParseIDN builds an unresolved ISpec from an *IDN? reply. Fields are
// taken verbatim. A reply that does not have four non-empty fields yields
// a bare ISpec with only Name and Address set.
func ParseIDN(address, idn string) ISpec {
	spec := ISpec{Name: address, Address: address, Type: TypeUnknown}

	m := idnPattern.FindStringSubmatch(strings.TrimRight(idn, "\r\n"))
	if m == nil {
		return spec
	}
	spec.Make = m[1]
	spec.Model = m[2]
	spec.SerialNumber = m[3]
	spec.FirmwareVersion = m[4]
	return spec
}
