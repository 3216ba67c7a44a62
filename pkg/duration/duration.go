package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Duration errors.
var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidUnit     = errors.New("invalid time unit")
)

// Epsilon is the equality tolerance expressed in nanoseconds (1 ps).
const Epsilon = 1e-3

var textPattern = regexp.MustCompile(`^\s*([+-]?\d+(?:\.\d*)?(?:[eE][+-]?\d+)?)\s*([a-zA-Z]+)\s*$`)

// Duration is an immutable time value carrying its own unit.
// The zero value is zero nanoseconds.
type Duration struct {
	value float64
	unit  TimeUnit
}

// New returns a Duration of value expressed in unit.
// It panics if unit is not a supported TimeUnit.
func New(value float64, unit TimeUnit) Duration {
	if !unit.Valid() {
		panic(fmt.Sprintf("duration: invalid time unit %d", int64(unit)))
	}
	return Duration{value: value, unit: unit}
}

// Seconds returns a Duration of v seconds.
func Seconds(v float64) Duration {
	return Duration{value: v, unit: S}
}

// Parse parses the "<number><unit>" text form.
func Parse(text string) (Duration, error) {
	m := textPattern.FindStringSubmatch(text)
	if m == nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, text, err)
	}
	unit, err := ParseUnit(m[2])
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	return Duration{value: v, unit: unit}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(text string) Duration {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// FromStd converts a time.Duration.
func FromStd(d time.Duration) Duration {
	return Duration{value: float64(d), unit: NS}
}

// Value returns the magnitude in the Duration's own unit.
func (d Duration) Value() float64 {
	return d.value
}

// Unit returns the Duration's unit. The zero Duration reports NS.
func (d Duration) Unit() TimeUnit {
	if d.unit == 0 {
		return NS
	}
	return d.unit
}

// To re-expresses d in unit u.
func (d Duration) To(u TimeUnit) Duration {
	return Duration{value: d.Float(u), unit: u}
}

// Float returns the magnitude of d expressed in unit u.
func (d Duration) Float(u TimeUnit) float64 {
	if !u.Valid() {
		panic(fmt.Sprintf("duration: invalid time unit %d", int64(u)))
	}
	return convert(d.value, d.Unit(), u)
}

// Std converts d to a time.Duration, rounding to the nearest nanosecond.
func (d Duration) Std() time.Duration {
	return time.Duration(math.Round(d.Float(NS)))
}

// Optimize returns d in the largest unit whose magnitude lies in [1, 1000).
// If no unit qualifies the result is expressed in nanoseconds.
func (d Duration) Optimize() Duration {
	for _, u := range Units {
		v := math.Abs(d.Float(u))
		if v >= 1 && v < 1000 {
			return d.To(u)
		}
	}
	return d.To(NS)
}

// Add returns d+o in d's unit.
func (d Duration) Add(o Duration) Duration {
	return Duration{value: d.value + o.Float(d.Unit()), unit: d.Unit()}
}

// Sub returns d-o in d's unit.
func (d Duration) Sub(o Duration) Duration {
	return Duration{value: d.value - o.Float(d.Unit()), unit: d.Unit()}
}

// Mul returns d scaled by k.
func (d Duration) Mul(k float64) Duration {
	return Duration{value: d.value * k, unit: d.Unit()}
}

// Div returns d divided by k.
func (d Duration) Div(k float64) Duration {
	return Duration{value: d.value / k, unit: d.Unit()}
}

// Abs returns the absolute value of d.
func (d Duration) Abs() Duration {
	return Duration{value: math.Abs(d.value), unit: d.Unit()}
}

// Neg returns -d.
func (d Duration) Neg() Duration {
	return Duration{value: -d.value, unit: d.Unit()}
}

// IsZero reports whether d equals zero within Epsilon.
func (d Duration) IsZero() bool {
	return math.Abs(d.Float(NS)) < Epsilon
}

// Equal reports whether d and o differ by less than one picosecond.
func (d Duration) Equal(o Duration) bool {
	return math.Abs(d.Float(NS)-o.Float(NS)) < Epsilon
}

// Greater reports whether d is strictly greater than o.
func (d Duration) Greater(o Duration) bool {
	return d.Float(NS) > o.Float(NS)
}

// Less reports whether d is strictly less than o.
func (d Duration) Less(o Duration) bool {
	return d.Float(NS) < o.Float(NS)
}

// GreaterOrEqual reports d > o or d == o.
func (d Duration) GreaterOrEqual(o Duration) bool {
	return d.Greater(o) || d.Equal(o)
}

// LessOrEqual reports d < o or d == o.
func (d Duration) LessOrEqual(o Duration) bool {
	return d.Less(o) || d.Equal(o)
}

// Compare returns -1, 0 or +1. Values within Epsilon compare as 0.
func (d Duration) Compare(o Duration) int {
	switch {
	case d.Equal(o):
		return 0
	case d.Less(o):
		return -1
	default:
		return 1
	}
}

// String formats d as "<number><unit>", e.g. "23us".
func (d Duration) String() string {
	return strconv.FormatFloat(d.value, 'g', -1, 64) + d.Unit().String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
