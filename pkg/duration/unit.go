package duration

import (
	"fmt"
	"strings"
)

// TimeUnit is a time scale expressed as an integer number of nanoseconds.
// The zero value is not a valid unit.
type TimeUnit int64

const (
	// NS is one nanosecond.
	NS TimeUnit = 1

	// US is one microsecond.
	US TimeUnit = 1_000

	// MS is one millisecond.
	MS TimeUnit = 1_000_000

	// S is one second.
	S TimeUnit = 1_000_000_000

	// KS is one kilosecond.
	KS TimeUnit = 1_000_000_000_000
)

// Units lists all supported units from the largest to the smallest.
var Units = []TimeUnit{KS, S, MS, US, NS}

// String returns the unit symbol.
func (u TimeUnit) String() string {
	switch u {
	case NS:
		return "ns"
	case US:
		return "us"
	case MS:
		return "ms"
	case S:
		return "s"
	case KS:
		return "ks"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether u is one of the supported units.
func (u TimeUnit) Valid() bool {
	switch u {
	case NS, US, MS, S, KS:
		return true
	default:
		return false
	}
}

// ParseUnit parses a unit symbol. Matching is case-insensitive.
func ParseUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ns":
		return NS, nil
	case "us":
		return US, nil
	case "ms":
		return MS, nil
	case "s":
		return S, nil
	case "ks":
		return KS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

// convert rescales v from unit from to unit to. The scale factor is always an
// integer power of ten so the operation is a single exact multiply or divide.
func convert(v float64, from, to TimeUnit) float64 {
	switch {
	case from == to:
		return v
	case from > to:
		return v * float64(from/to)
	default:
		return v / float64(to/from)
	}
}
