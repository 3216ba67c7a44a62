package siglent

import (
	"fmt"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/scope"
)

// Vendor is the make reported by *IDN?.
const Vendor = "Siglent Technologies"

// ModelPrefix selects the models this driver handles.
const ModelPrefix = "SDS8"

// Display geometry of the SDS800X HD series.
const (
	TimeDivisions     = 10
	VerticalDivisions = 8
)

// Input impedances in ohm.
const (
	ImpedanceOneMeg = 1e6
	ImpedanceFifty  = 50.0
)

// timebases is the per-division timebase ladder indexed by the preamble's
// timebase field.
var timebases = [...]float64{
	200e-12, 500e-12,
	1e-9, 2e-9, 5e-9, 10e-9, 20e-9, 50e-9, 100e-9, 200e-9, 500e-9,
	1e-6, 2e-6, 5e-6, 10e-6, 20e-6, 50e-6, 100e-6, 200e-6, 500e-6,
	1e-3, 2e-3, 5e-3, 10e-3, 20e-3, 50e-3, 100e-3, 200e-3, 500e-3,
	1, 2, 5, 10, 20, 50, 100, 200, 500,
	1000,
}

// Timebases returns a copy of the timebase ladder in seconds per division.
func Timebases() []float64 {
	out := make([]float64, len(timebases))
	copy(out, timebases[:])
	return out
}

// ModelProperties derives the properties of an SDS800X HD model. The
// channel count is the digit in front of the "X": SDS804X HD has four.
func ModelProperties(model string) (scope.Properties, error) {
	if !strings.HasPrefix(model, ModelPrefix) {
		return scope.Properties{}, fmt.Errorf("%w: model %q", scope.ErrUnsupportedValue, model)
	}
	x := strings.IndexByte(model, 'X')
	if x < 1 {
		return scope.Properties{}, fmt.Errorf("%w: model %q", scope.ErrUnsupportedValue, model)
	}
	d := model[x-1]
	if d != '2' && d != '4' {
		return scope.Properties{}, fmt.Errorf("%w: model %q: channel count", scope.ErrUnsupportedValue, model)
	}
	return scope.Properties{
		ValidImpedances:   []float64{ImpedanceOneMeg},
		TimeDivisions:     TimeDivisions,
		VerticalDivisions: VerticalDivisions,
		Channels:          int(d - '0'),
	}, nil
}
