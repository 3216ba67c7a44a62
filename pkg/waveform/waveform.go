package waveform

import (
	"errors"
	"fmt"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

// Waveform errors.
var (
	ErrAxisMismatch = errors.New("waveform x-axes do not match")
)

// Predicate selects a sample given its time in seconds and its value.
type Predicate func(x, y float64) bool

// XWhere returns a Predicate testing only the time in seconds.
func XWhere(f func(x float64) bool) Predicate {
	return func(x, _ float64) bool { return f(x) }
}

// YWhere returns a Predicate testing only the sample value.
func YWhere(f func(y float64) bool) Predicate {
	return func(_, y float64) bool { return f(y) }
}

// Waveform is an immutable sampled signal.
type Waveform struct {
	dx           float64
	triggerIndex int
	ys           []float64
	name         string
}

// New creates a waveform with sample interval dx (seconds). The trigger
// index may lie outside [0, len(ys)). The samples are copied.
func New(dx float64, triggerIndex int, ys []float64, name string) *Waveform {
	return &Waveform{
		dx:           dx,
		triggerIndex: triggerIndex,
		ys:           append([]float64(nil), ys...),
		name:         name,
	}
}

// Name returns the waveform name.
func (w *Waveform) Name() string {
	return w.name
}

// Dx returns the sample interval in seconds.
func (w *Waveform) Dx() float64 {
	return w.dx
}

// TriggerIndex returns the index of the trigger sample.
func (w *Waveform) TriggerIndex() int {
	return w.triggerIndex
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.ys)
}

// WithName returns a copy of w carrying a different name.
func (w *Waveform) WithName(name string) *Waveform {
	return &Waveform{dx: w.dx, triggerIndex: w.triggerIndex, ys: w.ys, name: name}
}

// String returns a short description without the samples.
func (w *Waveform) String() string {
	return fmt.Sprintf("Waveform(%s :: len = %d, dx = %g, trigger_index = %d)",
		w.name, len(w.ys), w.dx, w.triggerIndex)
}

// xAt returns the time of sample i in seconds.
func (w *Waveform) xAt(i int) float64 {
	return float64(i-w.triggerIndex) * w.dx
}

// selected returns the indices matching all predicates, or nil with ok=false
// when there are no predicates and every sample is selected.
func (w *Waveform) selected(preds []Predicate) (idx []int, ok bool) {
	if len(preds) == 0 {
		return nil, false
	}
	idx = make([]int, 0, len(w.ys))
	for i, y := range w.ys {
		x := w.xAt(i)
		match := true
		for _, p := range preds {
			if !p(x, y) {
				match = false
				break
			}
		}
		if match {
			idx = append(idx, i)
		}
	}
	return idx, true
}

// X returns the time axis in unit. A zero or otherwise invalid unit
// selects OptimalTimeUnit. Predicates always see the time in seconds.
func (w *Waveform) X(unit duration.TimeUnit, preds ...Predicate) []float64 {
	if !unit.Valid() {
		unit = w.OptimalTimeUnit()
	}
	idx, filtered := w.selected(preds)
	if !filtered {
		xs := make([]float64, len(w.ys))
		for i := range xs {
			xs[i] = duration.Seconds(w.xAt(i)).Float(unit)
		}
		return xs
	}
	xs := make([]float64, len(idx))
	for j, i := range idx {
		xs[j] = duration.Seconds(w.xAt(i)).Float(unit)
	}
	return xs
}

// Y returns the sample values matching all predicates.
func (w *Waveform) Y(preds ...Predicate) []float64 {
	idx, filtered := w.selected(preds)
	if !filtered {
		return append([]float64(nil), w.ys...)
	}
	ys := make([]float64, len(idx))
	for j, i := range idx {
		ys[j] = w.ys[i]
	}
	return ys
}

// XY returns the time axis in unit and the matching values.
func (w *Waveform) XY(unit duration.TimeUnit, preds ...Predicate) (xs, ys []float64) {
	return w.X(unit, preds...), w.Y(preds...)
}

// TimeWindow returns the time between the first and last sample in seconds.
func (w *Waveform) TimeWindow() float64 {
	if len(w.ys) < 2 {
		return 0
	}
	return w.xAt(len(w.ys)-1) - w.xAt(0)
}

// OptimalTimeUnit picks a display unit from the time window.
func (w *Waveform) OptimalTimeUnit() duration.TimeUnit {
	return duration.Seconds(w.TimeWindow()).Optimize().Unit()
}

// Scale returns w with every sample multiplied by k.
func (w *Waveform) Scale(k float64) *Waveform {
	return w.mapSamples(func(y float64) float64 { return y * k })
}

// Div returns w with every sample divided by k.
func (w *Waveform) Div(k float64) *Waveform {
	return w.mapSamples(func(y float64) float64 { return y / k })
}

// Neg returns w with every sample negated.
func (w *Waveform) Neg() *Waveform {
	return w.Scale(-1)
}

// Add returns the sample-wise sum. Both waveforms must share the same x-axis.
func (w *Waveform) Add(o *Waveform) (*Waveform, error) {
	return w.combine(o, func(a, b float64) float64 { return a + b })
}

// Sub returns w + (-1 * o).
func (w *Waveform) Sub(o *Waveform) (*Waveform, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrAxisMismatch)
	}
	return w.Add(o.Neg())
}

// Mul returns the sample-wise product. Both waveforms must share the same x-axis.
func (w *Waveform) Mul(o *Waveform) (*Waveform, error) {
	return w.combine(o, func(a, b float64) float64 { return a * b })
}

// SameAxis reports whether w and o have exactly equal x-axes.
func (w *Waveform) SameAxis(o *Waveform) bool {
	if o == nil || len(w.ys) != len(o.ys) {
		return false
	}
	for i := range w.ys {
		if w.xAt(i) != o.xAt(i) {
			return false
		}
	}
	return true
}

func (w *Waveform) combine(o *Waveform, op func(a, b float64) float64) (*Waveform, error) {
	if !w.SameAxis(o) {
		return nil, ErrAxisMismatch
	}
	ys := make([]float64, len(w.ys))
	for i := range ys {
		ys[i] = op(w.ys[i], o.ys[i])
	}
	return &Waveform{dx: w.dx, triggerIndex: w.triggerIndex, ys: ys, name: w.name}, nil
}

func (w *Waveform) mapSamples(f func(float64) float64) *Waveform {
	ys := make([]float64, len(w.ys))
	for i, y := range w.ys {
		ys[i] = f(y)
	}
	return &Waveform{dx: w.dx, triggerIndex: w.triggerIndex, ys: ys, name: w.name}
}
