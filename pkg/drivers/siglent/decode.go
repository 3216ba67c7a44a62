package siglent

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/waveform"
)

// PreambleSize is the length of the :WAVeform:PREamble? block.
const PreambleSize = 346

// Preamble field offsets.
const (
	offPoints     = 116
	offVScale     = 156
	offVOffset    = 160
	offCodePerDiv = 164
	offInterval   = 176
	offDelay      = 180
	offTimebase   = 324
)

// Preamble holds the fields of a waveform preamble used for decoding.
type Preamble struct {
	// Points is the number of samples delivered.
	Points uint32

	// VScale is volts per division.
	VScale float32

	// VOffset is the vertical offset in volts.
	VOffset float32

	// CodePerDiv is ADC codes per vertical division.
	CodePerDiv float32

	// Interval is seconds per sample.
	Interval float32

	// Delay is the trigger delay in seconds.
	Delay float64

	// TimebaseIndex indexes the timebase ladder.
	TimebaseIndex uint16
}

// Timebase returns the per-division timebase in seconds.
func (p Preamble) Timebase() (float64, error) {
	if int(p.TimebaseIndex) >= len(timebases) {
		return 0, fmt.Errorf("%w: timebase index %d", scope.ErrDecode, p.TimebaseIndex)
	}
	return timebases[p.TimebaseIndex], nil
}

// TriggerIndex returns the sample index of the trigger point for a display
// of divisions horizontal divisions.
func (p Preamble) TriggerIndex(divisions int) (int, error) {
	tb, err := p.Timebase()
	if err != nil {
		return 0, err
	}
	if !positive(p.Interval) {
		return 0, fmt.Errorf("%w: sample interval %g", scope.ErrDecode, p.Interval)
	}
	if !finite(p.Delay) {
		return 0, fmt.Errorf("%w: trigger delay %g", scope.ErrDecode, p.Delay)
	}
	idx := math.Round((tb*float64(divisions)/2 - p.Delay) / float64(p.Interval))
	if math.IsNaN(idx) || math.Abs(idx) > maxTriggerIndex {
		return 0, fmt.Errorf("%w: trigger index %g out of range", scope.ErrDecode, idx)
	}
	return int(idx), nil
}

// maxTriggerIndex bounds the trigger position relative to the first sample.
const maxTriggerIndex = 1 << 40

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float32) bool {
	return finite(float64(v)) && v > 0
}

// Volts converts one ADC code.
func (p Preamble) Volts(code int16) float64 {
	return float64(code)*float64(p.VScale)/float64(p.CodePerDiv) - float64(p.VOffset)
}

// DecodePreamble parses a preamble block.
func DecodePreamble(b []byte) (Preamble, error) {
	if len(b) < PreambleSize {
		return Preamble{}, fmt.Errorf("%w: preamble is %d bytes, want %d", scope.ErrDecode, len(b), PreambleSize)
	}
	le := binary.LittleEndian
	p := Preamble{
		Points:        le.Uint32(b[offPoints:]),
		VScale:        math.Float32frombits(le.Uint32(b[offVScale:])),
		VOffset:       math.Float32frombits(le.Uint32(b[offVOffset:])),
		CodePerDiv:    math.Float32frombits(le.Uint32(b[offCodePerDiv:])),
		Interval:      math.Float32frombits(le.Uint32(b[offInterval:])),
		Delay:         math.Float64frombits(le.Uint64(b[offDelay:])),
		TimebaseIndex: le.Uint16(b[offTimebase:]),
	}
	if _, err := p.Timebase(); err != nil {
		return Preamble{}, err
	}
	switch {
	case !positive(p.CodePerDiv):
		return Preamble{}, fmt.Errorf("%w: code per division %g", scope.ErrDecode, p.CodePerDiv)
	case !positive(p.VScale):
		return Preamble{}, fmt.Errorf("%w: vertical scale %g", scope.ErrDecode, p.VScale)
	case !finite(float64(p.VOffset)):
		return Preamble{}, fmt.Errorf("%w: vertical offset %g", scope.ErrDecode, p.VOffset)
	case !positive(p.Interval):
		return Preamble{}, fmt.Errorf("%w: sample interval %g", scope.ErrDecode, p.Interval)
	case !finite(p.Delay):
		return Preamble{}, fmt.Errorf("%w: trigger delay %g", scope.ErrDecode, p.Delay)
	}
	return p, nil
}

// EncodePreamble builds a preamble block carrying p. Fields the decoder
// does not read are zero.
func EncodePreamble(p Preamble) []byte {
	b := make([]byte, PreambleSize)
	le := binary.LittleEndian
	le.PutUint32(b[offPoints:], p.Points)
	le.PutUint32(b[offVScale:], math.Float32bits(p.VScale))
	le.PutUint32(b[offVOffset:], math.Float32bits(p.VOffset))
	le.PutUint32(b[offCodePerDiv:], math.Float32bits(p.CodePerDiv))
	le.PutUint32(b[offInterval:], math.Float32bits(p.Interval))
	le.PutUint64(b[offDelay:], math.Float64bits(p.Delay))
	le.PutUint16(b[offTimebase:], p.TimebaseIndex)
	return b
}

// DecodeSamples converts a data block of signed 16-bit little-endian codes
// to volts. Exactly p.Points samples are returned.
func DecodeSamples(p Preamble, data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd data length %d", scope.ErrDecode, len(data))
	}
	if uint64(len(data)/2) < uint64(p.Points) {
		return nil, fmt.Errorf("%w: %d samples, preamble declares %d", scope.ErrDecode, len(data)/2, p.Points)
	}
	ys := make([]float64, p.Points)
	for i := range ys {
		code := int16(binary.LittleEndian.Uint16(data[2*i:]))
		ys[i] = p.Volts(code)
	}
	return ys, nil
}

// Decode builds a waveform from a preamble and a data block.
func Decode(preamble, data []byte, divisions int, name string) (*waveform.Waveform, error) {
	p, err := DecodePreamble(preamble)
	if err != nil {
		return nil, err
	}
	trig, err := p.TriggerIndex(divisions)
	if err != nil {
		return nil, err
	}
	ys, err := DecodeSamples(p, data)
	if err != nil {
		return nil, err
	}
	return waveform.New(float64(p.Interval), trig, ys, name), nil
}

// EncodeSamples packs codes as signed 16-bit little-endian words.
func EncodeSamples(codes []int16) []byte {
	b := make([]byte, 2*len(codes))
	for i, c := range codes {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(c))
	}
	return b
}
