package scope

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/instrument"
	"github.com/inctrl/inctrl-go/pkg/waveform"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

var testProps = Properties{
	ValidImpedances:   []float64{50, 1e6},
	TimeDivisions:     10,
	VerticalDivisions: 8,
	Channels:          4,
}

// fakeScope quantizes the timebase down onto a 1-2-5 ladder, which is the
// worst case for the window search.
type fakeScope struct {
	ladder   []float64
	scale    float64
	requests []float64
	channels map[int]*fakeChannel
}

func newFakeScope() *fakeScope {
	var ladder []float64
	for exp := -9; exp <= 1; exp++ {
		for _, m := range []float64{1, 2, 5} {
			ladder = append(ladder, m*math.Pow10(exp))
		}
	}
	return &fakeScope{ladder: ladder, scale: 1e-3, channels: map[int]*fakeChannel{}}
}

func (s *fakeScope) Spec() instrument.ISpec { return instrument.ISpec{Model: "FAKE"} }
func (s *fakeScope) Trigger() Trigger       { return nil }
func (s *fakeScope) Properties() Properties { return testProps }
func (s *fakeScope) Reset() error           { return nil }

func (s *fakeScope) Channel(id int) (Channel, error) {
	if !testProps.ValidChannel(id) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, id)
	}
	ch, ok := s.channels[id]
	if !ok {
		ch = &fakeChannel{id: id, impedance: 1e6}
		s.channels[id] = ch
	}
	return ch, nil
}

func (s *fakeScope) SetTimeScale(d duration.Duration) (duration.Duration, error) {
	want := d.Float(duration.S)
	s.requests = append(s.requests, want)
	got := s.ladder[0]
	for _, v := range s.ladder {
		if v <= want*(1+1e-9) {
			got = v
		}
	}
	s.scale = got
	return s.TimeScale()
}

func (s *fakeScope) TimeScale() (duration.Duration, error) {
	return duration.Seconds(s.scale), nil
}

type fakeChannel struct {
	id        int
	scale     float64
	offset    float64
	impedance float64
	coupling  Coupling
	err       error
}

func (c *fakeChannel) SourceID() string       { return fmt.Sprintf("C%d", c.id) }
func (c *fakeChannel) ID() int                { return c.id }
func (c *fakeChannel) Properties() Properties { return testProps }
func (c *fakeChannel) Waveform(name string) (*waveform.Waveform, error) {
	return waveform.New(1e-9, 0, nil, name), nil
}
func (c *fakeChannel) SetCoupling(cp Coupling, failOnError bool) (Coupling, error) {
	c.coupling = cp
	return cp, nil
}
func (c *fakeChannel) Coupling() (Coupling, error) { return c.coupling, nil }
func (c *fakeChannel) SetImpedance(ohm float64, failOnError bool) (float64, error) {
	c.impedance = ohm
	return ohm, nil
}
func (c *fakeChannel) Impedance() (float64, error) { return c.impedance, nil }
func (c *fakeChannel) SetScaleV(v float64) (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.scale = v
	return v, nil
}
func (c *fakeChannel) ScaleV() (float64, error) { return c.scale, nil }
func (c *fakeChannel) SetOffsetV(v float64) (float64, error) {
	c.offset = v
	return v, nil
}
func (c *fakeChannel) OffsetV() (float64, error) { return c.offset, nil }

var _ Oscilloscope = (*fakeScope)(nil)
var _ Channel = (*fakeChannel)(nil)

// ---------------------------------------------------------------------------
// time window
// ---------------------------------------------------------------------------

func TestSetTimeWindowQuantizedLadder(t *testing.T) {
	s := newFakeScope()

	got, err := SetTimeWindow(s, duration.MustParse("23us"))
	require.NoError(t, err)

	assert.True(t, got.GreaterOrEqual(duration.MustParse("23us")), "window %s", got)
	assert.True(t, got.Equal(duration.MustParse("50us")), "window %s", got)
	assert.Equal(t, duration.US, got.Unit())

	// The first request is the unwidened per-division scale.
	assert.InDelta(t, 2.3e-6, s.requests[0], 1e-15)
	for i := 1; i < len(s.requests); i++ {
		assert.Greater(t, s.requests[i], s.requests[i-1])
	}
}

func TestSetTimeWindowExactLadderValue(t *testing.T) {
	s := newFakeScope()

	got, err := SetTimeWindow(s, duration.MustParse("20us"))
	require.NoError(t, err)
	assert.True(t, got.Equal(duration.MustParse("20us")))
	assert.Len(t, s.requests, 1)
}

func TestSetTimeWindowGivesUpAfterBoundedAttempts(t *testing.T) {
	s := newFakeScope()

	// Far beyond the top of the ladder: every attempt falls short.
	got, err := SetTimeWindow(s, duration.New(10, duration.KS))
	require.NoError(t, err)
	assert.Len(t, s.requests, timeWindowAttempts)
	assert.True(t, got.Equal(duration.Seconds(500)), "window %s", got)
}

func TestTimeWindowOptimized(t *testing.T) {
	s := newFakeScope()
	s.scale = 2e-4

	got, err := TimeWindow(s)
	require.NoError(t, err)
	assert.Equal(t, duration.MS, got.Unit())
	assert.InDelta(t, 2.0, got.Value(), 1e-12)
}

// ---------------------------------------------------------------------------
// vertical range and impedance
// ---------------------------------------------------------------------------

func TestRangeRoundTrip(t *testing.T) {
	tests := []struct{ vmin, vmax float64 }{
		{-0.2, 4},
		{0, 3.3},
		{-5, 5},
		{-12, -1},
		{0.001, 0.002},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g..%g", tt.vmin, tt.vmax), func(t *testing.T) {
			ch := &fakeChannel{id: 1}
			lo, hi, err := SetRangeV(ch, tt.vmin, tt.vmax)
			require.NoError(t, err)
			assert.InDelta(t, tt.vmin, lo, 1e-12)
			assert.InDelta(t, tt.vmax, hi, 1e-12)

			lo2, hi2, err := RangeV(ch)
			require.NoError(t, err)
			assert.Equal(t, lo, lo2)
			assert.Equal(t, hi, hi2)
		})
	}
}

func TestSetRangeVScaleAndOffset(t *testing.T) {
	ch := &fakeChannel{id: 1}
	_, _, err := SetRangeV(ch, -0.2, 4)
	require.NoError(t, err)
	assert.InDelta(t, 4.2/8, ch.scale, 1e-12)
	assert.InDelta(t, 2.1-4, ch.offset, 1e-12)
}

func TestSetRangeVInvalid(t *testing.T) {
	ch := &fakeChannel{id: 1}
	for _, r := range [][2]float64{{1, 1}, {2, 1}} {
		_, _, err := SetRangeV(ch, r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidRange)
	}
	assert.Zero(t, ch.scale, "nothing sent for an invalid range")
}

func TestSetRangeVPropagatesErrors(t *testing.T) {
	boom := errors.New("write failed")
	ch := &fakeChannel{id: 1, err: boom}
	_, _, err := SetRangeV(ch, 0, 1)
	assert.ErrorIs(t, err, boom)
}

func TestSetImpedanceExtremes(t *testing.T) {
	ch := &fakeChannel{id: 1}

	z, err := SetImpedanceMin(ch)
	require.NoError(t, err)
	assert.Equal(t, 50.0, z)

	z, err = SetImpedanceMax(ch)
	require.NoError(t, err)
	assert.Equal(t, 1e6, z)
}

// noImpedanceChannel reports a model without any selectable impedance.
type noImpedanceChannel struct{ *fakeChannel }

func (noImpedanceChannel) Properties() Properties {
	p := testProps
	p.ValidImpedances = nil
	return p
}

func TestSetImpedanceExtremesEmptySet(t *testing.T) {
	ch := noImpedanceChannel{&fakeChannel{id: 1, impedance: 50}}

	assert.NotPanics(t, func() {
		_, err := SetImpedanceMin(ch)
		assert.ErrorIs(t, err, ErrUnsupportedValue)
		_, err = SetImpedanceMax(ch)
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})
	assert.Equal(t, 50.0, ch.impedance, "impedance must not be touched")

	_, err := Properties{}.MinImpedance()
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	_, err = Properties{}.MaxImpedance()
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestStrict(t *testing.T) {
	got, err := Strict("coupling", CouplingGND, CouplingDC, false)
	require.NoError(t, err)
	assert.Equal(t, CouplingDC, got)

	got, err = Strict("coupling", CouplingGND, CouplingDC, true)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Equal(t, CouplingDC, got)

	_, err = Strict("impedance", 1e6, 1e6, true)
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// channels
// ---------------------------------------------------------------------------

func TestChannelByName(t *testing.T) {
	s := newFakeScope()
	aliases := map[string]int{"scl": 1, "sda": 2}

	ch, err := ChannelByName(s, aliases, "sda")
	require.NoError(t, err)
	assert.Equal(t, 2, ch.ID())

	ch, err = ChannelByName(s, aliases, " 3 ")
	require.NoError(t, err)
	assert.Equal(t, "C3", ch.SourceID())

	_, err = ChannelByName(s, aliases, "clk")
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = ChannelByName(s, nil, "9")
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

// ---------------------------------------------------------------------------
// enums and trigger config
// ---------------------------------------------------------------------------

func TestParseCoupling(t *testing.T) {
	for in, want := range map[string]Coupling{"ac": CouplingAC, "DC": CouplingDC, " gnd ": CouplingGND} {
		got, err := ParseCoupling(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want, mustParseCoupling(t, got.String()))
	}
	_, err := ParseCoupling("DC50")
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Equal(t, "UNKNOWN", Coupling(9).String())
}

func mustParseCoupling(t *testing.T, s string) Coupling {
	t.Helper()
	c, err := ParseCoupling(s)
	require.NoError(t, err)
	return c
}

func TestParseSlope(t *testing.T) {
	s, err := ParseSlope("falling")
	require.NoError(t, err)
	assert.Equal(t, SlopeFalling, s)

	s, err = ParseSlope("RISING")
	require.NoError(t, err)
	assert.Equal(t, SlopeRising, s)

	_, err = ParseSlope("either")
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestEdgeDefaults(t *testing.T) {
	src := &fakeChannel{id: 2}

	e := Edge(src, 1.6)
	assert.Equal(t, SlopeRising, e.Slope)
	assert.True(t, e.Delay.IsZero())
	assert.Equal(t, "C2", e.TriggerSource().SourceID())

	e = Edge(src, 1.6, WithSlope(SlopeFalling), WithDelay(duration.MustParse("-20us")))
	assert.Equal(t, SlopeFalling, e.Slope)
	assert.True(t, e.TriggerDelay().Equal(duration.MustParse("-20us")))

	var _ TriggerConfig = e
}

func TestTriggerStateString(t *testing.T) {
	assert.Equal(t, "DISARMED", Disarmed.String())
	assert.Equal(t, "ARMED_SINGLE", ArmedSingle.String())
	assert.Equal(t, "FIRED", Fired.String())
	assert.True(t, ArmedNormal.Armed())
	assert.False(t, Fired.Armed())
	assert.False(t, Disarmed.Armed())
}

// ---------------------------------------------------------------------------
// polling
// ---------------------------------------------------------------------------

func never() (bool, error) { return false, nil }

func TestPollZeroTimeout(t *testing.T) {
	calls := 0
	fired := func() (bool, error) {
		calls++
		return false, nil
	}

	ok, err := Poll(context.Background(), NewWaitOptions(WithTimeout(duration.Seconds(0))), fired)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	ok, err = Poll(context.Background(), NewWaitOptions(WithTimeout(duration.MustParse("0s")), ErrorOnTimeout()), never)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, ok)
}

func TestPollFiresEventually(t *testing.T) {
	calls := 0
	fired := func() (bool, error) {
		calls++
		return calls == 3, nil
	}

	ok, err := Poll(context.Background(), NewWaitOptions(WithPollInterval(time.Millisecond)), fired)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollTimeoutElapses(t *testing.T) {
	start := time.Now()
	ok, err := Poll(context.Background(),
		NewWaitOptions(WithTimeout(duration.MustParse("30ms")), WithPollInterval(5*time.Millisecond)), never)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPollContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No timeout: only the context ends the wait.
	ok, err := Poll(ctx, NewWaitOptions(), never)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
}

func TestPollPropagatesErrors(t *testing.T) {
	boom := errors.New("status query failed")
	_, err := Poll(context.Background(), NewWaitOptions(), func() (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
