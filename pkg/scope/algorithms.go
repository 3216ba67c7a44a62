package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

// timeWindowAttempts bounds the scale search in SetTimeWindow.
const timeWindowAttempts = 50

// SetTimeWindow configures the smallest supported timebase whose full
// window is at least window, and returns the resulting window.
//
// Instruments quantize the per-division scale to a ladder. The request
// starts at window/divisions and widens by 10% per attempt until the
// instrument confirms a scale no smaller than window/divisions.
func SetTimeWindow(o Oscilloscope, window duration.Duration) (duration.Duration, error) {
	ref := window.Div(float64(o.Properties().TimeDivisions))

	for i := 0; i < timeWindowAttempts; i++ {
		request := ref.Mul(1 + 0.1*float64(i))
		got, err := o.SetTimeScale(request)
		if err != nil {
			return duration.Duration{}, err
		}
		if got.GreaterOrEqual(ref) {
			break
		}
	}
	return TimeWindow(o)
}

// TimeWindow returns the full capture window, unit-optimized.
func TimeWindow(o Oscilloscope) (duration.Duration, error) {
	scale, err := o.TimeScale()
	if err != nil {
		return duration.Duration{}, err
	}
	return scale.Mul(float64(o.Properties().TimeDivisions)).Optimize(), nil
}

// SetRangeV sets the channel's vertical scale and offset so the screen
// spans at least vmin to vmax, then returns the configured range.
func SetRangeV(ch Channel, vmin, vmax float64) (float64, float64, error) {
	if vmin >= vmax {
		return 0, 0, fmt.Errorf("%w: %g >= %g", ErrInvalidRange, vmin, vmax)
	}
	span := vmax - vmin
	if _, err := ch.SetScaleV(span / float64(ch.Properties().VerticalDivisions)); err != nil {
		return 0, 0, err
	}
	if _, err := ch.SetOffsetV(span/2 - vmax); err != nil {
		return 0, 0, err
	}
	return RangeV(ch)
}

// RangeV returns the voltage span currently on screen.
func RangeV(ch Channel) (float64, float64, error) {
	offset, err := ch.OffsetV()
	if err != nil {
		return 0, 0, err
	}
	scale, err := ch.ScaleV()
	if err != nil {
		return 0, 0, err
	}
	dv := scale * float64(ch.Properties().VerticalDivisions) / 2
	return -offset - dv, -offset + dv, nil
}

// SetImpedanceMin selects the lowest valid input impedance.
func SetImpedanceMin(ch Channel) (float64, error) {
	z, err := ch.Properties().MinImpedance()
	if err != nil {
		return 0, err
	}
	return ch.SetImpedance(z, false)
}

// SetImpedanceMax selects the highest valid input impedance.
func SetImpedanceMax(ch Channel) (float64, error) {
	z, err := ch.Properties().MaxImpedance()
	if err != nil {
		return 0, err
	}
	return ch.SetImpedance(z, false)
}

// ChannelByName resolves name as a channel number ("2") or as an alias
// from aliases, then returns the enabled channel.
func ChannelByName(o Oscilloscope, aliases map[string]int, name string) (Channel, error) {
	key := strings.TrimSpace(name)
	if id, ok := aliases[key]; ok {
		return o.Channel(id)
	}
	id, err := strconv.Atoi(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	return o.Channel(id)
}

// Strict applies the failOnError contract of channel setters: it returns
// got unchanged, and an ErrUnsupportedValue error when failOnError is set
// and got differs from want.
func Strict[T comparable](what string, want, got T, failOnError bool) (T, error) {
	if failOnError && want != got {
		return got, fmt.Errorf("%w: %s %v requested, instrument reports %v", ErrUnsupportedValue, what, want, got)
	}
	return got, nil
}
