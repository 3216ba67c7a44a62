package scope

import (
	"context"
	"fmt"
	"time"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

// TriggerState is the arming state of a trigger.
type TriggerState uint8

const (
	Disarmed TriggerState = iota
	ArmedSingle
	ArmedAuto
	ArmedNormal
	Fired
)

// String returns the state name.
func (s TriggerState) String() string {
	switch s {
	case Disarmed:
		return "DISARMED"
	case ArmedSingle:
		return "ARMED_SINGLE"
	case ArmedAuto:
		return "ARMED_AUTO"
	case ArmedNormal:
		return "ARMED_NORMAL"
	case Fired:
		return "FIRED"
	default:
		return "UNKNOWN"
	}
}

// Armed reports whether s is one of the armed states.
func (s TriggerState) Armed() bool {
	return s == ArmedSingle || s == ArmedAuto || s == ArmedNormal
}

// TriggerConfig is a trigger condition. EdgeTrigger is the only kind
// currently defined.
type TriggerConfig interface {
	TriggerSource() TriggerSource
	TriggerDelay() duration.Duration
}

// EdgeTrigger fires when Source crosses LevelV in the Slope direction.
// Delay shifts the trigger point within the capture window.
type EdgeTrigger struct {
	Source TriggerSource
	LevelV float64
	Slope  Slope
	Delay  duration.Duration
}

// EdgeOption adjusts an EdgeTrigger built by Edge.
type EdgeOption func(*EdgeTrigger)

// WithSlope sets the trigger slope (default rising).
func WithSlope(s Slope) EdgeOption {
	return func(e *EdgeTrigger) { e.Slope = s }
}

// WithDelay sets the trigger delay (default 0s).
func WithDelay(d duration.Duration) EdgeOption {
	return func(e *EdgeTrigger) { e.Delay = d }
}

// Edge builds an edge trigger on source at levelV volts.
func Edge(source TriggerSource, levelV float64, opts ...EdgeOption) EdgeTrigger {
	e := EdgeTrigger{
		Source: source,
		LevelV: levelV,
		Slope:  SlopeRising,
		Delay:  duration.Seconds(0),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// TriggerSource implements TriggerConfig.
func (e EdgeTrigger) TriggerSource() TriggerSource { return e.Source }

// TriggerDelay implements TriggerConfig.
func (e EdgeTrigger) TriggerDelay() duration.Duration { return e.Delay }

// WaitOptions controls WaitForWaveform.
type WaitOptions struct {
	// Timeout bounds the wait. Nil waits indefinitely.
	Timeout *duration.Duration

	// ErrorOnTimeout turns a timeout into ErrTimeout instead of false.
	ErrorOnTimeout bool

	// PollInterval is the pause between status polls. Zero polls
	// back to back.
	PollInterval time.Duration
}

// WaitOption configures a wait.
type WaitOption func(*WaitOptions)

// WithTimeout bounds the wait to d. A zero duration polls exactly once.
func WithTimeout(d duration.Duration) WaitOption {
	return func(o *WaitOptions) { o.Timeout = &d }
}

// ErrorOnTimeout makes a timed out wait return ErrTimeout.
func ErrorOnTimeout() WaitOption {
	return func(o *WaitOptions) { o.ErrorOnTimeout = true }
}

// WithPollInterval sets the pause between status polls.
func WithPollInterval(d time.Duration) WaitOption {
	return func(o *WaitOptions) { o.PollInterval = d }
}

// NewWaitOptions applies opts to the zero WaitOptions.
func NewWaitOptions(opts ...WaitOption) WaitOptions {
	var o WaitOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Poll calls fired until it reports true, the timeout in o elapses or ctx
// is done. Drivers build WaitForWaveform on it.
func Poll(ctx context.Context, o WaitOptions, fired func() (bool, error)) (bool, error) {
	var deadline time.Time
	if o.Timeout != nil {
		deadline = time.Now().Add(o.Timeout.Std())
	}

	var tick *time.Ticker
	if o.PollInterval > 0 {
		tick = time.NewTicker(o.PollInterval)
		defer tick.Stop()
	}

	for {
		ok, err := fired()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		if o.Timeout != nil && !time.Now().Before(deadline) {
			if o.ErrorOnTimeout {
				return false, fmt.Errorf("%w after %s", ErrTimeout, *o.Timeout)
			}
			return false, nil
		}

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-tick.C:
		}
	}
}
