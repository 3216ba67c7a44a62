package siglent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/log"
	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/scpi"
)

// Trigger status replies.
const (
	statusStop = "Stop"

	// inrNewAcquisition is the :INR? bit set when a new acquisition completed.
	inrNewAcquisition = 1
)

// Trigger is the trigger subsystem of an SDS800X HD.
type Trigger struct {
	cmd     scpi.Commander
	address string
	state   scope.TriggerState

	logger *slog.Logger
	plog   log.Logger
	connID string
}

func newTrigger(cmd scpi.Commander, address string, cfg Config) *Trigger {
	t := &Trigger{
		cmd:     cmd,
		address: address,
		state:   scope.Disarmed,
		logger:  cfg.Logger,
		plog:    cfg.ProtocolLogger,
	}
	if c, ok := cmd.(interface{ ConnectionID() string }); ok {
		t.connID = c.ConnectionID()
	}
	return t
}

// State returns the last known trigger state.
func (t *Trigger) State() scope.TriggerState {
	return t.state
}

// Configure sends cfg to the instrument. The delay is applied as the
// timebase delay and confirmed before Configure returns.
func (t *Trigger) Configure(cfg scope.TriggerConfig) error {
	edge, ok := cfg.(scope.EdgeTrigger)
	if !ok {
		return fmt.Errorf("%w: trigger type %T", scope.ErrUnsupportedValue, cfg)
	}
	if edge.Source == nil {
		return fmt.Errorf("%w: edge trigger without source", scope.ErrUnsupportedValue)
	}

	var slope string
	switch edge.Slope {
	case scope.SlopeRising:
		slope = "RISing"
	case scope.SlopeFalling:
		slope = "FALLing"
	default:
		return fmt.Errorf("%w: slope %s", scope.ErrUnsupportedValue, edge.Slope)
	}

	cmds := []string{
		":TRIGger:TYPE EDGE",
		":TRIGger:EDGE:SOURce " + edge.Source.SourceID(),
		":TRIGger:EDGE:LEVel " + formatFloat(edge.LevelV),
		":TRIGger:EDGE:SLOPe " + slope,
	}
	for _, c := range cmds {
		if err := t.cmd.Write(c); err != nil {
			return err
		}
	}
	if err := t.cmd.WriteSync(":TIMebase:DELay " + formatFloat(edge.Delay.Float(duration.S))); err != nil {
		return err
	}
	t.debugLog("trigger configured", "source", edge.Source.SourceID(), "level", edge.LevelV,
		"slope", edge.Slope, "delay", edge.Delay)
	return nil
}

// ArmSingle arms for one acquisition.
func (t *Trigger) ArmSingle() error {
	return t.arm("SINGle", scope.ArmedSingle)
}

// ArmAuto arms for free-running acquisition.
func (t *Trigger) ArmAuto() error {
	return t.arm("AUTO", scope.ArmedAuto)
}

// ArmNormal arms for repeated triggered acquisition.
func (t *Trigger) ArmNormal() error {
	return t.arm("NORMal", scope.ArmedNormal)
}

func (t *Trigger) arm(mode string, next scope.TriggerState) error {
	if err := t.cmd.Write(":TRIGger:MODE " + mode); err != nil {
		return err
	}
	if err := t.cmd.WriteSync(":TRIGger:RUN"); err != nil {
		return err
	}
	t.setState(next, "arm")
	return nil
}

// Disarm stops acquisition. Waiting on a disarmed trigger is an error.
func (t *Trigger) Disarm() error {
	if err := t.cmd.WriteSync(":TRIGger:STOP"); err != nil {
		return err
	}
	t.setState(scope.Disarmed, "disarm")
	return nil
}

// IsArmed asks the instrument whether acquisition is running. The local
// state is not changed.
func (t *Trigger) IsArmed() (bool, error) {
	status, err := t.cmd.Query(":TRIGger:STATus?")
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(status, statusStop), nil
}

// WaitForWaveform polls until an acquisition completes. Single-shot mode
// polls the run/stop status; auto and normal modes poll the new
// acquisition bit of :INR?.
func (t *Trigger) WaitForWaveform(ctx context.Context, opts ...scope.WaitOption) (bool, error) {
	var fired func() (bool, error)
	switch t.state {
	case scope.Disarmed:
		return false, scope.ErrNotArmed
	case scope.Fired:
		return true, nil
	case scope.ArmedSingle:
		fired = t.singleFired
	default:
		fired = t.acquisitionDone
	}

	start := time.Now()
	ok, err := scope.Poll(ctx, scope.NewWaitOptions(opts...), fired)
	if ok && t.state == scope.ArmedSingle {
		t.setState(scope.Fired, "acquired")
	}
	t.debugLog("wait for waveform", "fired", ok, "elapsed", time.Since(start), "error", err)
	return ok, err
}

func (t *Trigger) singleFired() (bool, error) {
	status, err := t.cmd.Query(":TRIGger:STATus?")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(status, statusStop), nil
}

func (t *Trigger) acquisitionDone() (bool, error) {
	reply, err := t.cmd.Query(":INR?")
	if err != nil {
		return false, err
	}
	inr, err := strconv.ParseInt(reply, 10, 32)
	if err != nil {
		return false, fmt.Errorf("%w: :INR? reply %q", scope.ErrDecode, reply)
	}
	return inr&inrNewAcquisition != 0, nil
}

func (t *Trigger) setState(next scope.TriggerState, reason string) {
	prev := t.state
	t.state = next
	if t.plog != nil {
		t.plog.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: t.connID,
			Layer:        log.LayerDriver,
			Category:     log.CategoryState,
			Address:      t.address,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityTrigger,
				OldState: prev.String(),
				NewState: next.String(),
				Reason:   reason,
			},
		})
	}
	t.debugLog("trigger state", "from", prev, "to", next, "reason", reason)
}

func (t *Trigger) debugLog(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

var _ scope.Trigger = (*Trigger)(nil)
