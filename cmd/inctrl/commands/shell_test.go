package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/inctrl/inctrl-go/pkg/bench"
	"github.com/inctrl/inctrl-go/pkg/drivers/siglent"
	"github.com/inctrl/inctrl-go/pkg/scpi"
	"github.com/inctrl/inctrl-go/pkg/transport"
)

func simDispatcher(t *testing.T) (*scpi.Dispatcher, *siglent.Simulator) {
	t.Helper()
	sim := siglent.NewSimulator(siglent.SimulatorConfig{Points: 100})
	open := func(context.Context, string, transport.Config) (scpi.Channel, error) { return sim, nil }
	d, err := bench.Dial(context.Background(), "sim:5025", bench.Options{Open: open})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, sim
}

func TestExecQuery(t *testing.T) {
	d, sim := simDispatcher(t)

	out, err := Exec(d, "  *IDN?  ")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if out != sim.IDN() {
		t.Errorf("reply = %q, want %q", out, sim.IDN())
	}
}

func TestExecWriteAndSync(t *testing.T) {
	d, sim := simDispatcher(t)

	out, err := Exec(d, ":TIMebase:SCALe 1E-03")
	if err != nil || out != "" {
		t.Fatalf("Exec write = %q, %v", out, err)
	}
	if sim.Timebase() != 1e-3 {
		t.Errorf("timebase = %g, want 1e-3", sim.Timebase())
	}

	out, err = Exec(d, "sync :TRIGger:STOP")
	if err != nil || out != "OK" {
		t.Fatalf("Exec sync = %q, %v", out, err)
	}
	cmds := sim.Commands()
	if got := strings.Join(cmds[len(cmds)-2:], "|"); got != ":TRIGger:STOP|*OPC?" {
		t.Errorf("last commands = %s", got)
	}
}

func TestExecBlock(t *testing.T) {
	d, _ := simDispatcher(t)

	out, err := Exec(d, "block :WAVeform:PREamble?")
	if err != nil {
		t.Fatalf("Exec block: %v", err)
	}
	if !strings.HasPrefix(out, "346 bytes: ") || !strings.HasSuffix(out, "...") {
		t.Errorf("unexpected block summary %q", out)
	}
}

func TestExecBlank(t *testing.T) {
	d, sim := simDispatcher(t)
	n := len(sim.Commands())

	out, err := Exec(d, "   ")
	if err != nil || out != "" {
		t.Errorf("blank line = %q, %v", out, err)
	}
	if len(sim.Commands()) != n {
		t.Error("blank line must not reach the instrument")
	}
}

func TestFormatBlockShort(t *testing.T) {
	if got := formatBlock([]byte{0xde, 0xad}); got != "2 bytes: dead" {
		t.Errorf("formatBlock = %q", got)
	}
}
