package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inctrl/inctrl-go/pkg/log"
)

func TestCollectStats(t *testing.T) {
	path := writeTestLog(t, sessionEvents())

	stats, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}

	if stats.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", stats.TotalEvents)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.EventsByLayer[log.LayerDispatcher] != 2 {
		t.Errorf("dispatcher events = %d, want 2", stats.EventsByLayer[log.LayerDispatcher])
	}
	if stats.Commands[log.CommandQuery] != 1 || stats.Commands[log.CommandReply] != 1 {
		t.Errorf("Commands = %v", stats.Commands)
	}
	if len(stats.Connections) != 2 {
		t.Fatalf("Connections = %d, want 2", len(stats.Connections))
	}

	conn := stats.Connections["abc12345-6789-0123-4567-890abcdef012"]
	if conn.Address != "10.0.0.1:5025" {
		t.Errorf("Address = %q", conn.Address)
	}
	if conn.BytesOut != 5 || conn.BytesIn != 39 {
		t.Errorf("bytes out/in = %d/%d, want 5/39", conn.BytesOut, conn.BytesIn)
	}
	if conn.TriggerState != "ARMED_SINGLE" {
		t.Errorf("TriggerState = %q", conn.TriggerState)
	}
}

func TestRunStats(t *testing.T) {
	path := writeTestLog(t, sessionEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 4",
		"DISPATCHER:",
		"QUERY:",
		"Connections: 2",
		"[abc12345]",
		"Address: 10.0.0.1:5025",
		"Trigger: ARMED_SINGLE",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}
