package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inctrl/inctrl-go/cmd/inctrl/commands"
	"github.com/inctrl/inctrl-go/pkg/bench"
)

func TestSplitList(t *testing.T) {
	got := splitList(" scl, 2,,sda ")
	if strings.Join(got, "|") != "scl|2|sda" {
		t.Errorf("splitList = %v", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestSetupResolvesConfiguredInstrument(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bench.yaml")
	logPath := filepath.Join(dir, "logs", "session.ilog")
	yaml := `
log_level: warn
timeout: 2s
instruments:
  - name: scope
    address: TCPIP::192.168.1.20::5025::SOCKET
    timeout: 7s
    channels: {scl: 1, sda: 2}
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := setup(&globalFlags{configFile: cfgPath, protocolLog: logPath, simulate: true, simModel: "SDS802X HD"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	opts, addr := e.options("scope")
	if addr != "TCPIP::192.168.1.20::5025::SOCKET" {
		t.Errorf("address = %q", addr)
	}
	if opts.Transport.Timeout != 7*time.Second {
		t.Errorf("timeout = %s, want 7s", opts.Transport.Timeout)
	}
	if _, addr := e.options("10.0.0.5:5025"); addr != "10.0.0.5:5025" {
		t.Errorf("bare address = %q", addr)
	}

	spec, err := bench.Describe(context.Background(), addr, opts)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if spec.Model != "SDS802X HD" {
		t.Errorf("model = %q", spec.Model)
	}
	e.close()

	stats, err := commands.CollectStats(logPath)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.TotalEvents == 0 {
		t.Error("expected protocol events in the session log")
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := setup(&globalFlags{logLevel: "chatty"}); err == nil {
		t.Error("expected error for unknown log level")
	}
}
