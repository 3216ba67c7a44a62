package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inctrl/inctrl-go/pkg/log"
)

func TestRunExportCSV(t *testing.T) {
	path := writeTestLog(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(records))
	}
	if records[0][6] != "type" || records[0][7] != "text" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][6] != "QUERY" || records[1][7] != "*IDN?" || records[1][8] != "5" {
		t.Errorf("unexpected command row: %v", records[1])
	}
	if records[2][9] != "1500.000" {
		t.Errorf("elapsed_us = %q, want 1500.000", records[2][9])
	}
	if records[3][6] != "state" || records[3][7] != "ARMED_SINGLE" || records[3][10] != "DISARMED" {
		t.Errorf("unexpected state row: %v", records[3])
	}
	if records[4][6] != "error" || records[4][10] != "read" {
		t.Errorf("unexpected error row: %v", records[4])
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeTestLog(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	var first log.Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if first.Command == nil || first.Command.Text != "*IDN?" {
		t.Errorf("unexpected first event: %+v", first)
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeTestLog(t, sessionEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeTestLog(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "filtered.ilog")

	n, err := RunFilter(path, FilterOptions{
		Output:    out,
		ConnID:    "abc12345-6789-0123-4567-890abcdef012",
		Layer:     "dispatcher",
		Direction: "in",
	})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 1 {
		t.Errorf("filtered %d events, want 1", n)
	}

	stats, err := CollectStats(out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Commands[log.CommandReply] != 1 || stats.TotalEvents != 1 {
		t.Errorf("unexpected filtered content: %+v", stats)
	}
}

func TestBuildFilterErrors(t *testing.T) {
	tests := []FilterOptions{
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "wire"},
		{Direction: "up"},
		{Category: "snapshot"},
		{Kind: "read"},
	}
	for _, opts := range tests {
		if _, err := opts.BuildFilter(); err == nil {
			t.Errorf("BuildFilter(%+v): expected error", opts)
		}
	}
}

func TestBuildFilterTimeWindow(t *testing.T) {
	f, err := FilterOptions{
		TimeStart: "2026-03-14T09:26:53Z",
		TimeEnd:   "2026-03-14T09:26:54Z",
	}.BuildFilter()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range sessionEvents() {
		if !f.Matches(e) {
			t.Errorf("event at %s should match", e.Timestamp)
		}
	}
}
