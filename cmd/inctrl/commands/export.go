package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// csvHeader names the columns written by the csv export format.
var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category", "address",
	"type", "text", "size", "elapsed_us", "detail",
}

type exporter func(events *log.Reader, w io.Writer) error

var exporters = map[string]exporter{
	"jsonl": exportJSONL,
	"csv":   exportCSV,
}

// RunExport converts the log file to jsonl or csv. An empty output writes
// to stdout.
func RunExport(path, format, output string) error {
	export, ok := exporters[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if output == "" {
		return export(reader, os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := export(reader, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvRow flattens an event into csvHeader order. The detail column holds
// the previous trigger state, the failed operation, or "truncated" for
// block payloads cut to log.MaxLoggedData.
func csvRow(event log.Event) []string {
	var kind, text, size, elapsed, detail string
	switch {
	case event.Command != nil:
		c := event.Command
		kind = c.Kind.String()
		text = c.Text
		size = strconv.Itoa(c.Size)
		if c.Elapsed != nil {
			elapsed = strconv.FormatFloat(float64(c.Elapsed.Nanoseconds())/1e3, 'f', 3, 64)
		}
		if c.Truncated {
			detail = "truncated"
		}
	case event.StateChange != nil:
		kind = "state"
		text = event.StateChange.NewState
		detail = event.StateChange.OldState
	case event.Error != nil:
		kind = "error"
		text = event.Error.Message
		detail = event.Error.Context
	default:
		kind = "unknown"
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.Address,
		kind,
		text,
		size,
		elapsed,
		detail,
	}
}
