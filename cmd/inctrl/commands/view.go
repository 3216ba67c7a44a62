// Package commands implements the inctrl CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the log view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	Kind      *log.CommandKind
	Address   string
}

func (f ViewFilter) filter() log.Filter {
	return log.Filter{
		Layer:     f.Layer,
		Direction: f.Direction,
		Category:  f.Category,
		Kind:      f.Kind,
		Address:   f.Address,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Command != nil:
		typeLabel = event.Command.Kind.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer.String(), typeLabel)

	switch {
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.Address != "" {
		fmt.Fprintf(w, "  Address: %s\n", event.Address)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	if cmd.Text != "" {
		fmt.Fprintf(w, "  %s\n", cmd.Text)
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", cmd.Size)
	if len(cmd.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(cmd.Data))
		if cmd.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
	if cmd.Elapsed != nil {
		fmt.Fprintf(w, "  Elapsed: %s\n", formatDuration(*cmd.Elapsed))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "dispatcher":
		return log.LayerDispatcher, nil
	case "driver":
		return log.LayerDriver, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, dispatcher, or driver)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be command, state, or error)", s)
	}
}

// ParseKindFlag parses a command kind string (case-insensitive).
func ParseKindFlag(s string) (log.CommandKind, error) {
	switch strings.ToLower(s) {
	case "write":
		return log.CommandWrite, nil
	case "query":
		return log.CommandQuery, nil
	case "block_query", "block-query":
		return log.CommandBlockQuery, nil
	case "reply":
		return log.CommandReply, nil
	case "block":
		return log.CommandBlock, nil
	default:
		return 0, fmt.Errorf("invalid kind: %s (must be write, query, block_query, reply, or block)", s)
	}
}

// RunView prints every matching event in the log file.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.filter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
