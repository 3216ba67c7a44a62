package log

import (
	"context"
	"log/slog"
	"time"
)

// SlogAdapter prints protocol events through an slog.Logger, so a debug
// console shows instrument traffic interleaved with operational logs.
// Commands and state changes are logged at Debug, errors at Warn.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := make([]slog.Attr, 0, 10)
	attrs = append(attrs,
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	)
	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}

	msg := "instrument " + event.Category.String()
	switch {
	case event.Command != nil:
		attrs = appendCommand(attrs, event.Command)
	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("op", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func appendCommand(attrs []slog.Attr, c *CommandEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("kind", c.Kind.String()),
		slog.Int("size", c.Size),
	)
	if c.Text != "" {
		attrs = append(attrs, slog.String("text", c.Text))
	}
	if c.Truncated {
		attrs = append(attrs, slog.Bool("truncated", true))
	}
	if c.Elapsed != nil {
		attrs = append(attrs, slog.Duration("elapsed", c.Elapsed.Round(time.Microsecond)))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
