// Package log provides structured protocol logging for instrument sessions.
//
// This package defines the Logger interface and Event types for capturing
// the command traffic exchanged with an instrument and the state changes it
// drives. It is separate from operational logging (slog): protocol capture
// provides a complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	opts.ProtocolLogger, _ = log.NewFileLogger("/var/log/inctrl/scope.ilog")
//
//	// Both: use MultiLogger
//	opts.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw text lines and binary blocks (CommandEvent)
//   - Dispatcher: commands and replies (CommandEvent)
//   - Driver: trigger state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated payload.
//
// # File Format
//
// An .ilog file is a CBOR sequence: a header item carrying FormatVersion,
// then one item per Event with integer keys. FileLogger appends to existing
// files after checking their header. The `inctrl log` command prints,
// exports, filters and summarizes them.
package log
