package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends protocol events to an .ilog file.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	written int
	closed  bool
}

// NewFileLogger opens path for appending, creating it and any missing
// parent directories. A new file starts with an .ilog header; an existing
// one must already carry it. Sessions from several runs can share one
// file and are told apart by their ConnectionID.
func NewFileLogger(path string) (*FileLogger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		if err := checkHeader(path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	enc := eventEnc.NewEncoder(f)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := writeHeader(enc, time.Now()); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &FileLogger{path: path, file: f, encoder: enc}, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = readHeader(eventDec.NewDecoder(f))
	return err
}

// Path returns the file the logger writes to.
func (l *FileLogger) Path() string {
	return l.path
}

// Written returns the number of events written by this logger.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Log appends an event, stamping it with the current time if unset.
// Events logged after Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	// A failed write must never fail the instrument operation being logged.
	if err := l.encoder.Encode(event); err == nil {
		l.written++
	}
}

// Close closes the file. Further calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
