package log

import (
	"errors"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects log events. Zero fields match everything.
type Filter struct {
	// ConnectionID matches one session exactly.
	ConnectionID string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// Kind matches command events of one kind. Events without a command
	// payload never match.
	Kind *CommandKind

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events before this time.
	TimeEnd *time.Time

	// Address matches the instrument resource address exactly.
	Address string
}

// Matches reports whether event passes every criterion.
func (f *Filter) Matches(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.Kind != nil && (event.Command == nil || event.Command.Kind != *f.Kind):
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Address != "" && event.Address != f.Address:
		return false
	}
	return true
}

// Reader streams events from an .ilog file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	header  fileHeader
	filter  Filter
}

// NewReader opens path and checks its header.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns only events matching filter.
// Files without an .ilog header return ErrNotLogFile.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := eventDec.NewDecoder(f)
	h, err := readHeader(dec)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{file: f, decoder: dec, header: h, filter: filter}, nil
}

// Version returns the format version recorded in the file header.
func (r *Reader) Version() int {
	return r.header.Version
}

// Created returns when the file was started.
func (r *Reader) Created() time.Time {
	return r.header.Created
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Events iterates the remaining matching events. Iteration stops after
// the first read error, which is yielded with a zero Event.
func (r *Reader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
