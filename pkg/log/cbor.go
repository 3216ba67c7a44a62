package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the .ilog stream version written by FileLogger.
const FormatVersion = 1

// fileMagic identifies an .ilog stream.
const fileMagic = "inctrl.ilog"

// Log file errors.
var (
	// ErrNotLogFile indicates a file that does not start with an .ilog header.
	ErrNotLogFile = errors.New("not a protocol log")

	// ErrUnsupportedFormat indicates an .ilog stream written by a newer version.
	ErrUnsupportedFormat = errors.New("unsupported protocol log format")
)

// fileHeader is the first item of every .ilog stream, followed by one
// CBOR item per Event. Its keys are disjoint from Event's.
type fileHeader struct {
	Magic   string    `cbor:"100,keyasint"`
	Version int       `cbor:"101,keyasint"`
	Created time.Time `cbor:"102,keyasint"`
}

var (
	eventEnc cbor.EncMode
	eventDec cbor.DecMode
)

func init() {
	var err error

	// Timestamps keep nanosecond precision as RFC 3339 strings.
	eventEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create protocol log encoder mode: %v", err))
	}

	eventDec, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create protocol log decoder mode: %v", err))
	}
}

// EncodeEvent encodes one event as a CBOR item with integer keys.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEnc.Marshal(event)
}

// DecodeEvent decodes one CBOR item into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func writeHeader(enc *cbor.Encoder, created time.Time) error {
	return enc.Encode(fileHeader{Magic: fileMagic, Version: FormatVersion, Created: created})
}

func readHeader(dec *cbor.Decoder) (fileHeader, error) {
	var h fileHeader
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return h, fmt.Errorf("%w: empty file", ErrNotLogFile)
		}
		return h, fmt.Errorf("%w: %v", ErrNotLogFile, err)
	}
	if h.Magic != fileMagic {
		return h, ErrNotLogFile
	}
	if h.Version > FormatVersion {
		return h, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, h.Version)
	}
	return h, nil
}
