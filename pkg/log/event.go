package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the instrument session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates traffic flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Address is the instrument resource address.
	Address string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Command     *CommandEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of traffic.
type Direction uint8

const (
	// DirectionIn indicates data read from the instrument.
	DirectionIn Direction = 0
	// DirectionOut indicates data sent to the instrument.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the byte channel (lines and binary blocks).
	LayerTransport Layer = 0
	// LayerDispatcher is the command dispatcher.
	LayerDispatcher Layer = 1
	// LayerDriver is the instrument driver.
	LayerDriver Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerDispatcher:
		return "DISPATCHER"
	case LayerDriver:
		return "DRIVER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command or its reply.
	CategoryCommand Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandKind distinguishes the kinds of command traffic.
type CommandKind uint8

const (
	// CommandWrite is a command sent without expecting a reply.
	CommandWrite CommandKind = 0
	// CommandQuery is a command expecting a text reply.
	CommandQuery CommandKind = 1
	// CommandBlockQuery is a command expecting a binary block reply.
	CommandBlockQuery CommandKind = 2
	// CommandReply is a text reply.
	CommandReply CommandKind = 3
	// CommandBlock is a binary block reply.
	CommandBlock CommandKind = 4
)

// String returns the command kind name.
func (k CommandKind) String() string {
	switch k {
	case CommandWrite:
		return "WRITE"
	case CommandQuery:
		return "QUERY"
	case CommandBlockQuery:
		return "BLOCK_QUERY"
	case CommandReply:
		return "REPLY"
	case CommandBlock:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures one command or reply.
type CommandEvent struct {
	// Kind of traffic.
	Kind CommandKind `cbor:"1,keyasint"`

	// Text is the command or text reply without terminator.
	Text string `cbor:"2,keyasint,omitempty"`

	// Size is the payload size in bytes.
	Size int `cbor:"3,keyasint"`

	// Data is the binary payload (may be truncated for large blocks).
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"5,keyasint,omitempty"`

	// Elapsed is the round-trip time for replies. Stored as nanoseconds.
	Elapsed *time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures session and trigger lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates an instrument session change.
	StateEntitySession StateEntity = 0
	// StateEntityTrigger indicates a trigger state change.
	StateEntityTrigger StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityTrigger:
		return "TRIGGER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// MaxLoggedData bounds the binary payload kept in a CommandEvent.
const MaxLoggedData = 256

// NewCommandEvent builds a CommandEvent, keeping at most MaxLoggedData bytes
// of data. Size always reports the full payload length.
func NewCommandEvent(kind CommandKind, text string, data []byte) *CommandEvent {
	ev := &CommandEvent{Kind: kind, Text: text, Size: len(text)}
	if data != nil {
		ev.Size = len(data)
		if len(data) > MaxLoggedData {
			ev.Data = append([]byte(nil), data[:MaxLoggedData]...)
			ev.Truncated = true
		} else {
			ev.Data = append([]byte(nil), data...)
		}
	}
	return ev
}
