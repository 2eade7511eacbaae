package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the endpoint (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// ServiceName is the service the endpoint is bound to, if any.
	ServiceName string `cbor:"6,keyasint,omitempty"`

	// PeerPID is the peer process ID, when known.
	PeerPID int32 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Endpoint/listener state
	Fault       *FaultEvent       `cbor:"13,keyasint,omitempty"` // Connection faults
	Drop        *DropEvent        `cbor:"14,keyasint,omitempty"` // Undecodable inbound events
	Error       *ErrorEventData   `cbor:"15,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
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

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the value encoding layer.
	LayerWire Layer = 1
	// LayerEndpoint is the connection endpoint.
	LayerEndpoint Layer = 2
	// LayerListener is the connection acceptor.
	LayerListener Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerEndpoint:
		return "ENDPOINT"
	case LayerListener:
		return "LISTENER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or decoded message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryFault indicates a connection fault.
	CategoryFault Category = 2
	// CategoryDrop indicates an inbound event that was discarded.
	CategoryDrop Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryFault:
		return "FAULT"
	case CategoryDrop:
		return "DROP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Files is the number of descriptors passed with the frame.
	Files int `cbor:"4,keyasint,omitempty"`
}

// MessageEvent captures a decoded value at the wire layer.
type MessageEvent struct {
	// Kind is the value variant ("string", "dictionary", ...).
	Kind string `cbor:"1,keyasint"`

	// Summary is a human-readable rendering of the value, possibly
	// shortened.
	Summary string `cbor:"2,keyasint,omitempty"`

	// Wrapped reports whether the value travelled under the reserved
	// single-value key.
	Wrapped bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures endpoint and listener lifecycle events.
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
	// StateEntityConnection indicates a transport connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityEndpoint indicates an endpoint lifecycle change.
	StateEntityEndpoint StateEntity = 1
	// StateEntityListener indicates an accept decision or registry change.
	StateEntityListener StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityEndpoint:
		return "ENDPOINT"
	case StateEntityListener:
		return "LISTENER"
	default:
		return "UNKNOWN"
	}
}

// FaultEvent captures a connection fault delivered by the transport.
type FaultEvent struct {
	// Name is the fault name ("connection-interrupted", ...).
	Name string `cbor:"1,keyasint"`
}

// DropEvent captures an inbound event that could not be decoded.
type DropEvent struct {
	// NativeType is the type tag of the undecodable object.
	NativeType string `cbor:"1,keyasint"`

	// Reason describes why decoding failed.
	Reason string `cbor:"2,keyasint,omitempty"`

	// Count is the endpoint's running total of dropped events.
	Count uint64 `cbor:"3,keyasint,omitempty"`
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
