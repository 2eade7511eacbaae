package wire

import (
	"github.com/indragiek/reactivexpc/pkg/native"
)

// SingleValueKey is the reserved dictionary key under which a non-dictionary
// value travels.
const SingleValueKey = "rxpc.message.single"

// Wrap encodes v for sending. Dictionaries encode as-is; any other value is
// placed in a single-entry dictionary under SingleValueKey.
func Wrap(v Value) native.Object {
	if dict, ok := v.(Dictionary); ok {
		return Encode(dict)
	}
	return native.Dictionary{SingleValueKey: Encode(v)}
}

// Unwrap decodes a received object. A dictionary whose only key is
// SingleValueKey unwraps to that entry. Unwrap reports false when obj
// itself cannot be decoded.
func Unwrap(obj native.Object) (Value, bool) {
	v, ok := Decode(obj)
	if !ok {
		return nil, false
	}
	if dict, isDict := v.(Dictionary); isDict && len(dict) == 1 {
		if inner, found := dict[SingleValueKey]; found {
			return inner, true
		}
	}
	return v, true
}

// Message is a value in transit.
type Message struct {
	Value Value
}

// NewMessage returns a message carrying v.
func NewMessage(v Value) Message {
	return Message{Value: v}
}

// ParseMessage unwraps a received object into a message.
func ParseMessage(obj native.Object) (Message, bool) {
	v, ok := Unwrap(obj)
	if !ok {
		return Message{}, false
	}
	return Message{Value: v}, true
}

// Native returns the wrapped native object for sending.
func (m Message) Native() native.Object {
	return Wrap(m.Value)
}

// Kind returns the variant name of the carried value.
func (m Message) Kind() string {
	return Kind(m.Value)
}
