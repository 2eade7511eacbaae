package connection

import (
	"errors"

	"github.com/indragiek/reactivexpc/pkg/native"
)

// Fault is a terminal condition reported on a connection's inbound stream.
// Faults are compared by identity.
type Fault struct {
	name string
	obj  *native.Error
}

// Error implements error.
func (f *Fault) Error() string {
	return "connection fault: " + f.name
}

// Name returns the short fault name used in logs and metrics.
func (f *Fault) Name() string {
	return f.name
}

// Native returns the transport sentinel the fault was raised for.
func (f *Fault) Native() *native.Error {
	return f.obj
}

// Connection faults.
var (
	// ErrPeerInterrupted reports that the service went away. The service
	// may be reachable through a new connection.
	ErrPeerInterrupted = &Fault{name: "peer-interrupted", obj: native.ErrorConnectionInterrupted}

	// ErrConnectionInvalid reports that the connection cannot carry
	// messages, or the named service does not exist.
	ErrConnectionInvalid = &Fault{name: "connection-invalid", obj: native.ErrorConnectionInvalid}

	// ErrTerminationImminent reports that the hosting process is about to
	// exit.
	ErrTerminationImminent = &Fault{name: "termination-imminent", obj: native.ErrorTerminationImminent}
)

// Faults lists every connection fault.
var Faults = []*Fault{ErrPeerInterrupted, ErrConnectionInvalid, ErrTerminationImminent}

// IsFault reports whether err is, or wraps, a connection fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// faultFor maps a transport sentinel to its fault.
func faultFor(obj native.Object) (*Fault, bool) {
	e, ok := obj.(*native.Error)
	if !ok {
		return nil, false
	}
	for _, f := range Faults {
		if f.obj == e {
			return f, true
		}
	}
	return nil, false
}
