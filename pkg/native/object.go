package native

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/indragiek/reactivexpc/pkg/shm"
)

// Type is the runtime type tag of a native object.
type Type uint8

// Native type tags. The numeric values are part of the frame format.
const (
	TypeNull Type = iota
	TypeArray
	TypeBool
	TypeData
	TypeDate
	TypeDictionary
	TypeDouble
	TypeFD
	TypeInt64
	TypeShmem
	TypeString
	TypeUInt64
	TypeUUID

	// TypeError tags connection fault sentinels. Never serialized.
	TypeError Type = 0xF0
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeArray:
		return "array"
	case TypeBool:
		return "bool"
	case TypeData:
		return "data"
	case TypeDate:
		return "date"
	case TypeDictionary:
		return "dictionary"
	case TypeDouble:
		return "double"
	case TypeFD:
		return "fd"
	case TypeInt64:
		return "int64"
	case TypeShmem:
		return "shmem"
	case TypeString:
		return "string"
	case TypeUInt64:
		return "uint64"
	case TypeUUID:
		return "uuid"
	case TypeError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Object is any native object.
type Object interface {
	Type() Type
}

// Array is an ordered list of objects.
type Array []Object

// Bool is a boolean.
type Bool bool

// Data is an immutable byte blob.
type Data []byte

// Date is a point in time in whole seconds since the Unix epoch.
type Date int64

// Dictionary maps string keys to objects.
type Dictionary map[string]Object

// Double is an IEEE-754 64-bit float.
type Double float64

// Int64 is a signed 64-bit integer.
type Int64 int64

// Null is the unit value.
type Null struct{}

// String holds raw string bytes. It is not guaranteed to be valid UTF-8.
type String string

// UInt64 is an unsigned 64-bit integer.
type UInt64 uint64

// UUID is a 128-bit identifier.
type UUID [16]byte

func (Array) Type() Type      { return TypeArray }
func (Bool) Type() Type       { return TypeBool }
func (Data) Type() Type       { return TypeData }
func (Date) Type() Type       { return TypeDate }
func (Dictionary) Type() Type { return TypeDictionary }
func (Double) Type() Type     { return TypeDouble }
func (Int64) Type() Type      { return TypeInt64 }
func (Null) Type() Type       { return TypeNull }
func (String) Type() Type     { return TypeString }
func (UInt64) Type() Type     { return TypeUInt64 }
func (UUID) Type() Type       { return TypeUUID }

// FD carries a file descriptor.
//
// An FD built with NewFD borrows the file; an FD produced by a transport
// owns the received file until the transport's event handler returns.
// Consumers that need to keep the descriptor must Dup it.
type FD struct {
	file *os.File
}

// NewFD wraps f without taking ownership.
func NewFD(f *os.File) *FD {
	return &FD{file: f}
}

// Type returns TypeFD.
func (*FD) Type() Type { return TypeFD }

// File returns the wrapped file.
func (d *FD) File() *os.File {
	return d.file
}

// Dup returns an independent, close-on-exec duplicate of the descriptor.
func (d *FD) Dup() (*os.File, error) {
	return DupFile(d.file)
}

// Shmem describes a shared memory region by its backing file and length.
type Shmem struct {
	file   *os.File
	length int
}

// NewShmem wraps a region backing file without taking ownership.
func NewShmem(f *os.File, length int) *Shmem {
	return &Shmem{file: f, length: length}
}

// Type returns TypeShmem.
func (*Shmem) Type() Type { return TypeShmem }

// File returns the backing file.
func (s *Shmem) File() *os.File {
	return s.file
}

// Length returns the region length in bytes.
func (s *Shmem) Length() int {
	return s.length
}

// Map maps the region into this process. The caller must Unmap the result.
func (s *Shmem) Map() (*shm.Region, error) {
	return shm.Map(s.file, s.length)
}

// Error is a connection fault sentinel. Sentinels are compared by identity.
type Error struct {
	name string
}

// Type returns TypeError.
func (*Error) Type() Type { return TypeError }

// Name returns the sentinel name.
func (e *Error) Name() string {
	return e.name
}

// String returns the sentinel name.
func (e *Error) String() string {
	return e.name
}

// Connection fault sentinels delivered through a transport event handler.
var (
	// ErrorConnectionInterrupted reports that the peer went away but the
	// named service may be reachable again.
	ErrorConnectionInterrupted = &Error{name: "connection-interrupted"}

	// ErrorConnectionInvalid reports that the connection can never carry
	// messages again.
	ErrorConnectionInvalid = &Error{name: "connection-invalid"}

	// ErrorTerminationImminent reports that the process is about to exit.
	ErrorTerminationImminent = &Error{name: "termination-imminent"}
)

// Opaque stands in for an object whose tag this process does not support.
type Opaque struct {
	Tag Type
}

// Type returns the unsupported tag.
func (o Opaque) Type() Type { return o.Tag }

// DupFile duplicates f's descriptor with close-on-exec set.
func DupFile(f *os.File) (*os.File, error) {
	if f == nil {
		return nil, os.ErrInvalid
	}
	sc, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		fd     int
		dupErr error
	)
	if err := sc.Control(func(raw uintptr) {
		fd, dupErr = unix.FcntlInt(raw, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, fmt.Errorf("dup descriptor: %w", dupErr)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}

// Compile-time interface satisfaction checks.
var (
	_ Object = Array(nil)
	_ Object = Bool(false)
	_ Object = Data(nil)
	_ Object = Date(0)
	_ Object = Dictionary(nil)
	_ Object = Double(0)
	_ Object = (*FD)(nil)
	_ Object = Int64(0)
	_ Object = Null{}
	_ Object = (*Shmem)(nil)
	_ Object = String("")
	_ Object = UInt64(0)
	_ Object = UUID{}
	_ Object = (*Error)(nil)
	_ Object = Opaque{}
)
