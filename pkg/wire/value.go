package wire

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indragiek/reactivexpc/pkg/shm"
)

// Value is a wire value. The variant set is closed.
type Value interface {
	Packable
	fmt.Stringer

	isValue()
}

// Array is an ordered sequence of values.
type Array []Value

// Bool is a boolean.
type Bool bool

// Data is an immutable byte blob.
type Data []byte

// Date is a point in time. Only whole seconds survive encoding.
type Date struct {
	time.Time
}

// Dictionary maps string keys to values.
type Dictionary map[string]Value

// Double is an IEEE-754 64-bit float.
type Double float64

// Int64 is a signed 64-bit integer.
type Int64 int64

// Null is the unit value.
type Null struct{}

// String is a UTF-8 string.
type String string

// UInt64 is an unsigned 64-bit integer.
type UInt64 uint64

// UUID is a 128-bit identifier.
type UUID uuid.UUID

// FileHandle owns an open file descriptor.
//
// Two handles are Equal when they name the same underlying file, even if
// their descriptor numbers differ.
type FileHandle struct {
	file *os.File
}

// NewFileHandle takes ownership of f.
func NewFileHandle(f *os.File) FileHandle {
	return FileHandle{file: f}
}

// File returns the owned file.
func (h FileHandle) File() *os.File {
	return h.file
}

// Close closes the owned file.
func (h FileHandle) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}

// SharedMemory is a region of memory mapped into this process.
type SharedMemory struct {
	region *shm.Region
}

// NewSharedMemory wraps a mapped region. The caller keeps responsibility
// for unmapping it.
func NewSharedMemory(r *shm.Region) SharedMemory {
	return SharedMemory{region: r}
}

// Region returns the mapped region.
func (m SharedMemory) Region() *shm.Region {
	return m.region
}

// Bytes returns the mapped memory.
func (m SharedMemory) Bytes() []byte {
	if m.region == nil {
		return nil
	}
	return m.region.Bytes()
}

// Addr returns the start address of the mapping.
func (m SharedMemory) Addr() uintptr {
	if m.region == nil {
		return 0
	}
	return m.region.Addr()
}

// Len returns the length of the mapping in bytes.
func (m SharedMemory) Len() int {
	if m.region == nil {
		return 0
	}
	return m.region.Len()
}

// Unmap releases the mapping.
func (m SharedMemory) Unmap() error {
	if m.region == nil {
		return shm.ErrUnmapped
	}
	return m.region.Unmap()
}

func (Array) isValue()        {}
func (Bool) isValue()         {}
func (Data) isValue()         {}
func (Date) isValue()         {}
func (Dictionary) isValue()   {}
func (Double) isValue()       {}
func (FileHandle) isValue()   {}
func (Int64) isValue()        {}
func (Null) isValue()         {}
func (SharedMemory) isValue() {}
func (String) isValue()       {}
func (UInt64) isValue()       {}
func (UUID) isValue()         {}

// Kind returns the variant name of v.
func Kind(v Value) string {
	switch v.(type) {
	case Array:
		return "array"
	case Bool:
		return "bool"
	case Data:
		return "data"
	case Date:
		return "date"
	case Dictionary:
		return "dictionary"
	case Double:
		return "double"
	case FileHandle:
		return "file-handle"
	case Int64:
		return "int64"
	case Null:
		return "null"
	case SharedMemory:
		return "shared-memory"
	case String:
		return "string"
	case UInt64:
		return "uint64"
	case UUID:
		return "uuid"
	default:
		return "invalid"
	}
}

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = describe(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (d Data) String() string {
	return "<" + hex.EncodeToString(d) + ">"
}

func (d Date) String() string {
	return d.UTC().Format(time.RFC3339)
}

func (d Dictionary) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %s", k, describe(d[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d Double) String() string {
	return fmt.Sprintf("%g", float64(d))
}

func (h FileHandle) String() string {
	if h.file == nil {
		return "fd(closed)"
	}
	return fmt.Sprintf("fd(%s)", h.file.Name())
}

func (i Int64) String() string {
	return fmt.Sprintf("%d", int64(i))
}

func (Null) String() string {
	return "null"
}

func (m SharedMemory) String() string {
	return fmt.Sprintf("shmem(address: %#x, length: %d)", m.Addr(), m.Len())
}

func (s String) String() string {
	return fmt.Sprintf("%q", string(s))
}

func (u UInt64) String() string {
	return fmt.Sprintf("%d", uint64(u))
}

func (u UUID) String() string {
	return uuid.UUID(u).String()
}

func describe(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// Compile-time interface satisfaction checks.
var (
	_ Value = Array(nil)
	_ Value = Bool(false)
	_ Value = Data(nil)
	_ Value = Date{}
	_ Value = Dictionary(nil)
	_ Value = Double(0)
	_ Value = FileHandle{}
	_ Value = Int64(0)
	_ Value = Null{}
	_ Value = SharedMemory{}
	_ Value = String("")
	_ Value = UInt64(0)
	_ Value = UUID{}
)
