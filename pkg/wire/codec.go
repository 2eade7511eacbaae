package wire

import (
	"math"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/indragiek/reactivexpc/pkg/native"
)

// Decode converts a native object to a Value. It reports false when obj has
// a type the wire model does not carry, when a string is not valid UTF-8,
// or when a descriptor cannot be duplicated or mapped.
//
// Elements of arrays and dictionaries that fail to decode are omitted from
// the result; the collection itself still decodes.
func Decode(obj native.Object) (Value, bool) {
	if obj == nil {
		return nil, false
	}

	switch o := obj.(type) {
	case native.Array:
		arr := make(Array, 0, len(o))
		for _, item := range o {
			if v, ok := Decode(item); ok {
				arr = append(arr, v)
			}
		}
		return arr, true
	case native.Bool:
		return Bool(o), true
	case native.Data:
		return Data(o), true
	case native.Date:
		return Date{time.Unix(int64(o), 0)}, true
	case native.Dictionary:
		dict := make(Dictionary, len(o))
		for k, item := range o {
			if v, ok := Decode(item); ok {
				dict[k] = v
			}
		}
		return dict, true
	case native.Double:
		return Double(o), true
	case *native.FD:
		f, err := o.Dup()
		if err != nil {
			return nil, false
		}
		return FileHandle{file: f}, true
	case native.Int64:
		return Int64(o), true
	case native.Null:
		return Null{}, true
	case *native.Shmem:
		r, err := o.Map()
		if err != nil {
			return nil, false
		}
		return SharedMemory{region: r}, true
	case native.String:
		if !utf8.ValidString(string(o)) {
			return nil, false
		}
		return String(o), true
	case native.UInt64:
		return UInt64(o), true
	case native.UUID:
		return UUID(o), true
	default:
		return nil, false
	}
}

// Encode converts v to its native object. A nil Value encodes as Null.
// Encoding never fails. FileHandle and SharedMemory encode as borrowed
// references; v must stay open until the transport has sent the object.
func Encode(v Value) native.Object {
	switch x := v.(type) {
	case Array:
		arr := make(native.Array, len(x))
		for i, item := range x {
			arr[i] = Encode(item)
		}
		return arr
	case Bool:
		return native.Bool(x)
	case Data:
		return native.Data(x)
	case Date:
		return native.Date(x.Unix())
	case Dictionary:
		dict := make(native.Dictionary, len(x))
		for k, item := range x {
			dict[k] = Encode(item)
		}
		return dict
	case Double:
		return native.Double(x)
	case FileHandle:
		return native.NewFD(x.file)
	case Int64:
		return native.Int64(x)
	case SharedMemory:
		if x.region == nil {
			return native.NewShmem(nil, 0)
		}
		return native.NewShmem(x.region.File(), x.region.Len())
	case String:
		return native.String(x)
	case UInt64:
		return native.UInt64(x)
	case UUID:
		return native.UUID(x)
	default:
		return native.Null{}
	}
}

// Equal reports whether a and b are structurally equal.
//
// FileHandles compare equal when they refer to the same device and inode.
// SharedMemory values compare equal when they share address and length.
// Dates compare by instant. Doubles compare by bit pattern, so NaN equals
// itself and 0 differs from -0.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Data:
		y, ok := b.(Data)
		return ok && string(x) == string(y)
	case Date:
		y, ok := b.(Date)
		return ok && x.Equal(y.Time)
	case Dictionary:
		y, ok := b.(Dictionary)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case FileHandle:
		y, ok := b.(FileHandle)
		return ok && sameFile(x, y)
	case SharedMemory:
		y, ok := b.(SharedMemory)
		return ok && x.Addr() == y.Addr() && x.Len() == y.Len()
	case Double:
		y, ok := b.(Double)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case Bool, Int64, Null, String, UInt64, UUID:
		return a == b
	default:
		return false
	}
}

func sameFile(a, b FileHandle) bool {
	if a.file == nil || b.file == nil {
		return false
	}
	var sa, sb unix.Stat_t
	if err := unix.Fstat(int(a.file.Fd()), &sa); err != nil {
		return false
	}
	if err := unix.Fstat(int(b.file.Fd()), &sb); err != nil {
		return false
	}
	return sa.Dev == sb.Dev && sa.Ino == sb.Ino
}
