package wire

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// Packable is implemented by types that can produce an equivalent Value.
// Packing never fails.
type Packable interface {
	Pack() Value
}

// Signed covers the signed integer types packed as Int64.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned covers the unsigned integer types packed as UInt64.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Float covers the floating point types packed as Double.
type Float interface {
	~float32 | ~float64
}

// Every Value packs to itself.
func (a Array) Pack() Value        { return a }
func (b Bool) Pack() Value         { return b }
func (d Data) Pack() Value         { return d }
func (d Date) Pack() Value         { return d }
func (d Dictionary) Pack() Value   { return d }
func (d Double) Pack() Value       { return d }
func (h FileHandle) Pack() Value   { return h }
func (i Int64) Pack() Value        { return i }
func (n Null) Pack() Value         { return n }
func (m SharedMemory) Pack() Value { return m }
func (s String) Pack() Value       { return s }
func (u UInt64) Pack() Value       { return u }
func (u UUID) Pack() Value         { return u }

// PackFunc adapts a function to Packable.
type PackFunc func() Value

// Pack calls f.
func (f PackFunc) Pack() Value { return f() }

// Pack packs p. A nil Packable packs as Null.
func Pack(p Packable) Value {
	if p == nil {
		return Null{}
	}
	if v := p.Pack(); v != nil {
		return v
	}
	return Null{}
}

// PackBool packs a boolean.
func PackBool(b bool) Value {
	return Bool(b)
}

// PackInt widens a signed integer to Int64.
func PackInt[T Signed](n T) Value {
	return Int64(n)
}

// PackUint widens an unsigned integer to UInt64.
func PackUint[T Unsigned](n T) Value {
	return UInt64(n)
}

// PackFloat widens a float to Double.
func PackFloat[T Float](f T) Value {
	return Double(f)
}

// PackString packs a string.
func PackString(s string) Value {
	return String(s)
}

// PackData packs a byte slice. The slice is copied.
func PackData(b []byte) Value {
	return Data(append([]byte(nil), b...))
}

// PackTime packs a timestamp.
func PackTime(t time.Time) Value {
	return Date{t}
}

// PackUUID packs a UUID.
func PackUUID(u uuid.UUID) Value {
	return UUID(u)
}

// PackFile packs f as a FileHandle that takes ownership of f.
func PackFile(f *os.File) Value {
	return NewFileHandle(f)
}

// PackArray packs a homogeneous slice.
func PackArray[T Packable](items []T) Value {
	arr := make(Array, len(items))
	for i, item := range items {
		arr[i] = Pack(item)
	}
	return arr
}

// PackValues packs a heterogeneous list.
func PackValues(items ...Packable) Value {
	return PackArray(items)
}

// PackSlice packs a slice of plain values with an element packer, e.g.
// PackSlice(ids, PackInt[int]).
func PackSlice[T any](items []T, pack func(T) Value) Value {
	arr := make(Array, len(items))
	for i, item := range items {
		arr[i] = pack(item)
	}
	return arr
}

// PackMap packs a homogeneous string-keyed map.
func PackMap[T Packable](m map[string]T) Value {
	dict := make(Dictionary, len(m))
	for k, v := range m {
		dict[k] = Pack(v)
	}
	return dict
}

// PackDictionary packs a heterogeneous string-keyed map.
func PackDictionary(m map[string]Packable) Value {
	return PackMap(m)
}
