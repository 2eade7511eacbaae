package wire

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// UnpackArray returns v's elements if v is an Array.
func UnpackArray(v Value) ([]Value, bool) {
	a, ok := v.(Array)
	return a, ok
}

// UnpackBool returns v's value if v is a Bool.
func UnpackBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// UnpackData returns v's bytes if v is Data.
func UnpackData(v Value) ([]byte, bool) {
	d, ok := v.(Data)
	return d, ok
}

// UnpackDate returns v's time if v is a Date.
func UnpackDate(v Value) (time.Time, bool) {
	d, ok := v.(Date)
	return d.Time, ok
}

// UnpackDictionary returns v's entries if v is a Dictionary.
func UnpackDictionary(v Value) (map[string]Value, bool) {
	d, ok := v.(Dictionary)
	return d, ok
}

// UnpackDouble returns v's value if v is a Double.
func UnpackDouble(v Value) (float64, bool) {
	d, ok := v.(Double)
	return float64(d), ok
}

// UnpackFileHandle returns v's file if v is a FileHandle.
func UnpackFileHandle(v Value) (*os.File, bool) {
	h, ok := v.(FileHandle)
	return h.file, ok
}

// UnpackInt64 returns v's value if v is an Int64.
func UnpackInt64(v Value) (int64, bool) {
	i, ok := v.(Int64)
	return int64(i), ok
}

// UnpackSharedMemory returns v if it is SharedMemory.
func UnpackSharedMemory(v Value) (SharedMemory, bool) {
	m, ok := v.(SharedMemory)
	return m, ok
}

// UnpackString returns v's value if v is a String.
func UnpackString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// UnpackUInt64 returns v's value if v is a UInt64.
func UnpackUInt64(v Value) (uint64, bool) {
	u, ok := v.(UInt64)
	return uint64(u), ok
}

// UnpackUUID returns v's value if v is a UUID.
func UnpackUUID(v Value) (uuid.UUID, bool) {
	u, ok := v.(UUID)
	return uuid.UUID(u), ok
}
