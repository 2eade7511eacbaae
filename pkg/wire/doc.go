// Package wire defines the tagged value model exchanged over a connection.
//
// A Value is one of thirteen variants: Array, Bool, Data, Date, Dictionary,
// Double, FileHandle, Int64, Null, SharedMemory, String, UInt64 and UUID.
// The set is closed; no other type implements Value.
//
// # Codec
//
// Decode converts a native transport object into a Value and Encode
// converts back. Decoding is lenient inside collections and strict at the
// top level:
//   - An element of an Array or Dictionary that cannot be decoded is
//     dropped from the collection.
//   - A top-level object that cannot be decoded produces no Value at all.
//
// Strings must be valid UTF-8. Dates carry whole seconds on the wire, so a
// Date round-trips exactly only at second resolution.
//
// # Envelope
//
// Transports carry only dictionaries at the top level. Wrap places any
// other value under SingleValueKey and Unwrap reverses it, so callers can
// send any Value transparently.
//
// # Resources
//
// Decoding a descriptor duplicates it; the FileHandle owns the duplicate.
// Decoding shared memory maps the region into this process; the receiver
// must call SharedMemory.Unmap when done with it.
package wire
