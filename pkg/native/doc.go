// Package native defines the transport-level object model.
//
// Native objects are what transports carry: a small set of tagged types
// (arrays, dictionaries, scalars, descriptors, shared memory) plus the
// connection fault sentinels a transport delivers through the same event
// feed as messages. Callers normally never build native objects by hand;
// the wire package converts between native objects and wire values.
//
// # Serialization
//
// Marshal and Unmarshal convert a native object tree to and from CBOR for
// stream transports. Integer map keys keep frames compact. Descriptors
// (FD and Shmem) are not encoded inline: Marshal returns them in order and
// the encoded tree refers to them by index, so the transport can pass them
// out of band (SCM_RIGHTS on Unix domain sockets).
//
// Tags the receiving process does not know decode to Opaque rather than
// failing the frame, which leaves the policy decision to the wire codec.
package native
