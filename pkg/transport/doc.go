// Package transport provides native connection handles for reactivexpc.
//
// The package defines the contract an endpoint needs from its transport
// (Conn, Factory, Acceptor) and implements it over Unix domain stream
// sockets:
//   - Named services resolve to socket files (Resolver)
//   - Native objects travel as length-prefixed CBOR frames
//   - Descriptors travel out of band as SCM_RIGHTS
//   - Peer credentials come from SO_PEERCRED
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   native objects (CBOR)        │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	│   + SCM_RIGHTS on the prefix   │
//	├────────────────────────────────┤
//	│   Unix domain stream socket    │
//	└────────────────────────────────┘
//
// # Events
//
// A connection delivers every inbound object and every fault through one
// EventHandler, called on the connection's target queue. Faults are the
// native sentinels:
//   - ErrorConnectionInterrupted: the service closed the socket
//   - ErrorConnectionInvalid: the peer cannot be (or can no longer be)
//     reached
//   - ErrorTerminationImminent: the accepting server is shutting down
//
// Connections start suspended. The first Resume dials (client side) or
// starts reading (accepted side).
package transport
