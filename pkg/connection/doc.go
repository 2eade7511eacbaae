// Package connection provides the message endpoint.
//
// A Connection owns one transport handle and one serial queue. Every
// transport call and every state change is funneled through the queue,
// which is the endpoint's concurrency boundary.
//
// # Streams
//
// Values sent through Send or the Outbound sink are wrapped (see
// wire.Wrap) and handed to the transport in submission order. Completing
// the outbound sink cancels the endpoint.
//
// The inbound stream carries unwrapped values. It never completes on its
// own:
//   - a transport fault terminates it with a *Fault
//   - Cancel completes it normally
//
// Inbound events that do not decode are dropped. Each drop is counted
// (Dropped), logged as a protocol Drop event and recorded in Metrics.
//
// # Lifecycle
//
//	Created ──Resume──▶ Resumed ◀──Resume/Suspend──▶ Suspended
//	   │                   │                            │
//	   └──────────────Cancel──────────────▶ Cancelled ◀─┘
//
// Suspend and Resume must be balanced by the caller.
//
// # Retrying
//
// Endpoints never retry. A faulted endpoint must be recreated. Supervisor
// does that with exponential backoff and jitter:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
