// Package listener accepts inbound endpoints on behalf of a service.
//
// A Listener drives a transport.Acceptor. Each inbound handle is wrapped in
// a connection.Connection and passed to the AcceptPolicy, which may inspect
// peer credentials and subscribe to the endpoint's streams:
//
//	accept -> Wrap -> policy -> true  -> Registry.Add -> Resume
//	                         -> false -> Cancel
//
// Kept endpoints stay in the Registry until their inbound stream ends.
// An endpoint that faults is cancelled and removed; an endpoint cancelled
// by its owner is removed as well.
//
// Listen is the entry point of a service process:
//
//	func main() {
//		err := listener.Listen(func(c *connection.Connection) bool {
//			go func() {
//				for v := range c.Messages(context.Background()) {
//					c.Send(v)
//				}
//			}()
//			return true
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
//
// Policies compose with All. AllowUIDs and RateLimit cover the common
// admission rules, and Admission builds both from config.Accept.
package listener
