package tuyble

import "context"

// GATT identifiers fixed by the protocol.
const (
	ServiceUUID    = 0x1910
	NotifyCharUUID = 0x2B10 // inbound, subscribe
	WriteCharUUID  = 0x2B11 // outbound, write-without-response
)

// Transport is the narrow surface the engine depends on instead of a
// specific BLE stack. A real implementation performs GATT
// scanning/connect/subscribe/write; transport/mock provides an in-memory
// stand-in for tests and the demo CLI.
//
// The engine starts no goroutine of its own: methods are called on the
// goroutine of the Engine method that needs them, or on the goroutine
// delivering the notification whose handling sends a reply. Transport
// implementations must not call back into the Engine except via the
// notify function passed to Subscribe.
type Transport interface {
	// Connect opens a connection to address and discovers the service
	// (0x1910) and its two characteristics. It reports whether the
	// connection was established.
	Connect(ctx context.Context, address string) (bool, error)

	// Subscribe arranges for notify to be called with the raw bytes of
	// each notification on the read characteristic (0x2B10).
	Subscribe(notify func(data []byte)) error

	// Write sends one packet-layer fragment (<=PacketMTU bytes) to the
	// write characteristic (0x2B11), write-without-response.
	Write(fragment []byte) error

	// Disconnect tears down the connection.
	Disconnect() error
}
