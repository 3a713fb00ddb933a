package gosettings

import "github.com/swiftnav-community/gosettings/wire"

// A Bus is the host-provided transport the Client speaks the protocol
// over. It collapses the reference implementation's send/send_from,
// register_cb/unregister_cb, and lock/wait/signal hooks into the smaller
// surface a Go host actually needs to provide: Go's own concurrency
// primitives cover the rest (see Client's use of sync.Mutex and
// per-request channels).
type Bus interface {
	// Send transmits payload tagged with kind, using the Client's own
	// sender id.
	Send(kind wire.Kind, payload []byte) error

	// SendFrom transmits payload tagged with kind, attributed to
	// senderID. The Client uses this internally so protocol messages
	// always carry its configured sender id regardless of what Send's
	// default would be; most Bus implementations can implement Send in
	// terms of SendFrom with a fixed id.
	SendFrom(kind wire.Kind, payload []byte, senderID uint16) error

	// RegisterCallback subscribes handler to receive every inbound frame
	// tagged with kind, and returns a function that removes it. Calling
	// the returned function more than once must be safe and a no-op
	// after the first call.
	RegisterCallback(kind wire.Kind, handler BusHandler) (unregister func(), err error)
}

// A BusHandler receives one inbound frame. senderID identifies the peer
// that sent it; payload is the frame's body, excluding the kind tag
// itself. A BusHandler must not block for long: it runs on the bus's
// delivery goroutine and holds up every other frame behind it.
type BusHandler func(senderID uint16, payload []byte)
