// Package gosettings implements a client for the settings bus
// request/reply protocol: a small set of fixed message exchanges for
// registering, reading, writing, and watching named settings over a
// pre-existing binary message bus.
//
// # Clients
//
// The core type defined by this package is the [Client]. A Client owns
// a set of settings registered against one [Bus] connection, and stamps
// every request it sends with a host-provided 16-bit sender id.
//
// To create a new Client:
//
//	c := gosettings.NewClient(bus, senderID)
//
// # Buses
//
// The [Bus] interface defines the ability to send tagged, addressed
// payloads and to register callbacks for inbound payloads of a given
// [wire.Kind]. A Bus implementation must allow concurrent use by one
// sender and one receiver. The bus package provides basic
// implementations of this interface, and the daemon package an in-memory
// daemon to attach them to, for tests and local demos.
//
// # Registering settings
//
// A process that owns a setting's value registers it with
// [Client.RegisterOwned] or [Client.RegisterReadonly]:
//
//	err := c.RegisterOwned(ctx, "imu", "rate_hz", buf, intCodec, notify)
//
// notify, if non-nil, is invoked after each successful write attempt
// and may reject it by returning a status other than [wire.StatusOK].
//
// A process that only needs to observe a setting owned elsewhere
// registers a watch instead:
//
//	err := c.RegisterWatch(ctx, "imu", "rate_hz", buf, intCodec)
//
// Unlike an owned registration, RegisterWatch never asks the daemon to
// register a new setting; it subscribes to write acknowledgements and
// primes its local mirror with a read.
//
// # Reading and writing
//
// [Client.Read] issues a one-shot READ_REQ/READ_RESP exchange.
// [Client.Write] issues a WRITE/WRITE_RESP exchange and reports a
// [*WriteError] if the daemon rejected the write. [Client.ReadByIndex]
// walks the daemon's own enumeration order, one entry per call, until
// [ReadByIndexResult.Done] is true.
//
// # Metrics
//
// A Client maintains a collection of metrics while running. Use the
// [Client.Metrics] method to obtain an [expvar.Map] containing the
// metrics exported by the client. The metrics currently exported
// include:
//
//   - requests_sent: counter of outbound request frames sent, one per
//     attempt including retries
//   - requests_timed_out: counter of exchanges that exhausted their retries
//   - frames_dropped: counter of inbound WRITE frames rejected as
//     oversized
//   - watch_update_failed: counter of watch mirror updates a codec
//     rejected
//
// Additional metrics may be added in the future. It is safe for the
// caller to modify the metrics map to add, update, and remove entries.
package gosettings
