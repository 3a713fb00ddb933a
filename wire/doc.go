// Package wire implements the binary encoding shared by every exchange of
// the settings protocol: the four-token section/name/value/type payload
// format, the message kinds exchanged over the bus, and the single-byte
// status codes carried by register and write responses.
//
// Everything in this package is pure encoding and decoding. It has no
// notion of a bus, a client, or a store; those live in the parent package
// and in [github.com/swiftnav-community/gosettings/store].
package wire
