// Package codec implements the type registry that converts between the
// opaque byte buffers backing a registered setting and the textual values
// exchanged on the wire.
//
// A [Codec] never sees the wire directly: it converts a local value buffer
// to and from the ASCII text carried inside a settings protocol payload.
// The byte layout of a numeric value buffer is local to the process that
// owns it (the protocol never serializes anything but text), so the
// built-in numeric codecs use a single fixed byte order internally to stay
// self-consistent; callers that share value buffers with other code (for
// example, casting an existing `int32` variable's memory) must lay their
// values out the same way.
package codec
