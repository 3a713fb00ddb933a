package codec

// A Codec converts between a fixed-width local value buffer and the
// textual representation of that value exchanged on the wire.
type Codec interface {
	// ToText renders the bytes in buf as text. It reports an error if buf
	// has a length this codec does not support.
	ToText(buf []byte) (string, error)

	// FromText parses text into buf, overwriting its full length. It
	// reports false if text could not be parsed into a value of buf's
	// length.
	FromText(text string, buf []byte) bool

	// DescribeType returns the wire type tag for this codec, or "" if the
	// codec has none. Enum codecs report "enum:Name1,Name2,...".
	DescribeType() string
}

// ID identifies a codec registered in a [Registry]. The built-in codecs
// occupy fixed low IDs; see [NewRegistry].
type ID int

// Built-in codec IDs, fixed at registry creation.
const (
	Int ID = iota
	Float
	String
	Bool
)
