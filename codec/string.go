package codec

// stringCodec codes a null-terminated string occupying the whole of the
// value buffer. Any buffer length is accepted; a text value longer than
// the buffer is truncated, and the buffer is always fully overwritten
// (padded with NUL bytes) so that stale bytes never leak through.
type stringCodec struct{}

// NewString returns the codec for the built-in string type.
func NewString() Codec { return stringCodec{} }

func (stringCodec) ToText(buf []byte) (string, error) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

func (stringCodec) FromText(text string, buf []byte) bool {
	n := copy(buf, text)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return true
}

func (stringCodec) DescribeType() string { return "" }
