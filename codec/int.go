package codec

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// intCodec codes signed integers stored in 1, 2, or 4 byte buffers.
type intCodec struct{}

// NewInt returns the codec for the built-in signed integer type. It
// supports value buffers of 1, 2, or 4 bytes.
func NewInt() Codec { return intCodec{} }

func (intCodec) ToText(buf []byte) (string, error) {
	switch len(buf) {
	case 1:
		// Sign-extend to a wider integer before formatting; some C runtimes
		// this format was ported from could not print an 8-bit value directly.
		return strconv.FormatInt(int64(int8(buf[0])), 10), nil
	case 2:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(buf))), 10), nil
	case 4:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(buf))), 10), nil
	default:
		return "", fmt.Errorf("codec: unsupported int width %d", len(buf))
	}
}

func (intCodec) FromText(text string, buf []byte) bool {
	switch len(buf) {
	case 1:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil || v < -128 || v > 127 {
			return false
		}
		buf[0] = byte(int8(v))
		return true
	case 2:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return false
		}
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		return true
	case 4:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return false
		}
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
		return true
	default:
		return false
	}
}

func (intCodec) DescribeType() string { return "" }
