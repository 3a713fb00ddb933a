package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// FloatPrecision is the number of significant digits used to render
// floating-point values as text. It is part of the wire contract: tests
// depend on this exact precision.
const FloatPrecision = 12

// floatCodec codes IEEE-754 floats stored in 4 or 8 byte buffers.
type floatCodec struct{}

// NewFloat returns the codec for the built-in floating-point type. It
// supports value buffers of 4 (float32) or 8 (float64) bytes.
func NewFloat() Codec { return floatCodec{} }

func (floatCodec) ToText(buf []byte) (string, error) {
	switch len(buf) {
	case 4:
		bits := binary.LittleEndian.Uint32(buf)
		return strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', FloatPrecision, 32), nil
	case 8:
		bits := binary.LittleEndian.Uint64(buf)
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', FloatPrecision, 64), nil
	default:
		return "", fmt.Errorf("codec: unsupported float width %d", len(buf))
	}
}

func (floatCodec) FromText(text string, buf []byte) bool {
	switch len(buf) {
	case 4:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return false
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return true
	case 8:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		return true
	default:
		return false
	}
}

func (floatCodec) DescribeType() string { return "" }
