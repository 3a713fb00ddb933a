package wire

import (
	"encoding/binary"
	"fmt"
)

// IndexPrefixLen is the width in bytes of the little-endian index prefix
// carried by READ_BY_INDEX_REQ and READ_BY_INDEX_RESP payloads.
const IndexPrefixLen = 2

// EncodeIndex encodes a READ_BY_INDEX_REQ payload for the given index.
func EncodeIndex(index uint16) []byte {
	buf := make([]byte, IndexPrefixLen)
	binary.LittleEndian.PutUint16(buf, index)
	return buf
}

// DecodeIndexPrefix splits a READ_BY_INDEX_RESP payload into its index
// prefix and the remaining four-token payload.
func DecodeIndexPrefix(buf []byte) (index uint16, rest []byte, err error) {
	if len(buf) < IndexPrefixLen {
		return 0, nil, fmt.Errorf("wire: short read-by-index payload (%d bytes)", len(buf))
	}
	return binary.LittleEndian.Uint16(buf), buf[IndexPrefixLen:], nil
}
