package wire

import "fmt"

// A Kind identifies the structure and purpose of a message exchanged with
// the settings daemon over the bus. Kind values are assigned by this
// package; the bus transport that carries them treats them as opaque.
type Kind uint16

// Message kinds understood by the settings protocol. All request/response
// payloads except the ReadByIndex family use the four-token format of
// [Format] and [Parse]; ReadByIndex request and response payloads are
// described in [EncodeIndex] and [DecodeIndexPrefix].
const (
	KindRegister Kind = 1 + iota
	KindRegisterResp
	KindWrite
	KindWriteResp
	KindReadReq
	KindReadResp
	KindReadByIndexReq
	KindReadByIndexResp
	KindReadByIndexDone
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "REGISTER"
	case KindRegisterResp:
		return "REGISTER_RESP"
	case KindWrite:
		return "WRITE"
	case KindWriteResp:
		return "WRITE_RESP"
	case KindReadReq:
		return "READ_REQ"
	case KindReadResp:
		return "READ_RESP"
	case KindReadByIndexReq:
		return "READ_BY_INDEX_REQ"
	case KindReadByIndexResp:
		return "READ_BY_INDEX_RESP"
	case KindReadByIndexDone:
		return "READ_BY_INDEX_DONE"
	default:
		return fmt.Sprintf("KIND:%d", uint16(k))
	}
}

// DaemonSenderID is the well-known sender identifier of the settings
// daemon. Inbound frames claiming to be protocol messages from any other
// sender are ignored by the dispatch handlers.
const DaemonSenderID uint16 = 0x42
