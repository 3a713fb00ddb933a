package wire

import "fmt"

// WriteStatus is the result of an attempted write to a setting, carried as
// the leading byte of a WRITE_RESP payload.
type WriteStatus byte

const (
	StatusOK WriteStatus = iota
	StatusValueRejected
	StatusSettingRejected
	StatusParseFailed
	StatusReadOnly
	StatusModifyDisabled
	StatusServiceFailed
	StatusTimeout
)

func (s WriteStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusValueRejected:
		return "VALUE_REJECTED"
	case StatusSettingRejected:
		return "SETTING_REJECTED"
	case StatusParseFailed:
		return "PARSE_FAILED"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusModifyDisabled:
		return "MODIFY_DISABLED"
	case StatusServiceFailed:
		return "SERVICE_FAILED"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("WriteStatus(%d)", byte(s))
	}
}

// Error implements the error interface so a WriteStatus other than
// StatusOK can be returned directly as an error.
func (s WriteStatus) Error() string { return "write " + s.String() }

// RegisterStatus is the result of a registration attempt, carried as the
// leading byte of a REGISTER_RESP payload.
type RegisterStatus byte

const (
	RegOK RegisterStatus = iota
	RegOKPermanent
	RegAlreadyRegistered
	RegParseFailed
)

func (s RegisterStatus) String() string {
	switch s {
	case RegOK:
		return "OK"
	case RegOKPermanent:
		return "OK_PERM"
	case RegAlreadyRegistered:
		return "REGISTERED"
	case RegParseFailed:
		return "PARSE_FAILED"
	default:
		return fmt.Sprintf("RegisterStatus(%d)", byte(s))
	}
}
