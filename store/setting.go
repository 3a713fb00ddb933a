package store

import (
	"fmt"

	"github.com/swiftnav-community/gosettings/codec"
	"github.com/swiftnav-community/gosettings/wire"
)

// Mode describes how a client relates to a setting.
type Mode int

const (
	// ModeOwnedRW is a setting whose value lives in this process and that
	// answers writes authoritatively.
	ModeOwnedRW Mode = iota
	// ModeOwnedRO is a setting whose value lives in this process but that
	// only the daemon may update; local writes are rejected.
	ModeOwnedRO
	// ModeWatch is a local mirror of a setting owned elsewhere, kept
	// coherent by write-response broadcasts.
	ModeWatch
)

func (m Mode) String() string {
	switch m {
	case ModeOwnedRW:
		return "owned-rw"
	case ModeOwnedRO:
		return "owned-ro"
	case ModeWatch:
		return "watch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// NotifyFunc is invoked after a tentative update to an owned setting's
// value, before the update is considered final. A non-OK return reverts
// the value and is reported to the writer as the resulting status. Unlike
// the C API this is modeled on, NotifyFunc carries no opaque context
// parameter: a Go closure captures whatever state it needs.
type NotifyFunc func() wire.WriteStatus

// A Setting is one registered or watched configuration parameter.
type Setting struct {
	Section string
	Name    string

	// Value is the buffer holding the setting's current value. It is not
	// owned by the Setting: the caller retains the backing array and must
	// keep it alive and correctly sized for as long as the Setting is
	// registered.
	Value []byte

	// shadow is an owned copy of Value, refreshed before each update
	// attempt and used to revert Value if the attempt fails.
	shadow []byte

	Codec  codec.Codec
	Notify NotifyFunc
	Mode   Mode
}

// New constructs a Setting. The returned Setting does not copy value; the
// caller must keep it alive for as long as the Setting exists.
func New(section, name string, value []byte, c codec.Codec, mode Mode, notify NotifyFunc) *Setting {
	return &Setting{
		Section: section,
		Name:    name,
		Value:   value,
		shadow:  make([]byte, len(value)),
		Codec:   c,
		Notify:  notify,
		Mode:    mode,
	}
}

// Text renders the setting's current value as text.
func (s *Setting) Text() (string, error) { return s.Codec.ToText(s.Value) }

// TypeTag returns the wire type tag for the setting's codec, or "" if it
// has none.
func (s *Setting) TypeTag() string { return s.Codec.DescribeType() }

// Update applies text to the setting following the update/revert
// algorithm:
//
//  1. A read-only setting always reports [wire.StatusReadOnly].
//  2. The current value is copied to a shadow buffer.
//  3. The codec attempts to parse text into the value buffer. On failure
//     the value is restored from the shadow and the result is
//     [wire.StatusParseFailed].
//  4. If a notify callback is registered, it is invoked.
//  5. For a watched setting, the notify result is ignored and the result
//     is always [wire.StatusOK] (the local mirror never rejects an update
//     that the remote owner has already accepted).
//  6. Otherwise, a non-OK notify result reverts the value from the shadow
//     and is reported as the result.
func (s *Setting) Update(text string) wire.WriteStatus {
	if s.Mode == ModeOwnedRO {
		return wire.StatusReadOnly
	}

	copy(s.shadow, s.Value)
	if !s.Codec.FromText(text, s.Value) {
		copy(s.Value, s.shadow)
		return wire.StatusParseFailed
	}

	if s.Notify == nil {
		return wire.StatusOK
	}
	res := s.Notify()

	if s.Mode == ModeWatch {
		return wire.StatusOK
	}
	if res != wire.StatusOK {
		copy(s.Value, s.shadow)
	}
	return res
}

// ApplyTrusted overwrites the setting's value directly from text, without
// invoking a notify callback and without enforcing read-only mode. It
// exists for the register-response handler, which trusts the daemon's
// authoritative value for a read-only setting rather than treating it as
// an ordinary write attempt. It reports whether the codec accepted text.
func (s *Setting) ApplyTrusted(text string) bool {
	return s.Codec.FromText(text, s.Value)
}
