package gosettings

import (
	"errors"
	"fmt"

	"github.com/swiftnav-community/gosettings/wire"
)

// Local, precondition errors returned without engaging the protocol at all.
// These never touch the wire and are distinct from a [WriteError], which
// reports a status the daemon actually sent (or a timeout waiting for one).
var (
	// ErrAlreadyRegistered is returned by RegisterOwned, RegisterReadonly,
	// and RegisterWatch when (section, name) is already present in the
	// client's local store.
	ErrAlreadyRegistered = errors.New("gosettings: setting already registered")

	// ErrNotRegistered is returned by Deregister when (section, name) is
	// not present in the local store.
	ErrNotRegistered = errors.New("gosettings: setting not registered")

	// ErrUnknownCodec is returned when a caller passes a nil Codec to a
	// registration call.
	ErrUnknownCodec = errors.New("gosettings: codec is nil")

	// errNotSubscribed is returned by the dispatcher's unsubscribe when the
	// given kind has no active subscription. It backs the "not present"
	// indication called out for dispatcher idempotence.
	errNotSubscribed = errors.New("gosettings: kind not subscribed")
)

// A WriteError reports a non-OK [wire.WriteStatus] returned by the daemon,
// or observed locally (a timeout, or a value too long to send). It wraps the status so callers can use
// errors.Is against the wire.WriteStatus sentinels.
type WriteError struct {
	Section, Name string
	Status        wire.WriteStatus
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("gosettings: %s.%s: %v", e.Section, e.Name, e.Status)
}

// Unwrap allows errors.Is(err, wire.StatusReadOnly) and similar comparisons
// against the underlying status.
func (e *WriteError) Unwrap() error { return e.Status }

func writeErr(section, name string, status wire.WriteStatus) error {
	if status == wire.StatusOK {
		return nil
	}
	return &WriteError{Section: section, Name: name, Status: status}
}
