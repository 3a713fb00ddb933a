package gosettings

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/swiftnav-community/gosettings/wire"
)

// requestDescriptor is the caller-side state used to correlate one
// outbound message with its reply. It is created on the calling
// goroutine's stack (conceptually — Go's escape analysis will put it on
// the heap since it outlives the call via a pointer), appended to the
// Client's request list, and removed before perform returns.
//
// Rather than the reference implementation's caller-supplied wait/signal
// event handle (needed there to unify single- and multi-threaded callers),
// done is a channel: every perform call, whether or not others are
// concurrently in flight, blocks on its own descriptor's channel. This
// collapses the single-threaded-cooperative and multi-threaded modes
// described for the source into one code path.
type requestDescriptor struct {
	kind   wire.Kind
	prefix []byte

	pending bool
	matched bool

	respSection    string
	respName       string
	respValue      string
	respType       string
	respValueValid bool

	readByIndexDone bool

	// status carries the leading status byte of a REGISTER_RESP or
	// WRITE_RESP payload. Its meaning depends on kind: interpret it as a
	// wire.RegisterStatus for a REGISTER request and a wire.WriteStatus
	// for a WRITE request.
	status byte

	done chan struct{}
}

func newRequestDescriptor(kind wire.Kind, prefix []byte) *requestDescriptor {
	return &requestDescriptor{
		kind:    kind,
		prefix:  append([]byte(nil), prefix...),
		pending: true,
		status:  byte(wire.StatusTimeout),
		done:    make(chan struct{}),
	}
}

// signal marks the descriptor matched and wakes its waiter, provided kind
// agrees with the descriptor's own msg_id. A mismatch is a caller bug
// (some handler signaling the wrong kind of request) and is reported
// rather than silently waking the wrong waiter.
func (d *requestDescriptor) signal(kind wire.Kind) error {
	if kind != d.kind {
		return fmt.Errorf("gosettings: signal kind mismatch: got %v, want %v", kind, d.kind)
	}
	if !d.pending {
		return nil // already signaled or timed out; nothing to do
	}
	d.matched = true
	d.pending = false
	close(d.done)
	return nil
}

// requestTable is the set of outstanding request descriptors, matched by
// message kind plus a prefix of the incoming payload. Expected depth is
// small (bounded by the number of concurrently outstanding calls), so a
// linear scan is the right data structure, exactly as the source's own
// comment about its pending-request list argues.
type requestTable struct {
	mu      sync.Mutex
	entries []*requestDescriptor
}

func (t *requestTable) append(d *requestDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, d)
}

func (t *requestTable) remove(d *requestDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e == d {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// check performs a linear scan and returns the first pending descriptor
// of the given kind whose prefix is a prefix of payload. It does not
// signal the descriptor; the calling handler does that. It reports nil if
// no such descriptor exists.
func (t *requestTable) check(kind wire.Kind, payload []byte) *requestDescriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.pending && e.kind == kind && bytes.HasPrefix(payload, e.prefix) {
			return e
		}
	}
	return nil
}

// signalAllReadByIndex marks every pending read-by-index descriptor done
// and wakes it. A single READ_BY_INDEX_DONE frame from the daemon can
// release multiple in-flight iterators.
func (t *requestTable) signalAllReadByIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.pending && e.kind == wire.KindReadByIndexReq {
			e.readByIndexDone = true
			_ = e.signal(wire.KindReadByIndexReq)
		}
	}
}
