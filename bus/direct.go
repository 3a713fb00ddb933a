// Package bus provides host-side implementations of the gosettings.Bus
// interface: an in-memory pair for tests and same-process daemons, and a
// length-prefixed framing adapter for a raw byte stream.
package bus

import (
	"net"
	"sync"

	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/wire"
)

// frame is one message in flight between a Direct pair's two endpoints.
type frame struct {
	kind     wire.Kind
	senderID uint16
	payload  []byte
}

// Direct is an in-memory endpoint that exchanges frames with its peer
// without any binary encoding, the way [channel.Direct] connects a pair
// of chirp peers for tests.
type Direct struct {
	selfID uint16
	send   chan<- frame
	recv   <-chan frame

	mu       sync.RWMutex
	nextID   int
	handlers map[wire.Kind]map[int]gosettings.BusHandler
}

// NewDirectPair returns two connected Direct endpoints. Frames sent by a
// are delivered to b's registered callbacks and vice versa. selfA and
// selfB are the default sender ids each endpoint stamps on frames sent
// via Send (as opposed to SendFrom, which lets the caller override it).
func NewDirectPair(selfA, selfB uint16) (a, b *Direct) {
	a2b := make(chan frame, 64)
	b2a := make(chan frame, 64)
	a = newDirect(selfA, a2b, b2a)
	b = newDirect(selfB, b2a, a2b)
	go a.pump()
	go b.pump()
	return a, b
}

func newDirect(self uint16, send chan<- frame, recv <-chan frame) *Direct {
	return &Direct{
		selfID:   self,
		send:     send,
		recv:     recv,
		handlers: make(map[wire.Kind]map[int]gosettings.BusHandler),
	}
}

func (d *Direct) pump() {
	for f := range d.recv {
		d.mu.RLock()
		hs := make([]gosettings.BusHandler, 0, len(d.handlers[f.kind]))
		for _, h := range d.handlers[f.kind] {
			hs = append(hs, h)
		}
		d.mu.RUnlock()
		for _, h := range hs {
			h(f.senderID, f.payload)
		}
	}
}

// Send implements [gosettings.Bus].
func (d *Direct) Send(kind wire.Kind, payload []byte) error {
	return d.SendFrom(kind, payload, d.selfID)
}

// SendFrom implements [gosettings.Bus].
func (d *Direct) SendFrom(kind wire.Kind, payload []byte, senderID uint16) (err error) {
	defer func() {
		if recover() != nil {
			err = net.ErrClosed
		}
	}()
	d.send <- frame{kind: kind, senderID: senderID, payload: append([]byte(nil), payload...)}
	return nil
}

// RegisterCallback implements [gosettings.Bus].
func (d *Direct) RegisterCallback(kind wire.Kind, handler gosettings.BusHandler) (func(), error) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[int]gosettings.BusHandler)
	}
	d.handlers[kind][id] = handler
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.handlers[kind], id)
			d.mu.Unlock()
		})
	}, nil
}

// Close shuts down this endpoint's send side, causing the peer's pump
// goroutine to exit. SendFrom calls on this endpoint after Close report
// net.ErrClosed. This endpoint's own pump goroutine keeps running until
// the peer is closed as well. Closing an already-closed Direct reports
// net.ErrClosed.
func (d *Direct) Close() (err error) {
	defer func() {
		if recover() != nil {
			err = net.ErrClosed
		}
	}()
	close(d.send)
	return nil
}
