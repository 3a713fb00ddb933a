package bus

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/packet"
	"github.com/swiftnav-community/gosettings/wire"
)

// frameHeaderLen is the width of a Stream frame's fixed header: 2 bytes
// kind, 2 bytes sender id, 2 bytes payload length.
const frameHeaderLen = 6

// Stream adapts a raw byte connection (a serial port, a socket, a pipe)
// into a [gosettings.Bus] by framing each message with a small binary
// header, the way [chirp.Packet] frames a call over an io.Reader/Writer
// pair. Callers must invoke Serve to begin delivering inbound frames to
// registered callbacks; Serve blocks until reading from the underlying
// reader fails.
type Stream struct {
	r  *bufio.Reader
	w  *bufio.Writer
	c  io.Closer
	mu sync.Mutex // guards w

	handlersMu sync.RWMutex
	nextID     int
	handlers   map[wire.Kind]map[int]gosettings.BusHandler
}

// NewStream constructs a Stream that reads from r and writes to wc,
// closing wc when the Stream is closed.
func NewStream(r io.Reader, wc io.WriteCloser) *Stream {
	return &Stream{
		r:        bufio.NewReader(r),
		w:        bufio.NewWriter(wc),
		c:        wc,
		handlers: make(map[wire.Kind]map[int]gosettings.BusHandler),
	}
}

// Send implements [gosettings.Bus], stamping payload with senderID 0.
// Most protocol traffic uses SendFrom instead, stamped with the Client's
// own sender id.
func (s *Stream) Send(kind wire.Kind, payload []byte) error {
	return s.SendFrom(kind, payload, 0)
}

// SendFrom implements [gosettings.Bus].
func (s *Stream) SendFrom(kind wire.Kind, payload []byte, senderID uint16) error {
	if len(payload) > 0xffff {
		return fmt.Errorf("bus: payload too large (%d bytes)", len(payload))
	}

	var b packet.Builder
	b.Grow(frameHeaderLen)
	b.Uint16(uint16(kind))
	b.Uint16(senderID)
	b.Uint16(uint16(len(payload)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b.Bytes()); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := s.w.Write(payload); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// RegisterCallback implements [gosettings.Bus].
func (s *Stream) RegisterCallback(kind wire.Kind, handler gosettings.BusHandler) (func(), error) {
	s.handlersMu.Lock()
	id := s.nextID
	s.nextID++
	if s.handlers[kind] == nil {
		s.handlers[kind] = make(map[int]gosettings.BusHandler)
	}
	s.handlers[kind][id] = handler
	s.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.handlersMu.Lock()
			delete(s.handlers[kind], id)
			s.handlersMu.Unlock()
		})
	}, nil
}

// Serve reads frames from the underlying reader until it returns an
// error (io.EOF on an orderly close), dispatching each to its
// registered callbacks. It is meant to run on its own goroutine.
func (s *Stream) Serve() error {
	for {
		kind, senderID, payload, err := s.readFrame()
		if err != nil {
			return err
		}

		s.handlersMu.RLock()
		hs := make([]gosettings.BusHandler, 0, len(s.handlers[kind]))
		for _, h := range s.handlers[kind] {
			hs = append(hs, h)
		}
		s.handlersMu.RUnlock()
		for _, h := range hs {
			h(senderID, payload)
		}
	}
}

func (s *Stream) readFrame() (kind wire.Kind, senderID uint16, payload []byte, err error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return 0, 0, nil, err
	}
	sc := packet.NewScanner(hdr[:])
	rawKind, _ := sc.Uint16()
	senderID, _ = sc.Uint16()
	plen, _ := sc.Uint16()
	kind = wire.Kind(rawKind)

	if plen > 0 {
		payload = make([]byte, plen)
		if _, err := io.ReadFull(s.r, payload); err != nil {
			return 0, 0, nil, fmt.Errorf("bus: short payload: %w", err)
		}
	}
	return kind, senderID, payload, nil
}

// Close closes the underlying writer. When the reader and writer are the
// same connection (as with a net.Conn), this also makes a blocked Serve
// call return an error.
func (s *Stream) Close() error { return s.c.Close() }
