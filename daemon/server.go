// Package daemon implements a minimal in-memory settings daemon: enough
// of the daemon half of the wire protocol to register, read, write, and
// enumerate settings, and to broadcast WRITE_RESP so every attached
// client stays in sync. It exists to give a Client something to talk to
// in tests and in the CLI's local mode, the way chirp/peers gives a
// chirp.Peer an in-memory partner; it is not a model for how a
// production settings daemon should persist or arbitrate changes
// (spec.md explicitly places daemon storage/arbitration policy out of
// scope for the client library).
package daemon

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/wire"
)

// record is the daemon's own bookkeeping for one setting name: its
// current value and type tag, plus the sender id that first registered
// it (used only to answer a redundant re-registration from the same
// client with RegAlreadyRegistered, mirroring the wire status of that
// name).
type record struct {
	section, name string
	value, typ    string

	registered bool
	owner      uint16
}

// Server is a minimal in-memory settings daemon.
type Server struct {
	senderID uint16

	mu      sync.Mutex
	records []*record

	attachMu sync.Mutex
	nextID   int
	buses    map[int]gosettings.Bus
}

// NewServer returns a Server that identifies its own outbound frames
// with senderID (conventionally wire.DaemonSenderID, matching Client's
// DefaultConfig).
func NewServer(senderID uint16) *Server {
	return &Server{
		senderID: senderID,
		buses:    make(map[int]gosettings.Bus),
	}
}

// Attach registers the Server's handlers for REGISTER, WRITE,
// WRITE_RESP, READ_REQ, and READ_BY_INDEX_REQ on bus and returns a
// function that removes them. A Server may be attached to
// several buses at once, one per connected client, the way a real
// daemon process serves many peers concurrently; Attach is what lets
// [Server.Broadcast] reach all of them.
func (s *Server) Attach(bus gosettings.Bus) (detach func(), err error) {
	type reg struct {
		kind    wire.Kind
		handler gosettings.BusHandler
	}
	regs := []reg{
		{wire.KindRegister, func(senderID uint16, payload []byte) { s.handleRegister(bus, senderID, payload) }},
		{wire.KindWrite, func(senderID uint16, payload []byte) { s.handleWrite(bus, senderID, payload) }},
		{wire.KindWriteResp, func(senderID uint16, payload []byte) { s.handleWriteResp(bus, senderID, payload) }},
		{wire.KindReadReq, func(senderID uint16, payload []byte) { s.handleReadReq(bus, senderID, payload) }},
		{wire.KindReadByIndexReq, func(senderID uint16, payload []byte) { s.handleReadByIndexReq(bus, senderID, payload) }},
	}

	var unregs []func()
	for _, r := range regs {
		u, err := bus.RegisterCallback(r.kind, r.handler)
		if err != nil {
			for _, prev := range unregs {
				prev()
			}
			return nil, err
		}
		unregs = append(unregs, u)
	}

	s.attachMu.Lock()
	id := s.nextID
	s.nextID++
	s.buses[id] = bus
	s.attachMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.attachMu.Lock()
			delete(s.buses, id)
			s.attachMu.Unlock()
			for _, u := range unregs {
				u()
			}
		})
	}, nil
}

// lookup returns the record for (section, name), or nil.
func (s *Server) lookup(section, name string) *record {
	for _, r := range s.records {
		if r.section == section && r.name == name {
			return r
		}
	}
	return nil
}

// at returns the record at the given zero-based enumeration position.
func (s *Server) at(index int) *record {
	if index < 0 || index >= len(s.records) {
		return nil
	}
	return s.records[index]
}

// insert appends r after the last existing record sharing its section,
// or at the end if the section is new, matching the client-side store's
// own section-grouped insertion order so READ_BY_INDEX enumerates
// identically from either side.
func (s *Server) insert(r *record) {
	last := -1
	for i, existing := range s.records {
		if existing.section == r.section {
			last = i
		}
	}
	if last < 0 {
		s.records = append(s.records, r)
		return
	}
	s.records = append(s.records, nil)
	copy(s.records[last+2:], s.records[last+1:])
	s.records[last+1] = r
}

func (s *Server) handleRegister(bus gosettings.Bus, senderID uint16, payload []byte) {
	count, section, name, value, typ := wire.Parse(payload)
	if count < wire.Value {
		return
	}

	s.mu.Lock()
	r := s.lookup(string(section), string(name))
	status := wire.RegOK
	if r == nil {
		r = &record{section: string(section), name: string(name), value: string(value), registered: true, owner: senderID}
		if count >= wire.Type {
			r.typ = string(typ)
		}
		s.insert(r)
	} else if r.registered && r.owner == senderID {
		status = wire.RegAlreadyRegistered
	}
	respValue, respType := r.value, r.typ
	s.mu.Unlock()

	resp, err := wire.Format(string(section), string(name), respValue, respType)
	if err != nil {
		return
	}
	payload = append([]byte{byte(status)}, resp...)
	_ = bus.SendFrom(wire.KindRegisterResp, payload, s.senderID)
}

// handleWrite relays an inbound WRITE frame to every attached bus,
// unmodified, the way a real settings bus multicasts it to whichever
// process actually owns the named setting. The daemon does not apply
// the write itself; it only learns the confirmed value later, by
// observing the owner's WRITE_RESP in handleWriteResp.
func (s *Server) handleWrite(bus gosettings.Bus, senderID uint16, payload []byte) {
	count, _, _, _, _ := wire.Parse(payload)
	if count < wire.Value {
		return
	}
	_ = s.Broadcast(wire.KindWrite, payload)
}

// handleWriteResp updates the daemon's cached record from a
// successful WRITE_RESP and relays it to every attached bus, so
// clients watching the setting stay in sync the same way they would
// against the reference daemon's broadcast.
func (s *Server) handleWriteResp(bus gosettings.Bus, senderID uint16, payload []byte) {
	if len(payload) < 1 {
		return
	}
	count, section, name, value, _ := wire.Parse(payload[1:])
	if count < wire.Value {
		return
	}
	if wire.WriteStatus(payload[0]) == wire.StatusOK {
		s.mu.Lock()
		if r := s.lookup(string(section), string(name)); r != nil {
			r.value = string(value)
		}
		s.mu.Unlock()
	}
	_ = s.Broadcast(wire.KindWriteResp, payload)
}

func (s *Server) handleReadReq(bus gosettings.Bus, senderID uint16, payload []byte) {
	count, section, name, _, _ := wire.Parse(payload)
	if count < wire.Name {
		return
	}

	s.mu.Lock()
	r := s.lookup(string(section), string(name))
	s.mu.Unlock()
	if r == nil {
		return // unknown setting: the caller's read simply times out
	}

	resp, err := wire.Format(r.section, r.name, r.value, r.typ)
	if err != nil {
		return
	}
	_ = bus.SendFrom(wire.KindReadResp, resp, s.senderID)
}

func (s *Server) handleReadByIndexReq(bus gosettings.Bus, senderID uint16, payload []byte) {
	index, _, err := wire.DecodeIndexPrefix(payload)
	if err != nil {
		return
	}

	s.mu.Lock()
	r := s.at(int(index))
	s.mu.Unlock()

	if r == nil {
		_ = bus.SendFrom(wire.KindReadByIndexDone, nil, s.senderID)
		return
	}

	body, err := wire.Format(r.section, r.name, r.value, r.typ)
	if err != nil {
		return
	}
	_ = bus.SendFrom(wire.KindReadByIndexResp, append(wire.EncodeIndex(index), body...), s.senderID)
}

// Broadcast sends payload tagged with kind to every currently attached
// bus concurrently, bounding fan-out the way a small production daemon
// would rather than serializing delivery to however many clients happen
// to be connected.
func (s *Server) Broadcast(kind wire.Kind, payload []byte) error {
	s.attachMu.Lock()
	buses := make([]gosettings.Bus, 0, len(s.buses))
	for _, b := range s.buses {
		buses = append(buses, b)
	}
	s.attachMu.Unlock()

	var g errgroup.Group
	g.SetLimit(8)
	for _, b := range buses {
		g.Go(func() error { return b.SendFrom(kind, payload, s.senderID) })
	}
	return g.Wait()
}

// Seed installs an initial (section, name, value, type) record directly,
// without going through the REGISTER exchange. It is meant for test
// setup and the CLI's local mode, to pre-populate a daemon before any
// client connects.
func (s *Server) Seed(section, name, value, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.lookup(section, name); r != nil {
		r.value, r.typ = value, typ
		return
	}
	s.insert(&record{section: section, name: name, value: value, typ: typ})
}
