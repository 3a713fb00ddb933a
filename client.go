package gosettings

import (
	"context"
	"expvar"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/swiftnav-community/gosettings/codec"
	"github.com/swiftnav-community/gosettings/store"
	"github.com/swiftnav-community/gosettings/wire"
)

// NotifyFunc is invoked after a tentative update to an owned setting's
// value; see [store.NotifyFunc].
type NotifyFunc = store.NotifyFunc

// Client speaks the settings request/reply protocol over a [Bus]. A
// Client owns a [store.Store] of settings it has registered or is
// watching, and a table of outstanding requests used to correlate
// inbound frames with the call that is waiting on them.
//
// The reference implementation offers separate single-threaded and
// multi-threaded builds, the former cooperatively pumping the bus while
// waiting and the latter blocking a condition variable that the bus's
// own delivery thread signals. A Client always behaves like the latter:
// perform blocks its calling goroutine on a channel that the relevant
// inbound handler closes, and the Bus is expected to deliver frames on
// its own goroutine (see [BusHandler]).
type Client struct {
	bus      Bus
	senderID uint16
	cfg      Config
	logger   Logger
	after    func(time.Duration) <-chan time.Time

	metrics *clientMetrics

	disp *dispatcher
	reqs requestTable

	mu       sync.Mutex
	settings *store.Store
}

// NewClient constructs a Client that sends and receives on bus, stamping
// every outbound request with the host-provided senderID, and applying
// opts in order. The Client subscribes to no message kinds until a
// Register/Write/Read/ReadByIndex call needs one.
func NewClient(bus Bus, senderID uint16, opts ...Option) *Client {
	c := &Client{
		bus:      bus,
		senderID: senderID,
		cfg:      DefaultConfig(),
		logger:   discardLogger{},
		after:    time.After,
		metrics:  newClientMetrics(),
		disp:     newDispatcher(),
		settings: store.NewStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics returns the expvar map of Client activity counters.
func (c *Client) Metrics() *expvar.Map { return c.metrics.emap }

// perform sends payload tagged with kind, stamped with the Client's own
// senderID, then waits for either a matching reply (correlated against
// prefix) or the retry budget in cfg to run out. It resends payload on
// every timeout, up to retries+1 total attempts. respKind is the kind
// the request descriptor is correlated under; perform does not subscribe
// to it, so the caller must already have subscribed the handler that
// signals it.
func (c *Client) perform(ctx context.Context, kind wire.Kind, payload []byte, prefix []byte, respKind wire.Kind, timeout time.Duration, retries int) (*requestDescriptor, error) {
	desc := newRequestDescriptor(respKind, prefix)
	c.reqs.append(desc)
	defer c.reqs.remove(desc)

	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.bus.SendFrom(kind, payload, c.senderID); err != nil {
			return desc, fmt.Errorf("gosettings: send %v: %w", kind, err)
		}
		c.metrics.requestsSent.Add(1)

		select {
		case <-desc.done:
			return desc, nil
		case <-c.after(timeout):
			continue
		case <-ctx.Done():
			return desc, ctx.Err()
		}
	}
	c.metrics.requestsTimedOut.Add(1)
	return desc, nil
}

// registerSetting sends the REGISTER exchange for an owned or read-only
// setting s and, on success, applies the daemon's returned value to s
// if it owns the value authoritatively (mode owned-ro). It reports the
// wire.RegisterStatus received, or an error if the exchange timed out.
//
// It subscribes both REGISTER_RESP and WRITE before attempting the
// exchange, so an owning Client is listening for inbound writes to s
// from the moment registration is attempted, not only once it
// happens to call Write itself.
func (c *Client) registerSetting(ctx context.Context, s *store.Setting) (wire.RegisterStatus, error) {
	if _, err := c.disp.subscribe(c.bus, wire.KindRegisterResp, c.handleRegisterResp); err != nil {
		return 0, err
	}
	if _, err := c.disp.subscribe(c.bus, wire.KindWrite, c.handleWrite); err != nil {
		_ = c.disp.unsubscribe(wire.KindRegisterResp)
		return 0, err
	}

	value, err := s.Text()
	if err != nil {
		return 0, fmt.Errorf("gosettings: render %s.%s: %w", s.Section, s.Name, err)
	}
	payload, err := wire.Format(s.Section, s.Name, value, s.TypeTag())
	if err != nil {
		return 0, err
	}
	prefix, err := wire.Format(s.Section, s.Name)
	if err != nil {
		return 0, err
	}

	desc, err := c.perform(ctx, wire.KindRegister, payload, prefix, wire.KindRegisterResp,
		c.cfg.RegisterTimeout, c.cfg.RegisterRetries)
	if err != nil {
		return 0, err
	}
	if !desc.matched {
		return 0, fmt.Errorf("gosettings: register %s.%s: %w", s.Section, s.Name, context.DeadlineExceeded)
	}

	if desc.respValueValid && s.Mode == store.ModeOwnedRO {
		if !s.ApplyTrusted(desc.respValue) {
			c.logger.Logf(LevelWarn, "gosettings: %s.%s: daemon returned unparsable value %q", s.Section, s.Name, desc.respValue)
		}
	}
	return wire.RegisterStatus(desc.status), nil
}

// rollback removes s from the store and, if this was the last setting
// needing REGISTER_RESP or WRITE frames, drops those subscriptions. It
// mirrors the reference implementation's cleanup when setting_register
// fails.
func (c *Client) rollback(s *store.Setting) {
	c.mu.Lock()
	c.settings.Remove(s.Section, s.Name)
	c.mu.Unlock()
	_ = c.disp.unsubscribe(wire.KindRegisterResp)
	_ = c.disp.unsubscribe(wire.KindWrite)
}

// RegisterOwned registers a setting whose value lives in this process
// and that answers writes authoritatively (mode owned-rw). notify, if
// non-nil, is invoked after each successful write attempt and may
// reject it by returning a status other than wire.StatusOK.
//
// RegisterOwned fails and does not add the setting if the REGISTER
// exchange with the daemon does not succeed.
func (c *Client) RegisterOwned(ctx context.Context, section, name string, value []byte, cd codec.Codec, notify NotifyFunc) error {
	return c.register(ctx, section, name, value, cd, store.ModeOwnedRW, notify)
}

// RegisterReadonly registers a setting whose value lives in this process
// but that only the daemon may update; local writes are rejected.
//
// RegisterReadonly fails and does not add the setting if the REGISTER
// exchange with the daemon does not succeed.
func (c *Client) RegisterReadonly(ctx context.Context, section, name string, value []byte, cd codec.Codec) error {
	return c.register(ctx, section, name, value, cd, store.ModeOwnedRO, nil)
}

func (c *Client) register(ctx context.Context, section, name string, value []byte, cd codec.Codec, mode store.Mode, notify NotifyFunc) error {
	if cd == nil {
		return ErrUnknownCodec
	}

	c.mu.Lock()
	if c.settings.Lookup(section, name) != nil {
		c.mu.Unlock()
		return ErrAlreadyRegistered
	}
	s := store.New(section, name, value, cd, mode, notify)
	c.settings.Add(s)
	c.mu.Unlock()

	status, err := c.registerSetting(ctx, s)
	if err != nil {
		c.rollback(s)
		return err
	}
	if status != wire.RegOK && status != wire.RegOKPermanent {
		c.rollback(s)
		return fmt.Errorf("gosettings: register %s.%s: %v", section, name, status)
	}
	return nil
}

// RegisterWatch registers a local mirror of a setting owned elsewhere,
// kept coherent by write-response broadcasts. Unlike
// RegisterOwned/RegisterReadonly, RegisterWatch never sends a REGISTER
// frame: the reference implementation's watch-only path subscribes
// only WRITE_RESP and primes the mirror with a read, since a watcher
// never owns or answers writes for the setting. A failed or timed-out
// priming read only logs a warning; RegisterWatch still succeeds,
// matching that best-effort treatment.
func (c *Client) RegisterWatch(ctx context.Context, section, name string, value []byte, cd codec.Codec) error {
	if cd == nil {
		return ErrUnknownCodec
	}

	c.mu.Lock()
	if c.settings.Lookup(section, name) != nil {
		c.mu.Unlock()
		return ErrAlreadyRegistered
	}
	s := store.New(section, name, value, cd, store.ModeWatch, nil)
	c.settings.Add(s)
	c.mu.Unlock()

	if _, err := c.disp.subscribe(c.bus, wire.KindWriteResp, c.handleWriteResp); err != nil {
		c.mu.Lock()
		c.settings.Remove(section, name)
		c.mu.Unlock()
		return err
	}

	if err := c.primeWatch(ctx, s); err != nil {
		c.logger.Logf(LevelWarn, "gosettings: %s.%s: watch priming read failed: %v", section, name, err)
	}
	return nil
}

// primeWatch issues the READ_REQ exchange RegisterWatch uses to fetch a
// watched setting's current value immediately after registering it.
func (c *Client) primeWatch(ctx context.Context, s *store.Setting) error {
	if _, err := c.disp.subscribe(c.bus, wire.KindReadResp, c.handleReadResp); err != nil {
		return err
	}
	defer func() { _ = c.disp.unsubscribe(wire.KindReadResp) }()

	prefix, err := wire.Format(s.Section, s.Name)
	if err != nil {
		return err
	}
	desc, err := c.perform(ctx, wire.KindReadReq, prefix, prefix, wire.KindReadResp,
		c.cfg.WatchReadTimeout, c.cfg.WatchReadRetries)
	if err != nil {
		return err
	}
	if !desc.matched || !desc.respValueValid {
		return fmt.Errorf("gosettings: no value in priming read response")
	}
	s.Update(desc.respValue)
	return nil
}

// Write sets a setting's value on the daemon and waits for the write to
// be acknowledged. It reports a *WriteError if the daemon rejected the
// write.
func (c *Client) Write(ctx context.Context, section, name, value string, typeTag string) error {
	if len(value) > wire.MaxSettingWriteLen {
		return writeErr(section, name, wire.StatusValueRejected)
	}

	if _, err := c.disp.subscribe(c.bus, wire.KindWriteResp, c.handleWriteResp); err != nil {
		return err
	}
	defer func() { _ = c.disp.unsubscribe(wire.KindWriteResp) }()

	payload, err := wire.Format(section, name, value, typeTag)
	if err != nil {
		return err
	}
	if len(payload) > wire.MaxSettingWriteLen {
		return writeErr(section, name, wire.StatusValueRejected)
	}
	prefix, err := wire.Format(section, name)
	if err != nil {
		return err
	}

	desc, err := c.perform(ctx, wire.KindWrite, payload, prefix, wire.KindWriteResp,
		c.cfg.RegisterTimeout, c.cfg.RegisterRetries)
	if err != nil {
		return err
	}
	if !desc.matched {
		return writeErr(section, name, wire.StatusTimeout)
	}
	return writeErr(section, name, wire.WriteStatus(desc.status))
}

// Read fetches a setting's current value directly from the daemon,
// bypassing any local mirror. into receives the parsed value via cd; the
// wire type tag in the response is compared against cd.DescribeType()
// unless the response carries no type tag or an enum tag (enum values
// are accepted against whatever type the caller requests).
func (c *Client) Read(ctx context.Context, section, name string, into []byte, cd codec.Codec) error {
	if _, err := c.disp.subscribe(c.bus, wire.KindReadResp, c.handleReadResp); err != nil {
		return err
	}
	defer func() { _ = c.disp.unsubscribe(wire.KindReadResp) }()

	prefix, err := wire.Format(section, name)
	if err != nil {
		return err
	}
	desc, err := c.perform(ctx, wire.KindReadReq, prefix, prefix, wire.KindReadResp,
		c.cfg.WatchReadTimeout, c.cfg.WatchReadRetries)
	if err != nil {
		return err
	}
	if !desc.matched {
		return fmt.Errorf("gosettings: read %s.%s: %w", section, name, context.DeadlineExceeded)
	}
	if !desc.respValueValid {
		return fmt.Errorf("gosettings: read %s.%s: no value in response", section, name)
	}

	if desc.respType != "" && !isEnumTag(desc.respType) && desc.respType != cd.DescribeType() {
		return fmt.Errorf("gosettings: read %s.%s: type mismatch: got %q, want %q",
			section, name, desc.respType, cd.DescribeType())
	}
	if !cd.FromText(desc.respValue, into) {
		return fmt.Errorf("gosettings: read %s.%s: unparsable value %q", section, name, desc.respValue)
	}
	return nil
}

func isEnumTag(tag string) bool {
	return len(tag) >= 5 && tag[:5] == "enum:"
}

// ReadByIndexResult is one entry produced by [Client.ReadByIndex].
type ReadByIndexResult struct {
	Section, Name, Value, Type string
	Done                       bool
}

// ReadByIndex fetches the setting at the given zero-based position in
// the daemon's own enumeration order. Done is true once index is past
// the daemon's last setting, in which case the other fields are zero.
//
// Each call balances its own subscribe with an unsubscribe before
// returning, the same as Read, rather than holding the subscription
// open across the caller's successive calls.
func (c *Client) ReadByIndex(ctx context.Context, index uint16) (ReadByIndexResult, error) {
	if _, err := c.disp.subscribe(c.bus, wire.KindReadByIndexResp, c.handleReadByIndexResp); err != nil {
		return ReadByIndexResult{}, err
	}
	defer func() { _ = c.disp.unsubscribe(wire.KindReadByIndexResp) }()
	if _, err := c.disp.subscribe(c.bus, wire.KindReadByIndexDone, c.handleReadByIndexDone); err != nil {
		return ReadByIndexResult{}, err
	}
	defer func() { _ = c.disp.unsubscribe(wire.KindReadByIndexDone) }()

	// The descriptor is correlated under KindReadByIndexReq rather than
	// KindReadByIndexResp: READ_BY_INDEX_DONE carries no index of its own
	// and must wake every outstanding request regardless of which reply
	// kind it was waiting for, so both handlers key off the request kind.
	prefix := wire.EncodeIndex(index)
	desc, err := c.perform(ctx, wire.KindReadByIndexReq, prefix, prefix, wire.KindReadByIndexReq,
		c.cfg.WatchReadTimeout, c.cfg.WatchReadRetries)
	if err != nil {
		return ReadByIndexResult{}, err
	}
	if !desc.matched {
		return ReadByIndexResult{}, fmt.Errorf("gosettings: read-by-index %d: %w", index, context.DeadlineExceeded)
	}

	if desc.readByIndexDone {
		return ReadByIndexResult{Done: true}, nil
	}

	return ReadByIndexResult{
		Section: desc.respSection,
		Name:    desc.respName,
		Value:   desc.respValue,
		Type:    desc.respType,
	}, nil
}

// Deregister removes section.name from the local store. It does not
// notify the daemon: the reference protocol has no explicit
// unregistration message, only process exit or the daemon's own
// timeout of a stale watcher. It drops this Client's bus subscriptions
// for the setting's mode once no other registered setting still needs
// them, mirroring the ref-counted subscribe done by registerSetting and
// RegisterWatch.
func (c *Client) Deregister(section, name string) error {
	c.mu.Lock()
	s := c.settings.Lookup(section, name)
	if s == nil {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	c.settings.Remove(section, name)
	c.mu.Unlock()

	if s.Mode == store.ModeWatch {
		_ = c.disp.unsubscribe(wire.KindWriteResp)
		return nil
	}
	_ = c.disp.unsubscribe(wire.KindRegisterResp)
	_ = c.disp.unsubscribe(wire.KindWrite)
	return nil
}

// SettingSnapshot is a read-only view of one registered or watched
// setting, returned by [Client.Settings] and [Client.All].
type SettingSnapshot struct {
	Section, Name string
	Value         string
	Mode          store.Mode
}

// Settings returns a snapshot of every currently registered or watched
// setting, in the daemon-compatible section-grouped order used by
// READ_BY_INDEX.
func (c *Client) Settings() []SettingSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SettingSnapshot, 0, c.settings.Len())
	for s := range c.settings.All() {
		text, _ := s.Text()
		out = append(out, SettingSnapshot{Section: s.Section, Name: s.Name, Value: text, Mode: s.Mode})
	}
	return out
}

// All returns an iterator over the Client's settings, equivalent to
// ranging over Settings but without materializing the whole slice
// up front.
func (c *Client) All() iter.Seq[SettingSnapshot] {
	return func(yield func(SettingSnapshot) bool) {
		for _, s := range c.Settings() {
			if !yield(s) {
				return
			}
		}
	}
}

// --- inbound handlers ---

// handleRegisterResp processes a REGISTER_RESP frame: [1-byte status]
// section\0name\0value\0type\0. The status byte is stripped before the
// remaining payload is matched against a pending REGISTER request's
// section\0name\0 prefix. A parse-failure status is dropped without
// signaling, so the retry loop in register resends rather than surfacing
// a spurious wire-corruption error.
func (c *Client) handleRegisterResp(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID || len(payload) < 1 {
		return
	}
	status := wire.RegisterStatus(payload[0])
	rest := payload[1:]

	if status == wire.RegParseFailed {
		return
	}

	desc := c.reqs.check(wire.KindRegisterResp, rest)
	if desc == nil {
		return
	}
	desc.status = byte(status)

	count, section, name, value, typ := wire.Parse(rest)
	if count >= wire.Value {
		desc.respSection = string(section)
		desc.respName = string(name)
		desc.respValue = string(value)
		desc.respValueValid = true
		if count >= wire.Type {
			desc.respType = string(typ)
		}
	}
	_ = desc.signal(wire.KindRegisterResp)
}

// handleWrite processes an inbound WRITE frame directed at a setting
// this Client owns: section\0name\0value\0type\0, no status byte. An
// oversized payload is rejected with StatusValueRejected rather than
// applied, mirroring the reference implementation's fixed setting-write
// buffer and its setting_send_write_response(..., VALUE_REJECTED) reply.
func (c *Client) handleWrite(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID {
		return
	}
	count, section, name, value, _ := wire.Parse(payload)
	if count < wire.Value {
		return
	}

	c.mu.Lock()
	s := c.settings.Lookup(string(section), string(name))
	c.mu.Unlock()
	if s == nil || s.Mode == store.ModeWatch {
		return
	}

	if len(payload) > wire.MaxSettingWriteLen {
		c.metrics.framesDropped.Add(1)
		c.sendWriteResp(s, wire.StatusValueRejected)
		return
	}

	status := s.Update(string(value))
	c.sendWriteResp(s, status)
}

// sendWriteResp emits the WRITE_RESP for a just-applied write: [1-byte
// status] section\0name\0value\0 (no type token).
func (c *Client) sendWriteResp(s *store.Setting, status wire.WriteStatus) {
	text, err := s.Text()
	if err != nil {
		c.logger.Logf(LevelWarn, "gosettings: %s.%s: render for write response: %v", s.Section, s.Name, err)
		return
	}
	body, err := wire.Format(s.Section, s.Name, text)
	if err != nil {
		c.logger.Logf(LevelWarn, "gosettings: %s.%s: format write response: %v", s.Section, s.Name, err)
		return
	}
	payload := append([]byte{byte(status)}, body...)
	if err := c.bus.SendFrom(wire.KindWriteResp, payload, c.cfg.DaemonSenderID); err != nil {
		c.logger.Logf(LevelWarn, "gosettings: %s.%s: send write response: %v", s.Section, s.Name, err)
	}
}

// handleWriteResp processes a WRITE_RESP broadcast: [1-byte status]
// section\0name\0value\0. It both wakes a matching pending Write call
// and, on success, applies the new value to any local watch mirror of
// the same setting, since the reference protocol has no separate
// broadcast for watchers.
func (c *Client) handleWriteResp(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID || len(payload) < 1 {
		return
	}
	status := wire.WriteStatus(payload[0])
	rest := payload[1:]

	count, section, name, value, _ := wire.Parse(rest)
	if count < wire.Value {
		return
	}

	if status == wire.StatusOK {
		c.mu.Lock()
		s := c.settings.Lookup(string(section), string(name))
		c.mu.Unlock()
		if s != nil && s.Mode == store.ModeWatch {
			if watchStatus := s.Update(string(value)); watchStatus != wire.StatusOK {
				c.metrics.watchUpdateFail.Add(1)
				c.logger.Logf(LevelWarn, "gosettings: %s.%s: watch update failed: %v (%d-byte payload)", s.Section, s.Name, watchStatus, len(payload))
			}
		}
	}

	desc := c.reqs.check(wire.KindWriteResp, rest)
	if desc == nil {
		return
	}
	desc.status = byte(status)
	_ = desc.signal(wire.KindWriteResp)
}

// handleReadResp processes a READ_RESP frame: the full
// section\0name\0value\0type\0 payload, matched directly (no status byte
// to strip). It only ever satisfies the pending Read that triggered this
// READ_REQ; it does not refresh a co-resident watch mirror of the same
// setting, matching the reference read-resp callback (only WRITE_RESP
// broadcasts drive a watch update).
func (c *Client) handleReadResp(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID {
		return
	}

	desc := c.reqs.check(wire.KindReadResp, payload)
	if desc == nil {
		return
	}

	count, section, name, value, typ := wire.Parse(payload)
	if count >= wire.Value {
		desc.respSection = string(section)
		desc.respName = string(name)
		desc.respValue = string(value)
		desc.respValueValid = true
		if count >= wire.Type {
			desc.respType = string(typ)
		}
	}
	_ = desc.signal(wire.KindReadResp)
}

// handleReadByIndexResp processes a READ_BY_INDEX_RESP frame: [2-byte
// index]section\0name\0value\0type\0, matched directly since the index
// bytes are already the payload's prefix.
func (c *Client) handleReadByIndexResp(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID {
		return
	}

	_, rest, err := wire.DecodeIndexPrefix(payload)
	if err != nil {
		return
	}

	desc := c.reqs.check(wire.KindReadByIndexReq, payload)
	if desc == nil {
		return
	}

	count, section, name, value, typ := wire.Parse(rest)
	if count >= wire.Value {
		desc.respSection = string(section)
		desc.respName = string(name)
		desc.respValue = string(value)
		if count >= wire.Type {
			desc.respType = string(typ)
		}
	}
	_ = desc.signal(wire.KindReadByIndexReq)
}

// handleReadByIndexDone processes a READ_BY_INDEX_DONE frame, which
// carries no payload: it broadcast-signals every pending READ_BY_INDEX
// request, since the daemon sends it once at the end of an enumeration
// regardless of how many iterators are in flight.
func (c *Client) handleReadByIndexDone(senderID uint16, payload []byte) {
	if senderID != c.cfg.DaemonSenderID {
		return
	}
	c.reqs.signalAllReadByIndex()
}
