package gosettings

import (
	"sync"

	"github.com/swiftnav-community/gosettings/wire"
)

// subscription tracks one bus-side callback registration, ref-counted by
// the number of features that currently need frames of that kind.
type subscription struct {
	refs       int
	unregister func()
}

// dispatcher owns exactly one bus-callback registration per message kind
// while any feature needs it, replacing the source's hand-coded switch
// from message kind to callback with a small map, per the reimplementation
// note about callback demultiplexing.
type dispatcher struct {
	mu   sync.Mutex
	subs map[wire.Kind]*subscription
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[wire.Kind]*subscription)}
}

// subscribe registers handler for kind if no subscription exists yet, or
// bumps the existing subscription's refcount. It reports whether this
// call installed a new bus-side registration.
func (d *dispatcher) subscribe(bus Bus, kind wire.Kind, handler BusHandler) (isNew bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.subs[kind]; ok {
		s.refs++
		return false, nil
	}

	unregister, err := bus.RegisterCallback(kind, handler)
	if err != nil {
		return false, err
	}
	d.subs[kind] = &subscription{refs: 1, unregister: unregister}
	return true, nil
}

// unsubscribe drops one reference to kind's subscription, removing the
// bus-side registration once the last reference is gone. It reports
// errNotSubscribed if kind has no active subscription.
func (d *dispatcher) unsubscribe(kind wire.Kind) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.subs[kind]
	if !ok {
		return errNotSubscribed
	}
	s.refs--
	if s.refs <= 0 {
		s.unregister()
		delete(d.subs, kind)
	}
	return nil
}

// count reports the number of live subscriptions, for tests.
func (d *dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
