// Package simulate provides an in-memory Client/daemon.Server pair for
// integration-style tests, mirroring the way github.com/creachadair/chirp's
// peers package provides peers.NewLocal for a chirp.Peer.
package simulate

import (
	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/bus"
	"github.com/swiftnav-community/gosettings/daemon"
	"github.com/swiftnav-community/gosettings/wire"
)

// defaultClientSenderID is the sender id a Pair's primary Client uses,
// distinct from the daemon's own wire.DaemonSenderID.
const defaultClientSenderID = 0x01

// Pair connects one Client to one in-memory daemon.Server. Additional
// clients can be attached to the same Daemon with NewProducer, to
// simulate several processes sharing one settings bus.
type Pair struct {
	Client *gosettings.Client
	Daemon *daemon.Server

	detach func()
}

// NewPair constructs a connected Client and daemon.Server. opts
// configure the Client exactly as they would for gosettings.NewClient.
func NewPair(opts ...gosettings.Option) *Pair {
	d := daemon.NewServer(wire.DaemonSenderID)
	clientBus, daemonBus := bus.NewDirectPair(defaultClientSenderID, wire.DaemonSenderID)

	detach, err := d.Attach(daemonBus)
	if err != nil {
		// bus.Direct's RegisterCallback never fails; a real Bus
		// implementation that can fail here would be a programmer error
		// in this constructor, not a runtime condition callers can act on.
		panic(err)
	}

	return &Pair{
		Client: gosettings.NewClient(clientBus, defaultClientSenderID, opts...),
		Daemon: d,
		detach: func() {
			detach()
			clientBus.Close()
			daemonBus.Close()
		},
	}
}

// NewProducer attaches a second Client, with its own sender id, to the
// same Daemon, simulating a second process on the settings bus. It
// mirrors the sender-id override the reference corpus's Rust bindings
// expose for exactly this kind of test harness. senderID is both the
// bus-level identity the Direct pair uses and the id the Client stamps
// on its own outbound requests, so daemon.record.owner and every frame
// on the wire agree about which producer sent it.
func (p *Pair) NewProducer(senderID uint16, opts ...gosettings.Option) *gosettings.Client {
	clientBus, daemonBus := bus.NewDirectPair(senderID, wire.DaemonSenderID)
	detach, err := p.Daemon.Attach(daemonBus)
	if err != nil {
		panic(err)
	}
	prev := p.detach
	p.detach = func() {
		prev()
		detach()
		clientBus.Close()
		daemonBus.Close()
	}
	return gosettings.NewClient(clientBus, senderID, opts...)
}

// Close detaches the primary Client, and every Client added with
// NewProducer, from the Daemon and closes their buses.
func (p *Pair) Close() error {
	p.detach()
	return nil
}
