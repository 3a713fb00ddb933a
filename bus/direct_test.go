package bus_test

import (
	"testing"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/swiftnav-community/gosettings/bus"
	"github.com/swiftnav-community/gosettings/wire"
)

func TestDirectRoundTrip(t *testing.T) {
	a, b := bus.NewDirectPair(0x11, 0x42)

	got := make(chan []byte, 1)
	unregister, err := b.RegisterCallback(wire.KindWrite, func(senderID uint16, payload []byte) {
		if senderID != 0x11 {
			t.Errorf("senderID: got %#x, want 0x11", senderID)
		}
		got <- payload
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	defer unregister()

	want, _ := wire.Format("imu", "enabled", "true")
	if err := a.Send(wire.KindWrite, want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case payload := <-got:
		if string(payload) != string(want) {
			t.Errorf("payload: got %q, want %q", payload, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestDirectUnregisterStopsDelivery(t *testing.T) {
	a, b := bus.NewDirectPair(1, 2)

	g := taskgroup.New(nil)
	calls := make(chan struct{}, 4)
	unregister, err := b.RegisterCallback(wire.KindReadReq, func(uint16, []byte) {
		calls <- struct{}{}
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}

	g.Go(func() error { return a.Send(wire.KindReadReq, []byte("first")) })
	g.Wait()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first delivery")
	}

	unregister()
	unregister() // must be a safe no-op the second time

	if err := a.Send(wire.KindReadReq, []byte("second")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case <-calls:
		t.Fatal("received a frame after unregistering")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDirectSendAfterCloseFails(t *testing.T) {
	a, b := bus.NewDirectPair(1, 2)
	_ = b

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Send(wire.KindWrite, nil); err == nil {
		t.Error("Send after Close did not report an error")
	}
}
