package daemon_test

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/bus"
	"github.com/swiftnav-community/gosettings/daemon"
	"github.com/swiftnav-community/gosettings/wire"
)

func TestServerRegisterReturnsSeededValue(t *testing.T) {
	defer leaktest.Check(t)()

	srv := daemon.NewServer(wire.DaemonSenderID)
	srv.Seed("imu", "enabled", "true", "")

	client, daemonSide := bus.NewDirectPair(0x01, wire.DaemonSenderID)
	defer client.Close()
	defer daemonSide.Close()
	detach, err := srv.Attach(daemonSide)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer detach()

	resp := make(chan []byte, 1)
	unregister, err := client.RegisterCallback(wire.KindRegisterResp, func(_ uint16, payload []byte) {
		resp <- payload
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	defer unregister()

	req, _ := wire.Format("imu", "enabled", "false", "")
	if err := client.SendFrom(wire.KindRegister, req, 0x01); err != nil {
		t.Fatalf("SendFrom: %v", err)
	}

	select {
	case payload := <-resp:
		if len(payload) < 1 || wire.RegisterStatus(payload[0]) != wire.RegOK {
			t.Fatalf("status: got %v", payload)
		}
		_, section, name, value, _ := wire.Parse(payload[1:])
		if string(section) != "imu" || string(name) != "enabled" || string(value) != "true" {
			t.Errorf("register response: got %q/%q=%q, want imu/enabled=true", section, name, value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for REGISTER_RESP")
	}
}

// TestServerWriteRelaysToAllAttached checks that an inbound WRITE is
// relayed, unmodified, to every attached bus (including the writer's
// own), since the daemon leaves applying the write to whichever
// process owns the setting rather than applying it itself.
func TestServerWriteRelaysToAllAttached(t *testing.T) {
	defer leaktest.Check(t)()

	srv := daemon.NewServer(wire.DaemonSenderID)
	srv.Seed("imu", "enabled", "false", "")

	writer, daemonA := bus.NewDirectPair(0x01, wire.DaemonSenderID)
	watcher, daemonB := bus.NewDirectPair(0x02, wire.DaemonSenderID)
	defer writer.Close()
	defer daemonA.Close()
	defer watcher.Close()
	defer daemonB.Close()

	detachA, err := srv.Attach(daemonA)
	if err != nil {
		t.Fatalf("Attach A: %v", err)
	}
	defer detachA()
	detachB, err := srv.Attach(daemonB)
	if err != nil {
		t.Fatalf("Attach B: %v", err)
	}
	defer detachB()

	seen := make(chan string, 2)
	for _, side := range []struct {
		name string
		bus  interface {
			RegisterCallback(wire.Kind, gosettings.BusHandler) (func(), error)
		}
	}{{"writer", writer}, {"watcher", watcher}} {
		side := side
		unregister, err := side.bus.RegisterCallback(wire.KindWrite, func(_ uint16, payload []byte) {
			_, _, _, value, _ := wire.Parse(payload)
			seen <- side.name + ":" + string(value)
		})
		if err != nil {
			t.Fatalf("RegisterCallback %s: %v", side.name, err)
		}
		defer unregister()
	}

	req, _ := wire.Format("imu", "enabled", "true", "")
	if err := writer.SendFrom(wire.KindWrite, req, 0x01); err != nil {
		t.Fatalf("SendFrom: %v", err)
	}

	got := map[string]bool{}
	for range 2 {
		select {
		case msg := <-seen:
			got[msg] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for relay, got so far: %v", got)
		}
	}
	if !got["writer:true"] || !got["watcher:true"] {
		t.Errorf("relay did not reach both sides: %v", got)
	}
}

// TestServerWriteRespUpdatesCacheAndRelays checks that a WRITE_RESP
// observed from one attached bus updates the daemon's cached record
// and is relayed to every attached bus, so a later READ or
// REGISTER sees the confirmed value.
func TestServerWriteRespUpdatesCacheAndRelays(t *testing.T) {
	defer leaktest.Check(t)()

	srv := daemon.NewServer(wire.DaemonSenderID)
	srv.Seed("imu", "enabled", "false", "")

	owner, daemonA := bus.NewDirectPair(0x01, wire.DaemonSenderID)
	watcher, daemonB := bus.NewDirectPair(0x02, wire.DaemonSenderID)
	defer owner.Close()
	defer daemonA.Close()
	defer watcher.Close()
	defer daemonB.Close()

	detachA, err := srv.Attach(daemonA)
	if err != nil {
		t.Fatalf("Attach A: %v", err)
	}
	defer detachA()
	detachB, err := srv.Attach(daemonB)
	if err != nil {
		t.Fatalf("Attach B: %v", err)
	}
	defer detachB()

	seen := make(chan string, 1)
	unregister, err := watcher.RegisterCallback(wire.KindWriteResp, func(_ uint16, payload []byte) {
		_, _, _, value, _ := wire.Parse(payload[1:])
		seen <- string(value)
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	defer unregister()

	body, _ := wire.Format("imu", "enabled", "true")
	resp := append([]byte{byte(wire.StatusOK)}, body...)
	if err := owner.SendFrom(wire.KindWriteResp, resp, 0x01); err != nil {
		t.Fatalf("SendFrom: %v", err)
	}

	select {
	case value := <-seen:
		if value != "true" {
			t.Errorf("relayed value: got %q, want %q", value, "true")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relay")
	}

	client, daemonSide := bus.NewDirectPair(0x03, wire.DaemonSenderID)
	defer client.Close()
	defer daemonSide.Close()
	detachC, err := srv.Attach(daemonSide)
	if err != nil {
		t.Fatalf("Attach C: %v", err)
	}
	defer detachC()

	resp2 := make(chan []byte, 1)
	unregResp, err := client.RegisterCallback(wire.KindRegisterResp, func(_ uint16, payload []byte) {
		resp2 <- payload
	})
	if err != nil {
		t.Fatalf("RegisterCallback resp: %v", err)
	}
	defer unregResp()

	req, _ := wire.Format("imu", "enabled", "false", "")
	if err := client.SendFrom(wire.KindRegister, req, 0x03); err != nil {
		t.Fatalf("SendFrom: %v", err)
	}
	select {
	case payload := <-resp2:
		_, _, _, value, _ := wire.Parse(payload[1:])
		if string(value) != "true" {
			t.Errorf("cached value after write: got %q, want %q", value, "true")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for REGISTER_RESP")
	}
}

func TestServerReadByIndexEnumeratesAndSignalsDone(t *testing.T) {
	defer leaktest.Check(t)()

	srv := daemon.NewServer(wire.DaemonSenderID)
	srv.Seed("imu", "enabled", "true", "")
	srv.Seed("imu", "rate_hz", "100", "")

	client, daemonSide := bus.NewDirectPair(0x01, wire.DaemonSenderID)
	defer client.Close()
	defer daemonSide.Close()
	detach, err := srv.Attach(daemonSide)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer detach()

	names := make(chan string, 8)
	done := make(chan struct{}, 1)
	unregResp, err := client.RegisterCallback(wire.KindReadByIndexResp, func(_ uint16, payload []byte) {
		_, rest, err := wire.DecodeIndexPrefix(payload)
		if err != nil {
			return
		}
		_, _, name, _, _ := wire.Parse(rest)
		names <- string(name)
	})
	if err != nil {
		t.Fatalf("RegisterCallback resp: %v", err)
	}
	defer unregResp()
	unregDone, err := client.RegisterCallback(wire.KindReadByIndexDone, func(uint16, []byte) {
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("RegisterCallback done: %v", err)
	}
	defer unregDone()

	for _, idx := range []uint16{0, 1, 2} {
		if err := client.SendFrom(wire.KindReadByIndexReq, wire.EncodeIndex(idx), 0x01); err != nil {
			t.Fatalf("SendFrom(%d): %v", idx, err)
		}
	}

	got := map[string]bool{}
	for range 2 {
		select {
		case n := <-names:
			got[n] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for entries, got so far: %v", got)
		}
	}
	if !got["enabled"] || !got["rate_hz"] {
		t.Errorf("enumeration missing entries: %v", got)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for READ_BY_INDEX_DONE")
	}
}
