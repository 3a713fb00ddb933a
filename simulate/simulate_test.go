package simulate_test

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/swiftnav-community/gosettings/codec"
	"github.com/swiftnav-community/gosettings/simulate"
	"github.com/swiftnav-community/gosettings/wire"
)

func TestRegisterOwnedWriteWatchRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pair := simulate.NewPair()
	defer pair.Close()

	owner := pair.Client
	watcher := pair.NewProducer(0x02)

	intCodec := codec.NewRegistry().MustLookup(codec.Int)

	ownedValue := make([]byte, 4)
	registered := false
	notify := func() wire.WriteStatus { registered = true; return wire.StatusOK }
	if err := owner.RegisterOwned(ctx, "imu", "rate_hz", ownedValue, intCodec, notify); err != nil {
		t.Fatalf("RegisterOwned: %v", err)
	}

	watchValue := make([]byte, 4)
	if err := watcher.RegisterWatch(ctx, "imu", "rate_hz", watchValue, intCodec); err != nil {
		t.Fatalf("RegisterWatch: %v", err)
	}

	if err := watcher.Write(ctx, "imu", "rate_hz", "50", ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !registered {
		t.Error("owner's notify callback was never invoked")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		found := false
		for _, s := range watcher.Settings() {
			if s.Section == "imu" && s.Name == "rate_hz" && s.Value == "50" {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watch mirror never observed the written value")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReadDirectlyFromDaemon(t *testing.T) {
	defer leaktest.Check(t)()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pair := simulate.NewPair()
	defer pair.Close()

	pair.Daemon.Seed("system", "uptime", "42", "")

	intCodec := codec.NewRegistry().MustLookup(codec.Int)
	into := make([]byte, 4)
	if err := pair.Client.Read(ctx, "system", "uptime", into, intCodec); err != nil {
		t.Fatalf("Read: %v", err)
	}
	text, err := intCodec.ToText(into)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "42" {
		t.Errorf("Read value: got %q, want %q", text, "42")
	}
}
