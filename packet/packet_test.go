// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package packet_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swiftnav-community/gosettings/packet"
)

func TestBuilderScanner(t *testing.T) {
	var b packet.Builder
	b.Grow(6)
	b.Uint16(0x0102)
	b.Uint16(0xfffe)
	b.Uint16(0)

	const want = "\x01\x02\xff\xfe\x00\x00"
	if n := b.Len(); n != len(want) {
		t.Errorf("Len = %d, want %d", n, len(want))
	}
	if string(b.Bytes()) != want {
		t.Errorf("Bytes = %q, want %q", b.Bytes(), want)
	}

	s := packet.NewScanner(b.Bytes())
	check(t, "Uint16 1", s.Uint16, 0x0102)
	check(t, "Uint16 2", s.Uint16, 0xfffe)
	check(t, "Uint16 3", s.Uint16, 0)

	if s.Len() != 0 {
		t.Errorf("Extra data at EOF (%d bytes): %q", s.Len(), s.Rest())
	}
	if got := s.Offset(); got != len(want) {
		t.Errorf("Offset = %d, want %d", got, len(want))
	}
}

func TestScannerShortInput(t *testing.T) {
	s := packet.NewScanner([]byte{0x01})
	if _, err := s.Uint16(); err == nil {
		t.Error("Uint16 on truncated input: got nil error")
	}
}

func TestBuilderReset(t *testing.T) {
	var b packet.Builder
	b.Uint16(1)
	b.Reset()
	if n := b.Len(); n != 0 {
		t.Errorf("Len after Reset = %d, want 0", n)
	}
}

func check[T any](t *testing.T, label string, f func() (T, error), want T) {
	t.Helper()

	got, err := f()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", label, err)
	} else if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("%s result (-got, +want):\n%s", label, diff)
	}
}
