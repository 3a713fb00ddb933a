package codec_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/swiftnav-community/gosettings/codec"
)

func TestIntBounds(t *testing.T) {
	c := codec.NewInt()

	buf := make([]byte, 1)
	if !c.FromText("-128", buf) {
		t.Fatal("FromText(-128) failed")
	}
	if got, err := c.ToText(buf); err != nil || got != "-128" {
		t.Errorf("ToText(-128) = %q, %v", got, err)
	}
	if !c.FromText("127", buf) {
		t.Fatal("FromText(127) failed")
	}
	if got, _ := c.ToText(buf); got != "127" {
		t.Errorf("ToText(127) = %q", got)
	}
	if c.FromText("128", buf) {
		t.Error("FromText(128) into 1 byte: want failure, got success")
	}

	buf16 := make([]byte, 2)
	if !c.FromText("-32768", buf16) {
		t.Fatal("FromText(-32768) failed")
	}
	if got, _ := c.ToText(buf16); got != "-32768" {
		t.Errorf("ToText(-32768) = %q", got)
	}

	buf32 := make([]byte, 4)
	if !c.FromText("2147483647", buf32) {
		t.Fatal("FromText(2147483647) failed")
	}
	if got, _ := c.ToText(buf32); got != "2147483647" {
		t.Errorf("ToText(2147483647) = %q", got)
	}
}

func TestFloatPrecision(t *testing.T) {
	c := codec.NewFloat()
	buf := make([]byte, 8)
	if !c.FromText("1e-12", buf) {
		t.Fatal("FromText(1e-12) failed")
	}
	got, err := c.ToText(buf)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if got != "1e-12" {
		t.Errorf("ToText(1e-12) = %q, want %q", got, "1e-12")
	}

	v := math.Float64frombits(binary.LittleEndian.Uint64(buf))
	if v != 1e-12 {
		t.Errorf("stored value = %v, want 1e-12", v)
	}
}

func TestEnumRoundTrip(t *testing.T) {
	c := codec.NewEnum("Test1", "Test2")
	if got := c.DescribeType(); got != "enum:Test1,Test2" {
		t.Errorf("DescribeType() = %q, want %q", got, "enum:Test1,Test2")
	}

	buf := make([]byte, 1)
	if !c.FromText("Test1", buf) {
		t.Fatal("FromText(Test1) failed")
	}
	if buf[0] != 0 {
		t.Errorf("index = %d, want 0", buf[0])
	}
	if got, err := c.ToText(buf); err != nil || got != "Test1" {
		t.Errorf("ToText = %q, %v", got, err)
	}

	if c.FromText("Test3", buf) {
		t.Error("FromText(Test3): want failure, got success")
	}
}

func TestBoolCodec(t *testing.T) {
	c := codec.NewBool()
	buf := make([]byte, 1)
	if !c.FromText("True", buf) {
		t.Fatal("FromText(True) failed")
	}
	if got, _ := c.ToText(buf); got != "True" {
		t.Errorf("ToText = %q, want True", got)
	}
	if !c.FromText("False", buf) {
		t.Fatal("FromText(False) failed")
	}
	if got, _ := c.ToText(buf); got != "False" {
		t.Errorf("ToText = %q, want False", got)
	}
}

func TestStringCodecPadsBuffer(t *testing.T) {
	c := codec.NewString()
	buf := []byte("XXXXXXXXXX")
	if !c.FromText("hi", buf) {
		t.Fatal("FromText failed")
	}
	got, err := c.ToText(buf)
	if err != nil || got != "hi" {
		t.Errorf("ToText = %q, %v, want %q", got, err, "hi")
	}
	for i := 2; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Fatalf("buf[%d] = %d, want 0 (padding)", i, buf[i])
		}
	}
}

func TestRegistryBuiltinOrder(t *testing.T) {
	r := codec.NewRegistry()
	if r.Lookup(codec.Int) == nil {
		t.Error("Int codec not registered")
	}
	if r.Lookup(codec.Float) == nil {
		t.Error("Float codec not registered")
	}
	if r.Lookup(codec.String) == nil {
		t.Error("String codec not registered")
	}
	if r.Lookup(codec.Bool) == nil {
		t.Error("Bool codec not registered")
	}

	id := r.Add(codec.NewEnum("A", "B"))
	if id != 4 {
		t.Errorf("Add returned id %d, want 4", id)
	}
	if r.Lookup(id) == nil {
		t.Error("added codec not found by returned id")
	}
	if r.Lookup(id + 1) != nil {
		t.Error("Lookup of unregistered id returned non-nil")
	}
}
