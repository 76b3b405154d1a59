package memmap

import (
	"errors"
	"testing"
)

func TestTryInsertRejectsOverlap(t *testing.T) {
	m := NewMap()
	if err := m.TryInsert(0x1000, NewHostBlock("a", 0x100, false)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := m.TryInsert(0x1080, NewHostBlock("b", 0x100, false)); err == nil {
		t.Fatalf("expected overlap error")
	} else if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if err := m.TryInsert(0x1100, NewHostBlock("c", 0x100, false)); err != nil {
		t.Fatalf("adjacent insert should succeed: %v", err)
	}
}

func TestReadWriteWordRoundTrip(t *testing.T) {
	m := NewMap()
	m.TryInsert(0, NewHostBlock("ram", 0x1000, false))

	if a := m.WriteWord(4, 0xCAFEBABE); a {
		t.Fatalf("unexpected abort on write")
	}
	v, a := m.ReadWord(4)
	if a {
		t.Fatalf("unexpected abort on read")
	}
	if v != 0xCAFEBABE {
		t.Fatalf("got %#08x, want 0xCAFEBABE", v)
	}
}

func TestOpenBusOnMiss(t *testing.T) {
	m := NewMap()
	v, aborted := m.ReadByte(0x5000)
	if aborted {
		t.Fatalf("open-bus read should not abort")
	}
	if v != 0xFF {
		t.Fatalf("got %#x, want open-bus 0xFF", v)
	}

	// writes to unmapped addresses are silently dropped
	if a := m.WriteByte(0x5000, 0x42); a {
		t.Fatalf("write to unmapped address should not abort by default")
	}
}

func TestAbortOnMiss(t *testing.T) {
	m := NewMap()
	m.AbortOnMiss = true
	if _, aborted := m.ReadByte(0x5000); !aborted {
		t.Fatalf("expected abort")
	}
}

func TestReadOnlyRegionRejectsWrite(t *testing.T) {
	m := NewMap()
	rom := NewHostBlockFromImage("rom", []byte{1, 2, 3, 4}, true)
	m.TryInsert(0, rom)
	if ok := rom.WriteByte(0, 9); ok {
		t.Fatalf("expected write to read-only block to fail")
	}
	v, _ := rom.ReadByte(0)
	if v != 1 {
		t.Fatalf("read-only block was mutated")
	}
}

func TestExchangeIsAtomicSwap(t *testing.T) {
	m := NewMap()
	m.TryInsert(0, NewHostBlock("ram", 0x10, false))
	m.WriteByte(0, 0x11)

	old, aborted := m.Exchange(0, 0x22)
	if aborted {
		t.Fatalf("unexpected abort")
	}
	if old != 0x11 {
		t.Fatalf("got old=%#x want 0x11", old)
	}
	v, _ := m.ReadByte(0)
	if v != 0x22 {
		t.Fatalf("got %#x want 0x22 after swap", v)
	}
}

func TestExchangeWordRoundTrip(t *testing.T) {
	m := NewMap()
	m.TryInsert(0, NewHostBlock("ram", 0x10, false))
	m.WriteWord(0, 0x11223344)

	old, aborted := m.ExchangeWord(0, 0xAABBCCDD)
	if aborted {
		t.Fatalf("unexpected abort")
	}
	if old != 0x11223344 {
		t.Fatalf("got old=%#08x want 0x11223344", old)
	}
	v, _ := m.ReadWord(0)
	if v != 0xAABBCCDD {
		t.Fatalf("got %#08x want 0xAABBCCDD after swap", v)
	}
}

func TestExchangeWordMissingRegionFallsBackToOpenBus(t *testing.T) {
	m := NewMap()
	old, aborted := m.ExchangeWord(0x9000, 0)
	if aborted {
		t.Fatalf("open-bus exchange should not abort by default")
	}
	if old != 0xFFFFFFFF {
		t.Fatalf("got %#08x, want open-bus 0xFFFFFFFF", old)
	}
}

type fakeBus struct{ irq, fiq bool }

func (b *fakeBus) RaiseIRQ()  { b.irq = true }
func (b *fakeBus) ClearIRQ()  { b.irq = false }
func (b *fakeBus) RaiseFIQ()  { b.fiq = true }
func (b *fakeBus) ClearFIQ()  { b.fiq = false }

func TestConnectInvokesDevices(t *testing.T) {
	m := NewMap()
	connected := false
	dev := NewMMIODevice("dev", 4)
	dev.OnConnect = func(bus InterruptBus) { connected = true }
	m.TryInsert(0x2000, dev)

	m.Connect(&fakeBus{})
	if !connected {
		t.Fatalf("device was not connected")
	}
}
