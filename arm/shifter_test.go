package arm

import "testing"

func TestShifterLaws(t *testing.T) {
	t.Run("LSL by 0 passes through", func(t *testing.T) {
		r, c := Shift(ShiftLSL, 0xABCD1234, 0, false, true)
		if r != 0xABCD1234 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("LSL by 32 zeroes with carry from bit 0", func(t *testing.T) {
		r, c := Shift(ShiftLSL, 0x00000001, 32, false, false)
		if r != 0 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("LSL beyond 32 zeroes carry clear", func(t *testing.T) {
		r, c := Shift(ShiftLSL, 0xFFFFFFFF, 40, false, true)
		if r != 0 || c != false {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("LSR immediate 0 means LSR 32", func(t *testing.T) {
		r, c := Shift(ShiftLSR, 0x80000000, 0, true, false)
		if r != 0 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("ASR immediate 0 means ASR 32 negative", func(t *testing.T) {
		r, c := Shift(ShiftASR, 0x80000000, 0, true, false)
		if r != 0xFFFFFFFF || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("ASR immediate 0 means ASR 32 positive", func(t *testing.T) {
		r, c := Shift(ShiftASR, 0x40000000, 0, true, false)
		if r != 0 || c != false {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("ROR immediate 0 is RRX", func(t *testing.T) {
		r, c := Shift(ShiftROR, 0x00000001, 0, true, true)
		if r != 0x80000000 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("ROR by 32 via register passes value, carry from bit 31", func(t *testing.T) {
		r, c := Shift(ShiftROR, 0xF0000000, 32, false, false)
		if r != 0xF0000000 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("ROR by register 0 leaves value and carry untouched", func(t *testing.T) {
		r, c := Shift(ShiftROR, 0x12345678, 0, false, true)
		if r != 0x12345678 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})

	t.Run("plain ROR rotates with carry from low bit shifted out", func(t *testing.T) {
		r, c := Shift(ShiftROR, 0x00000001, 1, false, false)
		if r != 0x80000000 || c != true {
			t.Fatalf("got (%#x,%v)", r, c)
		}
	})
}
