package arm

import "testing"

func TestSystemControlCoprocessorProcessorID(t *testing.T) {
	cp := NewSystemControlCoprocessor(0x41560300)
	value, undef := cp.ExecRegLoad(CoprocRegTransfer{CRn: 0}, true)
	if undef {
		t.Fatalf("unexpected undefined")
	}
	if value != 0x41560300 {
		t.Fatalf("got %#x, want 0x41560300", value)
	}
}

func TestSystemControlCoprocessorUnprivilegedRejected(t *testing.T) {
	cp := NewSystemControlCoprocessor(0x41560300)
	if _, undef := cp.ExecRegLoad(CoprocRegTransfer{CRn: 0}, false); !undef {
		t.Fatalf("expected undefined for unprivileged access")
	}
}

func TestSystemControlCoprocessorCDPAlwaysUndefined(t *testing.T) {
	cp := NewSystemControlCoprocessor(0)
	if undef := cp.ExecDataOp(CoprocDataOp{}); !undef {
		t.Fatalf("expected CDP to be undefined on CP15")
	}
}

func TestFPAAddAndMove(t *testing.T) {
	fpa := NewFPACoprocessor(1)
	fpa.F[1] = 2.5
	fpa.F[2] = 1.5
	undef := fpa.ExecDataOp(CoprocDataOp{Opcode1: 0x0, CRd: 0, CRn: 1, CRm: 2}) // ADF F0,F1,F2
	if undef {
		t.Fatalf("unexpected undefined")
	}
	if fpa.F[0] != 4.0 {
		t.Fatalf("got %v, want 4.0", fpa.F[0])
	}
}

func TestFPANegate(t *testing.T) {
	fpa := NewFPACoprocessor(1)
	fpa.F[3] = 7.0
	fpa.ExecDataOp(CoprocDataOp{Opcode1: 0x9, Opcode2: 0x1, CRd: 0, CRm: 3}) // MNF F0,F3
	if fpa.F[0] != -7.0 {
		t.Fatalf("got %v, want -7.0", fpa.F[0])
	}
}

func TestFPASingleLoadStoreRoundTrip(t *testing.T) {
	fpa := NewFPACoprocessor(1)
	fpa.F[5] = 3.25
	words, undef := fpa.ExecDataStore(CoprocDataTransfer{CRd: 5}, true)
	if undef || len(words) != 1 {
		t.Fatalf("unexpected store result: %v %v", words, undef)
	}

	fpa2 := NewFPACoprocessor(1)
	if undef := fpa2.ExecDataLoad(CoprocDataTransfer{CRd: 6}, words, true); undef {
		t.Fatalf("unexpected undefined on load")
	}
	if fpa2.F[6] != 3.25 {
		t.Fatalf("got %v, want 3.25", fpa2.F[6])
	}
}

func TestFPADoubleLoadStoreRoundTrip(t *testing.T) {
	fpa := NewFPACoprocessor(1)
	fpa.F[0] = 1.0 / 3.0
	words, _ := fpa.ExecDataStore(CoprocDataTransfer{Long: true, CRd: 0}, true)
	if len(words) != 2 {
		t.Fatalf("expected 2 words for double precision, got %d", len(words))
	}

	fpa2 := NewFPACoprocessor(1)
	fpa2.ExecDataLoad(CoprocDataTransfer{Long: true, CRd: 1}, words, true)
	if fpa2.F[1] != 1.0/3.0 {
		t.Fatalf("got %v, want 1/3", fpa2.F[1])
	}
}

func TestCoprocessorBusAttachAndGet(t *testing.T) {
	bus := NewCoprocessorBus()
	cp15 := NewSystemControlCoprocessor(0x41560300)
	bus.Attach(cp15)

	got, ok := bus.Get(15)
	if !ok || got.Number() != 15 {
		t.Fatalf("expected to find CP15, got %v %v", got, ok)
	}
	if _, ok := bus.Get(1); ok {
		t.Fatalf("expected slot 1 to be empty")
	}
}
