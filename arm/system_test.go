package arm

import (
	"testing"

	"github.com/GiantRobotLemur/mightyoak-go/internal/options"
)

func newTestBedSystem(t *testing.T, variant options.ProcessorVariant) *System {
	t.Helper()
	sys, err := NewSystem(options.Options{
		HardwareModel:    options.TestBed,
		ProcessorVariant: variant,
	})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	return sys
}

func writeWords(sys *System, addr uint32, words []uint32) {
	for i, w := range words {
		sys.WriteBulk(addr+uint32(4*i), []uint8{
			uint8(w), uint8(w >> 8), uint8(w >> 16), uint8(w >> 24),
		})
	}
}

func TestSystemStepMOVAndADD(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	writeWords(sys, 0x8000, []uint32{
		0xE3A00005, // MOV R0, #5
		0xE2801003, // ADD R1, R0, #3
	})
	sys.Regs.SetPC(0x8000)
	sys.Step()
	if sys.Regs.Get(0) != 5 {
		t.Fatalf("got R0=%d, want 5", sys.Regs.Get(0))
	}
	sys.Step()
	if sys.Regs.Get(1) != 8 {
		t.Fatalf("got R1=%d, want 8", sys.Regs.Get(1))
	}
}

func TestSystemStepConditionalSkipsWhenFalse(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	// MOVEQ R0, #9 with Z clear: must not execute.
	writeWords(sys, 0x8000, []uint32{0x03A00009})
	sys.Regs.SetPC(0x8000)
	sys.Regs.Status.Z = false
	sys.Step()
	if sys.Regs.Get(0) != 0 {
		t.Fatalf("conditional instruction executed despite false condition: R0=%d", sys.Regs.Get(0))
	}
	if sys.Regs.GetPC() != 0x8004 {
		t.Fatalf("PC did not advance past skipped instruction: %#x", sys.Regs.GetPC())
	}
}

func TestSystemStepSoftwareInterruptEntersSupervisor(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	sys.Regs.Status.Mode = User32
	writeWords(sys, 0x8000, []uint32{0xEF000001}) // SWI #1
	sys.Regs.SetPC(0x8000)
	sys.Step()
	if sys.Regs.Mode() != Supervisor32 {
		t.Fatalf("got mode %v, want Supervisor32", sys.Regs.Mode())
	}
	if sys.Regs.GetPC() != ExcSoftwareInterrupt.Vector() {
		t.Fatalf("got PC %#x, want SWI vector", sys.Regs.GetPC())
	}
}

func TestSystemStepUndefinedInstructionTraps(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	writeWords(sys, 0x8000, []uint32{0xE6000010}) // architecturally undefined encoding
	sys.Regs.SetPC(0x8000)
	sys.Step()
	if sys.Regs.GetPC() != ExcUndefinedInstruction.Vector() {
		t.Fatalf("got PC %#x, want UndefinedInstruction vector", sys.Regs.GetPC())
	}
}

func TestSystemStepDataAbortRaisesException(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	sys.Regs.Set(0, 0xFFFF0000) // unmapped
	writeWords(sys, 0x8000, []uint32{0xE5901000})  // LDR R1, [R0]
	sys.Regs.SetPC(0x8000)
	sys.Step()
	if sys.Regs.GetPC() != ExcDataAbort.Vector() {
		t.Fatalf("got PC %#x, want DataAbort vector", sys.Regs.GetPC())
	}
}

func TestSystemStepAddressExceptionOn26BitOverflow(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	sys.Regs.Status.Mode = Supervisor26
	sys.Regs.Set(0, 0xF0000000)
	writeWords(sys, 0x8000, []uint32{0xE5B01003}) // LDR R1, [R0, #3]!
	sys.Regs.SetPC(0x8000)
	sys.Step()
	if sys.Regs.GetPC() != ExcAddressException.Vector() {
		t.Fatalf("got PC %#x, want AddressException vector", sys.Regs.GetPC())
	}
	if sys.Regs.Mode() != Supervisor26 {
		t.Fatalf("got mode %v, want Supervisor26", sys.Regs.Mode())
	}
}

func TestSystemRunAccumulatesCycles(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	writeWords(sys, 0x8000, []uint32{
		0xE3A00000, // MOV R0, #0
		0xE2800001, // ADD R0, R0, #1
		0xEAFFFFFD, // B -3 (back to ADD)
	})
	sys.Regs.SetPC(0x8000)
	metrics := sys.Run(10)
	if metrics.Cycles < 10 {
		t.Fatalf("expected at least the requested cycle budget spent, got %d", metrics.Cycles)
	}
	if metrics.Instructions == 0 {
		t.Fatalf("expected some instructions retired")
	}
}

func TestSystemCP15ProcessorIDByVariant(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM3)
	cp, ok := sys.Coproc.Get(15)
	if !ok {
		t.Fatalf("expected CP15 to be attached for ARM3")
	}
	cp15 := cp.(*SystemControlCoprocessor)
	if cp15.ProcessorID != 0x41560300 {
		t.Fatalf("got %#x, want 0x41560300", cp15.ProcessorID)
	}
}

func TestSystemNoCoprocessorsForPlainARM2(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM2)
	if _, ok := sys.Coproc.Get(15); ok {
		t.Fatalf("ARM2 should have no coprocessor bus entries")
	}
}

func TestSystemFPAAttachedWhenVariantHasFPA(t *testing.T) {
	sys := newTestBedSystem(t, options.ARM3FPA)
	if _, ok := sys.Coproc.Get(1); !ok {
		t.Fatalf("expected FPA coprocessor attached at slot 1")
	}
}
