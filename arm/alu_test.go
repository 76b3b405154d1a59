package arm

import "testing"

func newTestRegs() *RegisterFile {
	rf := NewRegisterFile()
	rf.Status.Mode = User32
	return rf
}

func TestExecDataProcessingADDFlags(t *testing.T) {
	rf := newTestRegs()
	rf.Set(1, 0xFFFFFFFF)
	instr := DataProcessing{
		base:     base{Cond: CondAL},
		Opcode:   OpADD,
		SetFlags: true,
		Rn:       1,
		Rd:       2,
		Op2:      Operand2{Immediate: true, ImmValue: 1},
	}
	ExecDataProcessing(rf, instr)
	if rf.Get(2) != 0 {
		t.Fatalf("got R2=%#x, want 0", rf.Get(2))
	}
	if !rf.Status.Z || !rf.Status.C || rf.Status.N || rf.Status.V {
		t.Fatalf("unexpected flags: %+v", rf.Status)
	}
}

func TestExecDataProcessingSUBOverflow(t *testing.T) {
	rf := newTestRegs()
	rf.Set(1, 0x80000000) // INT32_MIN
	instr := DataProcessing{
		base:     base{Cond: CondAL},
		Opcode:   OpSUB,
		SetFlags: true,
		Rn:       1,
		Rd:       2,
		Op2:      Operand2{Immediate: true, ImmValue: 1},
	}
	ExecDataProcessing(rf, instr)
	if !rf.Status.V {
		t.Fatalf("expected signed overflow, got %+v", rf.Status)
	}
}

func TestExecDataProcessingCMPDoesNotWriteDest(t *testing.T) {
	rf := newTestRegs()
	rf.Set(0, 5)
	rf.Set(1, 5)
	instr := DataProcessing{
		base:     base{Cond: CondAL},
		Opcode:   OpCMP,
		SetFlags: true,
		Rn:       0,
		Rd:       1,
		Op2:      Operand2{Immediate: true, ImmValue: 5},
	}
	ExecDataProcessing(rf, instr)
	if rf.Get(1) != 5 {
		t.Fatalf("CMP must not write Rd, got %#x", rf.Get(1))
	}
	if !rf.Status.Z {
		t.Fatalf("expected Z set for equal operands")
	}
}

func TestExecDataProcessingMOVImmediateRotateZeroPreservesCarry(t *testing.T) {
	rf := newTestRegs()
	rf.Status.C = true
	instr := DataProcessing{
		base:     base{Cond: CondAL},
		Opcode:   OpMOV,
		SetFlags: true,
		Rd:       0,
		Op2:      Operand2{Immediate: true, ImmValue: 0x7F, ImmRotate: 0},
	}
	ExecDataProcessing(rf, instr)
	if !rf.Status.C {
		t.Fatalf("expected carry preserved through zero rotate")
	}
}

func TestExecMultiplyAccumulate(t *testing.T) {
	rf := newTestRegs()
	rf.Set(1, 3) // Rm
	rf.Set(2, 4) // Rs
	rf.Set(3, 10) // Rn (accumulate)
	instr := Multiply{base: base{Cond: CondAL}, Accumulate: true, Rd: 0, Rn: 3, Rs: 2, Rm: 1}
	ExecMultiply(rf, instr)
	if rf.Get(0) != 22 {
		t.Fatalf("got %d, want 22", rf.Get(0))
	}
}

func TestExecMultiplyLongSigned(t *testing.T) {
	rf := newTestRegs()
	neg2 := int32(-2)
	rf.Set(2, uint32(neg2))
	rf.Set(3, 3)
	instr := MultiplyLong{base: base{Cond: CondAL}, Signed: true, RdHi: 0, RdLo: 1, Rm: 2, Rs: 3}
	ExecMultiplyLong(rf, instr)
	got := int64(rf.Get(0))<<32 | int64(rf.Get(1))
	if got != -6 {
		t.Fatalf("got %d, want -6", got)
	}
}

func TestExecPSRTransferMRSAndMSR(t *testing.T) {
	rf := newTestRegs()
	rf.Status.Mode = Supervisor32
	rf.Status.N = true

	mrs := PSRTransfer{base: base{Cond: CondAL}, Rd: 0}
	ExecPSRTransfer(rf, mrs)
	if rf.Get(0)&(1<<31) == 0 {
		t.Fatalf("expected MRS to reflect N flag")
	}

	msr := PSRTransfer{
		base:      base{Cond: CondAL},
		ToPSR:     true,
		FieldMask: 1 << 3, // flags field only
		Op2:       Operand2{Immediate: true, ImmValue: 0x20000000},
	}
	ExecPSRTransfer(rf, msr)
	if !rf.Status.C || rf.Status.N {
		t.Fatalf("expected MSR to replace flags field only: %+v", rf.Status)
	}
	if rf.Status.Mode != Supervisor32 {
		t.Fatalf("MSR flags-only must not change mode")
	}
}

func TestResolveOperand2RegisterShift(t *testing.T) {
	rf := newTestRegs()
	rf.Set(1, 0x1)
	rf.Set(2, 4)
	op := Operand2{Rm: 1, Kind: ShiftLSL, ShiftByReg: true, ShiftReg: 2}
	value, _ := ResolveOperand2(rf, op, false)
	if value != 0x10 {
		t.Fatalf("got %#x, want 0x10", value)
	}
}
