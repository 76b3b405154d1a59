package arm

import "testing"

func TestDecodeDataProcessingImmediate(t *testing.T) {
	// MOVS R0, #1  (cond AL, opcode MOV=1101, S=1, Rd=0, imm8=1 rot=0)
	word := uint32(0xE3B00001)
	instr := Decode(word)
	dp, ok := instr.(DataProcessing)
	if !ok {
		t.Fatalf("got %T, want DataProcessing", instr)
	}
	if dp.Opcode != OpMOV || !dp.SetFlags || dp.Rd != 0 {
		t.Fatalf("unexpected fields: %+v", dp)
	}
	if !dp.Op2.Immediate || dp.Op2.ImmValue != 1 {
		t.Fatalf("unexpected operand2: %+v", dp.Op2)
	}
	if dp.Condition() != CondAL {
		t.Fatalf("got cond %v, want AL", dp.Condition())
	}
}

func TestDecodeDataProcessingRegisterShift(t *testing.T) {
	// ADD R1, R2, R3, LSL #4  -> cond=AL, 00, opcode=ADD(0100), S=0, Rn=2,Rd=1,
	// shift amount=4, kind=LSL(00), bit4=0, Rm=3
	word := uint32(0xE0821203)
	instr := Decode(word)
	dp, ok := instr.(DataProcessing)
	if !ok {
		t.Fatalf("got %T, want DataProcessing", instr)
	}
	if dp.Opcode != OpADD || dp.Rn != 2 || dp.Rd != 1 {
		t.Fatalf("unexpected fields: %+v", dp)
	}
	if dp.Op2.Immediate || dp.Op2.Rm != 3 || dp.Op2.Kind != ShiftLSL || dp.Op2.ShiftAmount != 4 {
		t.Fatalf("unexpected operand2: %+v", dp.Op2)
	}
}

func TestDecodePSRTransferOverlay(t *testing.T) {
	// MRS R0, CPSR: S=0 TST-shape. cond=AL,opcode=TST(1000),S=0,Rn=15(SBZ),Rd=0
	mrsCPSR := uint32(0xE10F0000)
	switch i := Decode(mrsCPSR).(type) {
	case PSRTransfer:
		if i.ToPSR || i.UseSPSR || i.Rd != 0 {
			t.Fatalf("unexpected MRS CPSR decode: %+v", i)
		}
	default:
		t.Fatalf("got %T, want PSRTransfer", i)
	}

	// MRS R0, SPSR: CMP-shape. opcode=CMP(1010)
	mrsSPSR := uint32(0xE14F0000)
	switch i := Decode(mrsSPSR).(type) {
	case PSRTransfer:
		if i.ToPSR || !i.UseSPSR {
			t.Fatalf("unexpected MRS SPSR decode: %+v", i)
		}
	default:
		t.Fatalf("got %T, want PSRTransfer", i)
	}

	// MSR CPSR, R0: TEQ-shape. opcode=TEQ(1001), FieldMask in bits19:16
	msrCPSR := uint32(0xE129F000)
	switch i := Decode(msrCPSR).(type) {
	case PSRTransfer:
		if !i.ToPSR || i.UseSPSR {
			t.Fatalf("unexpected MSR CPSR decode: %+v", i)
		}
	default:
		t.Fatalf("got %T, want PSRTransfer", i)
	}
}

func TestDecodeBranchExchange(t *testing.T) {
	// BX R1: cond=AL, 0001 0010 1111 1111 1111 0001
	word := uint32(0xE12FFF11)
	instr := Decode(word)
	bx, ok := instr.(BranchExchange)
	if !ok {
		t.Fatalf("got %T, want BranchExchange", instr)
	}
	if bx.Rm != 1 {
		t.Fatalf("unexpected Rm: %+v", bx)
	}
}

func TestDecodeMultiply(t *testing.T) {
	// MUL R1, R2, R3: cond=AL, 000000 A=0 S=0, Rd=1, Rn=0(SBZ), Rs=3, 1001, Rm=2
	word := uint32(0xE0010392)
	instr := Decode(word)
	m, ok := instr.(Multiply)
	if !ok {
		t.Fatalf("got %T, want Multiply", instr)
	}
	if m.Accumulate || m.Rd != 1 || m.Rs != 3 || m.Rm != 2 {
		t.Fatalf("unexpected fields: %+v", m)
	}
}

func TestDecodeMultiplyLong(t *testing.T) {
	// UMULL R1, R2, R3, R4: cond=AL,00001,U=0,A=0,S=0,RdHi=2,RdLo=1,Rs=4,1001,Rm=3
	word := uint32(0xE0821493)
	instr := Decode(word)
	ml, ok := instr.(MultiplyLong)
	if !ok {
		t.Fatalf("got %T, want MultiplyLong", instr)
	}
	if ml.Signed || ml.Accumulate || ml.RdHi != 2 || ml.RdLo != 1 || ml.Rs != 4 || ml.Rm != 3 {
		t.Fatalf("unexpected fields: %+v", ml)
	}
}

func TestDecodeSwap(t *testing.T) {
	// SWP R1, R2, [R3]: cond=AL,00010,B=0,00,Rn=3,Rd=1,0000,1001,Rm=2
	word := uint32(0xE1031092)
	instr := Decode(word)
	s, ok := instr.(Swap)
	if !ok {
		t.Fatalf("got %T, want Swap", instr)
	}
	if s.Byte || s.Rn != 3 || s.Rd != 1 || s.Rm != 2 {
		t.Fatalf("unexpected fields: %+v", s)
	}
}

func TestDecodeSingleTransferImmediate(t *testing.T) {
	// LDR R1, [R2, #4]: cond=AL,01,I=0,P=1,U=1,B=0,W=0,L=1,Rn=2,Rd=1,imm12=4
	word := uint32(0xE5921004)
	instr := Decode(word)
	st, ok := instr.(SingleTransfer)
	if !ok {
		t.Fatalf("got %T, want SingleTransfer", instr)
	}
	if !st.Load || !st.Pre || !st.Up || st.Rn != 2 || st.Rd != 1 {
		t.Fatalf("unexpected fields: %+v", st)
	}
	if !st.Offset.Immediate || st.Offset.ImmValue != 4 {
		t.Fatalf("unexpected offset: %+v", st.Offset)
	}
}

func TestDecodeBlockTransfer(t *testing.T) {
	// STMIA R0!, {R1,R2}: cond=AL,100,P=0,U=1,S=0,W=1,L=0,Rn=0,reglist=0b110
	word := uint32(0xE8A00006)
	instr := Decode(word)
	bt, ok := instr.(BlockTransfer)
	if !ok {
		t.Fatalf("got %T, want BlockTransfer", instr)
	}
	if bt.Load || !bt.Up || bt.Pre || !bt.WriteBack || bt.Rn != 0 || bt.RegisterList != 0b110 {
		t.Fatalf("unexpected fields: %+v", bt)
	}
}

func TestDecodeBranchWithLink(t *testing.T) {
	// BL with negative offset
	word := uint32(0xEBFFFFFE) // offset=-2 words -> -8 bytes
	instr := Decode(word)
	b, ok := instr.(Branch)
	if !ok {
		t.Fatalf("got %T, want Branch", instr)
	}
	if !b.Link || b.Offset != -8 {
		t.Fatalf("unexpected fields: %+v", b)
	}
}

func TestDecodeSoftwareInterrupt(t *testing.T) {
	word := uint32(0xEF00002A)
	instr := Decode(word)
	swi, ok := instr.(SoftwareInterrupt)
	if !ok {
		t.Fatalf("got %T, want SoftwareInterrupt", instr)
	}
	if swi.Comment != 0x2A {
		t.Fatalf("unexpected comment: %+v", swi)
	}
}

func TestDecodeBreakpoint(t *testing.T) {
	// BKPT #0: cond=AL,00010010,imm12hi=0,0111,imm4=0
	word := uint32(0xE1200070)
	instr := Decode(word)
	bkpt, ok := instr.(Breakpoint)
	if !ok {
		t.Fatalf("got %T, want Breakpoint", instr)
	}
	if bkpt.Comment != 0 {
		t.Fatalf("unexpected comment: %+v", bkpt)
	}
}

func TestDecodeCoprocDataOpAndRegTransfer(t *testing.T) {
	// CDP p1, 0, c0, c1, c2, 0: cond=AL,1110,opc1=0000,CRn=1,CRd=0,p#=1,op2=000,0,CRm=2
	word := uint32(0xEE010102)
	instr := Decode(word)
	cdp, ok := instr.(CoprocDataOp)
	if !ok {
		t.Fatalf("got %T, want CoprocDataOp", instr)
	}
	if cdp.CoprocNum != 1 || cdp.CRn != 1 || cdp.CRd != 0 || cdp.CRm != 2 {
		t.Fatalf("unexpected fields: %+v", cdp)
	}

	// MRC p15, 0, R0, c0, c0, 0
	word = uint32(0xEE100F10)
	instr = Decode(word)
	mrc, ok := instr.(CoprocRegTransfer)
	if !ok {
		t.Fatalf("got %T, want CoprocRegTransfer", instr)
	}
	if !mrc.Load || mrc.CoprocNum != 15 || mrc.Rd != 0 || mrc.CRn != 0 {
		t.Fatalf("unexpected fields: %+v", mrc)
	}
}

func TestDecodeUndefined(t *testing.T) {
	// family 011 with bit4 set is the architecturally-undefined encoding.
	word := uint32(0xE6000010)
	instr := Decode(word)
	if _, ok := instr.(Undefined); !ok {
		t.Fatalf("got %T, want Undefined", instr)
	}
}
