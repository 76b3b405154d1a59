package arm

// ResolveOperand2 computes the value and shifter carry-out of an operand2
// field (spec.md §4.6). carryIn is the current C flag, used when the
// shifter itself performs no rotation (amount 0) and so passes carry
// through unchanged.
func ResolveOperand2(rf *RegisterFile, op Operand2, carryIn bool) (value uint32, carryOut bool) {
	if op.Immediate {
		return op.ImmValue, immediateCarryOut(op, carryIn)
	}

	rm := rf.Get(int(op.Rm))
	amount := int(op.ShiftAmount)
	immediateEncodedZero := !op.ShiftByReg && op.ShiftAmount == 0
	if op.ShiftByReg {
		amount = int(rf.Get(int(op.ShiftReg)) & 0xFF)
		immediateEncodedZero = false
	}
	return Shift(op.Kind, rm, amount, immediateEncodedZero, carryIn)
}

// immediateCarryOut recomputes the carry produced by a data-processing
// immediate's rotate, since an already-rotated ImmValue alone can't tell a
// zero rotate from a rotate that happens to put a 1 in bit 31 (spec.md
// §4.6 "a rotate amount of 0 leaves the carry flag unchanged").
func immediateCarryOut(op Operand2, carryIn bool) bool {
	if op.ImmRotate == 0 {
		return carryIn
	}
	return op.ImmValue&(1<<31) != 0
}

func addWithCarry(a, b uint32, carryIn bool) (result uint32, carryOut, overflow bool) {
	sum := uint64(a) + uint64(b)
	if carryIn {
		sum++
	}
	result = uint32(sum)
	carryOut = sum>>32 != 0
	overflow = (a^result)&(b^result)&(1<<31) != 0
	return result, carryOut, overflow
}

func setLogicalFlags(rf *RegisterFile, result uint32, carryOut bool) {
	rf.Status.N = result&(1<<31) != 0
	rf.Status.Z = result == 0
	rf.Status.C = carryOut
}

func setArithmeticFlags(rf *RegisterFile, result uint32, carryOut, overflow bool) {
	rf.Status.N = result&(1<<31) != 0
	rf.Status.Z = result == 0
	rf.Status.C = carryOut
	rf.Status.V = overflow
}

// writeDest stores result in Rd, routing through SetR15Data (with its CPSR
// restore-from-SPSR side effect) when Rd is R15 and S was set, per spec.md
// §4.6 "When the destination is R15 and S is set".
func writeDest(rf *RegisterFile, rd uint8, result uint32, setFlags bool) {
	if rd == 15 {
		rf.SetR15Data(result, setFlags)
		return
	}
	rf.Set(int(rd), result)
}

// ExecDataProcessing executes one of the 16 ALU data-processing operations
// (spec.md §4.6).
func ExecDataProcessing(rf *RegisterFile, i DataProcessing) {
	carryIn := rf.Status.C
	op2, shifterCarry := ResolveOperand2(rf, i.Op2, carryIn)

	rn := rf.Get(int(i.Rn))

	var result uint32
	var writesDest = true
	var logical bool
	var arithCarry, arithOverflow bool

	switch i.Opcode {
	case OpAND:
		result = rn & op2
		logical = true
	case OpEOR:
		result = rn ^ op2
		logical = true
	case OpSUB:
		result, arithCarry, arithOverflow = addWithCarry(rn, ^op2, true)
	case OpRSB:
		result, arithCarry, arithOverflow = addWithCarry(op2, ^rn, true)
	case OpADD:
		result, arithCarry, arithOverflow = addWithCarry(rn, op2, false)
	case OpADC:
		result, arithCarry, arithOverflow = addWithCarry(rn, op2, carryIn)
	case OpSBC:
		result, arithCarry, arithOverflow = addWithCarry(rn, ^op2, carryIn)
	case OpRSC:
		result, arithCarry, arithOverflow = addWithCarry(op2, ^rn, carryIn)
	case OpTST:
		result = rn & op2
		logical = true
		writesDest = false
	case OpTEQ:
		result = rn ^ op2
		logical = true
		writesDest = false
	case OpCMP:
		result, arithCarry, arithOverflow = addWithCarry(rn, ^op2, true)
		writesDest = false
	case OpCMN:
		result, arithCarry, arithOverflow = addWithCarry(rn, op2, false)
		writesDest = false
	case OpORR:
		result = rn | op2
		logical = true
	case OpMOV:
		result = op2
		logical = true
	case OpBIC:
		result = rn &^ op2
		logical = true
	case OpMVN:
		result = ^op2
		logical = true
	}

	// TSTP/TEQP/CMPP/CMNP: in 26-bit modes the result's flag, interrupt-
	// disable and mode bits replace the PSR; User mode changes the flags only.
	if !writesDest && i.SetFlags && i.Rd == 15 && rf.Status.Mode.Is26Bit() {
		_, s := split26(result)
		if !rf.Status.Mode.IsPrivileged() {
			s.IRQDisable, s.FIQDisable, s.Mode = rf.Status.IRQDisable, rf.Status.FIQDisable, rf.Status.Mode
		}
		oldMode := rf.Status.Mode
		rf.Status = s
		if s.Mode != oldMode {
			rf.switchMode(oldMode, s.Mode)
		}
		rf.notifyMaskBus()
	}

	if i.SetFlags && i.Rd != 15 {
		if logical {
			setLogicalFlags(rf, result, shifterCarry)
		} else {
			setArithmeticFlags(rf, result, arithCarry, arithOverflow)
		}
	}

	if writesDest {
		writeDest(rf, i.Rd, result, i.SetFlags)
	}
}

// ExecMultiply executes MUL/MLA (spec.md §4.6). Rd and Rm must not be the
// same register architecturally; like real hardware, this does not check
// for that and simply produces whatever the read-then-write order implies,
// matching spec.md §9's "must not crash" requirement for unpredictable
// encodings.
func ExecMultiply(rf *RegisterFile, i Multiply) {
	product := rf.Get(int(i.Rm)) * rf.Get(int(i.Rs))
	if i.Accumulate {
		product += rf.Get(int(i.Rn))
	}
	rf.Set(int(i.Rd), product)
	if i.SetFlags {
		rf.Status.N = product&(1<<31) != 0
		rf.Status.Z = product == 0
	}
}

// ExecMultiplyLong executes UMULL/UMLAL/SMULL/SMLAL (spec.md §4.6).
func ExecMultiplyLong(rf *RegisterFile, i MultiplyLong) {
	var product uint64
	if i.Signed {
		product = uint64(int64(int32(rf.Get(int(i.Rm)))) * int64(int32(rf.Get(int(i.Rs)))))
	} else {
		product = uint64(rf.Get(int(i.Rm))) * uint64(rf.Get(int(i.Rs)))
	}
	if i.Accumulate {
		hi, lo := rf.Get(int(i.RdHi)), rf.Get(int(i.RdLo))
		product += uint64(hi)<<32 | uint64(lo)
	}
	rf.Set(int(i.RdLo), uint32(product))
	rf.Set(int(i.RdHi), uint32(product>>32))
	if i.SetFlags {
		rf.Status.N = product&(1<<63) != 0
		rf.Status.Z = product == 0
	}
}

// ExecPSRTransfer executes MRS/MSR (spec.md §4.3).
func ExecPSRTransfer(rf *RegisterFile, i PSRTransfer) {
	if !i.ToPSR {
		if i.UseSPSR {
			rf.Set(int(i.Rd), rf.GetSPSR())
		} else {
			rf.Set(int(i.Rd), rf.GetPSR())
		}
		return
	}

	value, _ := ResolveOperand2(rf, i.Op2, rf.Status.C)

	var mask uint32
	if i.FieldMask&1 != 0 {
		mask |= 0x000000FF // control field (mode, I, F)
	}
	if i.FieldMask&(1<<3) != 0 {
		mask |= 0xFF000000 // flags field (N,Z,C,V)
	}
	if mask == 0 {
		mask = flagMask | controlMask
	}

	if i.UseSPSR {
		current := rf.GetSPSR()
		merged := (current &^ mask) | (value & mask)
		rf.SetSPSR(merged)
		return
	}

	rf.UpdatePSR(value, mask)
}
