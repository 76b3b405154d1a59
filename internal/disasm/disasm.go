// Package disasm renders decoded instructions back to assembly-like text
// for diagnostics. It is deliberately the
// mirror image of internal/asm rather than a from-scratch decoder: it
// consumes arm.Decode's output directly instead of re-parsing the raw word.
package disasm

import (
	"fmt"
	"strings"

	"github.com/GiantRobotLemur/mightyoak-go/arm"
)

var condNames = [...]string{
	arm.CondEQ: "EQ", arm.CondNE: "NE", arm.CondCS: "CS", arm.CondCC: "CC",
	arm.CondMI: "MI", arm.CondPL: "PL", arm.CondVS: "VS", arm.CondVC: "VC",
	arm.CondHI: "HI", arm.CondLS: "LS", arm.CondGE: "GE", arm.CondLT: "LT",
	arm.CondGT: "GT", arm.CondLE: "LE", arm.CondAL: "", arm.CondNV: "NV",
}

func condSuffix(c arm.Condition) string { return condNames[c] }

var dpMnemonics = [...]string{
	arm.OpAND: "AND", arm.OpEOR: "EOR", arm.OpSUB: "SUB", arm.OpRSB: "RSB",
	arm.OpADD: "ADD", arm.OpADC: "ADC", arm.OpSBC: "SBC", arm.OpRSC: "RSC",
	arm.OpTST: "TST", arm.OpTEQ: "TEQ", arm.OpCMP: "CMP", arm.OpCMN: "CMN",
	arm.OpORR: "ORR", arm.OpMOV: "MOV", arm.OpBIC: "BIC", arm.OpMVN: "MVN",
}

var shiftMnemonics = [...]string{
	arm.ShiftLSL: "LSL", arm.ShiftLSR: "LSR", arm.ShiftASR: "ASR", arm.ShiftROR: "ROR",
}

func reg(n uint8) string {
	switch n {
	case 13:
		return "SP"
	case 14:
		return "LR"
	case 15:
		return "PC"
	default:
		return fmt.Sprintf("R%d", n)
	}
}

func operand2(op arm.Operand2) string {
	if op.Immediate {
		return fmt.Sprintf("#%#x", op.ImmValue)
	}
	base := reg(op.Rm)
	if op.ShiftByReg {
		return fmt.Sprintf("%s, %s %s", base, shiftMnemonics[op.Kind], reg(op.ShiftReg))
	}
	if op.ShiftAmount == 0 && op.Kind == arm.ShiftLSL {
		return base
	}
	return fmt.Sprintf("%s, %s #%d", base, shiftMnemonics[op.Kind], op.ShiftAmount)
}

// Disassemble renders a single decoded instruction as text.
func Disassemble(instr arm.Instruction) string {
	suffix := condSuffix(instr.Condition())

	switch i := instr.(type) {
	case arm.DataProcessing:
		s := ""
		if i.SetFlags {
			s = "S"
		}
		mnem := dpMnemonics[i.Opcode]
		switch i.Opcode {
		case arm.OpMOV, arm.OpMVN:
			return fmt.Sprintf("%s%s%s %s, %s", mnem, suffix, s, reg(i.Rd), operand2(i.Op2))
		case arm.OpCMP, arm.OpCMN, arm.OpTST, arm.OpTEQ:
			return fmt.Sprintf("%s%s %s, %s", mnem, suffix, reg(i.Rn), operand2(i.Op2))
		default:
			return fmt.Sprintf("%s%s%s %s, %s, %s", mnem, suffix, s, reg(i.Rd), reg(i.Rn), operand2(i.Op2))
		}

	case arm.Multiply:
		s := ""
		if i.SetFlags {
			s = "S"
		}
		if i.Accumulate {
			return fmt.Sprintf("MLA%s%s %s, %s, %s, %s", suffix, s, reg(i.Rd), reg(i.Rm), reg(i.Rs), reg(i.Rn))
		}
		return fmt.Sprintf("MUL%s%s %s, %s, %s", suffix, s, reg(i.Rd), reg(i.Rm), reg(i.Rs))

	case arm.MultiplyLong:
		s := ""
		if i.SetFlags {
			s = "S"
		}
		mnem := "UMULL"
		switch {
		case i.Signed && i.Accumulate:
			mnem = "SMLAL"
		case i.Signed:
			mnem = "SMULL"
		case i.Accumulate:
			mnem = "UMLAL"
		}
		return fmt.Sprintf("%s%s%s %s, %s, %s, %s", mnem, suffix, s, reg(i.RdLo), reg(i.RdHi), reg(i.Rm), reg(i.Rs))

	case arm.SingleTransfer:
		mnem := "STR"
		if i.Load {
			mnem = "LDR"
		}
		sz := ""
		switch i.Size {
		case arm.SizeUnsignedByte:
			sz = "B"
		case arm.SizeSignedByte:
			sz = "SB"
		case arm.SizeUnsignedHalf:
			sz = "H"
		case arm.SizeSignedHalf:
			sz = "SH"
		}
		addr := addressing(i)
		return fmt.Sprintf("%s%s%s %s, %s", mnem, suffix, sz, reg(i.Rd), addr)

	case arm.BlockTransfer:
		mnem := "STM"
		if i.Load {
			mnem = "LDM"
		}
		dir := blockDirection(i.Pre, i.Up)
		wb := ""
		if i.WriteBack {
			wb = "!"
		}
		caret := ""
		if i.PSRForce {
			caret = "^"
		}
		return fmt.Sprintf("%s%s%s %s%s, {%s}%s", mnem, suffix, dir, reg(i.Rn), wb, regList(i.RegisterList), caret)

	case arm.Swap:
		b := ""
		if i.Byte {
			b = "B"
		}
		return fmt.Sprintf("SWP%s%s %s, %s, [%s]", suffix, b, reg(i.Rd), reg(i.Rm), reg(i.Rn))

	case arm.Branch:
		mnem := "B"
		if i.Link {
			mnem = "BL"
		}
		return fmt.Sprintf("%s%s %+d", mnem, suffix, i.Offset)

	case arm.BranchExchange:
		return fmt.Sprintf("BX%s %s", suffix, reg(i.Rm))

	case arm.SoftwareInterrupt:
		return fmt.Sprintf("SWI%s #%#x", suffix, i.Comment)

	case arm.Breakpoint:
		return fmt.Sprintf("BKPT #%#x", i.Comment)

	case arm.PSRTransfer:
		psr := "CPSR"
		if i.UseSPSR {
			psr = "SPSR"
		}
		if !i.ToPSR {
			return fmt.Sprintf("MRS%s %s, %s", suffix, reg(i.Rd), psr)
		}
		return fmt.Sprintf("MSR%s %s, %s", suffix, psr, operand2(i.Op2))

	case arm.CoprocDataOp:
		return fmt.Sprintf("CDP%s p%d, %d, c%d, c%d, c%d, %d", suffix, i.CoprocNum, i.Opcode1, i.CRd, i.CRn, i.CRm, i.Opcode2)

	case arm.CoprocRegTransfer:
		mnem := "MCR"
		if i.Load {
			mnem = "MRC"
		}
		return fmt.Sprintf("%s%s p%d, %d, %s, c%d, c%d, %d", mnem, suffix, i.CoprocNum, i.Opcode1, reg(i.Rd), i.CRn, i.CRm, i.Opcode2)

	case arm.CoprocDataTransfer:
		mnem := "STC"
		if i.Load {
			mnem = "LDC"
		}
		l := ""
		if i.Long {
			l = "L"
		}
		return fmt.Sprintf("%s%s%s p%d, c%d, [%s, #%d]", mnem, suffix, l, i.CoprocNum, i.CRd, reg(i.Rn), i.Offset)

	case arm.Undefined:
		return "UNDEFINED"

	default:
		return "???"
	}
}

func addressing(i arm.SingleTransfer) string {
	sign := "+"
	if !i.Up {
		sign = "-"
	}
	off := operand2(i.Offset)
	if i.Pre {
		if i.WriteBack {
			return fmt.Sprintf("[%s, %s%s]!", reg(i.Rn), sign, off)
		}
		return fmt.Sprintf("[%s, %s%s]", reg(i.Rn), sign, off)
	}
	return fmt.Sprintf("[%s], %s%s", reg(i.Rn), sign, off)
}

func blockDirection(pre, up bool) string {
	switch {
	case up && pre:
		return "IB"
	case up && !pre:
		return "IA"
	case !up && pre:
		return "DB"
	default:
		return "DA"
	}
}

func regList(list uint16) string {
	var parts []string
	for n := uint8(0); n < 16; n++ {
		if list&(1<<n) != 0 {
			parts = append(parts, reg(n))
		}
	}
	return strings.Join(parts, ", ")
}
