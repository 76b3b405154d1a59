package arm

// Instruction is the decoded-instruction record of spec.md §4.5: a small
// sum type of operation-class-specific payloads, matched by the executor
// rather than dispatched through a function-pointer table (spec.md §9
// "Instruction dispatch"). Grounded in shape on
// _examples/other_examples' LJS360d-RoBA/internal/cpu decoder, which
// returns one of several concrete per-class structs from a single decode
// entry point.
type Instruction interface {
	Condition() Condition
	isInstruction()
}

type base struct {
	Cond Condition
}

func (b base) Condition() Condition { return b.Cond }
func (b base) isInstruction()       {}

// DPOpcode enumerates the 16 ALU data-processing operations.
type DPOpcode uint8

const (
	OpAND DPOpcode = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
)

// Operand2 describes the second operand of a data-processing instruction or
// the offset of a single-transfer instruction: either an immediate or a
// (possibly shifted) register (spec.md §4.6, §4.7).
type Operand2 struct {
	Immediate bool

	// Immediate form.
	ImmValue  uint32 // resolved value (rotated 8-bit immediate, or raw 12-bit transfer offset)
	ImmRotate uint8  // data-processing only: original rotate field, needed to tell "rotate 0" (carry unchanged) from a genuine rotate

	// Register form.
	Rm          uint8
	Kind        ShiftKind
	ShiftAmount uint8
	ShiftByReg  bool
	ShiftReg    uint8
}

// DataProcessing is a data-processing ALU instruction (spec.md §4.6).
type DataProcessing struct {
	base
	Opcode   DPOpcode
	SetFlags bool
	Rn, Rd   uint8
	Op2      Operand2
}

// Multiply is MUL/MLA (spec.md §4.6).
type Multiply struct {
	base
	Accumulate bool
	SetFlags   bool
	Rd, Rn, Rs, Rm uint8
}

// MultiplyLong is UMULL/UMLAL/SMULL/SMLAL (spec.md §4.6).
type MultiplyLong struct {
	base
	Signed         bool
	Accumulate     bool
	SetFlags       bool
	RdHi, RdLo, Rs, Rm uint8
}

// TransferSize identifies the size of a single data-transfer access
// (spec.md §4.7).
type TransferSize uint8

const (
	SizeWord TransferSize = iota
	SizeUnsignedByte
	SizeSignedByte
	SizeUnsignedHalf
	SizeSignedHalf
)

// SingleTransfer is LDR/STR in its byte/word/half-word/signed forms
// (spec.md §4.7).
type SingleTransfer struct {
	base
	Pre, Up, WriteBack, Load, ForceUser bool
	Rn, Rd                              uint8
	Size                                TransferSize
	Offset                              Operand2
}

// BlockTransfer is LDM/STM (spec.md §4.7).
type BlockTransfer struct {
	base
	Pre, Up, PSRForce, WriteBack, Load bool
	Rn                                 uint8
	RegisterList                      uint16
}

// Swap is SWP/SWPB (spec.md §4.7).
type Swap struct {
	base
	Byte       bool
	Rn, Rd, Rm uint8
}

// Branch is B/BL (spec.md §4.8).
type Branch struct {
	base
	Link   bool
	Offset int32 // already shifted left 2, sign-extended
}

// BranchExchange is BX (spec.md §4.8).
type BranchExchange struct {
	base
	Rm uint8
}

// SoftwareInterrupt is SWI (spec.md §4.8).
type SoftwareInterrupt struct {
	base
	Comment uint32
}

// Breakpoint is BKPT (spec.md §4.8).
type Breakpoint struct {
	base
	Comment uint16
}

// PSRTransfer is MRS/MSR (spec.md §4.3).
type PSRTransfer struct {
	base
	ToPSR     bool // false = MRS (PSR->reg), true = MSR (operand->PSR)
	UseSPSR   bool
	Rd        uint8 // MRS destination
	FieldMask uint32 // MSR only: which CPSR/SPSR byte fields are written
	Op2       Operand2
}

// CoprocDataOp is CDP (spec.md §4.9).
type CoprocDataOp struct {
	base
	CoprocNum       uint8
	Opcode1         uint8
	CRn, CRd, CRm   uint8
	Opcode2         uint8
}

// CoprocRegTransfer is MRC/MCR (spec.md §4.9).
type CoprocRegTransfer struct {
	base
	Load            bool // true = MRC (coproc->reg), false = MCR
	CoprocNum       uint8
	Opcode1         uint8
	Rd              uint8
	CRn, CRm        uint8
	Opcode2         uint8
}

// CoprocDataTransfer is LDC/STC (spec.md §4.9).
type CoprocDataTransfer struct {
	base
	Pre, Up, Long, WriteBack, Load bool
	Rn                             uint8
	CRd                            uint8
	CoprocNum                      uint8
	Offset                         uint8
}

// Undefined marks an instruction encoding with no defined meaning, or one
// this core's variant doesn't implement (spec.md §4.5).
type Undefined struct {
	base
}

func bits(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func bit(v uint32, n uint) bool {
	return v&(1<<n) != 0
}

// Decode classifies a 32-bit instruction word and extracts its fields
// (spec.md §4.5). It is table-driven in spirit (bits 27:20 + 7:4 select the
// class) but implemented as the two-level switch-then-refine spec.md §9
// recommends: family first on bits 27:25, then refinement within the
// family.
func Decode(word uint32) Instruction {
	cond := Condition(bits(word, 31, 28))
	b := base{Cond: cond}

	family := bits(word, 27, 25)

	switch family {
	case 0b000, 0b001:
		return decodeDataProcessingFamily(word, b, family == 0b001)
	case 0b010, 0b011:
		if family == 0b011 && bit(word, 4) {
			return Undefined{b}
		}
		return decodeSingleTransfer(word, b, family == 0b011)
	case 0b100:
		return decodeBlockTransfer(word, b)
	case 0b101:
		return decodeBranch(word, b)
	case 0b110:
		return decodeCoprocDataTransfer(word, b)
	case 0b111:
		return decodeCoprocOrSWI(word, b)
	default:
		return Undefined{b}
	}
}

func decodeDataProcessingFamily(word uint32, b base, immediate bool) Instruction {
	if !immediate && bits(word, 27, 20) == 0b00010010 && bits(word, 7, 4) == 0b0111 {
		imm := uint16(bits(word, 19, 8)<<4 | bits(word, 3, 0))
		return Breakpoint{base: b, Comment: imm}
	}

	// BX lives in the TST/TEQ/CMP/CMN S=0 space (bits7:4 = 0001, so bit7 is
	// clear) and must be special-cased before the PSR-transfer overlay below
	// ever sees it.
	if !immediate && word&0x0FFFFFF0 == 0x012FFF10 {
		return BranchExchange{base: b, Rm: uint8(bits(word, 3, 0))}
	}

	if !immediate && bit(word, 7) && bit(word, 4) {
		// Multiply / multiply-long / swap / halfword-signed transfer share
		// the "bit7=1,bit4=1" shape that a shifted-register operand2 can
		// never produce (spec.md §9 family-then-refine decode).
		switch {
		case bits(word, 27, 22) == 0b000000:
			return Multiply{
				base:       b,
				Accumulate: bit(word, 21),
				SetFlags:   bit(word, 20),
				Rd:         uint8(bits(word, 19, 16)),
				Rn:         uint8(bits(word, 15, 12)),
				Rs:         uint8(bits(word, 11, 8)),
				Rm:         uint8(bits(word, 3, 0)),
			}
		case bits(word, 27, 23) == 0b00001:
			return MultiplyLong{
				base:       b,
				Signed:     bit(word, 22),
				Accumulate: bit(word, 21),
				SetFlags:   bit(word, 20),
				RdHi:       uint8(bits(word, 19, 16)),
				RdLo:       uint8(bits(word, 15, 12)),
				Rs:         uint8(bits(word, 11, 8)),
				Rm:         uint8(bits(word, 3, 0)),
			}
		case bits(word, 27, 23) == 0b00010 && bits(word, 21, 20) == 0b00 && bits(word, 11, 4) == 0b00001001:
			return Swap{
				base: b,
				Byte: bit(word, 22),
				Rn:   uint8(bits(word, 19, 16)),
				Rd:   uint8(bits(word, 15, 12)),
				Rm:   uint8(bits(word, 3, 0)),
			}
		case bits(word, 27, 25) == 0b000 && bits(word, 6, 5) != 0b00:
			return decodeHalfwordTransfer(word, b)
		default:
			return Undefined{b}
		}
	}

	opcode := DPOpcode(bits(word, 24, 21))
	setFlags := bit(word, 20)

	// PSR transfer overlays the S=0 TST/TEQ/CMP/CMN space (spec.md §4.3).
	if !setFlags && (opcode == OpTST || opcode == OpTEQ || opcode == OpCMP || opcode == OpCMN) {
		useSPSR := opcode == OpCMP || opcode == OpCMN
		toPSR := opcode == OpTEQ || opcode == OpCMN
		if !toPSR {
			return PSRTransfer{base: b, ToPSR: false, UseSPSR: useSPSR, Rd: uint8(bits(word, 15, 12))}
		}
		op2 := decodeOperand2(word, immediate)
		return PSRTransfer{base: b, ToPSR: true, UseSPSR: useSPSR, FieldMask: bits(word, 19, 16), Op2: op2}
	}

	return DataProcessing{
		base:     b,
		Opcode:   opcode,
		SetFlags: setFlags,
		Rn:       uint8(bits(word, 19, 16)),
		Rd:       uint8(bits(word, 15, 12)),
		Op2:      decodeOperand2(word, immediate),
	}
}

func decodeOperand2(word uint32, immediate bool) Operand2 {
	if immediate {
		rotate := uint8(bits(word, 11, 8))
		imm8 := bits(word, 7, 0)
		value, _ := shiftROR(imm8, int(rotate)*2, false)
		return Operand2{Immediate: true, ImmValue: value, ImmRotate: rotate}
	}
	op := Operand2{
		Rm:   uint8(bits(word, 3, 0)),
		Kind: ShiftKind(bits(word, 6, 5)),
	}
	if bit(word, 4) {
		op.ShiftByReg = true
		op.ShiftReg = uint8(bits(word, 11, 8))
	} else {
		op.ShiftAmount = uint8(bits(word, 11, 7))
	}
	return op
}

func decodeHalfwordTransfer(word uint32, b base) Instruction {
	immediateOffset := bit(word, 22)
	signedByte := bit(word, 6) && !bit(word, 5)
	signedHalf := bit(word, 6) && bit(word, 5)
	unsignedHalf := !bit(word, 6) && bit(word, 5)

	var size TransferSize
	switch {
	case signedByte:
		size = SizeSignedByte
	case signedHalf:
		size = SizeSignedHalf
	case unsignedHalf:
		size = SizeUnsignedHalf
	default:
		size = SizeUnsignedHalf
	}

	var off Operand2
	if immediateOffset {
		off = Operand2{Immediate: true, ImmValue: bits(word, 11, 8)<<4 | bits(word, 3, 0)}
	} else {
		off = Operand2{Rm: uint8(bits(word, 3, 0))}
	}

	return SingleTransfer{
		base:      b,
		Pre:       bit(word, 24),
		Up:        bit(word, 23),
		WriteBack: bit(word, 21),
		Load:      bit(word, 20),
		Rn:        uint8(bits(word, 19, 16)),
		Rd:        uint8(bits(word, 15, 12)),
		Size:      size,
		Offset:    off,
	}
}

func decodeSingleTransfer(word uint32, b base, registerOffset bool) Instruction {
	size := SizeWord
	if bit(word, 22) {
		size = SizeUnsignedByte
	}

	var off Operand2
	if registerOffset {
		off = decodeOperand2(word, false)
	} else {
		off = Operand2{Immediate: true, ImmValue: bits(word, 11, 0)}
	}

	pre := bit(word, 24)
	writeBack := bit(word, 21)
	forceUser := !pre && writeBack // post-indexed "T" form forces user-mode access rights (spec.md §4.7)

	return SingleTransfer{
		base:      b,
		Pre:       pre,
		Up:        bit(word, 23),
		WriteBack: writeBack,
		Load:      bit(word, 20),
		ForceUser: forceUser,
		Rn:        uint8(bits(word, 19, 16)),
		Rd:        uint8(bits(word, 15, 12)),
		Size:      size,
		Offset:    off,
	}
}

func decodeBlockTransfer(word uint32, b base) Instruction {
	return BlockTransfer{
		base:         b,
		Pre:          bit(word, 24),
		Up:           bit(word, 23),
		PSRForce:     bit(word, 22),
		WriteBack:    bit(word, 21),
		Load:         bit(word, 20),
		Rn:           uint8(bits(word, 19, 16)),
		RegisterList: uint16(bits(word, 15, 0)),
	}
}

func decodeBranch(word uint32, b base) Instruction {
	offset := int32(bits(word, 23, 0))
	if offset&0x00800000 != 0 {
		offset |= ^int32(0x00FFFFFF)
	}
	offset <<= 2
	return Branch{base: b, Link: bit(word, 24), Offset: offset}
}

func decodeCoprocDataTransfer(word uint32, b base) Instruction {
	return CoprocDataTransfer{
		base:      b,
		Pre:       bit(word, 24),
		Up:        bit(word, 23),
		Long:      bit(word, 22),
		WriteBack: bit(word, 21),
		Load:      bit(word, 20),
		Rn:        uint8(bits(word, 19, 16)),
		CRd:       uint8(bits(word, 15, 12)),
		CoprocNum: uint8(bits(word, 11, 8)),
		Offset:    uint8(bits(word, 7, 0)),
	}
}

func decodeCoprocOrSWI(word uint32, b base) Instruction {
	if bits(word, 27, 24) == 0b1111 {
		return SoftwareInterrupt{base: b, Comment: bits(word, 23, 0)}
	}

	if bit(word, 4) {
		return CoprocRegTransfer{
			base:      b,
			Load:      bit(word, 20),
			CoprocNum: uint8(bits(word, 11, 8)),
			Opcode1:   uint8(bits(word, 23, 21)),
			Rd:        uint8(bits(word, 15, 12)),
			CRn:       uint8(bits(word, 19, 16)),
			CRm:       uint8(bits(word, 3, 0)),
			Opcode2:   uint8(bits(word, 7, 5)),
		}
	}

	return CoprocDataOp{
		base:      b,
		CoprocNum: uint8(bits(word, 11, 8)),
		Opcode1:   uint8(bits(word, 23, 20)),
		CRn:       uint8(bits(word, 19, 16)),
		CRd:       uint8(bits(word, 15, 12)),
		CRm:       uint8(bits(word, 3, 0)),
		Opcode2:   uint8(bits(word, 7, 5)),
	}
}
