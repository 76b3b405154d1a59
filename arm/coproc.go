package arm

import "math"

// Coprocessor is the capability a coprocessor slot implements (spec.md
// §4.9), mirrored on memmap.Region's read/write-capability split: a slot
// only needs to implement the operations it actually supports, and reports
// any other combination as undefined rather than the bus having to know
// slot-specific rules up front.
type Coprocessor interface {
	Number() uint8
	ExecDataOp(i CoprocDataOp) (undefined bool)
	ExecRegLoad(i CoprocRegTransfer, privileged bool) (value uint32, undefined bool)
	ExecRegStore(i CoprocRegTransfer, value uint32, privileged bool) (undefined bool)
	ExecDataLoad(i CoprocDataTransfer, words []uint32, privileged bool) (undefined bool)
	ExecDataStore(i CoprocDataTransfer, privileged bool) (words []uint32, undefined bool)
}

// CoprocessorBus holds the 16 coprocessor slots (spec.md §4.9). An empty
// slot always reports undefined, matching real hardware's behaviour when no
// coprocessor claims an instruction.
type CoprocessorBus struct {
	slots [16]Coprocessor
}

// NewCoprocessorBus returns a bus with all slots empty.
func NewCoprocessorBus() *CoprocessorBus {
	return &CoprocessorBus{}
}

// Attach installs c at its own coprocessor number.
func (b *CoprocessorBus) Attach(c Coprocessor) {
	b.slots[c.Number()&0xF] = c
}

// Get looks up the coprocessor occupying num, if any.
func (b *CoprocessorBus) Get(num uint8) (Coprocessor, bool) {
	c := b.slots[num&0xF]
	return c, c != nil
}

// SystemControlCoprocessor is CP15, present from ARMv2a onward (spec.md §8
// scenario 6). It implements only MRC/MCR, and only from a privileged mode;
// every other coprocessor operation (CDP, LDC, STC) is undefined for it,
// matching the real chip's "register transfer only" system control
// coprocessor.
type SystemControlCoprocessor struct {
	ProcessorID uint32
	Control     uint32
}

// NewSystemControlCoprocessor returns CP15 reporting the given 32-bit
// processor ID value on a CRn=0 MRC (spec.md §8 scenario 6: ARM2a reports
// 0x41560300).
func NewSystemControlCoprocessor(processorID uint32) *SystemControlCoprocessor {
	return &SystemControlCoprocessor{ProcessorID: processorID}
}

func (c *SystemControlCoprocessor) Number() uint8 { return 15 }

func (c *SystemControlCoprocessor) ExecDataOp(CoprocDataOp) bool { return true }

func (c *SystemControlCoprocessor) ExecRegLoad(i CoprocRegTransfer, privileged bool) (uint32, bool) {
	if !privileged {
		return 0, true
	}
	switch i.CRn {
	case 0:
		return c.ProcessorID, false
	case 1:
		return c.Control, false
	default:
		return 0, true
	}
}

func (c *SystemControlCoprocessor) ExecRegStore(i CoprocRegTransfer, value uint32, privileged bool) bool {
	if !privileged {
		return true
	}
	if i.CRn != 1 {
		return true
	}
	c.Control = value
	return false
}

func (c *SystemControlCoprocessor) ExecDataLoad(CoprocDataTransfer, []uint32, bool) bool { return true }
func (c *SystemControlCoprocessor) ExecDataStore(CoprocDataTransfer, bool) ([]uint32, bool) {
	return nil, true
}

// FPACoprocessor is a reduced functional model of the floating-point
// accelerator (spec.md §4.9, §6 "optional FPA coprocessor"). An instance
// answers on the single coprocessor number it is built with; NewSystem
// attaches one at number 1 only, so nothing answers on coprocessor 2.
// It models the eight extended-precision
// registers as float64s and the common dyadic/monadic operations, enough to
// drive the constraint language's F0..F7 checks; it does not reproduce FPA
// exception traps or the extended (80-bit) format bit-for-bit.
type FPACoprocessor struct {
	slot uint8
	F    [8]float64
	FPSR uint32
}

// NewFPACoprocessor returns an FPA instance bound to coprocessor number
// (conventionally 1).
func NewFPACoprocessor(number uint8) *FPACoprocessor {
	return &FPACoprocessor{slot: number}
}

func (c *FPACoprocessor) Number() uint8 { return c.slot }

// fpaOpcode bundles the two dispatch fields CDP/MRC/MCR use to select an
// operation (spec.md §4.9 "opcode1/opcode2 select the FPA operation").
type fpaOpcode struct {
	op1, op2 uint8
}

func (c *FPACoprocessor) ExecDataOp(i CoprocDataOp) bool {
	dest := i.CRd & 0x7
	a := c.F[i.CRn&0x7]
	b := c.F[i.CRm&0x7]
	switch i.Opcode1 {
	case 0x0: // ADF
		c.F[dest] = a + b
	case 0x1: // MUF
		c.F[dest] = a * b
	case 0x2: // SUF
		c.F[dest] = a - b
	case 0x3: // RSF
		c.F[dest] = b - a
	case 0x4: // DVF
		c.F[dest] = a / b
	case 0x9: // MVF (monadic: move/negate depending on opcode2)
		if i.Opcode2&0x1 != 0 {
			c.F[dest] = -b
		} else {
			c.F[dest] = b
		}
	case 0xA: // ABS
		c.F[dest] = math.Abs(b)
	default:
		return true
	}
	return false
}

func (c *FPACoprocessor) ExecRegLoad(i CoprocRegTransfer, _ bool) (uint32, bool) {
	if i.CRn == 0 {
		return c.FPSR, false
	}
	return 0, true
}

func (c *FPACoprocessor) ExecRegStore(i CoprocRegTransfer, value uint32, _ bool) bool {
	if i.CRn == 0 {
		c.FPSR = value
		return false
	}
	return true
}

func (c *FPACoprocessor) ExecDataLoad(i CoprocDataTransfer, words []uint32, _ bool) bool {
	reg := i.CRd & 0x7
	if i.Long {
		if len(words) < 2 {
			return true
		}
		bits := uint64(words[0]) | uint64(words[1])<<32
		c.F[reg] = math.Float64frombits(bits)
	} else {
		if len(words) < 1 {
			return true
		}
		c.F[reg] = float64(math.Float32frombits(words[0]))
	}
	return false
}

func (c *FPACoprocessor) ExecDataStore(i CoprocDataTransfer, _ bool) ([]uint32, bool) {
	reg := i.CRd & 0x7
	if i.Long {
		bits := math.Float64bits(c.F[reg])
		return []uint32{uint32(bits), uint32(bits >> 32)}, false
	}
	return []uint32{math.Float32bits(float32(c.F[reg]))}, false
}
