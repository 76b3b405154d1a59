package arm

import (
	"github.com/GiantRobotLemur/mightyoak-go/internal/armlog"
	"github.com/GiantRobotLemur/mightyoak-go/internal/memmap"
	"github.com/GiantRobotLemur/mightyoak-go/internal/options"
)

// Metrics accumulates the execution statistics spec.md §6 exposes to
// callers: total cycles, instructions retired, and a per-operation-class
// tally useful for benchmark reporting (cmd/armbench, internal/dhrystone).
type Metrics struct {
	Cycles       uint64
	Instructions uint64
	ClassTally   map[string]uint64
}

func newMetrics() Metrics {
	return Metrics{ClassTally: make(map[string]uint64)}
}

// System is a complete emulated machine: the register file, the separate
// read/write address maps, the coprocessor bus, and execution bookkeeping
// (spec.md §3, §6). It implements memmap.InterruptBus so that MMIO devices
// mapped into it can signal interrupts without a back-pointer into System
// itself (spec.md §9).
type System struct {
	Regs      *RegisterFile
	ReadMap   *memmap.Map
	WriteMap  *memmap.Map
	Coproc    *CoprocessorBus
	Options   options.Options

	irqLine bool
	fiqLine bool

	metrics Metrics
}

// NewSystem builds a System from a validated Options record, wiring the
// memory map skeleton for the chosen hardware model and the coprocessor
// complement for the chosen processor variant (spec.md §6).
func NewSystem(opts options.Options) (*System, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sys := &System{
		Regs:     NewRegisterFile(),
		ReadMap:  memmap.NewMap(),
		WriteMap: memmap.NewMap(),
		Coproc:   NewCoprocessorBus(),
		Options:  opts,
		metrics:  newMetrics(),
	}

	if err := sys.buildMemoryMap(); err != nil {
		return nil, err
	}
	sys.buildCoprocessors()

	sys.ReadMap.Connect(sys)
	sys.WriteMap.Connect(sys)

	return sys, nil
}

// buildMemoryMap lays out the address space for the chosen hardware model.
// Only TestBed is built in detail here (spec.md §6's worked skeleton: 32KiB
// ROM at 0x00000000 mirrored at the top of the 26-bit range, 32KiB RAM at
// 0x00008000); the richer Archimedes/A-Series/RiscPC MEMC-style maps are
// placeholders a host application is expected to extend via ReadMap/WriteMap
// directly, since their I/O podule layout is outside this core's scope
// (SPEC_FULL.md non-goals).
func (s *System) buildMemoryMap() error {
	switch s.Options.HardwareModel {
	case options.TestBed:
		return s.buildTestBedMap()
	default:
		return s.buildGenericRAMMap()
	}
}

func (s *System) buildTestBedMap() error {
	romSize := uint32(32 * 1024)
	ramSize := uint32(32 * 1024)

	var rom *memmap.HostBlock
	if s.Options.ROMImagePath != "" {
		image, err := s.Options.LoadROMImage()
		if err != nil {
			return err
		}
		if uint32(len(image)) < romSize {
			padded := make([]uint8, romSize)
			copy(padded, image)
			image = padded
		}
		rom = memmap.NewHostBlockFromImage("TestBed ROM", image[:romSize], true)
	} else {
		rom = memmap.NewHostBlock("TestBed ROM", romSize, true)
	}

	ram := memmap.NewHostBlock("TestBed RAM", ramSize, false)

	if err := s.ReadMap.TryInsert(0x00000000, rom); err != nil {
		return err
	}
	if err := s.ReadMap.TryInsert(0x00008000, ram); err != nil {
		return err
	}
	if err := s.WriteMap.TryInsert(0x00008000, ram); err != nil {
		return err
	}
	// The top of the 26-bit space mirrors ROM so a reset vector fetch with
	// PC forced to 0 still lands on the same bytes regardless of addressing
	// width (spec.md §6 "high ROM mirror").
	if err := s.ReadMap.TryInsert(0x03FF8000, rom); err != nil {
		return err
	}

	s.ReadMap.AbortOnMiss = true
	s.WriteMap.AbortOnMiss = true
	return nil
}

func (s *System) buildGenericRAMMap() error {
	ramSize := uint32(s.Options.RAMSizeKB) * 1024
	ram := memmap.NewHostBlock("System RAM", ramSize, false)
	if err := s.ReadMap.TryInsert(0, ram); err != nil {
		return err
	}
	return s.WriteMap.TryInsert(0, ram)
}

// buildCoprocessors installs the coprocessor complement implied by the
// processor variant (spec.md §8 scenario 6, §4.9).
func (s *System) buildCoprocessors() {
	arch := s.Options.ProcessorVariant.Architecture()
	if arch == options.ARMv2 {
		return // ARM2 has no coprocessor bus at all
	}
	if arch >= options.ARMv2a {
		s.Coproc.Attach(NewSystemControlCoprocessor(cp15ProcessorID(s.Options.ProcessorVariant)))
	}
	if s.Options.ProcessorVariant.HasFPA() {
		s.Coproc.Attach(NewFPACoprocessor(1))
	}
}

// cp15ProcessorID returns the value CP15's ID register reports, matching
// spec.md §8 scenario 6's ARM2a value 0x41560300 and following the same
// ARM-style [implementer:8][architecture:4][part:12][revision:4... ]
// convention for the later variants the original hardware never shipped
// with a real ID for.
func cp15ProcessorID(v options.ProcessorVariant) uint32 {
	switch v {
	case options.ARM250, options.ARM3, options.ARM3FPA:
		return 0x41560300
	case options.ARM610:
		return 0x41560610
	case options.ARM710, options.ARM710FPA:
		return 0x41560710
	case options.ARM810, options.ARM810FPA:
		return 0x41560810
	case options.StrongARM, options.StrongARMFPA:
		return 0x4401A110
	default:
		return 0x41560000
	}
}

// RaiseIRQ/ClearIRQ/RaiseFIQ/ClearFIQ implement memmap.InterruptBus.
func (s *System) RaiseIRQ()  { s.irqLine = true }
func (s *System) ClearIRQ()  { s.irqLine = false }
func (s *System) RaiseFIQ()  { s.fiqLine = true }
func (s *System) ClearFIQ()  { s.fiqLine = false }

// IRQLine/FIQLine report whether a device currently has the corresponding
// line asserted, independent of whether the CPSR mask is letting it through
// (spec.md §6 "IrqStatus" test-harness system register).
func (s *System) IRQLine() bool { return s.irqLine }
func (s *System) FIQLine() bool { return s.fiqLine }

func (s *System) privileged() bool { return s.Regs.Status.Mode.IsPrivileged() }

// Step executes exactly one instruction (or, if an interrupt or
// exception is recognised first, one exception entry) and returns the
// cycle cost charged (spec.md §6 "run for N cycles").
func (s *System) Step() (cost uint64) {
	defer func() { s.metrics.Cycles += cost }()

	if s.fiqLine && !s.Regs.Status.FIQDisable {
		pc := s.Regs.GetPC()
		s.Regs.Raise(ExcFIQ, pc, pc)
		return 3
	}
	if s.irqLine && !s.Regs.Status.IRQDisable {
		pc := s.Regs.GetPC()
		s.Regs.Raise(ExcIRQ, pc, pc)
		return 3
	}

	pc := s.Regs.GetPC()
	addr26 := s.Regs.Status.Mode.Is26Bit()
	if addr26 && pc&0xFC000000 != 0 {
		s.Regs.Raise(ExcAddressException, pc, pc)
		return 3
	}

	word, aborted := s.ReadMap.ReadWord(pc)
	if aborted {
		s.Regs.Raise(ExcPrefetchAbort, pc, pc)
		return 3
	}

	instr := Decode(word)
	cost = 1

	if instr.Condition() == CondNV {
		if s.Options.ProcessorVariant.Architecture() >= options.ARMv4 {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
			s.tally(instr)
			return 3
		}
		// Pre-ARMv4, NV behaves as a guaranteed no-op (reserved encoding
		// that simply never executes).
		s.Regs.SetPC(pc + 4)
		return cost
	}

	if !instr.Condition().Evaluate(s.Regs.Status) {
		s.Regs.SetPC(pc + 4)
		s.tally(instr)
		return cost
	}

	switch s.dispatch(instr, pc) {
	case DataAbortFault:
		s.Regs.Raise(ExcDataAbort, pc, pc+4)
		s.tally(instr)
		return 3
	case AddressExceptionFault:
		s.Regs.Raise(ExcAddressException, pc, pc+4)
		s.tally(instr)
		return 3
	}

	if s.Regs.GetPC() == pc {
		s.Regs.SetPC(pc + 4)
	}
	s.tally(instr)
	return cost
}

func (s *System) tally(instr Instruction) {
	s.metrics.Instructions++
	s.metrics.ClassTally[classOf(instr)]++
}

func classOf(instr Instruction) string {
	switch instr.(type) {
	case DataProcessing:
		return "data-processing"
	case Multiply:
		return "multiply"
	case MultiplyLong:
		return "multiply-long"
	case SingleTransfer:
		return "single-transfer"
	case BlockTransfer:
		return "block-transfer"
	case Swap:
		return "swap"
	case Branch:
		return "branch"
	case BranchExchange:
		return "branch-exchange"
	case SoftwareInterrupt:
		return "swi"
	case Breakpoint:
		return "breakpoint"
	case PSRTransfer:
		return "psr-transfer"
	case CoprocDataOp:
		return "coproc-dataop"
	case CoprocRegTransfer:
		return "coproc-regtransfer"
	case CoprocDataTransfer:
		return "coproc-datatransfer"
	default:
		return "undefined"
	}
}

// dispatch executes instr and reports how a data memory access within it
// failed, if it did. Undefined/unrecognised coprocessor operations raise
// ExcUndefinedInstruction directly, matching spec.md §4.9 "an empty slot
// always reports undefined" and §4.5's "decode producing Undefined" path.
func (s *System) dispatch(instr Instruction, pc uint32) (fault TransferFault) {
	switch i := instr.(type) {
	case DataProcessing:
		ExecDataProcessing(s.Regs, i)
	case Multiply:
		ExecMultiply(s.Regs, i)
	case MultiplyLong:
		ExecMultiplyLong(s.Regs, i)
	case PSRTransfer:
		ExecPSRTransfer(s.Regs, i)
	case SingleTransfer:
		return ExecSingleTransfer(s.Regs, s.ReadMap, s.WriteMap, i)
	case BlockTransfer:
		return ExecBlockTransfer(s.Regs, s.ReadMap, s.WriteMap, i)
	case Swap:
		return ExecSwap(s.Regs, s.ReadMap, s.WriteMap, i)
	case Branch:
		ExecBranch(s.Regs, i)
	case BranchExchange:
		if ExecBranchExchange(s.Regs, i) {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
		}
	case SoftwareInterrupt:
		s.Regs.Raise(ExcSoftwareInterrupt, pc, pc+4)
	case Breakpoint:
		s.Regs.Raise(ExcSoftwareInterrupt, pc, pc+4)
		armlog.Logf("ARM", "breakpoint hit at %#08x, comment=%#04x", pc, i.Comment)
	case CoprocDataOp:
		s.dispatchCoprocDataOp(i, pc)
	case CoprocRegTransfer:
		s.dispatchCoprocRegTransfer(i, pc)
	case CoprocDataTransfer:
		if s.dispatchCoprocDataTransfer(i, pc) {
			return DataAbortFault
		}
	case Undefined:
		s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
	}
	return NoFault
}

func (s *System) dispatchCoprocDataOp(i CoprocDataOp, pc uint32) {
	cp, ok := s.Coproc.Get(i.CoprocNum)
	if !ok || cp.ExecDataOp(i) {
		s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
	}
}

func (s *System) dispatchCoprocRegTransfer(i CoprocRegTransfer, pc uint32) {
	cp, ok := s.Coproc.Get(i.CoprocNum)
	if !ok {
		s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
		return
	}
	if i.Load {
		v, undefined := cp.ExecRegLoad(i, s.privileged())
		if undefined {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
			return
		}
		s.Regs.Set(int(i.Rd), v)
	} else {
		if cp.ExecRegStore(i, s.Regs.Get(int(i.Rd)), s.privileged()) {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
		}
	}
}

func (s *System) dispatchCoprocDataTransfer(i CoprocDataTransfer, pc uint32) (dataAborted bool) {
	cp, ok := s.Coproc.Get(i.CoprocNum)
	if !ok {
		s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
		return false
	}

	count := 1
	if i.Long {
		count = 2
	}

	base := s.Regs.Get(int(i.Rn))
	delta := int64(i.Offset) * 4
	if !i.Up {
		delta = -delta
	}
	addr := base
	if i.Pre {
		addr = uint32(int64(base) + delta)
	}

	if i.Load {
		words := make([]uint32, count)
		for n := 0; n < count; n++ {
			w, aborted := s.ReadMap.ReadWord(addr + uint32(4*n))
			if aborted {
				return true
			}
			words[n] = w
		}
		if cp.ExecDataLoad(i, words, s.privileged()) {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
			return false
		}
	} else {
		words, undefined := cp.ExecDataStore(i, s.privileged())
		if undefined {
			s.Regs.Raise(ExcUndefinedInstruction, pc, pc+4)
			return false
		}
		for n, w := range words {
			if aborted := s.WriteMap.WriteWord(addr+uint32(4*n), w); aborted {
				return true
			}
		}
	}

	if i.WriteBack {
		final := uint32(int64(base) + delta)
		s.Regs.Set(int(i.Rn), final)
	}
	return false
}

// Run executes instructions until cycleBudget is exhausted, returning the
// accumulated metrics (spec.md §6 "run for a cycle budget").
func (s *System) Run(cycleBudget uint64) Metrics {
	for s.metrics.Cycles < cycleBudget {
		s.Step()
	}
	return s.metrics
}

// MetricsSnapshot returns a copy of the execution statistics gathered so far.
func (s *System) MetricsSnapshot() Metrics {
	tally := make(map[string]uint64, len(s.metrics.ClassTally))
	for k, v := range s.metrics.ClassTally {
		tally[k] = v
	}
	return Metrics{Cycles: s.metrics.Cycles, Instructions: s.metrics.Instructions, ClassTally: tally}
}

// ReadBulk/WriteBulk give host tooling raw access to mapped memory for
// loading test programs and inspecting results (spec.md §6 "bulk read/write
// logical addresses").
func (s *System) ReadBulk(addr uint32, length uint32) []uint8 {
	out := make([]uint8, length)
	for i := uint32(0); i < length; i++ {
		out[i], _ = s.ReadMap.ReadByte(addr + i)
	}
	return out
}

func (s *System) WriteBulk(addr uint32, data []uint8) {
	for i, b := range data {
		s.WriteMap.WriteByte(addr+uint32(i), b)
	}
}
