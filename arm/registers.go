package arm

// RegisterFile holds the banked general register state, the status word(s)
// and the currently-resolved bank. It implements spec.md §4.3 and follows
// the design note in §9: "a single storage array with a swap operation on
// mode change", trading a few extra copies on mode change (rare) for
// branch-free access on every normal register read (common).
//
// PC convention: regs[15] always holds the address of the instruction
// currently being fetched/executed, never pre-biased by the pipeline
// offset. The +8 "two instructions ahead" view (spec.md §4.3 "Pipeline
// offset convention") is synthesised only when R15 is read as a general
// operand (Get(15)); writes through SetR15Data store the value unbiased.
// PC-only accessors (GetPC/SetPC, used by the exec loop and by branch
// instructions) never apply or strip that bias, which keeps mode-switch and
// branch arithmetic simple and avoids a class of off-by-N bugs the source
// project's R15-is-both-PC-and-PSR aliasing invited (spec.md §9).
type RegisterFile struct {
	regs [16]uint32

	// sharedR8to12 holds R8-R12 for every mode except FIQ, persisted while
	// FIQ is current (whose live R8-R12 live in regs[8:13]).
	sharedR8to12 [5]uint32

	// fiqHigh holds R8-R12 for FIQ mode, persisted while any other mode is
	// current.
	fiqHigh [5]uint32

	// r13r14 holds R13 (SP) and R14 (LR) for every bank group, persisted
	// while a different bank group is current.
	r13r14 [numBankGroups][2]uint32

	Status StatusWord

	// spsr holds the saved program status word for each privileged bank
	// group (User has none and is never indexed). Only meaningful in
	// 32-bit modes (spec.md §4.3 "26-bit/32-bit split").
	spsr [numBankGroups]StatusWord

	// IRQMaskBus, when set, is notified every time the IRQ/FIQ mask bits
	// change so external devices observe the current acceptance state
	// (spec.md §4.4 step 5, §8 "IRQ mask bus... always equals CPSR bits").
	IRQMaskBus func(irqDisabled, fiqDisabled bool)
}

// NewRegisterFile constructs a register file reset into Supervisor mode
// with IRQs masked and PC=0, per spec.md §3 "Lifecycle".
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	rf.Reset()
	return rf
}

// Reset puts the register file into its power-on/hardware-reset state:
// Supervisor mode, IRQ and FIQ masked, PC=0 (spec.md §3).
func (rf *RegisterFile) Reset() {
	*rf = RegisterFile{IRQMaskBus: rf.IRQMaskBus}
	rf.Status = StatusWord{Mode: Supervisor32, IRQDisable: true, FIQDisable: true}
	rf.notifyMaskBus()
}

func (rf *RegisterFile) notifyMaskBus() {
	if rf.IRQMaskBus != nil {
		rf.IRQMaskBus(rf.Status.IRQDisable, rf.Status.FIQDisable)
	}
}

// Mode returns the currently active processor mode.
func (rf *RegisterFile) Mode() Mode { return rf.Status.Mode }

// switchMode saves the live R8-R14 into the outgoing bank and loads the
// incoming bank into the live register array. It does not touch
// rf.Status.Mode; callers set that themselves once the swap is done.
func (rf *RegisterFile) switchMode(oldMode, newMode Mode) {
	if oldMode == newMode {
		return
	}

	oldGroup := oldMode.bankGroup()
	newGroup := newMode.bankGroup()

	// save R8-R12
	if oldGroup == bankFIQ {
		copy(rf.fiqHigh[:], rf.regs[8:13])
	} else {
		copy(rf.sharedR8to12[:], rf.regs[8:13])
	}

	// save R13/R14
	rf.r13r14[oldGroup][0] = rf.regs[13]
	rf.r13r14[oldGroup][1] = rf.regs[14]

	// load R8-R12
	if newGroup == bankFIQ {
		copy(rf.regs[8:13], rf.fiqHigh[:])
	} else {
		copy(rf.regs[8:13], rf.sharedR8to12[:])
	}

	// load R13/R14
	rf.regs[13] = rf.r13r14[newGroup][0]
	rf.regs[14] = rf.r13r14[newGroup][1]
}

// Get reads logical register n (0-15) from the current bank. Reading R15
// yields the pipeline-biased operand view: PC+8, packed with flags and mode
// in 26-bit modes (spec.md §4.3 "Pipeline offset convention").
func (rf *RegisterFile) Get(n int) uint32 {
	if n == 15 {
		pc := rf.regs[15] + 8
		if rf.Status.Mode.Is26Bit() {
			return pack26(pc, rf.Status)
		}
		return pc
	}
	return rf.regs[n]
}

// Set writes logical register n (0-14) in the current bank. Use SetR15Data
// for writes to R15 coming from a general ALU destination, and SetPC for
// writes that should only ever affect the program counter.
func (rf *RegisterFile) Set(n int, v uint32) {
	if n == 15 {
		rf.SetPC(v)
		return
	}
	rf.regs[n] = v
}

// GetPC returns the raw program counter: the address of the instruction
// currently being fetched/executed, with no pipeline bias applied.
func (rf *RegisterFile) GetPC() uint32 { return rf.regs[15] }

// SetPC writes the raw program counter and always flushes the pipeline
// (spec.md §3 "A write to R15 always flushes the pipeline"). It never
// touches flags or mode, matching how branch instructions behave even in
// 26-bit mode (spec.md §4.8).
func (rf *RegisterFile) SetPC(v uint32) {
	rf.regs[15] = v &^ 0x3
}

// SetR15Data implements a general ALU/data-transfer write to R15 (spec.md
// §4.3 "When writing R15 as a destination of a general ALU op"). In 26-bit
// mode the write always splits the whole value into PC and flags/mode
// together, since they share the one register. In 32-bit mode only the PC
// portion is written; if setFlags is true (the instruction's S bit was set)
// the whole CPSR (flags, interrupt masks and mode) is additionally restored
// from the current mode's SPSR, which is the 32-bit analogue of the 26-bit
// behaviour (spec.md
// §4.6).
func (rf *RegisterFile) SetR15Data(v uint32, setFlags bool) {
	if rf.Status.Mode.Is26Bit() {
		pc, s := split26(v)
		oldMode := rf.Status.Mode
		rf.SetPC(pc)
		rf.Status = s
		if s.Mode != oldMode {
			rf.switchMode(oldMode, s.Mode)
		}
		rf.notifyMaskBus()
		return
	}

	rf.SetPC(v)
	if setFlags {
		group := rf.Status.Mode.bankGroup()
		saved := rf.spsr[group]
		oldMode := rf.Status.Mode
		rf.Status = saved
		if saved.Mode != oldMode {
			rf.switchMode(oldMode, saved.Mode)
		}
		rf.notifyMaskBus()
	}
}

// GetUser/SetUser force access to the User bank regardless of current mode,
// used by the privileged LDM/STM "^" variant (spec.md §4.3, §4.7).
func (rf *RegisterFile) GetUser(n int) uint32 {
	if n < 8 || n == 15 {
		return rf.Get(n)
	}
	if rf.Status.Mode.bankGroup() == bankUser {
		return rf.regs[n]
	}
	if n <= 12 {
		if rf.Status.Mode.bankGroup() == bankFIQ {
			return rf.sharedR8to12[n-8]
		}
		return rf.regs[n]
	}
	return rf.r13r14[bankUser][n-13]
}

func (rf *RegisterFile) SetUser(n int, v uint32) {
	if n < 8 {
		rf.regs[n] = v
		return
	}
	if n == 15 {
		rf.Set(n, v)
		return
	}
	if rf.Status.Mode.bankGroup() == bankUser {
		rf.regs[n] = v
		return
	}
	if n <= 12 {
		if rf.Status.Mode.bankGroup() == bankFIQ {
			rf.sharedR8to12[n-8] = v
		} else {
			rf.regs[n] = v
		}
		return
	}
	rf.r13r14[bankUser][n-13] = v
}

// GetPSR returns the whole CPSR-equivalent status word (spec.md §4.3).
func (rf *RegisterFile) GetPSR() uint32 { return rf.Status.Pack() }

// SetPSR replaces the whole status word. A mode change implied by the new
// value re-resolves the register bank and republishes the IRQ mask
// (spec.md §4.3).
func (rf *RegisterFile) SetPSR(v uint32) {
	newStatus, ok := UnpackStatus(v)
	if !ok {
		newStatus.Mode = rf.Status.Mode
	}
	oldMode := rf.Status.Mode
	rf.Status = newStatus
	if newStatus.Mode != oldMode {
		rf.switchMode(oldMode, newStatus.Mode)
	}
	rf.notifyMaskBus()
}

// UpdatePSR selectively updates status bits according to mask (which bits
// of v are applied). In User mode only the condition flags are writable
// (spec.md §4.3).
func (rf *RegisterFile) UpdatePSR(v, mask uint32) {
	effectiveMask := mask
	if !rf.Status.Mode.IsPrivileged() {
		effectiveMask &= flagMask
	}
	current := rf.Status.Pack()
	merged := (current &^ effectiveMask) | (v & effectiveMask)
	rf.SetPSR(merged)
}

// GetSPSR/SetSPSR access the saved program status word of the current
// privileged mode. Calling this in User mode is a programming error in real
// hardware (UNPREDICTABLE); here it is a harmless no-op read/write of the
// User "slot" which is never consulted.
func (rf *RegisterFile) GetSPSR() uint32 {
	return rf.spsr[rf.Status.Mode.bankGroup()].Pack()
}

func (rf *RegisterFile) SetSPSR(v uint32) {
	s, ok := UnpackStatus(v)
	if !ok {
		s.Mode = rf.Status.Mode
	}
	rf.spsr[rf.Status.Mode.bankGroup()] = s
}

// saveSPSR copies a status word verbatim into the SPSR of the given bank
// group, used by the exception engine (spec.md §4.4 step 2) which must
// capture the pre-exception CPSR before Raise overwrites Status.
func (rf *RegisterFile) saveSPSR(group bankGroup, s StatusWord) {
	rf.spsr[group] = s
}
