package arm

// ExceptionKind enumerates the architectural exception classes of spec.md
// §4.4. These are not Go errors (see internal/armerr doc comment and
// SPEC_FULL.md §2.2): they are first-class emulated events handled entirely
// by the exception engine.
type ExceptionKind uint8

const (
	ExcReset ExceptionKind = iota
	ExcUndefinedInstruction
	ExcSoftwareInterrupt
	ExcPrefetchAbort
	ExcDataAbort
	ExcAddressException
	ExcIRQ
	ExcFIQ
)

func (k ExceptionKind) String() string {
	switch k {
	case ExcReset:
		return "Reset"
	case ExcUndefinedInstruction:
		return "UndefinedInstruction"
	case ExcSoftwareInterrupt:
		return "SoftwareInterrupt"
	case ExcPrefetchAbort:
		return "PrefetchAbort"
	case ExcDataAbort:
		return "DataAbort"
	case ExcAddressException:
		return "AddressException"
	case ExcIRQ:
		return "IRQ"
	case ExcFIQ:
		return "FIQ"
	default:
		return "Unknown"
	}
}

// vectorTable gives the low-memory vector address for each exception kind
// (spec.md §4.4 table).
var vectorTable = [...]uint32{
	ExcReset:                0x00,
	ExcUndefinedInstruction: 0x04,
	ExcSoftwareInterrupt:    0x08,
	ExcPrefetchAbort:        0x0C,
	ExcDataAbort:            0x10,
	ExcAddressException:     0x14,
	ExcIRQ:                  0x18,
	ExcFIQ:                  0x1C,
}

// Vector returns the vector address for k.
func (k ExceptionKind) Vector() uint32 { return vectorTable[k] }

// newMode resolves the mode an exception switches to, which depends on the
// addressing width currently in effect (spec.md §4.4 table: several kinds
// land in Supervisor in 26-bit mode but in a dedicated 32-bit-only mode
// otherwise).
func (k ExceptionKind) newMode(addr26 bool) Mode {
	switch k {
	case ExcUndefinedInstruction:
		if addr26 {
			return Supervisor26
		}
		return Undefined32
	case ExcPrefetchAbort, ExcDataAbort:
		if addr26 {
			return Supervisor26
		}
		return Abort32
	case ExcIRQ:
		if addr26 {
			return Irq26
		}
		return Irq32
	case ExcFIQ:
		if addr26 {
			return FastIrq26
		}
		return FastIrq32
	default:
		// Reset, SoftwareInterrupt, AddressException always land in
		// Supervisor regardless of addressing width.
		if addr26 {
			return Supervisor26
		}
		return Supervisor32
	}
}

// maskFIQ reports whether k masks FIQ on entry (spec.md §4.4 table: only
// Reset and FIQ itself do).
func (k ExceptionKind) maskFIQ() bool {
	return k == ExcReset || k == ExcFIQ
}

// linkOffset is the number added to the captured instruction address to
// form the value stored in the new mode's R14 (spec.md §4.4 step 1). Data
// abort and address exception point at the faulting instruction +8 so that
// the architectural return sequence ("SUBS PC, R14, #8") retries it; the
// other synchronous exceptions use +4 so a plain "MOVS PC, R14" resumes at
// the next instruction; IRQ/FIQ are captured relative to the address of the
// next instruction that would otherwise have executed, also +4.
func (k ExceptionKind) linkOffset() uint32 {
	switch k {
	case ExcDataAbort, ExcAddressException:
		return 8
	default:
		return 4
	}
}

// Raise dispatches exception kind k. instrAddr is the address of the
// instruction during which the exception was recognised (used for
// synchronous exceptions); nextFetchAddr is the address that would have
// been fetched next (used for IRQ/FIQ, which are recognised between
// instructions). Raise performs the full sequence of spec.md §4.4:
// link-register capture, CPSR-to-SPSR copy (32-bit modes), mode switch,
// mask update, vector dispatch, and IRQ-mask-bus notification.
func (rf *RegisterFile) Raise(k ExceptionKind, instrAddr, nextFetchAddr uint32) {
	addr26 := rf.Status.Mode.Is26Bit()
	oldStatus := rf.Status
	oldMode := oldStatus.Mode
	newMode := k.newMode(addr26)

	var linkBase uint32
	if k == ExcIRQ || k == ExcFIQ {
		linkBase = nextFetchAddr
	} else {
		linkBase = instrAddr
	}
	lr := linkBase + k.linkOffset()

	rf.switchMode(oldMode, newMode)

	if !addr26 {
		rf.saveSPSR(newMode.bankGroup(), oldStatus)
	}

	newStatus := oldStatus
	newStatus.Mode = newMode
	newStatus.IRQDisable = true
	if k.maskFIQ() {
		newStatus.FIQDisable = true
	}
	rf.Status = newStatus
	rf.notifyMaskBus()

	rf.regs[14] = lr
	rf.SetPC(k.Vector())
}
