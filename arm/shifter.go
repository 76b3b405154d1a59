package arm

// ShiftKind identifies a barrel-shifter operation (spec.md §4.6).
type ShiftKind uint8

const (
	ShiftLSL ShiftKind = iota
	ShiftLSR
	ShiftASR
	ShiftROR
)

// Shift applies the barrel shifter to value, returning the shifted result
// and the carry-out it produces. amount is the full, unclamped shift count;
// register-specified shifts should mask the source register to its low 8
// bits before calling this (spec.md §4.6 "Register-specified shifts use
// only the low 8 bits of the register"). immediateEncodedZero distinguishes
// an immediate shift literally written as 0 from a genuine runtime amount of
// 0 (only relevant for LSR/ASR/ROR, whose immediate-zero forms are special
// encodings for #32 and RRX respectively, spec.md §4.6).
func Shift(kind ShiftKind, value uint32, amount int, immediateEncodedZero bool, carryIn bool) (result uint32, carryOut bool) {
	switch kind {
	case ShiftLSL:
		return shiftLSL(value, amount, carryIn)
	case ShiftLSR:
		if immediateEncodedZero {
			amount = 32
		}
		return shiftLSR(value, amount, carryIn)
	case ShiftASR:
		if immediateEncodedZero {
			amount = 32
		}
		return shiftASR(value, amount, carryIn)
	case ShiftROR:
		if immediateEncodedZero {
			return rrx(value, carryIn)
		}
		return shiftROR(value, amount, carryIn)
	default:
		return value, carryIn
	}
}

func shiftLSL(value uint32, amount int, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(32-amount)) != 0
		return value << uint(amount), carryOut
	case amount == 32:
		return 0, value&1 != 0
	default:
		return 0, false
	}
}

func shiftLSR(value uint32, amount int, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(amount-1)) != 0
		return value >> uint(amount), carryOut
	case amount == 32:
		return 0, value&(1<<31) != 0
	default:
		return 0, false
	}
}

func shiftASR(value uint32, amount int, carryIn bool) (uint32, bool) {
	signed := int32(value)
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := value&(1<<(amount-1)) != 0
		return uint32(signed >> uint(amount)), carryOut
	default:
		if signed < 0 {
			return 0xFFFFFFFF, value&(1<<31) != 0
		}
		return 0, value&(1<<31) != 0
	}
}

func shiftROR(value uint32, amount int, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	amount &= 31
	if amount == 0 {
		// a multiple-of-32 register-specified rotate: value unchanged,
		// carry-out is the value's top bit (spec.md §8 shifter law).
		return value, value&(1<<31) != 0
	}
	result := value>>uint(amount) | value<<uint(32-amount)
	carryOut := value&(1<<(amount-1)) != 0
	return result, carryOut
}

// rrx performs a one-place right rotate through carry (ROR #0 encoding,
// spec.md §4.6 "ROR by 0 is RRX").
func rrx(value uint32, carryIn bool) (uint32, bool) {
	carryOut := value&1 != 0
	result := value >> 1
	if carryIn {
		result |= 1 << 31
	}
	return result, carryOut
}
