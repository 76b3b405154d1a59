package arm

import "github.com/GiantRobotLemur/mightyoak-go/internal/memmap"

// baseAddress reads a register for use as a memory address. For R15 it
// takes PC+8 without the flags and mode that the 26-bit operand view packs
// in (spec.md §4.7 "using R15 as a base register"; real ARM2 hardware
// leaves this UNPREDICTABLE, and this core picks the address-only reading).
func baseAddress(rf *RegisterFile, n uint8) uint32 {
	if n == 15 {
		return rf.GetPC() + 8
	}
	return rf.Get(int(n))
}

func transferOffset(rf *RegisterFile, op Operand2) uint32 {
	v, _ := ResolveOperand2(rf, op, rf.Status.C)
	return v
}

func signExtendByte(v uint8) uint32  { return uint32(int32(int8(v))) }
func signExtendHalf(v uint16) uint32 { return uint32(int32(int16(v))) }

// TransferFault classifies why a data-transfer memory access did not
// complete, so the caller can raise the right exception vector: a genuine
// bus miss (ExcDataAbort) versus a 26-bit-mode effective address that falls
// outside the 26-bit range (ExcAddressException, spec.md §8 scenario 5),
// which is checked against the computed address rather than just the fetch
// PC.
type TransferFault uint8

const (
	NoFault TransferFault = iota
	DataAbortFault
	AddressExceptionFault
)

// checkAddress26 reports whether addr falls outside the 26-bit addressing
// range while the processor is in a 26-bit mode (spec.md §8 scenario 5).
func checkAddress26(rf *RegisterFile, addr uint32) TransferFault {
	if rf.Status.Mode.Is26Bit() && addr&0xFC000000 != 0 {
		return AddressExceptionFault
	}
	return NoFault
}

// ExecSingleTransfer executes LDR/STR in all of its size and addressing-mode
// variants (spec.md §4.7). It reports how the transfer failed, if it did;
// per the resolved Open Question (DESIGN.md), no base-register writeback
// happens on a failed access of either kind.
func ExecSingleTransfer(rf *RegisterFile, readMap, writeMap *memmap.Map, i SingleTransfer) (fault TransferFault) {
	base := baseAddress(rf, i.Rn)
	offset := transferOffset(rf, i.Offset)

	signedOffset := offset
	delta := int64(signedOffset)
	if !i.Up {
		delta = -delta
	}

	addr := base
	if i.Pre {
		addr = uint32(int64(base) + delta)
	}

	if f := checkAddress26(rf, addr); f != NoFault {
		return f
	}

	if i.Load {
		var value uint32
		switch i.Size {
		case SizeWord:
			w, a := readMap.ReadWord(addr &^ 0x3)
			if a {
				return DataAbortFault
			}
			rotate := (addr & 0x3) * 8
			value, _ = shiftROR(w, int(rotate), false)
		case SizeUnsignedByte:
			b, a := readMap.ReadByte(addr)
			if a {
				return DataAbortFault
			}
			value = uint32(b)
		case SizeSignedByte:
			b, a := readMap.ReadByte(addr)
			if a {
				return DataAbortFault
			}
			value = signExtendByte(b)
		case SizeUnsignedHalf:
			h, a := readMap.ReadHalf(addr &^ 0x1)
			if a {
				return DataAbortFault
			}
			value = uint32(h)
		case SizeSignedHalf:
			h, a := readMap.ReadHalf(addr &^ 0x1)
			if a {
				return DataAbortFault
			}
			value = signExtendHalf(h)
		}

		if i.Rd == 15 {
			rf.SetR15Data(value, false)
		} else {
			rf.Set(int(i.Rd), value)
		}
	} else {
		value := rf.Get(int(i.Rd))
		switch i.Size {
		case SizeWord:
			if a := writeMap.WriteWord(addr&^0x3, value); a {
				return DataAbortFault
			}
		case SizeUnsignedByte, SizeSignedByte:
			if a := writeMap.WriteByte(addr, uint8(value)); a {
				return DataAbortFault
			}
		case SizeUnsignedHalf, SizeSignedHalf:
			if a := writeMap.WriteHalf(addr&^0x1, uint16(value)); a {
				return DataAbortFault
			}
		}
	}

	if i.WriteBack || !i.Pre {
		final := uint32(int64(base) + delta)
		if i.Rn != 15 {
			rf.Set(int(i.Rn), final)
		}
	}
	return NoFault
}

// blockTransferOrder returns the ascending list of registers to transfer and
// the lowest address the block occupies, implementing spec.md §4.7's rule
// that registers are always moved in ascending-register/ascending-address
// order regardless of the IA/IB/DA/DB direction.
func blockTransferOrder(i BlockTransfer) (regs []uint8, lowAddr func(base uint32, count int) uint32) {
	for n := uint8(0); n < 16; n++ {
		if i.RegisterList&(1<<n) != 0 {
			regs = append(regs, n)
		}
	}
	count := len(regs)
	lowAddr = func(base uint32, _ int) uint32 {
		switch {
		case i.Up && i.Pre: // IB
			return base + 4
		case i.Up && !i.Pre: // IA
			return base
		case !i.Up && i.Pre: // DB
			return base - uint32(4*count)
		default: // DA
			return base - uint32(4*count) + 4
		}
	}
	return regs, lowAddr
}

// ExecBlockTransfer executes LDM/STM (spec.md §4.7).
func ExecBlockTransfer(rf *RegisterFile, readMap, writeMap *memmap.Map, i BlockTransfer) (fault TransferFault) {
	regs, lowAddrFn := blockTransferOrder(i)
	base := baseAddress(rf, i.Rn)
	count := len(regs)
	addr := lowAddrFn(base, count)

	useUserBank := i.PSRForce && !(i.Load && i.RegisterList&(1<<15) != 0)
	restoreCPSR := i.Load && i.PSRForce && i.RegisterList&(1<<15) != 0

	baseInList := i.RegisterList&(1<<i.Rn) != 0

	var newBase uint32
	if i.Up {
		newBase = base + uint32(4*count)
	} else {
		newBase = base - uint32(4*count)
	}

	for idx, n := range regs {
		cur := addr + uint32(4*idx)
		if f := checkAddress26(rf, cur); f != NoFault {
			return f
		}
		if i.Load {
			w, a := readMap.ReadWord(cur)
			if a {
				return DataAbortFault
			}
			if n == 15 {
				if restoreCPSR {
					rf.SetR15Data(w, true)
				} else {
					rf.SetR15Data(w, false)
				}
			} else if useUserBank {
				rf.SetUser(int(n), w)
			} else {
				rf.Set(int(n), w)
			}
		} else {
			var v uint32
			switch {
			// STM storing the base register somewhere other than the
			// lowest-numbered slot in the list stores the written-back
			// value, not the value the register held before the transfer
			// started (spec.md §4.7).
			case n == i.Rn && i.WriteBack && idx != 0:
				v = newBase
			case useUserBank:
				v = rf.GetUser(int(n))
			default:
				v = rf.Get(int(n))
			}
			if a := writeMap.WriteWord(cur, v); a {
				return DataAbortFault
			}
		}
	}

	if i.WriteBack && i.Rn != 15 {
		// A loaded base register already holding its final value is not
		// overwritten by writeback (spec.md §9 resolved Open Question).
		if !(i.Load && baseInList) {
			rf.Set(int(i.Rn), newBase)
		}
	}
	return NoFault
}

// ExecSwap executes SWP/SWPB (spec.md §4.7): an atomic read-modify-write of
// one memory location, using memmap.Map.Exchange/ExchangeWord so no other
// access can be interleaved between the read and the write. The word form
// ignores the low two address bits for the actual bus transfer and rotates
// the loaded value into Rd exactly as an unaligned LDR would, per spec.md
// §4.7's alignment rule.
func ExecSwap(rf *RegisterFile, readMap, writeMap *memmap.Map, i Swap) (fault TransferFault) {
	addr := rf.Get(int(i.Rn))
	newValue := rf.Get(int(i.Rm))

	if f := checkAddress26(rf, addr); f != NoFault {
		return f
	}

	if i.Byte {
		old, a := writeMap.Exchange(addr, uint8(newValue))
		if a {
			return DataAbortFault
		}
		rf.Set(int(i.Rd), uint32(old))
		return NoFault
	}

	old, a := writeMap.ExchangeWord(addr&^0x3, newValue)
	if a {
		return DataAbortFault
	}
	rotate := (addr & 0x3) * 8
	result, _ := shiftROR(old, int(rotate), false)
	rf.Set(int(i.Rd), result)
	return NoFault
}
