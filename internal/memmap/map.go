package memmap

import (
	"sort"

	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

// entry is one (base, size, region) binding in the map.
type entry struct {
	base   uint32
	size   uint32
	region Region
}

func (e entry) end() uint32 { return e.base + e.size }

// Map is a sorted sparse map from 32-bit address to region. Entries never
// overlap (spec.md §4.1, §8 "no overlapping entries at any point"). A system
// normally keeps two Maps, one for reads and one for writes, so that ROM can
// be mapped read-only while RAM backs the same logical range for writes
// (spec.md §4.1 "separate read and write maps").
type Map struct {
	entries []entry

	// OpenBusValue is returned on a read that matches no region. Defaults to
	// all-ones per spec.md §4.1.
	OpenBusValue uint8

	// AbortOnMiss, when set, makes a missed lookup signal a data abort
	// instead of open-bus behaviour (spec.md §4.1).
	AbortOnMiss bool
}

// NewMap constructs an empty map with the architectural open-bus default.
func NewMap() *Map {
	return &Map{OpenBusValue: 0xFF}
}

// TryInsert registers a region at the given base address. It fails if the
// new range overlaps any existing entry.
func (m *Map) TryInsert(base uint32, region Region) error {
	size := region.Size()
	if size == 0 {
		return armerr.Errorf("memmap", "region %q has zero size", region.Name())
	}

	newEnd := base + size
	idx := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].base >= base })

	if idx > 0 {
		prev := m.entries[idx-1]
		if prev.end() > base {
			return armerr.Wrap("memmap", armerr.ErrOverlappingRegion)
		}
	}
	if idx < len(m.entries) {
		next := m.entries[idx]
		if newEnd > next.base {
			return armerr.Wrap("memmap", armerr.ErrOverlappingRegion)
		}
	}

	m.entries = append(m.entries, entry{})
	copy(m.entries[idx+1:], m.entries[idx:])
	m.entries[idx] = entry{base: base, size: size, region: region}
	return nil
}

// TryFind performs a binary search for the region covering addr, returning
// the region, the offset within it, and the number of bytes remaining in
// the region from that offset.
func (m *Map) TryFind(addr uint32) (region Region, offset uint32, remaining uint32, ok bool) {
	idx := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].end() > addr })
	if idx >= len(m.entries) {
		return nil, 0, 0, false
	}
	e := m.entries[idx]
	if addr < e.base {
		return nil, 0, 0, false
	}
	off := addr - e.base
	return e.region, off, e.size - off, true
}

// ReadByte reads a single byte, yielding open-bus data on a miss.
func (m *Map) ReadByte(addr uint32) (v uint8, aborted bool) {
	region, off, _, ok := m.TryFind(addr)
	if !ok {
		if m.AbortOnMiss {
			return 0, true
		}
		return m.OpenBusValue, false
	}
	b, ok := region.ReadByte(off)
	if !ok {
		if m.AbortOnMiss {
			return 0, true
		}
		return m.OpenBusValue, false
	}
	return b, false
}

// WriteByte writes a single byte; a miss is silently dropped unless the map
// is configured to abort.
func (m *Map) WriteByte(addr uint32, v uint8) (aborted bool) {
	region, off, _, ok := m.TryFind(addr)
	if !ok {
		return m.AbortOnMiss
	}
	if !region.WriteByte(off, v) {
		return m.AbortOnMiss
	}
	return false
}

// ReadWord reads 4 bytes little-endian starting at addr. Unaligned accesses
// are legal at the map level; architectural rotate/align semantics are the
// data-transfer unit's responsibility (spec.md §4.1).
func (m *Map) ReadWord(addr uint32) (v uint32, aborted bool) {
	var word uint32
	for i := uint32(0); i < 4; i++ {
		b, a := m.ReadByte(addr + i)
		if a {
			return 0, true
		}
		word |= uint32(b) << (8 * i)
	}
	return word, false
}

// WriteWord writes 4 bytes little-endian starting at addr.
func (m *Map) WriteWord(addr uint32, v uint32) (aborted bool) {
	for i := uint32(0); i < 4; i++ {
		if a := m.WriteByte(addr+i, uint8(v>>(8*i))); a {
			return true
		}
	}
	return false
}

// ReadHalf/WriteHalf are the 16-bit counterparts used for half-word
// load/store instructions.
func (m *Map) ReadHalf(addr uint32) (v uint16, aborted bool) {
	lo, a := m.ReadByte(addr)
	if a {
		return 0, true
	}
	hi, a := m.ReadByte(addr + 1)
	if a {
		return 0, true
	}
	return uint16(lo) | uint16(hi)<<8, false
}

func (m *Map) WriteHalf(addr uint32, v uint16) (aborted bool) {
	if a := m.WriteByte(addr, uint8(v)); a {
		return true
	}
	return m.WriteByte(addr+1, uint8(v>>8))
}

// Exchange performs an atomic read-modify-write on the region covering addr,
// used by the SWP/SWPB instructions (spec.md §4.7). Falls back to a plain
// read then write if the region does not implement Exchanger.
func (m *Map) Exchange(addr uint32, writeValue uint8) (old uint8, aborted bool) {
	region, off, _, ok := m.TryFind(addr)
	if !ok {
		return m.OpenBusValue, m.AbortOnMiss
	}
	if ex, ok := region.(Exchanger); ok {
		v, ok := ex.Exchange(off, writeValue)
		if !ok {
			return m.OpenBusValue, m.AbortOnMiss
		}
		return v, false
	}
	v, ok := region.ReadByte(off)
	if !ok {
		return m.OpenBusValue, m.AbortOnMiss
	}
	region.WriteByte(off, writeValue)
	return v, false
}

// ExchangeWord performs an atomic little-endian word read-modify-write
// against a single region, used by the word form of SWP/SWPB (spec.md
// §4.7). Unlike four chained Exchange calls, the region is located once and
// all four bytes are exchanged against that same lookup; a word that
// straddles two regions is treated as a miss.
func (m *Map) ExchangeWord(addr uint32, writeValue uint32) (old uint32, aborted bool) {
	region, off, remaining, ok := m.TryFind(addr)
	if !ok || remaining < 4 {
		if m.AbortOnMiss {
			return 0, true
		}
		return uint32(m.OpenBusValue) * 0x01010101, false
	}

	var result uint32
	for i := uint32(0); i < 4; i++ {
		writeByte := uint8(writeValue >> (8 * i))
		var v uint8
		var got bool
		if ex, isEx := region.(Exchanger); isEx {
			v, got = ex.Exchange(off+i, writeByte)
		} else {
			v, got = region.ReadByte(off + i)
			if got {
				region.WriteByte(off+i, writeByte)
			}
		}
		if !got {
			if m.AbortOnMiss {
				return 0, true
			}
			return uint32(m.OpenBusValue) * 0x01010101, false
		}
		result |= uint32(v) << (8 * i)
	}
	return result, false
}

// Connect invokes Connect on every region in the map that implements
// Connector, exposing the interrupt bus (spec.md §3 "Lifecycle").
func (m *Map) Connect(bus InterruptBus) {
	for _, e := range m.entries {
		if c, ok := e.region.(Connector); ok {
			c.Connect(bus)
		}
	}
}
