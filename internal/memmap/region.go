// Package memmap implements the sparse, disjoint address-space abstraction
// (C1 address map, C2 memory regions) that unifies RAM, ROM and MMIO devices
// behind a uniform typed read/write/exchange interface. It is grounded on
// the teacher's mem.MapAddress(addr, isWrite) contract
// (hardware/memory/cartridge/arm/memory_access.go) generalised from a single
// raw-byte-slice lookup to a full region/device abstraction per spec.md §4.1
// and §4.2.
package memmap

import "github.com/GiantRobotLemur/mightyoak-go/internal/armerr"

// Region is anything that can be mapped into the address space. Offsets
// passed to Region methods are always relative to the region's own base,
// regardless of where the region is mapped (spec.md §4.2).
type Region interface {
	// Size is the number of bytes the region occupies.
	Size() uint32

	// ReadByte/WriteByte operate on a single byte at the given offset.
	ReadByte(offset uint32) (uint8, bool)
	WriteByte(offset uint32, v uint8) bool

	// Name identifies the region for diagnostics.
	Name() string
}

// Exchanger is implemented by regions that can perform an atomic read-modify
// read used by the SWP/SWPB instructions (C7). Regions that don't implement
// it fall back to a plain read followed by a write.
type Exchanger interface {
	Exchange(offset uint32, writeValue uint8) (uint8, bool)
}

// Connector is implemented by MMIO devices that need a hook into the system
// at bind time (spec.md §4.2's connect(system_context) call).
type Connector interface {
	Connect(bus InterruptBus)
}

// InterruptBus is the capability handed to devices at connect time so they
// can raise or clear interrupt lines without holding a back-pointer into the
// owning system (spec.md §9, "Avoid back-pointers from devices into the
// system").
type InterruptBus interface {
	RaiseIRQ()
	ClearIRQ()
	RaiseFIQ()
	ClearFIQ()
}

// HostBlock is a fixed-size contiguous byte buffer owned by the region, the
// workhorse for RAM and ROM images. Reads within bounds always succeed;
// writes within bounds succeed unless the block is read-only. Bulk returns a pointer to the backing slice for
// DMA-style transfers from the tooling layer (loading ROM images, seeding
// RAM with test programs).
type HostBlock struct {
	name     string
	bytes    []uint8
	readOnly bool
}

// NewHostBlock allocates a zeroed block of the given size.
func NewHostBlock(name string, size uint32, readOnly bool) *HostBlock {
	return &HostBlock{name: name, bytes: make([]uint8, size), readOnly: readOnly}
}

// NewHostBlockFromImage wraps an existing byte slice (e.g. a loaded ROM
// image) as a host block without copying it.
func NewHostBlockFromImage(name string, image []uint8, readOnly bool) *HostBlock {
	return &HostBlock{name: name, bytes: image, readOnly: readOnly}
}

func (b *HostBlock) Size() uint32  { return uint32(len(b.bytes)) }
func (b *HostBlock) Name() string  { return b.name }
func (b *HostBlock) Bulk() []uint8 { return b.bytes }

func (b *HostBlock) ReadByte(offset uint32) (uint8, bool) {
	if offset >= uint32(len(b.bytes)) {
		return 0, false
	}
	return b.bytes[offset], true
}

func (b *HostBlock) WriteByte(offset uint32, v uint8) bool {
	if b.readOnly || offset >= uint32(len(b.bytes)) {
		return false
	}
	b.bytes[offset] = v
	return true
}

func (b *HostBlock) Exchange(offset uint32, writeValue uint8) (uint8, bool) {
	if offset >= uint32(len(b.bytes)) {
		return 0, false
	}
	old := b.bytes[offset]
	if !b.readOnly {
		b.bytes[offset] = writeValue
	}
	return old, true
}

// MMIODevice exposes read/write/exchange callbacks plus an optional connect
// hook, per spec.md §4.2.
type MMIODevice struct {
	name      string
	size      uint32
	Read      func(offset uint32) uint8
	Write     func(offset uint32, v uint8)
	Exchanger func(offset uint32, writeValue uint8) uint8
	OnConnect func(bus InterruptBus)
}

func NewMMIODevice(name string, size uint32) *MMIODevice {
	return &MMIODevice{name: name, size: size}
}

func (d *MMIODevice) Size() uint32 { return d.size }
func (d *MMIODevice) Name() string { return d.name }

func (d *MMIODevice) ReadByte(offset uint32) (uint8, bool) {
	if offset >= d.size || d.Read == nil {
		return 0, false
	}
	return d.Read(offset), true
}

func (d *MMIODevice) WriteByte(offset uint32, v uint8) bool {
	if offset >= d.size || d.Write == nil {
		return false
	}
	d.Write(offset, v)
	return true
}

func (d *MMIODevice) Exchange(offset uint32, writeValue uint8) (uint8, bool) {
	if offset >= d.size {
		return 0, false
	}
	if d.Exchanger != nil {
		return d.Exchanger(offset, writeValue), true
	}
	v, ok := d.ReadByte(offset)
	if !ok {
		return 0, false
	}
	d.WriteByte(offset, writeValue)
	return v, true
}

func (d *MMIODevice) Connect(bus InterruptBus) {
	if d.OnConnect != nil {
		d.OnConnect(bus)
	}
}

var _ Region = (*HostBlock)(nil)
var _ Region = (*MMIODevice)(nil)
var _ Exchanger = (*HostBlock)(nil)
var _ Exchanger = (*MMIODevice)(nil)
var _ Connector = (*MMIODevice)(nil)

// ErrOverlap is returned (wrapped) when TryInsert is asked to register a
// range that overlaps an existing entry.
var ErrOverlap = armerr.ErrOverlappingRegion
