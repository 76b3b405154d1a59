// Package constraints implements the small state-assertion language the
// test harness uses to set up and verify emulated processor state without
// assembling a full test program for every register or memory cell
// checked. Grounded on original_source/ArmEmu/TestConstraints.hpp's
// Constraint/ConstraintInterpretor/parseConstraints split: a constraint
// expression parses into a flat list of (location, value) pairs, and a
// separate interpreter applies or verifies each one against a live system.
package constraints

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GiantRobotLemur/mightyoak-go/arm"
	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

// Element identifies what kind of processor or memory location a
// Constraint addresses.
type Element int

const (
	ElemCoreRegister Element = iota
	ElemCoprocRegister
	ElemFPARegister
	ElemSystemRegister
	ElemMemoryByte
	ElemMemoryHalf
	ElemMemoryWord
	ElemAddressMapProbe
)

// SystemRegister identifies one of the non-general-purpose registers the
// language can name directly (spec.md §6 test harness surface).
type SystemRegister int

const (
	RegPC SystemRegister = iota
	RegCPSR
	RegSPSR
	RegMode
	RegIrqStatus
	RegIrqMask
	RegStatus // N/Z/C/V flags shorthand, e.g. "Status=NzCv"
)

// Constraint is one parsed (location, value) assertion.
type Constraint struct {
	Location Element

	CoreIndex     uint8 // ElemCoreRegister / ElemFPARegister register number
	CoprocNum     uint8 // ElemCoprocRegister coprocessor number
	CoprocCRn     uint8 // ElemCoprocRegister CRn
	SystemReg     SystemRegister
	Address       uint32 // memory-location constraints
	Value         uint32
	ModeName      string // set only for RegMode constraints
	Source        string // original text, for diagnostics
}

func (c Constraint) String() string { return c.Source }

var coreAliases = map[string]uint8{
	"A1": 0, "A2": 1, "A3": 2, "A4": 3,
	"V1": 4, "V2": 5, "V3": 6, "V4": 7, "V5": 8, "V6": 9,
}

func coreAliasExists(key string) bool {
	_, ok := coreAliases[key]
	return ok
}

var systemRegisterNames = map[string]SystemRegister{
	"PC":        RegPC,
	"CPSR":      RegCPSR,
	"SPSR":      RegSPSR,
	"MODE":      RegMode,
	"IRQSTATUS": RegIrqStatus,
	"IRQMASK":   RegIrqMask,
	"STATUS":    RegStatus,
}

// Parse splits text into comma-or-whitespace-separated "name=value"
// assignments and resolves each into a Constraint.
func Parse(text string) ([]Constraint, error) {
	fields := splitTopLevel(text)
	out := make([]Constraint, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		c, err := parseOne(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// splitTopLevel splits on commas and whitespace, but not inside [...],
// which protects memory-address expressions like "PWORD[R13+4]=..." (not
// currently supported as an expression, but the bracket is still kept
// intact for the address literal inside it).
func splitTopLevel(text string) []string {
	var fields []string
	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',', ' ', '\t', '\n':
			if depth == 0 {
				if i > start {
					fields = append(fields, text[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(text) {
		fields = append(fields, text[start:])
	}
	return fields
}

func parseOne(assignment string) (Constraint, error) {
	eq := strings.IndexByte(assignment, '=')
	if eq < 0 {
		return Constraint{}, armerr.Errorf("constraints", "%q is missing '='", assignment)
	}
	key := strings.TrimSpace(assignment[:eq])
	valText := strings.TrimSpace(assignment[eq+1:])
	upperKey := strings.ToUpper(key)

	c := Constraint{Source: assignment}

	switch {
	case upperKey == "PC" || upperKey == "CPSR" || upperKey == "SPSR" ||
		upperKey == "MODE" || upperKey == "IRQSTATUS" || upperKey == "IRQMASK" || upperKey == "STATUS":
		c.Location = ElemSystemRegister
		c.SystemReg = systemRegisterNames[upperKey]
		if c.SystemReg == RegMode {
			c.ModeName = valText
			c.Value = 1 // Verify reads 1 while the named mode is current
			return c, nil
		}
		if c.SystemReg == RegStatus {
			v, err := parseFlagShorthand(valText)
			if err != nil {
				return Constraint{}, err
			}
			c.Value = v
			return c, nil
		}

	case len(upperKey) >= 2 && upperKey[0] == 'R' && isDigits(upperKey[1:]):
		n, err := strconv.Atoi(upperKey[1:])
		if err != nil || n < 0 || n > 15 {
			return Constraint{}, armerr.Errorf("constraints", "bad core register %q", key)
		}
		c.Location = ElemCoreRegister
		c.CoreIndex = uint8(n)

	case coreAliasExists(upperKey):
		c.Location = ElemCoreRegister
		c.CoreIndex = coreAliases[upperKey]

	case len(upperKey) >= 2 && upperKey[0] == 'F' && isDigits(upperKey[1:]):
		n, err := strconv.Atoi(upperKey[1:])
		if err != nil || n < 0 || n > 7 {
			return Constraint{}, armerr.Errorf("constraints", "bad FPA register %q", key)
		}
		c.Location = ElemFPARegister
		c.CoreIndex = uint8(n)

	case strings.HasPrefix(upperKey, "CP") && strings.Contains(upperKey, "CR"):
		crIdx := strings.Index(upperKey, "CR")
		cpNum, err := strconv.Atoi(upperKey[2:crIdx])
		if err != nil {
			return Constraint{}, armerr.Errorf("constraints", "bad coprocessor number in %q", key)
		}
		crNum, err := strconv.Atoi(upperKey[crIdx+2:])
		if err != nil {
			return Constraint{}, armerr.Errorf("constraints", "bad coprocessor register in %q", key)
		}
		c.Location = ElemCoprocRegister
		c.CoprocNum = uint8(cpNum)
		c.CoprocCRn = uint8(crNum)

	case isMemoryKey(upperKey):
		elem, addr, err := parseMemoryKey(upperKey)
		if err != nil {
			return Constraint{}, err
		}
		c.Location = elem
		c.Address = addr

	default:
		return Constraint{}, armerr.Errorf("constraints", "unrecognised location %q", key)
	}

	v, err := parseNumericLiteral(valText)
	if err != nil {
		return Constraint{}, err
	}
	c.Value = v
	return c, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isMemoryKey(upperKey string) bool {
	for _, prefix := range []string{"PBYTE", "PHWORD", "PWORD", "LBYTE", "LHWORD", "LWORD", "MAP"} {
		if strings.HasPrefix(upperKey, prefix) {
			return true
		}
	}
	return false
}

func parseMemoryKey(upperKey string) (Element, uint32, error) {
	open := strings.IndexByte(upperKey, '[')
	shut := strings.IndexByte(upperKey, ']')
	if open < 0 || shut < 0 || shut < open {
		return 0, 0, armerr.Errorf("constraints", "malformed memory location %q", upperKey)
	}
	prefix := upperKey[:open]
	inner := upperKey[open+1 : shut]

	addr, err := parseNumericLiteral(inner)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case prefix == "MAP":
		return ElemAddressMapProbe, addr, nil
	case strings.HasSuffix(prefix, "BYTE"):
		return ElemMemoryByte, addr, nil
	case strings.HasSuffix(prefix, "HWORD"):
		return ElemMemoryHalf, addr, nil
	default:
		return ElemMemoryWord, addr, nil
	}
}

// parseFlagShorthand parses a 4-character N/Z/C/V string, e.g. "NzCv" sets
// N and C, clears Z and V. Order is fixed; case carries the meaning.
func parseFlagShorthand(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, armerr.Errorf("constraints", "flag shorthand %q must be exactly 4 letters (NZCV)", s)
	}
	var v uint32
	bits := []uint32{1 << 31, 1 << 30, 1 << 29, 1 << 28}
	expected := "NZCV"
	for i, r := range s {
		if strings.ToUpper(string(r)) != string(expected[i]) {
			return 0, armerr.Errorf("constraints", "flag shorthand %q: position %d must be %c/%c", s, i, expected[i], expected[i]+32)
		}
		if r == rune(expected[i]) {
			v |= bits[i]
		}
	}
	return v, nil
}

// parseNumericLiteral parses decimal, 0x/&-prefixed hex, and 0b-prefixed
// binary integers (spec.md §6 test-language numeric literal forms).
func parseNumericLiteral(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), wrapNumErr(s, err)
	case strings.HasPrefix(s, "&"):
		v, err := strconv.ParseUint(s[1:], 16, 32)
		return uint32(v), wrapNumErr(s, err)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		v, err := strconv.ParseUint(s[2:], 2, 32)
		return uint32(v), wrapNumErr(s, err)
	default:
		v, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return uint32(v), nil
		}
		uv, uerr := strconv.ParseUint(s, 10, 32)
		return uint32(uv), wrapNumErr(s, uerr)
	}
}

func wrapNumErr(s string, err error) error {
	if err == nil {
		return nil
	}
	return armerr.Errorf("constraints", "bad numeric literal %q: %v", s, err)
}

var modeNames = map[string]arm.Mode{
	"USER26": arm.User26, "FIQ26": arm.FastIrq26, "IRQ26": arm.Irq26, "SVC26": arm.Supervisor26,
	"USER32": arm.User32, "FIQ32": arm.FastIrq32, "IRQ32": arm.Irq32, "SVC32": arm.Supervisor32,
	"ABORT32": arm.Abort32, "UNDEFINED32": arm.Undefined32,
}

// Apply applies every parsed constraint to sys, setting the named location
// to its value (spec.md §6 "set up emulated processor state").
func Apply(sys *arm.System, constraints []Constraint) error {
	for _, c := range constraints {
		if err := applyOne(sys, c); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(sys *arm.System, c Constraint) error {
	switch c.Location {
	case ElemCoreRegister:
		sys.Regs.Set(int(c.CoreIndex), c.Value)
	case ElemFPARegister:
		if cp, ok := sys.Coproc.Get(1); ok {
			if fpa, ok := cp.(*arm.FPACoprocessor); ok {
				fpa.F[c.CoreIndex&0x7] = float64(int32(c.Value))
			}
		}
	case ElemCoprocRegister:
		cp, ok := sys.Coproc.Get(c.CoprocNum)
		if !ok {
			return armerr.Errorf("constraints", "no coprocessor %d attached", c.CoprocNum)
		}
		cp15, ok := cp.(*arm.SystemControlCoprocessor)
		if !ok {
			return armerr.Errorf("constraints", "coprocessor %d does not support direct register constraints", c.CoprocNum)
		}
		switch c.CoprocCRn {
		case 0:
			cp15.ProcessorID = c.Value
		case 1:
			cp15.Control = c.Value
		default:
			return armerr.Errorf("constraints", "CP%d has no CR%d", c.CoprocNum, c.CoprocCRn)
		}
	case ElemSystemRegister:
		switch c.SystemReg {
		case RegPC:
			sys.Regs.SetPC(c.Value)
		case RegCPSR:
			sys.Regs.SetPSR(c.Value)
		case RegSPSR:
			sys.Regs.SetSPSR(c.Value)
		case RegMode:
			mode, ok := modeNames[strings.ToUpper(c.ModeName)]
			if !ok {
				return armerr.Errorf("constraints", "unrecognised mode %q", c.ModeName)
			}
			current := sys.Regs.GetPSR()
			sys.Regs.SetPSR((current &^ 0x1F) | modeControlBits(mode))
		case RegStatus:
			sys.Regs.UpdatePSR(c.Value, 0xF0000000)
		case RegIrqStatus:
			if c.Value&0x1 != 0 {
				sys.RaiseIRQ()
			} else {
				sys.ClearIRQ()
			}
			if c.Value&0x2 != 0 {
				sys.RaiseFIQ()
			} else {
				sys.ClearFIQ()
			}
		case RegIrqMask:
			var mask uint32
			if c.Value&0x1 != 0 {
				mask |= 1 << 7 // CPSR I bit
			}
			if c.Value&0x2 != 0 {
				mask |= 1 << 6 // CPSR F bit
			}
			sys.Regs.UpdatePSR(mask, (1<<7)|(1<<6))
		}
	case ElemMemoryByte:
		sys.WriteBulk(c.Address, []uint8{uint8(c.Value)})
	case ElemMemoryHalf:
		sys.WriteBulk(c.Address, []uint8{uint8(c.Value), uint8(c.Value >> 8)})
	case ElemMemoryWord:
		sys.WriteBulk(c.Address, []uint8{uint8(c.Value), uint8(c.Value >> 8), uint8(c.Value >> 16), uint8(c.Value >> 24)})
	case ElemAddressMapProbe:
		return armerr.Errorf("constraints", "Map[%#x] is a read-only address-map probe, not an initial-state constraint", c.Address)
	}
	return nil
}

// modeControlBits round-trips a Mode through a fresh status word's Pack to
// obtain its control-field encoding without exposing RegisterFile
// internals to this package.
func modeControlBits(m arm.Mode) uint32 {
	s := arm.StatusWord{Mode: m}
	return s.Pack() & 0xFF
}

// Verify checks every parsed constraint against sys, returning an error
// naming the first mismatch (spec.md §6 "verify expected processor/memory
// state").
func Verify(sys *arm.System, constraints []Constraint) error {
	for _, c := range constraints {
		actual, err := readOne(sys, c)
		if err != nil {
			return err
		}
		if actual != c.Value {
			return fmt.Errorf("constraint %q failed: got %#x, want %#x", c.Source, actual, c.Value)
		}
	}
	return nil
}

func readOne(sys *arm.System, c Constraint) (uint32, error) {
	switch c.Location {
	case ElemCoreRegister:
		return sys.Regs.Get(int(c.CoreIndex)), nil
	case ElemFPARegister:
		if cp, ok := sys.Coproc.Get(1); ok {
			if fpa, ok := cp.(*arm.FPACoprocessor); ok {
				return uint32(int32(fpa.F[c.CoreIndex&0x7])), nil
			}
		}
		return 0, armerr.Errorf("constraints", "no FPA coprocessor attached")
	case ElemCoprocRegister:
		cp, ok := sys.Coproc.Get(c.CoprocNum)
		if !ok {
			return 0, armerr.Errorf("constraints", "no coprocessor %d attached", c.CoprocNum)
		}
		cp15, ok := cp.(*arm.SystemControlCoprocessor)
		if !ok {
			return 0, armerr.Errorf("constraints", "coprocessor %d does not support direct register constraints", c.CoprocNum)
		}
		switch c.CoprocCRn {
		case 0:
			return cp15.ProcessorID, nil
		case 1:
			return cp15.Control, nil
		default:
			return 0, armerr.Errorf("constraints", "CP%d has no CR%d", c.CoprocNum, c.CoprocCRn)
		}
	case ElemSystemRegister:
		switch c.SystemReg {
		case RegPC:
			return sys.Regs.GetPC(), nil
		case RegCPSR:
			return sys.Regs.GetPSR(), nil
		case RegSPSR:
			return sys.Regs.GetSPSR(), nil
		case RegStatus:
			return sys.Regs.GetPSR() & 0xF0000000, nil
		case RegMode:
			mode, ok := modeNames[strings.ToUpper(c.ModeName)]
			if !ok {
				return 0, armerr.Errorf("constraints", "unrecognised mode %q", c.ModeName)
			}
			if sys.Regs.Mode() == mode {
				return 1, nil
			}
			return 0, nil
		case RegIrqStatus:
			var v uint32
			if sys.IRQLine() {
				v |= 0x1
			}
			if sys.FIQLine() {
				v |= 0x2
			}
			return v, nil
		case RegIrqMask:
			psr := sys.Regs.GetPSR()
			var v uint32
			if psr&(1<<7) != 0 {
				v |= 0x1
			}
			if psr&(1<<6) != 0 {
				v |= 0x2
			}
			return v, nil
		}
		return 0, armerr.Errorf("constraints", "unsupported system register read")
	case ElemMemoryByte:
		b := sys.ReadBulk(c.Address, 1)
		return uint32(b[0]), nil
	case ElemMemoryHalf:
		b := sys.ReadBulk(c.Address, 2)
		return uint32(b[0]) | uint32(b[1])<<8, nil
	case ElemMemoryWord:
		b := sys.ReadBulk(c.Address, 4)
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
	case ElemAddressMapProbe:
		if _, _, _, ok := sys.ReadMap.TryFind(c.Address); ok {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, armerr.Errorf("constraints", "unsupported constraint location")
	}
}

// ApplyText parses and applies a constraint expression in one call,
// mirroring original_source's applyConstraints<TTarget,TInterpretor>.
func ApplyText(sys *arm.System, text string) error {
	c, err := Parse(text)
	if err != nil {
		return err
	}
	return Apply(sys, c)
}

// VerifyText parses and verifies a constraint expression in one call.
func VerifyText(sys *arm.System, text string) error {
	c, err := Parse(text)
	if err != nil {
		return err
	}
	return Verify(sys, c)
}
