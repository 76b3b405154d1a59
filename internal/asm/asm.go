// Package asm implements a small two-pass assembler covering the
// instruction forms the test harness needs to seed test programs:
// data-processing, single word/byte transfer, branch/branch-with-link,
// software interrupt, breakpoint, and coprocessor register transfer. It is
// not a general-purpose ARM assembler (no macros, no full expression
// grammar); grounded in scope on original_source/AsmTools/Expr.cpp's
// tokenizer, reduced to what spec.md §6's test-program seeding needs.
package asm

import (
	"strconv"
	"strings"

	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

// Assemble assembles source (one instruction per line, ";" starting a
// comment, a line whose first non-blank character is "#" being a comment
// line, "label:" defining a label) into a sequence of 32-bit
// instruction words loaded starting at origin. It is a two-pass assembler:
// the first pass only resolves label addresses, the second emits words.
func Assemble(source string, origin uint32) ([]uint32, error) {
	lines := preprocess(source)

	labels := map[string]uint32{}
	addr := origin
	var bodies []string
	for _, line := range lines {
		for strings.HasSuffix(strings.TrimSpace(strings.SplitN(line, " ", 2)[0]), ":") {
			parts := strings.SplitN(line, ":", 2)
			name := strings.TrimSpace(parts[0])
			labels[name] = addr
			line = strings.TrimSpace(parts[1])
			if line == "" {
				break
			}
		}
		if line == "" {
			continue
		}
		bodies = append(bodies, line)
		addr += 4
	}

	words := make([]uint32, 0, len(bodies))
	addr = origin
	for _, line := range bodies {
		w, err := assembleLine(line, addr, labels)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
		addr += 4
	}
	return words, nil
}

func preprocess(source string) []string {
	var out []string
	for _, raw := range strings.Split(source, "\n") {
		line := raw
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" && line[0] != '#' {
			out = append(out, line)
		}
	}
	return out
}

var condCodes = map[string]uint32{
	"EQ": 0x0, "NE": 0x1, "CS": 0x2, "HS": 0x2, "CC": 0x3, "LO": 0x3,
	"MI": 0x4, "PL": 0x5, "VS": 0x6, "VC": 0x7, "HI": 0x8, "LS": 0x9,
	"GE": 0xA, "LT": 0xB, "GT": 0xC, "LE": 0xD, "AL": 0xE, "NV": 0xF,
}

// splitMnemonic separates a leading mnemonic into its base opcode,
// condition suffix, and "S" flags-set suffix, e.g. "ADDSNE" -> ("ADD",
// 0x1, true).
func splitMnemonic(tok string) (base string, cond uint32, setFlags bool) {
	cond = condCodes["AL"]
	rest := tok
	// A data-processing mnemonic on its own or with just "S" carries no
	// condition, even where its last letters spell one (TEQ, MOVS, BICS).
	_, isOp := dpOpcodes[rest]
	_, isOpS := dpOpcodes[strings.TrimSuffix(rest, "S")]
	if !isOp && !isOpS {
		for code, v := range condCodes {
			if strings.HasSuffix(rest, code) && len(rest) > len(code) {
				cond = v
				rest = rest[:len(rest)-len(code)]
				break
			}
		}
	}
	if strings.HasSuffix(rest, "S") && len(rest) > 1 {
		setFlags = true
		rest = rest[:len(rest)-1]
	}
	return rest, cond, setFlags
}

var dpOpcodes = map[string]uint32{
	"AND": 0x0, "EOR": 0x1, "SUB": 0x2, "RSB": 0x3,
	"ADD": 0x4, "ADC": 0x5, "SBC": 0x6, "RSC": 0x7,
	"TST": 0x8, "TEQ": 0x9, "CMP": 0xA, "CMN": 0xB,
	"ORR": 0xC, "MOV": 0xD, "BIC": 0xE, "MVN": 0xF,
}

func assembleLine(line string, addr uint32, labels map[string]uint32) (uint32, error) {
	fields := tokenize(line)
	if len(fields) == 0 {
		return 0, armerr.Errorf("asm", "empty instruction")
	}
	mnemonic := strings.ToUpper(fields[0])
	args := fields[1:]

	switch {
	case mnemonic == "B" || mnemonic == "BL" || strings.HasPrefix(mnemonic, "B") && len(mnemonic) <= 4 && isBranchForm(mnemonic):
		return assembleBranch(mnemonic, args, addr, labels)
	case mnemonic == "SWI" || strings.HasPrefix(mnemonic, "SWI"):
		return assembleSWI(mnemonic, args)
	case mnemonic == "BKPT":
		return assembleBKPT(args)
	case mnemonic == "MRC" || mnemonic == "MCR":
		return assembleCoprocRegTransfer(mnemonic, args)
	default:
		if base, cond, setFlags := splitMnemonic(mnemonic); dpOpcodes[base] != 0 || base == "AND" {
			return assembleDataProcessing(base, cond, setFlags, args)
		}
		if base, cond, _ := splitMnemonic(mnemonic); base == "LDR" || base == "STR" || base == "LDRB" || base == "STRB" {
			return assembleSingleTransfer(mnemonic, cond, args)
		}
		return 0, armerr.Errorf("asm", "unrecognised mnemonic %q", fields[0])
	}
}

// stripBrackets drops the free-standing "[" and "]" tokens the tokenizer
// produces around an addressing-mode operand, leaving the register and
// offset tokens in their original order.
func stripBrackets(args []string) []string {
	out := args[:0:0]
	for _, a := range args {
		if a == "[" || a == "]" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func isBranchForm(m string) bool {
	base, _, _ := splitMnemonic(m)
	return base == "B" || base == "BL"
}

func tokenize(line string) []string {
	line = strings.ReplaceAll(line, ",", " , ")
	line = strings.ReplaceAll(line, "[", " [ ")
	line = strings.ReplaceAll(line, "]", " ] ")
	raw := strings.Fields(line)
	var out []string
	for _, f := range raw {
		if f == "," {
			continue
		}
		out = append(out, f)
	}
	return out
}

func parseRegister(tok string) (uint32, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	tok = strings.TrimSuffix(tok, "]")
	tok = strings.TrimPrefix(tok, "[")
	if tok == "PC" {
		return 15, nil
	}
	if tok == "LR" {
		return 14, nil
	}
	if tok == "SP" {
		return 13, nil
	}
	if !strings.HasPrefix(tok, "R") {
		return 0, armerr.Errorf("asm", "expected register, got %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 15 {
		return 0, armerr.Errorf("asm", "bad register %q", tok)
	}
	return uint32(n), nil
}

func parseImmediate(tok string) (uint32, error) {
	tok = strings.TrimPrefix(strings.TrimSpace(tok), "#")
	tok = strings.TrimSuffix(tok, "]")
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	}
	var v uint64
	var err error
	switch {
	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		v, err = strconv.ParseUint(tok[2:], 16, 32)
	case strings.HasPrefix(tok, "&"):
		v, err = strconv.ParseUint(tok[1:], 16, 32)
	default:
		v, err = strconv.ParseUint(tok, 10, 32)
	}
	if err != nil {
		return 0, armerr.Errorf("asm", "bad immediate %q: %v", tok, err)
	}
	if neg {
		return uint32(-int64(v)), nil
	}
	return uint32(v), nil
}

// encodeImmediate8r4 folds a 32-bit value into the 8-bit-rotated-by-even
// immediate form, if possible.
func encodeImmediate8r4(v uint32) (imm8, rotate uint32, ok bool) {
	for r := uint32(0); r < 16; r++ {
		rotated := (v << (2 * r)) | (v >> (32 - 2*r))
		if rotated <= 0xFF {
			return rotated, r, true
		}
	}
	return 0, 0, false
}

func assembleDataProcessing(base string, cond uint32, setFlags bool, args []string) (uint32, error) {
	opcode, ok := dpOpcodes[base]
	if !ok {
		return 0, armerr.Errorf("asm", "unrecognised data-processing mnemonic %q", base)
	}

	var rd, rn uint32
	var rest []string
	switch base {
	case "MOV", "MVN":
		if len(args) < 2 {
			return 0, armerr.Errorf("asm", "%s needs a destination and operand2", base)
		}
		d, err := parseRegister(args[0])
		if err != nil {
			return 0, err
		}
		rd = d
		rest = args[1:]
	case "CMP", "CMN", "TST", "TEQ":
		if len(args) < 2 {
			return 0, armerr.Errorf("asm", "%s needs Rn and operand2", base)
		}
		n, err := parseRegister(args[0])
		if err != nil {
			return 0, err
		}
		rn = n
		rest = args[1:]
		setFlags = true // with S clear these encodings are PSR transfers
	default:
		if len(args) < 3 {
			return 0, armerr.Errorf("asm", "%s needs Rd, Rn and operand2", base)
		}
		d, err := parseRegister(args[0])
		if err != nil {
			return 0, err
		}
		n, err := parseRegister(args[1])
		if err != nil {
			return 0, err
		}
		rd, rn = d, n
		rest = args[2:]
	}

	word := (cond << 28) | (opcode << 21) | (rn << 16) | (rd << 12)
	if setFlags {
		word |= 1 << 20
	}

	if len(rest) == 0 {
		return 0, armerr.Errorf("asm", "missing operand2")
	}
	op2 := rest[0]
	if strings.HasPrefix(op2, "#") {
		v, err := parseImmediate(op2)
		if err != nil {
			return 0, err
		}
		imm8, rot, ok := encodeImmediate8r4(v)
		if !ok {
			return 0, armerr.Errorf("asm", "immediate %#x cannot be encoded as a rotated 8-bit value", v)
		}
		word |= 1 << 25
		word |= rot << 8
		word |= imm8
		return word, nil
	}

	rm, err := parseRegister(op2)
	if err != nil {
		return 0, err
	}
	word |= rm
	return word, nil
}

func assembleSingleTransfer(mnemonic string, cond uint32, args []string) (uint32, error) {
	base, _, _ := splitMnemonic(mnemonic)
	byteAccess := base == "LDRB" || base == "STRB"
	load := base == "LDR" || base == "LDRB"

	args = stripBrackets(args)
	if len(args) < 2 {
		return 0, armerr.Errorf("asm", "%s needs a register and address", mnemonic)
	}
	rd, err := parseRegister(args[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(args[1])
	if err != nil {
		return 0, err
	}

	word := (cond << 28) | (1 << 26) | (1 << 24) | (rn << 16) | (rd << 12)
	if !byteAccess {
		// bit 22 clear = word
	} else {
		word |= 1 << 22
	}
	if load {
		word |= 1 << 20
	}
	word |= 1 << 23 // up (add offset) by default

	offset := uint32(0)
	if len(args) >= 3 {
		off, err := parseImmediate(args[2])
		if err != nil {
			return 0, err
		}
		if int32(off) < 0 {
			word &^= 1 << 23
			off = uint32(-int32(off))
		}
		offset = off & 0xFFF
	}
	word |= offset
	return word, nil
}

func assembleBranch(mnemonic string, args []string, addr uint32, labels map[string]uint32) (uint32, error) {
	base, cond, _ := splitMnemonic(mnemonic)
	if len(args) != 1 {
		return 0, armerr.Errorf("asm", "%s needs exactly one target", mnemonic)
	}
	target, ok := labels[args[0]]
	if !ok {
		v, err := parseImmediate(args[0])
		if err != nil {
			return 0, armerr.Errorf("asm", "unresolved branch target %q", args[0])
		}
		target = v
	}
	offset := int32(target-addr-8) >> 2
	word := (cond << 28) | (0b101 << 25) | (uint32(offset) & 0x00FFFFFF)
	if base == "BL" {
		word |= 1 << 24
	}
	return word, nil
}

func assembleSWI(mnemonic string, args []string) (uint32, error) {
	_, cond, _ := splitMnemonic(mnemonic)
	var comment uint32
	if len(args) == 1 {
		v, err := parseImmediate(args[0])
		if err != nil {
			return 0, err
		}
		comment = v
	}
	return (cond << 28) | (0xF << 24) | (comment & 0x00FFFFFF), nil
}

func assembleBKPT(args []string) (uint32, error) {
	var comment uint32
	if len(args) == 1 {
		v, err := parseImmediate(args[0])
		if err != nil {
			return 0, err
		}
		comment = v
	}
	word := (0xE << 28) | (0b00010010 << 20) | ((comment & 0xFFF0) << 4) | (0b0111 << 4) | (comment & 0xF)
	return word, nil
}

func assembleCoprocRegTransfer(mnemonic string, args []string) (uint32, error) {
	// MRC/MCR p<n>, <op1>, Rd, cRn, cRm, <op2>
	if len(args) < 5 {
		return 0, armerr.Errorf("asm", "%s needs coprocessor, op1, Rd, CRn, CRm[, op2]", mnemonic)
	}
	cpNum, err := parseCoprocessorNumber(args[0])
	if err != nil {
		return 0, err
	}
	op1, err := parseImmediate(args[1])
	if err != nil {
		return 0, err
	}
	rd, err := parseRegister(args[2])
	if err != nil {
		return 0, err
	}
	crn, err := parseCRegister(args[3])
	if err != nil {
		return 0, err
	}
	crm, err := parseCRegister(args[4])
	if err != nil {
		return 0, err
	}
	var op2 uint32
	if len(args) >= 6 {
		op2, err = parseImmediate(args[5])
		if err != nil {
			return 0, err
		}
	}

	word := (uint32(condCodes["AL"]) << 28) | (0xE << 24) | ((op1 & 0x7) << 21) | (crn << 16) | (rd << 12) | (cpNum << 8) | ((op2 & 0x7) << 5) | (1 << 4) | crm
	if strings.ToUpper(mnemonic) == "MRC" {
		word |= 1 << 20
	}
	return word, nil
}

func parseCoprocessorNumber(tok string) (uint32, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	tok = strings.TrimPrefix(tok, "P")
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 || v > 15 {
		return 0, armerr.Errorf("asm", "bad coprocessor number %q", tok)
	}
	return uint32(v), nil
}

func parseCRegister(tok string) (uint32, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	tok = strings.TrimPrefix(tok, "C")
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 || v > 15 {
		return 0, armerr.Errorf("asm", "bad coprocessor register %q", tok)
	}
	return uint32(v), nil
}
