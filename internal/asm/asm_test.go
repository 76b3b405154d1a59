package asm

import "testing"

func TestAssembleDataProcessingImmediate(t *testing.T) {
	words, err := Assemble("MOV R0, #5", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 1 || words[0] != 0xE3A00005 {
		t.Fatalf("got %#x, want 0xE3A00005", words)
	}
}

func TestAssembleDataProcessingRegister(t *testing.T) {
	words, err := Assemble("ADD R1, R0, R2", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := uint32(0xE0801002)
	if len(words) != 1 || words[0] != want {
		t.Fatalf("got %#x, want %#x", words[0], want)
	}
}

func TestAssembleConditionalAndFlags(t *testing.T) {
	words, err := Assemble("SUBSNE R0, R1, #1", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 1 {
		t.Fatalf("expected 1 word")
	}
	if words[0]>>28 != 0x1 {
		t.Fatalf("expected NE condition in top nibble, got %#x", words[0])
	}
	if words[0]&(1<<20) == 0 {
		t.Fatalf("expected S bit set")
	}
}

func TestAssembleLabelBranch(t *testing.T) {
	src := `
MOV R0, #0
loop:
ADD R0, R0, #1
CMP R0, #3
BNE loop
SWI #0
`
	words, err := Assemble(src, 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 5 {
		t.Fatalf("got %d words, want 5", len(words))
	}
	// BNE loop is the 4th instruction, at 0x8000+3*4=0x800C, targeting 0x8004.
	bne := words[3]
	if bne>>28 != 0x1 { // NE
		t.Fatalf("expected NE condition, got %#x", bne>>28)
	}
	offset := int32(bne&0x00FFFFFF) << 8 >> 8 // sign extend 24-bit
	target := int32(0x800C) + 8 + offset*4
	if target != 0x8004 {
		t.Fatalf("branch target resolved to %#x, want 0x8004", target)
	}
}

func TestAssembleSingleTransfer(t *testing.T) {
	words, err := Assemble("LDR R1, R2, #4", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 1 {
		t.Fatalf("expected 1 word")
	}
	if !wordIsLoad(words[0]) {
		t.Fatalf("expected load bit set: %#x", words[0])
	}
}

func wordIsLoad(w uint32) bool { return w&(1<<20) != 0 }

func TestAssembleSingleTransferBracketSyntax(t *testing.T) {
	words, err := Assemble("LDR R1, [R2, #4]", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 1 || !wordIsLoad(words[0]) {
		t.Fatalf("got %#x", words)
	}
}

func TestAssembleSWIAndBKPT(t *testing.T) {
	words, err := Assemble("SWI #0x2A\nBKPT #0", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0] != 0xEF00002A {
		t.Fatalf("got %#x, want 0xEF00002A", words[0])
	}
	if words[1] != 0xE1200070 {
		t.Fatalf("got %#x, want 0xE1200070", words[1])
	}
}

func TestAssembleMRC(t *testing.T) {
	words, err := Assemble("MRC p15, 0, R0, c0, c0, 0", 0x8000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(words) != 1 || words[0] != 0xEE100F10 {
		t.Fatalf("got %#x, want 0xEE100F10", words[0])
	}
}

func TestAssembleRejectsUnencodableImmediate(t *testing.T) {
	_, err := Assemble("MOV R0, #0x101", 0x8000)
	if err == nil {
		t.Fatalf("expected error for non-rotatable immediate")
	}
}

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	_, err := Assemble("FROB R0, R1", 0x8000)
	if err == nil {
		t.Fatalf("expected error for unknown mnemonic")
	}
}
