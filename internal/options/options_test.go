package options

import (
	"errors"
	"os"
	"testing"

	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

func TestValidateGoodConfig(t *testing.T) {
	o := Options{
		HardwareModel:    Archimedes,
		ProcessorVariant: ARM3,
		RAMSizeKB:        4096,
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBadRAMSize(t *testing.T) {
	o := Options{HardwareModel: Archimedes, ProcessorVariant: ARM3, RAMSizeKB: 3000}
	err := o.Validate()
	if err == nil || !errors.Is(err, armerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateTestBedRejectsLaterArchitectures(t *testing.T) {
	o := Options{HardwareModel: TestBed, ProcessorVariant: ARM810, RAMSizeKB: 32}
	if err := o.Validate(); err == nil {
		t.Fatalf("expected TestBed+ARM810 to be rejected")
	}
}

func TestValidateCustomROMRequiresPath(t *testing.T) {
	o := Options{HardwareModel: TestBed, ProcessorVariant: ARM2, SystemROM: SystemROMCustom}
	if err := o.Validate(); err == nil {
		t.Fatalf("expected missing ROM path to fail validation")
	}
}

func TestLoadROMImage(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rom-*.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if _, err := f.Write(want); err != nil {
		t.Fatal(err)
	}

	o := Options{SystemROM: SystemROMCustom, ROMImagePath: f.Name()}
	got, err := o.LoadROMImage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
