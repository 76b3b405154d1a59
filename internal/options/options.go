// Package options defines the configuration record the core is constructed
// from (spec.md §6), grounded on Include/ArmEmu/EmuOptions.hpp
// (original_source) and the teacher's preferences.ARMPreferences settings
// bag threaded through arm.NewARM.
package options

import (
	"os"

	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

// HardwareModel selects the memory map skeleton (spec.md §6).
type HardwareModel string

const (
	TestBed    HardwareModel = "TestBed"
	Archimedes HardwareModel = "Archimedes"
	ASeries    HardwareModel = "A-Series"
	RiscPC     HardwareModel = "RiscPC"
)

// ProcessorVariant selects the decoder feature set and coprocessor
// complement (spec.md §6).
type ProcessorVariant string

const (
	ARM2          ProcessorVariant = "ARM2"
	ARM250        ProcessorVariant = "ARM250"
	ARM3          ProcessorVariant = "ARM3"
	ARM3FPA       ProcessorVariant = "ARM3-FPA"
	ARM610        ProcessorVariant = "ARM610"
	ARM710        ProcessorVariant = "ARM710"
	ARM710FPA     ProcessorVariant = "ARM710-FPA"
	ARM810        ProcessorVariant = "ARM810"
	ARM810FPA     ProcessorVariant = "ARM810-FPA"
	StrongARM     ProcessorVariant = "StrongARM"
	StrongARMFPA  ProcessorVariant = "StrongARM-FPA"
)

// HasFPA reports whether the variant includes the Floating Point
// Accelerator coprocessor.
func (v ProcessorVariant) HasFPA() bool {
	switch v {
	case ARM3FPA, ARM710FPA, ARM810FPA, StrongARMFPA:
		return true
	default:
		return false
	}
}

// Architecture is the architecture generation a processor variant
// implements (see ProcessorVariant.Architecture), which in turn gates the
// decoder/coprocessor feature set (spec.md §4.9, §4.5).
type Architecture int

const (
	ARMv2 Architecture = iota
	ARMv2a
	ARMv3
	ARMv4
)

func (v ProcessorVariant) Architecture() Architecture {
	switch v {
	case ARM2:
		return ARMv2
	case ARM250, ARM3, ARM3FPA:
		return ARMv2a
	case ARM610, ARM710, ARM710FPA:
		return ARMv3
	case ARM810, ARM810FPA, StrongARM, StrongARMFPA:
		return ARMv4
	default:
		return ARMv2
	}
}

// SystemROMPreset identifies a built-in ROM image, or Custom to use
// ROMImagePath.
type SystemROMPreset string

const (
	ROMPresetNone   SystemROMPreset = ""
	SystemROMCustom SystemROMPreset = "Custom"
)

// allowedRAMSizesKB enumerates the MEMC-style RAM sizes valid for the
// Archimedes/A-Series/RiscPC hardware models (spec.md §6).
var allowedRAMSizesKB = map[int]bool{
	512: true, 1024: true, 2048: true, 4096: true,
	8192: true, 16384: true,
}

// Options is the full configuration record accepted by the system builder.
type Options struct {
	HardwareModel     HardwareModel
	ProcessorVariant  ProcessorVariant
	ProcessorSpeedMHz float64

	RAMSizeKB      int
	VideoRAMSizeKB int

	Display           string
	HardDiskInterface string
	FloppyCount       int
	Joystick          string

	SystemROM     SystemROMPreset
	ROMImagePath  string
}

// Validate checks the option record for internal consistency, per spec.md
// §7's "Configuration error" category: unknown model or variant,
// incompatible processor/model pairing, unsupported RAM size, missing
// Custom ROM image file. It does not check for ambiguous arguments.
func (o Options) Validate() error {
	switch o.HardwareModel {
	case TestBed, Archimedes, ASeries, RiscPC:
	default:
		return armerr.Errorf("options", "%w: unknown hardware model %q", armerr.ErrConfiguration, o.HardwareModel)
	}

	switch o.ProcessorVariant {
	case ARM2, ARM250, ARM3, ARM3FPA, ARM610, ARM710, ARM710FPA, ARM810, ARM810FPA, StrongARM, StrongARMFPA:
	default:
		return armerr.Errorf("options", "%w: unknown processor variant %q", armerr.ErrConfiguration, o.ProcessorVariant)
	}

	if o.HardwareModel == TestBed && o.ProcessorVariant.Architecture() >= ARMv3 {
		return armerr.Errorf("options", "%w: TestBed hardware model does not support %q", armerr.ErrConfiguration, o.ProcessorVariant)
	}

	if o.HardwareModel != TestBed {
		if !allowedRAMSizesKB[o.RAMSizeKB] {
			return armerr.Errorf("options", "%w: unsupported RAM size %dKB", armerr.ErrConfiguration, o.RAMSizeKB)
		}
	}

	if o.SystemROM == SystemROMCustom {
		if o.ROMImagePath == "" {
			return armerr.Errorf("options", "%w: Custom system ROM requires an image path", armerr.ErrConfiguration)
		}
		if _, err := os.Stat(o.ROMImagePath); err != nil {
			return armerr.Errorf("options", "%w: cannot read ROM image %q: %v", armerr.ErrConfiguration, o.ROMImagePath, err)
		}
	}

	return nil
}

// LoadROMImage reads the ROM image bytes from ROMImagePath. No preset ROM
// contents are built into the core; callers configuring a preset must still
// supply ROMImagePath, matching spec.md's
// framing of preset ROMs as "hardware_model" skeleton concerns external to
// the core's testable surface.
func (o Options) LoadROMImage() ([]byte, error) {
	if o.ROMImagePath == "" {
		return nil, armerr.Errorf("options", "%w: no system ROM image configured", armerr.ErrConfiguration)
	}
	data, err := os.ReadFile(o.ROMImagePath)
	if err != nil {
		return nil, armerr.Errorf("options", "%w: %v", armerr.ErrConfiguration, err)
	}
	return data, nil
}
