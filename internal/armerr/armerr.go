// Package armerr wraps host-level (non-architectural) failures with a
// subsystem tag, mirroring the core's own curated-error convention. Errors
// from this package describe problems with the emulator itself or its
// surrounding tooling; architectural events (undefined instruction, SWI,
// aborts, IRQ/FIRQ) are never represented as errors — they are handled
// entirely inside the exception engine.
package armerr

import (
	"errors"
	"fmt"
)

// Sentinel errors tested with errors.Is by callers.
var (
	ErrIllegalMemoryAccess = errors.New("illegal memory access")
	ErrCycleBudgetExceeded = errors.New("cycle budget exceeded")
	ErrConfiguration       = errors.New("configuration error")
	ErrOverlappingRegion   = errors.New("overlapping memory region")
)

// Errorf formats an error tagged with the originating subsystem, e.g.
// Errorf("ARM7", "cannot find program memory at %#08x", addr).
func Errorf(tag, format string, args ...any) error {
	return fmt.Errorf("%s: %w", tag, fmt.Errorf(format, args...))
}

// Wrap tags an existing error (typically one of the sentinels above) with a
// subsystem prefix while preserving errors.Is/As compatibility.
func Wrap(tag string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", tag, err)
}
