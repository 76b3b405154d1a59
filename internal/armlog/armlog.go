// Package armlog provides the single, process-wide logging sink used by the
// emulator core. It mirrors the way the core logs non-fatal anomalies: a tag
// identifying the subsystem followed by a formatted message, never a
// structured field set, and never a per-component logger instance.
package armlog

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// SetOutput redirects all future log output. Intended for tests that want to
// capture or silence the log stream.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", log.LstdFlags)
}

// Logf records a message against a subsystem tag, e.g. Logf("ARM7", "PC out
// of range (%#08x)", pc).
func Logf(tag, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("%s: "+format, append([]any{tag}, args...)...)
}
