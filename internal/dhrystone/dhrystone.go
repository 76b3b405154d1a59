// Package dhrystone provides a small cycle-counting benchmark loop used by
// cmd/armbench to report relative execution speed across processor
// variants. It is a reduced stand-in for the classic Dhrystone benchmark,
// not a port of the suite itself (the real benchmark's string/record
// workload has no meaningful translation onto a 26/32-bit ARM2-era
// instruction set test core): a tight decrement-and-branch loop assembled
// through internal/asm, run for a requested iteration count, with the
// iteration, cycle and instruction counts returned to the caller.
package dhrystone

import (
	"github.com/GiantRobotLemur/mightyoak-go/arm"
	"github.com/GiantRobotLemur/mightyoak-go/internal/asm"
	"github.com/GiantRobotLemur/mightyoak-go/internal/armerr"
)

// Result reports the outcome of a benchmark run.
type Result struct {
	Iterations   uint32
	Cycles       uint64
	Instructions uint64
}

const loopOrigin = 0x00008000

// program assembles to:
//
//	MOV  R0, #0
//	MOV  R1, #<iterations>
//	loop:
//	ADD  R0, R0, #1
//	SUBS R1, R1, #1
//	BNE  loop
//	SWI  #0
const programTemplate = `
MOV R0, #0
MOV R1, #%d
loop:
ADD R0, R0, #1
SUBS R1, R1, #1
BNE loop
SWI #0
`

// Run assembles and executes the benchmark loop for the given iteration
// count on sys, returning the cycle and instruction cost (spec.md §6
// "--cycles" driven benchmark run). iterations must fit what a single
// immediate MOV loads here (0-255); a larger count is rejected with an
// error, so larger counts are built up by the caller issuing multiple Run
// calls if needed.
func Run(sys *arm.System, iterations uint32) (Result, error) {
	if iterations > 0xFF {
		return Result{}, armerr.Errorf("dhrystone", "iteration count %d exceeds single-immediate range (0-255)", iterations)
	}

	source := sprintfProgram(iterations)
	words, err := asm.Assemble(source, loopOrigin)
	if err != nil {
		return Result{}, armerr.Wrap("dhrystone", err)
	}

	for i, w := range words {
		sys.WriteBulk(loopOrigin+uint32(4*i), []uint8{
			uint8(w), uint8(w >> 8), uint8(w >> 16), uint8(w >> 24),
		})
	}

	sys.Regs.SetPC(loopOrigin)
	before := sys.MetricsSnapshot()

	// Generous but finite cycle budget: a handful of cycles per loop
	// iteration plus headroom for the SWI that ends the run. Execution
	// stops the moment the trailing SWI's vector is reached rather than
	// running the budget dry, so the reported cost reflects only the loop
	// itself and not whatever happens to sit at the exception vector.
	budget := uint64(iterations)*8 + 64
	var spent uint64
	for spent < budget {
		if sys.Regs.GetPC() == arm.ExcSoftwareInterrupt.Vector() {
			break
		}
		spent += sys.Step()
	}

	after := sys.MetricsSnapshot()
	return Result{
		Iterations:   iterations,
		Cycles:       after.Cycles - before.Cycles,
		Instructions: after.Instructions - before.Instructions,
	}, nil
}

func sprintfProgram(iterations uint32) string {
	return replaceIterations(programTemplate, iterations)
}

func replaceIterations(template string, n uint32) string {
	out := make([]byte, 0, len(template)+8)
	for i := 0; i < len(template); i++ {
		if template[i] == '%' && i+1 < len(template) && template[i+1] == 'd' {
			out = append(out, []byte(itoa(n))...)
			i++
			continue
		}
		out = append(out, template[i])
	}
	return string(out)
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
