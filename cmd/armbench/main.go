// Command armbench is a small benchmark driver for the emulator core,
// grounded on the cobra command-tree shape used across the example pack
// (e.g. oisee-z80-optimizer/cmd/z80opt): a root command, one positional
// configuration-name argument, and a handful of flags controlling the run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiantRobotLemur/mightyoak-go/internal/dhrystone"
	"github.com/GiantRobotLemur/mightyoak-go/internal/options"

	"github.com/GiantRobotLemur/mightyoak-go/arm"
)

// configs enumerates the named hardware/processor pairings armbench can
// run, matching spec.md §6/§7's benchmark configuration list.
var configs = map[string]options.Options{
	"ARMv2-Test": {
		HardwareModel:    options.TestBed,
		ProcessorVariant: options.ARM2,
	},
	"ARMv2a-Test": {
		HardwareModel:    options.TestBed,
		ProcessorVariant: options.ARM250,
	},
	"ARMv2a-FPA-Test": {
		HardwareModel:    options.TestBed,
		ProcessorVariant: options.ARM3FPA,
	},
	"ARMv3-Test": {
		HardwareModel:    options.Archimedes,
		ProcessorVariant: options.ARM710,
		RAMSizeKB:        4096,
	},
	"ARMv3-FPA-Test": {
		HardwareModel:    options.Archimedes,
		ProcessorVariant: options.ARM710FPA,
		RAMSizeKB:        4096,
	},
	"ARMv4-Test": {
		HardwareModel:    options.ASeries,
		ProcessorVariant: options.ARM810,
		RAMSizeKB:        4096,
	},
	"ARMv4-FPA-Test": {
		HardwareModel:    options.ASeries,
		ProcessorVariant: options.ARM810FPA,
		RAMSizeKB:        4096,
	},
}

func configNames() []string {
	names := make([]string, 0, len(configs))
	for k := range configs {
		names = append(names, k)
	}
	return names
}

func main() {
	var cycles int

	rootCmd := &cobra.Command{
		Use:   "armbench <config-name>",
		Short: "Run a benchmark loop against an emulated ARMv2-ARMv4 system",
		Long: "armbench builds an emulated system from a named hardware/processor\n" +
			"configuration and runs a small benchmark loop against it for a given\n" +
			"cycle budget, reporting instruction throughput.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(args[0], cycles)
		},
	}
	rootCmd.Flags().IntVarP(&cycles, "cycles", "c", 1000, "number of simulated cycles to request for the benchmark loop")

	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + "\nAvailable configurations:\n  " +
		fmt.Sprintf("%v", configNames()) + "\n")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "armbench:", err)
		os.Exit(1)
	}
}

func runBenchmark(configName string, cycles int) error {
	opts, ok := configs[configName]
	if !ok {
		return fmt.Errorf("unknown configuration %q (available: %v)", configName, configNames())
	}

	sys, err := arm.NewSystem(opts)
	if err != nil {
		return fmt.Errorf("building system: %w", err)
	}

	iterations := uint32(cycles / 8)
	if iterations == 0 {
		iterations = 1
	}
	if iterations > 0xFF {
		iterations = 0xFF
	}

	result, err := dhrystone.Run(sys, iterations)
	if err != nil {
		return fmt.Errorf("running benchmark: %w", err)
	}

	fmt.Printf("configuration:  %s\n", configName)
	fmt.Printf("processor:      %s (%s)\n", opts.ProcessorVariant, opts.ProcessorVariant.Architecture())
	fmt.Printf("iterations:     %d\n", result.Iterations)
	fmt.Printf("cycles:         %d\n", result.Cycles)
	fmt.Printf("instructions:   %d\n", result.Instructions)
	if result.Cycles > 0 {
		fmt.Printf("instructions/cycle: %.3f\n", float64(result.Instructions)/float64(result.Cycles))
	}
	return nil
}
