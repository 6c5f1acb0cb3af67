package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/objfmt"
	"github.com/andybower/babytools/internal/section"
	"github.com/andybower/babytools/internal/vm"
)

// maxMemoryWords is the hard ceiling on simulated store size: the full
// 13-bit address space.
const maxMemoryWords = vm.AddrSpaceSize

func main() {
	var (
		memoryWords int
		inputFormat string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:   "sim [flags] OBJECT",
		Short: "Simulate a Manchester Baby (SSEM) object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], memoryWords, inputFormat, verbose)
		},
	}

	rootCmd.Flags().IntVarP(&memoryWords, "memory", "m", 32, "Store size in words, rounded up to a power of two")
	rootCmd.Flags().StringVarP(&inputFormat, "input-format", "I", "bits.snp", "Input format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(object string, memoryWords int, inputFormat string, verbose bool) error {
	size := vm.NextPow2(memoryWords)
	if size > maxMemoryWords {
		return fmt.Errorf("sim: %d words exceeds the %d word store ceiling", size, maxMemoryWords)
	}

	sec := section.New(0)
	if err := objfmt.Load(inputFormat, object, sec); err != nil {
		return err
	}
	if int(sec.Org+sec.Length) > int(size) {
		return fmt.Errorf("sim: image of %d words exceeds the %d word store", sec.Org+sec.Length, size)
	}

	mem := vm.NewMappedPage(vm.NewPage(size), 0, vm.AddrSpaceSize)
	for addr := sec.Org; addr < sec.Org+sec.Length; addr++ {
		mem.Write(addr, sec.Word(addr))
	}

	// SIGINT requests a state dump and continues; SIGQUIT requests a
	// graceful stop after the current instruction. Both reach the core
	// only through the cooperative StopToken.
	var stop vm.StopToken
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGQUIT)
	defer signal.Stop(sigs)
	go func() {
		for sig := range sigs {
			if sig == syscall.SIGQUIT {
				stop.RequestHalt()
			} else {
				stop.RequestDump()
			}
		}
	}()

	m := vm.NewMachine()
	if verbose {
		fmt.Fprintf(os.Stderr, "sim: %s: %d words loaded, %d word store\n", object, sec.Length, size)
	}
	m.Run(mem, &stop, func(m *vm.Machine) { dumpState(m, mem) })

	dumpState(m, mem)
	return nil
}

// dumpState prints the register file and the low store words.
func dumpState(m *vm.Machine, mem *vm.MappedPage) {
	fmt.Printf("ac=%d ci=%d pi=%08X cycles=%d stopped=%v\n",
		m.AC, m.CI, uint32(m.PI), m.Cycles, m.Stopped)
	for addr := uint32(0); addr < mem.Phys.Size; addr++ {
		d := arch.Decode(mem.Read(addr))
		fmt.Printf("%4d: %08X  (op=%d operand=%d)\n", addr, uint32(mem.Read(addr)), d.Opcode, d.Operand)
	}
}
