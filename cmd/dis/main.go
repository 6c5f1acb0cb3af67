package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/disasm"
	"github.com/andybower/babytools/internal/objfmt"
	"github.com/andybower/babytools/internal/section"
)

func main() {
	var (
		inputFormat string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:   "dis [flags] OBJECT",
		Short: "Disassemble a Manchester Baby (SSEM) object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], inputFormat, verbose)
		},
	}

	rootCmd.Flags().StringVarP(&inputFormat, "input-format", "I", "bits.snp", "Input format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(object, inputFormat string, verbose bool) error {
	sec := section.New(0)
	if err := objfmt.Load(inputFormat, object, sec); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "dis: %s: %d words\n", object, sec.Length)
	}
	return disasm.Disassemble(os.Stdout, sec, arch.NewCatalog())
}
