package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/assembler"
	"github.com/andybower/babytools/internal/objfmt"
	"github.com/andybower/babytools/internal/parser"
	"github.com/andybower/babytools/internal/section"
	"github.com/andybower/babytools/internal/strtab"
	"github.com/andybower/babytools/internal/symbols"
)

func main() {
	var (
		listing      bool
		mapOut       bool
		output       string
		outputFormat string
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:   "asm [flags] SOURCE|- ...",
		Short: "Assemble Manchester Baby (SSEM) source into an object file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, listing, mapOut, output, outputFormat, verbose)
		},
	}

	rootCmd.Flags().BoolVarP(&listing, "listing", "a", false, "Print an assembly listing")
	rootCmd.Flags().BoolVarP(&mapOut, "map", "m", false, "Print the label map")
	rootCmd.Flags().StringVarP(&output, "output", "o", "b.out", "Output file, - for stdout")
	rootCmd.Flags().StringVarP(&outputFormat, "output-format", "O", "bits.snp", "Output format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(sources []string, listing, mapOut bool, output, outputFormat string, verbose bool) error {
	st := strtab.New()
	catalog := arch.NewCatalog()
	a := assembler.New(st, catalog)
	p := parser.New(st)

	// All sources concatenate into one record buffer and one section.
	for _, src := range sources {
		lines, err := readSource(src)
		if err != nil {
			return err
		}
		root, err := p.ParseLines(lines)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		if err := a.ParseStmts(a.Root, root, src); err != nil {
			return err
		}
	}

	sec := section.New(0)
	if err := a.Pass1(sec); err != nil {
		return err
	}
	if err := a.Pass2(sec); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "asm: %d records, %d words\n", len(a.Records), sec.Length)
	}
	if listing {
		printListing(a, sec)
	}
	if mapOut {
		printMap(a)
	}

	return objfmt.WriteTo(outputFormat, output, sec)
}

// readSource reads all lines of path, "-" meaning stdin.
func readSource(path string) ([]string, error) {
	var r *os.File
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// printListing prints one line per emitted word: address, word, and the
// source location that produced it.
func printListing(a *assembler.Assembler, sec *section.Section) {
	for addr := sec.Org; addr < sec.Org+sec.Length; addr++ {
		line := fmt.Sprintf("%4d: %08X", addr, uint32(sec.Word(addr)))
		if r, ok := sec.Data[addr-sec.Org].Debug.(*assembler.Record); ok && r != nil {
			line += fmt.Sprintf("  ; %s:%d", r.Source, r.Line)
		}
		fmt.Println(line)
	}
}

// printMap prints the root scope's labels sorted by name. Macro-local
// scopes are transient and not reachable here; their labels are private
// to each expansion anyway.
func printMap(a *assembler.Assembler) {
	type entry struct {
		name  string
		value int32
	}
	var entries []entry
	a.Root.Each(symbols.TypeLabel, func(sym *symbols.Symbol) {
		if sym.Val.Subtype != symbols.SubWord {
			return
		}
		name := a.Strtab.Get(sym.Ref.Name)
		if name == "$" {
			return
		}
		entries = append(entries, entry{name: name, value: sym.Val.Word})
	})
	sort.Slice(entries, func(i, j int) bool {
		return strings.Compare(entries[i].name, entries[j].name) < 0
	})
	for _, e := range entries {
		fmt.Printf("%-16s = %d\n", e.name, e.value)
	}
}
