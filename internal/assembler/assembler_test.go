package assembler

import (
	"testing"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/parser"
	"github.com/andybower/babytools/internal/section"
	"github.com/andybower/babytools/internal/strtab"
)

// assemble runs the full parse/pass1/pass2 pipeline over lines, in the
// same composition order the CLI drivers use.
func assemble(t *testing.T, lines ...string) *section.Section {
	t.Helper()
	st := strtab.New()
	catalog := arch.NewCatalog()
	a := New(st, catalog)
	p := parser.New(st)

	root, err := p.ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if err := a.ParseStmts(a.Root, root, "test"); err != nil {
		t.Fatalf("ParseStmts: %v", err)
	}

	sec := section.New(0)
	if err := a.Pass1(sec); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	if err := a.Pass2(sec); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	return sec
}

func wantWords(t *testing.T, sec *section.Section, want ...arch.Word) {
	t.Helper()
	if int(sec.Length) != len(want) {
		t.Fatalf("Length = %d, want %d", sec.Length, len(want))
	}
	for i, w := range want {
		if got := sec.Word(arch.Addr(i)); got != w {
			t.Errorf("Word(%d) = 0x%x, want 0x%x", i, got, w)
		}
	}
}

// The smallest possible program: a single halt.
func TestScenarioMinimalHalt(t *testing.T) {
	sec := assemble(t, "HLT")
	wantWords(t, sec, 0xE000)
}

// The canonical load-negate, store, halt demonstration program.
func TestScenarioLoadNegateStoreHalt(t *testing.T) {
	sec := assemble(t,
		"LDN 3",
		"STO 4",
		"HLT",
		"NUM 5",
		"NUM 0",
	)
	wantWords(t, sec, 0x4003, 0x6004, 0xE000, 0x0005, 0x0000)
}

// A forward label reference resolved by pass 1 layout.
func TestScenarioForwardLabel(t *testing.T) {
	sec := assemble(t,
		"JMP end",
		"NUM 0",
		"end: HLT",
	)
	wantWords(t, sec, 0x0002, 0x0000, 0xE000)
}

// Expressions involving the `$` current-address pseudo-symbol.
func TestScenarioDollarExpression(t *testing.T) {
	sec := assemble(t,
		"start: NUM $+1",
		"       NUM $-start",
	)
	wantWords(t, sec, 0x0001, 0x0001)
}

// Macro expansion gives each application its own argument scope, so two
// applications with the same formal name but different actual values
// emit four distinct words.
func TestMacroExpansionEmitsPerApplicationRecords(t *testing.T) {
	sec := assemble(t,
		"MACRO store x",
		"  LDN x",
		"  STO x",
		"ENDMACRO",
		"store 10",
		"store 11",
		"NUM 7",
		"NUM 8",
	)
	wantWords(t, sec, 0x400A, 0x600A, 0x400B, 0x600B, 0x0007, 0x0008)
}

func TestUndefinedLabelIsErrorAtPass2(t *testing.T) {
	st := strtab.New()
	catalog := arch.NewCatalog()
	a := New(st, catalog)
	p := parser.New(st)

	root, err := p.ParseLines([]string{"JMP nowhere"})
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if err := a.ParseStmts(a.Root, root, "test"); err != nil {
		t.Fatalf("ParseStmts: %v", err)
	}
	sec := section.New(0)
	if err := a.Pass1(sec); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	if err := a.Pass2(sec); err == nil {
		t.Fatal("Pass2: expected undefined label error")
	}
}

func TestDuplicateLabelIsError(t *testing.T) {
	st := strtab.New()
	catalog := arch.NewCatalog()
	a := New(st, catalog)
	p := parser.New(st)

	root, err := p.ParseLines([]string{"dup: HLT", "dup: HLT"})
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if err := a.ParseStmts(a.Root, root, "test"); err != nil {
		t.Fatalf("ParseStmts: %v", err)
	}
	sec := section.New(0)
	if err := a.Pass1(sec); err == nil {
		t.Fatal("Pass1: expected duplicate label error")
	}
}
