package ast

import (
	"errors"
	"testing"

	"github.com/andybower/babytools/internal/strtab"
	"github.com/andybower/babytools/internal/symbols"
)

func TestEvalNumberIsIdentity(t *testing.T) {
	n := NewNumber(42, Span{})
	got, err := Eval(n, symbols.NewRootContext(), false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != n {
		t.Errorf("Eval(Number) returned a different node")
	}
}

func TestEvalSymbolResolvesSubWord(t *testing.T) {
	strtab := strtab.New()
	scope := symbols.NewRootContext()
	ref := scope.AddNum(strtab, symbols.TypeLabel, "start", 7)

	n := NewSymbol(*ref, Span{})
	got, err := Eval(n, scope, false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Kind != Number || got.Number != 7 {
		t.Errorf("Eval(Symbol) = %+v, want Number(7)", got)
	}
}

func TestEvalUndefinedStrictIsError(t *testing.T) {
	strtab := strtab.New()
	scope := symbols.NewRootContext()
	ref := scope.GetRef(strtab, symbols.TypeLabel, "missing")

	n := NewSymbol(*ref, Span{})
	n.Text = "missing"
	_, err := Eval(n, scope, false)
	var undef *UndefinedNameError
	if !errors.As(err, &undef) {
		t.Fatalf("Eval error = %v, want *UndefinedNameError", err)
	}
	if undef.Name != "missing" {
		t.Errorf("UndefinedNameError.Name = %q, want %q", undef.Name, "missing")
	}
}

func TestEvalUndefinedPartialReturnsErrPartial(t *testing.T) {
	strtab := strtab.New()
	scope := symbols.NewRootContext()
	ref := scope.GetRef(strtab, symbols.TypeLabel, "forward")

	n := NewSymbol(*ref, Span{})
	_, err := Eval(n, scope, true)
	if !errors.Is(err, ErrPartial) {
		t.Fatalf("Eval error = %v, want ErrPartial", err)
	}
}

func TestEvalPlusFoldsConstants(t *testing.T) {
	sp := Span{}
	n := NewBinOp(Plus, NewNumber(3, sp), NewNumber(4, sp), sp)
	got, err := Eval(n, symbols.NewRootContext(), false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Kind != Number || got.Number != 7 {
		t.Errorf("Eval(3+4) = %+v, want Number(7)", got)
	}
}

func TestEvalMinusWrapsAroundInt32(t *testing.T) {
	sp := Span{}
	n := NewBinOp(Minus, NewNumber(0, sp), NewNumber(1, sp), sp)
	got, err := Eval(n, symbols.NewRootContext(), false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Number != -1 {
		t.Errorf("Eval(0-1) = %d, want -1", got.Number)
	}
}

func TestEvalResolvesDeferredSubAST(t *testing.T) {
	strtab := strtab.New()
	outer := symbols.NewRootContext()
	baseRef := outer.AddNum(strtab, symbols.TypeLabel, "base", 100)

	// "label" holds an unevaluated expression: base + 2.
	sp := Span{}
	expr := NewBinOp(Plus, NewSymbol(*baseRef, sp), NewNumber(2, sp), sp)
	labelRef := outer.Add(strtab, symbols.TypeLabel, "label", symbols.Value{
		Subtype:  symbols.SubAST,
		Internal: expr,
	})

	n := NewSymbol(*labelRef, sp)
	got, err := Eval(n, outer, false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Number != 102 {
		t.Errorf("Eval(label) = %d, want 102", got.Number)
	}

	// The symbol should now be promoted to SubWord for cheap re-lookup.
	sym, _ := outer.LookupRef(*labelRef, symbols.Default)
	if sym.Val.Subtype != symbols.SubWord || sym.Val.Word != 102 {
		t.Errorf("label not promoted to SubWord: %+v", sym.Val)
	}
}

func TestEvalExcludesOwnShadowedPlaceholder(t *testing.T) {
	strtab := strtab.New()
	outer := symbols.NewRootContext()
	outer.AddNum(strtab, symbols.TypeLabel, "n", 99)

	// A child scope (as created for a macro expansion) declares its own
	// "n" but has not yet given it a value. Evaluating "n" from within
	// that child scope must skip the child's own SubUndef placeholder
	// and see the outer definition instead.
	inner := symbols.CreateContext(outer)
	innerRef := inner.GetRef(strtab, symbols.TypeLabel, "n")

	n := NewSymbol(*innerRef, Span{})
	got, err := Eval(n, inner, false)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Number != 99 {
		t.Errorf("Eval(n) = %d, want 99 (outer definition)", got.Number)
	}
}
