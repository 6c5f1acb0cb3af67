package symbols

import (
	"testing"

	"github.com/andybower/babytools/internal/strtab"
)

func TestGetRefIsIdempotentWithinScope(t *testing.T) {
	st := strtab.New()
	ctx := NewRootContext()

	a := ctx.GetRef(st, TypeLabel, "loop")
	b := ctx.GetRef(st, TypeLabel, "loop")
	if a != b {
		t.Errorf("GetRef returned different refs for the same name in one scope")
	}
}

func TestMnemonicLookupIsCaseInsensitive(t *testing.T) {
	st := strtab.New()
	ctx := NewRootContext()
	ctx.AddNum(st, TypeMnemonic, "LDN", 2)

	sym := ctx.Lookup(st, TypeMnemonic, "ldn", Default)
	if sym == nil || sym.Val.Word != 2 {
		t.Fatalf("case-insensitive mnemonic lookup failed: %+v", sym)
	}
}

func TestLabelLookupIsCaseSensitive(t *testing.T) {
	st := strtab.New()
	ctx := NewRootContext()
	ctx.AddNum(st, TypeLabel, "Loop", 1)

	if sym := ctx.Lookup(st, TypeLabel, "loop", Default); sym != nil {
		t.Errorf("label lookup should be case sensitive, found %+v", sym)
	}
}

func TestDefaultLookupWalksParentChain(t *testing.T) {
	st := strtab.New()
	outer := NewRootContext()
	outer.AddNum(st, TypeLabel, "n", 5)
	inner := CreateContext(outer)

	sym := inner.Lookup(st, TypeLabel, "n", Default)
	if sym == nil || sym.Val.Word != 5 {
		t.Fatalf("Default lookup did not find outer symbol: %+v", sym)
	}
}

func TestLocalLookupDoesNotWalkParentChain(t *testing.T) {
	st := strtab.New()
	outer := NewRootContext()
	outer.AddNum(st, TypeLabel, "n", 5)
	inner := CreateContext(outer)

	if sym := inner.Lookup(st, TypeLabel, "n", Local); sym != nil {
		t.Errorf("Local lookup should not see outer scope, found %+v", sym)
	}
}

func TestExcludeSpecifiedSkipsOwnUndefPlaceholder(t *testing.T) {
	st := strtab.New()
	outer := NewRootContext()
	outer.AddNum(st, TypeLabel, "n", 42)
	inner := CreateContext(outer)
	ref := inner.GetRef(st, TypeLabel, "n") // still SubUndef

	sym, owner := inner.LookupRefExcluding(*ref, inner)
	if sym == nil || sym.Val.Word != 42 {
		t.Fatalf("ExcludeSpecified should find outer symbol, got %+v", sym)
	}
	if owner != outer {
		t.Errorf("owner = %p, want outer scope %p", owner, outer)
	}
}

func TestExcludeSpecifiedStopsSkippingOnceDefined(t *testing.T) {
	st := strtab.New()
	outer := NewRootContext()
	outer.AddNum(st, TypeLabel, "n", 42)
	inner := CreateContext(outer)
	ref := inner.GetRef(st, TypeLabel, "n")
	inner.AddNum(st, TypeLabel, "n", 7) // now defined locally

	sym, owner := inner.LookupRefExcluding(*ref, inner)
	if sym == nil || sym.Val.Word != 7 {
		t.Fatalf("ExcludeSpecified should now see the local value, got %+v", sym)
	}
	if owner != inner {
		t.Errorf("owner = %p, want inner scope %p", owner, inner)
	}
}

func TestSetValPanicsOnUnreachableRef(t *testing.T) {
	st := strtab.New()
	a := NewRootContext()
	b := NewRootContext()
	ref := a.GetRef(st, TypeLabel, "x")

	defer func() {
		if recover() == nil {
			t.Fatal("SetVal on a ref from an unrelated scope did not panic")
		}
	}()
	b.SetVal(ref, Value{Subtype: SubWord, Word: 1})
}

func TestAddNumRoundTrips(t *testing.T) {
	st := strtab.New()
	ctx := NewRootContext()
	ref := ctx.AddNum(st, TypeLabel, "x", 10)

	sym, _ := ctx.LookupRef(*ref, Default)
	if sym.Val.Subtype != SubWord || sym.Val.Word != 10 {
		t.Errorf("AddNum value = %+v, want SubWord(10)", sym.Val)
	}
}
