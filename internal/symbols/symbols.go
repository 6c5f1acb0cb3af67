// Package symbols implements the hierarchical, scoped symbol tables used
// by the assembler for mnemonics and labels: lookup chains, typed values,
// and the macro-argument shadowing rule (ExcludeSpecified).
package symbols

import (
	"strings"

	"github.com/andybower/babytools/internal/strtab"
)

// Type distinguishes the two symbol tables a scope may carry.
type Type int

const (
	// TypeMnemonic holds instruction/directive/macro names. Lookup is
	// case-insensitive.
	TypeMnemonic Type = iota
	// TypeLabel holds location labels and numeric constants, including
	// the transient "$" current-address pseudo-symbol. Lookup is
	// case-sensitive.
	TypeLabel

	typeMax
)

// Subtype tags the kind of value a symbol currently holds.
type Subtype int

const (
	SubUndef Subtype = iota // inserted by GetRef, not yet given a value
	SubWord                 // a resolved numeric value
	SubMnem                 // points at an *arch.Mnemonic or *assembler.Macro
	SubAST                  // points at an unevaluated *ast.Node pending resolution
)

// Value is the symbol's current contents. Internal is deliberately typed
// as any so this package never needs to import arch or ast, both of
// which need to refer to symbols themselves and would otherwise cycle.
type Value struct {
	Subtype  Subtype
	Word     int32
	Internal any
}

// Ref is a stable reference to one symbol's slot: its type and its
// name's string-table handle. A Ref obtained from GetRef on some scope
// can be looked up again from any scope that can see it via the chain.
type Ref struct {
	Type Type
	Name strtab.Handle
}

// Symbol is one entry in a scope's table.
type Symbol struct {
	Ref Ref
	Val Value
}

// Mode selects how Lookup walks the scope chain.
type Mode int

const (
	// Default walks the full parent chain, returning the first hit.
	Default Mode = iota
	// Local restricts the search to the given scope only.
	Local
	// ExcludeSpecified walks the chain as Default does, but if the hit
	// found in the named "excluded" scope is still SubUndef, it is
	// skipped and the walk continues outward. This is what lets a macro
	// argument shadow an outer symbol of the same name without the
	// argument's own (not-yet-defined) placeholder entry masking it.
	ExcludeSpecified
)

// Context is one lexical scope: a symbol-table environment with a parent
// link, forming a lookup chain. Tables are allocated lazily: a scope
// that never stores a mnemonic has no mnemonic table at all.
type Context struct {
	parent *Context
	tables [typeMax]map[strtab.Handle]*Symbol
}

// NewRootContext creates a scope with no parent.
func NewRootContext() *Context {
	return &Context{}
}

// CreateContext creates a new scope whose parent is parent (which may be
// nil to build another root).
func CreateContext(parent *Context) *Context {
	return &Context{parent: parent}
}

// Parent returns ctx's parent scope, or nil for a root context.
func (ctx *Context) Parent() *Context {
	return ctx.parent
}

func (ctx *Context) createTable(t Type) map[strtab.Handle]*Symbol {
	if ctx.tables[t] == nil {
		ctx.tables[t] = make(map[strtab.Handle]*Symbol)
	}
	return ctx.tables[t]
}

// handle interns name for type t, folding case for mnemonics (which are
// looked up case-insensitively) and leaving labels verbatim (case
// sensitive). Folding at intern time is what lets the table key simply
// be the handle while still preserving per-type case semantics.
func handle(strtab *strtab.Table, t Type, name string) strtab.Handle {
	if t == TypeMnemonic {
		return MnemonicHandle(strtab, name)
	}
	return strtab.Put(name)
}

// MnemonicHandle interns name the same way a TypeMnemonic symbol does:
// case-folded. The parser uses this directly so that a mnemonic or
// macro-name reference it builds into the AST lands on the same handle
// Lookup/GetRef will later compute for that name.
func MnemonicHandle(strtab *strtab.Table, name string) strtab.Handle {
	return strtab.Put(strings.ToLower(name))
}

// GetRef returns a reference to the symbol (type, name) in this scope,
// inserting a new SubUndef entry if one is not already present. It never
// looks at the parent chain: an existing outer symbol of the same name
// is shadowed by the new local entry, which is what macro-argument
// binding relies on.
func (ctx *Context) GetRef(strtab *strtab.Table, t Type, name string) *Ref {
	h := handle(strtab, t, name)
	table := ctx.createTable(t)
	if sym, ok := table[h]; ok {
		return &sym.Ref
	}
	sym := &Symbol{Ref: Ref{Type: t, Name: h}}
	table[h] = sym
	return &sym.Ref
}

func (ctx *Context) lookupLocal(t Type, name strtab.Handle) *Symbol {
	table := ctx.tables[t]
	if table == nil {
		return nil
	}
	return table[name]
}

// LookupRef walks the chain from ctx per mode looking for ref, returning
// the first matching symbol and the scope that owns it.
func (ctx *Context) LookupRef(ref Ref, mode Mode) (*Symbol, *Context) {
	return ctx.lookupRef(ref, mode, nil)
}

// LookupRefExcluding is LookupRef in ExcludeSpecified mode, where exclude
// names the scope whose SubUndef hit should be skipped.
func (ctx *Context) LookupRefExcluding(ref Ref, exclude *Context) (*Symbol, *Context) {
	return ctx.lookupRef(ref, ExcludeSpecified, exclude)
}

func (ctx *Context) lookupRef(ref Ref, mode Mode, exclude *Context) (*Symbol, *Context) {
	for scope := ctx; scope != nil; scope = scope.parent {
		sym := scope.lookupLocal(ref.Type, ref.Name)
		if sym != nil {
			if mode == ExcludeSpecified && scope == exclude && sym.Val.Subtype == SubUndef {
				// Skip this scope's own placeholder and keep walking outward.
			} else {
				return sym, scope
			}
		}
		if mode == Local {
			break
		}
	}
	return nil, nil
}

// Lookup is the name-based convenience form of LookupRef, for callers
// (such as tests) that have a plain string rather than an
// already-resolved Ref.
func (ctx *Context) Lookup(strtab *strtab.Table, t Type, name string, mode Mode) *Symbol {
	sym, _ := ctx.LookupRef(Ref{Type: t, Name: handle(strtab, t, name)}, mode)
	return sym
}

// Each calls fn for every symbol of type t defined locally in ctx, in
// unspecified order. Used by the assembler driver's map output; callers
// wanting a stable order sort on the handle's string themselves.
func (ctx *Context) Each(t Type, fn func(sym *Symbol)) {
	for _, sym := range ctx.tables[t] {
		fn(sym)
	}
}

// SetVal writes val into the symbol ref refers to. ref must have been
// obtained from this scope chain via GetRef (directly or indirectly);
// SetVal does not search outward beyond the chain rooted at ctx.
func (ctx *Context) SetVal(ref *Ref, val Value) {
	for scope := ctx; scope != nil; scope = scope.parent {
		if sym := scope.lookupLocal(ref.Type, ref.Name); sym != nil && &sym.Ref == ref {
			sym.Val = val
			return
		}
	}
	panic("symbols: SetVal on a ref not reachable from this context")
}

// Add is GetRef followed by SetVal: define (type, name) in this scope
// with val.
func (ctx *Context) Add(strtab *strtab.Table, t Type, name string, val Value) *Ref {
	ref := ctx.GetRef(strtab, t, name)
	ctx.SetVal(ref, val)
	return ref
}

// AddNum is Add with Subtype SubWord, the common case of defining a
// label or macro argument to a concrete numeric value.
func (ctx *Context) AddNum(strtab *strtab.Table, t Type, name string, n int32) *Ref {
	return ctx.Add(strtab, t, name, Value{Subtype: SubWord, Word: n})
}
