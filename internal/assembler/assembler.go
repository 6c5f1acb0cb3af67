// Package assembler implements the two-pass assembly engine: turning a
// parsed statement list into a linear buffer of abstract records (with
// macro expansion folded in along the way), then laying out and
// encoding those records into a section.
package assembler

import (
	"fmt"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/ast"
	"github.com/andybower/babytools/internal/section"
	"github.com/andybower/babytools/internal/strtab"
	"github.com/andybower/babytools/internal/symbols"
)

// dollarName is the transient pseudo-symbol holding the cursor address
// during evaluation of each record's operand expression.
const dollarName = "$"

// Macro is a user-defined mnemonic: a single formal parameter (nil if
// the macro takes none) and the statement list it expands to. It is
// installed into a scope's mnemonic table as a SubMnem symbol exactly
// like the built-in instructions the arch package installs, so a
// reference to it is found by the same lookup path.
type Macro struct {
	Name   string
	Formal *ast.Node // ast.Name, or nil for a zero-arity macro
	Body   *ast.Node // ast.List of statements
}

// Record is one abstract assembly record: a flattened attempt at "this
// line (or these consecutive lines) contribute an org and/or a label
// and/or one instruction", tagged with the scope it was parsed in.
type Record struct {
	Source string
	Line   int
	Scope  *symbols.Context

	HasOrg bool
	Org    arch.Word

	HasLabel bool
	Label    symbols.Ref

	HasInstr  bool
	InstrName symbols.Ref
	Operand   *ast.Node // nil if the instruction takes none
}

// Error wraps a source location onto a lower-level error, matching the
// "path:line" diagnostic location every assembly error carries.
type Error struct {
	Source string
	Line   int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Assembler holds the shared state for one assembly: the string table,
// the root symbol scope (with the architecture's mnemonics already
// installed), and the accumulated abstract record buffer.
type Assembler struct {
	Strtab  *strtab.Table
	Catalog *arch.Catalog
	Root    *symbols.Context
	Records []*Record
}

// New returns an assembler with a fresh root scope carrying catalog's
// mnemonics.
func New(strtab *strtab.Table, catalog *arch.Catalog) *Assembler {
	root := symbols.NewRootContext()
	catalog.Install(root, strtab)
	return &Assembler{Strtab: strtab, Catalog: catalog, Root: root}
}

// ParseStmts walks stmts (a LIST node, as produced by the parser) in
// scope, accumulating abstract records into a.Records. A macro
// definition installs a mnemonic in scope and contributes no record; a
// macro application creates a child scope, binds the formal parameter
// to the (possibly only partially evaluated) actual argument, and
// recurses into the macro's body using that child scope, so each
// expansion gets its own label/argument scope.
func (a *Assembler) ParseStmts(scope *symbols.Context, stmts *ast.Node, source string) error {
	var cur *Record

	flushIfPending := func() {
		if cur != nil {
			a.Records = append(a.Records, cur)
			cur = nil
		}
	}
	openRecord := func(line int) *Record {
		if cur == nil {
			cur = &Record{Source: source, Line: line, Scope: scope}
		}
		return cur
	}

	for _, stmt := range stmts.Items {
		line := stmt.Span.Start.Line

		switch stmt.Kind {
		case ast.Label:
			if cur != nil && (cur.HasOrg || cur.HasLabel) {
				flushIfPending()
			}
			r := openRecord(line)
			r.HasLabel = true
			r.Label = stmt.Ref

		case ast.Org:
			if cur != nil && (cur.HasOrg || cur.HasLabel) {
				flushIfPending()
			}
			r := openRecord(line)
			r.HasOrg = true
			r.Org = stmt.Number

		case ast.Macro:
			m := &Macro{Name: stmt.Text, Body: stmt.Right}
			if stmt.Left != nil && stmt.Left.Kind == ast.Name {
				m.Formal = stmt.Left
			}
			ref := scope.GetRef(a.Strtab, symbols.TypeMnemonic, stmt.Text)
			scope.SetVal(ref, symbols.Value{Subtype: symbols.SubMnem, Internal: m})

		case ast.Instr:
			if err := a.parseInstrStmt(scope, stmt, &cur, source); err != nil {
				return err
			}

		default:
			return &Error{Source: source, Line: line, Err: fmt.Errorf("unexpected statement kind %d", stmt.Kind)}
		}
	}
	return nil
}

func (a *Assembler) parseInstrStmt(scope *symbols.Context, stmt *ast.Node, cur **Record, source string) error {
	line := stmt.Span.Start.Line
	nameRef := stmt.Left.Ref

	sym, _ := scope.LookupRef(nameRef, symbols.Default)
	if sym == nil {
		return &Error{Source: source, Line: line, Err: fmt.Errorf("no such mnemonic %q", a.Strtab.Get(nameRef.Name))}
	}

	var operand *ast.Node
	if stmt.Right != ast.NilNode {
		operand = stmt.Right.Left
	}

	switch m := sym.Val.Internal.(type) {
	case *arch.Mnemonic:
		if *cur == nil {
			*cur = &Record{Source: source, Line: line, Scope: scope}
		}
		r := *cur
		r.HasInstr = true
		r.InstrName = nameRef
		r.Operand = operand
		a.Records = append(a.Records, r)
		*cur = nil
		return nil

	case *Macro:
		return a.expandMacro(scope, m, operand, source, line)

	default:
		return &Error{Source: source, Line: line, Err: fmt.Errorf("%q is not a usable mnemonic", a.Strtab.Get(nameRef.Name))}
	}
}

// expandMacro binds m's formal parameter (if any) to actual in a fresh
// child scope and recursively parses the macro body into that scope.
func (a *Assembler) expandMacro(scope *symbols.Context, m *Macro, actual *ast.Node, source string, line int) error {
	if (m.Formal == nil) != (actual == nil) {
		return &Error{Source: source, Line: line, Err: fmt.Errorf("macro %q arity mismatch", m.Name)}
	}

	child := symbols.CreateContext(scope)
	if m.Formal != nil {
		formalRef := child.GetRef(a.Strtab, symbols.TypeLabel, m.Formal.Text)
		reduced, err := ast.Eval(actual, scope, true)
		if err != nil && err != ast.ErrPartial {
			return &Error{Source: source, Line: line, Err: err}
		}
		if err == ast.ErrPartial {
			child.SetVal(formalRef, symbols.Value{Subtype: symbols.SubAST, Internal: reduced})
		} else {
			child.SetVal(formalRef, symbols.Value{Subtype: symbols.SubWord, Word: reduced.Number})
		}
	}

	return a.ParseStmts(child, m.Body, source)
}

func (a *Assembler) publishDollar(scope *symbols.Context, addr arch.Addr) {
	scope.AddNum(a.Strtab, symbols.TypeLabel, dollarName, int32(addr))
}

// Pass1 lays out every record in order: it defines each label at the
// current cursor, reserves a word for each instruction (advancing the
// cursor), and restores the cursor to its pre-pass value on exit so
// Pass2 starts from the same place.
func (a *Assembler) Pass1(sec *section.Section) error {
	saved := sec.Cursor

	for _, r := range a.Records {
		if r.HasOrg {
			sec.Cursor = arch.Addr(r.Org)
		}
		a.publishDollar(r.Scope, sec.Cursor)

		if r.HasLabel {
			if err := a.defineLabel(r, sec.Cursor); err != nil {
				return err
			}
		}
		if r.HasInstr {
			if err := sec.PutWord(0, nil); err != nil {
				return &Error{Source: r.Source, Line: r.Line, Err: err}
			}
		}
	}

	sec.Cursor = saved
	return nil
}

func (a *Assembler) defineLabel(r *Record, at arch.Addr) error {
	ref := r.Scope.GetRef(a.Strtab, symbols.TypeLabel, a.Strtab.Get(r.Label.Name))
	if sym, _ := r.Scope.LookupRef(*ref, symbols.Local); sym != nil && sym.Val.Subtype != symbols.SubUndef {
		return &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("label %q redefined", a.Strtab.Get(r.Label.Name))}
	}
	r.Scope.SetVal(ref, symbols.Value{Subtype: symbols.SubWord, Word: int32(at)})
	return nil
}

// Pass2 iterates the records again, this time evaluating each
// instruction's operand strictly and emitting the encoded word. It
// stops at the first error to avoid cascading diagnostics.
func (a *Assembler) Pass2(sec *section.Section) error {
	for _, r := range a.Records {
		if r.HasOrg {
			sec.Cursor = arch.Addr(r.Org)
		}
		a.publishDollar(r.Scope, sec.Cursor)

		if !r.HasInstr {
			continue
		}

		word, err := a.encode(r)
		if err != nil {
			return err
		}
		if err := sec.PutWord(word, r); err != nil {
			return &Error{Source: r.Source, Line: r.Line, Err: err}
		}
	}
	return nil
}

// encode evaluates r's operand (if any) and produces the word to emit
// for its instruction or directive.
func (a *Assembler) encode(r *Record) (arch.Word, error) {
	sym, _ := r.Scope.LookupRef(r.InstrName, symbols.Default)
	if sym == nil {
		return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("no such mnemonic %q", a.Strtab.Get(r.InstrName.Name))}
	}
	m, ok := sym.Val.Internal.(*arch.Mnemonic)
	if !ok {
		return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("%q is not a usable mnemonic", a.Strtab.Get(r.InstrName.Name))}
	}

	var operand int32
	if r.Operand != nil {
		reduced, err := ast.Eval(r.Operand, r.Scope, false)
		if err != nil {
			return 0, &Error{Source: r.Source, Line: r.Line, Err: err}
		}
		if reduced.Kind != ast.Number {
			return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("operand did not reduce to a number")}
		}
		operand = reduced.Number
	}

	switch m.Kind {
	case arch.KindInstr:
		if m.Instr.Operands == 0 && r.Operand != nil {
			return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("%q takes no operand", m.Name)}
		}
		word := arch.Encode(m.Instr.Opcode, 0)
		if m.Instr.Operands == 1 {
			word = arch.Encode(m.Instr.Opcode, uint32(operand))
		}
		return word, nil

	case arch.KindDirective:
		switch m.Dir {
		case arch.DirNum:
			return operand, nil
		case arch.DirEJA:
			return operand - 1, nil
		default:
			return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("unknown directive")}
		}

	default:
		return 0, &Error{Source: r.Source, Line: r.Line, Err: fmt.Errorf("%q is not an instruction or directive", m.Name)}
	}
}
