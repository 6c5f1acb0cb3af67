// Package ast implements the parse tree for Baby assembly source: a closed
// sum type over node kinds, with owned children for tuples and lists, plus
// the recursive constant-folding expression evaluator (see eval.go).
package ast

import (
	"github.com/andybower/babytools/internal/symbols"
)

// Kind tags the variant a Node holds.
type Kind int

const (
	Nil Kind = iota
	Number
	Name
	Symbol
	Label
	Org
	Tuple
	List
	Instr
	Macro
	Plus
	Minus
)

// Position is a source location, line/col, used for diagnostics.
type Position struct {
	Line, Col int
}

// Span is a start/end source range, as each parsed statement carries.
type Span struct {
	Start, End Position
}

// Node is one element of the parse tree. Only the fields relevant to Kind
// are meaningful; the zero value of the others is ignored.
type Node struct {
	Kind Kind
	Span Span

	Number int32       // Number, Org
	Text   string      // Name: the raw identifier; Macro: the macro's own name
	Ref    symbols.Ref // Symbol, Label: resolved symbol reference
	Left   *Node       // Tuple, Instr (name), Macro (formals), Plus, Minus
	Right  *Node       // Tuple, Instr (operand tuple), Macro (body list), Plus, Minus
	Items  []*Node     // List
}

// NilNode is the canonical empty-tuple terminator shared by every
// right-cons list.
var NilNode = &Node{Kind: Nil}

// NewNumber builds a Number leaf.
func NewNumber(n int32, span Span) *Node {
	return &Node{Kind: Number, Number: n, Span: span}
}

// NewName builds an unresolved identifier leaf (used transiently by the
// parser before a symbol table is available to resolve it).
func NewName(text string, span Span) *Node {
	return &Node{Kind: Name, Text: text, Span: span}
}

// NewSymbol builds a resolved operand-expression symbol reference.
func NewSymbol(ref symbols.Ref, span Span) *Node {
	return &Node{Kind: Symbol, Ref: ref, Span: span}
}

// NewLabel builds a resolved label-definition reference.
func NewLabel(ref symbols.Ref, span Span) *Node {
	return &Node{Kind: Label, Ref: ref, Span: span}
}

// NewOrg builds an ORG statement node.
func NewOrg(addr int32, span Span) *Node {
	return &Node{Kind: Org, Number: addr, Span: span}
}

// NewTuple builds a (left, right) pair, the building block of
// right-cons operand and formal-parameter lists.
func NewTuple(left, right *Node, span Span) *Node {
	return &Node{Kind: Tuple, Left: left, Right: right, Span: span}
}

// NewList builds a LIST node wrapping items, used for the statement list
// at the root of a parsed source file and for a macro body.
func NewList(items []*Node, span Span) *Node {
	return &Node{Kind: List, Items: items, Span: span}
}

// NewInstr builds an INSTR statement: a mnemonic/macro-name symbol plus
// its (possibly empty) operand tuple.
func NewInstr(name *Node, operands *Node, span Span) *Node {
	return &Node{Kind: Instr, Left: name, Right: operands, Span: span}
}

// NewMacro builds a MACRO definition: name is the macro's own mnemonic
// name, formals is its (single) formal-parameter name node, and body is
// the statement list forming its expansion.
func NewMacro(name string, formals, body *Node, span Span) *Node {
	return &Node{Kind: Macro, Text: name, Left: formals, Right: body, Span: span}
}

// NewBinOp builds a Plus or Minus node.
func NewBinOp(kind Kind, left, right *Node, span Span) *Node {
	return &Node{Kind: kind, Left: left, Right: right, Span: span}
}

// Count returns the number of elements in a right-cons Tuple chain or a
// List.
func Count(n *Node) int {
	switch n.Kind {
	case Tuple:
		return 1 + Count(n.Right)
	case List:
		return len(n.Items)
	case Nil:
		return 0
	default:
		panic("ast: Count of non-list node")
	}
}

// Walk calls visit(n) for n and, for Tuple/List/Instr/Macro/Plus/Minus
// nodes, for every descendant, depth first. It never mutates the tree.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch n.Kind {
	case Tuple, Instr, Macro, Plus, Minus:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case List:
		for _, item := range n.Items {
			Walk(item, visit)
		}
	}
}
