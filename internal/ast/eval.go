package ast

import (
	"errors"
	"fmt"

	"github.com/andybower/babytools/internal/symbols"
)

// ErrPartial is returned by Eval when allowPartial is true and some name
// in the expression could not yet be resolved. The caller gets back the
// tree with every resolvable subexpression already reduced, so repeated
// Eval calls as more labels become defined do not redo finished work.
var ErrPartial = errors.New("ast: expression only partially resolved")

// UndefinedNameError reports a name that strict evaluation could not
// resolve in any enclosing scope.
type UndefinedNameError struct {
	Name string
}

func (e *UndefinedNameError) Error() string {
	return fmt.Sprintf("ast: undefined name %q", e.Name)
}

// Eval reduces n to a Number node by resolving Symbol and Label
// references against scope and folding Plus/Minus arithmetic. It never
// mutates n: every call that changes anything returns a new Node,
// leaving the original operand tree available for listings and
// diagnostics.
//
// Symbol/Label resolution uses ExcludeSpecified lookup rooted at scope:
// scope is both where the walk starts and the one scope whose own
// still-undefined entry is skipped rather than treated as a hit. That
// is what lets a macro body reference a formal parameter that shadows
// an outer symbol of the same name without the formal's own
// not-yet-bound placeholder masking the real value once it exists, and
// without the lookup ever resolving to itself.
//
// If allowPartial is false (pass 2's strict mode), an unresolved name
// is an error. If allowPartial is true (used while binding macro
// arguments, which may forward-reference a label not yet laid out),
// Eval returns the best partial reduction it can make along with
// ErrPartial, and the caller is expected to store the result as a
// SubAST value to retry later.
func Eval(n *Node, scope *symbols.Context, allowPartial bool) (*Node, error) {
	switch n.Kind {
	case Number:
		return n, nil

	case Symbol, Label:
		return evalRef(n, scope, allowPartial)

	case Plus, Minus:
		left, leftErr := Eval(n.Left, scope, allowPartial)
		right, rightErr := Eval(n.Right, scope, allowPartial)
		if leftErr != nil && leftErr != ErrPartial {
			return n, leftErr
		}
		if rightErr != nil && rightErr != ErrPartial {
			return n, rightErr
		}
		if left.Kind != Number || right.Kind != Number {
			// At least one side is still unresolved; this can only
			// happen under allowPartial, since strict mode would
			// already have returned an error above.
			reduced := NewBinOp(n.Kind, left, right, n.Span)
			return reduced, ErrPartial
		}
		var sum int32
		if n.Kind == Plus {
			sum = left.Number + right.Number
		} else {
			sum = left.Number - right.Number
		}
		return NewNumber(sum, n.Span), nil

	default:
		panic(fmt.Sprintf("ast: Eval of non-expression node kind %d", n.Kind))
	}
}

// evalRef resolves a Symbol or Label node to its numeric value.
func evalRef(n *Node, scope *symbols.Context, allowPartial bool) (*Node, error) {
	sym, owner := scope.LookupRefExcluding(n.Ref, scope)
	if sym == nil {
		if allowPartial {
			return n, ErrPartial
		}
		return n, &UndefinedNameError{Name: refName(n)}
	}

	switch sym.Val.Subtype {
	case symbols.SubWord:
		return NewNumber(sym.Val.Word, n.Span), nil

	case symbols.SubAST:
		deferred := sym.Val.Internal.(*Node)
		// While the deferred expression is being reduced the symbol
		// reads as undefined, so ExcludeSpecified lookups of its own
		// name resolve outward instead of recursing back in here.
		owner.SetVal(&sym.Ref, symbols.Value{Subtype: symbols.SubUndef})
		reduced, err := Eval(deferred, owner, allowPartial)
		if err != nil {
			owner.SetVal(&sym.Ref, symbols.Value{Subtype: symbols.SubAST, Internal: deferred})
			return n, err
		}
		// Promote to SubWord so later lookups of this symbol are cheap.
		owner.SetVal(&sym.Ref, symbols.Value{Subtype: symbols.SubWord, Word: reduced.Number})
		return NewNumber(reduced.Number, n.Span), nil

	default:
		if allowPartial {
			return n, ErrPartial
		}
		return n, &UndefinedNameError{Name: refName(n)}
	}
}

// refName renders the best name available for a Symbol/Label node's
// error messages. The handle alone cannot be turned back into a string
// without the string table, so callers that need precise diagnostics
// should prefer wrapping UndefinedNameError themselves; this is the
// fallback used when only the Node is at hand.
func refName(n *Node) string {
	if n.Text != "" {
		return n.Text
	}
	return fmt.Sprintf("<handle %d>", n.Ref.Name)
}
