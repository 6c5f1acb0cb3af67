// Package parser builds the statement-list AST from tokenized source
// lines: label/org prefixes, instruction/macro-application statements,
// operand expressions, and MACRO...ENDMACRO definition blocks.
package parser

import (
	"fmt"
	"strings"

	"github.com/andybower/babytools/internal/ast"
	"github.com/andybower/babytools/internal/lexer"
	"github.com/andybower/babytools/internal/strtab"
	"github.com/andybower/babytools/internal/symbols"
)

// Parser builds AST nodes for one source file, interning names into a
// shared string table.
type Parser struct {
	strtab *strtab.Table
}

// New returns a parser that interns identifiers into strtab.
func New(strtab *strtab.Table) *Parser {
	return &Parser{strtab: strtab}
}

// ParseLines parses a whole source file, given as its lines with any
// trailing newline already removed, returning a LIST-of-statements AST.
func (p *Parser) ParseLines(lines []string) (*ast.Node, error) {
	stmts, _, err := p.parseBlock(lines, 0, false)
	if err != nil {
		return nil, err
	}
	return ast.NewList(stmts, ast.Span{}), nil
}

func lineSpan(n int) ast.Span {
	pos := ast.Position{Line: n}
	return ast.Span{Start: pos, End: pos}
}

// parseBlock parses lines[start:] as a sequence of statements. When
// inMacro is true, an ENDMACRO line on its own terminates the block
// instead of being treated as an instruction statement.
func (p *Parser) parseBlock(lines []string, start int, inMacro bool) ([]*ast.Node, int, error) {
	var stmts []*ast.Node
	i := start

	for i < len(lines) {
		toks, err := lexer.Tokenize(lines[i])
		if err != nil {
			return nil, i, fmt.Errorf("line %d: %w", i+1, err)
		}
		if len(toks) == 0 {
			i++
			continue
		}

		if inMacro && len(toks) == 1 && isKeyword(toks[0], "ENDMACRO") {
			return stmts, i + 1, nil
		}

		if isKeyword(toks[0], "MACRO") {
			def, next, err := p.parseMacroDef(lines, i, toks)
			if err != nil {
				return nil, i, err
			}
			stmts = append(stmts, def)
			i = next
			continue
		}

		lineStmts, err := p.parseLine(toks, i+1)
		if err != nil {
			return nil, i, err
		}
		stmts = append(stmts, lineStmts...)
		i++
	}

	if inMacro {
		return nil, i, fmt.Errorf("line %d: MACRO block never closed with ENDMACRO", start+1)
	}
	return stmts, i, nil
}

func isKeyword(tok lexer.Token, name string) bool {
	return tok.Kind == lexer.Ident && !tok.HasColon && strings.EqualFold(tok.Text, name)
}

// parseMacroDef parses a "MACRO name formal" header line followed by a
// body block terminated by ENDMACRO.
func (p *Parser) parseMacroDef(lines []string, i int, header []lexer.Token) (*ast.Node, int, error) {
	if len(header) != 3 || header[1].Kind != lexer.Ident || header[2].Kind != lexer.Ident {
		return nil, i, fmt.Errorf(`line %d: expected "MACRO name formal"`, i+1)
	}
	name := header[1].Text
	span := lineSpan(i + 1)
	formal := ast.NewName(header[2].Text, span)

	body, next, err := p.parseBlock(lines, i+1, true)
	if err != nil {
		return nil, next, err
	}
	bodySpan := ast.Span{Start: span.Start, End: lineSpan(next).End}
	return ast.NewMacro(name, formal, ast.NewList(body, bodySpan), span), next, nil
}

// parseLine parses the statements contributed by a single non-blank
// line: any number of leading ORG/LABEL tokens, then at most one INSTR.
func (p *Parser) parseLine(toks []lexer.Token, line int) ([]*ast.Node, error) {
	var stmts []*ast.Node
	span := lineSpan(line)
	i := 0

	for i < len(toks) {
		tok := toks[i]
		switch {
		case tok.Kind == lexer.Int:
			stmts = append(stmts, ast.NewOrg(tok.Value, span))
			i++

		case tok.Kind == lexer.Ident && tok.HasColon:
			stmts = append(stmts, ast.NewLabel(p.labelRef(tok.Text), span))
			i++

		case tok.Kind == lexer.Ident:
			stmt, next, err := p.parseInstr(toks, i, span)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			i = next

		default:
			return nil, fmt.Errorf("line %d: col %d: unexpected token", line, tok.Col)
		}
	}
	return stmts, nil
}

// parseInstr parses a mnemonic/macro-name token followed by an optional
// single operand expression.
func (p *Parser) parseInstr(toks []lexer.Token, i int, span ast.Span) (*ast.Node, int, error) {
	name := toks[i]
	i++
	nameNode := ast.NewSymbol(symbols.Ref{Type: symbols.TypeMnemonic, Name: symbols.MnemonicHandle(p.strtab, name.Text)}, span)

	operands := ast.NilNode
	if i < len(toks) {
		operand, next, err := p.parseExpr(toks, i)
		if err != nil {
			return nil, next, err
		}
		i = next
		if i < len(toks) {
			return nil, i, fmt.Errorf("line %d: col %d: surplus operand to %q", span.Start.Line, toks[i].Col, name.Text)
		}
		operands = ast.NewTuple(operand, ast.NilNode, span)
	}

	return ast.NewInstr(nameNode, operands, span), i, nil
}

// parseExpr parses term (('+'|'-') term)*, left-associative.
func (p *Parser) parseExpr(toks []lexer.Token, i int) (*ast.Node, int, error) {
	left, i, err := p.parseTerm(toks, i)
	if err != nil {
		return nil, i, err
	}

	for i < len(toks) && (toks[i].Kind == lexer.Plus || toks[i].Kind == lexer.Minus) {
		op := toks[i]
		i++
		if i >= len(toks) {
			return nil, i, fmt.Errorf("col %d: expected an operand after operator", op.Col)
		}
		right, next, err := p.parseTerm(toks, i)
		if err != nil {
			return nil, next, err
		}
		i = next

		kind := ast.Plus
		if op.Kind == lexer.Minus {
			kind = ast.Minus
		}
		left = ast.NewBinOp(kind, left, right, ast.Span{})
	}
	return left, i, nil
}

func (p *Parser) parseTerm(toks []lexer.Token, i int) (*ast.Node, int, error) {
	if i >= len(toks) {
		return nil, i, fmt.Errorf("expected an operand")
	}
	tok := toks[i]
	switch tok.Kind {
	case lexer.Int:
		return ast.NewNumber(tok.Value, ast.Span{}), i + 1, nil
	case lexer.Ident:
		n := ast.NewSymbol(p.labelRef(tok.Text), ast.Span{})
		n.Text = tok.Text // keeps undefined-name errors readable
		return n, i + 1, nil
	default:
		return nil, i, fmt.Errorf("col %d: expected an operand", tok.Col)
	}
}

func (p *Parser) labelRef(name string) symbols.Ref {
	return symbols.Ref{Type: symbols.TypeLabel, Name: p.strtab.Put(name)}
}
