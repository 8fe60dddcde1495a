// Package parser implements AntEater's recursive-descent parser (spec
// §4.4), turning a token stream into the AST defined by internal/ast.
//
// The per-level precedence climb (expression/expression2/expression3/
// expression4/factor), the right-associative recursion on the RHS of every
// binary operator, and the statement/factor dispatch tables are translated
// directly from original_source/ant_parser.cpp's AntParser. Error
// formatting — recovering a panicked *diagnostics.AntError and attaching
// the offending source line before it escapes — mirrors that file's own
// constructor try/catch around ReportError, adapted to Go's panic/recover
// per the teacher's own cmd/sentra/main.go boundary-recovery idiom.
package parser

import (
	"strings"

	"anteater/internal/ast"
	"anteater/internal/diagnostics"
	"anteater/internal/lexer"
	"anteater/internal/strtable"
)

type parser struct {
	lex     *lexer.Lexer
	strings *strtable.Table
	cur     lexer.Token
	lines   []string
}

// Parse tokenises and parses source, interning identifiers and string
// literals into strings, and returns the root ABSTRACT node containing one
// child per top-level statement. Lex and parse failures are returned as
// *diagnostics.AntError with the offending source line attached.
func Parse(source string, strings *strtable.Table) (root *ast.Node, err error) {
	p := &parser{
		lex:     lexer.New(source),
		strings: strings,
		lines:   splitLines(source),
	}

	defer func() {
		if r := recover(); r != nil {
			ae, ok := r.(*diagnostics.AntError)
			if !ok {
				panic(r)
			}
			if ae.Line >= 1 && ae.Line <= len(p.lines) {
				ae.WithSource(p.lines[ae.Line-1])
			}
			err = ae
		}
	}()

	p.advance()
	root = ast.New(ast.Abstract, 0, 0)
	for p.cur.Kind != lexer.KindEOF {
		root.Add(p.statement())
		p.expectNext(lexer.Kind(';'))
	}
	return root, nil
}

func splitLines(source string) []string {
	return strings.Split(source, "\n")
}

func (p *parser) advance() {
	p.cur = p.lex.Advance()
}

func (p *parser) expect(k lexer.Kind) {
	if p.cur.Kind != k {
		panic(diagnostics.New(diagnostics.ExpectedToken, p.cur.Line, p.cur.Column,
			"expected %s, got %s", k.String(), p.cur.Kind.String()))
	}
}

func (p *parser) expectNext(k lexer.Kind) {
	p.expect(k)
	p.advance()
}

func (p *parser) intern(s string) int {
	return p.strings.Intern(s)
}

// statement parses one statement per spec §4.4's grammar. The caller is
// responsible for consuming the trailing ';'.
func (p *parser) statement() *ast.Node {
	line, col := p.cur.Line, p.cur.Column

	switch p.cur.Kind {
	case lexer.KindFunction:
		return p.function()

	case lexer.KindIf:
		n := ast.New(ast.If, line, col)
		p.advance()
		p.expectNext(lexer.Kind('('))
		n.Add(p.expression())
		p.expectNext(lexer.Kind(')'))
		n.Add(p.statement())
		if p.cur.Kind == lexer.KindElse {
			p.advance()
			n.Add(p.statement())
		}
		return n

	case lexer.KindWhile:
		n := ast.New(ast.While, line, col)
		p.advance()
		p.expectNext(lexer.Kind('('))
		n.Add(p.expression())
		p.expectNext(lexer.Kind(')'))
		n.Add(p.statement())
		return n

	case lexer.KindDo:
		n := ast.New(ast.DoWhile, line, col)
		p.advance()
		n.Add(p.statement())
		p.expectNext(lexer.KindWhile)
		n.Add(p.expression())
		return n

	case lexer.KindForeach:
		n := ast.New(ast.Foreach, line, col)
		p.advance()
		p.expectNext(lexer.Kind('('))
		n.Add(p.identifier())
		p.expectNext(lexer.KindIn)
		n.Add(p.expression())
		p.expectNext(lexer.Kind(')'))
		n.Add(p.statement())
		return n

	case lexer.KindBreak:
		n := ast.New(ast.Break, line, col)
		p.advance()
		return n

	case lexer.Kind('{'):
		return p.block()

	case lexer.KindLocal:
		p.advance()
		n := ast.New(ast.Local, line, col)
		n.Add(p.identifier())
		if p.cur.Kind == lexer.Kind('=') {
			p.advance()
			n.Add(p.expression())
		} else {
			zero := ast.New(ast.Int, line, col)
			n.Add(zero)
		}
		return n

	case lexer.KindReturn:
		p.advance()
		n := ast.New(ast.Return, line, col)
		if p.cur.Kind != lexer.Kind(';') {
			n.Add(p.expression())
		}
		return n

	default:
		e := p.expression()
		if p.cur.Kind == lexer.Kind('=') {
			if e.Kind != ast.ID {
				panic(diagnostics.New(diagnostics.NotAnLvalue, line, col,
					"assignment target is not an identifier"))
			}
			p.advance()
			assign := ast.New(ast.Assign, line, col)
			assign.Add(e)
			assign.Add(p.expression())
			return assign
		}
		return e
	}
}

// function parses a FUNC node: 'function' ID? '(' params ')' block. The
// original grammar tolerates an anonymous function (no identifier), naming
// it "anonymous"; this parser preserves that, so such a function is
// registered, and callable, under the name anonymous.
func (p *parser) function() *ast.Node {
	line, col := p.cur.Line, p.cur.Column
	p.expectNext(lexer.KindFunction)

	name := ast.New(ast.ID, line, col)
	if p.cur.Kind == lexer.KindIdent {
		name.StrVal = p.intern(p.cur.StrVal)
		p.advance()
	} else {
		name.StrVal = p.intern("anonymous")
	}

	p.expectNext(lexer.Kind('('))
	params := ast.New(ast.FuncParams, line, col)
	for p.cur.Kind != lexer.Kind(')') {
		params.Add(p.identifier())
		if p.cur.Kind != lexer.Kind(')') {
			p.expectNext(lexer.Kind(','))
		}
	}
	p.expectNext(lexer.Kind(')'))

	locals := ast.New(ast.FuncLocals, line, col)
	body := p.block()

	fn := ast.New(ast.Func, line, col)
	fn.Add(name)
	fn.Add(params)
	fn.Add(locals)
	fn.Add(body)
	return fn
}

func (p *parser) block() *ast.Node {
	line, col := p.cur.Line, p.cur.Column
	p.expectNext(lexer.Kind('{'))
	n := ast.New(ast.Abstract, line, col)
	for p.cur.Kind != lexer.Kind('}') {
		n.Add(p.statement())
		p.expectNext(lexer.Kind(';'))
	}
	p.advance()
	return n
}

func (p *parser) identifier() *ast.Node {
	line, col := p.cur.Line, p.cur.Column
	p.expect(lexer.KindIdent)
	n := ast.New(ast.ID, line, col)
	n.StrVal = p.intern(p.cur.StrVal)
	p.advance()
	return n
}

func (p *parser) binary(kind ast.Kind, line, col int, a, b *ast.Node) *ast.Node {
	n := ast.New(kind, line, col)
	n.Add(a)
	n.Add(b)
	return n
}

// expression is the logical tier ('and'/'or'), lowest precedence.
func (p *parser) expression() *ast.Node {
	a := p.expression2()
	line, col := p.cur.Line, p.cur.Column
	switch p.cur.Kind {
	case lexer.KindAnd:
		p.advance()
		return p.binary(ast.And, line, col, a, p.expression())
	case lexer.KindOr:
		p.advance()
		return p.binary(ast.Or, line, col, a, p.expression())
	default:
		return a
	}
}

// expression2 is the relational tier.
func (p *parser) expression2() *ast.Node {
	a := p.expression3()
	line, col := p.cur.Line, p.cur.Column
	switch p.cur.Kind {
	case lexer.KindEqEq:
		p.advance()
		return p.binary(ast.Equal, line, col, a, p.expression2())
	case lexer.KindNotEq:
		p.advance()
		return p.binary(ast.NotEqual, line, col, a, p.expression2())
	case lexer.Kind('<'):
		p.advance()
		return p.binary(ast.Less, line, col, a, p.expression2())
	case lexer.Kind('>'):
		p.advance()
		return p.binary(ast.Greater, line, col, a, p.expression2())
	case lexer.KindLtEq:
		p.advance()
		return p.binary(ast.LEqual, line, col, a, p.expression2())
	case lexer.KindGtEq:
		p.advance()
		return p.binary(ast.GEqual, line, col, a, p.expression2())
	default:
		return a
	}
}

// expression3 is the additive/concatenation tier.
func (p *parser) expression3() *ast.Node {
	a := p.expression4()
	line, col := p.cur.Line, p.cur.Column
	switch p.cur.Kind {
	case lexer.Kind('+'):
		p.advance()
		return p.binary(ast.Add, line, col, a, p.expression3())
	case lexer.Kind('-'):
		p.advance()
		return p.binary(ast.Sub, line, col, a, p.expression3())
	case lexer.Kind('$'):
		p.advance()
		return p.binary(ast.Cat, line, col, a, p.expression3())
	default:
		return a
	}
}

// expression4 is the multiplicative tier, the highest-precedence binary
// tier.
func (p *parser) expression4() *ast.Node {
	a := p.factor()
	line, col := p.cur.Line, p.cur.Column
	switch p.cur.Kind {
	case lexer.Kind('*'):
		p.advance()
		return p.binary(ast.Mul, line, col, a, p.expression4())
	case lexer.Kind('/'):
		p.advance()
		return p.binary(ast.Div, line, col, a, p.expression4())
	case lexer.Kind('%'):
		p.advance()
		return p.binary(ast.Mod, line, col, a, p.expression4())
	default:
		return a
	}
}

// factor parses a parenthesised expression, literal, identifier (plus an
// optional call or index suffix), unary minus, 'not', or array literal.
func (p *parser) factor() *ast.Node {
	line, col := p.cur.Line, p.cur.Column

	switch p.cur.Kind {
	case lexer.Kind('('):
		p.advance()
		e := p.expression()
		p.expectNext(lexer.Kind(')'))
		return e

	case lexer.KindTrue:
		p.advance()
		return ast.New(ast.True, line, col)

	case lexer.KindFalse:
		p.advance()
		return ast.New(ast.False, line, col)

	case lexer.KindNull:
		p.advance()
		return ast.New(ast.Null, line, col)

	case lexer.KindInt:
		n := ast.New(ast.Int, line, col)
		n.IntVal = p.cur.IntVal
		p.advance()
		return n

	case lexer.KindFloat:
		n := ast.New(ast.Float, line, col)
		n.FloatVal = p.cur.FloatVal
		p.advance()
		return n

	case lexer.KindString:
		n := ast.New(ast.String, line, col)
		n.StrVal = p.intern(p.cur.StrVal)
		p.advance()
		return n

	case lexer.KindIdent:
		id := p.identifier()

		if p.cur.Kind == lexer.Kind('(') {
			call := ast.New(ast.Call, line, col)
			call.Add(id)
			p.advance()
			if p.cur.Kind != lexer.Kind(')') {
				call.Add(p.expression())
				for p.cur.Kind == lexer.Kind(',') {
					p.advance()
					call.Add(p.expression())
				}
			}
			p.expectNext(lexer.Kind(')'))
			return call
		}

		if p.cur.Kind == lexer.Kind('[') {
			p.advance()
			index := p.expression()
			p.expectNext(lexer.Kind(']'))
			if p.cur.Kind == lexer.Kind('=') {
				p.advance()
				value := p.expression()
				n := ast.New(ast.ArraySet, line, col)
				n.Add(id)
				n.Add(index)
				n.Add(value)
				return n
			}
			n := ast.New(ast.ArrayGet, line, col)
			n.Add(id)
			n.Add(index)
			return n
		}

		return id

	case lexer.Kind('-'):
		p.advance()
		n := ast.New(ast.Neg, line, col)
		n.Add(p.factor())
		return n

	case lexer.KindNot:
		p.advance()
		n := ast.New(ast.Not, line, col)
		n.Add(p.expression())
		return n

	case lexer.Kind('['):
		p.advance()
		n := ast.New(ast.Array, line, col)
		for p.cur.Kind != lexer.Kind(']') {
			n.Add(p.factor())
			if p.cur.Kind != lexer.Kind(']') {
				p.expectNext(lexer.Kind(','))
			}
		}
		p.advance()
		return n

	default:
		panic(diagnostics.New(diagnostics.ExpectedToken, line, col,
			"invalid factor starting with %s", p.cur.Kind.String()))
	}
}
