// Package parser implements a precedence-climbing recursive-descent parser
// over the purple-garden token stream, in the style of the teacher's
// internal/parser/parser.go (same parseBinary/precedence-table shape), but
// producing internal/ast nodes stamped with monotonic node-ids instead of the
// teacher's untagged expression tree.
package parser

import (
	"fmt"
	"math"

	"purplegarden/internal/ast"
	"purplegarden/internal/lexer"
	"purplegarden/internal/ptype"
)

func doubleBits(f float64) uint64 { return math.Float64bits(f) }

// precedence mirrors the teacher's table: higher binds tighter.
// Neq ("!=") is deliberately not lexed into a comparison operator here: the
// IR's instruction set (spec.md §3) and the bytecode table (§4.5) both only
// ever name Eq/Lt/Gt among comparisons, so != has no instruction to lower to
// — see DESIGN.md for the resolution of this tension with §4.1's prose.
var precedence = map[lexer.TokenType]int{
	lexer.TokenDouble2: 1,
	lexer.TokenLT:      1,
	lexer.TokenGT:      1,
	lexer.TokenPlus:    2,
	lexer.TokenMinus:   2,
	lexer.TokenStar:    3,
	lexer.TokenSlash:   3,
}

var binOps = map[lexer.TokenType]ast.BinOp{
	lexer.TokenPlus:    ast.Add,
	lexer.TokenMinus:   ast.Sub,
	lexer.TokenStar:    ast.Mul,
	lexer.TokenSlash:   ast.Div,
	lexer.TokenDouble2: ast.Eq,
	lexer.TokenLT:      ast.Lt,
	lexer.TokenGT:      ast.Gt,
}

// SyntaxError is returned for any malformed input; it carries enough to
// render a caret diagnostic (see internal/errors).
type SyntaxError struct {
	Msg        string
	Line, Col  int
	Len        int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Msg, e.Line, e.Col)
}

type Parser struct {
	tokens  []lexer.Token
	current int
	nextID  ast.Id
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) id() ast.Id {
	id := p.nextID
	p.nextID++
	return id
}

// Parse consumes the whole token stream and returns the top-level node
// sequence (the body of the pseudo-function `entry`).
func (p *Parser) Parse() (*ast.Program, error) {
	var nodes []ast.Node
	for !p.isAtEnd() {
		n, err := p.topLevel()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return &ast.Program{Nodes: nodes}, nil
}

func (p *Parser) topLevel() (ast.Node, error) {
	switch p.peek().Type {
	case lexer.TokenLet:
		return p.letStmt()
	case lexer.TokenFn:
		return p.fnStmt()
	default:
		return p.expression()
	}
}

func (p *Parser) letStmt() (ast.Node, error) {
	id := p.id()
	p.advance() // let
	name, err := p.consume(lexer.TokenIdent, "expected identifier after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenEqual, "expected '=' in let binding"); err != nil {
		return nil, err
	}
	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Let{Id: id, Name: name.Lexeme, Rhs: rhs}, nil
}

func (p *Parser) typeName() (ptype.Type, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenTypeBool:
		p.advance()
		return ptype.BoolT(), nil
	case lexer.TokenTypeInt:
		p.advance()
		return ptype.IntT(), nil
	case lexer.TokenTypeDouble:
		p.advance()
		return ptype.DoubleT(), nil
	case lexer.TokenTypeStr:
		p.advance()
		return ptype.StrT(), nil
	case lexer.TokenTypeVoid:
		p.advance()
		return ptype.VoidT(), nil
	default:
		return ptype.Type{}, &SyntaxError{Msg: "expected a type name", Line: tok.Line, Col: tok.Column, Len: len(tok.Lexeme)}
	}
}

func (p *Parser) fnStmt() (ast.Node, error) {
	id := p.id()
	p.advance() // fn
	name, err := p.consume(lexer.TokenIdent, "expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenLParen, "expected '(' after function name"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for p.peek().Type != lexer.TokenRParen {
		pname, err := p.consume(lexer.TokenIdent, "expected parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokenColon, "expected ':' after parameter name"); err != nil {
			return nil, err
		}
		ptyp, err := p.typeName()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname.Lexeme, Type: ptyp})
		if p.peek().Type == lexer.TokenComma {
			p.advance()
		}
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	ret := ptype.VoidT()
	if p.peek().Type != lexer.TokenLBrace {
		ret, err = p.typeName()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.Fn{Id: id, Name: name.Lexeme, Params: params, Ret: ret, Body: body}, nil
}

// block parses `{ node node ... }`, allowing let/fn as statements inside too.
func (p *Parser) block() ([]ast.Node, error) {
	if _, err := p.consume(lexer.TokenLBrace, "expected '{'"); err != nil {
		return nil, err
	}
	var nodes []ast.Node
	for p.peek().Type != lexer.TokenRBrace && !p.isAtEnd() {
		n, err := p.topLevel()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if _, err := p.consume(lexer.TokenRBrace, "expected '}'"); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *Parser) expression() (ast.Node, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) (ast.Node, error) {
	left, err := p.parseCast()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.Bin{Id: p.id(), Op: binOps[tok.Type], Lhs: left, Rhs: right}
	}
	return left, nil
}

// parseCast handles the postfix `expr as type` form.
func (p *Parser) parseCast() (ast.Node, error) {
	expr, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.TokenAs {
		id := p.id()
		p.advance()
		target, err := p.typeName()
		if err != nil {
			return nil, err
		}
		expr = &ast.Cast{Id: id, Operand: expr, Target: target}
	}
	return expr, nil
}

func (p *Parser) parseCall() (ast.Node, error) {
	if p.peek().Type == lexer.TokenMatch {
		return p.matchExpr()
	}
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.TokenLParen {
		expr, err = p.finishCall(expr)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) finishCall(callee ast.Node) (ast.Node, error) {
	id := p.id()
	ident, ok := callee.(*ast.Ident)
	if !ok {
		return nil, &SyntaxError{Msg: "call target must be a name", Line: p.peek().Line, Col: p.peek().Column}
	}
	p.advance() // (
	var args []ast.Node
	for p.peek().Type != lexer.TokenRParen {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Type == lexer.TokenComma {
			p.advance()
		}
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after arguments"); err != nil {
		return nil, err
	}
	return &ast.Call{Id: id, Callee: ident.Name, Args: args}, nil
}

// matchExpr implements spec.md's §4.3 surface grammar:
// match { cond { body } cond { body } ... { default } }
func (p *Parser) matchExpr() (ast.Node, error) {
	id := p.id()
	p.advance() // match
	if _, err := p.consume(lexer.TokenLBrace, "expected '{' after 'match'"); err != nil {
		return nil, err
	}
	var arms []ast.Arm
	for p.peek().Type != lexer.TokenRBrace {
		if p.peek().Type == lexer.TokenLBrace {
			// the default arm: a bare body with no condition.
			body, err := p.block()
			if err != nil {
				return nil, err
			}
			arms = append(arms, ast.Arm{Cond: nil, Body: body})
			break
		}
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.Arm{Cond: cond, Body: body})
	}
	if _, err := p.consume(lexer.TokenRBrace, "expected '}' to close match"); err != nil {
		return nil, err
	}
	if len(arms) == 0 || arms[len(arms)-1].Cond != nil {
		last := p.previous()
		return nil, &SyntaxError{Msg: "match requires a mandatory default arm", Line: last.Line, Col: last.Column}
	}
	def := arms[len(arms)-1]
	arms = arms[:len(arms)-1]
	return &ast.Match{Id: id, Arms: arms, Default: def.Body}, nil
}

func (p *Parser) primary() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenTrue:
		p.advance()
		return &ast.Atom{Id: p.id(), Const: ptype.True()}, nil
	case lexer.TokenFalse:
		p.advance()
		return &ast.Atom{Id: p.id(), Const: ptype.False()}, nil
	case lexer.TokenInt:
		p.advance()
		var i int64
		if _, err := fmt.Sscanf(tok.Lexeme, "%d", &i); err != nil {
			return nil, &SyntaxError{Msg: "invalid integer literal: " + err.Error(), Line: tok.Line, Col: tok.Column}
		}
		return &ast.Atom{Id: p.id(), Const: ptype.IntC(i)}, nil
	case lexer.TokenDouble:
		p.advance()
		var f float64
		if _, err := fmt.Sscanf(tok.Lexeme, "%g", &f); err != nil {
			return nil, &SyntaxError{Msg: "invalid double literal: " + err.Error(), Line: tok.Line, Col: tok.Column}
		}
		return &ast.Atom{Id: p.id(), Const: ptype.DoubleC(doubleBits(f))}, nil
	case lexer.TokenString:
		p.advance()
		return &ast.Atom{Id: p.id(), Const: ptype.StrC(tok.Lexeme)}, nil
	case lexer.TokenIdent:
		p.advance()
		return &ast.Ident{Id: p.id(), Name: tok.Lexeme}, nil
	case lexer.TokenLParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokenRParen, "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, &SyntaxError{Msg: "unexpected token " + string(tok.Type), Line: tok.Line, Col: tok.Column, Len: len(tok.Lexeme)}
	}
}

func (p *Parser) consume(t lexer.TokenType, msg string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return lexer.Token{}, &SyntaxError{Msg: msg, Line: tok.Line, Col: tok.Column, Len: len(tok.Lexeme)}
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) previous() lexer.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
