// Package ast defines the purple-garden abstract syntax tree. Every node
// carries a monotonically-assigned node-id (stamped by the parser) so that
// the type checker can hand back a node-id -> ptype.Type map and lowering can
// look the resolved type back up without re-deriving it.
//
// The node set and the Accept/Visitor shape follow the teacher's
// internal/parser/ast.go; the node kinds themselves follow the lowering rules
// of the purple-garden pipeline instead of the teacher's scripting grammar.
package ast

import "purplegarden/internal/ptype"

// Id is a node-id, unique within one parse.
type Id uint32

type Node interface {
	NodeId() Id
	Accept(v Visitor) any
}

type Visitor interface {
	VisitAtom(n *Atom) any
	VisitIdent(n *Ident) any
	VisitBin(n *Bin) any
	VisitLet(n *Let) any
	VisitFn(n *Fn) any
	VisitCall(n *Call) any
	VisitCast(n *Cast) any
	VisitMatch(n *Match) any
}

// Atom is a literal: int, double, string or bool.
type Atom struct {
	Id    Id
	Const ptype.Const
}

func (a *Atom) NodeId() Id           { return a.Id }
func (a *Atom) Accept(v Visitor) any { return v.VisitAtom(a) }

// Ident references a previously-bound name.
type Ident struct {
	Id   Id
	Name string
}

func (i *Ident) NodeId() Id           { return i.Id }
func (i *Ident) Accept(v Visitor) any { return v.VisitIdent(i) }

// BinOp enumerates the arithmetic and comparison operators purple-garden
// supports at the AST level.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Eq
	Lt
	Gt
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Eq:
		return "=="
	case Lt:
		return "<"
	case Gt:
		return ">"
	default:
		return "?"
	}
}

// Bin is a binary expression: lhs op rhs.
type Bin struct {
	Id       Id
	Op       BinOp
	Lhs, Rhs Node
}

func (b *Bin) NodeId() Id           { return b.Id }
func (b *Bin) Accept(v Visitor) any { return v.VisitBin(b) }

// Let binds Name to the value produced by Rhs, for the remainder of the
// enclosing scope.
type Let struct {
	Id   Id
	Name string
	Rhs  Node
}

func (l *Let) NodeId() Id           { return l.Id }
func (l *Let) Accept(v Visitor) any { return v.VisitLet(l) }

// Param is a typed function parameter.
type Param struct {
	Name string
	Type ptype.Type
}

// Fn declares a function: typed parameters, an optional return type (Void if
// absent), and a body — a sequence of nodes whose last expression is the
// function's result.
type Fn struct {
	Id     Id
	Name   string
	Params []Param
	Ret    ptype.Type
	Body   []Node
}

func (f *Fn) NodeId() Id           { return f.Id }
func (f *Fn) Accept(v Visitor) any { return v.VisitFn(f) }

// Call invokes Callee (a function name) with Args, left to right.
type Call struct {
	Id     Id
	Callee string
	Args   []Node
}

func (c *Call) NodeId() Id           { return c.Id }
func (c *Call) Accept(v Visitor) any { return v.VisitCall(c) }

// Cast converts Operand to Target (only Int<->Double is legal; the type
// checker enforces that, not the AST).
type Cast struct {
	Id      Id
	Operand Node
	Target  ptype.Type
}

func (c *Cast) NodeId() Id           { return c.Id }
func (c *Cast) Accept(v Visitor) any { return v.VisitCast(c) }

// Arm is one `cond { body }` pair of a match expression. Body is a sequence
// of nodes whose last expression is the arm's value.
type Arm struct {
	Cond Node
	Body []Node
}

// Match is a multi-arm match expression with a mandatory default. Arms holds
// only the conditional arms (every Cond is non-nil); the default body is
// held separately in Default.
type Match struct {
	Id   Id
	Arms []Arm
	// Default is the mandatory fallback body, always present: a match
	// without one is a parse error, not a representable AST shape.
	Default []Node
}

func (m *Match) NodeId() Id           { return m.Id }
func (m *Match) Accept(v Visitor) any { return v.VisitMatch(m) }

// Program is the ordered sequence of top-level nodes (the pseudo-function
// `entry`'s body).
type Program struct {
	Nodes []Node
}
