// Package typecheck walks a purple-garden AST and produces a node-id ->
// resolved-type map, failing fatally on the first conflict (spec.md §4.1).
//
// The original implementation's ir/typecheck.rs is an unimplemented stub
// (`todo!()`); the rule set here follows spec.md's prose directly. The
// scope-stack shape (push/pop around function bodies) is grounded on
// ir/lower.rs's own `env: HashMap<&str, Id>` save/restore discipline, since
// the checker's environment plays the same structural role one level higher
// (names -> types instead of names -> SSA ids).
package typecheck

import (
	"purplegarden/internal/ast"
	"purplegarden/internal/errors"
	"purplegarden/internal/ptype"
)

// FuncSig is a registered function signature, used to validate calls.
type FuncSig struct {
	Params []ptype.Type
	Ret    ptype.Type
}

// TypeMap maps every AST node-id the checker accepted to its resolved type.
type TypeMap map[ast.Id]ptype.Type

type scope struct {
	vars map[string]ptype.Type
}

// Checker performs the bidirectional walk described in spec.md §4.1.
type Checker struct {
	types     TypeMap
	scopes    []scope
	functions map[string]FuncSig
}

func NewChecker() *Checker {
	return &Checker{
		types:     make(TypeMap),
		scopes:    []scope{{vars: make(map[string]ptype.Type)}},
		functions: make(map[string]FuncSig),
	}
}

func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, scope{vars: make(map[string]ptype.Type)})
}

func (c *Checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Checker) bind(name string, t ptype.Type) {
	c.scopes[len(c.scopes)-1].vars[name] = t
}

func (c *Checker) lookup(name string) (ptype.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i].vars[name]; ok {
			return t, true
		}
	}
	return ptype.Type{}, false
}

// Check type-checks an entire program and returns the resulting TypeMap, or
// the first Diagnostic encountered.
func Check(prog *ast.Program) (TypeMap, error) {
	c := NewChecker()
	// Pre-register every top-level function signature first so that forward
	// calls (a function calling one declared later at top level) resolve;
	// the original source's scope is a single top-level map for exactly this
	// reason ("Globals ... share a top-level scope").
	for _, n := range prog.Nodes {
		if fn, ok := n.(*ast.Fn); ok {
			sig := FuncSig{Ret: fn.Ret}
			for _, p := range fn.Params {
				sig.Params = append(sig.Params, p.Type)
			}
			c.functions[fn.Name] = sig
		}
	}
	for _, n := range prog.Nodes {
		if _, err := c.synth(n); err != nil {
			return nil, err
		}
	}
	return c.types, nil
}

func (c *Checker) record(id ast.Id, t ptype.Type) ptype.Type {
	c.types[id] = t
	return t
}

// synth synthesises the type of n bottom-up, recording it in the type map.
func (c *Checker) synth(n ast.Node) (ptype.Type, error) {
	switch node := n.(type) {
	case *ast.Atom:
		return c.record(node.Id, node.Const.Type()), nil

	case *ast.Ident:
		t, ok := c.lookup(node.Name)
		if !ok {
			return ptype.Type{}, errors.NewDiagnostic(errors.UndefinedBinding, "undefined binding `"+node.Name+"`", 0, 0, 0)
		}
		return c.record(node.Id, t), nil

	case *ast.Bin:
		lt, err := c.synth(node.Lhs)
		if err != nil {
			return ptype.Type{}, err
		}
		rt, err := c.synth(node.Rhs)
		if err != nil {
			return ptype.Type{}, err
		}
		switch node.Op {
		case ast.Add, ast.Sub, ast.Mul, ast.Div:
			if lt.Kind == ptype.Int && rt.Kind == ptype.Int {
				return c.record(node.Id, ptype.IntT()), nil
			}
			if lt.Kind == ptype.Double && rt.Kind == ptype.Double {
				return c.record(node.Id, ptype.DoubleT()), nil
			}
			return ptype.Type{}, errors.NewDiagnostic(errors.TypeError,
				"incompatible types "+lt.String()+" and "+rt.String()+" for "+node.Op.String(), 0, 0, 0)
		default: // Eq, Lt, Gt
			if !lt.Equal(rt) {
				return ptype.Type{}, errors.NewDiagnostic(errors.TypeError,
					"incompatible types "+lt.String()+" and "+rt.String()+" for "+node.Op.String(), 0, 0, 0)
			}
			return c.record(node.Id, ptype.BoolT()), nil
		}

	case *ast.Let:
		rt, err := c.synth(node.Rhs)
		if err != nil {
			return ptype.Type{}, err
		}
		if rt.Kind == ptype.Void {
			return ptype.Type{}, errors.NewDiagnostic(errors.EmptyBindingValue, "let RHS produced no value", 0, 0, 0)
		}
		c.bind(node.Name, rt)
		return c.record(node.Id, rt), nil

	case *ast.Fn:
		c.pushScope()
		for _, p := range node.Params {
			c.bind(p.Name, p.Type)
		}
		bodyT := ptype.VoidT()
		for _, stmt := range node.Body {
			t, err := c.synth(stmt)
			if err != nil {
				c.popScope()
				return ptype.Type{}, err
			}
			bodyT = t
		}
		c.popScope()
		if !bodyT.Equal(node.Ret) {
			return ptype.Type{}, errors.NewDiagnostic(errors.ReturnTypeMismatch,
				"function `"+node.Name+"` declared "+node.Ret.String()+" but body produced "+bodyT.String(), 0, 0, 0)
		}
		c.functions[node.Name] = FuncSig{Params: paramTypes(node.Params), Ret: node.Ret}
		return c.record(node.Id, ptype.VoidT()), nil

	case *ast.Call:
		sig, ok := c.functions[node.Callee]
		if !ok {
			return ptype.Type{}, errors.NewDiagnostic(errors.UndefinedFunction, "undefined function `"+node.Callee+"`", 0, 0, 0)
		}
		if len(node.Args) != len(sig.Params) {
			return ptype.Type{}, errors.NewDiagnostic(errors.ArgCountMismatch,
				"call to `"+node.Callee+"` expected a different argument count", 0, 0, 0)
		}
		for i, arg := range node.Args {
			at, err := c.synth(arg)
			if err != nil {
				return ptype.Type{}, err
			}
			if !at.Equal(sig.Params[i]) {
				return ptype.Type{}, errors.NewDiagnostic(errors.ArgTypeMismatch,
					"argument type mismatch in call to `"+node.Callee+"`", 0, 0, 0)
			}
		}
		return c.record(node.Id, sig.Ret), nil

	case *ast.Cast:
		ot, err := c.synth(node.Operand)
		if err != nil {
			return ptype.Type{}, err
		}
		isIntDouble := (ot.Kind == ptype.Int && node.Target.Kind == ptype.Double) ||
			(ot.Kind == ptype.Double && node.Target.Kind == ptype.Int)
		if !isIntDouble {
			return ptype.Type{}, errors.NewDiagnostic(errors.CastTypeError,
				"cannot cast "+ot.String()+" to "+node.Target.String(), 0, 0, 0)
		}
		return c.record(node.Id, node.Target), nil

	case *ast.Match:
		var armType *ptype.Type
		for _, arm := range node.Arms {
			condT, err := c.synth(arm.Cond)
			if err != nil {
				return ptype.Type{}, err
			}
			if condT.Kind != ptype.Bool {
				return ptype.Type{}, errors.NewDiagnostic(errors.NonBoolMatchCondition, "match condition must be bool", 0, 0, 0)
			}
			bt, err := c.synthBody(arm.Body)
			if err != nil {
				return ptype.Type{}, err
			}
			if armType == nil {
				armType = &bt
			} else if !armType.Equal(bt) {
				return ptype.Type{}, errors.NewDiagnostic(errors.IncompatibleMatchCaseType, "match arms must all produce the same type", 0, 0, 0)
			}
		}
		dt, err := c.synthBody(node.Default)
		if err != nil {
			return ptype.Type{}, err
		}
		if armType == nil {
			armType = &dt
		} else if !armType.Equal(dt) {
			return ptype.Type{}, errors.NewDiagnostic(errors.IncompatibleMatchCaseType, "default arm type must match the other arms", 0, 0, 0)
		}
		return c.record(node.Id, *armType), nil

	default:
		return ptype.Type{}, errors.NewDiagnostic(errors.TypeError, "unhandled AST node in type checker", 0, 0, 0)
	}
}

func (c *Checker) synthBody(body []ast.Node) (ptype.Type, error) {
	t := ptype.VoidT()
	for _, n := range body {
		var err error
		t, err = c.synth(n)
		if err != nil {
			return ptype.Type{}, err
		}
	}
	return t, nil
}

func paramTypes(params []ast.Param) []ptype.Type {
	ts := make([]ptype.Type, len(params))
	for i, p := range params {
		ts[i] = p.Type
	}
	return ts
}
