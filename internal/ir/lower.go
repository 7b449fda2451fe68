package ir

import (
	"fmt"

	"purplegarden/internal/ast"
	"purplegarden/internal/ptype"
	"purplegarden/internal/typecheck"
)

// LowerError is a lowering-time fatal error (an undefined name that somehow
// slipped past the type checker, or a structural inconsistency); lowering
// itself does not re-validate types, since typecheck.Check already did.
type LowerError struct{ Msg string }

func (e *LowerError) Error() string { return e.Msg }

// lowering carries the per-function mutable state described in spec.md
// §4.2: monotonic id counters reset per function, the current function/block
// being built, and an identifier -> SSA-value-id environment. State is
// saved and restored around Fn nodes exactly as described there.
type lowering struct {
	types   typecheck.TypeMap
	funcs   []*Func
	funcIDs map[string]Id
	nextFn  Id

	cur       *Func
	curBlock  *Block
	nextValue Id
	nextBlock Id
	env       map[string]Id
}

// Lower transforms a type-checked AST into the program's list of SSA
// functions. Function id 0 is always the pseudo-function `entry`, which
// collects every top-level node.
func Lower(prog *ast.Program, types typecheck.TypeMap) ([]*Func, error) {
	l := &lowering{
		types:   types,
		funcIDs: make(map[string]Id),
		nextFn:  1,
		env:     make(map[string]Id),
	}
	entry := &Func{Id: 0, Name: "entry"}
	entryBlock := &Block{Id: 0}
	entry.Blocks = []*Block{entryBlock}
	l.cur = entry
	l.curBlock = entryBlock
	l.nextBlock = 1

	var last Id
	hasLast := false
	for _, n := range prog.Nodes {
		id, ok, err := l.lowerNode(n)
		if err != nil {
			return nil, err
		}
		if ok {
			last, hasLast = id, true
		}
	}
	if l.curBlock.Term == nil {
		if hasLast {
			l.curBlock.Term = &Terminator{Kind: TReturn, RetVal: last, HasRetVal: true}
		} else {
			l.curBlock.Term = &Terminator{Kind: TReturn}
		}
	}
	l.funcs = append(l.funcs, entry)
	// funcs built along the way (from Fn nodes) were appended directly to
	// l.funcs as they were lowered; splice entry in as the first element.
	ordered := make([]*Func, 0, len(l.funcs)+1)
	ordered = append(ordered, entry)
	for _, f := range l.funcs {
		if f != entry {
			ordered = append(ordered, f)
		}
	}
	return ordered, nil
}

func (l *lowering) newValue() Id {
	id := l.nextValue
	l.nextValue++
	return id
}

func (l *lowering) newBlock() *Block {
	b := &Block{Id: l.nextBlock}
	l.nextBlock++
	l.cur.Blocks = append(l.cur.Blocks, b)
	return b
}

func (l *lowering) emit(i Instr) {
	l.curBlock.Instructions = append(l.curBlock.Instructions, i)
}

// lowerNode lowers one AST node, returning the SSA id it produced (if any —
// Fn doesn't produce a usable value in statement position, and a Let whose
// RHS produced no value is a LowerError).
func (l *lowering) lowerNode(n ast.Node) (Id, bool, error) {
	switch node := n.(type) {
	case *ast.Atom:
		dst := l.newValue()
		l.emit(Instr{Kind: ILoadConst, Dst: TypedValue{Id: dst, Type: l.typeOf(node.Id)}, Const: node.Const})
		return dst, true, nil

	case *ast.Ident:
		id, ok := l.env[node.Name]
		if !ok {
			return 0, false, &LowerError{Msg: "lowering: undefined variable `" + node.Name + "`"}
		}
		return id, true, nil

	case *ast.Bin:
		lhs, _, err := l.lowerNode(node.Lhs)
		if err != nil {
			return 0, false, err
		}
		rhs, _, err := l.lowerNode(node.Rhs)
		if err != nil {
			return 0, false, err
		}
		dst := l.newValue()
		l.emit(Instr{Kind: binInstrKind(node.Op), Dst: TypedValue{Id: dst, Type: l.typeOf(node.Id)}, Lhs: lhs, Rhs: rhs})
		return dst, true, nil

	case *ast.Let:
		rhs, ok, err := l.lowerNode(node.Rhs)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, &LowerError{Msg: "lowering: RHS of let produced no value"}
		}
		l.env[node.Name] = rhs
		return rhs, true, nil

	case *ast.Fn:
		return l.lowerFn(node)

	case *ast.Call:
		fnID, ok := l.funcIDs[node.Callee]
		if !ok {
			return 0, false, &LowerError{Msg: "lowering: undefined function `" + node.Callee + "`"}
		}
		args := make([]Id, len(node.Args))
		for i, a := range node.Args {
			aid, _, err := l.lowerNode(a)
			if err != nil {
				return 0, false, err
			}
			args[i] = aid
		}
		dst := l.newValue()
		l.emit(Instr{Kind: ICall, CallDst: dst, CallFunc: fnID, CallArgs: args})
		return dst, true, nil

	case *ast.Cast:
		from, _, err := l.lowerNode(node.Operand)
		if err != nil {
			return 0, false, err
		}
		dst := l.newValue()
		l.emit(Instr{Kind: ICast, Dst: TypedValue{Id: dst, Type: node.Target}, Lhs: from})
		return dst, true, nil

	case *ast.Match:
		return l.lowerMatch(node)

	default:
		return 0, false, &LowerError{Msg: fmt.Sprintf("lowering: unhandled node %T", n)}
	}
}

func (l *lowering) typeOf(id ast.Id) ptype.Type {
	if t, ok := l.types[id]; ok {
		return t
	}
	return ptype.VoidT()
}

func binInstrKind(op ast.BinOp) InstrKind {
	switch op {
	case ast.Add:
		return IAdd
	case ast.Sub:
		return ISub
	case ast.Mul:
		return IMul
	case ast.Div:
		return IDiv
	case ast.Eq:
		return IEq
	case ast.Lt:
		return ILt
	case ast.Gt:
		return IGt
	default:
		panic("ir: unreachable bin op")
	}
}

// lowerFn saves the enclosing function's lowering state, lowers the function
// body into a fresh Func, and restores state — the scoped
// acquire/release discipline spec.md §5 requires ("must restore on every
// exit path, including errors").
func (l *lowering) lowerFn(node *ast.Fn) (Id, bool, error) {
	savedCur, savedBlock := l.cur, l.curBlock
	savedNextValue, savedNextBlock := l.nextValue, l.nextBlock
	savedEnv := l.env
	defer func() {
		l.cur, l.curBlock = savedCur, savedBlock
		l.nextValue, l.nextBlock = savedNextValue, savedNextBlock
		l.env = savedEnv
	}()

	fnID := l.nextFn
	l.nextFn++
	l.funcIDs[node.Name] = fnID

	fn := &Func{Id: fnID, Name: node.Name}
	if node.Ret.Kind != ptype.Void {
		ret := node.Ret
		fn.Ret = &ret
	}
	entry := &Block{Id: 0}
	fn.Blocks = []*Block{entry}

	l.cur = fn
	l.curBlock = entry
	l.nextValue = 0
	l.nextBlock = 1
	l.env = make(map[string]Id)

	for _, p := range node.Params {
		pid := l.newValue()
		entry.Params = append(entry.Params, TypedValue{Id: pid, Type: p.Type})
		l.env[p.Name] = pid
	}

	var last Id
	hasLast := false
	for _, stmt := range node.Body {
		id, ok, err := l.lowerNode(stmt)
		if err != nil {
			return 0, false, err
		}
		if ok {
			last, hasLast = id, true
		}
	}
	if l.curBlock.Term == nil {
		if node.Ret.Kind != ptype.Void && hasLast {
			l.curBlock.Term = &Terminator{Kind: TReturn, RetVal: last, HasRetVal: true}
		} else {
			l.curBlock.Term = &Terminator{Kind: TReturn}
		}
	}
	l.funcs = append(l.funcs, fn)
	return 0, false, nil
}

// lowerMatch implements spec.md §4.3 exactly: check_i/body_i pairs, a
// default_block, and a join block whose single parameter is the match's
// value — no phi functions needed.
func (l *lowering) lowerMatch(node *ast.Match) (Id, bool, error) {
	n := len(node.Arms)
	checks := make([]*Block, n)
	bodies := make([]*Block, n)
	for i := 0; i < n; i++ {
		checks[i] = l.newBlock()
		bodies[i] = l.newBlock()
	}
	defaultBlock := l.newBlock()
	join := l.newBlock()
	joinParam := l.newValue()
	join.Params = []TypedValue{{Id: joinParam, Type: l.typeOf(node.Id)}}

	// Fall through from the current block into check_0 (or straight to the
	// default block if there are no conditional arms at all).
	first := defaultBlock
	if n > 0 {
		first = checks[0]
	}
	l.curBlock.Term = &Terminator{Kind: TJump, Jump: Edge{Target: first.Id}}

	for i := 0; i < n; i++ {
		l.curBlock = checks[i]
		cond, _, err := l.lowerNode(node.Arms[i].Cond)
		if err != nil {
			return 0, false, err
		}
		next := defaultBlock
		if i+1 < n {
			next = checks[i+1]
		}
		// Branch edges never carry block parameters: match-lowering
		// guarantees both check_i's targets (body_i and the next check, or
		// default_block) are always zero-param blocks. See DESIGN.md's
		// resolution of the branch-block-arguments open question.
		l.curBlock.Term = &Terminator{Kind: TBranch, Cond: cond, Yes: Edge{Target: bodies[i].Id}, No: Edge{Target: next.Id}}

		l.curBlock = bodies[i]
		v, _, err := l.lowerBody(node.Arms[i].Body)
		if err != nil {
			return 0, false, err
		}
		l.curBlock.Term = &Terminator{Kind: TJump, Jump: Edge{Target: join.Id, Args: []Id{v}}}
	}

	l.curBlock = defaultBlock
	v, _, err := l.lowerBody(node.Default)
	if err != nil {
		return 0, false, err
	}
	l.curBlock.Term = &Terminator{Kind: TJump, Jump: Edge{Target: join.Id, Args: []Id{v}}}

	l.curBlock = join
	return joinParam, true, nil
}

func (l *lowering) lowerBody(body []ast.Node) (Id, bool, error) {
	var last Id
	hasLast := false
	for _, n := range body {
		id, ok, err := l.lowerNode(n)
		if err != nil {
			return 0, false, err
		}
		if ok {
			last, hasLast = id, true
		}
	}
	if !hasLast {
		return 0, false, &LowerError{Msg: "lowering: match arm body produced no value"}
	}
	return last, true, nil
}
