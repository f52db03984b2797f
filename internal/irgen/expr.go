package irgen

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/scope"
	"ember/internal/source"
)

func (g *generator) expr(e ast.Expr) ir.Value {
	return g.exprNamed(e, "")
}

// exprNamed lowers e; an anonymous function expression takes hint as its
// name.
func (g *generator) exprNamed(e ast.Expr, hint string) ir.Value {
	if g.err != nil {
		return g.m.Undefined()
	}
	g.b.Span = e.Span
	switch n := e.Data.(type) {
	case *ast.EIdentifier:
		if d, ok := g.info.Ref(n); ok {
			return g.loadDecl(d)
		}
		if n.Name == "undefined" {
			return g.m.Undefined()
		}
		return g.b.CreateTryLoadGlobal(n.Name)
	case *ast.ENumber:
		return g.m.Number(n.Value)
	case *ast.EString:
		return g.m.Str(n.Value)
	case *ast.EBoolean:
		return g.m.Bool(n.Value)
	case *ast.ENull:
		return g.m.Null()
	case *ast.EUndefined:
		return g.m.Undefined()
	case *ast.EBigInt:
		return g.m.BigInt(n.Digits)
	case *ast.EThis:
		if g.fn.this == nil {
			g.fail(e.Span, "'this' was not resolved")
			return g.m.Undefined()
		}
		return g.fn.this
	case *ast.EObject:
		return g.object(n, e.Span)
	case *ast.EArray:
		elems := make([]ir.Value, len(n.Items))
		for i, item := range n.Items {
			if item.Missing() {
				elems[i] = g.m.Empty()
				continue
			}
			elems[i] = g.expr(item)
		}
		g.b.Span = e.Span
		return g.b.CreateAllocArray(elems...)
	case *ast.EUnary:
		return g.unary(n, e.Span)
	case *ast.EUpdate:
		return g.update(n, e.Span)
	case *ast.EBinary:
		if n.Op.IsLogical() {
			return g.logical(n.Op, n.Left, n.Right, e.Span)
		}
		if !n.Op.IsBinary() {
			g.fail(e.Span, "operator %s is not binary", n.Op)
			return g.m.Undefined()
		}
		l := g.expr(n.Left)
		r := g.expr(n.Right)
		g.b.Span = e.Span
		return g.b.CreateBinary(n.Op.String(), l, r)
	case *ast.EAssign:
		return g.assign(n, e.Span)
	case *ast.EIf:
		return g.conditional(n, e.Span)
	case *ast.EDot:
		obj := g.expr(n.Target)
		g.b.Span = e.Span
		return g.b.CreateLoadProperty(obj, g.m.Str(n.Name))
	case *ast.EIndex:
		obj := g.expr(n.Target)
		key := g.expr(n.Index)
		g.b.Span = e.Span
		return g.b.CreateLoadProperty(obj, key)
	case *ast.ECall:
		return g.call(n, e.Span)
	case *ast.ENew:
		return g.construct(n, e.Span)
	case *ast.EFunction:
		f := g.function(n.Fn, hint)
		if f == nil {
			return g.m.Undefined()
		}
		g.b.Span = e.Span
		return g.b.CreateFunction(f)
	case *ast.EYield:
		if g.fn.f.Kind != ir.FuncGenerator {
			return g.semaError(diag.SemaYieldOutsideGen, e.Span, "'yield' is only valid in a generator function")
		}
		if n.Delegate {
			return g.semaError(diag.SemaError, e.Span, "delegating 'yield*' is not supported")
		}
		v := ir.Value(g.m.Undefined())
		if !n.Value.Missing() {
			v = g.expr(n.Value)
		}
		g.b.Span = e.Span
		return g.b.CreateYield(v)
	case *ast.EAwait:
		if g.fn.f.Kind != ir.FuncAsync {
			return g.semaError(diag.SemaAwaitOutsideAsync, e.Span, "'await' is only valid in an async function")
		}
		v := g.expr(n.Value)
		g.b.Span = e.Span
		return g.b.CreateAwait(v)
	case *ast.ESequence:
		if len(n.Exprs) == 0 {
			g.fail(e.Span, "empty sequence expression")
			return g.m.Undefined()
		}
		var last ir.Value
		for _, x := range n.Exprs {
			last = g.expr(x)
		}
		return last
	case nil:
		g.fail(e.Span, "missing expression")
	default:
		g.fail(e.Span, "unexpected expression %T", n)
	}
	return g.m.Undefined()
}

func (g *generator) unary(n *ast.EUnary, sp source.Span) ir.Value {
	switch n.Op {
	case ast.UnOpDelete:
		return g.delete(n.Value, sp)
	case ast.UnOpVoid:
		g.expr(n.Value)
		return g.m.Undefined()
	case ast.UnOpTypeof:
		// typeof of an undeclared name must not throw.
		if id, ok := n.Value.Data.(*ast.EIdentifier); ok {
			if _, bound := g.info.Ref(id); !bound && id.Name != "undefined" {
				g.b.Span = n.Value.Span
				v := g.b.CreateLoadProperty(g.m.Global(), g.m.Str(id.Name))
				g.b.Span = sp
				return g.b.CreateUnary("typeof", v)
			}
		}
	case ast.UnOpPos:
		v := g.expr(n.Value)
		g.b.Span = sp
		return g.b.CreateAsNumber(v)
	case ast.UnOpNeg, ast.UnOpCpl, ast.UnOpNot:
	default:
		g.fail(sp, "operator %s is not a prefix operator", n.Op)
		return g.m.Undefined()
	}
	v := g.expr(n.Value)
	g.b.Span = sp
	return g.b.CreateUnary(n.Op.String(), v)
}

func (g *generator) delete(target ast.Expr, sp source.Span) ir.Value {
	switch t := target.Data.(type) {
	case *ast.EIdentifier:
		if g.fn.strict {
			return g.semaError(diag.SemaDeleteBinding, sp, "cannot delete a variable in strict mode code")
		}
		return g.m.Bool(false)
	case *ast.EDot:
		obj := g.expr(t.Target)
		g.b.Span = sp
		return g.b.CreateDeleteProperty(obj, g.m.Str(t.Name))
	case *ast.EIndex:
		obj := g.expr(t.Target)
		key := g.expr(t.Index)
		g.b.Span = sp
		return g.b.CreateDeleteProperty(obj, key)
	}
	g.expr(target)
	return g.m.Bool(true)
}

type refKind uint8

const (
	refBinding refKind = iota
	refMember
)

// ref is an evaluated assignment target.
type ref struct {
	kind refKind
	decl scope.DeclID
	name string
	obj  ir.Value
	key  ir.Value
}

// reference evaluates the object and key parts of target once, so the
// read and the write of a compound assignment share them.
func (g *generator) reference(target ast.Expr) (ref, bool) {
	switch t := target.Data.(type) {
	case *ast.EIdentifier:
		d, _ := g.info.Ref(t)
		return ref{kind: refBinding, decl: d, name: t.Name}, true
	case *ast.EDot:
		return ref{kind: refMember, obj: g.expr(t.Target), key: g.m.Str(t.Name), name: t.Name}, true
	case *ast.EIndex:
		obj := g.expr(t.Target)
		return ref{kind: refMember, obj: obj, key: g.expr(t.Index)}, true
	}
	return ref{}, false
}

func (g *generator) load(r ref) ir.Value {
	if r.kind == refMember {
		return g.b.CreateLoadProperty(r.obj, r.key)
	}
	if r.decl == scope.NoDeclID {
		return g.b.CreateTryLoadGlobal(r.name)
	}
	return g.loadDecl(r.decl)
}

func (g *generator) store(r ref, v ir.Value) {
	if r.kind == refMember {
		g.b.CreateStoreProperty(v, r.obj, r.key)
		return
	}
	g.storeDecl(r.decl, r.name, v)
}

func (g *generator) assign(n *ast.EAssign, sp source.Span) ir.Value {
	r, ok := g.reference(n.Target)
	if !ok {
		g.expr(n.Value)
		return g.semaError(diag.SemaInvalidAssignTarget, n.Target.Span, "invalid assignment target")
	}
	if n.Op == ast.BinOpAssign {
		v := g.exprNamed(n.Value, r.name)
		g.b.Span = sp
		g.store(r, v)
		return v
	}
	op, ok := n.Op.Compound()
	if !ok {
		g.fail(sp, "operator %s is not an assignment", n.Op)
		return g.m.Undefined()
	}
	g.b.Span = sp
	old := g.load(r)
	if op.IsLogical() {
		return g.shortCircuit(op, old, sp, func() ir.Value {
			v := g.exprNamed(n.Value, r.name)
			g.b.Span = sp
			g.store(r, v)
			return v
		})
	}
	v := g.expr(n.Value)
	g.b.Span = sp
	res := g.b.CreateBinary(op.String(), old, v)
	g.store(r, res)
	return res
}

func (g *generator) update(n *ast.EUpdate, sp source.Span) ir.Value {
	if !n.Op.IsUpdate() {
		g.fail(sp, "operator %s is not an update", n.Op)
		return g.m.Undefined()
	}
	r, ok := g.reference(n.Target)
	if !ok {
		return g.semaError(diag.SemaInvalidAssignTarget, n.Target.Span, "invalid update target")
	}
	g.b.Span = sp
	old := g.load(r)
	if n.Op == ast.UnOpPostInc || n.Op == ast.UnOpPostDec {
		// The expression yields the old value after numeric conversion.
		num := g.b.CreateAsNumber(old)
		g.store(r, g.b.CreateUnary(n.Op.String(), num))
		return num
	}
	res := g.b.CreateUnary(n.Op.String(), old)
	g.store(r, res)
	return res
}

// logical lowers ||, && and ?? to a branch around the right operand and
// merges both results with a phi.
func (g *generator) logical(op ast.OpCode, left, right ast.Expr, sp source.Span) ir.Value {
	l := g.expr(left)
	return g.shortCircuit(op, l, sp, func() ir.Value { return g.expr(right) })
}

func (g *generator) shortCircuit(op ast.OpCode, l ir.Value, sp source.Span, rhs func() ir.Value) ir.Value {
	from := g.b.Block
	evalRight := g.b.CreateBlock()
	join := g.b.CreateBlock()
	g.b.Span = sp
	switch op {
	case ast.BinOpLogicalOr:
		g.b.CreateCondBranch(l, join, evalRight)
	case ast.BinOpLogicalAnd:
		g.b.CreateCondBranch(l, evalRight, join)
	default:
		isNullish := g.b.CreateBinary("==", l, g.m.Null())
		g.b.CreateCondBranch(isNullish, evalRight, join)
	}

	g.b.SetInsertionBlock(evalRight)
	r := rhs()
	rightEnd := g.b.Block
	g.b.Span = sp
	g.b.CreateBranch(join)

	g.b.SetInsertionBlock(join)
	return g.b.CreatePhi(l, from, r, rightEnd)
}

func (g *generator) conditional(n *ast.EIf, sp source.Span) ir.Value {
	yes := g.b.CreateBlock()
	no := g.b.CreateBlock()
	join := g.b.CreateBlock()
	g.cond(n.Test, yes, no)

	g.b.SetInsertionBlock(yes)
	y := g.expr(n.Yes)
	yesEnd := g.b.Block
	g.b.Span = sp
	g.b.CreateBranch(join)

	g.b.SetInsertionBlock(no)
	v := g.expr(n.No)
	noEnd := g.b.Block
	g.b.Span = sp
	g.b.CreateBranch(join)

	g.b.SetInsertionBlock(join)
	return g.b.CreatePhi(y, yesEnd, v, noEnd)
}

func (g *generator) args(list []ast.Expr) []ir.Value {
	out := make([]ir.Value, len(list))
	for i, a := range list {
		out[i] = g.expr(a)
	}
	return out
}

// call passes the object of a member callee as `this`.
func (g *generator) call(n *ast.ECall, sp source.Span) ir.Value {
	var callee, this ir.Value
	switch t := n.Target.Data.(type) {
	case *ast.EDot:
		this = g.expr(t.Target)
		g.b.Span = n.Target.Span
		callee = g.b.CreateLoadProperty(this, g.m.Str(t.Name))
	case *ast.EIndex:
		this = g.expr(t.Target)
		key := g.expr(t.Index)
		g.b.Span = n.Target.Span
		callee = g.b.CreateLoadProperty(this, key)
	default:
		callee = g.expr(n.Target)
		this = g.m.Undefined()
	}
	args := g.args(n.Args)
	g.b.Span = sp
	return g.b.CreateCall(callee, this, args...)
}

// construct allocates the receiver from the constructor's prototype and
// yields it as the result of the expression.
func (g *generator) construct(n *ast.ENew, sp source.Span) ir.Value {
	switch n.Target.Data.(type) {
	case *ast.ENumber, *ast.EString, *ast.EBoolean, *ast.ENull, *ast.EUndefined, *ast.EBigInt:
		g.args(n.Args)
		return g.semaError(diag.SemaInvalidConstruct, n.Target.Span, "a literal is not a constructor")
	}
	ctor := g.expr(n.Target)
	g.b.Span = sp
	proto := g.b.CreateLoadProperty(ctor, g.m.Str("prototype"))
	this := g.b.CreateAllocObject(0, proto)
	args := g.args(n.Args)
	g.b.Span = sp
	g.b.CreateConstruct(ctor, this, args...)
	return this
}
