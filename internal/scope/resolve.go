package scope

import (
	"ember/internal/ast"
	"ember/internal/source"
)

type resolver struct {
	in    *Info
	scope ScopeID
	fn    FuncID
}

// Resolve builds the scope tree of prog and binds every identifier
// expression. Declarations at the top level are global properties.
func Resolve(prog *ast.Program) *Info {
	in := &Info{
		scopes: NewArena[Scope](32),
		decls:  NewArena[Decl](64),
		funcs:  NewArena[Function](8),
		byFn:   make(map[*ast.Fn]FuncID),
		blocks: make(map[*ast.SBlock]ScopeID),
		loops:  make(map[*ast.SFor]ScopeID),
		refs:   make(map[*ast.EIdentifier]DeclID),
	}
	r := &resolver{in: in}
	fid := FuncID(in.funcs.Allocate(Function{}))
	in.program = fid
	sid := r.newScope(ScopeGlobal, NoScopeID, fid)
	in.Func(fid).Scope = sid

	r.scope, r.fn = sid, fid
	r.hoist(prog.Body)
	r.declareLexical(prog.Body)
	r.stmts(prog.Body)
	return in
}

func (r *resolver) newScope(kind ScopeKind, parent ScopeID, fn FuncID) ScopeID {
	return ScopeID(r.in.scopes.Allocate(Scope{
		Kind:   kind,
		Parent: parent,
		Func:   fn,
		names:  make(map[string]DeclID),
	}))
}

// funcScope is the nearest function (or global) scope.
func (r *resolver) funcScope() ScopeID {
	return r.in.Func(r.fn).Scope
}

func (r *resolver) declare(s ScopeID, name string, kind DeclKind, span source.Span) DeclID {
	sc := r.in.Scope(s)
	if d, ok := sc.names[name]; ok {
		return d
	}
	d := DeclID(r.in.decls.Allocate(Decl{
		Name:   name,
		Kind:   kind,
		Span:   span,
		Scope:  s,
		Func:   sc.Func,
		Global: sc.Kind == ScopeGlobal,
	}))
	sc = r.in.Scope(s)
	sc.names[name] = d
	sc.Decls = append(sc.Decls, d)
	if sc.Kind != ScopeGlobal {
		f := r.in.Func(sc.Func)
		f.Decls = append(f.Decls, d)
	}
	return d
}

// hoist declares `var` bindings and function declarations of a body in
// the function scope, looking through nested statements but not into
// nested functions.
func (r *resolver) hoist(list []ast.Stmt) {
	for _, s := range list {
		r.hoistStmt(s)
	}
}

func (r *resolver) hoistStmt(s ast.Stmt) {
	switch s := s.Data.(type) {
	case *ast.SVar:
		if s.Kind != ast.VarVar {
			return
		}
		for _, d := range s.Decls {
			r.declare(r.funcScope(), d.Name, DeclVar, d.Span)
		}
	case *ast.SFunction:
		r.declare(r.funcScope(), s.Fn.Name, DeclFunction, s.Fn.NameSpan)
	case *ast.SIf:
		r.hoistStmt(s.Yes)
		if s.No.Data != nil {
			r.hoistStmt(s.No)
		}
	case *ast.SWhile:
		r.hoistStmt(s.Body)
	case *ast.SDoWhile:
		r.hoistStmt(s.Body)
	case *ast.SFor:
		if s.InitStmt.Data != nil {
			r.hoistStmt(s.InitStmt)
		}
		r.hoistStmt(s.Body)
	case *ast.SBlock:
		r.hoist(s.Stmts)
	}
}

func hasLexical(list []ast.Stmt) bool {
	for _, s := range list {
		if v, ok := s.Data.(*ast.SVar); ok && v.Kind != ast.VarVar {
			return true
		}
	}
	return false
}

// declareLexical declares the let/const bindings directly in list.
func (r *resolver) declareLexical(list []ast.Stmt) {
	for _, s := range list {
		v, ok := s.Data.(*ast.SVar)
		if !ok || v.Kind == ast.VarVar {
			continue
		}
		kind := DeclLet
		if v.Kind == ast.VarConst {
			kind = DeclConst
		}
		for _, d := range v.Decls {
			r.declare(r.scope, d.Name, kind, d.Span)
		}
	}
}

func (r *resolver) function(fn *ast.Fn) {
	parent := r.fn
	fid := FuncID(r.in.funcs.Allocate(Function{Node: fn, Parent: parent}))
	r.in.byFn[fn] = fid
	r.in.Func(parent).Nested = append(r.in.Func(parent).Nested, fid)
	sid := r.newScope(ScopeFunction, r.scope, fid)
	r.in.Func(fid).Scope = sid

	savedScope, savedFn := r.scope, r.fn
	r.scope, r.fn = sid, fid
	for i, p := range fn.Params {
		d := r.declare(sid, p.Name, DeclParam, p.Span)
		if decl := r.in.Decl(d); decl.Kind == DeclParam {
			decl.Param = i
		}
	}
	r.hoist(fn.Body)
	r.declareLexical(fn.Body)
	r.stmts(fn.Body)
	r.scope, r.fn = savedScope, savedFn
}

func (r *resolver) stmts(list []ast.Stmt) {
	for _, s := range list {
		r.stmt(s)
	}
}

func (r *resolver) stmt(s ast.Stmt) {
	switch s := s.Data.(type) {
	case *ast.SVar:
		for _, d := range s.Decls {
			r.expr(d.Value)
		}
	case *ast.SFunction:
		r.function(s.Fn)
	case *ast.SReturn:
		r.expr(s.Value)
	case *ast.SThrow:
		r.expr(s.Value)
	case *ast.SExpr:
		r.expr(s.Value)
	case *ast.SIf:
		r.expr(s.Test)
		r.stmt(s.Yes)
		if s.No.Data != nil {
			r.stmt(s.No)
		}
	case *ast.SWhile:
		r.expr(s.Test)
		r.stmt(s.Body)
	case *ast.SDoWhile:
		r.stmt(s.Body)
		r.expr(s.Test)
	case *ast.SFor:
		saved := r.scope
		if v, ok := s.InitStmt.Data.(*ast.SVar); ok && v.Kind != ast.VarVar {
			r.scope = r.newScope(ScopeBlock, r.scope, r.fn)
			r.in.loops[s] = r.scope
			r.declareLexical([]ast.Stmt{s.InitStmt})
		}
		if s.InitStmt.Data != nil {
			r.stmt(s.InitStmt)
		}
		r.expr(s.InitExpr)
		r.expr(s.Test)
		r.expr(s.Update)
		r.stmt(s.Body)
		r.scope = saved
	case *ast.SBlock:
		saved := r.scope
		if hasLexical(s.Stmts) {
			r.scope = r.newScope(ScopeBlock, r.scope, r.fn)
			r.in.blocks[s] = r.scope
			r.declareLexical(s.Stmts)
		}
		r.stmts(s.Stmts)
		r.scope = saved
	}
}

func (r *resolver) exprs(list []ast.Expr) {
	for _, e := range list {
		r.expr(e)
	}
}

func (r *resolver) expr(e ast.Expr) {
	switch e := e.Data.(type) {
	case nil:
	case *ast.EIdentifier:
		r.reference(e)
	case *ast.EThis:
		r.in.Func(r.fn).UsesThis = true
	case *ast.EObject:
		for _, p := range e.Properties {
			r.expr(p.KeyExpr)
			r.expr(p.Value)
		}
	case *ast.EArray:
		r.exprs(e.Items)
	case *ast.EUnary:
		r.expr(e.Value)
	case *ast.EUpdate:
		r.expr(e.Target)
	case *ast.EBinary:
		r.expr(e.Left)
		r.expr(e.Right)
	case *ast.EAssign:
		r.expr(e.Target)
		r.expr(e.Value)
	case *ast.EIf:
		r.expr(e.Test)
		r.expr(e.Yes)
		r.expr(e.No)
	case *ast.EDot:
		r.expr(e.Target)
	case *ast.EIndex:
		r.expr(e.Target)
		r.expr(e.Index)
	case *ast.ECall:
		r.expr(e.Target)
		r.exprs(e.Args)
	case *ast.ENew:
		r.expr(e.Target)
		r.exprs(e.Args)
	case *ast.EFunction:
		r.function(e.Fn)
	case *ast.EYield:
		r.in.Func(r.fn).Suspends++
		r.expr(e.Value)
	case *ast.EAwait:
		r.in.Func(r.fn).Suspends++
		r.expr(e.Value)
	case *ast.ESequence:
		r.exprs(e.Exprs)
	}
}

func (r *resolver) reference(e *ast.EIdentifier) {
	d, _ := r.in.Lookup(r.scope, e.Name)
	r.in.refs[e] = d
	if d == NoDeclID {
		return
	}
	decl := r.in.Decl(d)
	if decl.Global || decl.Func == r.fn {
		return
	}
	decl.Captured = true
	for f := r.fn; f != NoFuncID && f != decl.Func; f = r.in.Func(f).Parent {
		r.in.Func(f).NeedsEnv = true
	}
}
