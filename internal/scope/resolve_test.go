package scope

import (
	"testing"

	"ember/internal/ast"
)

func ident(name string) (ast.Expr, *ast.EIdentifier) {
	id := &ast.EIdentifier{Name: name}
	return ast.Expr{Data: id}, id
}

func varStmt(kind ast.VarKind, name string, value ast.Expr) ast.Stmt {
	return ast.Stmt{Data: &ast.SVar{Kind: kind, Decls: []ast.Decl{{Name: name, Value: value}}}}
}

func exprStmt(e ast.Expr) ast.Stmt { return ast.Stmt{Data: &ast.SExpr{Value: e}} }

func params(names ...string) []ast.Param {
	out := make([]ast.Param, len(names))
	for i, n := range names {
		out[i] = ast.Param{Name: n}
	}
	return out
}

func TestResolveCaptureMarksIntermediateFunctions(t *testing.T) {
	// function outer(a) { function mid() { function inner() { a; } } }
	ref, id := ident("a")
	inner := &ast.Fn{Name: "inner", Body: []ast.Stmt{exprStmt(ref)}}
	mid := &ast.Fn{Name: "mid", Body: []ast.Stmt{{Data: &ast.SFunction{Fn: inner}}}}
	outer := &ast.Fn{Name: "outer", Params: params("a"), Body: []ast.Stmt{{Data: &ast.SFunction{Fn: mid}}}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{{Data: &ast.SFunction{Fn: outer}}}})

	d, ok := in.Ref(id)
	if !ok {
		t.Fatalf("a must resolve")
	}
	decl := in.Decl(d)
	if decl.Kind != DeclParam || !decl.Captured {
		t.Fatalf("expected a captured parameter, got %+v", decl)
	}
	fo, _ := in.FuncOf(outer)
	fm, _ := in.FuncOf(mid)
	fi, _ := in.FuncOf(inner)
	if in.Func(fo).NeedsEnv {
		t.Fatalf("the owner must not need a parent environment")
	}
	if !in.Func(fm).NeedsEnv || !in.Func(fi).NeedsEnv {
		t.Fatalf("mid and inner must both need an environment")
	}
	if got := in.Captured(fo); len(got) != 1 || got[0] != d {
		t.Fatalf("unexpected captured list %v", got)
	}
}

func TestResolveLocalReferenceIsNotCaptured(t *testing.T) {
	ref, id := ident("x")
	fn := &ast.Fn{Name: "f", Body: []ast.Stmt{
		varStmt(ast.VarLet, "x", ast.Expr{Data: &ast.ENumber{Value: 1}}),
		exprStmt(ref),
	}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{{Data: &ast.SFunction{Fn: fn}}}})
	d, ok := in.Ref(id)
	if !ok || in.Decl(d).Captured {
		t.Fatalf("x must resolve locally without capture")
	}
	f, _ := in.FuncOf(fn)
	if in.Func(f).NeedsEnv {
		t.Fatalf("f does not reach outside itself")
	}
}

func TestResolveSlotOrder(t *testing.T) {
	// function f(p) { let l; var v; function g() {} }
	g := &ast.Fn{Name: "g"}
	fn := &ast.Fn{Name: "f", Params: params("p"), Body: []ast.Stmt{
		varStmt(ast.VarLet, "l", ast.Expr{}),
		varStmt(ast.VarVar, "v", ast.Expr{}),
		{Data: &ast.SFunction{Fn: g}},
	}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{{Data: &ast.SFunction{Fn: fn}}}})
	f, _ := in.FuncOf(fn)
	var names []string
	for _, d := range in.Func(f).Decls {
		names = append(names, in.Decl(d).Name)
	}
	want := []string{"p", "v", "g", "l"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestResolveGlobalsAndUnresolved(t *testing.T) {
	gref, gid := ident("g")
	uref, uid := ident("nowhere")
	fn := &ast.Fn{Name: "f", Body: []ast.Stmt{exprStmt(gref), exprStmt(uref)}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{
		varStmt(ast.VarVar, "g", ast.Expr{}),
		{Data: &ast.SFunction{Fn: fn}},
	}})
	d, ok := in.Ref(gid)
	if !ok || !in.Decl(d).Global {
		t.Fatalf("top-level var must be a global binding")
	}
	if in.Decl(d).Captured {
		t.Fatalf("globals are never captured")
	}
	if _, ok := in.Ref(uid); ok {
		t.Fatalf("unknown names must stay unresolved")
	}
	f, _ := in.FuncOf(fn)
	if in.Func(f).NeedsEnv {
		t.Fatalf("global access does not need an environment")
	}
}

func TestResolveBlockScopeShadows(t *testing.T) {
	// function f() { var x; { let x; x; } x; }
	innerRef, innerID := ident("x")
	outerRef, outerID := ident("x")
	block := &ast.SBlock{Stmts: []ast.Stmt{varStmt(ast.VarLet, "x", ast.Expr{}), exprStmt(innerRef)}}
	fn := &ast.Fn{Name: "f", Body: []ast.Stmt{
		varStmt(ast.VarVar, "x", ast.Expr{}),
		{Data: block},
		exprStmt(outerRef),
	}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{{Data: &ast.SFunction{Fn: fn}}}})
	di, _ := in.Ref(innerID)
	do, _ := in.Ref(outerID)
	if di == do {
		t.Fatalf("block binding must shadow the var")
	}
	if in.Decl(di).Kind != DeclLet || in.Decl(do).Kind != DeclVar {
		t.Fatalf("unexpected kinds %s / %s", in.Decl(di).Kind, in.Decl(do).Kind)
	}
	if _, ok := in.BlockScope(block); !ok {
		t.Fatalf("block with let must open a scope")
	}
}

func TestResolveCountsSuspendsAndThis(t *testing.T) {
	fn := &ast.Fn{Name: "gen", Generator: true, Body: []ast.Stmt{
		exprStmt(ast.Expr{Data: &ast.EYield{}}),
		exprStmt(ast.Expr{Data: &ast.EYield{Value: ast.Expr{Data: &ast.EThis{}}}}),
	}}
	in := Resolve(&ast.Program{Body: []ast.Stmt{{Data: &ast.SFunction{Fn: fn}}}})
	f, _ := in.FuncOf(fn)
	if got := in.Func(f).Suspends; got != 2 {
		t.Fatalf("expected 2 suspend points, got %d", got)
	}
	if !in.Func(f).UsesThis {
		t.Fatalf("expected UsesThis")
	}
	if in.Func(in.Program()).UsesThis {
		t.Fatalf("program must not inherit UsesThis")
	}
}
