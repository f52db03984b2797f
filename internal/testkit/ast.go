// Package testkit holds helpers shared by the compiler's tests: terse
// syntax tree constructors and invariant checks over generated IR.
package testkit

import "ember/internal/ast"

func Ident(name string) ast.Expr { return ast.Expr{Data: &ast.EIdentifier{Name: name}} }

func Num(v float64) ast.Expr { return ast.Expr{Data: &ast.ENumber{Value: v}} }

func Str(s string) ast.Expr { return ast.Expr{Data: &ast.EString{Value: s}} }

func Bool(b bool) ast.Expr { return ast.Expr{Data: &ast.EBoolean{Value: b}} }

func Null() ast.Expr { return ast.Expr{Data: &ast.ENull{}} }

func This() ast.Expr { return ast.Expr{Data: &ast.EThis{}} }

func Bin(op ast.OpCode, l, r ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EBinary{Op: op, Left: l, Right: r}}
}

func Un(op ast.OpCode, v ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EUnary{Op: op, Value: v}}
}

func Update(op ast.OpCode, target ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EUpdate{Op: op, Target: target}}
}

func Assign(op ast.OpCode, target, v ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EAssign{Op: op, Target: target, Value: v}}
}

func Cond(test, yes, no ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EIf{Test: test, Yes: yes, No: no}}
}

func Dot(target ast.Expr, name string) ast.Expr {
	return ast.Expr{Data: &ast.EDot{Target: target, Name: name}}
}

func Index(target, key ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.EIndex{Target: target, Index: key}}
}

func Call(target ast.Expr, args ...ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.ECall{Target: target, Args: args}}
}

func New(target ast.Expr, args ...ast.Expr) ast.Expr {
	return ast.Expr{Data: &ast.ENew{Target: target, Args: args}}
}

func Array(items ...ast.Expr) ast.Expr { return ast.Expr{Data: &ast.EArray{Items: items}} }

func Object(props ...ast.Property) ast.Expr {
	return ast.Expr{Data: &ast.EObject{Properties: props}}
}

// Prop is `key: v`.
func Prop(key string, v ast.Expr) ast.Property {
	return ast.Property{Key: key, Value: v}
}

// Short is the shorthand property `{name}`.
func Short(name string) ast.Property {
	return ast.Property{Key: name, Value: Ident(name), Shorthand: true}
}

func Getter(key string, fn *ast.Fn) ast.Property {
	return ast.Property{Key: key, Value: Func(fn), Kind: ast.PropertyGet}
}

func Setter(key string, fn *ast.Fn) ast.Property {
	return ast.Property{Key: key, Value: Func(fn), Kind: ast.PropertySet}
}

func Computed(key, v ast.Expr) ast.Property {
	return ast.Property{KeyExpr: key, Value: v, Computed: true}
}

func Func(fn *ast.Fn) ast.Expr { return ast.Expr{Data: &ast.EFunction{Fn: fn}} }

func Yield(v ast.Expr) ast.Expr { return ast.Expr{Data: &ast.EYield{Value: v}} }

func Await(v ast.Expr) ast.Expr { return ast.Expr{Data: &ast.EAwait{Value: v}} }

// Fn builds a function node; name may be empty for an expression.
func Fn(name string, params []string, body ...ast.Stmt) *ast.Fn {
	fn := &ast.Fn{Name: name, Body: body}
	for _, p := range params {
		fn.Params = append(fn.Params, ast.Param{Name: p})
	}
	return fn
}

// Gen marks fn as a generator and returns it.
func Gen(fn *ast.Fn) *ast.Fn {
	fn.Generator = true
	return fn
}

// Async marks fn as async and returns it.
func Async(fn *ast.Fn) *ast.Fn {
	fn.Async = true
	return fn
}

func FuncDecl(fn *ast.Fn) ast.Stmt { return ast.Stmt{Data: &ast.SFunction{Fn: fn}} }

func Var(kind ast.VarKind, name string, v ast.Expr) ast.Stmt {
	return ast.Stmt{Data: &ast.SVar{Kind: kind, Decls: []ast.Decl{{Name: name, Value: v}}}}
}

func Expr(e ast.Expr) ast.Stmt { return ast.Stmt{Data: &ast.SExpr{Value: e}} }

func Return(e ast.Expr) ast.Stmt { return ast.Stmt{Data: &ast.SReturn{Value: e}} }

func Throw(e ast.Expr) ast.Stmt { return ast.Stmt{Data: &ast.SThrow{Value: e}} }

func If(test ast.Expr, yes ast.Stmt, no ...ast.Stmt) ast.Stmt {
	s := &ast.SIf{Test: test, Yes: yes}
	if len(no) > 0 {
		s.No = no[0]
	}
	return ast.Stmt{Data: s}
}

func While(test ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.Stmt{Data: &ast.SWhile{Test: test, Body: body}}
}

func For(init ast.Stmt, test, update ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.Stmt{Data: &ast.SFor{InitStmt: init, Test: test, Update: update, Body: body}}
}

func Block(stmts ...ast.Stmt) ast.Stmt { return ast.Stmt{Data: &ast.SBlock{Stmts: stmts}} }

func Break() ast.Stmt { return ast.Stmt{Data: &ast.SBreak{}} }

func Continue() ast.Stmt { return ast.Stmt{Data: &ast.SContinue{}} }

func Program(body ...ast.Stmt) *ast.Program { return &ast.Program{Body: body} }
