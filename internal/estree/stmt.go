package estree

import (
	"ember/internal/ast"
	"ember/internal/diag"
)

func (d *decoder) stmts(list []*rawNode, strict bool) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(list))
	for _, n := range list {
		if n == nil {
			return nil, d.errorf(diag.IRGMalformedNode, d.parent, "null statement")
		}
		s, err := d.stmt(n, strict)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) stmtField(parent *rawNode, data []byte, what string, strict bool) (ast.Stmt, error) {
	if isNull(data) {
		return ast.Stmt{}, d.errorf(diag.IRGMissingField, d.span(parent), "%s without %s", parent.Type, what)
	}
	n, err := d.raw(data)
	if err != nil {
		return ast.Stmt{}, err
	}
	return d.stmt(n, strict)
}

func (d *decoder) stmt(n *rawNode, strict bool) (ast.Stmt, error) {
	span := d.span(n)
	saved := d.parent
	d.parent = span
	defer func() { d.parent = saved }()

	var data ast.S
	switch n.Type {
	case "EmptyStatement":
		data = &ast.SEmpty{}

	case "ExpressionStatement":
		e, err := d.exprField(n, n.Expression, "expression", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SExpr{Value: e}

	case "BlockStatement":
		list, err := d.rawList(n.Body)
		if err != nil {
			return ast.Stmt{}, err
		}
		body, err := d.stmts(list, strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SBlock{Stmts: body}

	case "VariableDeclaration":
		v, err := d.varDecl(n, strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = v

	case "FunctionDeclaration":
		fn, err := d.fn(n, strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		if fn.Name == "" {
			return ast.Stmt{}, d.errorf(diag.IRGMissingField, span, "function declaration without a name")
		}
		data = &ast.SFunction{Fn: fn}

	case "ReturnStatement":
		e, err := d.optExpr(n.Argument, strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SReturn{Value: e}

	case "ThrowStatement":
		e, err := d.exprField(n, n.Argument, "argument", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SThrow{Value: e}

	case "IfStatement":
		test, err := d.exprField(n, n.Test, "test", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		yes, err := d.stmtField(n, n.Consequent, "consequent", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		var no ast.Stmt
		if !isNull(n.Alternate) {
			if no, err = d.stmtField(n, n.Alternate, "alternate", strict); err != nil {
				return ast.Stmt{}, err
			}
		}
		data = &ast.SIf{Test: test, Yes: yes, No: no}

	case "WhileStatement":
		test, err := d.exprField(n, n.Test, "test", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		body, err := d.stmtField(n, n.Body, "body", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SWhile{Test: test, Body: body}

	case "DoWhileStatement":
		body, err := d.stmtField(n, n.Body, "body", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		test, err := d.exprField(n, n.Test, "test", strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = &ast.SDoWhile{Body: body, Test: test}

	case "ForStatement":
		f, err := d.forStmt(n, strict)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = f

	case "BreakStatement", "ContinueStatement":
		if !isNull(n.Label) {
			return ast.Stmt{}, d.errorf(diag.IRGUnknownNode, span, "labeled %s is not supported", n.Type)
		}
		if n.Type == "BreakStatement" {
			data = &ast.SBreak{}
		} else {
			data = &ast.SContinue{}
		}

	case "TypeAlias", "TSTypeAliasDeclaration":
		a, err := d.typeAlias(n)
		if err != nil {
			return ast.Stmt{}, err
		}
		data = a

	default:
		return ast.Stmt{}, d.errorf(diag.IRGUnknownNode, span, "unsupported statement %q", n.Type)
	}
	return ast.Stmt{Data: data, Span: span}, nil
}

func (d *decoder) varDecl(n *rawNode, strict bool) (*ast.SVar, error) {
	v := &ast.SVar{}
	switch n.Kind {
	case "var", "":
		v.Kind = ast.VarVar
	case "let":
		v.Kind = ast.VarLet
	case "const":
		v.Kind = ast.VarConst
	default:
		return nil, d.errorf(diag.IRGMalformedNode, d.span(n), "unknown declaration kind %q", n.Kind)
	}
	decls, err := d.rawItems(n.Declarations)
	if err != nil {
		return nil, err
	}
	if len(decls) == 0 {
		return nil, d.errorf(diag.IRGMissingField, d.span(n), "declaration without declarators")
	}
	for _, dn := range decls {
		if dn == nil || dn.Type != "VariableDeclarator" {
			return nil, d.errorf(diag.IRGMalformedNode, d.span(n), "expected VariableDeclarator")
		}
		id, err := d.raw(dn.ID)
		if err != nil {
			return nil, err
		}
		if id.Type != "Identifier" {
			return nil, d.errorf(diag.IRGUnknownNode, d.span(id), "destructuring %q is not supported", id.Type)
		}
		init, err := d.optExpr(dn.Init, strict)
		if err != nil {
			return nil, err
		}
		v.Decls = append(v.Decls, ast.Decl{Name: ident(id.Name), Span: d.span(id), Value: init})
	}
	return v, nil
}

func (d *decoder) forStmt(n *rawNode, strict bool) (*ast.SFor, error) {
	f := &ast.SFor{}
	if !isNull(n.Init) {
		init, err := d.raw(n.Init)
		if err != nil {
			return nil, err
		}
		if init.Type == "VariableDeclaration" {
			if f.InitStmt, err = d.stmt(init, strict); err != nil {
				return nil, err
			}
		} else if f.InitExpr, err = d.expr(init, strict); err != nil {
			return nil, err
		}
	}
	var err error
	if f.Test, err = d.optExpr(n.Test, strict); err != nil {
		return nil, err
	}
	if f.Update, err = d.optExpr(n.Update, strict); err != nil {
		return nil, err
	}
	if f.Body, err = d.stmtField(n, n.Body, "body", strict); err != nil {
		return nil, err
	}
	return f, nil
}

// fn decodes declarations and function expressions. Arrow functions are
// rejected by the caller.
func (d *decoder) fn(n *rawNode, strict bool) (*ast.Fn, error) {
	fn := &ast.Fn{
		Generator: n.Generator,
		Async:     n.Async,
		Span:      d.span(n),
	}
	if !isNull(n.ID) {
		id, err := d.raw(n.ID)
		if err != nil {
			return nil, err
		}
		fn.Name = ident(id.Name)
		fn.NameSpan = d.span(id)
	}
	params, err := d.rawItems(n.Params)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		if p == nil || p.Type != "Identifier" {
			return nil, d.errorf(diag.IRGUnknownNode, fn.Span, "only identifier parameters are supported")
		}
		fn.Params = append(fn.Params, ast.Param{Name: ident(p.Name), Span: d.span(p)})
	}
	body, err := d.raw(n.Body)
	if err != nil {
		return nil, err
	}
	if body.Type != "BlockStatement" {
		return nil, d.errorf(diag.IRGMalformedNode, d.span(body), "function body must be a block, got %q", body.Type)
	}
	list, err := d.rawList(body.Body)
	if err != nil {
		return nil, err
	}
	fn.Strict = strict || hasUseStrict(d, list)
	if fn.Body, err = d.stmts(list, fn.Strict); err != nil {
		return nil, err
	}
	return fn, nil
}
