package irgen

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/ir"
)

func (g *generator) stmts(list []ast.Stmt) {
	for _, s := range list {
		if g.err != nil {
			return
		}
		g.stmt(s)
	}
}

func (g *generator) stmt(s ast.Stmt) {
	g.b.Span = s.Span
	switch n := s.Data.(type) {
	case *ast.SVar:
		g.varDecl(n)
	case *ast.SFunction, *ast.STypeAlias, *ast.SEmpty:
		// Functions were hoisted; aliases only feed the type table.
	case *ast.SExpr:
		g.expr(n.Value)
	case *ast.SReturn:
		if g.fn.node == nil {
			g.semaError(diag.SemaReturnOutsideFn, s.Span, "'return' outside of a function")
			return
		}
		v := ir.Value(g.m.Undefined())
		if !n.Value.Missing() {
			v = g.expr(n.Value)
		}
		g.b.Span = s.Span
		g.b.CreateReturn(v)
		g.startDeadBlock()
	case *ast.SThrow:
		v := g.expr(n.Value)
		g.b.Span = s.Span
		g.b.CreateThrow(v)
		g.startDeadBlock()
	case *ast.SIf:
		g.ifStmt(n)
	case *ast.SWhile:
		g.whileStmt(n)
	case *ast.SDoWhile:
		g.doWhileStmt(n)
	case *ast.SFor:
		g.forStmt(n)
	case *ast.SBlock:
		saved := g.fn.scope
		if sid, ok := g.info.BlockScope(n); ok {
			g.fn.scope = sid
		}
		g.stmts(n.Stmts)
		g.fn.scope = saved
	case *ast.SBreak, *ast.SContinue:
		if len(g.fn.loops) == 0 {
			g.fail(s.Span, "break or continue outside of a loop")
			return
		}
		target := g.fn.loops[len(g.fn.loops)-1]
		to := target.brk
		if _, ok := n.(*ast.SContinue); ok {
			to = target.cont
		}
		g.b.CreateBranch(to)
		g.startDeadBlock()
	case nil:
		g.fail(s.Span, "missing statement")
	default:
		g.fail(s.Span, "unexpected statement %T", n)
	}
}

func (g *generator) varDecl(v *ast.SVar) {
	for _, d := range v.Decls {
		id, _ := g.info.Lookup(g.fn.scope, d.Name)
		if d.Value.Missing() {
			// `var x;` keeps the hoisted value; a lexical binding is reset
			// each time its declaration runs.
			if v.Kind != ast.VarVar {
				g.b.Span = d.Span
				g.storeDecl(id, d.Name, g.m.Undefined())
			}
			continue
		}
		val := g.exprNamed(d.Value, d.Name)
		g.b.Span = d.Span
		g.storeDecl(id, d.Name, val)
	}
}

// cond lowers a test expression into a conditional branch.
func (g *generator) cond(test ast.Expr, yes, no *ir.Block) {
	v := g.expr(test)
	g.b.Span = test.Span
	g.b.CreateCondBranch(v, yes, no)
}

func (g *generator) ifStmt(n *ast.SIf) {
	yes := g.b.CreateBlock()
	join := g.b.CreateBlock()
	no := join
	if n.No.Data != nil {
		no = g.b.CreateBlock()
	}
	g.cond(n.Test, yes, no)

	g.b.SetInsertionBlock(yes)
	g.stmt(n.Yes)
	g.branchTo(join)
	if n.No.Data != nil {
		g.b.SetInsertionBlock(no)
		g.stmt(n.No)
		g.branchTo(join)
	}
	g.b.SetInsertionBlock(join)
}

// branchTo ends the current block with a jump unless it already ended.
func (g *generator) branchTo(bb *ir.Block) {
	if !g.b.Terminated() {
		g.b.CreateBranch(bb)
	}
}

func (g *generator) loop(brk, cont *ir.Block, body ast.Stmt) {
	g.fn.loops = append(g.fn.loops, loopTarget{brk: brk, cont: cont})
	g.stmt(body)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
}

func (g *generator) whileStmt(n *ast.SWhile) {
	header := g.b.CreateBlock()
	body := g.b.CreateBlock()
	exit := g.b.CreateBlock()
	g.b.CreateBranch(header)

	g.b.SetInsertionBlock(header)
	g.cond(n.Test, body, exit)

	g.b.SetInsertionBlock(body)
	g.loop(exit, header, n.Body)
	g.branchTo(header)
	g.b.SetInsertionBlock(exit)
}

func (g *generator) doWhileStmt(n *ast.SDoWhile) {
	body := g.b.CreateBlock()
	test := g.b.CreateBlock()
	exit := g.b.CreateBlock()
	g.b.CreateBranch(body)

	g.b.SetInsertionBlock(body)
	g.loop(exit, test, n.Body)
	g.branchTo(test)

	g.b.SetInsertionBlock(test)
	g.cond(n.Test, body, exit)
	g.b.SetInsertionBlock(exit)
}

func (g *generator) forStmt(n *ast.SFor) {
	saved := g.fn.scope
	if sid, ok := g.info.LoopScope(n); ok {
		g.fn.scope = sid
	}
	defer func() { g.fn.scope = saved }()

	if n.InitStmt.Data != nil {
		g.stmt(n.InitStmt)
	} else if !n.InitExpr.Missing() {
		g.expr(n.InitExpr)
	}
	header := g.b.CreateBlock()
	body := g.b.CreateBlock()
	update := g.b.CreateBlock()
	exit := g.b.CreateBlock()
	g.b.CreateBranch(header)

	g.b.SetInsertionBlock(header)
	if n.Test.Missing() {
		g.b.CreateBranch(body)
	} else {
		g.cond(n.Test, body, exit)
	}

	g.b.SetInsertionBlock(body)
	g.loop(exit, update, n.Body)
	g.branchTo(update)

	g.b.SetInsertionBlock(update)
	if !n.Update.Missing() {
		g.expr(n.Update)
	}
	g.b.CreateBranch(header)
	g.b.SetInsertionBlock(exit)
}
