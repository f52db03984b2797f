// Package irgen lowers a resolved syntax tree into IR. Every piece of
// mutable state lives on the generator and the per-function state it
// threads through the walk.
package irgen

import (
	"errors"
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/scope"
	"ember/internal/source"
	"ember/internal/types"
)

// Options tune generation.
type Options struct {
	// Strict treats every function as strict mode code.
	Strict bool
}

type generator struct {
	m    *ir.Module
	b    *ir.Builder
	info *scope.Info
	rep  diag.Reporter
	opts Options

	// slots maps every non-global declaration to its frame slot.
	slots map[scope.DeclID]*ir.Variable
	fn    *fnState
	err   error
}

type loopTarget struct {
	brk  *ir.Block
	cont *ir.Block
}

type fnState struct {
	f      *ir.Function
	id     scope.FuncID
	node   *ast.Fn // nil for the program
	scope  scope.ScopeID
	this   ir.Value
	loops  []loopTarget
	strict bool
}

// Generate builds a Module from prog. The table must already hold the
// program's normalized aliases. Semantic errors are reported through r
// and generation goes on; a malformed tree yields a
// *ir.MalformedInputError and no module.
func Generate(prog *ast.Program, tab *types.Table, r diag.Reporter, opts Options) (*ir.Module, error) {
	if prog == nil {
		return nil, ir.Malformed(diag.IRGMissingField, source.NoSpan, "no program")
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	m := ir.NewModule(tab)
	g := &generator{
		m:     m,
		b:     ir.NewBuilder(m),
		info:  scope.Resolve(prog),
		rep:   r,
		opts:  opts,
		slots: make(map[scope.DeclID]*ir.Variable),
	}
	g.program(prog)
	if g.err != nil {
		return nil, g.err
	}
	return m, nil
}

// fail records the first malformed-input error.
func (g *generator) fail(sp source.Span, format string, args ...any) {
	if g.err == nil {
		g.err = ir.Malformed(diag.IRGMalformedNode, sp, format, args...)
	}
}

// semaError reports a recoverable error and returns the placeholder
// value the caller substitutes.
func (g *generator) semaError(code diag.Code, sp source.Span, msg string) ir.Value {
	diag.ReportError(g.rep, code, sp, msg).Emit()
	return g.m.Undefined()
}

// IsMalformed reports whether err aborted generation because of a bad tree.
func IsMalformed(err error) bool {
	var mal *ir.MalformedInputError
	return errors.As(err, &mal)
}

func (g *generator) program(prog *ast.Program) {
	pid := g.info.Program()
	f := g.m.NewFunction("global", ir.FuncNormal, nil)
	f.Strict = prog.Strict || g.opts.Strict
	f.Span = prog.Span
	fs := &fnState{f: f, id: pid, scope: g.info.Func(pid).Scope, strict: f.Strict}
	g.enter(fs, prog.Span)

	globals := g.info.Scope(fs.scope).Decls
	for _, d := range globals {
		g.b.Span = g.info.Decl(d).Span
		g.b.CreateDeclareGlobalVar(g.info.Decl(d).Name)
	}
	g.hoistFunctions(prog.Body)
	g.stmts(prog.Body)
	g.finish(prog.Span)
}

// function lowers fn and returns its IR function.
func (g *generator) function(fn *ast.Fn, nameHint string) *ir.Function {
	id, ok := g.info.FuncOf(fn)
	if !ok {
		g.fail(fn.Span, "function %q was not resolved", fn.Name)
		return nil
	}
	sf := g.info.Func(id)
	name := fn.Name
	if name == "" {
		name = nameHint
	}
	kind := ir.FuncNormal
	switch {
	case fn.Generator:
		kind = ir.FuncGenerator
	case fn.Async:
		kind = ir.FuncAsync
	}
	outer := g.fn
	f := g.m.NewFunction(name, kind, outer.f)
	f.Strict = fn.Strict || outer.strict || g.opts.Strict
	f.Span = fn.Span
	f.EnvParent = sf.NeedsEnv
	for _, p := range fn.Params {
		f.AddParam(p.Name)
	}
	fs := &fnState{f: f, id: id, node: fn, scope: sf.Scope, strict: f.Strict}

	saved := *g.b
	g.enter(fs, fn.Span)
	if f.Strict {
		g.checkParams(fn)
	}
	for _, d := range sf.Decls {
		decl := g.info.Decl(d)
		if decl.Kind != scope.DeclParam {
			continue
		}
		// Duplicate names share one slot; the last parameter wins.
		if decl.Param < len(f.Params) {
			g.b.Span = decl.Span
			g.b.CreateStoreFrame(g.b.CreateLoadParam(f.Params[decl.Param]), g.slots[d])
		}
	}
	for _, d := range sf.Decls {
		if g.info.Decl(d).Kind != scope.DeclParam {
			g.b.CreateStoreFrame(g.m.Undefined(), g.slots[d])
		}
	}
	g.hoistFunctions(fn.Body)
	g.stmts(fn.Body)
	g.finish(fn.Span)

	g.fn = outer
	*g.b = saved
	return f
}

// enter allocates the frame of fs, opens its entry block and coerces
// `this` once when the body uses it.
func (g *generator) enter(fs *fnState, sp source.Span) {
	g.fn = fs
	g.b.SetFunction(fs.f)
	g.b.SetInsertionBlock(g.b.CreateBlock())
	g.b.Span = sp

	used := make(map[string]int)
	for _, d := range g.info.Func(fs.id).Decls {
		decl := g.info.Decl(d)
		name := decl.Name
		if n := used[name]; n > 0 {
			name = fmt.Sprintf("%s#%d", name, n)
		}
		used[decl.Name]++
		v := fs.f.AddVariable(name)
		v.Captured = decl.Captured
		g.slots[d] = v
	}
	if g.info.Func(fs.id).UsesThis {
		this := ir.Value(g.b.CreateLoadParam(fs.f.This))
		if !fs.strict {
			this = g.b.CreateCoerceThisNS(this)
		}
		fs.this = this
	}
}

// finish closes the last block and drops the blocks dead code landed in.
func (g *generator) finish(sp source.Span) {
	if !g.b.Terminated() {
		g.b.Span = sp
		g.b.CreateReturn(g.m.Undefined())
	}
	g.fn.f.PruneUnreachable()
	g.fn.f.InferReturnType()
}

func (g *generator) checkParams(fn *ast.Fn) {
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if seen[p.Name] {
			diag.ReportError(g.rep, diag.SemaDuplicateParam, p.Span,
				fmt.Sprintf("duplicate parameter %q in strict mode code", p.Name)).Emit()
		}
		seen[p.Name] = true
	}
}

// hoistFunctions creates every function declaration of a body up front
// and binds it, so calls may precede the declaration.
func (g *generator) hoistFunctions(body []ast.Stmt) {
	for _, fn := range declaredFunctions(body, nil) {
		d, _ := g.info.Lookup(g.info.Func(g.fn.id).Scope, fn.Name)
		closure := g.b.CreateFunction(g.function(fn, fn.Name))
		g.b.Span = fn.NameSpan
		g.storeDecl(d, fn.Name, closure)
	}
}

func declaredFunctions(list []ast.Stmt, out []*ast.Fn) []*ast.Fn {
	for _, s := range list {
		out = declaredIn(s, out)
	}
	return out
}

func declaredIn(s ast.Stmt, out []*ast.Fn) []*ast.Fn {
	switch s := s.Data.(type) {
	case *ast.SFunction:
		out = append(out, s.Fn)
	case *ast.SIf:
		out = declaredIn(s.Yes, out)
		if s.No.Data != nil {
			out = declaredIn(s.No, out)
		}
	case *ast.SWhile:
		out = declaredIn(s.Body, out)
	case *ast.SDoWhile:
		out = declaredIn(s.Body, out)
	case *ast.SFor:
		out = declaredIn(s.Body, out)
	case *ast.SBlock:
		out = declaredFunctions(s.Stmts, out)
	}
	return out
}

// loadDecl reads a resolved binding.
func (g *generator) loadDecl(d scope.DeclID) ir.Value {
	decl := g.info.Decl(d)
	if decl.Global {
		return g.b.CreateLoadProperty(g.m.Global(), g.m.Str(decl.Name))
	}
	return g.b.CreateLoadFrame(g.slots[d])
}

// storeDecl writes a binding; an unresolved name becomes a global
// property store.
func (g *generator) storeDecl(d scope.DeclID, name string, v ir.Value) {
	if d == scope.NoDeclID || g.info.Decl(d).Global {
		g.b.CreateStoreProperty(v, g.m.Global(), g.m.Str(name))
		return
	}
	g.b.CreateStoreFrame(v, g.slots[d])
}

// startDeadBlock opens a block for code following a terminator; finish
// prunes it when nothing branches there.
func (g *generator) startDeadBlock() {
	g.b.SetInsertionBlock(g.b.CreateBlock())
}
