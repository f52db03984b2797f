// Package scope resolves every identifier of a program to its declaration
// and works out which declarations are captured by nested functions.
//
// Scopes, declarations and functions live in arenas and refer to each
// other by id; nothing points back into the tree except the lookup maps
// keyed by ast nodes.
package scope

import (
	"ember/internal/ast"
	"ember/internal/source"
)

type (
	ScopeID uint32
	DeclID  uint32
	FuncID  uint32
)

const (
	NoScopeID ScopeID = 0
	NoDeclID  DeclID  = 0
	NoFuncID  FuncID  = 0
)

type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
)

type DeclKind uint8

const (
	DeclParam DeclKind = iota
	DeclVar
	DeclLet
	DeclConst
	DeclFunction
)

func (k DeclKind) String() string {
	switch k {
	case DeclParam:
		return "param"
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	}
	return "function"
}

// Decl is one named binding.
type Decl struct {
	Name  string
	Kind  DeclKind
	Span  source.Span
	Scope ScopeID
	Func  FuncID
	// Global bindings are properties of the global object, not slots.
	Global bool
	// Captured is set once a nested function references the binding.
	Captured bool
	// Param is the parameter position for DeclParam.
	Param int
}

type Scope struct {
	Kind   ScopeKind
	Parent ScopeID
	Func   FuncID
	names  map[string]DeclID
	Decls  []DeclID
}

// Function describes one function body, the program included.
type Function struct {
	Node   *ast.Fn // nil for the program
	Parent FuncID
	Scope  ScopeID
	// Decls are the function's own bindings in slot order: parameters,
	// hoisted vars and functions, then block-scoped bindings.
	Decls []DeclID
	// NeedsEnv is set when the body reads or writes a binding of an
	// enclosing function, so it must keep a link to the parent environment.
	NeedsEnv bool
	UsesThis bool
	// Suspends counts yield and await expressions directly in the body.
	Suspends int
	Nested   []FuncID
}

// Info is the result of Resolve.
type Info struct {
	scopes *Arena[Scope]
	decls  *Arena[Decl]
	funcs  *Arena[Function]

	program FuncID
	byFn    map[*ast.Fn]FuncID
	blocks  map[*ast.SBlock]ScopeID
	loops   map[*ast.SFor]ScopeID
	refs    map[*ast.EIdentifier]DeclID
}

func (in *Info) Scope(id ScopeID) *Scope  { return in.scopes.Get(uint32(id)) }
func (in *Info) Decl(id DeclID) *Decl     { return in.decls.Get(uint32(id)) }
func (in *Info) Func(id FuncID) *Function { return in.funcs.Get(uint32(id)) }

// Program returns the id of the top-level function.
func (in *Info) Program() FuncID { return in.program }

// FuncOf returns the id assigned to a function node.
func (in *Info) FuncOf(fn *ast.Fn) (FuncID, bool) {
	id, ok := in.byFn[fn]
	return id, ok
}

// BlockScope returns the scope opened by a block statement, if it
// declares anything block-scoped.
func (in *Info) BlockScope(b *ast.SBlock) (ScopeID, bool) {
	id, ok := in.blocks[b]
	return id, ok
}

// LoopScope returns the scope of a `for (let ...)` header.
func (in *Info) LoopScope(f *ast.SFor) (ScopeID, bool) {
	id, ok := in.loops[f]
	return id, ok
}

// Ref returns the declaration an identifier resolves to. Unresolved
// names report false and become dynamic global lookups.
func (in *Info) Ref(id *ast.EIdentifier) (DeclID, bool) {
	d, ok := in.refs[id]
	return d, ok && d != NoDeclID
}

// Lookup finds name starting from scope s, returning the declaration and
// how many function boundaries were crossed.
func (in *Info) Lookup(s ScopeID, name string) (DeclID, int) {
	hops := 0
	for s != NoScopeID {
		sc := in.Scope(s)
		if d, ok := sc.names[name]; ok {
			return d, hops
		}
		if p := in.Scope(sc.Parent); p != nil && p.Func != sc.Func {
			hops++
		}
		s = sc.Parent
	}
	return NoDeclID, hops
}

// Captured lists the captured bindings of f in slot order.
func (in *Info) Captured(f FuncID) []DeclID {
	var out []DeclID
	for _, d := range in.Func(f).Decls {
		if in.Decl(d).Captured {
			out = append(out, d)
		}
	}
	return out
}
