// Package ast is the syntax tree handed over by the external parser. Every
// node keeps the span it was parsed from; the tree is never mutated after
// decoding.
package ast

import (
	"ember/internal/source"
)

// Expr is an expression node. A zero Expr (Data == nil) marks an absent
// optional expression.
type Expr struct {
	Data E
	Span source.Span
}

func (e Expr) Missing() bool { return e.Data == nil }

// E is implemented by every expression payload.
type E interface{ isExpr() }

func (*EIdentifier) isExpr() {}
func (*ENumber) isExpr()     {}
func (*EString) isExpr()     {}
func (*EBoolean) isExpr()    {}
func (*ENull) isExpr()       {}
func (*EUndefined) isExpr()  {}
func (*EBigInt) isExpr()     {}
func (*EThis) isExpr()       {}
func (*EObject) isExpr()     {}
func (*EArray) isExpr()      {}
func (*EUnary) isExpr()      {}
func (*EUpdate) isExpr()     {}
func (*EBinary) isExpr()     {}
func (*EAssign) isExpr()     {}
func (*EIf) isExpr()         {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*ECall) isExpr()       {}
func (*ENew) isExpr()        {}
func (*EFunction) isExpr()   {}
func (*EYield) isExpr()      {}
func (*EAwait) isExpr()      {}
func (*ESequence) isExpr()   {}

type EIdentifier struct{ Name string }

type ENumber struct{ Value float64 }

type EString struct{ Value string }

type EBoolean struct{ Value bool }

type ENull struct{}

// EUndefined is produced for `void 0` style constants and synthesized
// defaults; the identifier `undefined` stays an EIdentifier.
type EUndefined struct{}

type EBigInt struct{ Digits string }

type EThis struct{}

type PropertyKind uint8

const (
	PropertyInit PropertyKind = iota
	PropertyGet
	PropertySet
)

// Property is one entry of an object literal. Key holds the static name
// for non-computed keys; KeyExpr is set when Computed.
type Property struct {
	Key       string
	KeyExpr   Expr
	Value     Expr
	Kind      PropertyKind
	Computed  bool
	Shorthand bool
	Span      source.Span
}

type EObject struct{ Properties []Property }

// EArray items may be missing for holes.
type EArray struct{ Items []Expr }

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EUpdate struct {
	Op     OpCode
	Target Expr
}

// EBinary covers arithmetic, comparison, bitwise and logical operators.
type EBinary struct {
	Op          OpCode
	Left, Right Expr
}

type EAssign struct {
	Op     OpCode
	Target Expr
	Value  Expr
}

// EIf is the conditional operator a ? b : c.
type EIf struct {
	Test, Yes, No Expr
}

type EDot struct {
	Target   Expr
	Name     string
	NameSpan source.Span
}

type EIndex struct {
	Target Expr
	Index  Expr
}

type ECall struct {
	Target Expr
	Args   []Expr
}

type ENew struct {
	Target Expr
	Args   []Expr
}

type EFunction struct{ Fn *Fn }

type EYield struct {
	Value    Expr
	Delegate bool
}

type EAwait struct{ Value Expr }

type ESequence struct{ Exprs []Expr }

// Stmt is a statement node.
type Stmt struct {
	Data S
	Span source.Span
}

type S interface{ isStmt() }

func (*SVar) isStmt()       {}
func (*SFunction) isStmt()  {}
func (*SReturn) isStmt()    {}
func (*SIf) isStmt()        {}
func (*SWhile) isStmt()     {}
func (*SDoWhile) isStmt()   {}
func (*SFor) isStmt()       {}
func (*SBlock) isStmt()     {}
func (*SExpr) isStmt()      {}
func (*SEmpty) isStmt()     {}
func (*SBreak) isStmt()     {}
func (*SContinue) isStmt()  {}
func (*SThrow) isStmt()     {}
func (*STypeAlias) isStmt() {}

type VarKind uint8

const (
	VarVar VarKind = iota
	VarLet
	VarConst
)

func (k VarKind) String() string {
	switch k {
	case VarLet:
		return "let"
	case VarConst:
		return "const"
	}
	return "var"
}

type Decl struct {
	Name  string
	Span  source.Span
	Value Expr
}

type SVar struct {
	Kind  VarKind
	Decls []Decl
}

type SFunction struct{ Fn *Fn }

type SReturn struct{ Value Expr }

type SIf struct {
	Test Expr
	Yes  Stmt
	No   Stmt // Data == nil when there is no else branch
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SDoWhile struct {
	Body Stmt
	Test Expr
}

// SFor has either InitStmt (a declaration) or InitExpr set, or neither.
type SFor struct {
	InitStmt Stmt
	InitExpr Expr
	Test     Expr
	Update   Expr
	Body     Stmt
}

type SBlock struct{ Stmts []Stmt }

type SExpr struct{ Value Expr }

type SEmpty struct{}

type SBreak struct{}

type SContinue struct{}

type SThrow struct{ Value Expr }

// STypeAlias is a `type Name = ...` declaration.
type STypeAlias struct {
	Name  string
	Value Type
}

type Param struct {
	Name string
	Span source.Span
}

// Fn is shared by declarations and function expressions.
type Fn struct {
	Name      string
	NameSpan  source.Span
	Params    []Param
	Body      []Stmt
	Generator bool
	Async     bool
	Strict    bool
	Span      source.Span
}

// Program is the root of one compilation unit.
type Program struct {
	Body   []Stmt
	Strict bool
	Span   source.Span
}

// Type is a type annotation node.
type Type struct {
	Data T
	Span source.Span
}

type T interface{ isType() }

func (*TPrimitive) isType() {}
func (*TArray) isType()     {}
func (*TUnion) isType()     {}
func (*TRef) isType()       {}
func (*TNullable) isType()  {}

type PrimitiveKind uint8

const (
	PrimUndefined PrimitiveKind = iota
	PrimNull
	PrimBoolean
	PrimString
	PrimNumber
	PrimBigInt
	PrimObject
	PrimAny
)

type TPrimitive struct{ Kind PrimitiveKind }

type TArray struct{ Elem Type }

type TUnion struct{ Members []Type }

// TRef names another alias.
type TRef struct{ Name string }

// TNullable is ?T, which means T | null | undefined.
type TNullable struct{ Inner Type }
