package ir

import (
	"math"

	"ember/internal/types"
)

// Value is anything an instruction operand may refer to. Values are
// compared by identity.
type Value interface {
	Type() types.TypeID
	isValue()
}

func (*Instr) isValue()        {}
func (*Literal) isValue()      {}
func (*Variable) isValue()     {}
func (*Param) isValue()        {}
func (*Block) isValue()        {}
func (*Function) isValue()     {}
func (*GlobalObject) isValue() {}
func (*Builtin) isValue()      {}

type LiteralKind uint8

const (
	LitUndefined LiteralKind = iota
	LitNull
	LitBool
	LitNumber
	LitString
	LitBigInt
	// LitEmpty is the "no value" sentinel, e.g. an absent prototype
	// operand or an array hole.
	LitEmpty
)

// Literal is an interned constant: two literals with the same kind and
// payload are the same pointer within a Module.
type Literal struct {
	Kind LiteralKind
	Num  float64
	Str  string // string value or bigint digits
	Bool bool
	typ  types.TypeID
}

func (l *Literal) Type() types.TypeID { return l.typ }

// Truthy reports the boolean conversion of a literal.
func (l *Literal) Truthy() bool {
	switch l.Kind {
	case LitBool:
		return l.Bool
	case LitNumber:
		return l.Num != 0 && !math.IsNaN(l.Num)
	case LitString:
		return l.Str != ""
	case LitBigInt:
		return l.Str != "0"
	}
	return false
}

type litKey struct {
	kind LiteralKind
	bits uint64
	str  string
}

// Variable is a frame slot. A slot referenced from a function other than
// its owner lives in the owner's environment.
type Variable struct {
	Name     string
	Func     *Function
	Captured bool
}

func (v *Variable) Type() types.TypeID { return v.Func.Module.Types.Builtins().Any }

// Param is a formal parameter, or the implicit `this`.
type Param struct {
	Name  string
	Index int // -1 for this
	Func  *Function
}

func (p *Param) Type() types.TypeID { return p.Func.Module.Types.Builtins().Any }

// GlobalObject is the module-wide global object operand.
type GlobalObject struct {
	typ types.TypeID
}

func (g *GlobalObject) Type() types.TypeID { return g.typ }

// Builtin names a runtime helper called with CallBuiltinInst.
type Builtin struct {
	Name string
}

func (*Builtin) Type() types.TypeID { return types.NoTypeID }

// Builtins used by the generator.
const (
	BuiltinSilentSetPrototypeOf = "silentSetPrototypeOf"
	BuiltinSpawnAsync           = "spawnAsync"
)

func (m *Module) literal(k litKey, lit Literal) *Literal {
	if l, ok := m.literals[k]; ok {
		return l
	}
	l := &lit
	m.literals[k] = l
	return l
}

func (m *Module) Undefined() *Literal {
	return m.literal(litKey{kind: LitUndefined}, Literal{Kind: LitUndefined, typ: m.Types.Builtins().Undefined})
}

func (m *Module) Null() *Literal {
	return m.literal(litKey{kind: LitNull}, Literal{Kind: LitNull, typ: m.Types.Builtins().Null})
}

func (m *Module) Empty() *Literal {
	return m.literal(litKey{kind: LitEmpty}, Literal{Kind: LitEmpty, typ: m.Types.Builtins().Any})
}

func (m *Module) Bool(b bool) *Literal {
	var bits uint64
	if b {
		bits = 1
	}
	return m.literal(litKey{kind: LitBool, bits: bits}, Literal{Kind: LitBool, Bool: b, typ: m.Types.Builtins().Boolean})
}

// Number interns f by bit pattern, so 0 and -0 stay distinct.
func (m *Module) Number(f float64) *Literal {
	return m.literal(litKey{kind: LitNumber, bits: math.Float64bits(f)}, Literal{Kind: LitNumber, Num: f, typ: m.Types.Builtins().Number})
}

// Str interns the string literal s.
func (m *Module) Str(s string) *Literal {
	return m.literal(litKey{kind: LitString, str: s}, Literal{Kind: LitString, Str: s, typ: m.Types.Builtins().String})
}

func (m *Module) BigInt(digits string) *Literal {
	return m.literal(litKey{kind: LitBigInt, str: digits}, Literal{Kind: LitBigInt, Str: digits, typ: m.Types.Builtins().BigInt})
}

// Global returns the global object operand.
func (m *Module) Global() *GlobalObject {
	return m.global
}

// Builtin returns the interned helper called name.
func (m *Module) Builtin(name string) *Builtin {
	if b, ok := m.builtins[name]; ok {
		return b
	}
	b := &Builtin{Name: name}
	m.builtins[name] = b
	return b
}
