// Package ireval executes IR directly over a small value model. It is
// the oracle the compiler's tests check lowered and optimized code
// against, not a runtime: there are no builtins beyond the ones the
// generator emits, and promises are not modeled.
package ireval

import (
	"fmt"
	"math"
	"math/big"

	"ember/internal/ast"
	"ember/internal/ir"
)

type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindBigInt
	KindObject
	// KindEmpty is the absent-value sentinel of the IR.
	KindEmpty
)

// Value is one runtime value. Objects, arrays, closures and generators
// all share KindObject.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
	Big  *big.Int
	Obj  *Object
}

var (
	Undefined = Value{Kind: KindUndefined}
	Null      = Value{Kind: KindNull}
	empty     = Value{Kind: KindEmpty}
)

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value      { return Value{Kind: KindBoolean, Bool: b} }

func (v Value) String() string {
	switch v.Kind {
	case KindObject:
		switch {
		case v.Obj.Closure != nil:
			return "function " + v.Obj.Closure.F.Name
		case v.Obj.Gen != nil:
			return "[object Generator]"
		}
		return "[object Object]"
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	}
	return toString(v)
}

// Property is an own property slot: a data value or an accessor pair.
type Property struct {
	Value    Value
	Getter   Value
	Setter   Value
	Accessor bool
}

// Object is a property map with a prototype link. Keys keep insertion
// order.
type Object struct {
	Proto   *Object
	props   map[string]*Property
	keys    []string
	Closure *Closure
	Gen     *Generator
}

func NewObject(proto *Object) *Object {
	return &Object{Proto: proto, props: make(map[string]*Property)}
}

// Own returns the own property named key.
func (o *Object) Own(key string) (*Property, bool) {
	p, ok := o.props[key]
	return p, ok
}

// Keys lists own property names in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) define(key string, p Property) {
	if old, ok := o.props[key]; ok {
		*old = p
		return
	}
	o.props[key] = &p
	o.keys = append(o.keys, key)
}

func (o *Object) remove(key string) {
	if _, ok := o.props[key]; !ok {
		return
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// lookup walks the prototype chain.
func (o *Object) lookup(key string) (*Property, bool) {
	for cur := o; cur != nil; cur = cur.Proto {
		if p, ok := cur.props[key]; ok {
			return p, true
		}
	}
	return nil, false
}

// Closure is a function object bound to the frame it was created in.
type Closure struct {
	F   *ir.Function
	Env *Frame
}

// Frame holds the slots of one activation. Nested functions reach outer
// slots through Parent.
type Frame struct {
	F      *ir.Function
	Slots  map[*ir.Variable]Value
	Parent *Frame
}

func newFrame(f *ir.Function, parent *Frame) *Frame {
	return &Frame{F: f, Slots: make(map[*ir.Variable]Value, len(f.Frame)), Parent: parent}
}

// owner finds the activation of the function that declares v.
func (fr *Frame) owner(v *ir.Variable) (*Frame, error) {
	for cur := fr; cur != nil; cur = cur.Parent {
		if cur.F == v.Func {
			return cur, nil
		}
	}
	return nil, fmt.Errorf("no activation of %s for slot %s", v.Func.Name, v.Name)
}

// FromLiteral converts an IR constant to a runtime value.
func FromLiteral(l *ir.Literal) Value {
	switch l.Kind {
	case ir.LitNull:
		return Null
	case ir.LitBool:
		return Bool(l.Bool)
	case ir.LitNumber:
		return Number(l.Num)
	case ir.LitString:
		return String(l.Str)
	case ir.LitBigInt:
		n, ok := new(big.Int).SetString(l.Str, 0)
		if !ok {
			n = new(big.Int)
		}
		return Value{Kind: KindBigInt, Big: n}
	case ir.LitEmpty:
		return empty
	}
	return Undefined
}

func truthy(v Value) bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindString:
		return v.Str != ""
	case KindBigInt:
		return v.Big.Sign() != 0
	case KindObject:
		return true
	}
	return false
}

func typeOf(v Value) string {
	switch v.Kind {
	case KindUndefined, KindEmpty:
		return "undefined"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindObject:
		if v.Obj.Closure != nil {
			return "function"
		}
	}
	return "object"
}

// toPrimitive flattens objects to their default string form; user
// valueOf and toString are not consulted.
func toPrimitive(v Value) Value {
	if v.Kind == KindObject {
		return String(v.String())
	}
	return v
}

func toNumber(v Value) float64 {
	switch v.Kind {
	case KindNull:
		return 0
	case KindBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case KindNumber:
		return v.Num
	case KindString:
		return ast.StringToNumber(v.Str)
	case KindObject:
		return toNumber(toPrimitive(v))
	}
	return math.NaN()
}

func toString(v Value) string {
	switch v.Kind {
	case KindUndefined, KindEmpty:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return ast.NumberToString(v.Num)
	case KindString:
		return v.Str
	case KindBigInt:
		return v.Big.String()
	}
	return toPrimitive(v).Str
}

// propertyKey converts a key operand to the property name it denotes.
func propertyKey(v Value) string {
	return toString(v)
}
