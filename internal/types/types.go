// Package types holds the module-wide Type Table and the normalizer that
// canonicalizes (possibly recursive) type aliases into it.
package types

import "fmt"

// TypeID addresses an entry of the Table.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates type kinds. The declaration order is the fixed total
// order union members are sorted by.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUndefined
	KindNull
	KindBoolean
	KindString
	KindNumber
	KindBigInt
	KindObject
	KindAny
	KindArray
	KindUnion
	KindAlias
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBoolean:   "boolean",
	KindString:    "string",
	KindNumber:    "number",
	KindBigInt:    "bigint",
	KindObject:    "object",
	KindAny:       "any",
	KindArray:     "array",
	KindUnion:     "union",
	KindAlias:     "alias",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsPrimitive reports kinds without payload.
func (k Kind) IsPrimitive() bool {
	return k >= KindUndefined && k <= KindAny
}

// Type is one immutable table entry.
type Type struct {
	Kind Kind
	// Elem is the element of an array or the target of an alias.
	Elem TypeID
	// Members of a union: flattened, deduplicated and sorted.
	Members []TypeID
	// Name of an alias.
	Name string
}

// Builtins are the primitive ids every table is seeded with.
type Builtins struct {
	Undefined TypeID
	Null      TypeID
	Boolean   TypeID
	String    TypeID
	Number    TypeID
	BigInt    TypeID
	Object    TypeID
	Any       TypeID
}

// Of returns the builtin id for a primitive kind.
func (b Builtins) Of(k Kind) TypeID {
	switch k {
	case KindUndefined:
		return b.Undefined
	case KindNull:
		return b.Null
	case KindBoolean:
		return b.Boolean
	case KindString:
		return b.String
	case KindNumber:
		return b.Number
	case KindBigInt:
		return b.BigInt
	case KindObject:
		return b.Object
	case KindAny:
		return b.Any
	}
	return NoTypeID
}
