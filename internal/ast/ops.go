package ast

import "slices"

// OpCode enumerates every operator the input language has.
type OpCode uint8

const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpCpl
	UnOpNot
	UnOpTypeof
	UnOpVoid
	UnOpDelete

	// Update
	UnOpPreInc
	UnOpPreDec
	UnOpPostInc
	UnOpPostDec

	// Binary
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
	BinOpPow
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpInstanceof
	BinOpShl
	BinOpShr
	BinOpUShr
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpBitOr
	BinOpBitAnd
	BinOpBitXor

	// Logical
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpNullishCoalescing

	// Assignment
	BinOpAssign
	BinOpAddAssign
	BinOpSubAssign
	BinOpMulAssign
	BinOpDivAssign
	BinOpRemAssign
	BinOpPowAssign
	BinOpShlAssign
	BinOpShrAssign
	BinOpUShrAssign
	BinOpBitOrAssign
	BinOpBitAndAssign
	BinOpBitXorAssign
	BinOpLogicalOrAssign
	BinOpLogicalAndAssign
	BinOpNullishCoalescingAssign

	opCount
)

type opKind uint8

const (
	opPrefix opKind = iota
	opUpdate
	opBinary
	opLogical
	opAssign
)

type OpTableEntry struct {
	Text string
	kind opKind
	// Binary is the operator an assignment applies before storing.
	Binary OpCode
}

// OpTable is indexed by OpCode.
var OpTable = [opCount]OpTableEntry{
	{"+", opPrefix, 0},
	{"-", opPrefix, 0},
	{"~", opPrefix, 0},
	{"!", opPrefix, 0},
	{"typeof", opPrefix, 0},
	{"void", opPrefix, 0},
	{"delete", opPrefix, 0},

	{"++", opUpdate, BinOpAdd},
	{"--", opUpdate, BinOpSub},
	{"++", opUpdate, BinOpAdd},
	{"--", opUpdate, BinOpSub},

	{"+", opBinary, 0},
	{"-", opBinary, 0},
	{"*", opBinary, 0},
	{"/", opBinary, 0},
	{"%", opBinary, 0},
	{"**", opBinary, 0},
	{"<", opBinary, 0},
	{"<=", opBinary, 0},
	{">", opBinary, 0},
	{">=", opBinary, 0},
	{"in", opBinary, 0},
	{"instanceof", opBinary, 0},
	{"<<", opBinary, 0},
	{">>", opBinary, 0},
	{">>>", opBinary, 0},
	{"==", opBinary, 0},
	{"!=", opBinary, 0},
	{"===", opBinary, 0},
	{"!==", opBinary, 0},
	{"|", opBinary, 0},
	{"&", opBinary, 0},
	{"^", opBinary, 0},

	{"||", opLogical, 0},
	{"&&", opLogical, 0},
	{"??", opLogical, 0},

	{"=", opAssign, 0},
	{"+=", opAssign, BinOpAdd},
	{"-=", opAssign, BinOpSub},
	{"*=", opAssign, BinOpMul},
	{"/=", opAssign, BinOpDiv},
	{"%=", opAssign, BinOpRem},
	{"**=", opAssign, BinOpPow},
	{"<<=", opAssign, BinOpShl},
	{">>=", opAssign, BinOpShr},
	{">>>=", opAssign, BinOpUShr},
	{"|=", opAssign, BinOpBitOr},
	{"&=", opAssign, BinOpBitAnd},
	{"^=", opAssign, BinOpBitXor},
	{"||=", opAssign, BinOpLogicalOr},
	{"&&=", opAssign, BinOpLogicalAnd},
	{"??=", opAssign, BinOpNullishCoalescing},
}

func (op OpCode) String() string {
	if op < opCount {
		return OpTable[op].Text
	}
	return "?"
}

func (op OpCode) IsPrefix() bool  { return op < opCount && OpTable[op].kind == opPrefix }
func (op OpCode) IsUpdate() bool  { return op < opCount && OpTable[op].kind == opUpdate }
func (op OpCode) IsBinary() bool  { return op < opCount && OpTable[op].kind == opBinary }
func (op OpCode) IsLogical() bool { return op < opCount && OpTable[op].kind == opLogical }
func (op OpCode) IsAssign() bool  { return op < opCount && OpTable[op].kind == opAssign }

// Compound returns the operator applied by a compound assignment or an
// update expression; ok is false for plain "=".
func (op OpCode) Compound() (OpCode, bool) {
	if op == BinOpAssign || !(op.IsAssign() || op.IsUpdate()) {
		return 0, false
	}
	return OpTable[op].Binary, true
}

func lookup(text string, kinds ...opKind) (OpCode, bool) {
	for i := range opCount {
		e := OpTable[i]
		if e.Text == text && slices.Contains(kinds, e.kind) {
			return i, true
		}
	}
	return 0, false
}

// LookupPrefix maps a UnaryExpression operator.
func LookupPrefix(text string) (OpCode, bool) { return lookup(text, opPrefix) }

// LookupBinary maps BinaryExpression and LogicalExpression operators.
func LookupBinary(text string) (OpCode, bool) { return lookup(text, opBinary, opLogical) }

// LookupAssign maps an AssignmentExpression operator.
func LookupAssign(text string) (OpCode, bool) { return lookup(text, opAssign) }

// LookupUpdate maps an UpdateExpression operator.
func LookupUpdate(text string, prefix bool) (OpCode, bool) {
	switch {
	case text == "++" && prefix:
		return UnOpPreInc, true
	case text == "--" && prefix:
		return UnOpPreDec, true
	case text == "++":
		return UnOpPostInc, true
	case text == "--":
		return UnOpPostDec, true
	}
	return 0, false
}
