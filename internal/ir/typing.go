package ir

import (
	"ember/internal/types"
)

// ResultType computes the type of in from its opcode, operator and the
// current types of its operands. Builders use it when creating an
// instruction and type inference re-runs it as operand types sharpen.
func (m *Module) ResultType(in *Instr) types.TypeID {
	b := m.Types.Builtins()
	switch in.Op {
	case BinaryOperatorInst, NumericBinaryOperatorInst:
		return m.binaryType(in.Operator, in.Operands[0].Type(), in.Operands[1].Type())
	case UnaryOperatorInst:
		switch in.Operator {
		case "!":
			return b.Boolean
		case "typeof":
			return b.String
		}
		return m.numericType(in.Operands[0].Type())
	case AsNumberInst, AsInt32Inst, GetGeneratorStateInst:
		return b.Number
	case CoerceThisNSInst, AllocObjectInst, AllocObjectLiteralInst, AllocArrayInst,
		CreateFunctionInst, CreateGeneratorInst:
		return b.Object
	case DeletePropertyLooseInst, IsForceReturnInst:
		return b.Boolean
	case PhiInst:
		var ids []types.TypeID
		for n := range in.NumIncoming() {
			v, _ := in.Incoming(n)
			ids = append(ids, v.Type())
		}
		if t := m.Types.Union(ids...); t != types.NoTypeID {
			return t
		}
		return b.Any
	}
	if in.Op.HasValue() {
		return b.Any
	}
	return types.NoTypeID
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "===", "!==", "<", ">", "<=", ">=", "in", "instanceof":
		return true
	}
	return false
}

func (m *Module) binaryType(op string, l, r types.TypeID) types.TypeID {
	b := m.Types.Builtins()
	switch {
	case isComparison(op):
		return b.Boolean
	case op == ">>>":
		return b.Number
	case op == "+":
		if m.Types.Is(l, types.KindString) || m.Types.Is(r, types.KindString) {
			return b.String
		}
		if m.maybeString(l) || m.maybeString(r) {
			return m.Types.Union(b.String, b.Number, b.BigInt)
		}
		if m.numberOnly(l) && m.numberOnly(r) {
			return b.Number
		}
		if m.Types.Is(l, types.KindBigInt) && m.Types.Is(r, types.KindBigInt) {
			return b.BigInt
		}
		return m.Types.Union(b.Number, b.BigInt)
	}
	if m.numberOnly(l) && m.numberOnly(r) {
		return b.Number
	}
	if m.Types.Is(l, types.KindBigInt) && m.Types.Is(r, types.KindBigInt) {
		return b.BigInt
	}
	return m.Types.Union(b.Number, b.BigInt)
}

func (m *Module) numericType(t types.TypeID) types.TypeID {
	b := m.Types.Builtins()
	if m.numberOnly(t) {
		return b.Number
	}
	if m.Types.Is(t, types.KindBigInt) {
		return b.BigInt
	}
	return m.Types.Union(b.Number, b.BigInt)
}

// numberOnly reports types whose numeric conversion can never produce a
// bigint: primitives other than bigint, with no object member.
func (m *Module) numberOnly(t types.TypeID) bool {
	for _, id := range m.Types.Members(t) {
		switch m.Types.MustLookup(id).Kind {
		case types.KindUndefined, types.KindNull, types.KindBoolean, types.KindNumber, types.KindString:
		default:
			return false
		}
	}
	return true
}

func (m *Module) maybeString(t types.TypeID) bool {
	for _, id := range m.Types.Members(t) {
		switch m.Types.MustLookup(id).Kind {
		case types.KindString, types.KindObject, types.KindAny, types.KindArray:
			return true
		}
	}
	return false
}

// IsNumber reports whether v is statically known to be a number.
func (m *Module) IsNumber(v Value) bool {
	return m.Types.Is(v.Type(), types.KindNumber)
}

// InferReturnType sets the return type to the union of the types of all
// returned values; a function that never returns gets undefined.
func (f *Function) InferReturnType() {
	var ids []types.TypeID
	f.ForEachInstr(func(in *Instr) {
		if in.Op == ReturnInst {
			ids = append(ids, in.Operands[0].Type())
		}
	})
	t := f.Module.Types.Union(ids...)
	if t == types.NoTypeID {
		t = f.Module.Types.Builtins().Undefined
	}
	f.ReturnType = t
}
