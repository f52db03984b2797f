package ir

import "fmt"

// Opcode identifies the instruction variant.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	LoadParamInst
	LoadFrameInst
	StoreFrameInst

	BinaryOperatorInst
	NumericBinaryOperatorInst
	UnaryOperatorInst
	AsNumberInst
	AsInt32Inst
	CoerceThisNSInst

	LoadPropertyInst
	StorePropertyLooseInst
	TryLoadGlobalPropertyInst
	DeclareGlobalVarInst
	DeletePropertyLooseInst

	AllocObjectInst
	AllocObjectLiteralInst
	AllocArrayInst
	StoreNewOwnPropertyInst
	StoreOwnPropertyInst
	StoreGetterSetterInst

	CallBuiltinInst
	CallInst
	ConstructInst
	CreateFunctionInst
	CreateGeneratorInst

	PhiInst

	BranchInst
	CondBranchInst
	SwitchInst
	ReturnInst
	ThrowInst

	YieldInst
	AwaitInst
	SuspendInst
	GetGeneratorStateInst
	SetGeneratorStateInst
	ResumeValueInst
	IsForceReturnInst

	opcodeCount
)

// Effect classifies what executing an instruction may observe or change.
type Effect uint8

const (
	// EffectPure depends only on its operands and changes nothing.
	EffectPure Effect = iota
	// EffectReads depends on mutable state but changes nothing.
	EffectReads
	// EffectWrites may change state, throw, or run user code.
	EffectWrites
	// EffectTerminator ends a block.
	EffectTerminator
)

type opInfo struct {
	name   string
	effect Effect
	value  bool
}

var opTable = [...]opInfo{
	OpInvalid: {"<invalid>", EffectWrites, false},

	LoadParamInst:  {"LoadParamInst", EffectReads, true},
	LoadFrameInst:  {"LoadFrameInst", EffectReads, true},
	StoreFrameInst: {"StoreFrameInst", EffectWrites, false},

	BinaryOperatorInst:        {"BinaryOperatorInst", EffectPure, true},
	NumericBinaryOperatorInst: {"NumericBinaryOperatorInst", EffectPure, true},
	UnaryOperatorInst:         {"UnaryOperatorInst", EffectPure, true},
	AsNumberInst:              {"AsNumberInst", EffectPure, true},
	AsInt32Inst:               {"AsInt32Inst", EffectPure, true},
	CoerceThisNSInst:          {"CoerceThisNSInst", EffectReads, true},

	LoadPropertyInst:          {"LoadPropertyInst", EffectWrites, true},
	StorePropertyLooseInst:    {"StorePropertyLooseInst", EffectWrites, false},
	TryLoadGlobalPropertyInst: {"TryLoadGlobalPropertyInst", EffectWrites, true},
	DeclareGlobalVarInst:      {"DeclareGlobalVarInst", EffectWrites, false},
	DeletePropertyLooseInst:   {"DeletePropertyLooseInst", EffectWrites, true},

	AllocObjectInst:         {"AllocObjectInst", EffectWrites, true},
	AllocObjectLiteralInst:  {"AllocObjectLiteralInst", EffectWrites, true},
	AllocArrayInst:          {"AllocArrayInst", EffectWrites, true},
	StoreNewOwnPropertyInst: {"StoreNewOwnPropertyInst", EffectWrites, false},
	StoreOwnPropertyInst:    {"StoreOwnPropertyInst", EffectWrites, false},
	StoreGetterSetterInst:   {"StoreGetterSetterInst", EffectWrites, false},

	CallBuiltinInst:     {"CallBuiltinInst", EffectWrites, true},
	CallInst:            {"CallInst", EffectWrites, true},
	ConstructInst:       {"ConstructInst", EffectWrites, true},
	CreateFunctionInst:  {"CreateFunctionInst", EffectWrites, true},
	CreateGeneratorInst: {"CreateGeneratorInst", EffectWrites, true},

	PhiInst: {"PhiInst", EffectReads, true},

	BranchInst:     {"BranchInst", EffectTerminator, false},
	CondBranchInst: {"CondBranchInst", EffectTerminator, false},
	SwitchInst:     {"SwitchInst", EffectTerminator, false},
	ReturnInst:     {"ReturnInst", EffectTerminator, false},
	ThrowInst:      {"ThrowInst", EffectTerminator, false},

	YieldInst:             {"YieldInst", EffectWrites, true},
	AwaitInst:             {"AwaitInst", EffectWrites, true},
	SuspendInst:           {"SuspendInst", EffectTerminator, false},
	GetGeneratorStateInst: {"GetGeneratorStateInst", EffectReads, true},
	SetGeneratorStateInst: {"SetGeneratorStateInst", EffectWrites, false},
	ResumeValueInst:       {"ResumeValueInst", EffectReads, true},
	IsForceReturnInst:     {"IsForceReturnInst", EffectReads, true},
}

// Every opcode needs a row: this fails to compile when the table and the
// enum drift apart.
var _ = [1]struct{}{}[len(opTable)-int(opcodeCount)]

func (op Opcode) String() string {
	if int(op) < len(opTable) && opTable[op].name != "" {
		return opTable[op].name
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount
}

func (op Opcode) Effect() Effect {
	return opTable[op].effect
}

// HasValue reports whether the instruction produces a result other
// instructions may refer to.
func (op Opcode) HasValue() bool {
	return opTable[op].value
}

func (op Opcode) IsTerminator() bool {
	return opTable[op].effect == EffectTerminator
}

// IsSuspend reports the source-level suspension expressions.
func (op Opcode) IsSuspend() bool {
	return op == YieldInst || op == AwaitInst
}

// OpcodeByName maps a dump name back to its opcode.
func OpcodeByName(name string) (Opcode, bool) {
	for i := OpInvalid + 1; i < opcodeCount; i++ {
		if opTable[i].name == name {
			return i, true
		}
	}
	return OpInvalid, false
}
