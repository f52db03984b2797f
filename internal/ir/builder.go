package ir

import (
	"ember/internal/source"
)

// Builder appends instructions at the end of its insertion block. Span
// is stamped on every instruction it creates.
type Builder struct {
	M     *Module
	F     *Function
	Block *Block
	Span  source.Span
}

func NewBuilder(m *Module) *Builder {
	return &Builder{M: m}
}

// SetFunction switches to f and positions at its last block, if any.
func (b *Builder) SetFunction(f *Function) {
	b.F = f
	b.Block = nil
	if n := len(f.Blocks); n > 0 {
		b.Block = f.Blocks[n-1]
	}
}

func (b *Builder) SetInsertionBlock(bb *Block) {
	b.Block = bb
}

func (b *Builder) CreateBlock() *Block {
	return b.F.NewBlock()
}

// Terminated reports whether the insertion block already ends in a
// terminator.
func (b *Builder) Terminated() bool {
	return b.Block == nil || b.Block.Terminated()
}

// Emit appends a new instruction and assigns its result type.
func (b *Builder) Emit(op Opcode, operator string, operands ...Value) *Instr {
	in := NewInstr(op, operator, 0, b.Span, operands...)
	in.Result = b.M.ResultType(in)
	b.Block.Append(in)
	return in
}

func (b *Builder) CreateLoadParam(p *Param) *Instr {
	return b.Emit(LoadParamInst, "", p)
}

func (b *Builder) CreateLoadFrame(v *Variable) *Instr {
	return b.Emit(LoadFrameInst, "", v)
}

func (b *Builder) CreateStoreFrame(val Value, v *Variable) *Instr {
	return b.Emit(StoreFrameInst, "", val, v)
}

func (b *Builder) CreateBinary(op string, l, r Value) *Instr {
	return b.Emit(BinaryOperatorInst, op, l, r)
}

func (b *Builder) CreateUnary(op string, v Value) *Instr {
	return b.Emit(UnaryOperatorInst, op, v)
}

func (b *Builder) CreateAsNumber(v Value) *Instr {
	return b.Emit(AsNumberInst, "", v)
}

func (b *Builder) CreateAsInt32(v Value) *Instr {
	return b.Emit(AsInt32Inst, "", v)
}

func (b *Builder) CreateCoerceThisNS(v Value) *Instr {
	return b.Emit(CoerceThisNSInst, "", v)
}

func (b *Builder) CreateLoadProperty(obj, key Value) *Instr {
	return b.Emit(LoadPropertyInst, "", obj, key)
}

func (b *Builder) CreateStoreProperty(val, obj, key Value) *Instr {
	return b.Emit(StorePropertyLooseInst, "", val, obj, key)
}

func (b *Builder) CreateTryLoadGlobal(name string) *Instr {
	return b.Emit(TryLoadGlobalPropertyInst, "", b.M.Global(), b.M.Str(name))
}

func (b *Builder) CreateDeclareGlobalVar(name string) *Instr {
	return b.Emit(DeclareGlobalVarInst, "", b.M.Str(name))
}

func (b *Builder) CreateDeleteProperty(obj, key Value) *Instr {
	return b.Emit(DeletePropertyLooseInst, "", obj, key)
}

// CreateAllocObject allocates an object with room for size properties.
// A nil parent keeps the default prototype.
func (b *Builder) CreateAllocObject(size int, parent Value) *Instr {
	if parent == nil {
		parent = b.M.Empty()
	}
	return b.Emit(AllocObjectInst, "", b.M.Number(float64(size)), parent)
}

// CreateAllocObjectLiteral takes alternating key, value operands.
func (b *Builder) CreateAllocObjectLiteral(pairs ...Value) *Instr {
	return b.Emit(AllocObjectLiteralInst, "", pairs...)
}

func (b *Builder) CreateAllocArray(elems ...Value) *Instr {
	ops := append([]Value{b.M.Number(float64(len(elems)))}, elems...)
	return b.Emit(AllocArrayInst, "", ops...)
}

func (b *Builder) CreateStoreNewOwnProperty(val, obj, key Value) *Instr {
	return b.Emit(StoreNewOwnPropertyInst, "", val, obj, key, b.M.Bool(true))
}

func (b *Builder) CreateStoreOwnProperty(val, obj, key Value) *Instr {
	return b.Emit(StoreOwnPropertyInst, "", val, obj, key, b.M.Bool(true))
}

func (b *Builder) CreateStoreGetterSetter(getter, setter, obj, key Value) *Instr {
	return b.Emit(StoreGetterSetterInst, "", getter, setter, obj, key, b.M.Bool(true))
}

func (b *Builder) CreateCallBuiltin(name string, args ...Value) *Instr {
	ops := append([]Value{b.M.Builtin(name), b.M.Undefined()}, args...)
	return b.Emit(CallBuiltinInst, "", ops...)
}

func (b *Builder) CreateCall(callee, this Value, args ...Value) *Instr {
	ops := append([]Value{callee, this}, args...)
	return b.Emit(CallInst, "", ops...)
}

func (b *Builder) CreateConstruct(callee, this Value, args ...Value) *Instr {
	ops := append([]Value{callee, this}, args...)
	return b.Emit(ConstructInst, "", ops...)
}

func (b *Builder) CreateFunction(f *Function) *Instr {
	return b.Emit(CreateFunctionInst, "", f)
}

func (b *Builder) CreateGenerator(inner *Function) *Instr {
	return b.Emit(CreateGeneratorInst, "", inner)
}

// CreatePhi takes alternating value, block operands.
func (b *Builder) CreatePhi(incoming ...Value) *Instr {
	return b.Emit(PhiInst, "", incoming...)
}

func (b *Builder) CreateBranch(to *Block) *Instr {
	return b.Emit(BranchInst, "", to)
}

func (b *Builder) CreateCondBranch(cond Value, yes, no *Block) *Instr {
	return b.Emit(CondBranchInst, "", cond, yes, no)
}

// CreateSwitch takes alternating literal, block case operands.
func (b *Builder) CreateSwitch(v Value, def *Block, cases ...Value) *Instr {
	ops := append([]Value{v, def}, cases...)
	return b.Emit(SwitchInst, "", ops...)
}

func (b *Builder) CreateReturn(v Value) *Instr {
	return b.Emit(ReturnInst, "", v)
}

func (b *Builder) CreateThrow(v Value) *Instr {
	return b.Emit(ThrowInst, "", v)
}

func (b *Builder) CreateYield(v Value) *Instr {
	return b.Emit(YieldInst, "", v)
}

func (b *Builder) CreateAwait(v Value) *Instr {
	return b.Emit(AwaitInst, "", v)
}

func (b *Builder) CreateSuspend(v Value) *Instr {
	return b.Emit(SuspendInst, "", v)
}

func (b *Builder) CreateGetGeneratorState() *Instr {
	return b.Emit(GetGeneratorStateInst, "")
}

func (b *Builder) CreateSetGeneratorState(state int) *Instr {
	return b.Emit(SetGeneratorStateInst, "", b.M.Number(float64(state)))
}

func (b *Builder) CreateResumeValue() *Instr {
	return b.Emit(ResumeValueInst, "")
}

func (b *Builder) CreateIsForceReturn() *Instr {
	return b.Emit(IsForceReturnInst, "")
}
