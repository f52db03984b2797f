package ir

import (
	"slices"

	"ember/internal/source"
	"ember/internal/types"
)

// Instr is one SSA instruction. Operands are only ever swapped for other
// values; the opcode never changes after creation.
//
// Operand layouts:
//
//	LoadParamInst            param
//	LoadFrameInst            var
//	StoreFrameInst           value, var
//	BinaryOperatorInst       left, right            (Operator)
//	UnaryOperatorInst        value                  (Operator)
//	LoadPropertyInst         object, key
//	StorePropertyLooseInst   value, object, key
//	TryLoadGlobalPropertyInst globalObject, name
//	DeclareGlobalVarInst     name
//	DeletePropertyLooseInst  object, key
//	AllocObjectInst          size, parent|empty
//	AllocObjectLiteralInst   key, value, key, value, ...
//	AllocArrayInst           size, elements...
//	StoreNewOwnPropertyInst  value, object, key, enumerable
//	StoreOwnPropertyInst     value, object, key, enumerable
//	StoreGetterSetterInst    getter, setter, object, key, enumerable
//	CallBuiltinInst          builtin, this, args...
//	CallInst / ConstructInst callee, this, args...
//	CreateFunctionInst       function
//	CreateGeneratorInst      function
//	PhiInst                  value, block, value, block, ...
//	BranchInst               target
//	CondBranchInst           cond, then, else
//	SwitchInst               value, default, literal, block, ...
//	ReturnInst / ThrowInst   value
//	YieldInst / AwaitInst    value
//	SuspendInst              value
//	SetGeneratorStateInst    state
type Instr struct {
	Op       Opcode
	Operator string
	Operands []Value
	Result   types.TypeID
	Block    *Block
	Span     source.Span
}

func (i *Instr) Type() types.TypeID { return i.Result }

func (i *Instr) Operand(n int) Value { return i.Operands[n] }

func (i *Instr) SetOperand(n int, v Value) { i.Operands[n] = v }

// Pure reports whether two instructions with the same opcode, operator
// and operands are interchangeable. `in` and `instanceof` can reach user
// code through proxies and Symbol.hasInstance.
func (i *Instr) Pure() bool {
	if i.Op.Effect() != EffectPure {
		return false
	}
	switch i.Operator {
	case "in", "instanceof":
		return false
	}
	return true
}

// HasSideEffects reports whether removing an unused instance would be
// observable.
func (i *Instr) HasSideEffects() bool {
	switch i.Op.Effect() {
	case EffectPure:
		return !i.Pure()
	case EffectReads:
		return false
	}
	return true
}

// Successors lists the blocks a terminator may transfer to, in operand
// order and without duplicates.
func (i *Instr) Successors() []*Block {
	var out []*Block
	add := func(v Value) {
		if b, ok := v.(*Block); ok && !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	switch i.Op {
	case BranchInst:
		add(i.Operands[0])
	case CondBranchInst:
		add(i.Operands[1])
		add(i.Operands[2])
	case SwitchInst:
		add(i.Operands[1])
		for n := 3; n < len(i.Operands); n += 2 {
			add(i.Operands[n])
		}
	}
	return out
}

// NumIncoming is the number of (value, block) pairs of a phi.
func (i *Instr) NumIncoming() int { return len(i.Operands) / 2 }

func (i *Instr) Incoming(n int) (Value, *Block) {
	return i.Operands[2*n], i.Operands[2*n+1].(*Block)
}

// AddIncoming appends a (value, block) pair to a phi.
func (i *Instr) AddIncoming(v Value, from *Block) {
	i.Operands = append(i.Operands, v, from)
}

// RemoveIncoming drops every pair coming from block b.
func (i *Instr) RemoveIncoming(b *Block) {
	out := i.Operands[:0]
	for n := 0; n+1 < len(i.Operands); n += 2 {
		if i.Operands[n+1] != Value(b) {
			out = append(out, i.Operands[n], i.Operands[n+1])
		}
	}
	clear(i.Operands[len(out):])
	i.Operands = out
}

// Block is a basic block: straight-line instructions ending in exactly
// one terminator.
type Block struct {
	Parent *Function
	Instrs []*Instr
}

func (*Block) Type() types.TypeID { return types.NoTypeID }

// Terminator returns the final instruction if it ends the block.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

func (b *Block) Terminated() bool { return b.Terminator() != nil }

func (b *Block) Successors() []*Block {
	if t := b.Terminator(); t != nil {
		return t.Successors()
	}
	return nil
}

// Phis returns the leading phi instructions.
func (b *Block) Phis() []*Instr {
	n := 0
	for n < len(b.Instrs) && b.Instrs[n].Op == PhiInst {
		n++
	}
	return b.Instrs[:n]
}

func (b *Block) IndexOf(in *Instr) int {
	return slices.Index(b.Instrs, in)
}

// InsertAt places in before position pos.
func (b *Block) InsertAt(pos int, in *Instr) {
	in.Block = b
	b.Instrs = slices.Insert(b.Instrs, pos, in)
}

// Append adds in at the end of the block.
func (b *Block) Append(in *Instr) {
	in.Block = b
	b.Instrs = append(b.Instrs, in)
}

// Erase unlinks in from the block. The caller must have replaced its uses.
func (b *Block) Erase(in *Instr) {
	if n := b.IndexOf(in); n >= 0 {
		b.Instrs = slices.Delete(b.Instrs, n, n+1)
	}
	in.Block = nil
}

// NewInstr creates a detached instruction.
func NewInstr(op Opcode, operator string, result types.TypeID, span source.Span, operands ...Value) *Instr {
	return &Instr{
		Op:       op,
		Operator: operator,
		Operands: operands,
		Result:   result,
		Span:     span,
	}
}
