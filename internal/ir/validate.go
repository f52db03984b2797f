package ir

import (
	"errors"
	"fmt"
	"slices"

	"ember/internal/types"
)

// Validate checks the structural invariants of every function and joins
// all violations into one error.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Functions {
		if err := ValidateFunction(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

type validator struct {
	f     *Function
	preds map[*Block][]*Block
	index map[*Block]int
	pos   map[*Instr]int
	errs  []error
}

func (v *validator) errorf(bb *Block, format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%%BB%d: %s", v.index[bb], fmt.Sprintf(format, args...)))
}

// ValidateFunction checks one function.
func ValidateFunction(f *Function) error {
	if len(f.Blocks) == 0 {
		return errors.New("no blocks")
	}
	v := &validator{
		f:     f,
		preds: f.Predecessors(),
		index: make(map[*Block]int, len(f.Blocks)),
		pos:   make(map[*Instr]int),
	}
	for i, bb := range f.Blocks {
		v.index[bb] = i
	}
	for _, bb := range f.Blocks {
		for i, in := range bb.Instrs {
			if _, dup := v.pos[in]; dup {
				v.errorf(bb, "instruction %s appears twice", in.Op)
			}
			v.pos[in] = i
		}
	}
	for i, bb := range f.Blocks {
		v.block(i, bb)
	}
	if sm := f.StateMachine; sm != nil {
		for _, s := range sm.States {
			if _, ok := v.index[s.Block]; !ok {
				v.errs = append(v.errs, fmt.Errorf("state %s resumes at a block outside the function", s))
			}
		}
	}
	return errors.Join(v.errs...)
}

func (v *validator) block(i int, bb *Block) {
	if bb.Parent != v.f {
		v.errorf(bb, "block belongs to another function")
	}
	if len(bb.Instrs) == 0 {
		v.errorf(bb, "empty block")
		return
	}
	if i > 0 && len(v.preds[bb]) == 0 {
		v.errorf(bb, "block has no predecessors")
	}
	inPhis := true
	for n, in := range bb.Instrs {
		last := n == len(bb.Instrs)-1
		switch {
		case !in.Op.Valid():
			v.errorf(bb, "invalid opcode %d", in.Op)
			continue
		case in.Block != bb:
			v.errorf(bb, "%s has a stale block link", in.Op)
		case in.Op.IsTerminator() && !last:
			v.errorf(bb, "%s is followed by more instructions", in.Op)
		case last && !in.Op.IsTerminator():
			v.errorf(bb, "block ends in %s, not a terminator", in.Op)
		}
		if in.Op == PhiInst {
			if !inPhis {
				v.errorf(bb, "PhiInst after a non-phi instruction")
			}
			v.phi(bb, in)
		} else {
			inPhis = false
		}
		if in.Op.HasValue() && in.Result == types.NoTypeID {
			v.errorf(bb, "%s has no result type", in.Op)
		}
		if err := checkArity(in); err != nil {
			v.errorf(bb, "%v", err)
		}
		for _, op := range in.Operands {
			v.operand(bb, n, in, op)
		}
	}
}

func (v *validator) operand(bb *Block, n int, in *Instr, op Value) {
	switch op := op.(type) {
	case nil:
		v.errorf(bb, "%s has a nil operand", in.Op)
	case *Instr:
		if op.Block == nil || op.Block.Parent != v.f {
			v.errorf(bb, "%s uses %s from outside the function", in.Op, op.Op)
			return
		}
		if !op.Op.HasValue() {
			v.errorf(bb, "%s uses the valueless %s", in.Op, op.Op)
		}
		if op.Block == bb && in.Op != PhiInst && v.pos[op] >= n {
			v.errorf(bb, "%s uses %s before it is defined", in.Op, op.Op)
		}
	case *Block:
		if _, ok := v.index[op]; !ok {
			v.errorf(bb, "%s targets a block outside the function", in.Op)
		}
	case *Variable:
		switch {
		case op.Func == v.f:
		case v.f.Ancestor(op.Func) && v.f.EnvParent:
		default:
			v.errorf(bb, "%s reaches slot [%s] of %s without an environment link", in.Op, op.Name, op.Func.Name)
		}
	case *Param:
		if op.Func != v.f {
			v.errorf(bb, "%s loads parameter %%%s of %s", in.Op, op.Name, op.Func.Name)
		}
	}
}

func (v *validator) phi(bb *Block, in *Instr) {
	if len(in.Operands)%2 != 0 {
		v.errorf(bb, "PhiInst has an odd operand count")
		return
	}
	preds := v.preds[bb]
	var seen []*Block
	for n := 1; n < len(in.Operands); n += 2 {
		from, ok := in.Operands[n].(*Block)
		if !ok {
			return
		}
		if !slices.Contains(preds, from) {
			v.errorf(bb, "PhiInst entry from %%BB%d which is not a predecessor", v.index[from])
		}
		if slices.Contains(seen, from) {
			v.errorf(bb, "PhiInst has two entries from %%BB%d", v.index[from])
		}
		seen = append(seen, from)
	}
	if len(seen) != len(preds) {
		v.errorf(bb, "PhiInst has %d entries for %d predecessors", len(seen), len(preds))
	}
}

// checkArity verifies operand counts and the operand kinds terminators
// and frame accesses depend on.
func checkArity(in *Instr) error {
	want := -1
	atLeast := 0
	switch in.Op {
	case GetGeneratorStateInst, ResumeValueInst, IsForceReturnInst:
		want = 0
	case LoadParamInst, LoadFrameInst, UnaryOperatorInst, AsNumberInst, AsInt32Inst, CoerceThisNSInst,
		DeclareGlobalVarInst, CreateFunctionInst, CreateGeneratorInst, BranchInst, ReturnInst, ThrowInst,
		YieldInst, AwaitInst, SuspendInst, SetGeneratorStateInst:
		want = 1
	case StoreFrameInst, BinaryOperatorInst, NumericBinaryOperatorInst, LoadPropertyInst,
		TryLoadGlobalPropertyInst, DeletePropertyLooseInst, AllocObjectInst:
		want = 2
	case StorePropertyLooseInst, CondBranchInst:
		want = 3
	case StoreNewOwnPropertyInst, StoreOwnPropertyInst:
		want = 4
	case StoreGetterSetterInst:
		want = 5
	case AllocArrayInst:
		atLeast = 1
	case CallBuiltinInst, CallInst, ConstructInst, SwitchInst:
		atLeast = 2
	}
	if want >= 0 && len(in.Operands) != want {
		return fmt.Errorf("%s takes %d operands, has %d", in.Op, want, len(in.Operands))
	}
	if len(in.Operands) < atLeast {
		return fmt.Errorf("%s takes at least %d operands, has %d", in.Op, atLeast, len(in.Operands))
	}
	switch in.Op {
	case LoadFrameInst:
		if _, ok := in.Operands[0].(*Variable); !ok {
			return fmt.Errorf("%s operand is not a frame slot", in.Op)
		}
	case StoreFrameInst:
		if _, ok := in.Operands[1].(*Variable); !ok {
			return fmt.Errorf("%s target is not a frame slot", in.Op)
		}
	case LoadParamInst:
		if _, ok := in.Operands[0].(*Param); !ok {
			return fmt.Errorf("%s operand is not a parameter", in.Op)
		}
	case BranchInst:
		if _, ok := in.Operands[0].(*Block); !ok {
			return fmt.Errorf("%s target is not a block", in.Op)
		}
	case CondBranchInst:
		_, ok1 := in.Operands[1].(*Block)
		_, ok2 := in.Operands[2].(*Block)
		if !ok1 || !ok2 {
			return fmt.Errorf("%s targets are not blocks", in.Op)
		}
	case SwitchInst:
		if len(in.Operands)%2 != 0 {
			return fmt.Errorf("%s has an unpaired case", in.Op)
		}
		if _, ok := in.Operands[1].(*Block); !ok {
			return fmt.Errorf("%s default is not a block", in.Op)
		}
		for n := 2; n < len(in.Operands); n += 2 {
			_, lit := in.Operands[n].(*Literal)
			_, blk := in.Operands[n+1].(*Block)
			if !lit || !blk {
				return fmt.Errorf("%s case %d is not a literal/block pair", in.Op, n/2)
			}
		}
	case PhiInst:
		for n := 1; n < len(in.Operands); n += 2 {
			if _, ok := in.Operands[n].(*Block); !ok {
				return fmt.Errorf("%s entry %d has no block", in.Op, n/2)
			}
		}
	}
	return nil
}
