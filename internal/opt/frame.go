package opt

import (
	"slices"

	"ember/internal/ir"
)

// ForwardFrame replaces frame loads whose slot was stored or loaded
// earlier in the same block. Slots other functions can reach are
// forgotten at any instruction that may run user code.
func ForwardFrame(f *ir.Function) int {
	n := 0
	for _, bb := range f.Blocks {
		known := make(map[*ir.Variable]ir.Value)
		for _, in := range slices.Clone(bb.Instrs) {
			switch in.Op {
			case ir.StoreFrameInst:
				known[in.Operands[1].(*ir.Variable)] = in.Operands[0]
			case ir.LoadFrameInst:
				slot := in.Operands[0].(*ir.Variable)
				if v, ok := known[slot]; ok {
					forward(f, in, v)
					n++
					continue
				}
				known[slot] = in
			default:
				if in.Op.Effect() != ir.EffectWrites {
					continue
				}
				for slot := range known {
					if shared(f, slot) {
						delete(known, slot)
					}
				}
			}
		}
	}
	return n
}

// shared reports slots a nested or enclosing function may touch.
func shared(f *ir.Function, slot *ir.Variable) bool {
	return slot.Captured || slot.Func != f
}

// EliminateDeadStores removes stores to private slots nothing loads and
// then drops private slots nothing refers to.
func EliminateDeadStores(f *ir.Function) int {
	loaded := make(map[*ir.Variable]bool)
	referenced := make(map[*ir.Variable]bool)
	f.ForEachInstr(func(in *ir.Instr) {
		for _, op := range in.Operands {
			if v, ok := op.(*ir.Variable); ok {
				referenced[v] = true
				if in.Op == ir.LoadFrameInst {
					loaded[v] = true
				}
			}
		}
	})

	n := 0
	for _, bb := range f.Blocks {
		for _, in := range slices.Clone(bb.Instrs) {
			if in.Op != ir.StoreFrameInst {
				continue
			}
			slot := in.Operands[1].(*ir.Variable)
			if shared(f, slot) || loaded[slot] {
				continue
			}
			bb.Erase(in)
			delete(referenced, slot)
			n++
		}
	}
	before := len(f.Frame)
	f.Frame = slices.DeleteFunc(f.Frame, func(v *ir.Variable) bool {
		return !v.Captured && !referenced[v]
	})
	return n + before - len(f.Frame)
}
