package opt

import (
	"slices"

	"ember/internal/ir"
)

// exprKey identifies a pure computation: opcode, operator and the
// identities of up to two operands.
type exprKey struct {
	op       ir.Opcode
	operator string
	a, b     ir.Value
}

func keyOf(in *ir.Instr) (exprKey, bool) {
	if !in.Pure() || !in.Op.HasValue() || len(in.Operands) > 2 {
		return exprKey{}, false
	}
	k := exprKey{op: in.Op, operator: in.Operator}
	if len(in.Operands) > 0 {
		k.a = in.Operands[0]
	}
	if len(in.Operands) > 1 {
		k.b = in.Operands[1]
	}
	return k, true
}

// CSE merges pure instructions that repeat an earlier one in the same
// block. The table starts empty in every block.
func CSE(f *ir.Function) int {
	n := 0
	for _, bb := range f.Blocks {
		seen := make(map[exprKey]*ir.Instr)
		for _, in := range slices.Clone(bb.Instrs) {
			k, ok := keyOf(in)
			if !ok {
				continue
			}
			if prev, ok := seen[k]; ok {
				forward(f, in, prev)
				n++
				continue
			}
			seen[k] = in
		}
	}
	return n
}

// EliminateDead removes instructions nobody uses and whose removal
// cannot be observed.
func EliminateDead(f *ir.Function) int {
	n := 0
	for {
		used := make(map[*ir.Instr]bool)
		f.ForEachInstr(func(in *ir.Instr) {
			for _, op := range in.Operands {
				if v, ok := op.(*ir.Instr); ok && v != in {
					used[v] = true
				}
			}
		})
		removed := 0
		for _, bb := range f.Blocks {
			for _, in := range slices.Clone(bb.Instrs) {
				if !in.Op.HasValue() || in.Op.IsTerminator() || in.HasSideEffects() || used[in] {
					continue
				}
				bb.Erase(in)
				removed++
			}
		}
		if removed == 0 {
			return n
		}
		n += removed
	}
}
