package lower

import (
	"ember/internal/ir"
)

// valueSet is a set of SSA values.
type valueSet map[*ir.Instr]struct{}

func (s valueSet) add(in *ir.Instr) { s[in] = struct{}{} }

func (s valueSet) has(in *ir.Instr) bool {
	_, ok := s[in]
	return ok
}

func cloneSet(s valueSet) valueSet {
	out := make(valueSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func setEqual(a, b valueSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b.has(k) {
			return false
		}
	}
	return true
}

// blockLiveness holds use/def/in/out sets for liveness analysis.
type blockLiveness struct {
	use valueSet
	def valueSet
	in  valueSet
	out valueSet
}

// computeLiveness runs the backward dataflow to a fixpoint. A phi
// operand counts as a use at the end of the incoming block, not in the
// phi's own block.
func computeLiveness(f *ir.Function) map[*ir.Block]*blockLiveness {
	info := make(map[*ir.Block]*blockLiveness, len(f.Blocks))
	for _, bb := range f.Blocks {
		use, def := computeBlockUseDef(bb)
		info[bb] = &blockLiveness{use: use, def: def, in: valueSet{}, out: valueSet{}}
	}

	changed := true
	for changed {
		changed = false
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			bb := f.Blocks[i]
			li := info[bb]
			out := liveOut(bb, info)
			in := cloneSet(li.use)
			for v := range out {
				if !li.def.has(v) {
					in.add(v)
				}
			}
			if !setEqual(out, li.out) || !setEqual(in, li.in) {
				li.out = out
				li.in = in
				changed = true
			}
		}
	}
	return info
}

func liveOut(bb *ir.Block, info map[*ir.Block]*blockLiveness) valueSet {
	out := valueSet{}
	for _, succ := range bb.Successors() {
		phis := succ.Phis()
		for v := range info[succ].in {
			if !isPhiOf(v, phis) {
				out.add(v)
			}
		}
		for _, phi := range phis {
			for n := range phi.NumIncoming() {
				v, from := phi.Incoming(n)
				if in, ok := v.(*ir.Instr); ok && from == bb {
					out.add(in)
				}
			}
		}
	}
	return out
}

func isPhiOf(v *ir.Instr, phis []*ir.Instr) bool {
	for _, p := range phis {
		if p == v {
			return true
		}
	}
	return false
}

func computeBlockUseDef(bb *ir.Block) (use, def valueSet) {
	use = valueSet{}
	def = valueSet{}
	for _, in := range bb.Instrs {
		if in.Op != ir.PhiInst {
			for _, op := range in.Operands {
				if v, ok := op.(*ir.Instr); ok && !def.has(v) {
					use.add(v)
				}
			}
		}
		if in.Op.HasValue() {
			def.add(in)
		}
	}
	return use, def
}

// liveAcross returns, for every suspend site, the values that must
// survive it: live right after the site, other than the site itself.
func liveAcross(f *ir.Function, sites []*ir.Instr) []*ir.Instr {
	info := computeLiveness(f)
	isSite := make(map[*ir.Instr]bool, len(sites))
	for _, s := range sites {
		isSite[s] = true
	}
	crossing := valueSet{}
	for _, bb := range f.Blocks {
		live := cloneSet(info[bb].out)
		for i := len(bb.Instrs) - 1; i >= 0; i-- {
			in := bb.Instrs[i]
			if isSite[in] {
				for v := range live {
					if v != in {
						crossing.add(v)
					}
				}
			}
			delete(live, in)
			if in.Op == ir.PhiInst {
				continue
			}
			for _, op := range in.Operands {
				if v, ok := op.(*ir.Instr); ok {
					live.add(v)
				}
			}
		}
	}

	// Definition order keeps spill slot numbering deterministic.
	var out []*ir.Instr
	f.ForEachInstr(func(in *ir.Instr) {
		if crossing.has(in) {
			out = append(out, in)
		}
	})
	return out
}
