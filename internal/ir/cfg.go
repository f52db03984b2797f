package ir

import (
	"slices"
)

// Predecessors maps every block to the blocks branching to it, in block
// order and without duplicates.
func (f *Function) Predecessors() map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))
	for _, bb := range f.Blocks {
		for _, s := range bb.Successors() {
			if !slices.Contains(preds[s], bb) {
				preds[s] = append(preds[s], bb)
			}
		}
	}
	return preds
}

// Reachable marks the blocks reachable from the entry.
func (f *Function) Reachable() map[*Block]bool {
	seen := make(map[*Block]bool, len(f.Blocks))
	entry := f.Entry()
	if entry == nil {
		return seen
	}
	stack := []*Block{entry}
	seen[entry] = true
	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range bb.Successors() {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// PruneUnreachable drops blocks the entry cannot reach and the phi
// entries that came from them. It reports whether anything changed.
func (f *Function) PruneUnreachable() bool {
	live := f.Reachable()
	if len(live) == len(f.Blocks) {
		return false
	}
	var dead []*Block
	f.Blocks = slices.DeleteFunc(f.Blocks, func(bb *Block) bool {
		if !live[bb] {
			dead = append(dead, bb)
			return true
		}
		return false
	})
	for _, bb := range f.Blocks {
		for _, phi := range bb.Phis() {
			for _, d := range dead {
				phi.RemoveIncoming(d)
			}
		}
	}
	return true
}

// ForEachInstr visits every instruction in block order.
func (f *Function) ForEachInstr(fn func(*Instr)) {
	for _, bb := range f.Blocks {
		for _, in := range bb.Instrs {
			fn(in)
		}
	}
}

// Users lists the instructions that have v among their operands.
func (f *Function) Users(v Value) []*Instr {
	var out []*Instr
	f.ForEachInstr(func(in *Instr) {
		if slices.Contains(in.Operands, v) {
			out = append(out, in)
		}
	})
	return out
}

// HasUsers reports whether any instruction refers to v.
func (f *Function) HasUsers(v Value) bool {
	for _, bb := range f.Blocks {
		for _, in := range bb.Instrs {
			if slices.Contains(in.Operands, v) {
				return true
			}
		}
	}
	return false
}

// ReplaceAllUsesWith rewrites every operand referring to old.
func (f *Function) ReplaceAllUsesWith(old, with Value) {
	f.ForEachInstr(func(in *Instr) {
		for n, op := range in.Operands {
			if op == old {
				in.Operands[n] = with
			}
		}
	})
}

// SplitBlock moves the instructions from position pos onward into a new
// block placed right after bb. Phis in the old successors are retargeted
// to the new block. The caller terminates bb.
func (f *Function) SplitBlock(bb *Block, pos int) *Block {
	tail := &Block{Parent: f}
	tail.Instrs = slices.Clone(bb.Instrs[pos:])
	for _, in := range tail.Instrs {
		in.Block = tail
	}
	clear(bb.Instrs[pos:])
	bb.Instrs = bb.Instrs[:pos]
	at := slices.Index(f.Blocks, bb)
	f.Blocks = slices.Insert(f.Blocks, at+1, tail)
	for _, s := range tail.Successors() {
		for _, phi := range s.Phis() {
			for n := 1; n < len(phi.Operands); n += 2 {
				if phi.Operands[n] == Value(bb) {
					phi.Operands[n] = tail
				}
			}
		}
	}
	return tail
}

// SimplifyCFG cleans up the block graph of f:
//  1. conditional branches on literal conditions become plain branches;
//  2. empty blocks that only branch onward are bypassed;
//  3. a block with a single predecessor ending in a plain branch to it is
//     merged into that predecessor;
//  4. unreachable blocks are dropped.
//
// It reports whether anything changed.
func SimplifyCFG(f *Function) bool {
	if f == nil || len(f.Blocks) == 0 {
		return false
	}
	changed := foldConstantBranches(f)
	if bypassTrivialBlocks(f) {
		changed = true
	}
	if f.PruneUnreachable() {
		changed = true
	}
	if mergeLinearBlocks(f) {
		changed = true
	}
	return changed
}

func foldConstantBranches(f *Function) bool {
	changed := false
	for _, bb := range f.Blocks {
		t := bb.Terminator()
		if t == nil || t.Op != CondBranchInst {
			continue
		}
		lit, ok := t.Operands[0].(*Literal)
		if !ok {
			continue
		}
		taken, dropped := t.Operands[1].(*Block), t.Operands[2].(*Block)
		if !lit.Truthy() {
			taken, dropped = dropped, taken
		}
		br := NewInstr(BranchInst, "", 0, t.Span, taken)
		bb.Instrs[len(bb.Instrs)-1] = br
		br.Block = bb
		t.Block = nil
		if dropped != taken {
			for _, phi := range dropped.Phis() {
				phi.RemoveIncoming(bb)
			}
		}
		changed = true
	}
	return changed
}

// bypassTrivialBlocks redirects branches around blocks consisting of a
// single BranchInst. Targets with phis are left alone since the phi
// would need an entry per redirected predecessor.
func bypassTrivialBlocks(f *Function) bool {
	redirects := make(map[*Block]*Block)
	for _, bb := range f.Blocks[1:] {
		if target, ok := trivialTarget(bb); ok && target != bb && len(target.Phis()) == 0 && !f.isStateBlock(bb) {
			redirects[bb] = target
		}
	}
	if len(redirects) == 0 {
		return false
	}
	final := func(bb *Block) *Block {
		seen := map[*Block]bool{}
		for !seen[bb] {
			seen[bb] = true
			next, ok := redirects[bb]
			if !ok {
				break
			}
			bb = next
		}
		return bb
	}
	changed := false
	for _, bb := range f.Blocks {
		t := bb.Terminator()
		if t == nil {
			continue
		}
		for n, op := range t.Operands {
			if target, ok := op.(*Block); ok {
				if to := final(target); to != target {
					t.Operands[n] = to
					changed = true
				}
			}
		}
	}
	return changed
}

func trivialTarget(bb *Block) (*Block, bool) {
	if len(bb.Instrs) != 1 || bb.Instrs[0].Op != BranchInst {
		return nil, false
	}
	return bb.Instrs[0].Operands[0].(*Block), true
}

func mergeLinearBlocks(f *Function) bool {
	changed := false
	for {
		preds := f.Predecessors()
		merged := false
		for _, bb := range f.Blocks {
			t := bb.Terminator()
			if t == nil || t.Op != BranchInst {
				continue
			}
			succ := t.Operands[0].(*Block)
			if succ == bb || succ == f.Entry() || len(preds[succ]) != 1 || len(succ.Phis()) != 0 || f.isStateBlock(succ) {
				continue
			}
			bb.Erase(t)
			for _, in := range succ.Instrs {
				bb.Append(in)
			}
			for _, s := range bb.Successors() {
				for _, phi := range s.Phis() {
					for n := 1; n < len(phi.Operands); n += 2 {
						if phi.Operands[n] == Value(succ) {
							phi.Operands[n] = bb
						}
					}
				}
			}
			succ.Instrs = nil
			f.Blocks = slices.DeleteFunc(f.Blocks, func(b *Block) bool { return b == succ })
			merged, changed = true, true
			break
		}
		if !merged {
			return changed
		}
	}
}

// isStateBlock reports blocks a state machine resumes at; they stay put.
func (f *Function) isStateBlock(bb *Block) bool {
	if f.StateMachine == nil {
		return false
	}
	for _, s := range f.StateMachine.States {
		if s.Block == bb {
			return true
		}
	}
	return false
}
