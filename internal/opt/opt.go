// Package opt is the local optimizer. Every pass works inside one basic
// block at a time; nothing is reused across a block boundary, even when
// one block dominates another.
package opt

import (
	"ember/internal/diag"
	"ember/internal/ir"
)

// maxRounds bounds the simplify/fold/CSE/DCE fixpoint.
const maxRounds = 8

// Options selects passes. The zero value runs nothing; use Default.
type Options struct {
	SimplifyCFG   bool
	ForwardFrame  bool
	// Simplify covers the algebraic rewrites and type narrowing.
	Simplify      bool
	CSE           bool
	FoldConstants bool
	EliminateDead bool

	// Reporter receives OPT notes for withheld folds. Nil drops them.
	Reporter diag.Reporter
}

// Default enables every pass.
func Default() Options {
	return Options{
		SimplifyCFG:   true,
		ForwardFrame:  true,
		Simplify:      true,
		CSE:           true,
		FoldConstants: true,
		EliminateDead: true,
	}
}

// Stats counts what the passes did.
type Stats struct {
	Merged    int // instructions replaced by an equivalent earlier one
	Folded    int // instructions replaced by a constant
	Forwarded int // frame loads replaced by the stored value
	Narrowed  int // instructions rewritten to a cheaper or specialized form
	Removed   int // dead instructions, stores and frame slots
}

func (s *Stats) Add(o Stats) {
	s.Merged += o.Merged
	s.Folded += o.Folded
	s.Forwarded += o.Forwarded
	s.Narrowed += o.Narrowed
	s.Removed += o.Removed
}

func (s Stats) changed() bool {
	return s.Merged+s.Folded+s.Forwarded+s.Narrowed+s.Removed > 0
}

// OptimizeModule runs the pipeline over every function of m.
func OptimizeModule(m *ir.Module, opts Options) Stats {
	var total Stats
	for _, f := range m.Functions {
		total.Add(OptimizeFunction(f, opts))
	}
	return total
}

// OptimizeFunction runs, in order: CFG cleanup, frame forwarding with
// dead store removal, then simplification, type inference, constant
// folding, CSE and dead code elimination repeated until nothing changes.
// The return type is re-inferred at the end.
func OptimizeFunction(f *ir.Function, opts Options) Stats {
	var st Stats
	if f == nil || len(f.Blocks) == 0 {
		return st
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.SimplifyCFG {
		ir.SimplifyCFG(f)
	}
	if opts.ForwardFrame {
		st.Forwarded += ForwardFrame(f)
		st.Removed += EliminateDeadStores(f)
	}
	for range maxRounds {
		var round Stats
		if opts.Simplify {
			round.Narrowed += Simplify(f)
			round.Narrowed += InferTypes(f)
		}
		if opts.FoldConstants {
			round.Folded += FoldConstants(f, opts.Reporter)
		}
		if opts.SimplifyCFG && ir.SimplifyCFG(f) {
			round.Removed++
		}
		if opts.CSE {
			round.Merged += CSE(f)
		}
		if opts.EliminateDead {
			round.Removed += EliminateDead(f)
		}
		st.Add(round)
		if !round.changed() {
			break
		}
	}
	if opts.ForwardFrame {
		st.Removed += EliminateDeadStores(f)
	}
	f.InferReturnType()
	return st
}

// replace swaps in for with at in's position, taking over its uses.
func replace(f *ir.Function, in, with *ir.Instr) {
	bb := in.Block
	bb.InsertAt(bb.IndexOf(in), with)
	f.ReplaceAllUsesWith(in, with)
	bb.Erase(in)
}

// forward drops in and points its uses at v.
func forward(f *ir.Function, in *ir.Instr, v ir.Value) {
	f.ReplaceAllUsesWith(in, v)
	in.Block.Erase(in)
}
