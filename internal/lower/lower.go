// Package lower turns generator and async functions into explicit state
// machines. Every yield or await becomes a numbered suspension state; the
// original function keeps its name and signature and only builds the
// machine.
package lower

import (
	"fmt"
	"strings"

	"ember/internal/ir"
	"ember/internal/source"
	"ember/internal/types"
)

const spillPrefix = "?spill."

// LowerModule lowers every generator and async function of m.
func LowerModule(m *ir.Module) error {
	if m == nil {
		return nil
	}
	// Lowering appends the machines to m.Functions; they need no second
	// visit.
	funcs := append([]*ir.Function(nil), m.Functions...)
	for _, f := range funcs {
		if f.Kind != ir.FuncGenerator && f.Kind != ir.FuncAsync {
			continue
		}
		if f.Inner != nil {
			continue
		}
		if err := lowerFunction(m, f); err != nil {
			return fmt.Errorf("lower %s: %w", f.Name, err)
		}
	}
	return nil
}

func lowerFunction(m *ir.Module, f *ir.Function) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("function has no body")
	}
	inner := m.NewFunction(f.Name+"$inner", ir.FuncStateMachine, f)
	moveBody(m, f, inner)

	sites := suspendSites(inner)
	for _, v := range liveAcross(inner, sites) {
		demote(inner, v)
	}

	b := ir.NewBuilder(m)
	b.SetFunction(inner)
	completed := len(sites) + 1
	states := make([]ir.State, 0, len(sites)+2)
	states = append(states, ir.State{Kind: ir.StateNotStarted, Block: inner.Entry()})
	for k, site := range sites {
		resume := splitAt(b, site, k+1)
		states = append(states, ir.State{Kind: ir.StateSuspendedAt, Site: k + 1, Block: resume})
	}
	markCompletion(b, inner, completed)

	done := inner.NewBlock()
	b.SetInsertionBlock(done)
	b.Span = f.Span
	b.CreateReturn(m.Undefined())
	states = append(states, ir.State{Kind: ir.StateCompleted, Block: done})
	inner.StateMachine = &ir.StateMachine{States: states}

	buildDispatch(b, inner, completed)
	inner.InferReturnType()

	buildOuter(m, f, inner)
	return nil
}

// moveBody hands the blocks, frame, parameters and nested functions of f
// over to inner.
func moveBody(m *ir.Module, f, inner *ir.Function) {
	inner.Strict = f.Strict
	inner.Span = f.Span
	inner.EnvParent = f.EnvParent
	inner.Blocks, f.Blocks = f.Blocks, nil
	for _, bb := range inner.Blocks {
		bb.Parent = inner
	}
	inner.Frame, f.Frame = f.Frame, nil
	for _, v := range inner.Frame {
		v.Func = inner
	}
	inner.Params, f.Params = f.Params, nil
	for _, p := range inner.Params {
		p.Func = inner
		f.AddParam(p.Name)
	}
	inner.This = f.This
	inner.This.Func = inner
	f.This = &ir.Param{Name: "this", Index: -1, Func: f}

	for _, g := range m.Functions {
		if g.Parent == f && g != inner {
			g.Parent = inner
		}
	}
}

// suspendSites lists the yield and await instructions in block order.
func suspendSites(f *ir.Function) []*ir.Instr {
	var sites []*ir.Instr
	f.ForEachInstr(func(in *ir.Instr) {
		if in.Op.IsSuspend() {
			sites = append(sites, in)
		}
	})
	return sites
}

// splitAt ends the block of site with a suspension into state k and
// returns the block that resumes it, which starts with the injected
// value.
func splitAt(b *ir.Builder, site *ir.Instr, k int) *ir.Block {
	f := b.F
	bb := site.Block
	resume := f.SplitBlock(bb, bb.IndexOf(site)+1)

	rv := ir.NewInstr(ir.ResumeValueInst, "", f.Module.Types.Builtins().Any, site.Span)
	resume.InsertAt(0, rv)
	f.ReplaceAllUsesWith(site, rv)
	bb.Erase(site)

	b.SetInsertionBlock(bb)
	b.Span = site.Span
	b.CreateSetGeneratorState(k)
	b.CreateSuspend(site.Operands[0])
	return resume
}

// markCompletion records the Completed state before every return.
func markCompletion(b *ir.Builder, f *ir.Function, completed int) {
	for _, bb := range f.Blocks {
		ret := bb.Terminator()
		if ret == nil || ret.Op != ir.ReturnInst {
			continue
		}
		set := ir.NewInstr(ir.SetGeneratorStateInst, "", types.NoTypeID, ret.Span, b.M.Number(float64(completed)))
		bb.InsertAt(len(bb.Instrs)-1, set)
	}
}

// buildDispatch prepends the entry of the machine: a force-return request
// completes at once with the supplied value, anything else jumps to the
// block of the current state.
func buildDispatch(b *ir.Builder, f *ir.Function, completed int) {
	m := b.M
	body := f.Blocks
	f.Blocks = nil
	entry := f.NewBlock()
	force := f.NewBlock()
	dispatch := f.NewBlock()
	f.Blocks = append(f.Blocks, body...)

	b.Span = f.Span
	b.SetInsertionBlock(entry)
	b.CreateCondBranch(b.CreateIsForceReturn(), force, dispatch)

	b.SetInsertionBlock(force)
	v := b.CreateResumeValue()
	b.CreateSetGeneratorState(completed)
	b.CreateReturn(v)

	b.SetInsertionBlock(dispatch)
	sm := f.StateMachine
	cases := make([]ir.Value, 0, 2*len(sm.States))
	for i, s := range sm.States {
		cases = append(cases, m.Number(float64(i)), s.Block)
	}
	b.CreateSwitch(b.CreateGetGeneratorState(), sm.States[completed].Block, cases...)
}

// buildOuter gives f a body that creates the machine; an async function
// also hands it to the scheduler.
func buildOuter(m *ir.Module, f, inner *ir.Function) {
	f.Inner = inner
	f.EnvParent = false
	b := ir.NewBuilder(m)
	b.SetFunction(f)
	b.SetInsertionBlock(b.CreateBlock())
	b.Span = f.Span
	var result ir.Value = b.CreateGenerator(inner)
	if f.Kind == ir.FuncAsync {
		result = b.CreateCallBuiltin(ir.BuiltinSpawnAsync, result)
	}
	b.CreateReturn(result)
	f.InferReturnType()
}

// demote moves v into a fresh frame slot: v is stored right after its
// definition and every use reloads it, so no SSA value has to outlive a
// suspension.
func demote(f *ir.Function, v *ir.Instr) {
	slot := f.AddVariable(fmt.Sprintf("%s%d", spillPrefix, spillIndex(f)))
	users := f.Users(v)

	def := v.Block
	pos := def.IndexOf(v) + 1
	if v.Op == ir.PhiInst {
		pos = len(def.Phis())
	}
	store := ir.NewInstr(ir.StoreFrameInst, "", types.NoTypeID, v.Span, v, slot)
	def.InsertAt(pos, store)

	for _, user := range users {
		if user.Op == ir.PhiInst {
			for n := range user.NumIncoming() {
				val, from := user.Incoming(n)
				if val != ir.Value(v) {
					continue
				}
				load := reload(slot, v)
				from.InsertAt(len(from.Instrs)-1, load)
				user.SetOperand(2*n, load)
			}
			continue
		}
		load := reload(slot, v)
		user.Block.InsertAt(user.Block.IndexOf(user), load)
		for n, op := range user.Operands {
			if op == ir.Value(v) {
				user.SetOperand(n, load)
			}
		}
	}
}

func reload(slot *ir.Variable, v *ir.Instr) *ir.Instr {
	return ir.NewInstr(ir.LoadFrameInst, "", v.Result, source.NoSpan, slot)
}

func spillIndex(f *ir.Function) int {
	n := 0
	for _, v := range f.Frame {
		if strings.HasPrefix(v.Name, spillPrefix) {
			n++
		}
	}
	return n
}
