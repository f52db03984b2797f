package opt

import (
	"slices"

	"ember/internal/ir"
	"ember/internal/types"
)

// Simplify applies local rewrites that need no constants:
//
//	x | 0, 0 | x     -> AsInt32Inst x
//	AsNumberInst x   -> x              when x is a number
//	phi [v, ...v]    -> v              when every entry is v or the phi
func Simplify(f *ir.Function) int {
	m := f.Module
	n := 0
	for _, bb := range f.Blocks {
		for _, in := range slices.Clone(bb.Instrs) {
			switch in.Op {
			case ir.BinaryOperatorInst, ir.NumericBinaryOperatorInst:
				if in.Operator != "|" {
					continue
				}
				var x ir.Value
				switch {
				case isZero(in.Operands[1]):
					x = in.Operands[0]
				case isZero(in.Operands[0]):
					x = in.Operands[1]
				default:
					continue
				}
				conv := ir.NewInstr(ir.AsInt32Inst, "", m.Types.Builtins().Number, in.Span, x)
				replace(f, in, conv)
				n++
			case ir.AsNumberInst:
				if m.IsNumber(in.Operands[0]) {
					forward(f, in, in.Operands[0])
					n++
				}
			case ir.PhiInst:
				if v := uniqueIncoming(in); v != nil {
					forward(f, in, v)
					n++
				}
			}
		}
	}
	return n
}

func isZero(v ir.Value) bool {
	l, ok := v.(*ir.Literal)
	return ok && l.Kind == ir.LitNumber && l.Num == 0
}

func uniqueIncoming(phi *ir.Instr) ir.Value {
	var only ir.Value
	for n := range phi.NumIncoming() {
		v, _ := phi.Incoming(n)
		if v == ir.Value(phi) || v == only {
			continue
		}
		if only != nil {
			return nil
		}
		only = v
	}
	return only
}

// InferTypes recomputes result types from operand types until nothing
// sharpens, then specializes arithmetic whose operands are proven
// numbers. Types only ever narrow.
func InferTypes(f *ir.Function) int {
	m := f.Module
	tab := m.Types
	for changed := true; changed; {
		changed = false
		f.ForEachInstr(func(in *ir.Instr) {
			if !in.Op.HasValue() || in.Result == types.NoTypeID {
				return
			}
			t := m.ResultType(in)
			if t != in.Result && tab.Subset(t, in.Result) {
				in.Result = t
				changed = true
			}
		})
	}

	n := 0
	for _, bb := range f.Blocks {
		for _, in := range slices.Clone(bb.Instrs) {
			if in.Op != ir.BinaryOperatorInst || !arithmetic(in.Operator) {
				continue
			}
			if !m.IsNumber(in.Operands[0]) || !m.IsNumber(in.Operands[1]) {
				continue
			}
			num := ir.NewInstr(ir.NumericBinaryOperatorInst, in.Operator, m.Types.Builtins().Number, in.Span, slices.Clone(in.Operands)...)
			replace(f, in, num)
			n++
		}
	}
	return n
}

func arithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "**", "|", "&", "^", "<<", ">>", ">>>":
		return true
	}
	return false
}
