package opt

import (
	"fmt"
	"math/big"
	"slices"

	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/ireval"
)

// FoldConstants evaluates pure instructions whose operands are all
// literals. An evaluation that would throw is left in place and noted
// through r.
func FoldConstants(f *ir.Function, r diag.Reporter) int {
	n := 0
	for _, bb := range f.Blocks {
		for _, in := range slices.Clone(bb.Instrs) {
			if !in.Pure() || len(in.Operands) == 0 {
				continue
			}
			args, ok := literals(in)
			if !ok {
				continue
			}
			v, err := evaluate(in, args)
			if err != nil {
				diag.ReportInfo(r, diag.OptWithheld, in.Span,
					fmt.Sprintf("%s not folded: %v", in.Op, err)).Emit()
				continue
			}
			lit := toLiteral(f.Module, v)
			if lit == nil {
				continue
			}
			forward(f, in, lit)
			n++
		}
	}
	return n
}

func literals(in *ir.Instr) ([]ireval.Value, bool) {
	out := make([]ireval.Value, len(in.Operands))
	for i, op := range in.Operands {
		l, ok := op.(*ir.Literal)
		if !ok || l.Kind == ir.LitEmpty {
			return nil, false
		}
		out[i] = ireval.FromLiteral(l)
	}
	return out, true
}

func evaluate(in *ir.Instr, args []ireval.Value) (ireval.Value, error) {
	switch in.Op {
	case ir.BinaryOperatorInst, ir.NumericBinaryOperatorInst:
		return ireval.Binary(in.Operator, args[0], args[1])
	case ir.UnaryOperatorInst:
		return ireval.Unary(in.Operator, args[0])
	case ir.AsNumberInst:
		return ireval.AsNumber(args[0])
	case ir.AsInt32Inst:
		return ireval.Binary("|", args[0], ireval.Number(0))
	}
	return ireval.Undefined, fmt.Errorf("no folding rule")
}

func toLiteral(m *ir.Module, v ireval.Value) *ir.Literal {
	switch v.Kind {
	case ireval.KindUndefined:
		return m.Undefined()
	case ireval.KindNull:
		return m.Null()
	case ireval.KindBoolean:
		return m.Bool(v.Bool)
	case ireval.KindNumber:
		return m.Number(v.Num)
	case ireval.KindString:
		return m.Str(v.Str)
	case ireval.KindBigInt:
		return m.BigInt(new(big.Int).Set(v.Big).String())
	}
	return nil
}
