package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/ir"
	"ember/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a generated
// module:
// 1) every function span is well formed and lies inside the script text
// 2) every instruction span is either synthesized or lies inside the span
// of its function and points into the same file
func CheckSpanInvariants(m *ir.Module, sf *source.File) error {
	if m == nil || sf == nil {
		return fmt.Errorf("nil module or file")
	}
	textLen, err := safecast.Conv[uint32](len(sf.Text))
	if err != nil {
		return fmt.Errorf("len text overflow: %w", err)
	}
	for _, f := range m.Functions {
		fs := f.Span
		if fs == source.NoSpan {
			continue
		}
		if fs.End < fs.Start {
			return fmt.Errorf("function %s: inverted span %v", f.Name, fs)
		}
		if fs.File != sf.ID {
			return fmt.Errorf("function %s: span file mismatch: got=%d want=%d", f.Name, fs.File, sf.ID)
		}
		if len(sf.Text) > 0 && fs.End > textLen {
			return fmt.Errorf("function %s: span end beyond text: %d > %d", f.Name, fs.End, textLen)
		}
		var bad error
		f.ForEachInstr(func(in *ir.Instr) {
			sp := in.Span
			if bad != nil || sp == source.NoSpan {
				return
			}
			if sp.File != sf.ID {
				bad = fmt.Errorf("function %s: %s span file mismatch: got=%d want=%d", f.Name, in.Op, sp.File, sf.ID)
				return
			}
			if sp.Start < fs.Start || sp.End > fs.End {
				bad = fmt.Errorf("function %s: %s span %v is outside function span %v", f.Name, in.Op, sp, fs)
			}
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}
