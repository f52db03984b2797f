package opt

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/ireval"
	"ember/internal/irgen"
	"ember/internal/lower"
	tk "ember/internal/testkit"
	"ember/internal/types"
)

func build(t *testing.T, prog *ast.Program) *ir.Module {
	t.Helper()
	m, err := irgen.Generate(prog, types.NewTable(), nil, irgen.Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := lower.LowerModule(m); err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m
}

func optimized(t *testing.T, prog *ast.Program) (*ir.Module, Stats) {
	t.Helper()
	m := build(t, prog)
	st := OptimizeModule(m, Default())
	if err := ir.Validate(m); err != nil {
		t.Fatalf("invalid IR after optimization: %v\n%s", err, m)
	}
	return m, st
}

func instrs(f *ir.Function, op ir.Opcode, operator string) []*ir.Instr {
	var out []*ir.Instr
	f.ForEachInstr(func(in *ir.Instr) {
		if in.Op == op && (operator == "" || in.Operator == operator) {
			out = append(out, in)
		}
	})
	return out
}

// arith lists both the generic and the numeric form of operator.
func arith(f *ir.Function, operator string) []*ir.Instr {
	return append(instrs(f, ir.BinaryOperatorInst, operator), instrs(f, ir.NumericBinaryOperatorInst, operator)...)
}

func fooProgram() *ast.Program {
	id := tk.Ident
	return tk.Program(tk.FuncDecl(tk.Fn("foo", []string{"dim"},
		tk.Var(ast.VarVar, "a", tk.Bin(ast.BinOpLooseEq, id("dim"), id("dim"))),
		tk.Var(ast.VarVar, "b", tk.Bin(ast.BinOpLooseEq, id("dim"), id("dim"))),
		tk.Var(ast.VarVar, "c", tk.Bin(ast.BinOpAdd, id("a"), id("b"))),
		tk.Var(ast.VarVar, "d", tk.Bin(ast.BinOpAdd, id("a"), id("b"))),
		tk.Return(tk.Bin(ast.BinOpMul, id("c"), id("d"))),
	)))
}

func TestFooSharesComparisonAndAddition(t *testing.T) {
	m, st := optimized(t, fooProgram())
	foo := m.Function("foo")
	eq := arith(foo, "==")
	add := arith(foo, "+")
	mul := arith(foo, "*")
	if len(eq) != 1 || len(add) != 1 || len(mul) != 1 {
		t.Fatalf("want one ==, one + and one *, got %d %d %d:\n%s", len(eq), len(add), len(mul), m)
	}
	if add[0].Operands[0] != ir.Value(eq[0]) || add[0].Operands[1] != ir.Value(eq[0]) {
		t.Fatalf("addition does not reuse the comparison:\n%s", m)
	}
	if mul[0].Operands[0] != ir.Value(add[0]) || mul[0].Operands[1] != ir.Value(add[0]) {
		t.Fatalf("multiply is not add*add:\n%s", m)
	}
	ret := foo.Blocks[len(foo.Blocks)-1].Terminator()
	if ret.Op != ir.ReturnInst || ret.Operands[0] != ir.Value(mul[0]) {
		t.Fatalf("return does not use the multiply:\n%s", m)
	}
	if len(foo.Frame) != 0 {
		t.Fatalf("frame slots should be gone:\n%s", m)
	}
	if st.Merged < 2 || st.Forwarded == 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if got := m.Types.String(foo.ReturnType); got != "number" {
		t.Fatalf("return type %s, want number", got)
	}
}

func TestDistinctOperatorsNotMerged(t *testing.T) {
	id := tk.Ident
	m, _ := optimized(t, tk.Program(tk.FuncDecl(tk.Fn("g", []string{"a", "b"},
		tk.Var(ast.VarVar, "x", tk.Bin(ast.BinOpSub, id("a"), id("b"))),
		tk.Var(ast.VarVar, "y", tk.Bin(ast.BinOpAdd, id("a"), id("b"))),
		tk.Return(tk.Bin(ast.BinOpMul, id("x"), id("y"))),
	))))
	g := m.Function("g")
	sub, add := arith(g, "-"), arith(g, "+")
	if len(sub) != 1 || len(add) != 1 {
		t.Fatalf("a-b and a+b must both survive:\n%s", m)
	}
	if sub[0].Operands[0] != add[0].Operands[0] || sub[0].Operands[1] != add[0].Operands[1] {
		t.Fatalf("both should read the same operands:\n%s", m)
	}
}

func TestNoMergeAcrossBlocks(t *testing.T) {
	// function h(a, b) { var x = a - b; if (a) { x = a - b; } return x; }
	id := tk.Ident
	m, _ := optimized(t, tk.Program(tk.FuncDecl(tk.Fn("h", []string{"a", "b"},
		tk.Var(ast.VarVar, "x", tk.Bin(ast.BinOpSub, id("a"), id("b"))),
		tk.If(id("a"), tk.Block(tk.Expr(tk.Assign(ast.BinOpAssign, id("x"), tk.Bin(ast.BinOpSub, id("a"), id("b")))))),
		tk.Return(id("x")),
	))))
	h := m.Function("h")
	sub := arith(h, "-")
	if len(sub) != 2 {
		t.Fatalf("want the subtraction in both blocks, got %d:\n%s", len(sub), m)
	}
	if sub[0].Block == sub[1].Block {
		t.Fatalf("subtractions ended up in one block:\n%s", m)
	}
}

func TestImpureLoadsNotMerged(t *testing.T) {
	// function p(o) { return o.x + o.x; }
	id := tk.Ident
	m, _ := optimized(t, tk.Program(tk.FuncDecl(tk.Fn("p", []string{"o"},
		tk.Return(tk.Bin(ast.BinOpAdd, tk.Dot(id("o"), "x"), tk.Dot(id("o"), "x"))),
	))))
	if n := len(instrs(m.Function("p"), ir.LoadPropertyInst, "")); n != 2 {
		t.Fatalf("property loads must not be merged, got %d:\n%s", n, m)
	}
}

func TestInt32CoercionNarrowsArithmetic(t *testing.T) {
	// function n(x) { var y = x | 0; return y + 1; }
	id := tk.Ident
	m, _ := optimized(t, tk.Program(tk.FuncDecl(tk.Fn("n", []string{"x"},
		tk.Var(ast.VarVar, "y", tk.Bin(ast.BinOpBitOr, id("x"), tk.Num(0))),
		tk.Return(tk.Bin(ast.BinOpAdd, id("y"), tk.Num(1))),
	))))
	n := m.Function("n")
	conv := instrs(n, ir.AsInt32Inst, "")
	if len(conv) != 1 || len(arith(n, "|")) != 0 {
		t.Fatalf("x|0 should become AsInt32Inst:\n%s", m)
	}
	add := instrs(n, ir.NumericBinaryOperatorInst, "+")
	if len(add) != 1 || add[0].Operands[0] != ir.Value(conv[0]) {
		t.Fatalf("addition should be numeric:\n%s", m)
	}
	if len(instrs(n, ir.BinaryOperatorInst, "")) != 0 {
		t.Fatalf("generic arithmetic left:\n%s", m)
	}
}

func TestInt32CoercionNarrowsAcrossRounds(t *testing.T) {
	// function p(x, y) { return (x | (1 - 1)) + (y | 0) + (x | 0); }
	id := tk.Ident
	or := func(l, r ast.Expr) ast.Expr { return tk.Bin(ast.BinOpBitOr, l, r) }
	m, st := optimized(t, tk.Program(tk.FuncDecl(tk.Fn("p", []string{"x", "y"},
		tk.Return(tk.Bin(ast.BinOpAdd,
			tk.Bin(ast.BinOpAdd, or(id("x"), tk.Bin(ast.BinOpSub, tk.Num(1), tk.Num(1))), or(id("y"), tk.Num(0))),
			or(id("x"), tk.Num(0)))),
	))))
	p := m.Function("p")
	conv := instrs(p, ir.AsInt32Inst, "")
	if len(conv) != 2 || len(arith(p, "|")) != 0 {
		t.Fatalf("both coercions should fold to one AsInt32Inst per operand:\n%s", m)
	}
	adds := instrs(p, ir.NumericBinaryOperatorInst, "+")
	if len(adds) != 2 || len(instrs(p, ir.BinaryOperatorInst, "")) != 0 {
		t.Fatalf("additions should be numeric:\n%s", m)
	}
	inner, outer := adds[0], adds[1]
	if outer.Operands[0] != ir.Value(inner) {
		inner, outer = outer, inner
	}
	if outer.Operands[1] != inner.Operands[0] {
		t.Fatalf("x|0 should be shared with x|(1-1):\n%s", m)
	}
	if st.Folded == 0 || st.Merged == 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestFoldConstants(t *testing.T) {
	m, st := optimized(t, tk.Program(
		tk.FuncDecl(tk.Fn("k", nil, tk.Return(tk.Bin(ast.BinOpAdd, tk.Bin(ast.BinOpMul, tk.Num(2), tk.Num(3)), tk.Num(1))))),
		tk.FuncDecl(tk.Fn("s", nil, tk.Return(tk.Bin(ast.BinOpAdd, tk.Str("a"), tk.Str("b"))))),
		tk.FuncDecl(tk.Fn("t", nil, tk.Return(tk.Un(ast.UnOpTypeof, tk.Null())))),
	))
	cases := map[string]string{"k": "7", "s": `"ab"`, "t": `"object"`}
	for name, want := range cases {
		f := m.Function(name)
		if len(f.Blocks) != 1 || len(f.Blocks[0].Instrs) != 1 {
			t.Fatalf("%s not folded to a single return:\n%s", name, m)
		}
		lit, ok := f.Blocks[0].Instrs[0].Operands[0].(*ir.Literal)
		if !ok || ir.LiteralString(lit) != want {
			t.Fatalf("%s returns %v, want %s", name, f.Blocks[0].Instrs[0].Operands[0], want)
		}
	}
	if st.Folded < 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestFoldWithheldOnThrow(t *testing.T) {
	bigOne := ast.Expr{Data: &ast.EBigInt{Digits: "1"}}
	m := build(t, tk.Program(tk.FuncDecl(tk.Fn("mix", nil, tk.Return(tk.Bin(ast.BinOpAdd, bigOne, tk.Num(1)))))))
	bag := diag.NewBag(8)
	opts := Default()
	opts.Reporter = diag.BagReporter{Bag: bag}
	OptimizeModule(m, opts)
	if n := len(arith(m.Function("mix"), "+")); n != 1 {
		t.Fatalf("throwing addition must stay, got %d:\n%s", n, m)
	}
	items := bag.Items()
	if len(items) == 0 || items[0].Code != diag.OptWithheld || items[0].Severity != diag.SevInfo {
		t.Fatalf("expected an OPT6001 note, got %v", items)
	}
}

func TestDisabledPassesLeaveIRAlone(t *testing.T) {
	m := build(t, fooProgram())
	before := m.String()
	if st := OptimizeModule(m, Options{}); st != (Stats{}) {
		t.Fatalf("no pass enabled but stats %+v", st)
	}
	if m.String() != before {
		t.Fatalf("IR changed with every pass disabled")
	}
}

// Optimized and unoptimized code must compute the same results.
func TestOptimizationPreservesBehavior(t *testing.T) {
	id := tk.Ident
	prog := func() *ast.Program {
		return tk.Program(
			tk.FuncDecl(tk.Fn("calc", []string{"x", "y"},
				tk.Var(ast.VarVar, "a", tk.Bin(ast.BinOpMul, id("x"), tk.Num(2))),
				tk.Var(ast.VarVar, "b", tk.Bin(ast.BinOpMul, id("x"), tk.Num(2))),
				tk.Var(ast.VarVar, "s", tk.Num(0)),
				tk.For(tk.Var(ast.VarLet, "i", tk.Num(0)),
					tk.Bin(ast.BinOpLt, id("i"), id("y")),
					tk.Update(ast.UnOpPostInc, id("i")),
					tk.Expr(tk.Assign(ast.BinOpAssign, id("s"), tk.Bin(ast.BinOpAdd, id("s"), tk.Bin(ast.BinOpAdd, id("a"), id("b")))))),
				tk.Return(tk.Bin(ast.BinOpAdd, tk.Bin(ast.BinOpBitOr, id("s"), tk.Num(0)), tk.Bin(ast.BinOpMul, tk.Num(3), tk.Num(4)))),
			)),
			tk.FuncDecl(tk.Gen(tk.Fn("gen", []string{"n"},
				tk.Var(ast.VarVar, "a", tk.Yield(tk.Bin(ast.BinOpMul, id("n"), tk.Num(2)))),
				tk.Expr(tk.Yield(tk.Bin(ast.BinOpAdd, id("a"), tk.Bin(ast.BinOpMul, id("n"), tk.Num(2))))),
			))),
		)
	}
	plain := build(t, prog())
	opt, _ := optimized(t, prog())

	results := func(m *ir.Module) []string {
		x := ireval.New(m)
		if _, err := x.Run(); err != nil {
			t.Fatalf("run: %v", err)
		}
		var out []string
		for _, args := range [][]ireval.Value{
			{ireval.Number(1), ireval.Number(3)},
			{ireval.Number(2.5), ireval.Number(4)},
			{ireval.String("7"), ireval.Number(2)},
			{ireval.Undefined, ireval.Number(1)},
		} {
			v, err := x.CallGlobal("calc", args...)
			if err != nil {
				t.Fatalf("calc: %v", err)
			}
			out = append(out, v.String())
		}
		g, err := x.CallGlobal("gen", ireval.Number(5))
		if err != nil {
			t.Fatalf("gen: %v", err)
		}
		for _, in := range []ireval.Value{ireval.Undefined, ireval.Number(1), ireval.Undefined} {
			v, done, err := g.Obj.Gen.Resume(in)
			if err != nil {
				t.Fatalf("resume: %v", err)
			}
			out = append(out, v.String())
			if done {
				out = append(out, "done")
			}
		}
		return out
	}
	want, got := results(plain), results(opt)
	if len(want) != len(got) {
		t.Fatalf("result count differs: %v vs %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("result %d: unoptimized %s, optimized %s", i, want[i], got[i])
		}
	}
}
