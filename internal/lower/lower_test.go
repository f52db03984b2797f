package lower

import (
	"strings"
	"testing"

	"ember/internal/ast"
	"ember/internal/ir"
	"ember/internal/ireval"
	"ember/internal/irgen"
	tk "ember/internal/testkit"
	"ember/internal/types"
)

func lowered(t *testing.T, prog *ast.Program) *ir.Module {
	t.Helper()
	m, err := irgen.Generate(prog, types.NewTable(), nil, irgen.Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := LowerModule(m); err != nil {
		t.Fatalf("lower: %v\n%s", err, m)
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("invalid IR after lowering: %v\n%s", err, m)
	}
	return m
}

func start(t *testing.T, m *ir.Module, name string, args ...ireval.Value) (*ireval.Machine, *ireval.Generator) {
	t.Helper()
	x := ireval.New(m)
	if _, err := x.Run(); err != nil {
		t.Fatalf("run program: %v", err)
	}
	v, err := x.CallGlobal(name, args...)
	if err != nil {
		t.Fatalf("call %s: %v\n%s", name, err, m)
	}
	if v.Kind != ireval.KindObject || v.Obj.Gen == nil {
		t.Fatalf("%s returned %s, want a generator", name, v)
	}
	return x, v.Obj.Gen
}

func step(t *testing.T, g *ireval.Generator, in ireval.Value, want ireval.Value, wantDone bool) {
	t.Helper()
	got, done, err := g.Resume(in)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if done != wantDone || got.String() != want.String() {
		t.Fatalf("resume(%s) = %s done=%v, want %s done=%v", in, got, done, want, wantDone)
	}
}

func opsOf(f *ir.Function) map[ir.Opcode]int {
	out := map[ir.Opcode]int{}
	f.ForEachInstr(func(in *ir.Instr) { out[in.Op]++ })
	return out
}

// twoYields is `function* g(n) { var a = yield n; var b = yield a + 1; return a + b; }`.
func twoYields() *ast.Program {
	return tk.Program(tk.FuncDecl(tk.Gen(tk.Fn("g", []string{"n"},
		tk.Var(ast.VarVar, "a", tk.Yield(tk.Ident("n"))),
		tk.Var(ast.VarVar, "b", tk.Yield(tk.Bin(ast.BinOpAdd, tk.Ident("a"), tk.Num(1)))),
		tk.Return(tk.Bin(ast.BinOpAdd, tk.Ident("a"), tk.Ident("b"))),
	))))
}

func TestGeneratorBecomesStateMachine(t *testing.T) {
	m := lowered(t, twoYields())
	g := m.Function("g")
	inner := m.Function("g$inner")
	if g == nil || inner == nil {
		t.Fatalf("missing functions:\n%s", m)
	}
	if g.Inner != inner || inner.Kind != ir.FuncStateMachine || inner.Parent != g {
		t.Fatalf("bad link between g and its machine:\n%s", m)
	}
	if len(g.Params) != 1 || g.Params[0].Name != "n" || len(g.Frame) != 0 {
		t.Fatalf("outer function should keep its signature and no frame:\n%s", m)
	}
	outer := opsOf(g)
	if outer[ir.CreateGeneratorInst] != 1 || outer[ir.ReturnInst] != 1 || len(g.Blocks) != 1 {
		t.Fatalf("unexpected outer body:\n%s", m)
	}

	sm := inner.StateMachine
	if sm == nil || len(sm.States) != 4 || sm.Completed() != 3 {
		t.Fatalf("expected 4 states:\n%s", m)
	}
	kinds := []ir.StateKind{ir.StateNotStarted, ir.StateSuspendedAt, ir.StateSuspendedAt, ir.StateCompleted}
	for i, s := range sm.States {
		if s.Kind != kinds[i] {
			t.Fatalf("state %d is %s", i, s)
		}
	}
	if sm.States[1].Site != 1 || sm.States[2].Site != 2 {
		t.Fatalf("sites are not numbered in order: %v", sm.States)
	}
	ops := opsOf(inner)
	if ops[ir.YieldInst] != 0 || ops[ir.SuspendInst] != 2 || ops[ir.ResumeValueInst] != 3 {
		t.Fatalf("unexpected machine body:\n%s", m)
	}
	if !strings.Contains(m.String(), "states = [NotStarted -> ") {
		t.Fatalf("dump lacks the state table:\n%s", m)
	}
}

func TestGeneratorRuns(t *testing.T) {
	m := lowered(t, twoYields())
	_, g := start(t, m, "g", ireval.Number(4))
	step(t, g, ireval.Undefined, ireval.Number(4), false)
	step(t, g, ireval.Number(10), ireval.Number(11), false)
	step(t, g, ireval.Number(5), ireval.Number(15), true)
	if !g.Done() {
		t.Fatal("machine should be completed")
	}
	step(t, g, ireval.Number(1), ireval.Undefined, true)
}

func TestForceReturnFromEveryState(t *testing.T) {
	m := lowered(t, twoYields())
	for resumes := 0; resumes <= 3; resumes++ {
		_, g := start(t, m, "g", ireval.Number(1))
		for range resumes {
			if _, _, err := g.Resume(ireval.Number(1)); err != nil {
				t.Fatalf("resume: %v", err)
			}
		}
		v, done, err := g.ForceReturn(ireval.String("stop"))
		if err != nil || !done || v.Str != "stop" {
			t.Fatalf("after %d resumes: force return = %s done=%v err=%v", resumes, v, done, err)
		}
		if !g.Done() {
			t.Fatalf("after %d resumes: machine not completed", resumes)
		}
	}
}

func TestValuesLiveAcrossSuspendAreSpilled(t *testing.T) {
	// function* s() { return (yield 1) + (yield 2); }
	m := lowered(t, tk.Program(tk.FuncDecl(tk.Gen(tk.Fn("s", nil,
		tk.Return(tk.Bin(ast.BinOpAdd, tk.Yield(tk.Num(1)), tk.Yield(tk.Num(2)))),
	)))))
	inner := m.Function("s$inner")
	spills := 0
	for _, v := range inner.Frame {
		if strings.HasPrefix(v.Name, spillPrefix) {
			spills++
		}
	}
	if spills != 1 {
		t.Fatalf("expected one spill slot, got %d:\n%s", spills, m)
	}

	_, g := start(t, m, "s")
	step(t, g, ireval.Undefined, ireval.Number(1), false)
	step(t, g, ireval.Number(3), ireval.Number(2), false)
	step(t, g, ireval.Number(4), ireval.Number(7), true)
}

func TestClosuresInsideMachineShareItsFrame(t *testing.T) {
	// function* c() { var k = 1; var f = function () { return k; }; yield f(); k = 2; yield f(); }
	m := lowered(t, tk.Program(tk.FuncDecl(tk.Gen(tk.Fn("c", nil,
		tk.Var(ast.VarVar, "k", tk.Num(1)),
		tk.Var(ast.VarVar, "f", tk.Func(tk.Fn("", nil, tk.Return(tk.Ident("k"))))),
		tk.Expr(tk.Yield(tk.Call(tk.Ident("f")))),
		tk.Expr(tk.Assign(ast.BinOpAssign, tk.Ident("k"), tk.Num(2))),
		tk.Expr(tk.Yield(tk.Call(tk.Ident("f")))),
	)))))
	for _, f := range m.Functions {
		if f.Name == "f" && f.Parent != m.Function("c$inner") {
			t.Fatalf("nested function was not moved under the machine:\n%s", m)
		}
	}
	_, g := start(t, m, "c")
	step(t, g, ireval.Undefined, ireval.Number(1), false)
	step(t, g, ireval.Undefined, ireval.Number(2), false)
	step(t, g, ireval.Undefined, ireval.Undefined, true)
}

func TestAsyncFunctionIsSpawned(t *testing.T) {
	// async function f(x) { var y = await x; return y * 2; }
	m := lowered(t, tk.Program(tk.FuncDecl(tk.Async(tk.Fn("f", []string{"x"},
		tk.Var(ast.VarVar, "y", tk.Await(tk.Ident("x"))),
		tk.Return(tk.Bin(ast.BinOpMul, tk.Ident("y"), tk.Num(2))),
	)))))
	f := m.Function("f")
	var builtin string
	f.ForEachInstr(func(in *ir.Instr) {
		if in.Op == ir.CallBuiltinInst {
			builtin = in.Operands[0].(*ir.Builtin).Name
		}
	})
	if builtin != ir.BuiltinSpawnAsync {
		t.Fatalf("async body is not spawned:\n%s", m)
	}
	if ops := opsOf(m.Function("f$inner")); ops[ir.AwaitInst] != 0 || ops[ir.SuspendInst] != 1 {
		t.Fatalf("await was not lowered:\n%s", m)
	}

	x := ireval.New(m)
	if _, err := x.Run(); err != nil {
		t.Fatal(err)
	}
	v, err := x.CallGlobal("f", ireval.Number(21))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != ireval.KindNumber || v.Num != 42 {
		t.Fatalf("got %s, want 42", v)
	}
}

func TestOrdinaryFunctionsUntouched(t *testing.T) {
	m := lowered(t, tk.Program(tk.FuncDecl(tk.Fn("plain", nil, tk.Return(tk.Num(1))))))
	before := m.String()
	if err := LowerModule(m); err != nil {
		t.Fatal(err)
	}
	if m.String() != before {
		t.Fatalf("lowering changed a module without suspend points")
	}
	if m.Function("plain$inner") != nil {
		t.Fatal("machine created for an ordinary function")
	}
}
