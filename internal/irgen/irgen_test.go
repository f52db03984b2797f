package irgen

import (
	"slices"
	"strings"
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/ir"
	tk "ember/internal/testkit"
	"ember/internal/types"
)

func generate(t *testing.T, prog *ast.Program) (*ir.Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(32)
	m, err := Generate(prog, types.NewTable(), diag.BagReporter{Bag: bag}, Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("invalid IR: %v\n%s", err, m)
	}
	return m, bag
}

func opsOf(f *ir.Function) []string {
	var out []string
	f.ForEachInstr(func(in *ir.Instr) { out = append(out, in.Op.String()) })
	return out
}

func instrsOf(f *ir.Function, op ir.Opcode) []*ir.Instr {
	var out []*ir.Instr
	f.ForEachInstr(func(in *ir.Instr) {
		if in.Op == op {
			out = append(out, in)
		}
	})
	return out
}

func mustFunc(t *testing.T, m *ir.Module, name string) *ir.Function {
	t.Helper()
	f := m.Function(name)
	if f == nil {
		t.Fatalf("no function %q in:\n%s", name, m)
	}
	return f
}

// protoProgram is `function f() { var __proto__ = 42; return <obj>; }`.
func protoProgram(obj ast.Expr) *ast.Program {
	return tk.Program(tk.FuncDecl(tk.Fn("f", nil,
		tk.Var(ast.VarVar, "__proto__", tk.Num(42)),
		tk.Return(obj),
	)))
}

func TestFooProducesDuplicateComputations(t *testing.T) {
	dim := tk.Ident
	prog := tk.Program(tk.FuncDecl(tk.Fn("foo", []string{"dim"},
		tk.Var(ast.VarVar, "a", tk.Bin(ast.BinOpLooseEq, dim("dim"), dim("dim"))),
		tk.Var(ast.VarVar, "b", tk.Bin(ast.BinOpLooseEq, dim("dim"), dim("dim"))),
		tk.Var(ast.VarVar, "c", tk.Bin(ast.BinOpAdd, dim("a"), dim("b"))),
		tk.Var(ast.VarVar, "d", tk.Bin(ast.BinOpAdd, dim("a"), dim("b"))),
		tk.Return(tk.Bin(ast.BinOpMul, dim("c"), dim("d"))),
	)))
	m, _ := generate(t, prog)
	foo := mustFunc(t, m, "foo")
	counts := map[string]int{}
	for _, in := range instrsOf(foo, ir.BinaryOperatorInst) {
		counts[in.Operator]++
	}
	if counts["=="] != 2 || counts["+"] != 2 || counts["*"] != 1 {
		t.Fatalf("unexpected operators %v:\n%s", counts, m)
	}
	if got := len(foo.Frame); got != 5 {
		t.Fatalf("expected 5 frame slots, got %d", got)
	}
	if !strings.HasPrefix(m.String(), "function global(): undefined\n") {
		t.Fatalf("program function missing:\n%s", m)
	}
}

func TestProgramDeclaresGlobals(t *testing.T) {
	prog := tk.Program(
		tk.Var(ast.VarVar, "x", tk.Num(1)),
		tk.FuncDecl(tk.Fn("f", nil)),
	)
	m, _ := generate(t, prog)
	global := mustFunc(t, m, "global")
	want := []string{
		"DeclareGlobalVarInst", "DeclareGlobalVarInst",
		"CreateFunctionInst", "StorePropertyLooseInst",
		"StorePropertyLooseInst", "ReturnInst",
	}
	if got := opsOf(global); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(global.Frame) != 0 {
		t.Fatalf("globals must not take frame slots")
	}
}

func TestProtoShorthandIsOwnProperty(t *testing.T) {
	m, _ := generate(t, protoProgram(tk.Object(
		tk.Short("__proto__"), tk.Prop("a", tk.Num(2)), tk.Prop("b", tk.Num(3)),
	)))
	f := mustFunc(t, m, "f")
	want := []string{"StoreFrameInst", "StoreFrameInst", "LoadFrameInst", "AllocObjectLiteralInst", "ReturnInst"}
	if got := opsOf(f); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	lit := instrsOf(f, ir.AllocObjectLiteralInst)[0]
	if lit.Operands[0] != ir.Value(m.Str("__proto__")) || lit.Operands[5] != ir.Value(m.Number(3)) {
		t.Fatalf("unexpected literal operands:\n%s", m)
	}
}

func TestProtoDuplicateShorthand(t *testing.T) {
	m, _ := generate(t, protoProgram(tk.Object(tk.Short("__proto__"), tk.Short("__proto__"))))
	f := mustFunc(t, m, "f")
	want := []string{
		"StoreFrameInst", "StoreFrameInst",
		"AllocObjectInst",
		"LoadFrameInst", "StoreNewOwnPropertyInst",
		"LoadFrameInst", "StoreOwnPropertyInst",
		"ReturnInst",
	}
	if got := opsOf(f); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	alloc := instrsOf(f, ir.AllocObjectInst)[0]
	if alloc.Operands[0] != ir.Value(m.Number(1)) || alloc.Operands[1] != ir.Value(m.Empty()) {
		t.Fatalf("unexpected allocation:\n%s", m)
	}
	if first := instrsOf(f, ir.StoreNewOwnPropertyInst)[0]; first.Operands[0] != ir.Value(m.Null()) {
		t.Fatalf("first occurrence should reserve the slot:\n%s", m)
	}
}

func TestProtoShorthandThenExplicit(t *testing.T) {
	m, _ := generate(t, protoProgram(tk.Object(tk.Short("__proto__"), tk.Prop("__proto__", tk.Object()))))
	f := mustFunc(t, m, "f")
	want := []string{
		"StoreFrameInst", "StoreFrameInst",
		"AllocObjectInst",
		"LoadFrameInst", "StoreNewOwnPropertyInst",
		"AllocObjectInst", "CallBuiltinInst",
		"ReturnInst",
	}
	if got := opsOf(f); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	call := instrsOf(f, ir.CallBuiltinInst)[0]
	if b, ok := call.Operands[0].(*ir.Builtin); !ok || b.Name != ir.BuiltinSilentSetPrototypeOf {
		t.Fatalf("expected a prototype assignment:\n%s", m)
	}
	allocs := instrsOf(f, ir.AllocObjectInst)
	if call.Operands[2] != ir.Value(allocs[0]) || call.Operands[3] != ir.Value(allocs[1]) {
		t.Fatalf("prototype assignment has wrong operands:\n%s", m)
	}
}

func TestProtoExplicitThenShorthand(t *testing.T) {
	m, _ := generate(t, protoProgram(tk.Object(tk.Prop("__proto__", tk.Object()), tk.Short("__proto__"))))
	f := mustFunc(t, m, "f")
	want := []string{
		"StoreFrameInst", "StoreFrameInst",
		"AllocObjectInst", "AllocObjectInst",
		"LoadFrameInst", "StoreNewOwnPropertyInst",
		"ReturnInst",
	}
	if got := opsOf(f); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	allocs := instrsOf(f, ir.AllocObjectInst)
	if allocs[1].Operands[1] != ir.Value(allocs[0]) {
		t.Fatalf("explicit prototype should become the parent:\n%s", m)
	}
}

func TestAccessorsAreCombined(t *testing.T) {
	m, _ := generate(t, protoProgram(tk.Object(
		tk.Getter("a", tk.Fn("", nil, tk.Return(tk.Num(1)))),
		tk.Prop("b", tk.Num(2)),
		tk.Setter("a", tk.Fn("", []string{"v"})),
	)))
	f := mustFunc(t, m, "f")
	gs := instrsOf(f, ir.StoreGetterSetterInst)
	if len(gs) != 1 {
		t.Fatalf("expected one accessor store:\n%s", m)
	}
	for _, n := range []int{0, 1} {
		if in, ok := gs[0].Operands[n].(*ir.Instr); !ok || in.Op != ir.CreateFunctionInst {
			t.Fatalf("accessor operand %d is not a closure:\n%s", n, m)
		}
	}
	mustFunc(t, m, "get_a")
	mustFunc(t, m, "set_a")
}

func TestDelete(t *testing.T) {
	o := tk.Ident
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"o"},
		tk.Expr(tk.Un(ast.UnOpDelete, o("o"))),
		tk.Expr(tk.Un(ast.UnOpDelete, tk.Dot(o("o"), "f"))),
		tk.Expr(tk.Un(ast.UnOpDelete, tk.Index(o("o"), tk.Num(3)))),
	)))
	m, bag := generate(t, prog)
	f := mustFunc(t, m, "f")
	want := []string{
		"LoadParamInst", "StoreFrameInst",
		"LoadFrameInst", "DeletePropertyLooseInst",
		"LoadFrameInst", "DeletePropertyLooseInst",
		"ReturnInst",
	}
	if got := opsOf(f); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	dels := instrsOf(f, ir.DeletePropertyLooseInst)
	if dels[0].Operands[1] != ir.Value(m.Str("f")) || dels[1].Operands[1] != ir.Value(m.Number(3)) {
		t.Fatalf("unexpected keys:\n%s", m)
	}
	if !m.Types.Is(dels[0].Type(), types.KindBoolean) {
		t.Fatalf("delete must be boolean typed")
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestStrictDeleteOfBindingIsReported(t *testing.T) {
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"o"},
		tk.Expr(tk.Un(ast.UnOpDelete, tk.Ident("o"))),
	)))
	prog.Strict = true
	_, bag := generate(t, prog)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaDeleteBinding {
		t.Fatalf("expected one delete diagnostic, got %v", bag.Items())
	}
}

func TestUnaryOperators(t *testing.T) {
	x := tk.Ident
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"x"},
		tk.Return(tk.Array(
			tk.Un(ast.UnOpPos, x("x")),
			tk.Un(ast.UnOpNeg, x("x")),
			tk.Un(ast.UnOpCpl, x("x")),
			tk.Un(ast.UnOpNot, x("x")),
			tk.Un(ast.UnOpTypeof, x("x")),
			tk.Un(ast.UnOpVoid, x("x")),
		)),
	)))
	m, _ := generate(t, prog)
	f := mustFunc(t, m, "f")
	if n := len(instrsOf(f, ir.AsNumberInst)); n != 1 {
		t.Fatalf("expected one AsNumberInst, got %d", n)
	}
	var operators []string
	for _, in := range instrsOf(f, ir.UnaryOperatorInst) {
		operators = append(operators, in.Operator)
	}
	if want := []string{"-", "~", "!", "typeof"}; !slices.Equal(operators, want) {
		t.Fatalf("got %v, want %v", operators, want)
	}
	arr := instrsOf(f, ir.AllocArrayInst)[0]
	if arr.Operands[0] != ir.Value(m.Number(6)) || arr.Operands[6] != ir.Value(m.Undefined()) {
		t.Fatalf("unexpected array:\n%s", m)
	}
}

func TestSemanticErrorsAreCollected(t *testing.T) {
	prog := tk.Program(
		tk.Expr(tk.New(tk.Num(1))),
		tk.Expr(tk.Assign(ast.BinOpAssign, tk.Num(1), tk.Num(2))),
		tk.Expr(tk.Yield(tk.Num(1))),
		tk.Expr(tk.Await(tk.Num(1))),
		tk.Return(tk.Num(1)),
	)
	_, bag := generate(t, prog)
	var codes []diag.Code
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	want := []diag.Code{
		diag.SemaInvalidConstruct,
		diag.SemaInvalidAssignTarget,
		diag.SemaYieldOutsideGen,
		diag.SemaAwaitOutsideAsync,
		diag.SemaReturnOutsideFn,
	}
	if !slices.Equal(codes, want) {
		t.Fatalf("got %v, want %v", codes, want)
	}
}

func TestStrictDuplicateParams(t *testing.T) {
	fn := tk.Fn("f", []string{"a", "a"})
	fn.Strict = true
	_, bag := generate(t, tk.Program(tk.FuncDecl(fn)))
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaDuplicateParam {
		t.Fatalf("expected duplicate parameter diagnostic, got %v", bag.Items())
	}
}

func TestUnresolvedNames(t *testing.T) {
	prog := tk.Program(
		tk.Expr(tk.Assign(ast.BinOpAssign, tk.Ident("x"), tk.Ident("y"))),
		tk.Expr(tk.Un(ast.UnOpTypeof, tk.Ident("z"))),
		tk.Expr(tk.Call(tk.Ident("f"), tk.Ident("undefined"))),
	)
	m, _ := generate(t, prog)
	global := mustFunc(t, m, "global")
	want := []string{
		"TryLoadGlobalPropertyInst", "StorePropertyLooseInst",
		"LoadPropertyInst", "UnaryOperatorInst",
		"TryLoadGlobalPropertyInst", "CallInst",
		"ReturnInst",
	}
	if got := opsOf(global); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v\n%s", got, want, m)
	}
	load := instrsOf(global, ir.TryLoadGlobalPropertyInst)[0]
	if !m.Types.Is(load.Type(), types.KindAny) {
		t.Fatalf("global lookup must be typed any")
	}
	call := instrsOf(global, ir.CallInst)[0]
	if call.Operands[2] != ir.Value(m.Undefined()) {
		t.Fatalf("`undefined` should lower to the literal:\n%s", m)
	}
}

func TestCapturedSlotsUseEnvironment(t *testing.T) {
	prog := tk.Program(tk.FuncDecl(tk.Fn("outer", nil,
		tk.Var(ast.VarVar, "x", tk.Num(1)),
		tk.Var(ast.VarVar, "y", tk.Num(2)),
		tk.FuncDecl(tk.Fn("inner", nil, tk.Return(tk.Ident("x")))),
		tk.Return(tk.Ident("inner")),
	)))
	m, _ := generate(t, prog)
	outer, inner := mustFunc(t, m, "outer"), mustFunc(t, m, "inner")
	if !inner.EnvParent || outer.EnvParent {
		t.Fatalf("only inner needs an environment link")
	}
	captured := map[string]bool{}
	for _, v := range outer.Frame {
		captured[v.Name] = v.Captured
	}
	if !captured["x"] || captured["y"] || captured["inner"] {
		t.Fatalf("unexpected capture set %v", captured)
	}
	if !strings.Contains(m.String(), "LoadFrameInst [x@outer]") {
		t.Fatalf("inner should read the outer slot:\n%s", m)
	}
}

func TestConstructReturnsAllocatedObject(t *testing.T) {
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"C"},
		tk.Return(tk.New(tk.Ident("C"), tk.Num(1))),
	)))
	m, _ := generate(t, prog)
	f := mustFunc(t, m, "f")
	proto := instrsOf(f, ir.LoadPropertyInst)[0]
	if proto.Operands[1] != ir.Value(m.Str("prototype")) {
		t.Fatalf("constructor prototype not loaded:\n%s", m)
	}
	alloc := instrsOf(f, ir.AllocObjectInst)[0]
	if alloc.Operands[1] != ir.Value(proto) {
		t.Fatalf("receiver must inherit from the prototype:\n%s", m)
	}
	cons := instrsOf(f, ir.ConstructInst)[0]
	if cons.Operands[1] != ir.Value(alloc) {
		t.Fatalf("receiver must be passed as this:\n%s", m)
	}
	ret := instrsOf(f, ir.ReturnInst)[0]
	if ret.Operands[0] != ir.Value(alloc) {
		t.Fatalf("new must yield the allocated object:\n%s", m)
	}
	if !m.Types.Is(f.ReturnType, types.KindObject) {
		t.Fatalf("return type should be object, got %s", m.Types.String(f.ReturnType))
	}
}

func TestLogicalOperatorsMergeWithPhi(t *testing.T) {
	for _, op := range []ast.OpCode{ast.BinOpLogicalOr, ast.BinOpLogicalAnd, ast.BinOpNullishCoalescing} {
		prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"a", "b"},
			tk.Return(tk.Bin(op, tk.Ident("a"), tk.Ident("b"))),
		)))
		m, _ := generate(t, prog)
		f := mustFunc(t, m, "f")
		if len(f.Blocks) != 3 {
			t.Fatalf("%s: expected 3 blocks:\n%s", op, m)
		}
		phis := instrsOf(f, ir.PhiInst)
		if len(phis) != 1 || phis[0].NumIncoming() != 2 {
			t.Fatalf("%s: expected one two-way phi:\n%s", op, m)
		}
	}
}

func TestLoopsWithBreakAndContinue(t *testing.T) {
	i := tk.Ident
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", []string{"n"},
		tk.Var(ast.VarVar, "s", tk.Num(0)),
		tk.For(
			tk.Var(ast.VarLet, "i", tk.Num(0)),
			tk.Bin(ast.BinOpLt, i("i"), i("n")),
			tk.Update(ast.UnOpPostInc, i("i")),
			tk.Block(
				tk.If(tk.Bin(ast.BinOpStrictEq, i("i"), tk.Num(3)), tk.Continue()),
				tk.If(tk.Bin(ast.BinOpStrictEq, i("i"), tk.Num(5)), tk.Break()),
				tk.Expr(tk.Assign(ast.BinOpAddAssign, i("s"), i("i"))),
			),
		),
		tk.Return(i("s")),
	)))
	m, _ := generate(t, prog)
	f := mustFunc(t, m, "f")
	if n := len(instrsOf(f, ir.PhiInst)); n != 0 {
		t.Fatalf("loops keep values in frame slots, found %d phis", n)
	}
	if n := len(instrsOf(f, ir.AsNumberInst)); n != 1 {
		t.Fatalf("postfix increment converts once, got %d", n)
	}
}

func TestMalformedInputAborts(t *testing.T) {
	prog := tk.Program(tk.FuncDecl(tk.Fn("f", nil, tk.Break())))
	m, err := Generate(prog, types.NewTable(), nil, Options{})
	if m != nil || err == nil || !IsMalformed(err) {
		t.Fatalf("expected malformed input error, got %v", err)
	}
	if _, err := Generate(nil, types.NewTable(), nil, Options{}); !IsMalformed(err) {
		t.Fatalf("nil program should be malformed, got %v", err)
	}
}

func TestAnonymousFunctionsTakeBindingName(t *testing.T) {
	prog := tk.Program(
		tk.Var(ast.VarVar, "handler", tk.Func(tk.Fn("", nil))),
		tk.Expr(tk.Call(tk.Func(tk.Fn("", nil)))),
	)
	m, _ := generate(t, prog)
	mustFunc(t, m, "handler")
	mustFunc(t, m, "anonymous")
}

func TestCollectAliases(t *testing.T) {
	prog := tk.Program(
		ast.Stmt{Data: &ast.STypeAlias{Name: "A", Value: ast.Type{Data: &ast.TUnion{Members: []ast.Type{
			{Data: &ast.TPrimitive{Kind: ast.PrimNumber}},
			{Data: &ast.TNullable{Inner: ast.Type{Data: &ast.TRef{Name: "B"}}}},
		}}}}},
		tk.Block(ast.Stmt{Data: &ast.STypeAlias{Name: "B", Value: ast.Type{Data: &ast.TArray{
			Elem: ast.Type{Data: &ast.TPrimitive{Kind: ast.PrimString}},
		}}}}),
	)
	defs := CollectAliases(prog)
	if len(defs) != 2 || defs[0].Name != "A" || defs[1].Name != "B" {
		t.Fatalf("unexpected aliases %+v", defs)
	}
	a := defs[0].Def
	if a.Kind != types.DefUnion || len(a.Members) != 2 {
		t.Fatalf("A should be a two-member union")
	}
	nullable := a.Members[1]
	if nullable.Kind != types.DefUnion || len(nullable.Members) != 3 || nullable.Members[0].Ref != "B" {
		t.Fatalf("?B should expand to B|null|undefined")
	}
	if defs[1].Def.Kind != types.DefArray || defs[1].Def.Elem.Prim != types.KindString {
		t.Fatalf("B should be string[]")
	}
}
