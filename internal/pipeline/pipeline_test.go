package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ember/internal/config"
	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/testkit"
	"ember/internal/trace"
)

const fooJSON = `{
  "type": "Program", "range": [0, 60],
  "body": [{
    "type": "FunctionDeclaration", "range": [0, 60],
    "id": {"type": "Identifier", "name": "foo", "range": [9, 12]},
    "params": [{"type": "Identifier", "name": "dim", "range": [13, 16]}],
    "body": {"type": "BlockStatement", "range": [17, 60], "body": [
      {"type": "VariableDeclaration", "kind": "var", "range": [18, 36], "declarations": [{
        "type": "VariableDeclarator", "range": [22, 35],
        "id": {"type": "Identifier", "name": "a", "range": [22, 23]},
        "init": {"type": "BinaryExpression", "operator": "==", "range": [25, 35],
          "left": {"type": "Identifier", "name": "dim", "range": [25, 28]},
          "right": {"type": "Identifier", "name": "dim", "range": [32, 35]}}
      }]},
      {"type": "VariableDeclaration", "kind": "var", "range": [36, 50], "declarations": [{
        "type": "VariableDeclarator", "range": [40, 49],
        "id": {"type": "Identifier", "name": "b", "range": [40, 41]},
        "init": {"type": "BinaryExpression", "operator": "==", "range": [42, 49],
          "left": {"type": "Identifier", "name": "dim", "range": [42, 45]},
          "right": {"type": "Identifier", "name": "dim", "range": [46, 49]}}
      }]},
      {"type": "ReturnStatement", "range": [50, 59],
        "argument": {"type": "BinaryExpression", "operator": "+", "range": [57, 58],
          "left": {"type": "Identifier", "name": "a", "range": [57, 58]},
          "right": {"type": "Identifier", "name": "b", "range": [57, 58]}}}
    ]}
  }]
}`

const genJSON = `{"type":"Program","body":[{"type":"FunctionDeclaration","generator":true,
  "id":{"type":"Identifier","name":"g"},"params":[],
  "body":{"type":"BlockStatement","body":[
    {"type":"ExpressionStatement","expression":
      {"type":"YieldExpression","argument":{"type":"Literal","value":1}}}]}}]}`

const badJSON = `{"type":"Program","body":[{"type":"ClassDeclaration","range":[3,9]}]}`

func countOperator(f *ir.Function, op ir.Opcode, operator string) int {
	n := 0
	f.ForEachInstr(func(in *ir.Instr) {
		if in.Op == op && in.Operator == operator {
			n++
		}
	})
	return n
}

func TestCompileRunsEveryStage(t *testing.T) {
	res, err := Compile(context.Background(), Unit{Path: "foo.json", Data: []byte(fooJSON)}, config.Default())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	foo := res.Module.Function("foo")
	if foo == nil {
		t.Fatalf("missing foo in\n%s", res.Module)
	}
	if n := countOperator(foo, ir.BinaryOperatorInst, "=="); n != 1 {
		t.Fatalf("want the comparisons merged into one, got %d", n)
	}
	var names []string
	for _, p := range res.Timing.Phases() {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "decode,types,irgen,lower,optimize,validate" {
		t.Fatalf("unexpected phases %s", got)
	}
	if err := testkit.CheckSpanInvariants(res.Module, res.Files.Get(res.File)); err != nil {
		t.Fatal(err)
	}
	if res.Discarded {
		t.Fatal("optimized IR should validate")
	}
}

func TestCompileWithoutOptimizer(t *testing.T) {
	cfg := config.Default()
	cfg.Compile.Optimize = false
	cfg.Compile.Debug = true
	res, err := Compile(context.Background(), Unit{Path: "foo.json", Data: []byte(fooJSON)}, cfg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if n := countOperator(res.Module.Function("foo"), ir.BinaryOperatorInst, "=="); n != 2 {
		t.Fatalf("want both comparisons kept, got %d", n)
	}
}

func TestCompileLowersGenerators(t *testing.T) {
	res, err := Compile(context.Background(), Unit{Path: "g.json", Data: []byte(genJSON)}, config.Default())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	inner := res.Module.Function("g$inner")
	if inner == nil || inner.StateMachine == nil {
		t.Fatalf("expected a state machine in\n%s", res.Module)
	}
}

func TestCompileMalformedAborts(t *testing.T) {
	res, err := Compile(context.Background(), Unit{Path: "bad.json", Data: []byte(badJSON)}, config.Default())
	if err == nil || res.Module != nil {
		t.Fatalf("expected abort, got module %v err %v", res.Module, err)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.IRGUnknownNode {
		t.Fatalf("unexpected diagnostics %+v", items)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last(file string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ev Event
	for _, e := range s.events {
		if e.File == file {
			ev = e
		}
	}
	return ev
}

func TestCompileBatchIsolatesFailures(t *testing.T) {
	units := []Unit{
		{Path: "foo.json", Data: []byte(fooJSON)},
		{Path: "bad.json", Data: []byte(badJSON)},
		{Path: "g.json", Data: []byte(genJSON)},
	}
	sink := &recordingSink{}
	out, err := CompileBatch(context.Background(), units, config.Default(), 2, sink)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if out.Errs[0] != nil || out.Errs[2] != nil || out.Errs[1] == nil {
		t.Fatalf("unexpected errors %v", out.Errs)
	}
	if out.Results[0].Module.Types == out.Results[2].Module.Types {
		t.Fatal("units must not share a type table")
	}
	if ev := sink.last("foo.json"); ev.Status != StatusDone {
		t.Fatalf("foo.json ended with %+v", ev)
	}
	if ev := sink.last("bad.json"); ev.Status != StatusError || ev.Stage != StageDecode {
		t.Fatalf("bad.json ended with %+v", ev)
	}
	if out.Err() == nil {
		t.Fatal("joined error should report bad.json")
	}
}

func TestCompileBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompileBatch(ctx, []Unit{{Path: "foo.json", Data: []byte(fooJSON)}}, config.Default(), 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestOptimizerStatsAreTraced(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelPhase, trace.FormatText)
	ctx := trace.WithTracer(context.Background(), tr)
	if _, err := Compile(ctx, Unit{Path: "foo.json", Data: []byte(fooJSON)}, config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "← optimize {") || !strings.Contains(out, "merged=") {
		t.Fatalf("optimizer stats missing from trace:\n%s", out)
	}
}

func TestLoadUnitPicksUpSiblingScript(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"a.js.json": "{}",
		"a.js":      "var a;",
		"b.json":    "{}",
		"b.js":      "var b;",
		"c.json":    "{}",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	for file, want := range map[string]string{"a.js.json": "var a;", "b.json": "var b;", "c.json": ""} {
		u, err := LoadUnit(filepath.Join(dir, file))
		if err != nil {
			t.Fatal(err)
		}
		if string(u.Script) != want {
			t.Fatalf("%s: script %q, want %q", file, u.Script, want)
		}
	}
	if _, err := LoadUnit(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestCorpusCompiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "*.json"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("no corpus files: %v", err)
	}
	for _, p := range paths {
		u, err := LoadUnit(p)
		if err != nil {
			t.Fatal(err)
		}
		res, err := Compile(context.Background(), u, config.Default())
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if err := ir.Validate(res.Module); err != nil {
			t.Fatalf("%s: %v", p, err)
		}
	}
}
