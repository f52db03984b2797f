package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeUnit, false},
		{LevelDetail, ScopeUnit, true},
		{LevelDetail, ScopeFunction, false},
		{LevelDebug, ScopeFunction, true},
	}
	for _, c := range cases {
		if got := c.level.ShouldEmit(c.scope); got != c.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", c.level, c.scope, got, c.want)
		}
	}
}

func TestStreamTextOutput(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	root := Begin(tr, ScopeDriver, "compile", 0)
	pass := Begin(tr, ScopePass, "opt", root.ID())
	pass.WithExtra("merged", "2").WithExtra("folded", "1")
	pass.End("")
	fn := Begin(tr, ScopeFunction, "fn:foo", pass.ID())
	fn.End("hidden")
	root.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[2], "  ← opt {folded=1, merged=2}") {
		t.Fatalf("unexpected pass end line %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "← compile (ok)") {
		t.Fatalf("unexpected root end line %q", lines[3])
	}
}

func TestNDJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopePass, "irgen", 0).End("")
	out := buf.String()
	if !strings.Contains(out, `"kind":"begin"`) || !strings.Contains(out, `"name":"irgen"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestRingWrapsAround(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(r, ScopePass, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestContextDefaults(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context should yield Nop")
	}
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	ctx := WithTracer(context.Background(), tr)
	s := Begin(FromContext(ctx), ScopeDriver, "x", 0)
	ctx = WithSpan(ctx, s)
	if CurrentSpan(ctx) != s.ID() || s.ID() == 0 {
		t.Fatal("span id not propagated")
	}
	if Begin(Nop, ScopeDriver, "y", 0).End("") != 0 {
		t.Fatal("nop span should report zero duration")
	}
}

func TestParse(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("bad level accepted")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}

func TestRingOf(t *testing.T) {
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := RingOf(tr); !ok {
		t.Fatal("both mode should carry a ring")
	}
	if _, ok := RingOf(Nop); ok {
		t.Fatal("nop has no ring")
	}
}
