package ui

import (
	"strings"
	"testing"

	"ember/internal/pipeline"
)

func TestProgressFollowsEvents(t *testing.T) {
	m := NewProgressModel("compiling", []string{"a.json", "b.json"}, nil).(*progressModel)
	m.apply(pipeline.Event{File: "a.json", Stage: pipeline.StageLower, Status: pipeline.StatusWorking})
	m.apply(pipeline.Event{File: "b.json", Stage: pipeline.StageDecode, Status: pipeline.StatusError})

	if m.units[0].status != "lower" || m.units[1].status != "error" {
		t.Fatalf("unexpected rows %+v", m.units)
	}
	if got := m.fraction(); got != (0.6+1)/2 {
		t.Fatalf("fraction %v", got)
	}
	m.apply(pipeline.Event{File: "a.json", Status: pipeline.StatusDone})
	finished, failed := m.counts()
	if finished != 2 || failed != 1 {
		t.Fatalf("counts %d/%d", finished, failed)
	}
	if view := m.View(); !strings.Contains(view, "compiling 2/2, 1 failed") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestProgressIgnoresUnknownFiles(t *testing.T) {
	m := NewProgressModel("x", []string{"a.json"}, nil).(*progressModel)
	if cmd := m.apply(pipeline.Event{File: "zzz.json", Status: pipeline.StatusDone}); cmd != nil {
		t.Fatal("unknown file should be ignored")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("internal/pipeline/compile.json", 12); got != "intern..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
