package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	clock := time.Unix(0, 0)
	tm := NewTimer()
	tm.now = func() time.Time { return clock }

	a := tm.Begin("irgen")
	clock = clock.Add(2 * time.Millisecond)
	tm.End(a, "3 functions")
	b := tm.Begin("opt")
	clock = clock.Add(500 * time.Microsecond)
	tm.End(b, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].DurationMS != 2 || r.Phases[1].DurationMS != 0.5 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.TotalMS != 2.5 {
		t.Fatalf("total %v, want 2.5", r.TotalMS)
	}
	sum := tm.Summary()
	if !strings.Contains(sum, "irgen") || !strings.Contains(sum, "// 3 functions") || !strings.Contains(sum, "2.50 ms") {
		t.Fatalf("unexpected summary:\n%s", sum)
	}
}
