package diag

import (
	"testing"

	"ember/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("sample.js", []byte("a\nb\n"))

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     TypeNoBaseCase,
			Message:  "alias T\nnever terminates",
			Primary:  source.Span{File: file, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     SemaInvalidConstruct,
			Message:  "cannot construct a literal",
			Primary:  source.Span{File: file, Start: 0, End: 1},
			Notes:    []Note{{Span: source.Span{File: file, Start: 2, End: 2}, Msg: "declared here"}},
		},
	}

	want := "error SEM3102 sample.js:1:1 cannot construct a literal\n" +
		"note SEM3102 sample.js:2:1 declared here\n" +
		"warning TYP5001 sample.js:2:1 alias T never terminates"
	if got := FormatGoldenDiagnostics(diags, fs, true); got != want {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	ReportWarning(r, TypeNoBaseCase, source.Span{Start: 9, End: 10}, "late").Emit()
	ReportError(r, SemaDeleteBinding, source.Span{Start: 1, End: 2}, "early").Emit()
	ReportError(r, SemaError, source.Span{Start: 0, End: 1}, "over the limit").Emit()

	if bag.Len() != 2 || bag.Dropped() != 1 {
		t.Fatalf("expected 2 kept and 1 dropped, got %d/%d", bag.Len(), bag.Dropped())
	}
	bag.Sort()
	if bag.Items()[0].Message != "early" {
		t.Fatalf("expected sorted by offset, got %q first", bag.Items()[0].Message)
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{Start: 3, End: 4}
	for range 3 {
		r.Report(OptWithheld, SevInfo, sp, "same", nil)
	}
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
}

func TestCodeID(t *testing.T) {
	cases := map[Code]string{
		SemaDeleteBinding: "SEM3101",
		IRGMalformedNode:  "IRG4001",
		IOLoadFileError:   "IO4100",
		TypeNoBaseCase:    "TYP5001",
		OptWithheld:       "OPT6001",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Fatalf("code %d: want %s, got %s", code, want, got)
		}
	}
}
