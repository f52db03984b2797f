package types

import (
	"strings"
	"testing"

	"ember/internal/diag"
)

func prim(k Kind) *Def { return &Def{Kind: DefPrim, Prim: k} }
func arr(elem *Def) *Def { return &Def{Kind: DefArray, Elem: elem} }
func ref(name string) *Def { return &Def{Kind: DefRef, Ref: name} }
func union(ms ...*Def) *Def { return &Def{Kind: DefUnion, Members: ms} }
func alias(name string, d *Def) AliasDef { return AliasDef{Name: name, Def: d} }

// type A = B[] | B[] | number; type B = A[] | number;
func mutualAliases() (a, b AliasDef) {
	a = alias("A", union(arr(ref("B")), arr(ref("B")), prim(KindNumber)))
	b = alias("B", union(arr(ref("A")), prim(KindNumber)))
	return a, b
}

func TestNormalizeMutualRecursionShareIDs(t *testing.T) {
	tab := NewTable()
	a, b := mutualAliases()
	ids := Normalize(tab, []AliasDef{a, b}, nil)
	if ids["A"] != ids["B"] {
		t.Fatalf("structurally identical aliases must share an id: A=%d B=%d", ids["A"], ids["B"])
	}
	u := tab.MustLookup(ids["A"])
	if u.Kind != KindUnion || len(u.Members) != 2 {
		t.Fatalf("expected a 2-member union, got %+v", u)
	}
	if u.Members[0] != tab.Builtins().Number {
		t.Fatalf("number must sort before array, got %s", tab.String(ids["A"]))
	}
	elem := tab.MustLookup(u.Members[1])
	if elem.Kind != KindArray || elem.Elem != ids["A"] {
		t.Fatalf("expected array of the union itself, got %+v", elem)
	}
}

func TestNormalizeOrderIndependent(t *testing.T) {
	a, b := mutualAliases()
	t1, t2 := NewTable(), NewTable()
	ids1 := Normalize(t1, []AliasDef{a, b}, nil)
	ids2 := Normalize(t2, []AliasDef{b, a}, nil)
	if ids1["A"] != ids2["A"] || ids1["B"] != ids2["B"] {
		t.Fatalf("ids depend on declaration order: %v vs %v", ids1, ids2)
	}
	var d1, d2 strings.Builder
	if err := t1.Dump(&d1); err != nil {
		t.Fatal(err)
	}
	if err := t2.Dump(&d2); err != nil {
		t.Fatal(err)
	}
	if d1.String() != d2.String() {
		t.Fatalf("tables differ:\n%s\nvs\n%s", d1.String(), d2.String())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tab := NewTable()
	a, b := mutualAliases()
	first := Normalize(tab, []AliasDef{a, b}, nil)
	size := tab.Len()
	second := Normalize(tab, []AliasDef{a, b}, nil)
	if first["A"] != second["A"] || first["B"] != second["B"] {
		t.Fatalf("re-normalization changed ids: %v vs %v", first, second)
	}
	if tab.Len() != size {
		t.Fatalf("re-normalization grew the table from %d to %d", size, tab.Len())
	}
}

func TestNormalizeDuplicateMembers(t *testing.T) {
	tab := NewTable()
	ids := Normalize(tab, []AliasDef{
		alias("C", union(prim(KindNumber), prim(KindNumber), prim(KindString))),
	}, nil)
	want := tab.Union(tab.Builtins().String, tab.Builtins().Number)
	if ids["C"] != want {
		t.Fatalf("number|number|string must equal string|number: %s vs %s", tab.String(ids["C"]), tab.String(want))
	}
	if got := tab.String(want); got != "string|number" {
		t.Fatalf("unexpected member order %q", got)
	}
}

func TestNormalizeNestedUnionsFlatten(t *testing.T) {
	tab := NewTable()
	ids := Normalize(tab, []AliasDef{
		alias("Inner", union(prim(KindBoolean), prim(KindNull))),
		alias("Outer", union(ref("Inner"), prim(KindNumber), union(prim(KindNull), prim(KindString)))),
	}, nil)
	u := tab.MustLookup(ids["Outer"])
	for _, m := range u.Members {
		if tab.MustLookup(m).Kind == KindUnion {
			t.Fatalf("union member must not be a union: %s", tab.String(ids["Outer"]))
		}
	}
	if got := tab.String(ids["Outer"]); got != "null|boolean|string|number" {
		t.Fatalf("unexpected flattening %q", got)
	}
}

func TestNormalizeSelfInclusionIsAbsorbed(t *testing.T) {
	tab := NewTable()
	ids := Normalize(tab, []AliasDef{alias("T", union(ref("T"), prim(KindString)))}, nil)
	if ids["T"] != tab.Builtins().String {
		t.Fatalf("T = T | string must be string, got %s", tab.String(ids["T"]))
	}
}

func TestNormalizeNoBaseCaseDegradesToAny(t *testing.T) {
	tab := NewTable()
	bag := diag.NewBag(10)
	ids := Normalize(tab, []AliasDef{
		alias("Loop", union(ref("Loop"), ref("Loop"))),
		alias("Fine", arr(prim(KindNumber))),
	}, diag.BagReporter{Bag: bag})
	if ids["Loop"] != tab.Builtins().Any {
		t.Fatalf("expected any, got %s", tab.String(ids["Loop"]))
	}
	if tab.String(ids["Fine"]) != "number[]" {
		t.Fatalf("unrelated alias affected: %s", tab.String(ids["Fine"]))
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.TypeNoBaseCase {
		t.Fatalf("expected one TYP5001 diagnostic, got %+v", bag.Items())
	}
}

func TestNormalizeUnknownAlias(t *testing.T) {
	tab := NewTable()
	bag := diag.NewBag(10)
	ids := Normalize(tab, []AliasDef{alias("X", arr(ref("Missing")))}, diag.BagReporter{Bag: bag})
	if tab.String(ids["X"]) != "any[]" {
		t.Fatalf("expected any[], got %s", tab.String(ids["X"]))
	}
	if !bag.HasErrors() {
		t.Fatalf("expected an unknown alias error")
	}
}

func TestNormalizeMatchesDirectInterning(t *testing.T) {
	tab := NewTable()
	b := tab.Builtins()
	direct := tab.Array(tab.Union(b.Number, b.BigInt))
	ids := Normalize(tab, []AliasDef{alias("N", arr(union(prim(KindBigInt), prim(KindNumber))))}, nil)
	if ids["N"] != direct {
		t.Fatalf("normalizer and Table.Array disagree: %d vs %d", ids["N"], direct)
	}
}

func TestFrozenTablePanicsOnNewShape(t *testing.T) {
	tab := NewTable()
	b := tab.Builtins()
	existing := tab.Union(b.Number, b.String)
	tab.Freeze()
	if got := tab.Union(b.String, b.Number); got != existing {
		t.Fatalf("lookup of an existing shape must keep working")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when interning into a frozen table")
		}
	}()
	tab.Union(b.Boolean, b.Null)
}

func TestRecursiveShapesKeepOneID(t *testing.T) {
	tab := NewTable()
	a, b := mutualAliases()
	ids := Normalize(tab, []AliasDef{a, b}, nil)
	u := tab.MustLookup(ids["A"])
	n := tab.Len()

	if got := tab.Array(ids["A"]); got != u.Members[1] {
		t.Fatalf("A[] = %d (%s), want the member %d (%s)", got, tab.Key(got), u.Members[1], tab.Key(u.Members[1]))
	}
	if got := tab.Union(u.Members[1], u.Members[0]); got != ids["A"] {
		t.Fatalf("union of A's members = %d (%s), want %d (%s)", got, tab.Key(got), ids["A"], tab.Key(ids["A"]))
	}
	if got := tab.Union(tab.Array(ids["B"]), tab.Builtins().Number); got != ids["B"] {
		t.Fatalf("B[]|number = %d, want %d", got, ids["B"])
	}
	if tab.Len() != n {
		t.Fatalf("table grew from %d to %d entries", n, tab.Len())
	}

	back, err := FromEntries(tab.Entries())
	if err != nil {
		t.Fatal(err)
	}
	if got := back.Array(ids["A"]); got != u.Members[1] {
		t.Fatalf("decoded table: A[] = %d, want %d", got, u.Members[1])
	}
}
