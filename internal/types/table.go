package types

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Table is the module-wide arena of canonical types. Entries are never
// changed once interned; ids are stable for the lifetime of the table.
type Table struct {
	types    []Type
	keys     []string
	index    map[string]TypeID
	shapes   map[string]TypeID
	aliases  map[string]TypeID
	builtins Builtins
	frozen   bool
}

// NewTable creates a table seeded with the primitives.
func NewTable() *Table {
	t := &Table{
		index:   make(map[string]TypeID, 64),
		shapes:  make(map[string]TypeID, 64),
		aliases: make(map[string]TypeID),
	}
	t.types = append(t.types, Type{Kind: KindInvalid})
	t.keys = append(t.keys, "")
	t.builtins = Builtins{
		Undefined: t.primitive(KindUndefined),
		Null:      t.primitive(KindNull),
		Boolean:   t.primitive(KindBoolean),
		String:    t.primitive(KindString),
		Number:    t.primitive(KindNumber),
		BigInt:    t.primitive(KindBigInt),
		Object:    t.primitive(KindObject),
		Any:       t.primitive(KindAny),
	}
	return t
}

func (t *Table) primitive(k Kind) TypeID {
	return t.intern(Type{Kind: k}, k.String())
}

func (t *Table) Builtins() Builtins {
	return t.builtins
}

// Len is the number of entries including the invalid sentinel.
func (t *Table) Len() int {
	return len(t.types)
}

// Freeze makes the table read-only. Looking up existing shapes keeps
// working; interning a new one panics.
func (t *Table) Freeze() {
	t.frozen = true
}

func (t *Table) Frozen() bool {
	return t.frozen
}

func (t *Table) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(t.types) {
		return Type{}, false
	}
	return t.types[id], true
}

func (t *Table) MustLookup(id TypeID) Type {
	tt, ok := t.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Key returns the structural key id was interned under.
func (t *Table) Key(id TypeID) string {
	return t.keys[id]
}

// Resolve follows alias entries to their target.
func (t *Table) Resolve(id TypeID) TypeID {
	for range len(t.types) {
		tt, ok := t.Lookup(id)
		if !ok || tt.Kind != KindAlias {
			return id
		}
		id = tt.Elem
	}
	panic("types: alias chain does not terminate")
}

// Alias returns the alias entry bound to name.
func (t *Table) Alias(name string) (TypeID, bool) {
	id, ok := t.aliases[name]
	return id, ok
}

// AliasNames lists bound alias names in sorted order.
func (t *Table) AliasNames() []string {
	names := make([]string, 0, len(t.aliases))
	for name := range t.aliases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Is reports whether id (after alias resolution) is the given primitive.
func (t *Table) Is(id TypeID, k Kind) bool {
	tt, ok := t.Lookup(t.Resolve(id))
	return ok && tt.Kind == k
}

// Array interns elem[].
func (t *Table) Array(elem TypeID) TypeID {
	elem = t.Resolve(elem)
	return t.internShape(Type{Kind: KindArray, Elem: elem}, func() string { return arrayKey(t.keys[elem]) })
}

// Union interns the union of ids: nested unions are flattened, duplicates
// dropped, members sorted, and a single remaining member is returned as
// is. `any` absorbs everything. An empty call yields NoTypeID.
func (t *Table) Union(ids ...TypeID) TypeID {
	var members []TypeID
	for _, id := range ids {
		if id == NoTypeID {
			continue
		}
		id = t.Resolve(id)
		tt := t.MustLookup(id)
		switch tt.Kind {
		case KindAny:
			return t.builtins.Any
		case KindUnion:
			members = append(members, tt.Members...)
		default:
			members = append(members, id)
		}
	}
	t.sortMembers(members)
	members = slices.Compact(members)
	switch len(members) {
	case 0:
		return NoTypeID
	case 1:
		return members[0]
	}
	return t.internShape(Type{Kind: KindUnion, Members: members}, func() string {
		keys := make([]string, len(members))
		for i, m := range members {
			keys[i] = t.keys[m]
		}
		return unionKey(keys)
	})
}

// Members returns the union members of id, or id itself.
func (t *Table) Members(id TypeID) []TypeID {
	id = t.Resolve(id)
	tt := t.MustLookup(id)
	if tt.Kind == KindUnion {
		return tt.Members
	}
	return []TypeID{id}
}

// Subset reports whether every member of a is also a member of b.
func (t *Table) Subset(a, b TypeID) bool {
	if t.Is(b, KindAny) {
		return true
	}
	bm := t.Members(b)
	for _, m := range t.Members(a) {
		if !slices.Contains(bm, m) {
			return false
		}
	}
	return true
}

// DefineAlias binds name to target.
func (t *Table) DefineAlias(name string, target TypeID) TypeID {
	target = t.Resolve(target)
	id := t.intern(Type{Kind: KindAlias, Elem: target, Name: name}, "alias "+name+"="+t.keys[target])
	t.aliases[name] = id
	return id
}

// sortMembers orders by kind first, then by structural key.
func (t *Table) sortMembers(ids []TypeID) {
	slices.SortFunc(ids, func(a, b TypeID) int {
		if c := cmp.Compare(t.types[a].Kind, t.types[b].Kind); c != 0 {
			return c
		}
		return strings.Compare(t.keys[a], t.keys[b])
	})
}

func (t *Table) intern(tt Type, key string) TypeID {
	if id, ok := t.index[key]; ok {
		return id
	}
	id := t.reserve(key)
	t.types[id] = tt
	return id
}

// internShape interns an array or union by its children's ids first. A
// recursive type reached through one of its own members has a structural
// key rooted elsewhere, so the key alone would not find it.
func (t *Table) internShape(tt Type, key func() string) TypeID {
	sk := shapeKey(tt)
	if id, ok := t.shapes[sk]; ok {
		return id
	}
	id := t.intern(tt, key())
	t.shapes[sk] = id
	return id
}

// recordShape indexes an entry filled in place by the normalizer or a
// decoder.
func (t *Table) recordShape(id TypeID) {
	tt := t.types[id]
	if tt.Kind != KindArray && tt.Kind != KindUnion {
		return
	}
	if _, ok := t.shapes[shapeKey(tt)]; !ok {
		t.shapes[shapeKey(tt)] = id
	}
}

// shapeKey identifies an entry by kind and child ids. Members are already
// in table order.
func shapeKey(tt Type) string {
	if tt.Kind == KindArray {
		return "a" + strconv.FormatUint(uint64(tt.Elem), 10)
	}
	var sb strings.Builder
	sb.WriteByte('u')
	for _, m := range tt.Members {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(uint64(m), 10))
	}
	return sb.String()
}

// reserve allocates an id for key; the entry is filled by the caller.
func (t *Table) reserve(key string) TypeID {
	if t.frozen {
		panic(fmt.Sprintf("types: interning %q into a frozen table", key))
	}
	n, err := safecast.Conv[uint32](len(t.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	t.types = append(t.types, Type{})
	t.keys = append(t.keys, key)
	t.index[key] = id
	return id
}

func arrayKey(elem string) string {
	return "[" + elem + "]"
}

// unionKey sorts member keys lexically so the key does not depend on the
// order members were collected in.
func unionKey(keys []string) string {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	return "(" + strings.Join(keys, "|") + ")"
}
