package types

import (
	"fmt"
	"slices"
)

// Entry is the flat form of one table slot, used by the IR handoff
// format. Key is the structural key the slot was interned under.
type Entry struct {
	Kind    Kind     `msgpack:"k"`
	Elem    TypeID   `msgpack:"e,omitempty"`
	Members []TypeID `msgpack:"m,omitempty"`
	Name    string   `msgpack:"n,omitempty"`
	Key     string   `msgpack:"key"`
}

// Entries snapshots every slot after the invalid sentinel, in id order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.types)-1)
	for i := 1; i < len(t.types); i++ {
		tt := t.types[i]
		out = append(out, Entry{
			Kind:    tt.Kind,
			Elem:    tt.Elem,
			Members: slices.Clone(tt.Members),
			Name:    tt.Name,
			Key:     t.keys[i],
		})
	}
	return out
}

// FromEntries rebuilds a table with the same ids. The primitives must
// occupy their usual slots.
func FromEntries(entries []Entry) (*Table, error) {
	t := NewTable()
	for i, e := range entries {
		id := TypeID(i + 1) // #nosec G115 -- len checked by reserve
		if int(id) < t.Len() {
			if got := t.types[id]; got.Kind != e.Kind || t.keys[id] != e.Key {
				return nil, fmt.Errorf("types: entry %d: expected primitive %s, got %s", id, got.Kind, e.Kind)
			}
			continue
		}
		if _, dup := t.index[e.Key]; dup {
			return nil, fmt.Errorf("types: entry %d: duplicate key %q", id, e.Key)
		}
		t.reserve(e.Key)
		t.types[id] = Type{Kind: e.Kind, Elem: e.Elem, Members: slices.Clone(e.Members), Name: e.Name}
		if e.Kind == KindAlias {
			t.aliases[e.Name] = id
		}
	}
	n := TypeID(t.Len()) // #nosec G115 -- bounded by reserve
	for i := 1; i < t.Len(); i++ {
		tt := t.types[i]
		refs := tt.Members
		if tt.Kind == KindArray || tt.Kind == KindAlias {
			refs = []TypeID{tt.Elem}
		}
		for _, r := range refs {
			if r == NoTypeID || r >= n {
				return nil, fmt.Errorf("types: entry %d refers to unknown id %d", i, r)
			}
		}
	}
	for i := 1; i < t.Len(); i++ {
		t.recordShape(TypeID(i)) // #nosec G115 -- bounded by reserve
	}
	return t, nil
}
