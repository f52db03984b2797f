package types

import (
	"fmt"
	"io"
	"strings"
)

// Ref is the short reference form used inside dumps: the primitive name
// or %t.N.
func (t *Table) Ref(id TypeID) string {
	tt, ok := t.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	if tt.Kind.IsPrimitive() {
		return tt.Kind.String()
	}
	return fmt.Sprintf("%%t.%d", id)
}

// String renders id for instruction and signature annotations, e.g.
// "number|bigint" or "string[]". A type reached again through its own
// definition is printed by reference.
func (t *Table) String(id TypeID) string {
	var b strings.Builder
	t.write(&b, id, nil)
	return b.String()
}

func (t *Table) write(b *strings.Builder, id TypeID, stack []TypeID) {
	tt, ok := t.Lookup(id)
	if !ok {
		b.WriteString("<invalid>")
		return
	}
	for _, s := range stack {
		if s == id {
			b.WriteString(t.Ref(id))
			return
		}
	}
	stack = append(stack, id)
	switch tt.Kind {
	case KindArray:
		elem := t.MustLookup(tt.Elem)
		if elem.Kind == KindUnion {
			b.WriteByte('(')
			t.write(b, tt.Elem, stack)
			b.WriteByte(')')
		} else {
			t.write(b, tt.Elem, stack)
		}
		b.WriteString("[]")
	case KindUnion:
		for i, m := range tt.Members {
			if i > 0 {
				b.WriteByte('|')
			}
			t.write(b, m, stack)
		}
	case KindAlias:
		b.WriteString(tt.Name)
	default:
		b.WriteString(tt.Kind.String())
	}
}

// Dump writes every non-primitive entry, one per line:
//
//	%t.9 = array %t.10
//	%t.10 = union number | %t.9
//	alias A = %t.10
func (t *Table) Dump(w io.Writer) error {
	for i := range t.types {
		id := TypeID(i) // #nosec G115 -- bounded by reserve
		tt := t.types[i]
		var err error
		switch tt.Kind {
		case KindArray:
			_, err = fmt.Fprintf(w, "%s = array %s\n", t.Ref(id), t.Ref(tt.Elem))
		case KindUnion:
			refs := make([]string, len(tt.Members))
			for j, m := range tt.Members {
				refs[j] = t.Ref(m)
			}
			_, err = fmt.Fprintf(w, "%s = union %s\n", t.Ref(id), strings.Join(refs, " | "))
		case KindAlias:
			_, err = fmt.Fprintf(w, "alias %s = %s\n", tt.Name, t.Ref(tt.Elem))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
