package irgen

import (
	"ember/internal/ast"
	"ember/internal/ir"
	"ember/internal/source"
)

const protoKey = "__proto__"

// setsPrototype reports a `__proto__: value` entry. The shorthand form
// `{__proto__}` is an ordinary own property.
func setsPrototype(p *ast.Property) bool {
	return p.Kind == ast.PropertyInit && !p.Computed && !p.Shorthand && p.Key == protoKey
}

// object lowers an object literal. Literals whose keys are all plain,
// distinct and static become one AllocObjectLiteralInst; everything else
// allocates an empty object and stores each property in source order.
func (g *generator) object(n *ast.EObject, sp source.Span) ir.Value {
	props := n.Properties
	if len(props) == 0 {
		g.b.Span = sp
		return g.b.CreateAllocObject(0, nil)
	}

	// Occurrence counts of static own keys decide which stores create a
	// property and which overwrite one.
	counts := make(map[string]int, len(props))
	size := 0
	fast := true
	for i := range props {
		p := &props[i]
		switch {
		case setsPrototype(p):
			fast = false
			continue
		case p.Computed:
			fast = false
			size++
			continue
		case p.Kind != ast.PropertyInit:
			fast = false
		}
		if counts[p.Key] == 0 {
			size++
		} else {
			fast = false
		}
		counts[p.Key]++
	}

	if fast {
		pairs := make([]ir.Value, 0, 2*len(props))
		for i := range props {
			p := &props[i]
			v := g.exprNamed(p.Value, p.Key)
			pairs = append(pairs, g.m.Str(p.Key), v)
		}
		g.b.Span = sp
		return g.b.CreateAllocObjectLiteral(pairs...)
	}

	start := 0
	var parent ir.Value
	if setsPrototype(&props[0]) {
		parent = g.expr(props[0].Value)
		start = 1
	}
	g.b.Span = sp
	obj := g.b.CreateAllocObject(size, parent)

	seen := make(map[string]int, len(counts))
	accessors := make(map[string]bool)
	for i := start; i < len(props); i++ {
		p := &props[i]
		switch {
		case setsPrototype(p):
			v := g.expr(p.Value)
			g.b.Span = p.Span
			g.b.CreateCallBuiltin(ir.BuiltinSilentSetPrototypeOf, obj, v)
		case p.Computed:
			key := g.expr(p.KeyExpr)
			if p.Kind != ast.PropertyInit {
				getter, setter := g.accessorPair([]*ast.Property{p}, "")
				g.b.Span = p.Span
				g.b.CreateStoreGetterSetter(getter, setter, obj, key)
				continue
			}
			v := g.expr(p.Value)
			g.b.Span = p.Span
			g.b.CreateStoreOwnProperty(v, obj, key)
		case p.Kind != ast.PropertyInit:
			if accessors[p.Key] {
				continue
			}
			accessors[p.Key] = true
			var group []*ast.Property
			for j := i; j < len(props); j++ {
				q := &props[j]
				if !q.Computed && q.Kind != ast.PropertyInit && q.Key == p.Key {
					group = append(group, q)
				}
			}
			seen[p.Key]++
			getter, setter := g.accessorPair(group, p.Key)
			g.b.Span = p.Span
			g.b.CreateStoreGetterSetter(getter, setter, obj, g.m.Str(p.Key))
		default:
			v := g.exprNamed(p.Value, p.Key)
			key := g.m.Str(p.Key)
			g.b.Span = p.Span
			seen[p.Key]++
			switch {
			case counts[p.Key] == 1:
				g.b.CreateStoreNewOwnProperty(v, obj, key)
			case seen[p.Key] == 1:
				// Reserve the slot in source order; a later entry
				// supplies the value.
				g.b.CreateStoreNewOwnProperty(g.m.Null(), obj, key)
			default:
				g.b.CreateStoreOwnProperty(v, obj, key)
			}
		}
	}
	return obj
}

// accessorPair lowers the getter and setter of one key; the last
// definition of each wins and a missing half is undefined.
func (g *generator) accessorPair(group []*ast.Property, key string) (getter, setter ir.Value) {
	getter, setter = g.m.Undefined(), g.m.Undefined()
	for _, p := range group {
		hint := ""
		if key != "" {
			hint = accessorPrefix(p.Kind) + key
		}
		v := g.exprNamed(p.Value, hint)
		if p.Kind == ast.PropertyGet {
			getter = v
		} else {
			setter = v
		}
	}
	return getter, setter
}

func accessorPrefix(k ast.PropertyKind) string {
	if k == ast.PropertyGet {
		return "get_"
	}
	return "set_"
}
