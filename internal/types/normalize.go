package types

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"ember/internal/diag"
	"ember/internal/source"
)

// DefKind tells what a Def spells.
type DefKind uint8

const (
	DefPrim DefKind = iota
	DefArray
	DefUnion
	DefRef
)

// Def is a type expression as written in an alias body.
type Def struct {
	Kind    DefKind
	Prim    Kind
	Elem    *Def
	Members []*Def
	Ref     string
	Span    source.Span
}

// AliasDef is one `type Name = Def` declaration.
type AliasDef struct {
	Name string
	Def  *Def
	Span source.Span
}

type nodeKind uint8

const (
	nodePrim nodeKind = iota
	nodeArray
	nodeUnion
	// nodeRef is an alias-reference edge created when an alias is
	// reached again while its own body is still being built.
	nodeRef
)

type node struct {
	kind    nodeKind
	prim    Kind
	elem    int
	members []int
	alias   int
}

type aliasState uint8

const (
	aliasUnvisited aliasState = iota
	aliasInProgress
	aliasDone
)

type normalizer struct {
	tab     *Table
	rep     diag.Reporter
	aliases []AliasDef
	byName  map[string]int
	state   []aliasState
	root    []int
	nodes   []node

	leaves  map[int][]int
	target  []int
	forward map[int]int
	class   map[int]int
}

// Normalize interns every alias of defs into tab and returns the canonical
// id each alias name denotes. Structurally identical definitions get the
// same id regardless of declaration order, and running Normalize again on
// the same table and definitions yields the same ids.
//
// Aliases that never reach a base case (e.g. `type T = T | T`) degrade to
// any and are reported through r.
func Normalize(tab *Table, defs []AliasDef, r diag.Reporter) map[string]TypeID {
	if r == nil {
		r = diag.NopReporter{}
	}
	n := &normalizer{
		tab:    tab,
		rep:    r,
		byName: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if _, dup := n.byName[d.Name]; dup {
			diag.ReportError(r, diag.TypeDuplicateAlias, d.Span, fmt.Sprintf("type alias %q is already declared", d.Name)).Emit()
			continue
		}
		n.byName[d.Name] = len(n.aliases)
		n.aliases = append(n.aliases, d)
	}
	n.state = make([]aliasState, len(n.aliases))
	n.root = make([]int, len(n.aliases))

	for i := range n.aliases {
		n.resolveAlias(i)
	}
	n.flatten()
	for {
		n.refine()
		if !n.collapse() {
			break
		}
	}
	return n.intern()
}

func (n *normalizer) add(nd node) int {
	n.nodes = append(n.nodes, nd)
	return len(n.nodes) - 1
}

func (n *normalizer) resolveAlias(i int) int {
	switch n.state[i] {
	case aliasDone:
		return n.root[i]
	case aliasInProgress:
		return n.add(node{kind: nodeRef, alias: i})
	}
	n.state[i] = aliasInProgress
	body := n.build(n.aliases[i].Def)
	n.root[i] = body
	n.state[i] = aliasDone
	return body
}

func (n *normalizer) build(d *Def) int {
	if d == nil {
		return n.add(node{kind: nodePrim, prim: KindAny})
	}
	switch d.Kind {
	case DefArray:
		elem := n.build(d.Elem)
		return n.add(node{kind: nodeArray, elem: elem})
	case DefUnion:
		members := make([]int, 0, len(d.Members))
		for _, m := range d.Members {
			members = append(members, n.build(m))
		}
		return n.add(node{kind: nodeUnion, members: members})
	case DefRef:
		i, ok := n.byName[d.Ref]
		if !ok {
			diag.ReportError(n.rep, diag.TypeUnknownAlias, d.Span, fmt.Sprintf("unknown type %q", d.Ref)).Emit()
			return n.add(node{kind: nodePrim, prim: KindAny})
		}
		return n.resolveAlias(i)
	}
	return n.add(node{kind: nodePrim, prim: d.Prim})
}

// collectLeaves gathers the non-union members reachable from x through
// union and alias-reference edges. A union that includes itself simply
// contributes nothing on the second visit.
func (n *normalizer) collectLeaves(x int) []int {
	var out []int
	seen := make(map[int]bool)
	var walk func(int)
	walk = func(y int) {
		if seen[y] {
			return
		}
		seen[y] = true
		nd := n.nodes[y]
		switch nd.kind {
		case nodeUnion:
			for _, m := range nd.members {
				walk(m)
			}
		case nodeRef:
			walk(n.root[nd.alias])
		default:
			out = append(out, y)
		}
	}
	walk(x)
	for _, y := range out {
		if nd := n.nodes[y]; nd.kind == nodePrim && nd.prim == KindAny {
			return []int{y}
		}
	}
	slices.Sort(out)
	return out
}

// flatten computes, for every node, the node that stands for it once
// unions are flattened and alias references resolved.
func (n *normalizer) flatten() {
	n.leaves = make(map[int][]int)
	n.target = make([]int, len(n.nodes))
	count := len(n.nodes)
	for x := range count {
		nd := n.nodes[x]
		if nd.kind == nodePrim || nd.kind == nodeArray {
			n.target[x] = x
			continue
		}
		leaves := n.collectLeaves(x)
		switch len(leaves) {
		case 0:
			n.target[x] = n.add(node{kind: nodePrim, prim: KindAny})
		case 1:
			n.target[x] = leaves[0]
		default:
			n.target[x] = x
			n.leaves[x] = leaves
		}
	}
	for i, root := range n.root {
		if len(n.collectLeaves(root)) == 0 && n.nodes[root].kind != nodePrim && n.nodes[root].kind != nodeArray {
			a := n.aliases[i]
			diag.ReportWarning(n.rep, diag.TypeNoBaseCase, a.Span,
				fmt.Sprintf("type alias %q never reaches a base case; using any", a.Name)).Emit()
		}
	}
}

func (n *normalizer) resolve(x int) int {
	if x < len(n.target) {
		x = n.target[x]
	}
	for {
		f, ok := n.forward[x]
		if !ok {
			return x
		}
		x = f
	}
}

func (n *normalizer) elemOf(x int) int {
	return n.resolve(n.nodes[x].elem)
}

func (n *normalizer) membersOf(x int) []int {
	out := make([]int, 0, len(n.leaves[x]))
	for _, m := range n.leaves[x] {
		out = append(out, n.resolve(m))
	}
	return out
}

// live returns every node reachable from an alias root, in index order.
func (n *normalizer) live() []int {
	seen := make(map[int]bool)
	var stack []int
	for _, r := range n.root {
		stack = append(stack, n.resolve(r))
	}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[x] {
			continue
		}
		seen[x] = true
		switch n.nodes[x].kind {
		case nodeArray:
			stack = append(stack, n.elemOf(x))
		case nodeUnion, nodeRef:
			stack = append(stack, n.membersOf(x)...)
		}
	}
	out := make([]int, 0, len(seen))
	for x := range seen {
		out = append(out, x)
	}
	slices.Sort(out)
	return out
}

// refine partitions the live nodes into bisimulation classes: two nodes
// share a class iff they have the same kind and their children fall into
// the same classes. Union members are compared as sets.
func (n *normalizer) refine() {
	nodes := n.live()
	n.class = make(map[int]int, len(nodes))
	ids := make(map[string]int)
	for _, x := range nodes {
		n.class[x] = classID(ids, n.shape(x))
	}
	for {
		next := make(map[int]int, len(nodes))
		ids = make(map[string]int)
		for _, x := range nodes {
			next[x] = classID(ids, strconv.Itoa(n.class[x])+";"+n.childClasses(x))
		}
		changed := len(ids) != countClasses(n.class)
		n.class = next
		if !changed {
			return
		}
	}
}

func classID(ids map[string]int, sig string) int {
	if id, ok := ids[sig]; ok {
		return id
	}
	id := len(ids)
	ids[sig] = id
	return id
}

func countClasses(class map[int]int) int {
	seen := make(map[int]struct{})
	for _, c := range class {
		seen[c] = struct{}{}
	}
	return len(seen)
}

func (n *normalizer) shape(x int) string {
	nd := n.nodes[x]
	switch nd.kind {
	case nodePrim:
		return nd.prim.String()
	case nodeArray:
		return "array"
	}
	return "union"
}

func (n *normalizer) childClasses(x int) string {
	switch n.nodes[x].kind {
	case nodeArray:
		return strconv.Itoa(n.class[n.elemOf(x)])
	case nodeUnion, nodeRef:
		return joinInts(n.memberClasses(x))
	}
	return ""
}

// memberClasses returns the sorted distinct classes of x's members.
func (n *normalizer) memberClasses(x int) []int {
	var cs []int
	for _, m := range n.membersOf(x) {
		cs = append(cs, n.class[m])
	}
	slices.Sort(cs)
	return slices.Compact(cs)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// collapse replaces unions whose members all turned out equivalent by
// that single member. It reports whether anything changed, in which case
// the partition must be refined again.
func (n *normalizer) collapse() bool {
	if n.forward == nil {
		n.forward = make(map[int]int)
	}
	changed := false
	for x := range n.leaves {
		if _, done := n.forward[x]; done {
			continue
		}
		if _, ok := n.class[x]; !ok {
			continue
		}
		if len(n.memberClasses(x)) == 1 {
			n.forward[x] = n.membersOf(x)[0]
			changed = true
		}
	}
	return changed
}

// intern assigns table ids to the classes. Ids are allocated in the order
// of the classes' canonical keys, which do not depend on declaration order.
func (n *normalizer) intern() map[string]TypeID {
	reps := make(map[int]int)
	for x, c := range n.class {
		if r, ok := reps[c]; !ok || x < r {
			reps[c] = x
		}
	}
	keys := make(map[int]string, len(reps))
	order := make([]int, 0, len(reps))
	for c := range reps {
		keys[c] = n.encode(reps, c, nil)
		order = append(order, c)
	}
	slices.SortFunc(order, func(a, b int) int { return strings.Compare(keys[a], keys[b]) })

	ids := make(map[int]TypeID, len(order))
	var fresh []int
	for _, c := range order {
		if id, ok := n.tab.index[keys[c]]; ok {
			ids[c] = id
			continue
		}
		ids[c] = n.tab.reserve(keys[c])
		fresh = append(fresh, c)
	}
	for _, c := range fresh {
		n.tab.types[ids[c]].Kind = n.kindOf(reps[c])
	}
	for _, c := range fresh {
		x := reps[c]
		tt := &n.tab.types[ids[c]]
		switch tt.Kind {
		case KindArray:
			tt.Elem = ids[n.class[n.elemOf(x)]]
		case KindUnion:
			for _, mc := range n.memberClasses(x) {
				tt.Members = append(tt.Members, ids[mc])
			}
			n.tab.sortMembers(tt.Members)
		}
	}
	for _, c := range fresh {
		n.tab.recordShape(ids[c])
	}

	out := make(map[string]TypeID, len(n.aliases))
	for i, a := range n.aliases {
		out[a.Name] = ids[n.class[n.resolve(n.root[i])]]
	}
	names := slices.Sorted(maps.Keys(out))
	for _, name := range names {
		n.tab.DefineAlias(name, out[name])
	}
	return out
}

func (n *normalizer) kindOf(x int) Kind {
	nd := n.nodes[x]
	switch nd.kind {
	case nodePrim:
		return nd.prim
	case nodeArray:
		return KindArray
	}
	return KindUnion
}

// encode renders the structure reachable from class c as seen from the
// root of the current walk. A class already on the walk's path is written
// as ^k, k being the distance back along the path, so cyclic types get a
// finite key. Keys of acyclic types coincide with the keys Table.Array and
// Table.Union produce.
func (n *normalizer) encode(reps map[int]int, c int, path []int) string {
	for i, p := range path {
		if p == c {
			return "^" + strconv.Itoa(len(path)-i)
		}
	}
	x := reps[c]
	switch n.kindOf(x) {
	case KindArray:
		return arrayKey(n.encode(reps, n.class[n.elemOf(x)], append(path, c)))
	case KindUnion:
		mcs := n.memberClasses(x)
		parts := make([]string, len(mcs))
		for i, mc := range mcs {
			parts[i] = n.encode(reps, mc, append(slices.Clip(path), c))
		}
		return unionKey(parts)
	}
	return n.kindOf(x).String()
}
