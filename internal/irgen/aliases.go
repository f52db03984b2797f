package irgen

import (
	"ember/internal/ast"
	"ember/internal/types"
)

var primKinds = [...]types.Kind{
	ast.PrimUndefined: types.KindUndefined,
	ast.PrimNull:      types.KindNull,
	ast.PrimBoolean:   types.KindBoolean,
	ast.PrimString:    types.KindString,
	ast.PrimNumber:    types.KindNumber,
	ast.PrimBigInt:    types.KindBigInt,
	ast.PrimObject:    types.KindObject,
	ast.PrimAny:       types.KindAny,
}

// CollectAliases gathers every `type` declaration of prog, wherever it is
// nested, in source order.
func CollectAliases(prog *ast.Program) []types.AliasDef {
	var out []types.AliasDef
	var walk func(list []ast.Stmt)
	walkStmt := func(s ast.Stmt) { walk([]ast.Stmt{s}) }
	walk = func(list []ast.Stmt) {
		for _, s := range list {
			switch n := s.Data.(type) {
			case *ast.STypeAlias:
				out = append(out, types.AliasDef{Name: n.Name, Def: typeDef(n.Value), Span: s.Span})
			case *ast.SBlock:
				walk(n.Stmts)
			case *ast.SIf:
				walkStmt(n.Yes)
				if n.No.Data != nil {
					walkStmt(n.No)
				}
			case *ast.SWhile:
				walkStmt(n.Body)
			case *ast.SDoWhile:
				walkStmt(n.Body)
			case *ast.SFor:
				walkStmt(n.Body)
			case *ast.SFunction:
				walk(n.Fn.Body)
			}
		}
	}
	walk(prog.Body)
	return out
}

func typeDef(t ast.Type) *types.Def {
	switch n := t.Data.(type) {
	case *ast.TPrimitive:
		k := types.KindAny
		if int(n.Kind) < len(primKinds) {
			k = primKinds[n.Kind]
		}
		return &types.Def{Kind: types.DefPrim, Prim: k, Span: t.Span}
	case *ast.TArray:
		return &types.Def{Kind: types.DefArray, Elem: typeDef(n.Elem), Span: t.Span}
	case *ast.TUnion:
		d := &types.Def{Kind: types.DefUnion, Span: t.Span}
		for _, m := range n.Members {
			d.Members = append(d.Members, typeDef(m))
		}
		return d
	case *ast.TRef:
		return &types.Def{Kind: types.DefRef, Ref: n.Name, Span: t.Span}
	case *ast.TNullable:
		return &types.Def{Kind: types.DefUnion, Span: t.Span, Members: []*types.Def{
			typeDef(n.Inner),
			{Kind: types.DefPrim, Prim: types.KindNull, Span: t.Span},
			{Kind: types.DefPrim, Prim: types.KindUndefined, Span: t.Span},
		}}
	}
	return &types.Def{Kind: types.DefPrim, Prim: types.KindAny, Span: t.Span}
}
