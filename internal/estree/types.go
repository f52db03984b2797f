package estree

import (
	"encoding/json"

	"ember/internal/ast"
	"ember/internal/diag"
)

func (d *decoder) typeAlias(n *rawNode) (*ast.STypeAlias, error) {
	id, err := d.raw(n.ID)
	if err != nil {
		return nil, err
	}
	body := n.Right
	if n.Type == "TSTypeAliasDeclaration" {
		body = n.TypeAnnotation
	}
	if isNull(body) {
		return nil, d.errorf(diag.IRGMissingField, d.span(n), "type alias %q without a body", id.Name)
	}
	t, err := d.typeNode(body)
	if err != nil {
		return nil, err
	}
	return &ast.STypeAlias{Name: ident(id.Name), Value: t}, nil
}

var primitiveTypes = map[string]ast.PrimitiveKind{
	"NumberTypeAnnotation":         ast.PrimNumber,
	"StringTypeAnnotation":         ast.PrimString,
	"BooleanTypeAnnotation":        ast.PrimBoolean,
	"NullLiteralTypeAnnotation":    ast.PrimNull,
	"VoidTypeAnnotation":           ast.PrimUndefined,
	"BigIntTypeAnnotation":         ast.PrimBigInt,
	"AnyTypeAnnotation":            ast.PrimAny,
	"MixedTypeAnnotation":          ast.PrimAny,
	"ObjectTypeAnnotation":         ast.PrimObject,
	"NumberLiteralTypeAnnotation":  ast.PrimNumber,
	"StringLiteralTypeAnnotation":  ast.PrimString,
	"BooleanLiteralTypeAnnotation": ast.PrimBoolean,
	"BigIntLiteralTypeAnnotation":  ast.PrimBigInt,

	"TSNumberKeyword":    ast.PrimNumber,
	"TSStringKeyword":    ast.PrimString,
	"TSBooleanKeyword":   ast.PrimBoolean,
	"TSNullKeyword":      ast.PrimNull,
	"TSUndefinedKeyword": ast.PrimUndefined,
	"TSVoidKeyword":      ast.PrimUndefined,
	"TSBigIntKeyword":    ast.PrimBigInt,
	"TSAnyKeyword":       ast.PrimAny,
	"TSUnknownKeyword":   ast.PrimAny,
	"TSObjectKeyword":    ast.PrimObject,
	"TSTypeLiteral":      ast.PrimObject,
}

func (d *decoder) typeNode(data json.RawMessage) (ast.Type, error) {
	n, err := d.raw(data)
	if err != nil {
		return ast.Type{}, err
	}
	span := d.span(n)
	saved := d.parent
	d.parent = span
	defer func() { d.parent = saved }()

	if k, ok := primitiveTypes[n.Type]; ok {
		return ast.Type{Data: &ast.TPrimitive{Kind: k}, Span: span}, nil
	}

	switch n.Type {
	case "ArrayTypeAnnotation", "TSArrayType":
		elem, err := d.typeNode(n.ElementType)
		if err != nil {
			return ast.Type{}, err
		}
		return ast.Type{Data: &ast.TArray{Elem: elem}, Span: span}, nil

	case "UnionTypeAnnotation", "TSUnionType":
		u := &ast.TUnion{}
		for _, m := range n.Types {
			t, err := d.typeNode(m)
			if err != nil {
				return ast.Type{}, err
			}
			u.Members = append(u.Members, t)
		}
		if len(u.Members) == 0 {
			return ast.Type{}, d.errorf(diag.IRGMissingField, span, "empty union")
		}
		return ast.Type{Data: u, Span: span}, nil

	case "NullableTypeAnnotation":
		inner, err := d.typeNode(n.TypeAnnotation)
		if err != nil {
			return ast.Type{}, err
		}
		return ast.Type{Data: &ast.TNullable{Inner: inner}, Span: span}, nil

	case "GenericTypeAnnotation", "TSTypeReference":
		ref := n.ID
		if n.Type == "TSTypeReference" {
			ref = n.TypeName
		}
		id, err := d.raw(ref)
		if err != nil {
			return ast.Type{}, err
		}
		if id.Type != "Identifier" {
			return ast.Type{}, d.errorf(diag.IRGUnknownNode, d.span(id), "qualified type names are not supported")
		}
		return ast.Type{Data: &ast.TRef{Name: ident(id.Name)}, Span: span}, nil

	case "TSParenthesizedType":
		return d.typeNode(n.TypeAnnotation)
	}
	return ast.Type{}, d.errorf(diag.IRGUnknownNode, span, "unsupported type annotation %q", n.Type)
}
