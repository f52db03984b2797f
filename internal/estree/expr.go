package estree

import (
	"encoding/json"
	"strings"

	"ember/internal/ast"
	"ember/internal/diag"
)

func (d *decoder) optExpr(data json.RawMessage, strict bool) (ast.Expr, error) {
	if isNull(data) {
		return ast.Expr{}, nil
	}
	n, err := d.raw(data)
	if err != nil {
		return ast.Expr{}, err
	}
	return d.expr(n, strict)
}

func (d *decoder) exprField(parent *rawNode, data json.RawMessage, what string, strict bool) (ast.Expr, error) {
	if isNull(data) {
		return ast.Expr{}, d.errorf(diag.IRGMissingField, d.span(parent), "%s without %s", parent.Type, what)
	}
	return d.optExpr(data, strict)
}

func (d *decoder) exprList(items []json.RawMessage, strict bool, holes bool) ([]ast.Expr, error) {
	nodes, err := d.rawItems(items)
	if err != nil {
		return nil, err
	}
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			if !holes {
				return nil, d.errorf(diag.IRGMalformedNode, d.parent, "unexpected null element")
			}
			out = append(out, ast.Expr{Span: d.parent})
			continue
		}
		e, err := d.expr(n, strict)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(n *rawNode, strict bool) (ast.Expr, error) {
	span := d.span(n)
	saved := d.parent
	d.parent = span
	defer func() { d.parent = saved }()

	data, err := d.exprData(n, strict)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Data: data, Span: span}, nil
}

func (d *decoder) exprData(n *rawNode, strict bool) (ast.E, error) {
	span := d.span(n)
	switch n.Type {
	case "Identifier":
		if n.Name == "" {
			return nil, d.errorf(diag.IRGMissingField, span, "identifier without a name")
		}
		return &ast.EIdentifier{Name: ident(n.Name)}, nil

	case "ThisExpression":
		return &ast.EThis{}, nil

	case "Literal":
		return d.literal(n)
	case "NumericLiteral":
		var v float64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, d.errorf(diag.IRGMalformedNode, span, "bad numeric literal: %v", err)
		}
		return &ast.ENumber{Value: v}, nil
	case "StringLiteral":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, d.errorf(diag.IRGMalformedNode, span, "bad string literal: %v", err)
		}
		return &ast.EString{Value: v}, nil
	case "BooleanLiteral":
		var v bool
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, d.errorf(diag.IRGMalformedNode, span, "bad boolean literal: %v", err)
		}
		return &ast.EBoolean{Value: v}, nil
	case "NullLiteral":
		return &ast.ENull{}, nil
	case "BigIntLiteral":
		return &ast.EBigInt{Digits: strings.TrimSuffix(n.Raw, "n")}, nil

	case "ArrayExpression":
		items, err := d.exprList(n.Elements, strict, true)
		if err != nil {
			return nil, err
		}
		return &ast.EArray{Items: items}, nil

	case "ObjectExpression":
		return d.object(n, strict)

	case "FunctionExpression":
		fn, err := d.fn(n, strict)
		if err != nil {
			return nil, err
		}
		return &ast.EFunction{Fn: fn}, nil

	case "UnaryExpression":
		op, ok := ast.LookupPrefix(n.Operator)
		if !ok {
			return nil, d.errorf(diag.IRGMalformedNode, span, "unknown unary operator %q", n.Operator)
		}
		v, err := d.exprField(n, n.Argument, "argument", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EUnary{Op: op, Value: v}, nil

	case "UpdateExpression":
		op, ok := ast.LookupUpdate(n.Operator, n.Prefix)
		if !ok {
			return nil, d.errorf(diag.IRGMalformedNode, span, "unknown update operator %q", n.Operator)
		}
		t, err := d.exprField(n, n.Argument, "argument", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EUpdate{Op: op, Target: t}, nil

	case "BinaryExpression", "LogicalExpression":
		op, ok := ast.LookupBinary(n.Operator)
		if !ok {
			return nil, d.errorf(diag.IRGMalformedNode, span, "unknown binary operator %q", n.Operator)
		}
		l, err := d.exprField(n, n.Left, "left", strict)
		if err != nil {
			return nil, err
		}
		r, err := d.exprField(n, n.Right, "right", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EBinary{Op: op, Left: l, Right: r}, nil

	case "AssignmentExpression":
		op, ok := ast.LookupAssign(n.Operator)
		if !ok {
			return nil, d.errorf(diag.IRGMalformedNode, span, "unknown assignment operator %q", n.Operator)
		}
		t, err := d.exprField(n, n.Left, "left", strict)
		if err != nil {
			return nil, err
		}
		v, err := d.exprField(n, n.Right, "right", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EAssign{Op: op, Target: t, Value: v}, nil

	case "ConditionalExpression":
		test, err := d.exprField(n, n.Test, "test", strict)
		if err != nil {
			return nil, err
		}
		yes, err := d.exprField(n, n.Consequent, "consequent", strict)
		if err != nil {
			return nil, err
		}
		no, err := d.exprField(n, n.Alternate, "alternate", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EIf{Test: test, Yes: yes, No: no}, nil

	case "MemberExpression":
		obj, err := d.exprField(n, n.Object, "object", strict)
		if err != nil {
			return nil, err
		}
		prop, err := d.raw(n.Property)
		if err != nil {
			return nil, err
		}
		if !n.Computed {
			if prop.Type != "Identifier" {
				return nil, d.errorf(diag.IRGUnknownNode, d.span(prop), "unsupported member property %q", prop.Type)
			}
			return &ast.EDot{Target: obj, Name: ident(prop.Name), NameSpan: d.span(prop)}, nil
		}
		idx, err := d.expr(prop, strict)
		if err != nil {
			return nil, err
		}
		return &ast.EIndex{Target: obj, Index: idx}, nil

	case "CallExpression", "NewExpression":
		callee, err := d.exprField(n, n.Callee, "callee", strict)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(n.Arguments, strict, false)
		if err != nil {
			return nil, err
		}
		if n.Type == "NewExpression" {
			return &ast.ENew{Target: callee, Args: args}, nil
		}
		return &ast.ECall{Target: callee, Args: args}, nil

	case "SequenceExpression":
		list, err := d.exprList(n.Expressions, strict, false)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, d.errorf(diag.IRGMissingField, span, "empty sequence")
		}
		return &ast.ESequence{Exprs: list}, nil

	case "YieldExpression":
		v, err := d.optExpr(n.Argument, strict)
		if err != nil {
			return nil, err
		}
		if n.Delegate {
			return nil, d.errorf(diag.IRGUnknownNode, span, "yield* is not supported")
		}
		return &ast.EYield{Value: v}, nil

	case "AwaitExpression":
		v, err := d.exprField(n, n.Argument, "argument", strict)
		if err != nil {
			return nil, err
		}
		return &ast.EAwait{Value: v}, nil

	case "ParenthesizedExpression":
		inner, err := d.exprField(n, n.Expression, "expression", strict)
		if err != nil {
			return nil, err
		}
		return inner.Data, nil
	}
	return nil, d.errorf(diag.IRGUnknownNode, span, "unsupported expression %q", n.Type)
}

func (d *decoder) literal(n *rawNode) (ast.E, error) {
	span := d.span(n)
	if !isNull(n.Regex) {
		return nil, d.errorf(diag.IRGUnknownNode, span, "regular expression literals are not supported")
	}
	if n.BigInt != "" {
		return &ast.EBigInt{Digits: n.BigInt}, nil
	}
	var v any
	if err := json.Unmarshal(n.Value, &v); err != nil && !isNull(n.Value) {
		return nil, d.errorf(diag.IRGMalformedNode, span, "bad literal: %v", err)
	}
	switch v := v.(type) {
	case nil:
		return &ast.ENull{}, nil
	case bool:
		return &ast.EBoolean{Value: v}, nil
	case float64:
		return &ast.ENumber{Value: v}, nil
	case string:
		return &ast.EString{Value: v}, nil
	}
	return nil, d.errorf(diag.IRGMalformedNode, span, "literal of unexpected JSON kind")
}

func (d *decoder) object(n *rawNode, strict bool) (ast.E, error) {
	props, err := d.rawItems(n.Properties)
	if err != nil {
		return nil, err
	}
	obj := &ast.EObject{Properties: make([]ast.Property, 0, len(props))}
	for _, pn := range props {
		if pn == nil || (pn.Type != "Property" && pn.Type != "ObjectProperty") {
			return nil, d.errorf(diag.IRGUnknownNode, d.span(n), "unsupported object member")
		}
		p := ast.Property{
			Computed:  pn.Computed,
			Shorthand: pn.Shorthand,
			Span:      d.span(pn),
		}
		switch pn.Kind {
		case "init", "":
			p.Kind = ast.PropertyInit
		case "get":
			p.Kind = ast.PropertyGet
		case "set":
			p.Kind = ast.PropertySet
		default:
			return nil, d.errorf(diag.IRGMalformedNode, p.Span, "unknown property kind %q", pn.Kind)
		}
		key, err := d.raw(pn.Key)
		if err != nil {
			return nil, err
		}
		if p.Computed {
			if p.KeyExpr, err = d.expr(key, strict); err != nil {
				return nil, err
			}
		} else if p.Key, err = d.propertyName(key); err != nil {
			return nil, err
		}
		if p.Value, err = d.exprField(pn, pn.Value, "value", strict); err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, p)
	}
	return obj, nil
}

// propertyName returns the static key of a non-computed property.
func (d *decoder) propertyName(key *rawNode) (string, error) {
	switch key.Type {
	case "Identifier":
		return ident(key.Name), nil
	case "Literal", "StringLiteral", "NumericLiteral":
		e, err := d.literal(key)
		if err != nil {
			return "", err
		}
		switch v := e.(type) {
		case *ast.EString:
			return v.Value, nil
		case *ast.ENumber:
			return ast.NumberToString(v.Value), nil
		}
	}
	return "", d.errorf(diag.IRGMalformedNode, d.span(key), "invalid property key %q", key.Type)
}
