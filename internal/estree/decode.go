package estree

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

type decoder struct {
	file source.FileID
	// parent is the span of the node being decoded; children without
	// positions inherit it.
	parent source.Span
}

// Decode reads one ESTree Program from data. Any shape the compiler cannot
// accept is returned as *Error.
func Decode(file source.FileID, data []byte) (*ast.Program, error) {
	d := &decoder{file: file}
	n, err := d.raw(data)
	if err != nil {
		return nil, err
	}
	// Babel wraps the program in a File node.
	if n.Type == "File" {
		if n, err = d.raw(n.Program); err != nil {
			return nil, err
		}
	}
	if n.Type != "Program" {
		return nil, d.errorf(diag.IRGMalformedNode, d.span(n), "expected Program, got %q", n.Type)
	}
	span := d.span(n)
	d.parent = span
	stmts, err := d.rawList(n.Body)
	if err != nil {
		return nil, err
	}
	strict := hasUseStrict(d, stmts)
	body, err := d.stmts(stmts, strict)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Body: body, Strict: strict, Span: span}, nil
}

func (d *decoder) errorf(code diag.Code, sp source.Span, format string, args ...any) error {
	return &Error{Code: code, Span: sp, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) raw(data json.RawMessage) (*rawNode, error) {
	var n rawNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, d.errorf(diag.IRGMalformedNode, d.parent, "invalid node: %v", err)
	}
	if n.Type == "" {
		return nil, d.errorf(diag.IRGMissingField, d.parent, "node without type")
	}
	return &n, nil
}

func (d *decoder) rawList(data json.RawMessage) ([]*rawNode, error) {
	if isNull(data) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, d.errorf(diag.IRGMalformedNode, d.parent, "expected node list: %v", err)
	}
	return d.rawItems(items)
}

func (d *decoder) rawItems(items []json.RawMessage) ([]*rawNode, error) {
	out := make([]*rawNode, 0, len(items))
	for _, item := range items {
		if isNull(item) {
			out = append(out, nil)
			continue
		}
		n, err := d.raw(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (d *decoder) span(n *rawNode) source.Span {
	switch {
	case len(n.Range) == 2 && n.Range[0] <= n.Range[1]:
		return source.Span{File: d.file, Start: n.Range[0], End: n.Range[1]}
	case n.Start != nil && n.End != nil && *n.Start <= *n.End:
		return source.Span{File: d.file, Start: *n.Start, End: *n.End}
	}
	return d.parent
}

func ident(name string) string {
	return norm.NFC.String(name)
}

// hasUseStrict scans the directive prologue.
func hasUseStrict(d *decoder, stmts []*rawNode) bool {
	for _, s := range stmts {
		if s == nil || s.Type != "ExpressionStatement" {
			return false
		}
		if s.Directive != "" {
			if s.Directive == "use strict" {
				return true
			}
			continue
		}
		e, err := d.raw(s.Expression)
		if err != nil || (e.Type != "Literal" && e.Type != "StringLiteral") {
			return false
		}
		var v any
		if json.Unmarshal(e.Value, &v) != nil {
			return false
		}
		str, ok := v.(string)
		if !ok {
			return false
		}
		if str == "use strict" {
			return true
		}
	}
	return false
}
