package estree

import (
	"errors"
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
)

const fooJSON = `{
  "type": "Program", "range": [0, 60],
  "body": [{
    "type": "FunctionDeclaration", "range": [0, 60],
    "id": {"type": "Identifier", "name": "foo", "range": [9, 12]},
    "params": [{"type": "Identifier", "name": "dim", "range": [13, 16]}],
    "body": {"type": "BlockStatement", "range": [17, 60], "body": [
      {"type": "VariableDeclaration", "kind": "var", "range": [18, 36], "declarations": [{
        "type": "VariableDeclarator", "range": [22, 35],
        "id": {"type": "Identifier", "name": "a", "range": [22, 23]},
        "init": {"type": "BinaryExpression", "operator": "==", "range": [25, 35],
          "left": {"type": "Identifier", "name": "dim", "range": [25, 28]},
          "right": {"type": "Identifier", "name": "dim", "range": [32, 35]}}
      }]},
      {"type": "ReturnStatement", "range": [37, 46],
        "argument": {"type": "Identifier", "name": "a", "range": [44, 45]}}
    ]}
  }]
}`

func TestDecodeFunction(t *testing.T) {
	prog, err := Decode(0, []byte(fooJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	fn, ok := prog.Body[0].Data.(*ast.SFunction)
	if !ok {
		t.Fatalf("expected SFunction, got %T", prog.Body[0].Data)
	}
	if fn.Fn.Name != "foo" || len(fn.Fn.Params) != 1 || fn.Fn.Params[0].Name != "dim" {
		t.Fatalf("unexpected signature %+v", fn.Fn)
	}
	v, ok := fn.Fn.Body[0].Data.(*ast.SVar)
	if !ok {
		t.Fatalf("expected SVar, got %T", fn.Fn.Body[0].Data)
	}
	bin, ok := v.Decls[0].Value.Data.(*ast.EBinary)
	if !ok || bin.Op != ast.BinOpLooseEq {
		t.Fatalf("expected == binary, got %#v", v.Decls[0].Value.Data)
	}
	if sp := v.Decls[0].Value.Span; sp.Start != 25 || sp.End != 35 {
		t.Fatalf("unexpected span %v", sp)
	}
}

func TestDecodeUseStrictPropagates(t *testing.T) {
	src := `{"type":"Program","body":[
	  {"type":"ExpressionStatement","directive":"use strict",
	   "expression":{"type":"Literal","value":"use strict"}},
	  {"type":"FunctionDeclaration","id":{"type":"Identifier","name":"f"},"params":[],
	   "body":{"type":"BlockStatement","body":[]}}]}`
	prog, err := Decode(0, []byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !prog.Strict {
		t.Fatalf("expected strict program")
	}
	if fn := prog.Body[1].Data.(*ast.SFunction); !fn.Fn.Strict {
		t.Fatalf("expected nested function to inherit strict mode")
	}
}

func TestDecodeObjectProperties(t *testing.T) {
	src := `{"type":"Program","body":[{"type":"ExpressionStatement","expression":
	  {"type":"ObjectExpression","properties":[
	    {"type":"Property","kind":"init","shorthand":true,
	     "key":{"type":"Identifier","name":"__proto__"},"value":{"type":"Identifier","name":"__proto__"}},
	    {"type":"Property","kind":"init",
	     "key":{"type":"Literal","value":2},"value":{"type":"Literal","value":"two"}}]}}]}`
	prog, err := Decode(0, []byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	obj := prog.Body[0].Data.(*ast.SExpr).Value.Data.(*ast.EObject)
	if !obj.Properties[0].Shorthand || obj.Properties[0].Key != "__proto__" {
		t.Fatalf("unexpected first property %+v", obj.Properties[0])
	}
	if obj.Properties[1].Key != "2" {
		t.Fatalf("numeric keys must be canonicalized, got %q", obj.Properties[1].Key)
	}
}

func TestDecodeTypeAlias(t *testing.T) {
	src := `{"type":"Program","body":[{"type":"TypeAlias","id":{"type":"Identifier","name":"A"},
	  "right":{"type":"UnionTypeAnnotation","types":[
	    {"type":"ArrayTypeAnnotation","elementType":{"type":"GenericTypeAnnotation","id":{"type":"Identifier","name":"B"}}},
	    {"type":"NumberTypeAnnotation"}]}}]}`
	prog, err := Decode(0, []byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	alias := prog.Body[0].Data.(*ast.STypeAlias)
	u, ok := alias.Value.Data.(*ast.TUnion)
	if !ok || len(u.Members) != 2 {
		t.Fatalf("expected 2-member union, got %#v", alias.Value.Data)
	}
	arr := u.Members[0].Data.(*ast.TArray)
	if ref := arr.Elem.Data.(*ast.TRef); ref.Name != "B" {
		t.Fatalf("expected reference to B, got %q", ref.Name)
	}
}

func TestDecodeRejectsUnsupported(t *testing.T) {
	src := `{"type":"Program","body":[{"type":"ClassDeclaration","range":[3,9]}]}`
	_, err := Decode(0, []byte(src))
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Code != diag.IRGUnknownNode || derr.Span.Start != 3 {
		t.Fatalf("unexpected error %+v", derr)
	}
}

func TestDecodeMissingField(t *testing.T) {
	src := `{"type":"Program","body":[{"type":"IfStatement","consequent":{"type":"EmptyStatement"}}]}`
	_, err := Decode(0, []byte(src))
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != diag.IRGMissingField {
		t.Fatalf("expected missing field error, got %v", err)
	}
}
