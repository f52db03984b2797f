// Package estree decodes the ESTree JSON produced by the external parser
// into ast nodes. Both the Flow and the TypeScript flavours of type alias
// annotations are accepted.
package estree

import (
	"encoding/json"
	"fmt"

	"ember/internal/diag"
	"ember/internal/source"
)

// rawNode is the union of every ESTree field the decoder reads. Child
// nodes stay raw until the concrete node type says what they are.
type rawNode struct {
	Type  string   `json:"type"`
	Range []uint32 `json:"range"`
	Start *uint32  `json:"start"`
	End   *uint32  `json:"end"`

	Name      string          `json:"name"`
	Raw       string          `json:"raw"`
	BigInt    string          `json:"bigint"`
	Kind      string          `json:"kind"`
	Operator  string          `json:"operator"`
	Directive string          `json:"directive"`
	Regex     json.RawMessage `json:"regex"`

	Prefix    bool `json:"prefix"`
	Computed  bool `json:"computed"`
	Shorthand bool `json:"shorthand"`
	Method    bool `json:"method"`
	Generator bool `json:"generator"`
	Async     bool `json:"async"`
	Delegate  bool `json:"delegate"`

	Value          json.RawMessage   `json:"value"`
	ID             json.RawMessage   `json:"id"`
	Key            json.RawMessage   `json:"key"`
	Body           json.RawMessage   `json:"body"`
	Params         []json.RawMessage `json:"params"`
	Declarations   []json.RawMessage `json:"declarations"`
	Init           json.RawMessage   `json:"init"`
	Test           json.RawMessage   `json:"test"`
	Update         json.RawMessage   `json:"update"`
	Consequent     json.RawMessage   `json:"consequent"`
	Alternate      json.RawMessage   `json:"alternate"`
	Expression     json.RawMessage   `json:"expression"`
	Expressions    []json.RawMessage `json:"expressions"`
	Argument       json.RawMessage   `json:"argument"`
	Arguments      []json.RawMessage `json:"arguments"`
	Callee         json.RawMessage   `json:"callee"`
	Object         json.RawMessage   `json:"object"`
	Property       json.RawMessage   `json:"property"`
	Left           json.RawMessage   `json:"left"`
	Right          json.RawMessage   `json:"right"`
	Elements       []json.RawMessage `json:"elements"`
	Properties     []json.RawMessage `json:"properties"`
	Types          []json.RawMessage `json:"types"`
	ElementType    json.RawMessage   `json:"elementType"`
	TypeAnnotation json.RawMessage   `json:"typeAnnotation"`
	TypeName       json.RawMessage   `json:"typeName"`
	Label          json.RawMessage   `json:"label"`
	Program        json.RawMessage   `json:"program"`
}

// Error is a malformed-input failure: the tree does not match the shape
// the decoder (and IRGen after it) relies on.
type Error struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("estree: %s at %s: %s", e.Code.ID(), e.Span, e.Msg)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
