package ir

import (
	"fmt"

	"ember/internal/diag"
	"ember/internal/source"
)

// MalformedInputError reports a syntax tree that breaks the input
// contract. It aborts the compilation unit and is never a user
// diagnostic.
type MalformedInputError struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code.ID(), e.Span, e.Msg)
}

// Malformed builds a MalformedInputError.
func Malformed(code diag.Code, span source.Span, format string, args ...any) *MalformedInputError {
	return &MalformedInputError{Code: code, Span: span, Msg: fmt.Sprintf(format, args...)}
}
