// Package fuzztests holds fuzz harnesses that push arbitrary ESTree JSON
// through the whole pipeline: decode, type normalization, IR generation,
// suspend-point lowering and the optimizer. Inputs must either be rejected
// with an error or produce IR that validates; nothing may panic or hang.
package fuzztests
