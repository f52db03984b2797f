// Package diag defines the diagnostic records shared by every pass.
//
// A Diagnostic carries a severity, a Code whose range encodes the error kind
// (SEM semantic, IRG malformed input, TYP type normalization, OPT optimizer
// notes), a message and the primary source span. Passes emit through a
// Reporter, usually a BagReporter, and never format or print anything
// themselves; rendering lives in internal/diagfmt.
//
// Malformed input is not reported here as a recoverable finding: IRGen
// returns it as an error and the pipeline converts it into one IRG
// diagnostic for the aborted unit.
package diag
