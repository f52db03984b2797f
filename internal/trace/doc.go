// Package trace records where compilation time goes.
//
// Spans open at the driver, around each pass and, at the debug level,
// around each function a pass touches:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "lower", parent)
//	defer span.End("")
//
// Levels filter by scope: phase shows driver and pass spans, detail adds
// per-unit spans, debug adds per-function spans. A disabled tracer costs
// one interface call per span.
package trace
