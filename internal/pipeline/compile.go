// Package pipeline drives one compilation unit from ESTree JSON to
// lowered, optimized IR, and many units in parallel.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ember/internal/ast"
	"ember/internal/config"
	"ember/internal/diag"
	"ember/internal/estree"
	"ember/internal/ir"
	"ember/internal/irgen"
	"ember/internal/lower"
	"ember/internal/observ"
	"ember/internal/opt"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/types"
)

// ErrDiagnostics is returned when a unit compiled but reported errors.
var ErrDiagnostics = errors.New("diagnostics reported errors")

// OptimizerOptions maps the config onto optimizer passes.
func OptimizerOptions(cfg config.Config, r diag.Reporter) opt.Options {
	if !cfg.Compile.Optimize {
		return opt.Options{}
	}
	o := cfg.Optimizer
	return opt.Options{
		SimplifyCFG:   o.SimplifyCFG,
		ForwardFrame:  o.ForwardFrame,
		Simplify:      o.Simplify,
		CSE:           o.CSE,
		FoldConstants: o.FoldConstants,
		EliminateDead: o.EliminateDead,
		Reporter:      r,
	}
}

// Compile runs decode, type normalization, IR generation, suspend-point
// lowering, optimization and validation for one unit. The returned Result
// is never nil; its Module is nil when the unit was aborted.
func Compile(ctx context.Context, unit Unit, cfg config.Config) (*Result, error) {
	return compile(ctx, unit, cfg, nil)
}

type compilation struct {
	ctx    context.Context
	unit   Unit
	cfg    config.Config
	sink   ProgressSink
	tracer trace.Tracer
	root   *trace.Span
	res    *Result
	rep    diag.Reporter
}

func compile(ctx context.Context, unit Unit, cfg config.Config, sink ProgressSink) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	maxDiag := cfg.Compile.MaxDiagnostics
	if maxDiag == 0 {
		maxDiag = config.Default().Compile.MaxDiagnostics
	}
	fs := source.NewFileSet()
	id := fs.AddVirtual(unit.Path, unit.Data)
	if unit.Script != nil {
		fs.SetText(id, unit.Script)
	}
	bag := diag.NewBag(maxDiag)
	c := &compilation{
		ctx:    ctx,
		unit:   unit,
		cfg:    cfg,
		sink:   sink,
		tracer: trace.FromContext(ctx),
		res: &Result{
			Path:   unit.Path,
			Files:  fs,
			File:   id,
			Bag:    bag,
			Timing: observ.NewTimer(),
		},
		rep: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
	c.root = trace.Begin(c.tracer, trace.ScopeUnit, "unit:"+unit.Path, trace.CurrentSpan(ctx))

	err := c.run()
	bag.Sort()
	switch {
	case err != nil:
		c.root.End("error")
	case bag.HasErrors():
		err = ErrDiagnostics
		c.root.End("diagnostics")
	default:
		c.root.End("ok")
	}
	if err == nil {
		c.emit(Event{File: unit.Path, Status: StatusDone})
	}
	return c.res, err
}

func (c *compilation) run() error {
	var prog *ast.Program
	if err := c.stage(StageDecode, func(*trace.Span) (string, error) {
		p, err := estree.Decode(c.res.File, c.unit.Data)
		if err != nil {
			c.reportMalformed(err)
			return "", err
		}
		prog = p
		return fmt.Sprintf("%d statements", len(p.Body)), nil
	}); err != nil {
		return err
	}

	tab := types.NewTable()
	if err := c.stage(StageTypes, func(*trace.Span) (string, error) {
		aliases := types.Normalize(tab, irgen.CollectAliases(prog), c.rep)
		return fmt.Sprintf("%d aliases", len(aliases)), nil
	}); err != nil {
		return err
	}

	var m *ir.Module
	if err := c.stage(StageIRGen, func(*trace.Span) (string, error) {
		var err error
		m, err = irgen.Generate(prog, tab, c.rep, irgen.Options{Strict: c.cfg.Compile.Strict})
		if err != nil {
			c.reportMalformed(err)
			return "", err
		}
		return fmt.Sprintf("%d functions", len(m.Functions)), c.verify(m, StageIRGen)
	}); err != nil {
		return err
	}

	if err := c.stage(StageLower, func(*trace.Span) (string, error) {
		if err := lower.LowerModule(m); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d functions", len(m.Functions)), c.verify(m, StageLower)
	}); err != nil {
		return err
	}

	var snapshot []byte
	if err := c.stage(StageOptimize, func(sp *trace.Span) (string, error) {
		if !c.cfg.Compile.Optimize {
			return "disabled", nil
		}
		if !c.cfg.Compile.Debug {
			var buf bytes.Buffer
			if err := ir.Encode(&buf, m); err != nil {
				return "", fmt.Errorf("snapshot before optimization: %w", err)
			}
			snapshot = buf.Bytes()
		}
		st := opt.OptimizeModule(m, OptimizerOptions(c.cfg, c.rep))
		sp.WithExtra("merged", strconv.Itoa(st.Merged)).
			WithExtra("folded", strconv.Itoa(st.Folded)).
			WithExtra("forwarded", strconv.Itoa(st.Forwarded)).
			WithExtra("narrowed", strconv.Itoa(st.Narrowed)).
			WithExtra("removed", strconv.Itoa(st.Removed))
		return "", c.verify(m, StageOptimize)
	}); err != nil {
		return err
	}

	if err := c.stage(StageValidate, func(*trace.Span) (string, error) {
		verr := ir.Validate(m)
		if verr == nil {
			return "ok", nil
		}
		if snapshot == nil {
			return "", verr
		}
		restored, err := ir.Decode(bytes.NewReader(snapshot))
		if err != nil {
			return "", errors.Join(verr, err)
		}
		diag.ReportWarning(c.rep, diag.OptDiscarded, source.NoSpan, verr.Error()).Emit()
		m = restored
		c.res.Discarded = true
		return "restored", nil
	}); err != nil {
		return err
	}

	m.Types.Freeze()
	c.res.Module = m
	return nil
}

// verify validates after a pass when the config asks for it.
func (c *compilation) verify(m *ir.Module, after Stage) error {
	if !c.cfg.Compile.Debug {
		return nil
	}
	if err := ir.Validate(m); err != nil {
		return fmt.Errorf("invalid IR after %s: %w", after, err)
	}
	return nil
}

// stage runs fn under a trace span, a timer phase and progress events.
func (c *compilation) stage(st Stage, fn func(*trace.Span) (string, error)) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	c.emit(Event{File: c.unit.Path, Stage: st, Status: StatusWorking})
	idx := c.res.Timing.Begin(string(st))
	span := trace.Begin(c.tracer, trace.ScopePass, string(st), c.root.ID())
	start := time.Now()
	note, err := fn(span)
	if err != nil {
		span.End(err.Error())
		c.res.Timing.End(idx, "failed")
		c.emit(Event{File: c.unit.Path, Stage: st, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return fmt.Errorf("%s: %s: %w", c.unit.Path, st, err)
	}
	span.End(note)
	c.res.Timing.End(idx, note)
	return nil
}

func (c *compilation) emit(ev Event) {
	if c.sink != nil {
		c.sink.OnEvent(ev)
	}
}

// reportMalformed turns an aborting input error into a diagnostic so it is
// rendered like every other problem.
func (c *compilation) reportMalformed(err error) {
	var mal *ir.MalformedInputError
	var dec *estree.Error
	switch {
	case errors.As(err, &mal):
		diag.ReportError(c.rep, mal.Code, mal.Span, mal.Msg).Emit()
	case errors.As(err, &dec):
		diag.ReportError(c.rep, dec.Code, dec.Span, dec.Msg).Emit()
	}
}
