package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"ember/internal/config"
	"ember/internal/trace"
)

// BatchResult holds one Result and error per unit, in input order.
type BatchResult struct {
	Results []*Result
	Errs    []error
}

// Err joins the per-unit errors.
func (b *BatchResult) Err() error {
	return errors.Join(b.Errs...)
}

// CompileBatch compiles units concurrently. Every unit builds its own
// Module and Type Table, so workers share nothing but the sink. A failing
// unit does not stop the others; only cancellation of ctx does.
func CompileBatch(ctx context.Context, units []Unit, cfg config.Config, jobs int, sink ProgressSink) (*BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := &BatchResult{
		Results: make([]*Result, len(units)),
		Errs:    make([]error, len(units)),
	}
	if len(units) == 0 {
		return out, nil
	}
	for _, u := range units {
		if sink != nil {
			sink.OnEvent(Event{File: u.Path, Status: StatusQueued})
		}
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "batch", trace.CurrentSpan(ctx))
	span.WithExtra("units", fmt.Sprint(len(units)))
	ctx = trace.WithSpan(ctx, span)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))
	for i, u := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// Indices are unique per goroutine.
			out.Results[i], out.Errs[i] = compile(gctx, u, cfg, sink)
			return nil
		})
	}
	err := g.Wait()
	span.End("")
	return out, err
}

// LoadUnit reads an ESTree JSON file. When a script named like the JSON
// file without its .json suffix (or with .js in its place) exists next to
// it, it is loaded as the text the positions refer to.
func LoadUnit(path string) (Unit, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, err
	}
	u := Unit{Path: filepath.ToSlash(path), Data: data}
	for _, cand := range scriptCandidates(path) {
		// #nosec G304 -- derived from a caller-provided path
		if text, err := os.ReadFile(cand); err == nil {
			u.Script = text
			break
		}
	}
	return u, nil
}

func scriptCandidates(path string) []string {
	base, ok := strings.CutSuffix(path, ".json")
	if !ok {
		return nil
	}
	if filepath.Ext(base) == ".js" {
		return []string{base}
	}
	return []string{base + ".js"}
}
