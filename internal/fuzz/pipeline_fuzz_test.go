package fuzztests

import (
	"context"
	"testing"
	"time"

	"ember/internal/config"
	"ember/internal/ir"
	"ember/internal/pipeline"
)

// compileTimeout bounds one input; exceeding it points at a loop in a
// fixpoint pass.
const compileTimeout = 5 * time.Second

func FuzzPipeline(f *testing.F) {
	addCorpusSeeds(f)
	cfg := config.Default()
	cfg.Compile.Debug = true
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		unit := pipeline.Unit{Path: "fuzz.json", Data: append([]byte(nil), input...)}

		done := make(chan struct{})
		var res *pipeline.Result
		var err error
		go func() {
			defer close(done)
			res, err = pipeline.Compile(context.Background(), unit, cfg)
		}()
		select {
		case <-done:
		case <-time.After(compileTimeout):
			t.Fatalf("compilation did not finish within %v", compileTimeout)
		}
		if err != nil || res.Module == nil {
			return
		}
		if verr := ir.Validate(res.Module); verr != nil {
			t.Fatalf("accepted input produced invalid IR: %v", verr)
		}
	})
}
