package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ember/internal/config"
	"ember/internal/pipeline"
	"ember/internal/ui"
)

type batchOutcome struct {
	result *pipeline.BatchResult
	err    error
}

// runBatchWithUI compiles units while a progress view follows the events.
// The view draws on stderr so stdout stays clean for the IR.
func runBatchWithUI(ctx context.Context, units []pipeline.Unit, cfg config.Config, jobs int) (*pipeline.BatchResult, error) {
	files := make([]string, len(units))
	for i, u := range units {
		files[i] = u.Path
	}
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		res, err := pipeline.CompileBatch(ctx, units, cfg, jobs, pipeline.ChannelSink{Ch: events})
		outcomeCh <- batchOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("compiling", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// The view may quit early; keep draining so the batch never blocks.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
