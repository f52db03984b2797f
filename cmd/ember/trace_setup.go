package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/trace"
)

var activeTracer trace.Tracer = trace.Nop

// setupTracing builds the tracer described by the trace flags and
// attaches it to the command context.
func setupTracing(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	// --trace alone implies phase level.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return nil
}

func closeTracing() error {
	t := activeTracer
	activeTracer = trace.Nop
	if err := t.Flush(); err != nil {
		return fmt.Errorf("trace: flush: %w", err)
	}
	return t.Close()
}

// dumpRing writes the ring tracer's events after a failed run so the
// last steps before the failure are visible.
func dumpRing() {
	if r, ok := trace.RingOf(activeTracer); ok {
		if err := r.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintln(os.Stderr, "trace: dump:", err)
		}
	}
}
