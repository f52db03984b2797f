package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/ir"
	"ember/internal/pipeline"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.json>...",
	Short: "Compile ESTree JSON files and print their IR",
	Long: `Compile every input through IR generation, suspend-point lowering and
the local optimizer. The IR dump goes to stdout and diagnostics to stderr.
With [output] format = "msgpack" each unit is written next to its input
as <name>.msgpack instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().Bool("O0", false, "disable the optimizer")
	compileCmd.Flags().Bool("verify-ir", false, "validate the IR after every pass and abort on the first violation")
	compileCmd.Flags().Bool("strict", false, "treat every function as strict mode code")
	compileCmd.Flags().String("ui", "auto", "progress UI for several inputs (auto|on|off)")
	compileCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	compileCmd.Flags().String("diagnostics", "pretty", "diagnostics format (pretty|short|json)")
	compileCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
}

type reportOptions struct {
	diagnostics string
	notes       bool
	color       bool
	timings     bool
	format      string
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	opts := reportOptions{format: cfg.Output.Format, color: useColor(cfg.Output.Color)}
	if opts.diagnostics, err = cmd.Flags().GetString("diagnostics"); err != nil {
		return fmt.Errorf("failed to get diagnostics flag: %w", err)
	}
	switch opts.diagnostics {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unsupported diagnostics format %q (must be pretty, short or json)", opts.diagnostics)
	}
	if opts.notes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	units := make([]pipeline.Unit, 0, len(args))
	for _, path := range args {
		u, err := pipeline.LoadUnit(path)
		if err != nil {
			return err
		}
		units = append(units, u)
	}

	var batch *pipeline.BatchResult
	if shouldUseTUI(mode, len(units)) {
		batch, err = runBatchWithUI(cmd.Context(), units, cfg, jobs)
	} else {
		batch, err = pipeline.CompileBatch(cmd.Context(), units, cfg, jobs, nil)
	}
	if err != nil {
		return err
	}
	failed, werr := writeResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), batch, opts)
	if werr != nil {
		return werr
	}
	if failed > 0 {
		dumpRing()
		return fmt.Errorf("%d of %d units failed", failed, len(units))
	}
	return nil
}

// writeResults prints diagnostics and IR in input order and returns how
// many units failed.
func writeResults(out, errOut io.Writer, batch *pipeline.BatchResult, opts reportOptions) (int, error) {
	failed := 0
	for i, res := range batch.Results {
		if res == nil {
			continue
		}
		if err := writeDiagnostics(errOut, res, opts); err != nil {
			return failed, err
		}
		if uerr := batch.Errs[i]; uerr != nil {
			failed++
			if !errors.Is(uerr, pipeline.ErrDiagnostics) && res.Bag.Len() == 0 {
				fmt.Fprintln(errOut, "error:", uerr)
			}
			continue
		}
		if err := writeModule(out, errOut, res, opts.format, len(batch.Results) > 1); err != nil {
			return failed, err
		}
		if opts.timings {
			fmt.Fprintf(errOut, "%s %s", res.Path, res.Timing.Summary())
		}
	}
	return failed, nil
}

func writeDiagnostics(w io.Writer, res *pipeline.Result, opts reportOptions) error {
	if res.Bag.Len() == 0 {
		return nil
	}
	switch opts.diagnostics {
	case "json":
		return diagfmt.JSON(w, res.Bag, res.Files, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: opts.notes})
	case "short":
		if s := diag.FormatGoldenDiagnostics(res.Bag.Items(), res.Files, opts.notes); s != "" {
			fmt.Fprintln(w, s)
		}
		return nil
	}
	diagfmt.Pretty(w, res.Bag, res.Files, diagfmt.PrettyOpts{Color: opts.color, Context: 1, ShowNotes: opts.notes})
	return nil
}

func writeModule(out, errOut io.Writer, res *pipeline.Result, format string, header bool) error {
	if format == "msgpack" {
		path := msgpackPath(res.Path)
		if err := writeMsgpack(path, res.Module); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "wrote %s\n", path)
		return nil
	}
	if header {
		fmt.Fprintf(out, "// %s\n", res.Path)
	}
	return ir.Dump(out, res.Module)
}

func msgpackPath(input string) string {
	return strings.TrimSuffix(input, ".json") + ".msgpack"
}

func writeMsgpack(path string, m *ir.Module) error {
	var buf bytes.Buffer
	if err := ir.Encode(&buf, m); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
