package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/pipeline"
)

var emitCmd = &cobra.Command{
	Use:   "emit <file.json> -o <out.msgpack>",
	Short: "Write the lowered IR of a file as a msgpack handoff artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringP("output", "o", "", "artifact path (default: input with .msgpack extension)")
	emitCmd.Flags().Bool("O0", false, "disable the optimizer")
	emitCmd.Flags().Bool("verify-ir", false, "validate the IR after every pass")
}

func runEmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if out == "" {
		out = msgpackPath(args[0])
	}
	u, err := pipeline.LoadUnit(args[0])
	if err != nil {
		return err
	}
	res, err := pipeline.Compile(cmd.Context(), u, cfg)
	if werr := writeDiagnostics(cmd.ErrOrStderr(), res, reportOptions{diagnostics: "pretty", color: useColor(cfg.Output.Color)}); werr != nil {
		return werr
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrDiagnostics) {
			return fmt.Errorf("%s: not emitted", u.Path)
		}
		return err
	}
	return writeMsgpack(out, res.Module)
}
