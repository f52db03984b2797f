package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ember/internal/config"
)

// loadSettings reads ember.toml, from --config or searched upward from
// the first input, and applies the command-line overrides on top.
func loadSettings(cmd *cobra.Command, inputs []string) (config.Config, error) {
	root := cmd.Root().PersistentFlags()
	path, err := root.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case len(inputs) > 0:
		cfg, err = config.Load(filepath.Dir(inputs[0]))
	default:
		cfg, err = config.Load(".")
	}
	if err != nil {
		return config.Config{}, err
	}

	if c, err := root.GetString("color"); err == nil && c != "" {
		cfg.Output.Color = strings.ToLower(c)
	}
	if f := root.Lookup("max-diagnostics"); f != nil && f.Changed {
		n, err := root.GetInt("max-diagnostics")
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		cfg.Compile.MaxDiagnostics = n
	}
	local := cmd.Flags()
	if changed(cmd, "O0") {
		if off, _ := local.GetBool("O0"); off {
			cfg.Compile.Optimize = false
		}
	}
	if changed(cmd, "verify-ir") {
		cfg.Compile.Debug, _ = local.GetBool("verify-ir")
	}
	if changed(cmd, "strict") {
		cfg.Compile.Strict, _ = local.GetBool("strict")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// useColor resolves the auto|on|off color setting for stderr.
func useColor(setting string) bool {
	switch setting {
	case "on":
		return true
	case "off":
		return false
	default:
		return !color.NoColor && isTerminal(os.Stderr)
	}
}
