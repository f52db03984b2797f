// Package config loads ember.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file searched for upward from the input.
const FileName = "ember.toml"

type Config struct {
	Compile   Compile   `toml:"compile"`
	Optimizer Optimizer `toml:"optimizer"`
	Output    Output    `toml:"output"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

type Compile struct {
	Optimize       bool `toml:"optimize"`
	MaxDiagnostics int  `toml:"max-diagnostics"`
	Strict         bool `toml:"strict"`
	// Debug validates the IR after every pass and aborts on the first
	// violation.
	Debug bool `toml:"debug"`
}

type Optimizer struct {
	CSE           bool `toml:"cse"`
	FoldConstants bool `toml:"fold-constants"`
	ForwardFrame  bool `toml:"forward-frame"`
	Simplify      bool `toml:"simplify"`
	EliminateDead bool `toml:"eliminate-dead"`
	SimplifyCFG   bool `toml:"simplify-cfg"`
}

type Output struct {
	Color  string `toml:"color"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Compile: Compile{
			Optimize:       true,
			MaxDiagnostics: 100,
		},
		Optimizer: Optimizer{
			CSE:           true,
			FoldConstants: true,
			ForwardFrame:  true,
			Simplify:      true,
			EliminateDead: true,
			SimplifyCFG:   true,
		},
		Output: Output{
			Color:  "auto",
			Format: "text",
		},
	}
}

// Find walks from startDir up to the filesystem root looking for
// ember.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load finds and reads the config for inputs under startDir. Missing keys
// keep their defaults; a missing file yields Default.
func Load(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Output.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("[output].color must be auto, on or off, got %q", c.Output.Color)
	}
	switch c.Output.Format {
	case "text", "msgpack":
	default:
		return fmt.Errorf("[output].format must be text or msgpack, got %q", c.Output.Format)
	}
	if c.Compile.MaxDiagnostics < 0 {
		return fmt.Errorf("[compile].max-diagnostics must not be negative")
	}
	return nil
}
