package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the profile looked up when no --config flag is given.
const DefaultFile = ".cogstyle.yaml"

// TargetVersion is the Python syntax level the pipeline targets.
type TargetVersion string

var SupportedTargets = []TargetVersion{
	"py36", "py37", "py38", "py39", "py310", "py311",
}

// Config is the style profile shared by every pipeline stage. One loaded
// value feeds the pruner, sorter, formatter and linter, so the stages can
// never disagree on line length or target version.
type Config struct {
	LineLength    int           `yaml:"line_length"`
	TargetVersion TargetVersion `yaml:"target_version"`
	Extensions    []string      `yaml:"extensions"`
	Prune         PruneConfig   `yaml:"prune"`
	Sort          SortConfig    `yaml:"sort"`
	Lint          LintConfig    `yaml:"lint"`
	Exclude       []string      `yaml:"exclude"`
}

// PruneConfig controls the unused-import pruner.
type PruneConfig struct {
	// Preserve lists top-level modules whose imports are never removed,
	// even when no name in the file references them. The bot host loads
	// cog packages reflectively, so these imports are used at runtime
	// without appearing in the file's text.
	Preserve []string `yaml:"preserve"`
	// KeepInitImports leaves every import in an __init__.py alone; those
	// files exist to re-export names.
	KeepInitImports bool `yaml:"keep_init_imports"`
}

// SortConfig controls import classification for the sorter.
type SortConfig struct {
	// ExtraStandardLibrary names modules sorted into the stdlib section
	// despite not shipping with the core distribution (typing_extensions
	// being the usual case).
	ExtraStandardLibrary []string `yaml:"extra_standard_library"`
	KnownFirstParty      []string `yaml:"known_first_party"`
}

// LintConfig selects which rule-code prefixes the lint command enables.
type LintConfig struct {
	Select []string `yaml:"select"`
}

// Default returns the built-in profile used when no config file exists.
func Default() *Config {
	return &Config{
		LineLength:    99,
		TargetVersion: "py38",
		Extensions:    []string{".py", ".pyi"},
		Prune: PruneConfig{
			Preserve:        []string{"discord", "redbot"},
			KeepInitImports: true,
		},
		Sort: SortConfig{
			ExtraStandardLibrary: []string{"typing_extensions"},
		},
		Lint: LintConfig{
			Select: []string{"E9", "F7", "F82"},
		},
		Exclude: []string{".git", "__pycache__", ".venv", "venv", "build", "dist"},
	}
}

// Load reads and parses the profile file. A missing DefaultFile is not an
// error; the built-in defaults apply. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultFile {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the profile for errors.
func (c *Config) Validate() error {
	if c.LineLength <= 0 {
		return fmt.Errorf("line_length must be positive, got %d", c.LineLength)
	}
	if !slices.Contains(SupportedTargets, c.TargetVersion) {
		return fmt.Errorf("unsupported target_version: %s", c.TargetVersion)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension must start with a dot: %s", ext)
		}
	}
	return nil
}

// MatchesExtension reports whether path has one of the configured source
// extensions.
func (c *Config) MatchesExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Excluded reports whether path sits under one of the excluded directories.
func (c *Config) Excluded(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts[:len(parts)-1] {
		if slices.Contains(c.Exclude, part) {
			return true
		}
	}
	return false
}

// RuleEnabled reports whether a lint rule code is covered by the selected
// prefixes, e.g. F821 matches the F82 selection.
func (c *Config) RuleEnabled(code string) bool {
	for _, prefix := range c.Lint.Select {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
