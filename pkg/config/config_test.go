package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 99, cfg.LineLength)
	assert.Equal(t, TargetVersion("py38"), cfg.TargetVersion)
	assert.Equal(t, []string{".py", ".pyi"}, cfg.Extensions)
	assert.Contains(t, cfg.Prune.Preserve, "discord")
	assert.True(t, cfg.Prune.KeepInitImports)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Load(DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
line_length: 120
target_version: py310
sort:
  known_first_party: [mycogs]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.LineLength)
	assert.Equal(t, TargetVersion("py310"), cfg.TargetVersion)
	assert.Equal(t, []string{"mycogs"}, cfg.Sort.KnownFirstParty)
	// Untouched fields keep their defaults.
	assert.Equal(t, []string{".py", ".pyi"}, cfg.Extensions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero line length", func(c *Config) { c.LineLength = 0 }, true},
		{"negative line length", func(c *Config) { c.LineLength = -1 }, true},
		{"unknown target", func(c *Config) { c.TargetVersion = "py27" }, true},
		{"no extensions", func(c *Config) { c.Extensions = nil }, true},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"py"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatchesExtension(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.MatchesExtension("cogs/rift/rift.py"))
	assert.True(t, cfg.MatchesExtension("stubs/discord.pyi"))
	assert.True(t, cfg.MatchesExtension("WEIRD.PY"))
	assert.False(t, cfg.MatchesExtension("Makefile"))
	assert.False(t, cfg.MatchesExtension("notes.pyc"))
}

func TestExcluded(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Excluded(".venv/lib/site.py"))
	assert.True(t, cfg.Excluded("pkg/__pycache__/mod.py"))
	assert.False(t, cfg.Excluded("cogs/rift/rift.py"))
	assert.False(t, cfg.Excluded("build.py"))
}

func TestRuleEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.RuleEnabled("E999"))
	assert.True(t, cfg.RuleEnabled("F821"))
	assert.True(t, cfg.RuleEnabled("F706"))
	assert.False(t, cfg.RuleEnabled("W291"))

	cfg.Lint.Select = []string{"E9"}
	assert.True(t, cfg.RuleEnabled("E999"))
	assert.False(t, cfg.RuleEnabled("F821"))
}
