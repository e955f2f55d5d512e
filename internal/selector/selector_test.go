package selector

import (
	"testing"

	"cogstyle/pkg/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"empty output", "", []string{}},
		{"whitespace only", "  \n\t\n", nil},
		{"single file", "cogs/rift/rift.py\n", []string{"cogs/rift/rift.py"}},
		{
			"multiple files with blanks",
			"a.py\n\n  b.py  \nc.py\n",
			[]string{"a.py", "b.py", "c.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLines(tt.output))
		})
	}
}

func TestFilter(t *testing.T) {
	sel := New(config.Default(), zap.NewNop())

	in := []string{
		"cogs/rift/rift.py",
		"cogs/rift/rift.py", // duplicate
		"README.md",
		"stubs/discord.pyi",
		".venv/lib/site.py",
		"pkg/__pycache__/mod.py",
		"",
		"setup.py",
	}
	want := []string{
		"cogs/rift/rift.py",
		"stubs/discord.pyi",
		"setup.py",
	}
	assert.Equal(t, want, sel.Filter(in))
}

func TestSelect_ExplicitPathsBypassGit(t *testing.T) {
	sel := New(config.Default(), zap.NewNop())

	got, err := sel.Select([]string{"a.py", "b.md", "a.py"}, false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, got)
}
