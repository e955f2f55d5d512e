package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogstyle/internal/pysrc"
	"cogstyle/internal/stages"
	"cogstyle/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	parser, err := pysrc.NewParser()
	require.NoError(t, err)
	return New(stages.NewRegistry(parser), cfg, zap.NewNop())
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPipeline_CheckThenApply(t *testing.T) {
	pipeline := newTestPipeline(t, config.Default())

	messy := `import sys
import os

print(sys.argv)
`
	path := writeTemp(t, "cog.py", messy)

	// Check flags the file but leaves it untouched.
	result := pipeline.Check([]string{path}, false)
	assert.Equal(t, []string{path}, result.Changed)
	assert.Empty(t, result.Failed)
	assert.False(t, result.Ok())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, messy, string(data))

	// Apply rewrites it.
	result = pipeline.Apply([]string{path})
	assert.Equal(t, []string{path}, result.Changed)
	assert.Empty(t, result.Failed)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "import sys\n\nprint(sys.argv)\n", string(data))

	// A second check is clean, and a second apply changes nothing.
	assert.True(t, pipeline.Check([]string{path}, false).Ok())
	assert.True(t, pipeline.Apply([]string{path}).Ok())
}

func TestPipeline_StagesCompose(t *testing.T) {
	cfg := config.Default()
	cfg.LineLength = 60
	pipeline := newTestPipeline(t, cfg)

	path := writeTemp(t, "cog.py", `import json
import sys
from typing import Optional, List, Dict, Any, Tuple, Union

def main():
    print(json.dumps({'key': sys.argv}))
`)

	result := pipeline.Apply([]string{path})
	require.Empty(t, result.Failed)
	require.Equal(t, []string{path}, result.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)

	// The unused typing names are gone, imports grouped, quotes doubled.
	assert.NotContains(t, got, "Optional")
	assert.NotContains(t, got, "'key'")
	assert.Contains(t, got, "\"key\"")
	assert.True(t, strings.HasPrefix(got, "import json\nimport sys\n"))

	// Fixed point.
	assert.True(t, pipeline.Check([]string{path}, false).Ok())
}

func TestPipeline_CheckProducesDiff(t *testing.T) {
	pipeline := newTestPipeline(t, config.Default())

	path := writeTemp(t, "cog.py", "import os\nimport sys\n\nprint(sys.argv)\n")

	result := pipeline.Check([]string{path}, true)
	require.Equal(t, []string{path}, result.Changed)
	assert.Contains(t, result.Diff, "--- a/"+path)
	assert.Contains(t, result.Diff, "+++ b/"+path)
	assert.Contains(t, result.Diff, "-import os\n")
}

func TestPipeline_SyntaxErrorFailsFile(t *testing.T) {
	pipeline := newTestPipeline(t, config.Default())

	broken := "def broken(:\n    pass\n"
	path := writeTemp(t, "broken.py", broken)

	result := pipeline.Apply([]string{path})
	assert.Empty(t, result.Changed)
	require.Contains(t, result.Failed, path)
	assert.ErrorIs(t, result.Failed[path], stages.ErrSyntax)

	// Failed files are left byte-identical.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, broken, string(data))
}

func TestPipeline_MissingFileSkipped(t *testing.T) {
	pipeline := newTestPipeline(t, config.Default())

	missing := filepath.Join(t.TempDir(), "gone.py")
	result := pipeline.Check([]string{missing}, false)
	assert.Empty(t, result.Changed)
	assert.Empty(t, result.Failed)
	assert.True(t, result.Ok())
}

func TestPipeline_MixedSet(t *testing.T) {
	pipeline := newTestPipeline(t, config.Default())

	clean := writeTemp(t, "clean.py", "import sys\n\nprint(sys.argv)\n")
	dirty := writeTemp(t, "dirty.py", "x = 'one'\n")
	broken := writeTemp(t, "broken.py", "def broken(:\n")

	result := pipeline.Apply([]string{clean, dirty, broken})
	assert.Equal(t, []string{dirty}, result.Changed)
	assert.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed, broken)
}
