package stages

import (
	"testing"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	parser, err := pysrc.NewParser()
	require.NoError(t, err)
	return NewRegistry(parser)
}

func TestPruner_RemovesUnusedImport(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	input := `import os
import sys

print(sys.argv)
`
	want := `import sys

print(sys.argv)
`
	got, err := pruner.Apply("cog.py", input, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPruner_PartialFromImport(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	input := `from typing import List, Optional

values: List = []
`
	want := `from typing import List

values: List = []
`
	got, err := pruner.Apply("cog.py", input, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPruner_KeepsEverythingItShould(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	tests := []struct {
		name    string
		path    string
		content string
	}{
		{
			name:    "preserved module",
			path:    "cog.py",
			content: "import discord\n\nx = 1\n",
		},
		{
			name:    "preserved submodule",
			path:    "cog.py",
			content: "from redbot.core import commands\n\nx = 1\n",
		},
		{
			name:    "noqa marker",
			path:    "cog.py",
			content: "import os  # noqa\n\nx = 1\n",
		},
		{
			name: "noqa on wrapped import",
			path: "cog.py",
			content: `from typing import (  # noqa: F401
    List,
    Optional,
)

x = 1
`,
		},
		{
			name:    "wildcard import",
			path:    "cog.py",
			content: "from os.path import *\n\nx = 1\n",
		},
		{
			name:    "future import",
			path:    "cog.py",
			content: "from __future__ import annotations\n\nx = 1\n",
		},
		{
			name:    "init module",
			path:    "cogs/rift/__init__.py",
			content: "from .rift import Rift\n",
		},
		{
			name: "conditional import",
			path: "cog.py",
			content: `try:
    import ujson
except ImportError:
    ujson = None
`,
		},
		{
			name:    "exported via __all__",
			path:    "cog.py",
			content: "from .core import setup\n\n__all__ = [\"setup\"]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pruner.Apply(tt.path, tt.content, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.content, got)
		})
	}
}

func TestPruner_AliasOnlyCountsAlias(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	// numpy is unused because the binding is np.
	input := "import numpy as np\n\nx = 1\n"
	got, err := pruner.Apply("cog.py", input, cfg)
	require.NoError(t, err)
	assert.Equal(t, "\nx = 1\n", got)

	// And np used keeps it.
	used := "import numpy as np\n\nx = np.zeros(3)\n"
	got, err = pruner.Apply("cog.py", used, cfg)
	require.NoError(t, err)
	assert.Equal(t, used, got)
}

func TestPruner_SyntaxErrorLeavesContent(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	input := "import os\ndef broken(:\n"
	got, err := pruner.Apply("cog.py", input, cfg)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Equal(t, input, got)
}

func TestPruner_Idempotent(t *testing.T) {
	pruner := newTestRegistry(t).Get(StageNamePrune)
	cfg := config.Default()

	input := `import os
import sys
from typing import List, Optional

def main(args: List):
    return sys.exit(0)
`
	once, err := pruner.Apply("cog.py", input, cfg)
	require.NoError(t, err)
	twice, err := pruner.Apply("cog.py", once, cfg)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.NotContains(t, once, "import os")
	assert.NotContains(t, once, "Optional")
}
