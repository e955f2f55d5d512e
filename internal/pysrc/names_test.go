package pysrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectNames(t *testing.T, content string) *NameInfo {
	t.Helper()
	parser, err := NewParser()
	require.NoError(t, err)

	src := []byte(content)
	tree, err := parser.Parse(src)
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	return CollectNames(tree.RootNode(), src)
}

func TestCollectNames_ReferencesAndBindings(t *testing.T) {
	info := collectNames(t, `import os

VALUE = os.getenv("HOME")

def handler(payload, retries=3):
    result = payload.strip()
    return result
`)

	// os is referenced once; the import clause itself does not count.
	assert.Equal(t, 1, info.Refs["os"])
	// Attribute names never count as references.
	assert.Zero(t, info.Refs["getenv"])
	assert.Zero(t, info.Refs["strip"])

	assert.True(t, info.Bindings["VALUE"])
	assert.True(t, info.Bindings["handler"])
	assert.True(t, info.Bindings["payload"])
	assert.True(t, info.Bindings["retries"])
	assert.True(t, info.Bindings["result"])

	// result is read once by the return statement.
	assert.Equal(t, 1, info.Refs["result"])
	assert.Equal(t, 1, info.Refs["payload"])
}

func TestCollectNames_TargetsAreBindings(t *testing.T) {
	info := collectNames(t, `for item in collection:
    use(item)

with open(path) as handle:
    handle.read()

try:
    pass
except ValueError as exc:
    raise exc
`)

	assert.True(t, info.Bindings["item"])
	assert.True(t, info.Bindings["handle"])
	assert.True(t, info.Bindings["exc"])
	// The iterated collection and the path are plain references.
	assert.Equal(t, 1, info.Refs["collection"])
	assert.Equal(t, 1, info.Refs["path"])
}

func TestCollectNames_KeywordArgumentNames(t *testing.T) {
	info := collectNames(t, "configure(timeout=30, retries=limit)\n")

	assert.Zero(t, info.Refs["timeout"])
	assert.Zero(t, info.Refs["retries"])
	assert.Equal(t, 1, info.Refs["limit"])
	assert.Equal(t, 1, info.Refs["configure"])
}

func TestCollectNames_DunderAll(t *testing.T) {
	info := collectNames(t, `from .core import setup

__all__ = ["setup", "version"]
`)

	assert.Equal(t, []string{"setup", "version"}, info.All)
	assert.True(t, info.Referenced("setup"))
	assert.False(t, info.Referenced("missing"))
}

func TestCollectNames_AnnotationsAreReferences(t *testing.T) {
	info := collectNames(t, `from typing import List

def f(items: List) -> List:
    return items
`)

	assert.Equal(t, 2, info.Refs["List"])
	assert.True(t, info.Bindings["items"])
}
