package pragma

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/rejig/internal/annotations"
	"github.com/vk/rejig/internal/node"
)

func indexWith(comments map[annotations.Key][]string) *Index {
	store := annotations.NewStore()
	for k, texts := range comments {
		for _, text := range texts {
			store.Append(k.File, k.Line, text)
		}
	}
	return NewIndex(store)
}

func TestGrammar(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    bool
	}{
		{"canonical form", "# Pragma: array", true},
		{"case insensitive", "# PRAGMA: ARRAY", true},
		{"no space after hash", "#Pragma:array", true},
		{"embedded in prose", "# note to self — Pragma: array here", true},
		{"unknown name ignored", "# Pragma: blorp", false},
		{"not a pragma", "# plain comment", false},
		{"name must follow colon", "# Pragma array", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := indexWith(map[annotations.Key][]string{
				{File: "a.rj", Line: 5}: {tt.comment},
			})
			assert.Equal(t, tt.want, ix.HasAt("a.rj", 5, Array))
		})
	}
}

func TestLineScoping(t *testing.T) {
	// Two adjacent statements, only the first line annotated: the second
	// must not observe the directive.
	ix := indexWith(map[annotations.Key][]string{
		{File: "a.rj", Line: 1}: {"# Pragma: array"},
	})

	first := node.New("shift", "a", "b").At(&node.Loc{File: "a.rj", Line: 1})
	second := node.New("shift", "a", "b").At(&node.Loc{File: "a.rj", Line: 2})

	assert.True(t, ix.Has(first, Array))
	assert.False(t, ix.Has(second, Array))
}

func TestFileScoping(t *testing.T) {
	ix := indexWith(map[annotations.Key][]string{
		{File: "a.rj", Line: 1}: {"# Pragma: array"},
		{File: "b.rj", Line: 1}: {"# Pragma: string"},
	})

	assert.True(t, ix.HasAt("a.rj", 1, Array))
	assert.False(t, ix.HasAt("a.rj", 1, String))
	assert.True(t, ix.HasAt("b.rj", 1, String))
}

func TestLegacyNoFileFallback(t *testing.T) {
	ix := indexWith(map[annotations.Key][]string{
		{File: "", Line: 4}:     {"# Pragma: string"},
		{File: "a.rj", Line: 7}: {"# Pragma: array"},
	})

	// No qualified entry for (a.rj, 4): the bare-line key answers.
	assert.True(t, ix.HasAt("a.rj", 4, String))

	// A qualified entry exists for (a.rj, 7): it is authoritative even for
	// directives it does not carry.
	assert.False(t, ix.HasAt("a.rj", 7, String))
	assert.True(t, ix.HasAt("a.rj", 7, Array))
}

func TestNodesWithoutLocation(t *testing.T) {
	ix := indexWith(map[annotations.Key][]string{
		{File: "a.rj", Line: 1}: {"# Pragma: array"},
	})

	assert.False(t, ix.Has(node.New("shift", "a", "b"), Array))
	assert.False(t, ix.Has(nil, Array))
}

func TestIncrementalScan(t *testing.T) {
	store := annotations.NewStore()
	store.Append("a.rj", 1, "# Pragma: array")
	ix := NewIndex(store)

	assert.True(t, ix.HasAt("a.rj", 1, Array))

	// Entries appended after the first lookup (an inlined file's
	// contribution) are picked up by the next lookup.
	store.Append("lib.rj", 2, "# Pragma: string")
	assert.True(t, ix.HasAt("lib.rj", 2, String))

	// Earlier answers remain valid.
	assert.True(t, ix.HasAt("a.rj", 1, Array))
}

func TestMultipleDirectivesOneLine(t *testing.T) {
	ix := indexWith(map[annotations.Key][]string{
		{File: "a.rj", Line: 1}: {"# Pragma: array # Pragma: skip"},
	})

	assert.True(t, ix.HasAt("a.rj", 1, Array))
	assert.True(t, ix.HasAt("a.rj", 1, Skip))
	assert.False(t, ix.HasAt("a.rj", 1, String))
}
