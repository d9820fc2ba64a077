package combine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rejig/filters/combine"
	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/node"
	"github.com/vk/rejig/internal/parser"
)

func apply(t *testing.T, n *node.Node) *node.Node {
	t.Helper()
	chain := []filter.Filter{combine.New()}
	pc := filter.NewContext(context.Background(), chain, config.Default(), parser.New(), "test.rj")
	out, err := pc.Apply(n)
	require.NoError(t, err)
	return out
}

func constRef(name string) *node.Node {
	return node.New("const", nil, name)
}

func TestMergesReopenedModules(t *testing.T) {
	in := node.New("begin",
		node.New("module", constRef("Foo"),
			node.New("def", "a", []any{}, nil)),
		node.New("module", constRef("Foo"),
			node.New("def", "b", []any{}, nil)),
	)
	want := node.New("module", constRef("Foo"),
		node.New("begin",
			node.New("def", "a", []any{}, nil),
			node.New("def", "b", []any{}, nil),
		),
	)
	assert.True(t, node.Equal(apply(t, in), want))
}

func TestPreservesInterleavedStatements(t *testing.T) {
	in := node.New("begin",
		node.New("module", constRef("Foo"), node.New("def", "a", []any{}, nil)),
		node.New("lvasgn", "x", node.New("int", 1)),
		node.New("module", constRef("Foo"), node.New("def", "b", []any{}, nil)),
	)
	out := apply(t, in)
	require.Equal(t, "begin", out.Tag)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "module", out.NodeChild(0).Tag)
	assert.Equal(t, "lvasgn", out.NodeChild(1).Tag)
}

func TestKindMismatchNotMerged(t *testing.T) {
	in := node.New("begin",
		node.New("module", constRef("Foo"), nil),
		node.New("class", constRef("Foo"), nil, nil),
	)
	out := apply(t, in)
	require.Equal(t, 2, out.Len())
}

func TestQualifiedNamesDoNotCollide(t *testing.T) {
	// `Outer::Inner` reopened at top level must not merge with a distinct
	// top-level `Inner`.
	in := node.New("begin",
		node.New("module", node.New("const", constRef("Outer"), "Inner"), nil),
		node.New("module", constRef("Inner"), nil),
	)
	out := apply(t, in)
	require.Equal(t, 2, out.Len())
}

func TestFirstNonEmptySuperclassWins(t *testing.T) {
	in := node.New("begin",
		node.New("class", constRef("A"), nil, nil),
		node.New("class", constRef("A"), constRef("Base"), nil),
	)
	out := apply(t, in)
	require.Equal(t, "class", out.Tag)
	assert.True(t, node.Equal(out.Child(1), constRef("Base")))
}

func TestStaticFieldsHoistedInMergedBody(t *testing.T) {
	in := node.New("begin",
		node.New("class", constRef("C"), nil,
			node.New("def", "m", []any{}, nil)),
		node.New("class", constRef("C"), nil,
			node.New("cvasgn", "count", node.New("int", 0))),
	)
	out := apply(t, in)
	require.Equal(t, "class", out.Tag)
	body, ok := out.Child(2).(*node.Node)
	require.True(t, ok)
	require.Equal(t, "begin", body.Tag)
	assert.Equal(t, "cvasgn", body.NodeChild(0).Tag)
	assert.Equal(t, "def", body.NodeChild(1).Tag)
}

func TestNestedDeclarationsMergeRecursively(t *testing.T) {
	in := node.New("begin",
		node.New("module", constRef("Outer"),
			node.New("module", constRef("Inner"), node.New("def", "a", []any{}, nil))),
		node.New("module", constRef("Outer"),
			node.New("module", constRef("Inner"), node.New("def", "b", []any{}, nil))),
	)
	out := apply(t, in)
	require.Equal(t, "module", out.Tag)
	inner, ok := out.Child(1).(*node.Node)
	require.True(t, ok)
	require.Equal(t, "module", inner.Tag)
	body, ok := inner.Child(1).(*node.Node)
	require.True(t, ok)
	require.Equal(t, 2, body.Len())
}

func TestImportsMergedByPath(t *testing.T) {
	in := node.New("begin",
		node.New("import", "./a", []any{"A"}),
		node.New("lvasgn", "x", node.New("int", 1)),
		node.New("import", "./a", []any{"A", "B"}),
	)
	out := apply(t, in)
	require.Equal(t, 2, out.Len())
	imp := out.NodeChild(0)
	require.Equal(t, "import", imp.Tag)
	assert.Equal(t, []any{"A", "B"}, imp.Child(1))
}

func TestNamedImportBeatsBareImport(t *testing.T) {
	in := node.New("begin",
		node.New("import", "./a", []any{}),
		node.New("import", "./a", []any{"A"}),
	)
	out := apply(t, in)
	require.Equal(t, "import", out.Tag)
	assert.Equal(t, []any{"A"}, out.Child(1))
}

func TestFlattensNestedSequences(t *testing.T) {
	in := node.New("begin",
		node.New("begin",
			node.New("lvasgn", "x", node.New("int", 1)),
			node.New("lvasgn", "y", node.New("int", 2)),
		),
		node.New("lvasgn", "z", node.New("int", 3)),
	)
	out := apply(t, in)
	require.Equal(t, 3, out.Len())
}

func TestEmptyResultRemovesSequence(t *testing.T) {
	in := node.New("begin",
		node.New("begin"),
		node.New("begin"),
	)
	assert.Nil(t, apply(t, in))
}

func TestSingleStatementSequenceUntouched(t *testing.T) {
	in := node.New("begin", node.New("lvasgn", "x", node.New("int", 1)))
	out := apply(t, in)
	assert.True(t, node.Equal(out, in))
}
