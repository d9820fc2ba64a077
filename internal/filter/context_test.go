package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/node"
)

// funcFilter adapts a closure into a Filter for tests.
type funcFilter struct {
	name string
	fn   func(pc *Context, n *node.Node) (*node.Node, bool, error)
}

func (f *funcFilter) Name() string { return f.name }

func (f *funcFilter) Process(pc *Context, n *node.Node) (*node.Node, bool, error) {
	return f.fn(pc, n)
}

func newTestContext(t *testing.T, chain ...Filter) *Context {
	t.Helper()
	return NewContext(context.Background(), chain, config.Default(), nil, "main.rj")
}

func TestDispatchFirstMatchWins(t *testing.T) {
	var order []string
	first := &funcFilter{name: "first", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		order = append(order, "first")
		if n.Tag == "target" {
			return node.New("rewritten"), true, nil
		}
		return nil, false, nil
	}}
	second := &funcFilter{name: "second", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		order = append(order, "second")
		if n.Tag == "target" {
			return node.New("wrong"), true, nil
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, first, second)
	out, err := pc.Apply(node.New("target"))
	require.NoError(t, err)
	assert.Equal(t, "rewritten", out.Tag)
	assert.Equal(t, []string{"first"}, order, "second filter must not see a handled node")
}

func TestDispatchFallthrough(t *testing.T) {
	silent := &funcFilter{name: "silent", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		return nil, false, nil
	}}
	handler := &funcFilter{name: "handler", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag == "x" {
			return n.WithTag("y"), true, nil
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, silent, handler)
	out, err := pc.Apply(node.New("x"))
	require.NoError(t, err)
	assert.Equal(t, "y", out.Tag)
}

func TestDefaultFallbackDescends(t *testing.T) {
	leafRewriter := &funcFilter{name: "leaf", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag == "leaf" {
			return n.WithTag("rewritten-leaf"), true, nil
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, leafRewriter)
	tree := node.New("root",
		node.New("branch", node.New("leaf"), "scalar"),
		[]any{node.New("leaf"), 42},
	)

	out, err := pc.Apply(tree)
	require.NoError(t, err)

	want := node.New("root",
		node.New("branch", node.New("rewritten-leaf"), "scalar"),
		[]any{node.New("rewritten-leaf"), 42},
	)
	assert.True(t, node.Equal(want, out), "got %s", out)
}

func TestDefaultFallbackPreservesUntouchedNode(t *testing.T) {
	pc := newTestContext(t, &funcFilter{name: "noop", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		return nil, false, nil
	}})

	tree := node.New("root", node.New("leaf"), "s")
	out, err := pc.Apply(tree)
	require.NoError(t, err)
	assert.Same(t, tree, out, "an untouched tree is returned as-is, not reconstructed")
}

func TestRestDelegatesToRemainder(t *testing.T) {
	tagger := &funcFilter{name: "tagger", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag != "stmt" {
			return nil, false, nil
		}
		// Inspect, then let the rest of the chain decide the rewrite.
		out, err := pc.Rest(n)
		if err != nil {
			return nil, false, err
		}
		if out == nil {
			return nil, true, nil
		}
		return out.WithTag("tagged-" + out.Tag), true, nil
	}}
	lower := &funcFilter{name: "lower", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag == "stmt" {
			return n.WithTag("lowered"), true, nil
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, tagger, lower)
	out, err := pc.Apply(node.New("stmt"))
	require.NoError(t, err)
	assert.Equal(t, "tagged-lowered", out.Tag)
}

func TestRestDoesNotReenterEarlierFilters(t *testing.T) {
	calls := 0
	top := &funcFilter{name: "top", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag != "stmt" {
			return nil, false, nil
		}
		calls++
		if calls > 1 {
			return nil, false, errors.New("re-entered")
		}
		out, err := pc.Rest(n)
		return out, true, err
	}}

	pc := newTestContext(t, top)
	_, err := pc.Apply(node.New("stmt"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNilReplacementRemovesNode(t *testing.T) {
	dropper := &funcFilter{name: "dropper", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag == "doomed" {
			return nil, true, nil
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, dropper)
	out, err := pc.Apply(node.New("begin", node.New("doomed"), node.New("kept")))
	require.NoError(t, err)
	assert.True(t, node.Equal(node.New("begin", node.New("kept")), out), "got %s", out)
}

func TestErrorAbortsTraversal(t *testing.T) {
	boom := errors.New("boom")
	failing := &funcFilter{name: "failing", fn: func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		if n.Tag == "bad" {
			return nil, false, boom
		}
		return nil, false, nil
	}}

	pc := newTestContext(t, failing)
	_, err := pc.Apply(node.New("root", node.New("bad"), node.New("good")))
	assert.ErrorIs(t, err, boom)
}

// TestTraversalScopedState exercises the save/restore discipline: a filter
// tracking "am I inside a box" must see correct state even when boxes nest
// and when siblings follow a nested box.
func TestTraversalScopedState(t *testing.T) {
	type boxFilter struct {
		funcFilter
		depth int
	}
	bf := &boxFilter{}
	bf.name = "box"
	bf.fn = func(pc *Context, n *node.Node) (*node.Node, bool, error) {
		switch n.Tag {
		case "box":
			bf.depth++
			defer func() { bf.depth-- }()
			inner, err := pc.descend(n)
			if err != nil {
				return nil, false, err
			}
			return inner, true, nil
		case "probe":
			return node.New("probe", bf.depth), true, nil
		}
		return nil, false, nil
	}

	pc := newTestContext(t, &bf.funcFilter)
	tree := node.New("begin",
		node.New("probe"),
		node.New("box",
			node.New("probe"),
			node.New("box", node.New("probe")),
			node.New("probe"),
		),
		node.New("probe"),
	)

	out, err := pc.Apply(tree)
	require.NoError(t, err)

	want := node.New("begin",
		node.New("probe", 0),
		node.New("box",
			node.New("probe", 1),
			node.New("box", node.New("probe", 2)),
			node.New("probe", 1),
		),
		node.New("probe", 0),
	)
	assert.True(t, node.Equal(want, out), "got %s", out)
}

func TestFileContextStack(t *testing.T) {
	pc := newTestContext(t)
	assert.Equal(t, "main.rj", pc.File())
	assert.Equal(t, ".", pc.Base())

	restore := pc.PushFile("lib/util.rj")
	assert.Equal(t, "lib/util.rj", pc.File())
	assert.Equal(t, "lib", pc.Base())

	nested := pc.PushFile("lib/deep/more.rj")
	assert.Equal(t, "lib/deep", pc.Base())
	nested()

	assert.Equal(t, "lib/util.rj", pc.File())
	assert.Equal(t, "lib", pc.Base())
	restore()

	assert.Equal(t, "main.rj", pc.File())
	assert.Equal(t, ".", pc.Base())
}

func TestMarkInlined(t *testing.T) {
	pc := newTestContext(t)
	assert.True(t, pc.MarkInlined("/abs/a.rj"), "first inclusion")
	assert.False(t, pc.MarkInlined("/abs/a.rj"), "duplicate inclusion")
	assert.True(t, pc.MarkInlined("/abs/b.rj"))
}
