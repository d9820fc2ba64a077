// Package require implements the cross-file inlining filter: a `require`
// statement is replaced by the referenced file's fully rewritten tree.
package require

import (
	"fmt"
	"os"

	"github.com/vk/rejig/internal/ctxlog"
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/fsutil"
	"github.com/vk/rejig/internal/node"
	"github.com/vk/rejig/internal/pragma"
)

// Filter resolves and splices cross-file references. Duplicate and cyclic
// inclusions are detected through canonical paths and collapse to no-ops;
// an unresolvable reference aborts the compilation.
type Filter struct{}

// New creates the require filter.
func New() *Filter {
	return &Filter{}
}

// Name implements filter.Filter.
func (f *Filter) Name() string { return "require" }

// Process inlines one require statement.
func (f *Filter) Process(pc *filter.Context, n *node.Node) (*node.Node, bool, error) {
	if n.Tag != "require" {
		return nil, false, nil
	}
	ref, _ := n.Child(0).(string)
	logger := ctxlog.FromContext(pc.Ctx())

	// A skip pragma on the line keeps the reference as a runtime import
	// instead of inlining it.
	if pc.Pragmas.Has(n, pragma.Skip) {
		logger.Debug("Skipping inlining per pragma.", "ref", ref)
		return node.New("import", ref, []any{}).At(n.Loc), true, nil
	}

	resolved, err := fsutil.ResolveReference(ref, pc.Base(),
		pc.Options.Pipeline.SourceExt, pc.Options.Pipeline.ConvertExt)
	if err != nil {
		return nil, false, fmt.Errorf("%s: unresolvable require: %w", n.Loc, err)
	}

	canonical, err := fsutil.CanonicalPath(resolved)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", n.Loc, err)
	}
	if !pc.MarkInlined(canonical) {
		// Second and later inclusions are deduplication, not an error.
		logger.Debug("Duplicate inclusion collapsed to no-op.", "path", canonical)
		return node.New("begin").At(n.Loc), true, nil
	}

	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to read %q: %w", n.Loc, resolved, err)
	}
	tree, contrib, err := pc.Parser.Parse(src, resolved)
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to parse required file: %w", n.Loc, err)
	}
	pc.Store.Merge(contrib)

	logger.Debug("Inlining required file.", "ref", ref, "path", resolved)

	// Nested references inside the inlined file resolve relative to that
	// file's own directory; the context is restored even on error.
	restore := pc.PushFile(resolved)
	defer restore()

	out, err := pc.Apply(tree)
	if err != nil {
		return nil, false, err
	}
	return unwrapSingle(out), true, nil
}

// unwrapSingle removes the parser's root sequence wrapper when the inlined
// file contributed a single statement, so splicing does not bury
// declarations in one-element sub-sequences.
func unwrapSingle(n *node.Node) *node.Node {
	if n != nil && n.Tag == "begin" && n.Len() == 1 {
		if only, ok := n.Child(0).(*node.Node); ok {
			return only
		}
	}
	return n
}
