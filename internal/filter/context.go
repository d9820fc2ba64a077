package filter

import (
	"context"
	"path/filepath"

	"github.com/vk/rejig/internal/annotations"
	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/ctxlog"
	"github.com/vk/rejig/internal/fsutil"
	"github.com/vk/rejig/internal/node"
	"github.com/vk/rejig/internal/pragma"
)

// Parser is the source-parser collaborator. It must attach source positions
// to every node it creates and report leading comments through the returned
// contribution.
type Parser interface {
	Parse(src []byte, file string) (*node.Node, *annotations.Contribution, error)
}

// Context carries the pipeline state shared by every filter during one
// compilation run: the resolved chain, the annotation store and pragma
// index, the configuration model, and the cross-file processing state used
// by the require filter. It is single-threaded; filters must not retain it
// past the run.
type Context struct {
	Store   *annotations.Store
	Pragmas *pragma.Index
	Options *config.Model
	Parser  Parser

	ctx   context.Context
	chain []Filter
	pos   int

	file      string
	baseStack []string
	inlined   map[string]bool
}

// NewContext assembles a pipeline context for one compilation of the given
// entry file. The chain must already be order-resolved.
func NewContext(ctx context.Context, chain []Filter, opts *config.Model, p Parser, entryFile string) *Context {
	store := annotations.NewStore()

	// The entry file counts as already inlined, so a require cycle leading
	// back to it collapses to a no-op like any other duplicate inclusion.
	inlined := make(map[string]bool)
	if canonical, err := fsutil.CanonicalPath(entryFile); err == nil {
		inlined[canonical] = true
	}

	return &Context{
		Store:     store,
		Pragmas:   pragma.NewIndex(store),
		Options:   opts,
		Parser:    p,
		ctx:       ctx,
		chain:     chain,
		pos:       -1,
		file:      entryFile,
		baseStack: []string{filepath.Dir(entryFile)},
		inlined:   inlined,
	}
}

// Ctx returns the run's context.Context, carrying the logger.
func (pc *Context) Ctx() context.Context { return pc.ctx }

// Chain returns the resolved chain, in execution order.
func (pc *Context) Chain() []Filter { return pc.chain }

// Apply runs the full chain on a node and returns the rewritten result. A
// nil result means the node was removed. This is also the entry point for
// filters recursing into children they keep.
func (pc *Context) Apply(n *node.Node) (*node.Node, error) {
	return pc.applyFrom(n, 0)
}

// Rest delegates the same node to the remainder of the chain after the
// currently running filter, equivalent to "no opinion, try next" but usable
// after the filter has already inspected or partially rewritten the node.
func (pc *Context) Rest(n *node.Node) (*node.Node, error) {
	return pc.applyFrom(n, pc.pos+1)
}

func (pc *Context) applyFrom(n *node.Node, from int) (*node.Node, error) {
	if n == nil {
		return nil, nil
	}
	for i := from; i < len(pc.chain); i++ {
		saved := pc.pos
		pc.pos = i
		out, handled, err := pc.chain[i].Process(pc, n)
		pc.pos = saved
		if err != nil {
			return nil, err
		}
		if handled {
			return out, nil
		}
	}
	return pc.descend(n)
}

// descend is the default fallback: apply the whole chain to each child and
// reconstruct the node with the rewritten children. Scalar children pass
// through; list children are mapped elementwise; nil node results are
// dropped from the reconstructed sequence.
func (pc *Context) descend(n *node.Node) (*node.Node, error) {
	kids := make([]any, 0, len(n.Children))
	anyChanged := false
	for _, c := range n.Children {
		out, removed, changed, err := pc.applyChild(c)
		if err != nil {
			return nil, err
		}
		anyChanged = anyChanged || changed
		if removed {
			continue
		}
		kids = append(kids, out)
	}
	if !anyChanged {
		return n, nil
	}
	return n.WithChildren(kids...), nil
}

func (pc *Context) applyChild(c any) (out any, removed, changed bool, err error) {
	switch v := c.(type) {
	case *node.Node:
		res, err := pc.Apply(v)
		if err != nil {
			return nil, false, false, err
		}
		if res == nil {
			return nil, true, true, nil
		}
		return res, false, res != v, nil
	case []any:
		list := make([]any, 0, len(v))
		anyChanged := false
		for _, el := range v {
			o, rm, ch, err := pc.applyChild(el)
			if err != nil {
				return nil, false, false, err
			}
			anyChanged = anyChanged || ch
			if rm {
				continue
			}
			list = append(list, o)
		}
		if !anyChanged {
			return v, false, false, nil
		}
		return list, false, true, nil
	default:
		return c, false, false, nil
	}
}

// File returns the identity of the currently active source file.
func (pc *Context) File() string { return pc.file }

// Base returns the directory against which relative cross-file references
// resolve. While a referenced file is being processed, this is that file's
// own directory, not the entry file's.
func (pc *Context) Base() string {
	return pc.baseStack[len(pc.baseStack)-1]
}

// PushFile makes file the active source context and returns a restore
// function. Callers must invoke restore (normally via defer) so the
// previous context is reinstated even when processing fails partway.
func (pc *Context) PushFile(file string) (restore func()) {
	prevFile := pc.file
	pc.file = file
	pc.baseStack = append(pc.baseStack, filepath.Dir(file))
	logger := ctxlog.FromContext(pc.ctx)
	logger.Debug("Entering file context.", "file", file, "depth", len(pc.baseStack))

	return func() {
		pc.file = prevFile
		pc.baseStack = pc.baseStack[:len(pc.baseStack)-1]
		logger.Debug("Restored file context.", "file", prevFile)
	}
}

// MarkInlined records a canonical path as inlined and reports whether this
// is its first inclusion. The set persists for the whole compilation;
// duplicate and cyclic inclusions observe false.
func (pc *Context) MarkInlined(canonical string) bool {
	if pc.inlined[canonical] {
		return false
	}
	pc.inlined[canonical] = true
	return true
}
