// Package filter defines the transformation chain: the Filter interface
// every pass implements, the ordering constraints a pass may declare, and
// the Context that dispatches nodes through the chain.
//
// Dispatch is first-match-with-explicit-fallthrough: for a given node the
// chain is tried in order, and the first filter that reports it handled the
// node terminates that node's processing at this chain position. A filter
// that handles a node is responsible for the whole subtree it keeps,
// including recursing into any children it wants rewritten, via
// Context.Apply. A filter with no opinion reports handled=false and the
// next filter is tried; when no filter matches, the default fallback
// applies the whole chain to each child and reconstructs the node.
package filter

import (
	"github.com/vk/rejig/internal/node"
)

// Filter is one composable pass of the transformation chain.
//
// Process inspects a node and either returns a replacement (handled=true) or
// declines (handled=false), letting the rest of the chain see the node. A
// handled replacement of nil removes the node from its parent. Filters that
// carry traversal-scoped state must save and restore it around every
// recursive re-entry into the chain, normally with a defer, so that nested
// same-shaped constructs cannot corrupt the enclosing state.
type Filter interface {
	// Name identifies the filter for registration, ordering constraints and
	// configuration.
	Name() string
	// Process examines one node. It must not mutate n.
	Process(pc *Context, n *node.Node) (out *node.Node, handled bool, err error)
}

// ConstraintKind distinguishes the supported ordering constraint forms.
type ConstraintKind int

const (
	// RunAfter positions the filter immediately after the single named
	// target, if that target is present.
	RunAfter ConstraintKind = iota
	// RunBefore positions the filter immediately before the single named
	// target, if that target is present.
	RunBefore
	// RunAfterLast positions the filter immediately after the last of the
	// named targets present in the chain.
	RunAfterLast
)

// Constraint is a declared partial-order requirement on chain position.
// Constraints naming absent filters are no-ops.
type Constraint struct {
	Kind    ConstraintKind
	Targets []string
}

// Constrained is implemented by filters that declare ordering constraints.
type Constrained interface {
	Constraints() []Constraint
}
