// Package shift disambiguates the left-shift operator through pragmas.
// `a << b` means append for collections and concatenation for strings;
// the source form alone cannot tell the two apart, so the author marks
// the line and this filter rewrites accordingly.
package shift

import (
	"github.com/vk/rejig/internal/ctxlog"
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/node"
	"github.com/vk/rejig/internal/pragma"
)

type Filter struct{}

// New creates the shift disambiguation filter.
func New() *Filter {
	return &Filter{}
}

// Name implements filter.Filter.
func (f *Filter) Name() string { return "shift" }

// Process rewrites one shift expression according to the pragma on its line.
func (f *Filter) Process(pc *filter.Context, n *node.Node) (*node.Node, bool, error) {
	if n.Tag != "shift" || n.Len() != 2 {
		return nil, false, nil
	}

	lhs, err := applyOperand(pc, n.Child(0))
	if err != nil {
		return nil, false, err
	}
	rhs, err := applyOperand(pc, n.Child(1))
	if err != nil {
		return nil, false, err
	}

	switch f.mode(pc, n) {
	case pragma.Array:
		return node.New("send", lhs, "push", rhs).At(n.Loc), true, nil
	case pragma.String:
		return node.New("opasgn", lhs, "+", rhs).At(n.Loc), true, nil
	}
	return n.WithChildren(lhs, rhs), true, nil
}

// mode picks the rewrite for a shift node: a line pragma wins, then the
// filter's configured default, and otherwise the operator is left alone.
func (f *Filter) mode(pc *filter.Context, n *node.Node) pragma.Directive {
	if pc.Pragmas.Has(n, pragma.Array) {
		return pragma.Array
	}
	if pc.Pragmas.Has(n, pragma.String) {
		return pragma.String
	}

	var fallback string
	if _, err := pc.Options.DecodeOption(f.Name(), "default_mode", &fallback); err != nil {
		ctxlog.FromContext(pc.Ctx()).Warn("Ignoring invalid default_mode option.", "error", err)
		return pragma.Invalid
	}
	switch fallback {
	case "array":
		return pragma.Array
	case "string":
		return pragma.String
	}
	return pragma.Invalid
}

func applyOperand(pc *filter.Context, child any) (any, error) {
	n, ok := child.(*node.Node)
	if !ok {
		return child, nil
	}
	out, err := pc.Apply(n)
	if err != nil {
		return nil, err
	}
	return out, nil
}
