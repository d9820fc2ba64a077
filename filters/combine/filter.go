// Package combine merges the statement sequences produced by cross-file
// inlining: reopened declarations collapse into one, imports of the same
// module are unioned, and static-field initializers are hoisted to the top
// of merged bodies.
package combine

import (
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/node"
)

type Filter struct{}

// New creates the combining filter.
func New() *Filter {
	return &Filter{}
}

// Name implements filter.Filter.
func (f *Filter) Name() string { return "combine" }

// Constraints schedules combining after every producer of mergeable
// statements has run, regardless of registration order.
func (f *Filter) Constraints() []filter.Constraint {
	return []filter.Constraint{
		{Kind: filter.RunAfterLast, Targets: []string{"require", "imports"}},
	}
}

// Process merges one multi-statement sequence. Single-statement sequences
// fall through untouched, so grouping nodes survive the pipeline intact.
func (f *Filter) Process(pc *filter.Context, n *node.Node) (*node.Node, bool, error) {
	if n.Tag != "begin" || n.Len() <= 1 {
		return nil, false, nil
	}

	// Rewrite every statement under the full chain first, so inlined
	// subtrees are already spliced by the time merging keys on names.
	stmts := make([]*node.Node, 0, n.Len())
	for _, c := range n.Children {
		child, ok := c.(*node.Node)
		if !ok {
			continue
		}
		out, err := pc.Apply(child)
		if err != nil {
			return nil, false, err
		}
		if out != nil {
			stmts = append(stmts, out)
		}
	}

	stmts = mergeDecls(mergeImports(flatten(stmts)))

	switch len(stmts) {
	case 0:
		return nil, true, nil
	case 1:
		return stmts[0], true, nil
	}
	kids := make([]any, len(stmts))
	for i, s := range stmts {
		kids[i] = s
	}
	return n.WithChildren(kids...), true, nil
}

// flatten splices nested multi-statement sequences, produced by inlining,
// into the enclosing one. Empty sequences vanish; single-statement sequences
// are deliberate grouping and stay as they are.
func flatten(stmts []*node.Node) []*node.Node {
	out := make([]*node.Node, 0, len(stmts))
	for _, s := range stmts {
		if s.Tag == "begin" && s.Len() != 1 {
			for _, c := range s.Children {
				if inner, ok := c.(*node.Node); ok {
					out = append(out, flatten([]*node.Node{inner})...)
				}
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// mergeImports unions imports of the same module path into the first
// occurrence. Bindings deduplicate first-wins; a binding list always beats
// a bare side-effect import.
func mergeImports(stmts []*node.Node) []*node.Node {
	byPath := make(map[string]int)
	out := make([]*node.Node, 0, len(stmts))
	for _, s := range stmts {
		if s.Tag != "import" {
			out = append(out, s)
			continue
		}
		path, _ := s.Child(0).(string)
		i, seen := byPath[path]
		if !seen {
			byPath[path] = len(out)
			out = append(out, s)
			continue
		}
		prevNames, _ := out[i].Child(1).([]any)
		names, _ := s.Child(1).([]any)
		out[i] = out[i].WithChildren(path, unionNames(prevNames, names))
	}
	return out
}

func unionNames(a, b []any) []any {
	seen := make(map[string]bool, len(a))
	out := make([]any, 0, len(a)+len(b))
	for _, lst := range [][]any{a, b} {
		for _, name := range lst {
			if s, ok := name.(string); ok {
				if seen[s] {
					continue
				}
				seen[s] = true
			}
			out = append(out, name)
		}
	}
	return out
}

// declKey identifies a mergeable declaration: occurrences merge only when
// both the declaration kind and the fully qualified name agree.
type declKey struct {
	kind string
	name string
}

func keyFor(s *node.Node) (declKey, bool) {
	switch s.Tag {
	case "class", "module":
		name, ok := s.Child(0).(*node.Node)
		if !ok {
			return declKey{}, false
		}
		return declKey{kind: s.Tag, name: qualifiedName(name)}, true
	}
	return declKey{}, false
}

// qualifiedName renders a constant-reference chain as a dotted path, so
// `Outer::Inner` and a nested `Inner` inside `Outer` never collide.
func qualifiedName(c *node.Node) string {
	if c.Tag != "const" {
		return ""
	}
	base, _ := c.Child(1).(string)
	if scope, ok := c.Child(0).(*node.Node); ok {
		return qualifiedName(scope) + "." + base
	}
	return base
}

// mergeDecls collapses repeated declarations of the same key into the first
// occurrence, preserving the position of every non-mergeable statement.
func mergeDecls(stmts []*node.Node) []*node.Node {
	byKey := make(map[declKey]int)
	out := make([]*node.Node, 0, len(stmts))
	for _, s := range stmts {
		key, ok := keyFor(s)
		if !ok {
			out = append(out, s)
			continue
		}
		i, seen := byKey[key]
		if !seen {
			byKey[key] = len(out)
			out = append(out, s)
			continue
		}
		out[i] = mergeDecl(out[i], s)
	}
	return out
}

// mergeDecl folds a later occurrence of a declaration into the first one.
// The first non-empty superclass wins; the bodies concatenate and are merged
// recursively by the same rules, with static-field initializers hoisted to
// the front of the combined body.
func mergeDecl(first, later *node.Node) *node.Node {
	body := append(bodyStmts(first), bodyStmts(later)...)
	body = hoistStatics(mergeDecls(mergeImports(flatten(body))))

	kids := []any{first.Child(0)}
	if first.Tag == "class" {
		super := first.Child(1)
		if super == nil {
			super = later.Child(1)
		}
		kids = append(kids, super)
	}
	kids = append(kids, rewrap(body, first))
	return first.WithChildren(kids...)
}

// bodyStmts returns a declaration's body as a flat statement list. The body
// slot may hold nil, a single statement, or a sequence.
func bodyStmts(decl *node.Node) []*node.Node {
	body, ok := decl.Child(decl.Len() - 1).(*node.Node)
	if !ok {
		return nil
	}
	if body.Tag != "begin" {
		return []*node.Node{body}
	}
	out := make([]*node.Node, 0, body.Len())
	for _, c := range body.Children {
		if s, ok := c.(*node.Node); ok {
			out = append(out, s)
		}
	}
	return out
}

func rewrap(body []*node.Node, decl *node.Node) any {
	switch len(body) {
	case 0:
		return nil
	case 1:
		return body[0]
	}
	kids := make([]any, len(body))
	for i, s := range body {
		kids[i] = s
	}
	seq := node.New("begin", kids...)
	if decl.Loc != nil {
		seq = seq.At(decl.Loc)
	}
	return seq
}

// hoistStatics moves static-field initializers before all other members of a
// merged body, keeping each group's internal order.
func hoistStatics(body []*node.Node) []*node.Node {
	fields := make([]*node.Node, 0, len(body))
	rest := make([]*node.Node, 0, len(body))
	for _, s := range body {
		if s.Tag == "cvasgn" {
			fields = append(fields, s)
			continue
		}
		rest = append(rest, s)
	}
	return append(fields, rest...)
}
