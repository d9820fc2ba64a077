// Package imports normalizes import statements: module paths are cleaned
// and binding lists are deduplicated, so the combiner's path-keyed merge
// sees equivalent imports spelled identically.
package imports

import (
	"path"
	"strings"

	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/node"
)

type Filter struct{}

// New creates the import normalization filter.
func New() *Filter {
	return &Filter{}
}

// Name implements filter.Filter.
func (f *Filter) Name() string { return "imports" }

// Constraints places normalization after the inliner, which is what
// rewrites skipped requires into imports in the first place.
func (f *Filter) Constraints() []filter.Constraint {
	return []filter.Constraint{
		{Kind: filter.RunAfter, Targets: []string{"require"}},
	}
}

// Process rewrites one import statement into canonical form.
func (f *Filter) Process(pc *filter.Context, n *node.Node) (*node.Node, bool, error) {
	if n.Tag != "import" {
		return nil, false, nil
	}
	ref, _ := n.Child(0).(string)
	names, _ := n.Child(1).([]any)

	return n.WithChildren(cleanPath(ref), dedupNames(names)), true, nil
}

// cleanPath collapses redundant path elements while keeping the explicit
// relative-reference prefix, which carries meaning for module resolution.
func cleanPath(ref string) string {
	cleaned := path.Clean(ref)
	if strings.HasPrefix(ref, "./") && !strings.HasPrefix(cleaned, ".") {
		cleaned = "./" + cleaned
	}
	return cleaned
}

func dedupNames(names []any) []any {
	seen := make(map[string]bool, len(names))
	out := make([]any, 0, len(names))
	for _, name := range names {
		s, ok := name.(string)
		if ok && seen[s] {
			continue
		}
		if ok {
			seen[s] = true
		}
		out = append(out, name)
	}
	return out
}
