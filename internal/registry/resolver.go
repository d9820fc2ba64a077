package registry

import "github.com/vk/rejig/internal/filter"

// Resolve applies the ordering constraints declared by the listed filters as
// a post-hoc transformation over the given order. Constraints are applied in
// registration order, then declaration order within a filter, so the result
// is deterministic; constraints naming absent filters are no-ops. Resolving
// an already-resolved list returns the identical list.
func (r *Registry) Resolve(order []string) []string {
	out := make([]string, len(order))
	copy(out, order)

	present := make(map[string]bool, len(out))
	for _, name := range out {
		present[name] = true
	}

	for _, name := range r.order {
		if !present[name] {
			continue
		}
		c, ok := r.filters[name].(filter.Constrained)
		if !ok {
			continue
		}
		for _, constraint := range c.Constraints() {
			out = applyConstraint(out, name, constraint)
		}
	}
	return out
}

// applyConstraint repositions one filter according to one constraint: the
// filter is removed from its current position and reinserted relative to the
// constraint's target, computed over the remaining list. Working on the
// reduced list keeps repeated application stable.
func applyConstraint(order []string, name string, c filter.Constraint) []string {
	self := indexOf(order, name)
	if self < 0 {
		return order
	}
	rest := make([]string, 0, len(order)-1)
	rest = append(rest, order[:self]...)
	rest = append(rest, order[self+1:]...)

	switch c.Kind {
	case filter.RunAfter, filter.RunAfterLast:
		// RunAfter is RunAfterLast with a single-element target set.
		target := -1
		for _, t := range c.Targets {
			if t == name {
				continue
			}
			if i := indexOf(rest, t); i > target {
				target = i
			}
		}
		if target < 0 {
			return order
		}
		return insertAt(rest, target+1, name)

	case filter.RunBefore:
		if len(c.Targets) == 0 || c.Targets[0] == name {
			return order
		}
		target := indexOf(rest, c.Targets[0])
		if target < 0 {
			return order
		}
		return insertAt(rest, target, name)
	}
	return order
}

func insertAt(order []string, i int, name string) []string {
	out := make([]string, 0, len(order)+1)
	out = append(out, order[:i]...)
	out = append(out, name)
	out = append(out, order[i:]...)
	return out
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}
