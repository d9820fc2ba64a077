package app

import (
	"github.com/vk/rejig/filters/combine"
	"github.com/vk/rejig/filters/imports"
	"github.com/vk/rejig/filters/require"
	"github.com/vk/rejig/filters/shift"
	"github.com/vk/rejig/internal/filter"
)

// coreFilters builds the definitive list of filters compiled into the rejig
// binary. Ordering constraints, not this list's order, decide the chain.
func coreFilters() []filter.Filter {
	return []filter.Filter{
		require.New(),
		imports.New(),
		shift.New(),
		combine.New(),
	}
}
