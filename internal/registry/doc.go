// Package registry provides the central "glue" for the filter system.
//
// The Registry stores mappings between filter names and the compiled Go
// implementations, preserves the default registration order, and resolves
// the declared ordering constraints into the final chain order once per
// compilation. Individual filters stay independently addable and removable;
// the registry is the only place that knows the full set.
package registry
