package config

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Model is the unified, format-agnostic representation of one compilation's
// configuration.
type Model struct {
	Pipeline Pipeline
	Filters  map[string]*FilterConfig
}

// Pipeline holds the settings the core consumes directly.
type Pipeline struct {
	// SourceExt is the primary extension tried when resolving a cross-file
	// reference that names no existing file literally.
	SourceExt string
	// ConvertExt is the secondary "conversion" extension tried last.
	ConvertExt string
}

// FilterConfig carries per-filter settings. Options are opaque to the core;
// individual filters interpret them.
type FilterConfig struct {
	Name     string
	Disabled bool
	Options  map[string]cty.Value
}

// Default returns the model used when no configuration file is given.
func Default() *Model {
	return &Model{
		Pipeline: Pipeline{
			SourceExt:  ".rj",
			ConvertExt: ".js.rj",
		},
		Filters: make(map[string]*FilterConfig),
	}
}

// Enabled reports whether the named filter should be part of the chain.
// Filters are enabled unless explicitly disabled.
func (m *Model) Enabled(name string) bool {
	fc, ok := m.Filters[name]
	return !ok || !fc.Disabled
}

// Option returns a raw feature-toggle value for a filter, if set.
func (m *Model) Option(filterName, key string) (cty.Value, bool) {
	fc, ok := m.Filters[filterName]
	if !ok {
		return cty.NilVal, false
	}
	v, ok := fc.Options[key]
	return v, ok
}

// DecodeOption converts a feature-toggle value into the given Go target,
// converting between compatible types where needed. It reports whether the
// option was present.
func (m *Model) DecodeOption(filterName, key string, target any) (bool, error) {
	v, ok := m.Option(filterName, key)
	if !ok {
		return false, nil
	}

	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return true, fmt.Errorf("option %q of filter %q: target must be a non-nil pointer, got %T",
			key, filterName, target)
	}
	impliedType, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		return true, fmt.Errorf("option %q of filter %q: %w", key, filterName, err)
	}
	converted, err := convert.Convert(v, impliedType)
	if err != nil {
		return true, fmt.Errorf("option %q of filter %q: cannot convert %s: %w",
			key, filterName, v.Type().FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return true, fmt.Errorf("option %q of filter %q: %w", key, filterName, err)
	}
	return true, nil
}
