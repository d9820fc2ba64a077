package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is the top-level structure of a pipeline configuration file.
type fileRoot struct {
	Pipeline *pipelineBlock `hcl:"pipeline,block"`
	Filters  []*filterBlock `hcl:"filter,block"`
}

// pipelineBlock carries the settings the core consumes directly.
type pipelineBlock struct {
	SourceExt  string `hcl:"source_ext,optional"`
	ConvertExt string `hcl:"convert_ext,optional"`
}

// filterBlock configures one named filter. Any attribute other than
// `disabled` is an opaque feature toggle for that filter.
type filterBlock struct {
	Name     string   `hcl:"name,label"`
	Disabled bool     `hcl:"disabled,optional"`
	Options  hcl.Body `hcl:",remain"`
}

// Load parses the configuration file at path and translates it into the
// agnostic model. An empty path yields the default model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := config.Default()
	if path == "" {
		logger.Debug("No configuration file given, using defaults.")
		return model, nil
	}
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	if root.Pipeline != nil {
		if root.Pipeline.SourceExt != "" {
			model.Pipeline.SourceExt = root.Pipeline.SourceExt
		}
		if root.Pipeline.ConvertExt != "" {
			model.Pipeline.ConvertExt = root.Pipeline.ConvertExt
		}
	}

	for _, block := range root.Filters {
		if _, dup := model.Filters[block.Name]; dup {
			return nil, fmt.Errorf("duplicate filter block %q in %s", block.Name, path)
		}
		fc, err := l.translateFilter(ctx, block)
		if err != nil {
			return nil, fmt.Errorf("in filter block %q of %s: %w", block.Name, path, err)
		}
		model.Filters[block.Name] = fc
	}

	logger.Debug("Configuration loaded and translated into unified model.",
		"filters", len(model.Filters))
	return model, nil
}

// translateFilter converts one HCL filter block into the agnostic model,
// statically evaluating every toggle attribute.
func (l *Loader) translateFilter(ctx context.Context, block *filterBlock) (*config.FilterConfig, error) {
	fc := &config.FilterConfig{
		Name:     block.Name,
		Disabled: block.Disabled,
		Options:  make(map[string]cty.Value),
	}

	attrs, diags := block.Options.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read options: %w", diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate option %q: %w", name, diags)
		}
		fc.Options[name] = val
	}

	ctxlog.FromContext(ctx).Debug("Translated filter block.",
		"filter", block.Name, "disabled", fc.Disabled, "options", len(fc.Options))
	return fc, nil
}
