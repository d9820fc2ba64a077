package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/rejig/internal/ctxlog"
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/parser"
	"github.com/vk/rejig/internal/printer"
)

// Run executes one compilation based on the provided configuration: parse
// the entry file, apply the resolved filter chain, print the result, and
// write the output in one piece. On any error the output target is left
// untouched.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx = ctxlog.With(ctx, "source", appConfig.SourcePath)
	a.logger.Debug("App.Run method started.", "source", appConfig.SourcePath)

	src, err := os.ReadFile(appConfig.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	p := parser.New()
	tree, contrib, err := p.Parse(src, appConfig.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}
	a.logger.Debug("Source parsed.", "statements", tree.Len())

	chain := a.registry.Chain(a.config)
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name()
	}
	a.logger.Debug("Filter chain resolved.", "order", names)

	pc := filter.NewContext(ctx, chain, a.config, p, appConfig.SourcePath)
	pc.Store.Merge(contrib)

	out, err := pc.Apply(tree)
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	rendered := ""
	if out != nil {
		rendered, err = printer.Print(out, printer.Options{Indent: "  "})
		if err != nil {
			return fmt.Errorf("failed to print output: %w", err)
		}
	}
	a.logger.Debug("Output rendered.", "bytes", len(rendered))

	if appConfig.OutputPath == "" {
		if _, err := fmt.Fprint(a.outW, rendered); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(appConfig.OutputPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	a.logger.Info("Output written.", "path", appConfig.OutputPath)
	return nil
}
