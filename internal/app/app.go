package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/ctxlog"
	"github.com/vk/rejig/internal/filter"
	"github.com/vk/rejig/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: an isolated logger, the filter registry, and the loaded
// pipeline configuration model.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *config.Model
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Compiled output goes to outW; logs go to logW.
func New(outW, logW io.Writer, appConfig *Config, loader config.Loader, filters ...filter.Filter) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if len(filters) == 0 {
		filters = coreFilters()
	}
	for _, f := range filters {
		reg.Register(f)
	}
	logger.Debug("All filters registered.", "count", len(filters))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfgModel,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Config returns the loaded configuration model. This is primarily for testing.
func (a *App) Config() *config.Model {
	return a.config
}
