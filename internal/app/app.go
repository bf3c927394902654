package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/manifest"
	"github.com/vk/flowgrid/internal/stage"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	contracts []*stage.Contract
	modules   map[string]stage.Module
}

// NewApp constructs the application: it builds an isolated logger, loads
// every stage contract from the manifest path and binds behaviors to them.
// Stages without a registered behavior get a declarative placeholder that
// supports inspection and staleness tracking but not execution.
func NewApp(outW io.Writer, cfg *Config, registered map[string]stage.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	contracts, err := loadContracts(ctx, cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage manifests: %w", err)
	}
	logger.Debug("Stage manifests loaded.", "count", len(contracts))

	modules := make(map[string]stage.Module, len(contracts))
	for _, c := range contracts {
		if mod, ok := registered[c.Name]; ok {
			modules[c.Name] = mod
			continue
		}
		modules[c.Name] = &declarativeModule{contract: c}
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		contracts: contracts,
		modules:   modules,
	}, nil
}

// Module returns the behavior bound to a stage name. Primarily for testing.
func (a *App) Module(name string) (stage.Module, bool) {
	mod, ok := a.modules[name]
	return mod, ok
}

func loadContracts(ctx context.Context, path string) ([]*stage.Contract, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return manifest.LoadDir(ctx, path)
	}
	return manifest.Load(ctx, path)
}
