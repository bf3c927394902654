package app

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/cache"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/flow"
	"github.com/vk/flowgrid/internal/flowcfg"
	"github.com/vk/flowgrid/internal/inspect"
	"github.com/vk/flowgrid/internal/resolve"
	"github.com/vk/flowgrid/internal/stage"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.Command == CmdInspect {
		return a.runInspect()
	}

	mod, ok := a.modules[a.config.Stage]
	if !ok {
		return fmt.Errorf("no stage named %q in the loaded manifests", a.config.Stage)
	}

	cfg, err := flowcfg.Load(a.config.ConfigPath)
	if err != nil {
		return err
	}
	raw := cfg.StageConfig(a.config.Stage)
	env := cfg.StageEnv(resolve.NewEnv(nil), a.config.Stage)

	c := cache.New(a.config.CachePath)
	c.Load(ctx)
	runner := flow.NewRunner(c, env)

	switch a.config.Command {
	case CmdOutputs:
		return a.runOutputs(runner, mod, raw)
	case CmdStatus:
		return a.runStatus(ctx, runner, c, mod, raw)
	case CmdRun:
		return a.runStage(ctx, runner, c, mod, raw)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}

func (a *App) runInspect() error {
	if a.config.Stage == "" {
		return inspect.Contracts(a.outW, a.contracts)
	}
	for _, c := range a.contracts {
		if c.Name == a.config.Stage {
			return inspect.Contract(a.outW, c)
		}
	}
	return fmt.Errorf("no stage named %q in the loaded manifests", a.config.Stage)
}

func (a *App) runOutputs(runner *flow.Runner, mod stage.Module, raw *stage.RawConfig) error {
	outputs, err := runner.MapOutputs(mod, raw)
	if err != nil {
		return err
	}
	for _, out := range mod.Contract().Produces {
		path, ok := outputs[out.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(a.outW, "%s: %v\n", out.Name, path)
	}
	return nil
}

func (a *App) runStatus(ctx context.Context, runner *flow.Runner, c *cache.Cache, mod stage.Module, raw *stage.RawConfig) error {
	stale, err := runner.Stale(ctx, mod, raw)
	if err != nil {
		return err
	}
	if stale {
		fmt.Fprintf(a.outW, "stage %s: stale\n", a.config.Stage)
	} else {
		fmt.Fprintf(a.outW, "stage %s: up to date\n", a.config.Stage)
	}
	return c.Save()
}

func (a *App) runStage(ctx context.Context, runner *flow.Runner, c *cache.Cache, mod stage.Module, raw *stage.RawConfig) error {
	stale, err := runner.Stale(ctx, mod, raw)
	if err != nil {
		return err
	}
	if !stale {
		a.logger.Info("Stage is up to date, skipping.", "stage", a.config.Stage)
		return c.Save()
	}
	if err := runner.Execute(ctx, mod, raw); err != nil {
		return err
	}
	return c.Save()
}
