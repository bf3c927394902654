// Package flow drives a single stage: it interrogates the staleness cache
// over the stage's declared inputs and outputs, builds the invocation
// context, streams phase-completion events through the logger and refreshes
// the cache after the stage finishes.
//
// Sequencing multiple stages is the surrounding flow engine's concern; this
// package is the per-stage core it calls into. Execution is strictly
// sequential: each cache update completes before the next dependency is
// evaluated, and a fatal error aborts the run with no partial recovery.
package flow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/flowgrid/internal/cache"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/qualifier"
	"github.com/vk/flowgrid/internal/resolve"
	"github.com/vk/flowgrid/internal/stage"
)

// Runner executes stages against a shared staleness cache and resolution
// scope.
type Runner struct {
	Cache *cache.Cache
	Env   *resolve.Env
}

// NewRunner creates a Runner over the given cache and base scope.
func NewRunner(c *cache.Cache, env *resolve.Env) *Runner {
	return &Runner{Cache: c, Env: env}
}

// Stale reports whether the stage needs to re-run: true if any bound input
// or any merged output path changed since the stage last observed it, or if
// a path vanished. Cache updates happen synchronously, in declaration
// order, under the stage's name as consumer.
func (r *Runner) Stale(ctx context.Context, mod stage.Module, cfg *stage.RawConfig) (bool, error) {
	mc, err := stage.NewContext(mod, cfg, r.Env)
	if err != nil {
		return false, err
	}

	stale := false
	for _, dep := range mod.Contract().Takes {
		value, bound := mc.Takes[dep.Name]
		if !bound {
			continue
		}
		changed, err := r.updatePaths(value, mc.StageName)
		if err != nil {
			return false, err
		}
		stale = stale || changed
	}
	for _, out := range mod.Contract().Produces {
		value, bound := mc.Outputs[out.Name]
		if !bound {
			continue
		}
		changed, err := r.updatePaths(value, mc.StageName)
		if err != nil {
			return false, err
		}
		stale = stale || changed
	}
	return stale, nil
}

// updatePaths walks a bound value (string path, list or map of paths) and
// feeds every leaf path through the cache.
func (r *Runner) updatePaths(value any, consumer string) (bool, error) {
	switch v := value.(type) {
	case string:
		return r.Cache.Update(v, consumer)
	case []any:
		changed := false
		for _, item := range v {
			c, err := r.updatePaths(item, consumer)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		}
		return changed, nil
	case map[string]any:
		changed := false
		for _, item := range v {
			c, err := r.updatePaths(item, consumer)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		}
		return changed, nil
	default:
		return false, nil
	}
}

// MapOutputs builds a context in map-only mode and returns the absolute
// resolved path for every available output. Nothing is executed.
func (r *Runner) MapOutputs(mod stage.Module, cfg *stage.RawConfig) (map[string]any, error) {
	mc, err := stage.NewContext(mod, cfg, r.Env)
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]any, len(mc.Outputs))
	for name, value := range mc.Outputs {
		outputs[name] = absPaths(value)
	}
	return outputs, nil
}

// Execute builds the invocation context and runs the stage, logging a
// progress line per phase event. After a successful run the cache entries
// for every produced output are refreshed under the stage's name.
func (r *Runner) Execute(ctx context.Context, mod stage.Module, cfg *stage.RawConfig) error {
	logger := ctxlog.FromContext(ctx).With("stage", mod.Contract().Name)

	mc, err := stage.NewContext(mod, cfg, r.Env)
	if err != nil {
		return err
	}

	logger.Info("Executing stage.")
	err = mod.Run(ctx, mc, func(ev stage.PhaseEvent) {
		logger.Info(fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Message))
	})
	if err != nil {
		return &stage.ExecError{Stage: mc.StageName, Mode: "exec", Err: err}
	}
	logger.Info("Stage finished.")

	for _, out := range mod.Contract().Produces {
		value, bound := mc.Outputs[out.Name]
		if !bound {
			continue
		}
		if _, err := r.updatePaths(value, mc.StageName); err != nil {
			return err
		}
		if out.Qualifier == qualifier.Required {
			if missing := firstMissing(value, r.Cache, mc.StageName); missing != "" {
				return fmt.Errorf("stage %q finished but did not produce required output %q at %s", mc.StageName, out.Name, missing)
			}
		}
	}
	return nil
}

// firstMissing returns the first leaf path of value that the cache now
// classifies as untracked, i.e. absent from disk after the run.
func firstMissing(value any, c *cache.Cache, consumer string) string {
	switch v := value.(type) {
	case string:
		if c.Status(v, consumer) == cache.StatusUntracked {
			return v
		}
	case []any:
		for _, item := range v {
			if missing := firstMissing(item, c, consumer); missing != "" {
				return missing
			}
		}
	case map[string]any:
		for _, item := range v {
			if missing := firstMissing(item, c, consumer); missing != "" {
				return missing
			}
		}
	}
	return ""
}

// absPaths rewrites every leaf string of value into an absolute path.
func absPaths(value any) any {
	switch v := value.(type) {
	case string:
		abs, err := filepath.Abs(v)
		if err != nil {
			return v
		}
		return abs
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = absPaths(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = absPaths(item)
		}
		return out
	default:
		return v
	}
}
