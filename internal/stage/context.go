package stage

import (
	"github.com/vk/flowgrid/internal/qualifier"
	"github.com/vk/flowgrid/internal/resolve"
)

// RawConfig is the per-stage configuration handed in by the flow engine.
// It is the sole input boundary of context construction.
type RawConfig struct {
	// Takes maps declared input names to their concrete sources.
	Takes map[string]any
	// Values maps declared configuration value names to their sources.
	Values map[string]any
	// Produces maps declared output names to explicit paths. It may be
	// partial or empty; outputs not listed here fall back to the paths
	// the module derives itself.
	Produces map[string]any
}

// Context binds a Contract against a concrete configuration for one
// invocation. It is created fresh per execution and discarded afterwards;
// the only sanctioned way to share it is ShallowCopy.
type Context struct {
	// StageName names the stage this context was built for.
	StageName string

	// Takes maps each bound input name to its resolved value. Optional
	// inputs that were absent are simply not present in the map.
	Takes map[string]any

	// Values maps each bound configuration value name to its resolved
	// value.
	Values map[string]any

	// Outputs maps every declared output name, explicit or derived, to
	// its final resolved path.
	Outputs map[string]any

	// Env is the resolution scope in effect for this invocation.
	Env *resolve.Env

	// explicit holds only the outputs the configuration specified
	// directly. Explicitness is exactly key presence here.
	explicit map[string]any
}

// NewContext builds the invocation context for mod from cfg, resolving
// every bound value through env. Construction fails fast on the first
// missing required dependency; no output paths are computed in that case.
//
// Outputs merge in two passes: paths the configuration specified explicitly
// win over the defaults the module derives via MapOutputs. Required-ness is
// enforced last, across the merged mapping, so a stage's default layout can
// be overridden by the surrounding flow without special-casing while a
// required output still cannot be silently omitted.
func NewContext(mod Module, cfg *RawConfig, env *resolve.Env) (*Context, error) {
	contract := mod.Contract()
	mc := &Context{
		StageName: contract.Name,
		Takes:     make(map[string]any),
		Values:    make(map[string]any),
		Outputs:   make(map[string]any),
		Env:       env,
		explicit:  make(map[string]any),
	}

	if err := mc.bind(mc.Takes, contract.Takes, cfg.Takes, KindInput); err != nil {
		return nil, err
	}
	if err := mc.bind(mc.Values, contract.Values, cfg.Values, KindValue); err != nil {
		return nil, err
	}

	for name, value := range cfg.Produces {
		mc.explicit[name] = env.Resolve(value)
	}

	derived, err := mod.MapOutputs(mc)
	if err != nil {
		return nil, &ExecError{Stage: contract.Name, Mode: "map", Err: err}
	}
	merged := make(map[string]any, len(derived)+len(mc.explicit))
	for name, value := range derived {
		merged[name] = value
	}
	for name, value := range mc.explicit {
		merged[name] = value
	}

	if err := mc.bind(mc.Outputs, contract.Produces, merged, KindOutput); err != nil {
		return nil, err
	}
	return mc, nil
}

// bind applies the required/optional rule for one dependency class: absent
// and required is fatal, absent otherwise binds nothing, present resolves
// through the scope.
func (mc *Context) bind(dst map[string]any, declared []IO, src map[string]any, kind string) error {
	for _, dep := range declared {
		value, ok := src[dep.Name]
		if !ok || value == nil {
			if dep.Qualifier == qualifier.Required {
				return &MissingError{Stage: mc.StageName, Name: dep.Name, Kind: kind}
			}
			continue
		}
		dst[dep.Name] = mc.Env.Resolve(value)
	}
	return nil
}

// IsOutputExplicit reports whether the configuration specified the output's
// path directly rather than relying on the module's derived default.
func (mc *Context) IsOutputExplicit(name string) bool {
	_, ok := mc.explicit[name]
	return ok
}

// ShallowCopy returns a context aliasing the same mappings, for handing a
// reduced view to a helper without re-resolving.
func (mc *Context) ShallowCopy() *Context {
	cp := *mc
	return &cp
}
