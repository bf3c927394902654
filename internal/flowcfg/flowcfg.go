// Package flowcfg loads the raw per-stage configuration documents the flow
// engine feeds into invocation context construction.
//
// A flow config is a YAML document carrying global values plus, per stage,
// the three mappings of the configuration boundary:
//
//	values:
//	  build_dir: build/${device}
//	stages:
//	  place:
//	    takes:
//	      eblif: ${build_dir}/top.eblif
//	    values:
//	      device: xc7a50t
//	    produces:
//	      place: ${build_dir}/top.place
//
// The package only materializes dictionaries; sequencing stages is the flow
// engine's business.
package flowcfg

import (
	"fmt"
	"os"

	"github.com/vk/flowgrid/internal/resolve"
	"github.com/vk/flowgrid/internal/stage"
	"gopkg.in/yaml.v3"
)

// StageEntry is the raw configuration block for one stage.
type StageEntry struct {
	Takes    map[string]any `yaml:"takes"`
	Values   map[string]any `yaml:"values"`
	Produces map[string]any `yaml:"produces"`
}

// FlowConfig is one parsed flow configuration document.
type FlowConfig struct {
	Values map[string]any        `yaml:"values"`
	Stages map[string]StageEntry `yaml:"stages"`
}

// Parse decodes a flow configuration payload.
func Parse(data []byte) (*FlowConfig, error) {
	var cfg FlowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode flow config: %w", err)
	}
	return &cfg, nil
}

// Load reads and decodes a flow configuration file.
func Load(path string) (*FlowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("flow config %s: %w", path, err)
	}
	return cfg, nil
}

// StageConfig returns the raw configuration for one stage. A stage absent
// from the document gets an empty configuration, not an error; whether that
// is fatal depends on the stage's contract.
func (f *FlowConfig) StageConfig(name string) *stage.RawConfig {
	entry := f.Stages[name]
	return &stage.RawConfig{
		Takes:    entry.Takes,
		Values:   entry.Values,
		Produces: entry.Produces,
	}
}

// StageEnv clones the base scope and overlays the flow's global values and
// the stage's local values, in that order, so stage-local bindings shadow
// flow-wide ones.
func (f *FlowConfig) StageEnv(base *resolve.Env, name string) *resolve.Env {
	env := base.Clone()
	if f.Values != nil {
		env.AddValues(f.Values)
	}
	if entry, ok := f.Stages[name]; ok && entry.Values != nil {
		env.AddValues(entry.Values)
	}
	return env
}
