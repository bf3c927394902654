package app

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/stage"
)

// declarativeModule is the behavior attached to a stage that exists only as
// a manifest, with no compiled-in implementation. It derives no default
// output paths, so every required output must be explicit in the flow
// config, and it cannot be executed; embedders register real stage.Module
// implementations with NewApp for stages that run tools.
type declarativeModule struct {
	contract *stage.Contract
}

func (m *declarativeModule) Contract() *stage.Contract { return m.contract }

func (m *declarativeModule) MapOutputs(mc *stage.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

func (m *declarativeModule) Run(ctx context.Context, mc *stage.Context, emit stage.EmitFunc) error {
	return fmt.Errorf("stage %q has no registered behavior; it can be inspected and tracked but not executed", m.contract.Name)
}
