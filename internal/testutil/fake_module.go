// Package testutil provides shared fakes and helpers for exercising the
// stage contract and the flow driver in tests.
package testutil

import (
	"context"

	"github.com/vk/flowgrid/internal/stage"
)

// FakeModule is a scriptable stage.Module for tests. Its contract is built
// from suffix-encoded declared names, and its MapOutputs/Run behavior can be
// overridden per test.
type FakeModule struct {
	ContractDef *stage.Contract

	// MapFn derives default output paths. When nil, MapOutputs returns
	// an empty map (every output must then be explicit).
	MapFn func(mc *stage.Context) (map[string]any, error)

	// RunFn performs the fake side effects. When nil, Run emits one
	// event per declared phase and succeeds.
	RunFn func(ctx context.Context, mc *stage.Context, emit stage.EmitFunc) error

	// RunCalls counts Run invocations.
	RunCalls int
}

// NewFakeModule builds a FakeModule whose takes, produces and values are
// given as suffix-encoded declared names ("eblif", "io_place?",
// "place_log!").
func NewFakeModule(name string, takes, produces, values []string) *FakeModule {
	return &FakeModule{
		ContractDef: &stage.Contract{
			Name:     name,
			Takes:    stage.DecomposeAll(takes),
			Produces: stage.DecomposeAll(produces),
			Values:   stage.DecomposeAll(values),
			Phases:   1,
		},
	}
}

func (m *FakeModule) Contract() *stage.Contract { return m.ContractDef }

func (m *FakeModule) MapOutputs(mc *stage.Context) (map[string]any, error) {
	if m.MapFn != nil {
		return m.MapFn(mc)
	}
	return map[string]any{}, nil
}

func (m *FakeModule) Run(ctx context.Context, mc *stage.Context, emit stage.EmitFunc) error {
	m.RunCalls++
	if m.RunFn != nil {
		return m.RunFn(ctx, mc, emit)
	}
	for i := 1; i <= m.ContractDef.Phases; i++ {
		emit(stage.PhaseEvent{Index: i, Total: m.ContractDef.Phases, Message: "phase done"})
	}
	return nil
}
