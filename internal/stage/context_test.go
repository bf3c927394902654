package stage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/resolve"
	"github.com/vk/flowgrid/internal/stage"
	"github.com/vk/flowgrid/internal/testutil"
)

func TestNewContextBindsAndResolves(t *testing.T) {
	mod := testutil.NewFakeModule("place", []string{"eblif", "net"}, []string{"place"}, []string{"device"})
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		return map[string]any{"place": mc.Takes["eblif"].(string) + ".place"}, nil
	}

	env := resolve.NewEnv(map[string]any{"build_dir": "/tmp/b"})
	cfg := &stage.RawConfig{
		Takes:  map[string]any{"eblif": "${build_dir}/top.eblif", "net": "${build_dir}/top.net"},
		Values: map[string]any{"device": "xc7a50t"},
	}

	mc, err := stage.NewContext(mod, cfg, env)
	require.NoError(t, err)

	assert.Equal(t, "place", mc.StageName)
	assert.Equal(t, "/tmp/b/top.eblif", mc.Takes["eblif"])
	assert.Equal(t, "xc7a50t", mc.Values["device"])
	assert.Equal(t, "/tmp/b/top.eblif.place", mc.Outputs["place"])
	assert.False(t, mc.IsOutputExplicit("place"))
}

func TestNewContextMissingRequiredInput(t *testing.T) {
	mod := testutil.NewFakeModule("route", []string{"place"}, []string{"route"}, nil)
	mapped := false
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		mapped = true
		return map[string]any{}, nil
	}

	_, err := stage.NewContext(mod, &stage.RawConfig{}, resolve.NewEnv(nil))
	require.Error(t, err)

	var missing *stage.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "route", missing.Stage)
	assert.Equal(t, "place", missing.Name)
	assert.Equal(t, stage.KindInput, missing.Kind)
	assert.False(t, mapped, "no output paths may be computed after a missing required input")
}

func TestNewContextMissingOptionalInputOmitted(t *testing.T) {
	mod := testutil.NewFakeModule("synth", []string{"top", "xdc?"}, []string{"eblif"}, nil)
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		return map[string]any{"eblif": "top.eblif"}, nil
	}

	mc, err := stage.NewContext(mod, &stage.RawConfig{
		Takes: map[string]any{"top": "top.v"},
	}, resolve.NewEnv(nil))
	require.NoError(t, err)

	_, bound := mc.Takes["xdc"]
	assert.False(t, bound)
}

func TestNewContextMissingRequiredValue(t *testing.T) {
	mod := testutil.NewFakeModule("synth", nil, []string{"eblif"}, []string{"device"})

	_, err := stage.NewContext(mod, &stage.RawConfig{}, resolve.NewEnv(nil))

	var missing *stage.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, stage.KindValue, missing.Kind)
	assert.Equal(t, "device", missing.Name)
}

func TestNewContextExplicitOutputWins(t *testing.T) {
	mod := testutil.NewFakeModule("pack", nil, []string{"net"}, nil)
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		return map[string]any{"net": "default/top.net"}, nil
	}

	env := resolve.NewEnv(map[string]any{"out": "/custom"})
	mc, err := stage.NewContext(mod, &stage.RawConfig{
		Produces: map[string]any{"net": "${out}/top.net"},
	}, env)
	require.NoError(t, err)

	assert.Equal(t, "/custom/top.net", mc.Outputs["net"])
	assert.True(t, mc.IsOutputExplicit("net"))
}

func TestNewContextRequiredOutputAbsent(t *testing.T) {
	mod := testutil.NewFakeModule("pack", nil, []string{"net"}, nil)

	_, err := stage.NewContext(mod, &stage.RawConfig{}, resolve.NewEnv(nil))

	var missing *stage.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, stage.KindOutput, missing.Kind)
	assert.Equal(t, "net", missing.Name)
}

func TestNewContextOptionalAndOnDemandOutputsMayBeAbsent(t *testing.T) {
	mod := testutil.NewFakeModule("pack", nil, []string{"net", "pack_log?", "timing_rpt!"}, nil)
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		return map[string]any{"net": "top.net"}, nil
	}

	mc, err := stage.NewContext(mod, &stage.RawConfig{}, resolve.NewEnv(nil))
	require.NoError(t, err)

	_, hasLog := mc.Outputs["pack_log"]
	_, hasRpt := mc.Outputs["timing_rpt"]
	assert.False(t, hasLog)
	assert.False(t, hasRpt)
}

func TestNewContextMapOutputsFailure(t *testing.T) {
	mod := testutil.NewFakeModule("pack", nil, []string{"net?"}, nil)
	mod.MapFn = func(mc *stage.Context) (map[string]any, error) {
		return nil, errors.New("boom")
	}

	_, err := stage.NewContext(mod, &stage.RawConfig{}, resolve.NewEnv(nil))

	var execErr *stage.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "pack", execErr.Stage)
	assert.Equal(t, "map", execErr.Mode)
}

func TestShallowCopyAliasesMappings(t *testing.T) {
	mod := testutil.NewFakeModule("synth", []string{"top"}, []string{"eblif?"}, nil)

	mc, err := stage.NewContext(mod, &stage.RawConfig{
		Takes: map[string]any{"top": "top.v"},
	}, resolve.NewEnv(nil))
	require.NoError(t, err)

	cp := mc.ShallowCopy()
	cp.Takes["extra"] = "visible"
	assert.Equal(t, "visible", mc.Takes["extra"])
}

func TestContractDescriptionSentinel(t *testing.T) {
	c := &stage.Contract{
		Name:         "synth",
		Produces:     stage.DecomposeAll([]string{"eblif", "synth_log!"}),
		Descriptions: map[string]string{"eblif": "synthesized netlist"},
	}

	assert.Equal(t, "synthesized netlist", c.Description("eblif"))
	assert.Equal(t, stage.NoDescription, c.Description("synth_log"))

	meta := stage.Metadata(c)
	assert.Equal(t, map[string]string{
		"eblif":     "synthesized netlist",
		"synth_log": stage.NoDescription,
	}, meta)
}

func TestContractValidateRejectsOnDemandInput(t *testing.T) {
	c := &stage.Contract{
		Name:  "synth",
		Takes: stage.DecomposeAll([]string{"top!"}),
	}
	require.Error(t, c.Validate())

	ok := &stage.Contract{
		Name:  "synth",
		Takes: stage.DecomposeAll([]string{"top", "xdc?"}),
	}
	require.NoError(t, ok.Validate())
}
