// Package qualifier defines the three-state tag attached to every declared
// stage dependency: required, optional, or on-demand.
//
// Declared names carry their qualifier as a one-rune suffix (`eblif?`,
// `place_log!`). The suffix convention exists for manifest authors; inside
// the program a name is decomposed exactly once, at contract construction,
// and the qualifier travels as an explicit value from then on.
package qualifier

import (
	"fmt"
	"strings"
)

// Qualifier classifies how a declared dependency binds at invocation time.
type Qualifier int

const (
	// Required dependencies must be present after resolution; a missing
	// required dependency aborts the run.
	Required Qualifier = iota
	// Optional dependencies may be absent; the resolved mapping simply
	// omits them.
	Optional
	// OnDemand outputs are produced only when the surrounding flow asks
	// for them explicitly. Only outputs may carry this qualifier.
	OnDemand
)

const (
	optionalSuffix = "?"
	onDemandSuffix = "!"
)

// Decompose splits a declared name into its bare name and qualifier.
// An unrecognized suffix decodes to Required, the most conservative
// interpretation, so Decompose is total over arbitrary strings.
func Decompose(declared string) (string, Qualifier) {
	switch {
	case strings.HasSuffix(declared, optionalSuffix):
		return strings.TrimSuffix(declared, optionalSuffix), Optional
	case strings.HasSuffix(declared, onDemandSuffix):
		return strings.TrimSuffix(declared, onDemandSuffix), OnDemand
	default:
		return declared, Required
	}
}

// Encode re-attaches the qualifier suffix to a bare name. Encode is the
// inverse of Decompose: Decompose(q.Encode(name)) yields (name, q) for any
// name that carries no suffix of its own.
func (q Qualifier) Encode(name string) string {
	bare, _ := Decompose(name)
	switch q {
	case Optional:
		return bare + optionalSuffix
	case OnDemand:
		return bare + onDemandSuffix
	default:
		return bare
	}
}

// Parse maps a manifest keyword to a Qualifier.
func Parse(keyword string) (Qualifier, error) {
	switch keyword {
	case "required":
		return Required, nil
	case "optional":
		return Optional, nil
	case "on_demand":
		return OnDemand, nil
	default:
		return Required, fmt.Errorf("unknown qualifier keyword %q (expected 'required', 'optional' or 'on_demand')", keyword)
	}
}

// String returns the manifest keyword for q.
func (q Qualifier) String() string {
	switch q {
	case Optional:
		return "optional"
	case OnDemand:
		return "on_demand"
	default:
		return "required"
	}
}
