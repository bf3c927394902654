package stage

import (
	"fmt"

	"github.com/vk/flowgrid/internal/qualifier"
)

// NoDescription is returned by Description for outputs the contract does not
// document. A lookup never fails.
const NoDescription = "<no description>"

// IO is a single declared dependency: a bare name plus its qualifier.
// The qualifier is decoded once, at contract construction, rather than
// re-parsed from a suffix convention on every lookup.
type IO struct {
	Name      string
	Qualifier qualifier.Qualifier
}

// DecomposeAll decodes a list of suffix-encoded declared names into IOs,
// preserving order.
func DecomposeAll(declared []string) []IO {
	ios := make([]IO, len(declared))
	for i, d := range declared {
		name, q := qualifier.Decompose(d)
		ios[i] = IO{Name: name, Qualifier: q}
	}
	return ios
}

// Contract is the immutable descriptor of a stage type's interface.
type Contract struct {
	// Name identifies the stage in configuration and error messages.
	Name string

	// Takes, Produces and Values are the declared inputs, outputs and
	// configuration values, in declaration order.
	Takes    []IO
	Produces []IO
	Values   []IO

	// Descriptions maps bare output names to one-line descriptions.
	// Entries are optional.
	Descriptions map[string]string

	// Phases is the number of progress phases Run reports. Purely
	// informational; zero is legal.
	Phases int
}

// Description returns the one-line description for a declared output, or
// NoDescription if the output is undocumented.
func (c *Contract) Description(output string) string {
	if d, ok := c.Descriptions[output]; ok && d != "" {
		return d
	}
	return NoDescription
}

// Metadata returns the description table for every declared output, with
// undocumented outputs filled with the NoDescription sentinel.
func Metadata(c *Contract) map[string]string {
	meta := make(map[string]string, len(c.Produces))
	for _, out := range c.Produces {
		meta[out.Name] = c.Description(out.Name)
	}
	return meta
}

// Validate checks the qualifier invariants: inputs may be required or
// optional, never on-demand.
func (c *Contract) Validate() error {
	for _, in := range c.Takes {
		if in.Qualifier == qualifier.OnDemand {
			return fmt.Errorf("stage %q: input %q declared on_demand; inputs must be required or optional", c.Name, in.Name)
		}
	}
	return nil
}
