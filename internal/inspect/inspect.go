// Package inspect renders human-readable summaries of stage contracts for
// the CLI's inspect verb.
package inspect

import (
	"fmt"
	"io"

	"github.com/vk/flowgrid/internal/qualifier"
	"github.com/vk/flowgrid/internal/stage"
)

// marker returns the short suffix shown next to a dependency name.
func marker(q qualifier.Qualifier) string {
	switch q {
	case qualifier.Optional:
		return " (optional)"
	case qualifier.OnDemand:
		return " (on demand)"
	default:
		return ""
	}
}

// Contract writes a summary of one stage contract to w.
func Contract(w io.Writer, c *stage.Contract) error {
	if _, err := fmt.Fprintf(w, "Stage %s (%d phases)\n", c.Name, c.Phases); err != nil {
		return err
	}

	if len(c.Takes) > 0 {
		fmt.Fprintln(w, "  Takes:")
		for _, dep := range c.Takes {
			fmt.Fprintf(w, "    %s%s\n", dep.Name, marker(dep.Qualifier))
		}
	}
	if len(c.Values) > 0 {
		fmt.Fprintln(w, "  Values:")
		for _, dep := range c.Values {
			fmt.Fprintf(w, "    %s%s\n", dep.Name, marker(dep.Qualifier))
		}
	}
	if len(c.Produces) > 0 {
		fmt.Fprintln(w, "  Produces:")
		for _, dep := range c.Produces {
			fmt.Fprintf(w, "    %s%s: %s\n", dep.Name, marker(dep.Qualifier), c.Description(dep.Name))
		}
	}
	return nil
}

// Contracts writes summaries for every contract, in order.
func Contracts(w io.Writer, contracts []*stage.Contract) error {
	for _, c := range contracts {
		if err := Contract(w, c); err != nil {
			return err
		}
	}
	return nil
}
