package stage

import "fmt"

// Dependency kinds used in MissingError.
const (
	KindInput  = "input"
	KindValue  = "value"
	KindOutput = "output"
)

// MissingError reports a required dependency that was absent after
// resolution. It is fatal: invocation context construction stops at the
// first missing dependency and the run must not proceed partially.
type MissingError struct {
	Stage string
	Name  string
	Kind  string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s %q is required by stage %q but wasn't provided", e.Kind, e.Name, e.Stage)
}

// ExecError wraps a failure from a module's Run or MapOutputs, identifying
// the offending stage.
type ExecError struct {
	Stage string
	Mode  string // "map" or "exec"
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("stage %q failed during %s: %v", e.Stage, e.Mode, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
