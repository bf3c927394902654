package stage

import "context"

// PhaseEvent marks the completion of one execution phase of a running
// module. Events are emitted in order and Run does not proceed to the next
// phase until the emit callback returns; suspension points are exactly these
// phase boundaries.
type PhaseEvent struct {
	// Index is 1-based; Total mirrors the contract's phase count.
	Index   int
	Total   int
	Message string
}

// EmitFunc receives phase-completion events from a running module.
type EmitFunc func(PhaseEvent)

// Module is the behavior every concrete stage type supplies. Implementations
// wrap a single external tool; the flow engine never depends on anything
// beyond this interface.
type Module interface {
	// Contract returns the stage type's static descriptor. The returned
	// value must be stable across calls.
	Contract() *Contract

	// MapOutputs derives default paths for the stage's declared outputs
	// from a partially built invocation context (takes and values are
	// bound; outputs are not). It must not touch the filesystem.
	MapOutputs(mc *Context) (map[string]any, error)

	// Run executes the stage's side effects against a fully built
	// context. It emits a PhaseEvent as each phase completes. A non-nil
	// error is fatal to the whole run; the engine does not retry.
	Run(ctx context.Context, mc *Context, emit EmitFunc) error
}
