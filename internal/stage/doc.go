// Package stage defines the contract between a pipeline stage and the flow
// engine that invokes it.
//
// # Core Concepts
//
// The package is built around two structures and one interface:
//
//   - Contract: the reusable "template" describing a stage type. It declares
//     the named inputs the stage consumes (Takes), the outputs it produces
//     (Produces) and the configuration values it reads (Values), each tagged
//     with a qualifier. A Contract is constructed once at flow-definition
//     load time and shared, read-only, across every invocation.
//
//   - Module: the behavior a concrete stage type supplies itself. MapOutputs
//     derives default output paths from bound inputs; Run performs the side
//     effects, emitting a PhaseEvent at each phase boundary.
//
//   - Context: the per-invocation binding of a Contract against a concrete
//     configuration. Built fresh by NewContext before each execution and
//     discarded afterwards; it is the only structure handed to Module code.
//
// Why separate Contract and Context?
//
// The split mirrors a function definition versus a call. Because a Contract
// is static, the flow engine can interrogate it, asking which inputs are
// mandatory and which outputs will exist, without executing anything, and the
// staleness cache can enumerate the paths a stage touches before deciding
// whether the stage needs to run at all. All failure modes that stem from a
// misconfigured flow surface during Context construction, never midway
// through an external tool invocation.
package stage
