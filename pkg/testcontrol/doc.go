// Package testcontrol coordinates a shared DI container and scoped resource
// contexts across automated test execution.
//
// Each suite, class, and method forms a nested execution level. Before a
// class runs, its context boots the container (unless an ancestor or a
// running suite already did) and activates the scopes declared for it,
// skipping anything an ancestor already holds. Each method gets its own
// context that re-activates method-level scopes and swaps the process-wide
// project stage for the duration of the invocation. Teardown reverses
// activation in strict LIFO order, and only the level that booted the
// container shuts it down again.
//
// Pluggable decorator factories wrap the before/after phases of every
// invocation in ascending ordinal order, and external components (message
// brokers, databases) boot and shut down alongside the container with
// best-effort, log-and-continue semantics.
//
// The container itself is an external collaborator registered through the
// container package; this package never resolves dependencies on its own.
package testcontrol
