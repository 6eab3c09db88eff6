// Package compute offers a fixed menu of numeric operations for
// visualization workloads, executed by a pluggable backend.
//
// Two backend families exist: an accelerated GPU backend (registered by
// blank-importing github.com/gogpu/framepace/gpu) and an always-available
// pure-Go reference backend. Callers normally go through the Facade, which
// initializes the accelerated backend lazily and at most once, attempts it
// first for every call, and transparently retries against the reference
// backend when the accelerated path fails.
//
//	facade := compute.NewFacade()
//	matrices, err := facade.BatchComposeTransforms(transforms)
//
// Backends are registered by name via Register, typically from init
// functions in backend packages, and selected by priority (accelerated
// first) when no explicit name is configured.
package compute
