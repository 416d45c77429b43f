// Package dynamo provides the shared primitives of the contact engine.
//
// The package defines the cross-cutting pieces every other package leans on:
//
//   - sentinel errors and the wrapped [ConfigError] / [ParticleError] types
//   - [Diagnostic]: a recoverable per-contact condition recorded during a step
//   - [SearchControl]: whether the broad-phase collaborator refreshed neighbor data this step
//   - [ParallelFor] / [ParallelForErr]: the flat data-parallel loop over particles
//
// # Error Policy
//
// Only configuration-time errors abort a run. Geometric degeneracies and
// history mismatches are absorbed where they happen and surface as
// diagnostics; a failure while evaluating one particle is collected and
// returned after the batch without touching any other particle's state.
package dynamo
