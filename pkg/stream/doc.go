// Package stream consumes a single-use message stream and maintains the
// reconstructed message tree.
//
// A Processor reads a Body to exhaustion, decodes frames, applies content
// deltas and publishes an immutable State after every change. Consumers
// either pass Callbacks to ProcessStream or poll State after a Subscribe
// notification. State pointers are stable: two calls to State with no change
// in between return the same pointer, so callers can compare snapshots by
// identity.
//
// A Body is consumed at most once. Passing the same Body again is a no-op,
// and a Body whose reader lock is held elsewhere is rejected with a warning.
// Neither case is reported through State.Error, which is reserved for
// failures of the stream itself.
//
// Each ProcessStream call is a run with the lifecycle
//
//	idle -> streaming -> completed | errored
//
// Starting a new run on a Processor cancels the previous one; the cancelled
// run stops publishing and invoking callbacks.
package stream
