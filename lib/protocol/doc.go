// Package protocol implements the two-phase POST and FETCH operations over
// the store, scheduled as separate prepare and execute units on the runtime.
//
// Each operation splits into:
//
//   - Prepare: a read-only snapshot of the state the operation depends on
//     (a channel's append counter for POST; a user's cursor row plus the
//     counters of the watched channels for FETCH)
//   - Execute: a validate-and-commit unit that re-reads the snapshotted
//     state and fails closed if anything changed in the prepare-to-execute
//     window
//
// The exclusivity between prepare and execute units of different requests
// comes entirely from the access sets declared on submission; within the
// gap between a request's own two stages nothing is held, which is exactly
// why execute must re-validate. A stale snapshot is a ValidationConflict:
// a counted outcome, not an error, and never retried here. The re-check
// makes the pair equivalent to a single atomic operation with
// first-committer-wins semantics.
package protocol
