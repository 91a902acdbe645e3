// Package store holds the four collections of the message store: users
// (with their immutable watched-channel lists), channels (append counters),
// messages (preallocated per-channel logs), and per-user read cursors.
//
// The package focuses on:
//   - Narrow, field-level read/write access so callers can state precisely
//     which resource a unit of work touches
//   - Preallocated, fixed-size storage: nothing grows and nothing is deleted
//     during a run
//   - No internal locking: mutual exclusion between conflicting accesses is
//     the job of the runtime package's access contract
//
// Invariants maintained through the protocol package:
//   - A channel's append counter never decreases and never exceeds the
//     configured capacity
//   - A message slot is written at most once; slots below the counter are
//     written, slots at or above it are not
//   - A user's cursor for a channel never exceeds that channel's counter
//   - A user's watched channels are pairwise distinct
package store
