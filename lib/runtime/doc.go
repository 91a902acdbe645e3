// Package runtime provides the task-execution substrate the protocol and
// dispatch packages build on: units of work are submitted together with the
// shared resources they read and write, and the substrate guarantees that
// two units with overlapping write access (or overlapping read/write access)
// never run concurrently, while units touching disjoint resources may run in
// parallel and out of order.
//
// Features and Guarantees:
//
//   - Declarative exclusivity: callers never lock; they declare access sets
//     and the substrate serializes exactly the conflicting pairs
//   - Futures: every submitted unit yields a handle that can be polled
//     without blocking (Ready) or retrieved with blocking (Wait)
//   - Fixed worker pool fed by an unbounded lock-free submission queue, so
//     submission never blocks the caller
//   - No cancellation and no timeouts: every unit runs to completion
//
// Internally each resource maps to a reader/writer lock in a concurrent
// lock table. A unit takes its locks in global key order before running,
// which makes the acquisition deadlock-free regardless of how access sets
// overlap.
package runtime
