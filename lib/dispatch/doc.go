// Package dispatch drives a benchmark run end to end: it synthesizes a
// randomized POST/FETCH workload, pipelines the two-phase operations over
// the runtime, and aggregates outcomes into a report.
//
// The dispatcher itself is logically single-threaded: one loop, no internal
// locking. All parallelism is expressed through the access sets attached to
// the units it submits. The loop never blocks on an individual future; it
// polls opportunistically so unrelated requests keep being issued while
// others are outstanding, and only the final drain uses blocking retrieval.
//
// The prepare/execute pipelining deliberately exposes the window in which
// other requests can interleave, so the run measures protocol correctness
// and throughput under realistic contention rather than under an
// artificially serialized workload. Failed operations are counted, never
// retried: retry-on-conflict is a caller-level policy.
package dispatch
