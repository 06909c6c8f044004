// Package queue implements the offline action queue: actions accepted while
// the backend is unreachable are held in FIFO order, mirrored to a durable
// store, and replayed at most once per sweep when connectivity returns.
//
// The Manager owns the in-memory list and its persistence. Every mutation
// (Add, Remove, a processing sweep) rewrites the full list under the
// manager's storage key and notifies subscribers exactly once. Sweeps are
// sequential and re-entrancy guarded; items enqueued mid-sweep wait for the
// next sweep.
//
// Delivery guarantees are per sweep: within one sweep the handler sees each
// item at most once. Across process restarts delivery is at-least-once: an
// action whose delivery succeeded just before a crash may be replayed,
// because removal is persisted after the remote call returns. Remote
// endpoints are expected to tolerate duplicates.
//
// Treat this package as the single source of truth for queue semantics; the
// submit and agent packages compose it but never reach around it.
package queue
