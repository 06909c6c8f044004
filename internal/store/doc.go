// Package store provides the durable key/value layer backing the offline
// queue.
//
// A Backend persists opaque byte values under string keys; sqlite, file, and
// memory implementations are selected through configuration. The Store facade
// wraps a Backend with the availability contract queue code relies on:
// reads degrade to an empty view and writes fail silently when storage is
// unavailable, with a single warning logged on the first failure. Queue
// managers therefore never observe storage errors.
package store
