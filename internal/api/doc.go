// Package api defines wire-format types and converters for the IPC layer. It
// translates internal queue models into transport-friendly DTOs that the CLI
// and other consumers can render without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queued action with its delivery
// bookkeeping.
//
// ProcessOutcome/SweepSummary: per-item and aggregate results of one replay
// sweep.
//
// AgentStatus: agent running state, connectivity, queue counts, and paths.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with the action payload re-encoded
// as raw JSON to avoid double-encoding on the wire.
//
// FromAgentStatus: agent.Status -> AgentStatus with queue health flattened to
// string-keyed counts.
//
// SummarizeSweep: tallies sweep results the same way the agent's sweep log
// does, so CLI output and logs always agree.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds. Payloads are passed through as json.RawMessage.
package api
