package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queued action in a transport-friendly format.
type QueueItem struct {
	ID           string          `json:"id"`
	ActionType   string          `json:"actionType"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"maxAttempts"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

// ProcessOutcome records how one queued action fared during a sweep.
type ProcessOutcome struct {
	ItemID     string `json:"itemId"`
	ActionType string `json:"actionType"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SweepSummary aggregates the per-item outcomes of one replay sweep.
type SweepSummary struct {
	Handled   int              `json:"handled"`
	Delivered int              `json:"delivered"`
	Retried   int              `json:"retried"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Outcomes  []ProcessOutcome `json:"outcomes,omitempty"`
}

// AgentStatus aggregates agent runtime information for API consumers.
type AgentStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid,omitempty"`
	Offline       bool           `json:"offline"`
	Processing    bool           `json:"processing"`
	QueueStats    map[string]int `json:"queueStats"`
	QueueTotal    int            `json:"queueTotal"`
	StoreBackend  string         `json:"storeBackend"`
	LockFilePath  string         `json:"lockFilePath"`
	SocketPath    string         `json:"socketPath"`
	UptimeSeconds int64          `json:"uptimeSeconds,omitempty"`
}

// StatusLine is one labelled check result for status output. Severity is one
// of "ok", "warn", "error", or "info".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}
