package ipc

import "courier/internal/api"

// QueueItem mirrors the API queue DTO for IPC callers.
type QueueItem = api.QueueItem

// ProcessOutcome mirrors the API sweep outcome DTO for IPC callers.
type ProcessOutcome = api.ProcessOutcome

// StatusRequest fetches agent status.
type StatusRequest struct{}

// StatusResponse mirrors the API agent status DTO for IPC callers.
type StatusResponse = api.AgentStatus

// SubmitRequest enqueues one action.
type SubmitRequest struct {
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload"`
}

// SubmitResponse reports the enqueued item.
type SubmitResponse = api.QueueItemResponse

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries in delivery order.
type QueueListResponse = api.QueueListResponse

// QueueRemoveRequest removes specific items by ID.
type QueueRemoveRequest struct {
	IDs []string `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int `json:"removed"`
}

// QueueRetryRequest retries failed items. Empty list means all failed items.
type QueueRetryRequest struct {
	IDs []string `json:"ids"`
}

// QueueRetryResponse reports number of items reset to pending.
type QueueRetryResponse struct {
	Updated int `json:"updated"`
}

// QueueClearRequest removes all items.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int `json:"removed"`
}

// QueueClearFailedRequest removes failed items.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int `json:"removed"`
}

// QueueHealthRequest fetches aggregate queue counts.
type QueueHealthRequest struct{}

// QueueHealthResponse reports aggregate queue counts.
type QueueHealthResponse struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// ProcessRequest runs one replay sweep now.
type ProcessRequest struct{}

// ProcessResponse reports the sweep outcome.
type ProcessResponse struct {
	Summary api.SweepSummary `json:"summary"`
}

// ProbeRequest asks the agent to re-check connectivity now.
type ProbeRequest struct{}

// ProbeResponse reports the agent's connectivity view.
type ProbeResponse struct {
	Offline bool `json:"offline"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
