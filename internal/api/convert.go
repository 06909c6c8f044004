package api

import (
	"encoding/json"
	"time"

	"courier/internal/agent"
	"courier/internal/queue"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item queue.Item) QueueItem {
	dto := QueueItem{
		ID:           item.ID,
		ActionType:   item.Action.Type,
		Status:       string(item.Status),
		Attempts:     item.Attempts,
		MaxAttempts:  item.MaxAttempts,
		ErrorMessage: item.ErrorMessage,
	}
	if len(item.Action.Payload) > 0 {
		if raw, err := json.Marshal(item.Action.Payload); err == nil {
			dto.Payload = raw
		}
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs, preserving
// queue order.
func FromQueueItems(items []queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// ToAction rebuilds a queue action from its API representation.
func ToAction(item QueueItem) (queue.Action, error) {
	action := queue.Action{Type: item.ActionType}
	if len(item.Payload) > 0 {
		if err := json.Unmarshal(item.Payload, &action.Payload); err != nil {
			return queue.Action{}, err
		}
	}
	return action, nil
}

// FromProcessResult converts one sweep outcome to API payload.
func FromProcessResult(result queue.ProcessResult) ProcessOutcome {
	return ProcessOutcome{
		ItemID:     result.ItemID,
		ActionType: result.ActionType,
		Status:     string(result.Status),
		Attempts:   result.Attempts,
		Skipped:    result.Skipped,
		Error:      result.Err,
	}
}

// SummarizeSweep aggregates per-item sweep outcomes.
func SummarizeSweep(results []queue.ProcessResult) SweepSummary {
	summary := SweepSummary{Handled: len(results)}
	for _, result := range results {
		summary.Outcomes = append(summary.Outcomes, FromProcessResult(result))
		switch {
		case result.Skipped:
			summary.Skipped++
		case result.Status == queue.StatusSynced:
			summary.Delivered++
		case result.Status == queue.StatusFailed:
			summary.Failed++
		default:
			summary.Retried++
		}
	}
	return summary
}

// FromAgentStatus converts agent runtime status to API payload.
func FromAgentStatus(status agent.Status) AgentStatus {
	return AgentStatus{
		Running:       status.Running,
		Offline:       status.Offline,
		Processing:    status.Processing,
		QueueStats:    HealthCounts(status.Queue),
		QueueTotal:    status.Queue.Total,
		StoreBackend:  status.StoreBackend,
		LockFilePath:  status.LockFilePath,
		SocketPath:    status.SocketPath,
		UptimeSeconds: int64(status.Uptime / time.Second),
	}
}

// HealthCounts produces a string-keyed representation of queue health.
func HealthCounts(health queue.HealthSummary) map[string]int {
	return map[string]int{
		string(queue.StatusPending): health.Pending,
		string(queue.StatusFailed):  health.Failed,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseQueueTime parses an API timestamp for consumers that need display
// formatting. Zero time on failure.
func ParseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
