package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultKey is the storage key queue state is persisted under when the
// consumer does not supply its own. Consumers isolate independent queues by
// choosing distinct keys over one store.
const DefaultKey = "queue.items"

// DefaultMaxAttempts is the delivery attempt budget applied to new items when
// the manager is not configured with its own.
const DefaultMaxAttempts = 3

// Status represents the lifecycle of a queued action.
type Status string

const (
	// StatusPending marks an item awaiting delivery.
	StatusPending Status = "pending"
	// StatusSynced marks an item whose delivery succeeded. Synced items are
	// removed immediately and never retained, so the status only appears in
	// sweep results.
	StatusSynced Status = "synced"
	// StatusFailed marks an item whose attempt budget is exhausted. Failed
	// items stay queued for inspection and explicit retry.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusSynced,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// Action is a user mutation to replay against the backend. Type is an open
// namespace tag; the queue treats it as opaque and only orchestrators filter
// on it. Payload contents must be JSON-serializable.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Item is one queued action with its delivery bookkeeping.
type Item struct {
	ID           string    `json:"id"`
	Action       Action    `json:"action"`
	CreatedAt    time.Time `json:"created_at"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"max_attempts"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error,omitempty"`
}

// NewItem builds a pending item for action with a fresh identifier.
func NewItem(action Action, maxAttempts int) Item {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Item{
		ID:          uuid.NewString(),
		Action:      action,
		CreatedAt:   time.Now().UTC(),
		MaxAttempts: maxAttempts,
		Status:      StatusPending,
	}
}

// Pending reports whether the item still awaits delivery.
func (i Item) Pending() bool { return i.Status == StatusPending }

// Failed reports whether the item exhausted its attempt budget.
func (i Item) Failed() bool { return i.Status == StatusFailed }

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Pending int
	Failed  int
}

func encodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal queue items: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse queue items: %w", err)
	}
	return items, nil
}
