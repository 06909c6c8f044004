package queue

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"courier/internal/connectivity"
	"courier/internal/logging"
	"courier/internal/store"
)

// Options describes Manager construction parameters.
type Options struct {
	// Store mirrors the queue durably. A nil store keeps the queue
	// memory-only, matching the degraded mode of store.Open.
	Store *store.Store
	// Key is the storage key the item list is persisted under. Defaults to
	// DefaultKey.
	Key string
	// Monitor supplies the offline guard for sweeps. A nil monitor means
	// always online.
	Monitor connectivity.Monitor
	// MaxAttempts is the delivery attempt budget for new items. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int
	Logger      *slog.Logger
}

// Manager owns the in-memory action list and its durable mirror. All methods
// are safe for concurrent use.
type Manager struct {
	store       *store.Store
	key         string
	monitor     connectivity.Monitor
	maxAttempts int
	logger      *slog.Logger

	mu          sync.Mutex
	initialized bool
	processing  bool
	items       []Item

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func([]Item)
}

// NewManager builds a Manager from options. Call Initialize before mutating.
func NewManager(opts Options) *Manager {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Manager{
		store:       opts.Store,
		key:         key,
		monitor:     opts.Monitor,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(opts.Logger, "queue-manager"),
	}
}

// Initialize loads the persisted item list and notifies subscribers with the
// initial snapshot. Repeat calls are no-ops. Unreadable persisted state
// degrades to an empty queue with a warning; it never fails initialization.
func (m *Manager) Initialize(ctx context.Context) error {
	ctx = ensureContext(ctx)

	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}

	var items []Item
	if m.store != nil {
		if data, ok := m.store.Get(ctx, m.key); ok {
			loaded, err := decodeItems(data)
			if err != nil {
				logging.WarnWithContext(m.logger, "persisted queue state unreadable; starting empty", "queue_load_failed",
					logging.Error(err),
					logging.String(logging.FieldQueueKey, m.key),
					logging.String(logging.FieldErrorHint, "inspect the stored value or clear the queue key"),
					logging.String(logging.FieldImpact, "previously queued actions are lost"))
			} else {
				items = sanitizeItems(loaded, m.maxAttempts)
				if dropped := len(loaded) - len(items); dropped > 0 {
					logging.WarnWithContext(m.logger, "dropped malformed queue entries", "queue_load_sanitized",
						logging.Int("dropped", dropped),
						logging.String(logging.FieldQueueKey, m.key),
						logging.String(logging.FieldErrorHint, "entries without unique ids cannot be replayed"),
						logging.String(logging.FieldImpact, "affected actions are lost"))
				}
			}
		}
	}

	m.items = items
	m.initialized = true
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("queue initialized",
		logging.Int("item_count", len(snapshot)),
		logging.String(logging.FieldQueueKey, m.key))
	m.notify(snapshot)
	return nil
}

// Add appends a pending item for action, persists the updated list, and
// notifies subscribers. Persistence completes before Add returns.
func (m *Manager) Add(ctx context.Context, action Action) (*Item, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(action.Type) == "" {
		return nil, ErrEmptyActionType
	}

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil, ErrNotInitialized
	}

	item := NewItem(action, m.maxAttempts)
	m.items = append(m.items, item)
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("action queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldActionType, item.Action.Type),
		logging.Int("queue_length", len(snapshot)))
	m.notify(snapshot)
	return &item, nil
}

// Remove deletes the item with the given id. It reports false for unknown
// ids without persisting or notifying.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return false, ErrNotInitialized
	}

	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return false, nil
	}

	removed := m.items[idx]
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("action removed",
		logging.String(logging.FieldItemID, removed.ID),
		logging.String(logging.FieldActionType, removed.Action.Type))
	m.notify(snapshot)
	return true, nil
}

// RetryFailed resets failed items to pending with a fresh attempt budget.
// With no ids every failed item is reset. Returns the number of items reset.
// Retrying is always caller-initiated; sweeps never pick up failed items on
// their own.
func (m *Manager) RetryFailed(ctx context.Context, ids ...string) (int, error) {
	ctx = ensureContext(ctx)
	filter := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		filter[id] = struct{}{}
	}

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return 0, ErrNotInitialized
	}

	count := 0
	for i := range m.items {
		item := &m.items[i]
		if !item.Failed() {
			continue
		}
		if len(filter) > 0 {
			if _, ok := filter[item.ID]; !ok {
				continue
			}
		}
		item.Status = StatusPending
		item.Attempts = 0
		item.ErrorMessage = ""
		count++
	}

	if count == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("failed actions reset to pending", logging.Int("count", count))
	m.notify(snapshot)
	return count, nil
}

// Clear removes every item. Returns the number of items removed.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	return m.clearWhere(ctx, func(Item) bool { return true })
}

// ClearFailed removes items that exhausted their attempt budget.
func (m *Manager) ClearFailed(ctx context.Context) (int, error) {
	return m.clearWhere(ctx, Item.Failed)
}

func (m *Manager) clearWhere(ctx context.Context, drop func(Item) bool) (int, error) {
	ctx = ensureContext(ctx)

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return 0, ErrNotInitialized
	}

	kept := m.items[:0]
	removed := 0
	for _, item := range m.items {
		if drop(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}

	if removed == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	m.items = kept
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("queue cleared", logging.Int("removed", removed))
	m.notify(snapshot)
	return removed, nil
}

// Items returns a snapshot of the queue in FIFO order. Before Initialize the
// snapshot is empty.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Len reports the number of queued items.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// PendingCount reports the number of items awaiting delivery.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.Pending() {
			count++
		}
	}
	return count
}

// Health summarizes queue counts per lifecycle state.
func (m *Manager) Health() HealthSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := HealthSummary{Total: len(m.items)}
	for _, item := range m.items {
		switch {
		case item.Pending():
			summary.Pending++
		case item.Failed():
			summary.Failed++
		}
	}
	return summary
}

// Processing reports whether a sweep is in flight.
func (m *Manager) Processing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processing
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Key returns the storage key the queue persists under.
func (m *Manager) Key() string {
	return m.key
}

// Subscribe registers fn to receive a queue snapshot after every completed
// mutation or sweep. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func([]Item)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.subMu.Lock()
	if m.subscribers == nil {
		m.subscribers = make(map[int]func([]Item))
	}
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

// ProcessAll sweeps the queue once: every item pending at sweep start is
// handed to the handler in FIFO order, one at a time. The updated list is
// persisted after each item and subscribers are notified once when the sweep
// completes.
//
// A sweep already in flight, or an offline monitor, short-circuits to an
// empty result without error. Items enqueued mid-sweep wait for the next
// sweep. Cancelling ctx stops the sweep between items; unprocessed items
// stay pending.
func (m *Manager) ProcessAll(ctx context.Context, handler Handler) ([]ProcessResult, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	ctx = ensureContext(ctx)

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if m.processing {
		m.mu.Unlock()
		m.logger.Debug("sweep already in flight; skipping")
		return []ProcessResult{}, nil
	}
	if m.monitor != nil && m.monitor.Offline() {
		m.mu.Unlock()
		logging.WarnWithContext(m.logger, "cannot process queue while offline", "process_offline",
			logging.String(logging.FieldErrorHint, "wait for connectivity to return"),
			logging.String(logging.FieldImpact, "queued actions remain pending"))
		return []ProcessResult{}, nil
	}
	m.processing = true
	ids := make([]string, 0, len(m.items))
	for _, item := range m.items {
		if item.Pending() {
			ids = append(ids, item.ID)
		}
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.processing = false
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snapshot)
	}()

	results := make([]ProcessResult, 0, len(ids))
	var sweepErr error
	delivered, retried, failed, skipped := 0, 0, 0, 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			break
		}

		m.mu.Lock()
		idx := m.indexLocked(id)
		if idx < 0 || !m.items[idx].Pending() {
			m.mu.Unlock()
			continue
		}
		item := m.items[idx]
		m.mu.Unlock()

		itemCtx := logging.WithActionType(logging.WithItemID(ctx, item.ID), item.Action.Type)
		result := safeInvoke(itemCtx, handler, item.Action)

		m.mu.Lock()
		idx = m.indexLocked(id)
		if idx < 0 {
			// Removed while the handler ran; the removal wins.
			m.mu.Unlock()
			continue
		}
		target := &m.items[idx]
		remove := applyResult(target, result)
		pr := ProcessResult{
			ItemID:     target.ID,
			ActionType: target.Action.Type,
			Status:     target.Status,
			Attempts:   target.Attempts,
			Skipped:    result.Skip,
		}
		if !result.Skip {
			pr.Err = target.ErrorMessage
		}
		if remove {
			m.items = append(m.items[:idx], m.items[idx+1:]...)
		}
		if !result.Skip {
			m.persistLocked(ctx)
		}
		m.mu.Unlock()

		results = append(results, pr)

		switch {
		case result.Skip:
			skipped++
		case pr.Status == StatusSynced:
			delivered++
			m.logger.Info("action delivered",
				logging.String(logging.FieldItemID, pr.ItemID),
				logging.String(logging.FieldActionType, pr.ActionType),
				logging.Int(logging.FieldAttempt, pr.Attempts))
		case pr.Status == StatusFailed:
			failed++
			logging.ErrorWithContext(m.logger, "action failed permanently", "action_exhausted",
				logging.String(logging.FieldItemID, pr.ItemID),
				logging.String(logging.FieldActionType, pr.ActionType),
				logging.Int(logging.FieldAttempt, pr.Attempts),
				logging.String("error_message", pr.Err),
				logging.String(logging.FieldErrorHint, "inspect the action and retry with 'courier queue retry'"))
		default:
			retried++
			logging.WarnWithContext(m.logger, "delivery attempt failed", "delivery_attempt_failed",
				logging.String(logging.FieldItemID, pr.ItemID),
				logging.String(logging.FieldActionType, pr.ActionType),
				logging.Int(logging.FieldAttempt, pr.Attempts),
				logging.String("error_message", pr.Err),
				logging.String(logging.FieldErrorHint, "the action stays pending and retries next sweep"),
				logging.String(logging.FieldImpact, "delivery delayed"))
		}
	}

	m.logger.Info("sweep complete",
		logging.Int("handled", len(results)),
		logging.Int("delivered", delivered),
		logging.Int("retried", retried),
		logging.Int("failed", failed),
		logging.Int("skipped", skipped))

	return results, sweepErr
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshotLocked() []Item {
	cp := make([]Item, len(m.items))
	copy(cp, m.items)
	return cp
}

func (m *Manager) persistLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := encodeItems(m.items)
	if err != nil {
		logging.WarnWithContext(m.logger, "queue state not persisted", "queue_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldQueueKey, m.key),
			logging.String(logging.FieldErrorHint, "ensure action payloads are JSON-serializable"),
			logging.String(logging.FieldImpact, "queue state will not survive a restart"))
		return
	}
	m.store.Set(ctx, m.key, data)
}

func (m *Manager) notify(snapshot []Item) {
	m.subMu.Lock()
	fns := make([]func([]Item), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		cp := make([]Item, len(snapshot))
		copy(cp, snapshot)
		fn(cp)
	}
}

func sanitizeItems(items []Item, defaultMaxAttempts int) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		// A synced item persisted mid-shutdown was already delivered.
		if item.Status == StatusSynced {
			continue
		}
		if _, known := statusSet[item.Status]; !known {
			item.Status = StatusPending
		}
		if item.MaxAttempts <= 0 {
			item.MaxAttempts = defaultMaxAttempts
		}
		if item.Attempts > item.MaxAttempts {
			item.Attempts = item.MaxAttempts
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
