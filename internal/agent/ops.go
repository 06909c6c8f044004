package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"courier/internal/notifications"
	"courier/internal/queue"
)

// ListQueue returns queue items filtered by optional statuses.
func (a *Agent) ListQueue(ctx context.Context, statuses ...queue.Status) ([]queue.Item, error) {
	_ = ctx
	items := a.queue.Items()
	if len(statuses) == 0 {
		return items, nil
	}

	keep := make(map[queue.Status]struct{}, len(statuses))
	for _, status := range statuses {
		keep[status] = struct{}{}
	}
	filtered := items[:0]
	for _, item := range items {
		if _, ok := keep[item.Status]; ok {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// Submit enqueues one action; when the connection is up the replay loop is
// nudged so delivery starts immediately. The agent is store-and-forward:
// even online submissions go through the durable queue.
func (a *Agent) Submit(ctx context.Context, action queue.Action) (*queue.Item, error) {
	item, err := a.queue.Add(ctx, action)
	if err != nil {
		return nil, err
	}
	if !a.monitor.Offline() {
		a.requestSweep()
	}
	return item, nil
}

// RemoveItem removes a queued item by id.
func (a *Agent) RemoveItem(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("item id is required")
	}
	return a.queue.Remove(ctx, id)
}

// RetryFailed resets failed items (optionally a subset) back to pending and
// nudges the replay loop.
func (a *Agent) RetryFailed(ctx context.Context, ids ...string) (int, error) {
	count, err := a.queue.RetryFailed(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if count > 0 && !a.monitor.Offline() {
		a.requestSweep()
	}
	return count, nil
}

// ClearQueue removes all queue items.
func (a *Agent) ClearQueue(ctx context.Context) (int, error) {
	return a.queue.Clear(ctx)
}

// ClearFailed removes only failed queue items.
func (a *Agent) ClearFailed(ctx context.Context) (int, error) {
	return a.queue.ClearFailed(ctx)
}

// QueueHealth returns aggregate queue counts.
func (a *Agent) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	_ = ctx
	return a.queue.Health(), nil
}

// TestNotification triggers a test notification using the current configuration.
func (a *Agent) TestNotification(ctx context.Context) (bool, string, error) {
	if a.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(a.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := a.notifier
	if notifier == nil {
		notifier = notifications.NewService(a.cfg)
	}
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current agent status.
func (a *Agent) Status(ctx context.Context) Status {
	_ = ctx
	var uptime time.Duration
	a.mu.Lock()
	if !a.startedAt.IsZero() && a.running.Load() {
		uptime = time.Since(a.startedAt)
	}
	a.mu.Unlock()

	return Status{
		Running:      a.running.Load(),
		Offline:      a.monitor.Offline(),
		Processing:   a.queue.Processing(),
		Queue:        a.queue.Health(),
		StoreBackend: a.store.Backend(),
		LockFilePath: a.lockPath,
		SocketPath:   a.cfg.SocketPath(),
		Uptime:       uptime,
	}
}

// LogPath returns the agent log file location.
func (a *Agent) LogPath() string {
	return a.cfg.LogFilePath()
}

// Offline reports the monitor's current view of connectivity.
func (a *Agent) Offline() bool { return a.monitor.Offline() }

// RequestProbe asks an owned probe monitor to re-check connectivity now.
// No-op when the monitor is caller-supplied.
func (a *Agent) RequestProbe() {
	if a.probe != nil {
		a.probe.RequestProbe()
	}
}
