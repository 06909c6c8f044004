package queueaccess

import (
	"context"

	"courier/internal/api"
	"courier/internal/ipc"
	"courier/internal/queue"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id string) (*api.QueueItem, error)
	Submit(ctx context.Context, actionType string, payload map[string]any) (api.QueueItem, error)
	Remove(ctx context.Context, ids []string) (int, error)
	RetryAll(ctx context.Context) (int, error)
	Retry(ctx context.Context, ids []string) (int, error)
	ClearAll(ctx context.Context) (int, error)
	ClearFailed(ctx context.Context) (int, error)
}

// NewIPCAccess returns an Access backed by agent IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by a directly opened queue.
func NewStoreAccess(manager *queue.Manager) Access {
	return &storeAccess{queue: manager}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary(*resp), nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Describe(ctx context.Context, id string) (*api.QueueItem, error) {
	items, err := a.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (a *ipcAccess) Submit(_ context.Context, actionType string, payload map[string]any) (api.QueueItem, error) {
	resp, err := a.client.Submit(actionType, payload)
	if err != nil {
		return api.QueueItem{}, err
	}
	return resp.Item, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []string) (int, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) RetryAll(_ context.Context) (int, error) {
	resp, err := a.client.QueueRetry(nil)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []string) (int, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) ClearAll(_ context.Context) (int, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(_ context.Context) (int, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

type storeAccess struct {
	queue *queue.Manager
}

func (a *storeAccess) Stats(_ context.Context) (map[string]int, error) {
	return api.HealthCounts(a.queue.Health()), nil
}

func (a *storeAccess) Health(_ context.Context) (queue.HealthSummary, error) {
	return a.queue.Health(), nil
}

func (a *storeAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}

	items := a.queue.Items()
	if len(filters) == 0 {
		return api.FromQueueItems(items), nil
	}
	matched := make([]queue.Item, 0, len(items))
	for _, item := range items {
		for _, status := range filters {
			if item.Status == status {
				matched = append(matched, item)
				break
			}
		}
	}
	return api.FromQueueItems(matched), nil
}

func (a *storeAccess) Describe(_ context.Context, id string) (*api.QueueItem, error) {
	for _, item := range a.queue.Items() {
		if item.ID == id {
			view := api.FromQueueItem(item)
			return &view, nil
		}
	}
	return nil, nil
}

func (a *storeAccess) Submit(ctx context.Context, actionType string, payload map[string]any) (api.QueueItem, error) {
	item, err := a.queue.Add(ctx, queue.Action{Type: actionType, Payload: payload})
	if err != nil {
		return api.QueueItem{}, err
	}
	return api.FromQueueItem(*item), nil
}

func (a *storeAccess) Remove(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		removed, err := a.queue.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) RetryAll(ctx context.Context) (int, error) {
	return a.queue.RetryFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, ids []string) (int, error) {
	return a.queue.RetryFailed(ctx, ids...)
}

func (a *storeAccess) ClearAll(ctx context.Context) (int, error) {
	return a.queue.Clear(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int, error) {
	return a.queue.ClearFailed(ctx)
}
