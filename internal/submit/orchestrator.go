// Package submit hosts the consumer-facing orchestrator. An orchestrator owns
// one action type on a shared queue: it decides between direct delivery and
// queueing based on connectivity, and drains the queue when the connection
// returns.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"log/slog"

	"courier/internal/connectivity"
	"courier/internal/logging"
	"courier/internal/queue"
)

var (
	// ErrMissingActionType reports an orchestrator built without an action type.
	ErrMissingActionType = errors.New("orchestrator requires an action type")
	// ErrMissingQueue reports an orchestrator built without a queue manager.
	ErrMissingQueue = errors.New("orchestrator requires a queue manager")
	// ErrMissingDeliver reports an orchestrator built without a delivery handler.
	ErrMissingDeliver = errors.New("orchestrator requires a delivery handler")
)

// Result is the outcome of one Submit call. Queued submissions are always
// successful from the caller's point of view; delivery happens later.
type Result struct {
	Success bool
	Queued  bool
	ItemID  string
	Err     string
}

// Options configures an orchestrator. ActionType, Queue, and Deliver are
// required. A nil Monitor means always online. The callbacks are optional
// hooks for UI layers; they run synchronously inside Submit.
type Options struct {
	ActionType string
	Queue      *queue.Manager
	Monitor    connectivity.Monitor
	Deliver    queue.Handler
	OnQueued   func(item queue.Item)
	OnSuccess  func()
	OnError    func(message string)
	Logger     *slog.Logger
}

// Orchestrator routes submissions for a single action type and reconciles
// the shared queue on reconnect. Multiple orchestrators may share one queue;
// each leaves the others' items untouched.
type Orchestrator struct {
	actionType string
	queue      *queue.Manager
	monitor    connectivity.Monitor
	deliver    queue.Handler
	onQueued   func(queue.Item)
	onSuccess  func()
	onError    func(string)
	logger     *slog.Logger

	mu          sync.Mutex
	running     bool
	reconciling bool
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New builds an orchestrator from opts.
func New(opts Options) (*Orchestrator, error) {
	actionType := strings.TrimSpace(opts.ActionType)
	if actionType == "" {
		return nil, ErrMissingActionType
	}
	if opts.Queue == nil {
		return nil, ErrMissingQueue
	}
	if opts.Deliver == nil {
		return nil, ErrMissingDeliver
	}

	logger := logging.NewComponentLogger(opts.Logger, "orchestrator").
		With(logging.String(logging.FieldActionType, actionType))

	return &Orchestrator{
		actionType: actionType,
		queue:      opts.Queue,
		monitor:    opts.Monitor,
		deliver:    opts.Deliver,
		onQueued:   opts.OnQueued,
		onSuccess:  opts.OnSuccess,
		onError:    opts.OnError,
		logger:     logger,
	}, nil
}

// Submit routes one payload. Offline, the action is queued for replay and the
// result reports Queued with the new item id. Online, the configured Deliver
// runs immediately and its outcome is returned as data; a panicking Deliver
// is captured, never propagated. The error return is reserved for misuse,
// such as submitting into an uninitialized queue.
func (o *Orchestrator) Submit(ctx context.Context, payload map[string]any) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	action := queue.Action{Type: o.actionType, Payload: payload}

	if o.Offline() {
		item, err := o.queue.Add(ctx, action)
		if err != nil {
			return Result{}, err
		}
		if o.onQueued != nil {
			o.onQueued(*item)
		}
		return Result{Success: true, Queued: true, ItemID: item.ID}, nil
	}

	outcome := o.attemptDelivery(ctx, action)
	if outcome.Delivered {
		if o.onSuccess != nil {
			o.onSuccess()
		}
		return Result{Success: true}, nil
	}

	message := outcome.Err
	if message == "" {
		if outcome.Skip {
			message = "delivery handler skipped the action"
		} else {
			message = "delivery failed"
		}
	}
	o.logger.Warn("direct delivery failed",
		logging.String(logging.FieldEventType, "direct_delivery_failed"),
		logging.String("error_message", message))
	if o.onError != nil {
		o.onError(message)
	}
	return Result{Success: false, Err: message}, nil
}

func (o *Orchestrator) attemptDelivery(ctx context.Context, action queue.Action) (result queue.HandlerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = queue.HandlerResult{Err: fmt.Sprintf("handler panic: %v", r)}
		}
	}()
	return o.deliver(ctx, action)
}

// ProcessQueue sweeps the shared queue with deliver, skipping items of other
// action types so they are neither advanced nor failed. The returned results
// cover only this orchestrator's items. A nil deliver uses the configured
// Deliver.
func (o *Orchestrator) ProcessQueue(ctx context.Context, deliver queue.Handler) ([]queue.ProcessResult, error) {
	if deliver == nil {
		deliver = o.deliver
	}
	results, err := o.queue.ProcessAll(ctx, o.ownOnly(deliver))

	own := make([]queue.ProcessResult, 0, len(results))
	for _, result := range results {
		if result.Skipped {
			continue
		}
		own = append(own, result)
	}
	return own, err
}

func (o *Orchestrator) ownOnly(deliver queue.Handler) queue.Handler {
	return func(ctx context.Context, action queue.Action) queue.HandlerResult {
		if action.Type != o.actionType {
			return queue.HandlerResult{Skip: true}
		}
		return deliver(ctx, action)
	}
}

// AddAction enqueues an arbitrary action without a delivery attempt.
func (o *Orchestrator) AddAction(ctx context.Context, action queue.Action) (*queue.Item, error) {
	return o.queue.Add(ctx, action)
}

// RemoveAction removes a queued item by id and reports whether it was found.
func (o *Orchestrator) RemoveAction(ctx context.Context, id string) (bool, error) {
	return o.queue.Remove(ctx, id)
}

// Start begins watching the monitor. On each offline to online transition
// with pending items, exactly one reconcile sweep runs in the background;
// overlapping auto-triggered sweeps are never launched.
func (o *Orchestrator) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("orchestrator already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.ctx = runCtx
	o.cancel = cancel
	o.running = true
	if o.monitor != nil {
		o.unsubscribe = o.monitor.Subscribe(o.onConnectivityChange)
	}
	return nil
}

// Stop detaches from the monitor, cancels any in-flight reconcile sweep, and
// waits for it to finish. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	unsubscribe := o.unsubscribe
	cancel := o.cancel
	o.running = false
	o.unsubscribe = nil
	o.ctx = nil
	o.cancel = nil
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) onConnectivityChange(offline bool) {
	if offline {
		return
	}

	o.mu.Lock()
	if !o.running || o.reconciling {
		o.mu.Unlock()
		return
	}
	pending := o.queue.PendingCount()
	if pending == 0 {
		o.mu.Unlock()
		return
	}
	o.reconciling = true
	ctx := o.ctx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			o.reconciling = false
			o.mu.Unlock()
		}()

		o.logger.Info("connectivity restored; draining queue", logging.Int("pending", pending))
		if _, err := o.ProcessQueue(ctx, nil); err != nil {
			logging.WarnWithContext(o.logger, "reconcile sweep interrupted", "reconcile_interrupted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remaining items stay pending for the next sweep"))
		}
	}()
}

// Offline reports the monitor's current state; without a monitor the
// orchestrator behaves as always online.
func (o *Orchestrator) Offline() bool {
	if o.monitor == nil {
		return false
	}
	return o.monitor.Offline()
}

// Processing reports whether the shared queue is mid-sweep.
func (o *Orchestrator) Processing() bool { return o.queue.Processing() }

// QueueLength reports the number of items in the shared queue, all types.
func (o *Orchestrator) QueueLength() int { return o.queue.Len() }

// PendingCount reports the number of pending items in the shared queue.
func (o *Orchestrator) PendingCount() int { return o.queue.PendingCount() }

// ActionType returns the action type this orchestrator owns.
func (o *Orchestrator) ActionType() string { return o.actionType }

// Queue exposes the underlying manager for embedders that need direct access.
func (o *Orchestrator) Queue() *queue.Manager { return o.queue }
