// Package agent composes the courier daemon: the durable store, the
// connectivity monitor, the queue manager, the remote deliverer, and the
// notifier, behind a single-instance lock. The agent drains the queue on
// reconnect and on a safety poll, and exposes the facade the IPC server and
// CLI operate through.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"courier/internal/config"
	"courier/internal/connectivity"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/remote"
	"courier/internal/store"
)

// Options allows tests and embedders to swap the agent's collaborators.
// Any nil field is built from the config.
type Options struct {
	Store    *store.Store
	Monitor  connectivity.Monitor
	Deliver  queue.Handler
	Notifier notifications.Service
}

// Agent coordinates background queue replay and enforces single-instance
// execution via a lock file under the state directory.
type Agent struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	monitor  connectivity.Monitor
	queue    *queue.Manager
	deliver  queue.Handler
	notifier notifications.Service

	// probe is non-nil only when the agent built the monitor itself and
	// therefore owns its lifecycle.
	probe *connectivity.ProbeMonitor

	lockPath string
	lock     *flock.Flock

	running     atomic.Bool
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
	kick        chan struct{}

	startedAt time.Time
}

// Status represents agent runtime information for the CLI and IPC layers.
type Status struct {
	Running      bool
	Offline      bool
	Processing   bool
	Queue        queue.HealthSummary
	StoreBackend string
	LockFilePath string
	SocketPath   string
	Uptime       time.Duration
}

// New constructs an agent with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("agent requires a config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st := opts.Store
	if st == nil {
		st = store.Open(cfg, logger)
	}

	monitor := opts.Monitor
	var probe *connectivity.ProbeMonitor
	if monitor == nil {
		probe = connectivity.NewMonitor(cfg, logger)
		monitor = probe
	}

	deliver := opts.Deliver
	if deliver == nil {
		deliver = remote.NewDeliverer(cfg, logger).Deliver
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	manager := queue.NewManager(queue.Options{
		Store:       st,
		Key:         cfg.Store.QueueKey,
		Monitor:     monitor,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      logger,
	})

	lockPath := cfg.LockPath()
	return &Agent{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "agent"),
		store:    st,
		monitor:  monitor,
		queue:    manager,
		deliver:  deliver,
		notifier: notifier,
		probe:    probe,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		kick:     make(chan struct{}, 1),
	}, nil
}

// Start acquires the instance lock, loads the persisted queue, starts the
// connectivity monitor it owns, and launches the replay loop.
func (a *Agent) Start(ctx context.Context) error {
	if a.running.Load() {
		return errors.New("agent already running")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another courier agent instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := a.queue.Initialize(runCtx); err != nil {
		cancel()
		_ = a.lock.Unlock()
		return fmt.Errorf("initialize queue: %w", err)
	}
	if a.probe != nil {
		if err := a.probe.Start(runCtx); err != nil {
			cancel()
			_ = a.lock.Unlock()
			return fmt.Errorf("start connectivity monitor: %w", err)
		}
	}

	a.mu.Lock()
	a.ctx = runCtx
	a.cancel = cancel
	a.unsubscribe = a.monitor.Subscribe(a.onConnectivityChange)
	a.startedAt = time.Now()
	a.mu.Unlock()

	a.running.Store(true)
	a.wg.Add(1)
	go a.loop(runCtx)

	if a.cfg.Store.Driver != "memory" && a.store.Backend() == "memory" {
		if nerr := a.notifier.NotifyStoreDegraded(runCtx, a.cfg.Store.Driver); nerr != nil {
			a.logger.Debug("store degradation notification not sent", logging.Error(nerr))
		}
	}

	a.logger.Info("courier agent started",
		logging.String("lock", a.lockPath),
		logging.String("store", a.store.Backend()),
		logging.Bool("offline", a.monitor.Offline()),
		logging.Int("queued", a.queue.Len()))
	return nil
}

// Stop halts background replay and releases the instance lock.
func (a *Agent) Stop() {
	if !a.running.Load() {
		return
	}

	a.mu.Lock()
	unsubscribe := a.unsubscribe
	cancel := a.cancel
	a.unsubscribe = nil
	a.cancel = nil
	a.ctx = nil
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
	if a.probe != nil {
		a.probe.Stop()
	}
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("failed to release agent lock", logging.Error(err))
	}
	a.running.Store(false)
	a.logger.Info("courier agent stopped")
}

// Close stops the agent and releases the store.
func (a *Agent) Close() error {
	a.Stop()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Running reports whether the agent has been started.
func (a *Agent) Running() bool { return a.running.Load() }

// Queue exposes the manager for embedders; IPC and CLI go through the
// facade methods instead.
func (a *Agent) Queue() *queue.Manager { return a.queue }

// onConnectivityChange schedules a drain when the connection returns.
func (a *Agent) onConnectivityChange(offline bool) {
	if offline {
		a.logger.Info("connection lost; queueing mode",
			logging.Int("pending", a.queue.PendingCount()))
		return
	}
	a.logger.Info("connection restored",
		logging.Int("pending", a.queue.PendingCount()))
	if a.queue.PendingCount() > 0 {
		a.requestSweep()
	}
}

// requestSweep nudges the replay loop without blocking. Multiple requests
// coalesce into one.
func (a *Agent) requestSweep() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// loop is the replay loop: it drains on startup, on demand, and on a safety
// poll so items never sit pending longer than one interval while online.
func (a *Agent) loop(ctx context.Context) {
	defer a.wg.Done()

	a.drain(ctx, "startup")

	for {
		timer := time.NewTimer(a.nextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-a.kick:
			timer.Stop()
			a.drain(ctx, "demand")
		case <-timer.C:
			a.drain(ctx, "poll")
		}
	}
}

// nextInterval picks the poll cadence: the error retry interval while failed
// items are waiting on an operator, the regular interval otherwise.
func (a *Agent) nextInterval() time.Duration {
	poll := time.Duration(a.cfg.Agent.PollInterval) * time.Second
	if poll <= 0 {
		poll = time.Duration(config.DefaultPollInterval) * time.Second
	}
	retry := time.Duration(a.cfg.Agent.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = time.Duration(config.DefaultErrorRetryInterval) * time.Second
	}

	health := a.queue.Health()
	if health.Failed > 0 && health.Pending == 0 {
		return retry
	}
	return poll
}

// drain runs one sweep if there is anything to do and the connection is up.
func (a *Agent) drain(ctx context.Context, reason string) {
	if a.monitor.Offline() || a.queue.PendingCount() == 0 {
		return
	}
	a.logger.Debug("draining queue", logging.String("reason", reason))
	if _, err := a.Sweep(ctx); err != nil {
		logging.WarnWithContext(a.logger, "queue drain interrupted", "drain_interrupted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remaining items stay pending for the next sweep"))
	}
}

// Sweep runs one replay pass over the queue with the configured deliverer
// and publishes the outcome. Safe to call while the loop runs; overlapping
// sweeps short-circuit to an empty result.
func (a *Agent) Sweep(ctx context.Context) ([]queue.ProcessResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	results, err := a.queue.ProcessAll(ctx, a.deliver)
	if len(results) == 0 {
		return results, err
	}

	var delivered, retried, failed int
	for _, result := range results {
		switch {
		case result.Skipped:
		case result.Status == queue.StatusSynced:
			delivered++
		case result.Status == queue.StatusFailed:
			failed++
			if nerr := a.notifier.NotifyActionExhausted(ctx, result.ActionType, result.ItemID, result.Err); nerr != nil {
				a.logger.Debug("failure notification not sent", logging.Error(nerr))
			}
		default:
			retried++
		}
	}
	if nerr := a.notifier.NotifySweepCompleted(ctx, delivered, retried, failed, time.Since(start)); nerr != nil {
		a.logger.Debug("sweep notification not sent", logging.Error(nerr))
	}
	return results, err
}
