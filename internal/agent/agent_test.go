package agent_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"courier/internal/agent"
	"courier/internal/config"
	"courier/internal/connectivity"
	"courier/internal/logging"
	"courier/internal/queue"
	"courier/internal/store"
	"courier/internal/testsupport"
)

func waitFor(t *testing.T, message string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

type fakeDeliverer struct {
	mu    sync.Mutex
	calls int
	fail  bool
	errs  string
}

func (f *fakeDeliverer) deliver(_ context.Context, _ queue.Action) queue.HandlerResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return queue.HandlerResult{Err: f.errs}
	}
	return queue.HandlerResult{Delivered: true}
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDeliverer) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type sweepNote struct {
	delivered int
	retried   int
	failed    int
}

type exhaustedNote struct {
	actionType string
	itemID     string
	message    string
}

type recordingNotifier struct {
	mu        sync.Mutex
	sweeps    []sweepNote
	exhausted []exhaustedNote
	degraded  []string
}

func (r *recordingNotifier) NotifySweepCompleted(_ context.Context, delivered, retried, failed int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, sweepNote{delivered, retried, failed})
	return nil
}

func (r *recordingNotifier) NotifyActionExhausted(_ context.Context, actionType, itemID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted = append(r.exhausted, exhaustedNote{actionType, itemID, message})
	return nil
}

func (r *recordingNotifier) NotifyStoreDegraded(_ context.Context, backend string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, backend)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) sweepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sweeps)
}

func (r *recordingNotifier) exhaustedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exhausted)
}

func (r *recordingNotifier) degradedBackends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.degraded...)
}

func newAgent(t *testing.T, cfg *config.Config, opts agent.Options) *agent.Agent {
	t.Helper()
	a, err := agent.New(cfg, logging.NewNop(), opts)
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func mustStart(t *testing.T, a *agent.Agent) {
	t.Helper()
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestAgentStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	deliver := &fakeDeliverer{}
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: deliver.deliver,
	})

	mustStart(t, a)
	if !a.Running() {
		t.Fatal("expected agent to report running")
	}
	status := a.Status(context.Background())
	if !status.Running {
		t.Fatal("expected status to report running")
	}
	if status.Uptime <= 0 {
		t.Fatalf("expected positive uptime, got %v", status.Uptime)
	}

	// Second start should fail.
	if err := a.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	a.Stop()
	if a.Running() {
		t.Fatal("expected agent to be stopped")
	}
	a.Stop()
}

func TestAgentSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: (&fakeDeliverer{}).deliver,
	})
	second := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: (&fakeDeliverer{}).deliver,
	})

	mustStart(t, first)
	err := second.Start(context.Background())
	if err == nil {
		t.Fatal("expected second agent on the same lock to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected lock error: %v", err)
	}

	first.Stop()
	mustStart(t, second)
	second.Stop()
}

func TestSubmitOnlineDrainsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	deliver := &fakeDeliverer{}
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: deliver.deliver,
	})
	mustStart(t, a)

	item, err := a.Submit(context.Background(), queue.Action{Type: "note.create", Payload: map[string]any{"body": "hello"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected submitted item to carry an id")
	}

	waitFor(t, "queue to drain", func() bool { return a.Queue().Len() == 0 })
	if got := deliver.count(); got != 1 {
		t.Fatalf("expected one delivery, got %d", got)
	}
}

func TestSubmitOfflineQueuesUntilReconnect(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	deliver := &fakeDeliverer{}
	monitor := connectivity.NewStaticMonitor(true)
	a := newAgent(t, cfg, agent.Options{
		Monitor: monitor,
		Deliver: deliver.deliver,
	})
	mustStart(t, a)

	if _, err := a.Submit(context.Background(), queue.Action{Type: "note.create"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := deliver.count(); got != 0 {
		t.Fatalf("expected no deliveries while offline, got %d", got)
	}
	if got := a.Queue().PendingCount(); got != 1 {
		t.Fatalf("expected one pending item, got %d", got)
	}

	monitor.SetOffline(false)
	waitFor(t, "queue to drain after reconnect", func() bool { return a.Queue().Len() == 0 })
	if got := deliver.count(); got != 1 {
		t.Fatalf("expected one delivery after reconnect, got %d", got)
	}
}

func TestStartDrainsPersistedQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	// Seed the durable store as a previous run would have left it.
	seedStore := testsupport.MustOpenStore(t, cfg)
	seed := queue.NewManager(queue.Options{Store: seedStore, Logger: logging.NewNop()})
	if err := seed.Initialize(context.Background()); err != nil {
		t.Fatalf("seed Initialize: %v", err)
	}
	if _, err := seed.Add(context.Background(), queue.Action{Type: "note.create"}); err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	if err := seedStore.Close(); err != nil {
		t.Fatalf("close seed store: %v", err)
	}

	deliver := &fakeDeliverer{}
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: deliver.deliver,
	})
	mustStart(t, a)

	waitFor(t, "startup drain", func() bool { return a.Queue().Len() == 0 })
	if got := deliver.count(); got != 1 {
		t.Fatalf("expected the persisted item to be delivered once, got %d", got)
	}
}

func TestSweepNotifiesOnExhaustion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	deliver := &fakeDeliverer{fail: true, errs: "upstream 500"}
	notifier := &recordingNotifier{}
	a := newAgent(t, cfg, agent.Options{
		Monitor:  connectivity.NewStaticMonitor(false),
		Deliver:  deliver.deliver,
		Notifier: notifier,
	})
	mustStart(t, a)

	if _, err := a.Submit(context.Background(), queue.Action{Type: "photo.upload"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "exhaustion notification", func() bool { return notifier.exhaustedCount() == 1 })
	waitFor(t, "sweep notification", func() bool { return notifier.sweepCount() >= 1 })

	notifier.mu.Lock()
	note := notifier.exhausted[0]
	sweep := notifier.sweeps[0]
	notifier.mu.Unlock()
	if note.actionType != "photo.upload" {
		t.Fatalf("unexpected action type in notification: %q", note.actionType)
	}
	if note.message != "upstream 500" {
		t.Fatalf("unexpected message in notification: %q", note.message)
	}
	if sweep.failed != 1 || sweep.delivered != 0 {
		t.Fatalf("unexpected sweep summary: %+v", sweep)
	}

	failed, err := a.ListQueue(context.Background(), queue.StatusFailed)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected one failed item retained, got %d", len(failed))
	}
}

func TestRetryFailedNudgesReplay(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	deliver := &fakeDeliverer{fail: true, errs: "upstream 500"}
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: deliver.deliver,
	})
	mustStart(t, a)

	if _, err := a.Submit(context.Background(), queue.Action{Type: "note.create"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "item to exhaust", func() bool {
		health, _ := a.QueueHealth(context.Background())
		return health.Failed == 1
	})

	deliver.setFail(false)
	count, err := a.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one item reset, got %d", count)
	}

	waitFor(t, "retried item to deliver", func() bool { return a.Queue().Len() == 0 })
	if got := deliver.count(); got != 2 {
		t.Fatalf("expected two total attempts, got %d", got)
	}
}

func TestQueueOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(true),
		Deliver: (&fakeDeliverer{}).deliver,
	})
	mustStart(t, a)

	ctx := context.Background()
	first, err := a.Submit(ctx, queue.Action{Type: "note.create"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := a.Submit(ctx, queue.Action{Type: "note.update"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := a.Submit(ctx, queue.Action{Type: "photo.upload"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	items, err := a.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	pending, err := a.ListQueue(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("ListQueue pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending items, got %d", len(pending))
	}
	failed, err := a.ListQueue(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected no failed items, got %d", len(failed))
	}

	if _, err := a.RemoveItem(ctx, ""); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
	removed, err := a.RemoveItem(ctx, first.ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !removed {
		t.Fatal("expected item to be removed")
	}

	cleared, err := a.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected 2 items cleared, got %d", cleared)
	}
	health, err := a.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 0 {
		t.Fatalf("expected empty queue, got %+v", health)
	}
}

func TestStatusReportsConfiguredPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(true),
		Deliver: (&fakeDeliverer{}).deliver,
	})
	mustStart(t, a)

	status := a.Status(context.Background())
	if !status.Offline {
		t.Fatal("expected offline status")
	}
	if status.StoreBackend != "sqlite" {
		t.Fatalf("expected sqlite backend, got %q", status.StoreBackend)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("unexpected socket path %q", status.SocketPath)
	}
	if a.LogPath() != cfg.LogFilePath() {
		t.Fatalf("unexpected log path %q", a.LogPath())
	}
}

func TestStartNotifiesWhenStoreDegraded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	a := newAgent(t, cfg, agent.Options{
		Store:    store.NewStore(store.OpenMemory(), "memory", nil),
		Monitor:  connectivity.NewStaticMonitor(true),
		Deliver:  (&fakeDeliverer{}).deliver,
		Notifier: notifier,
	})
	mustStart(t, a)

	backends := notifier.degradedBackends()
	if len(backends) != 1 || backends[0] != "sqlite" {
		t.Fatalf("expected degradation notice for sqlite, got %v", backends)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	a := newAgent(t, cfg, agent.Options{
		Monitor: connectivity.NewStaticMonitor(false),
		Deliver: (&fakeDeliverer{}).deliver,
	})

	ok, detail, err := a.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok {
		t.Fatal("expected notification to be skipped without a topic")
	}
	if detail != "ntfy topic not configured" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestTestNotificationDelegatesToNotifier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = "https://ntfy.example/courier"
	notifier := &recordingNotifier{}
	a := newAgent(t, cfg, agent.Options{
		Monitor:  connectivity.NewStaticMonitor(false),
		Deliver:  (&fakeDeliverer{}).deliver,
		Notifier: notifier,
	})

	ok, detail, err := a.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if !ok {
		t.Fatalf("expected success, got detail %q", detail)
	}
	if detail != "test notification sent" {
		t.Fatalf("unexpected detail %q", detail)
	}
}
