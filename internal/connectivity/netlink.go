package connectivity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"courier/internal/logging"
)

// linkWatcher listens for kernel network interface uevents and requests an
// immediate re-probe on link changes, so transitions are observed between
// poll intervals instead of after them.
type linkWatcher struct {
	logger *slog.Logger
	kick   func()

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newLinkWatcher(logger *slog.Logger, kick func()) *linkWatcher {
	return &linkWatcher{
		logger: logging.NewComponentLogger(logger, "link-watcher"),
		kick:   kick,
	}
}

// Start begins listening for udev netlink events. Failure to open the
// netlink socket is non-fatal; probe polling continues without link events.
func (w *linkWatcher) Start(ctx context.Context) {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("failed to connect to netlink socket; connectivity changes will be observed on the next poll",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the agent has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "reconnect detection may lag by one probe interval"))
		return
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.monitorLoop(ctx, quit)

	w.logger.Info("link watcher started",
		logging.String(logging.FieldEventType, "link_watcher_started"))
}

// Stop shuts down the link watcher.
func (w *linkWatcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}

	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}

	w.running = false

	w.logger.Info("link watcher stopped",
		logging.String(logging.FieldEventType, "link_watcher_stopped"))
}

// Running reports whether the link watcher is active.
func (w *linkWatcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *linkWatcher) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := w.buildMatcher()

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			w.handleEvent(uevent)
		case err := <-errs:
			w.logger.Warn("link watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "link_watcher_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "reconnect detection may lag by one probe interval"))
		}
	}
}

// buildMatcher matches network interface lifecycle events:
// SUBSYSTEM=net, ACTION=add|remove|change|move.
func (w *linkWatcher) buildMatcher() netlink.Matcher {
	action := "add|remove|change|move"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "net",
		},
	})
	return rules
}

func (w *linkWatcher) handleEvent(uevent netlink.UEvent) {
	w.logger.Debug("network interface event",
		logging.String("action", string(uevent.Action)),
		logging.String("interface", uevent.Env["INTERFACE"]),
		logging.String("kobj", uevent.KObj))

	if w.kick != nil {
		w.kick()
	}
}
