package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/logging"
)

// Prober reports whether the backend is reachable right now.
type Prober func(ctx context.Context) bool

// HTTPProber builds a Prober that issues a GET against url. Any completed
// response counts as reachable; only transport failures count as offline.
func HTTPProber(url string, timeout time.Duration) Prober {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return true
	}
}

// ProbeOptions describes ProbeMonitor construction parameters.
type ProbeOptions struct {
	Probe      Prober
	Interval   time.Duration
	WatchLinks bool
	Logger     *slog.Logger
}

// ProbeMonitor derives connectivity state from a periodic reachability probe.
// The zero state before Start reports online; Start runs the first probe
// synchronously so the answer is meaningful as soon as it returns.
type ProbeMonitor struct {
	logger   *slog.Logger
	probe    Prober
	interval time.Duration

	hub subscriberHub

	mu      sync.Mutex
	offline bool
	running bool
	cancel  context.CancelFunc
	ctx     context.Context

	wg      sync.WaitGroup
	kick    chan struct{}
	watcher *linkWatcher
}

// NewMonitor builds a ProbeMonitor from application configuration.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *ProbeMonitor {
	return NewProbeMonitor(ProbeOptions{
		Probe:      HTTPProber(cfg.Connectivity.ProbeURL, time.Duration(cfg.Connectivity.ProbeTimeout)*time.Second),
		Interval:   time.Duration(cfg.Connectivity.ProbeInterval) * time.Second,
		WatchLinks: cfg.Connectivity.WatchLinks,
		Logger:     logger,
	})
}

// NewProbeMonitor builds a monitor from explicit options.
func NewProbeMonitor(opts ProbeOptions) *ProbeMonitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	probe := opts.Probe
	if probe == nil {
		probe = func(context.Context) bool { return true }
	}

	m := &ProbeMonitor{
		logger:   logging.NewComponentLogger(opts.Logger, "connectivity"),
		probe:    probe,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
	if opts.WatchLinks {
		m.watcher = newLinkWatcher(opts.Logger, m.RequestProbe)
	}
	return m
}

// Offline reports the last observed connectivity state.
func (m *ProbeMonitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Subscribe registers fn for transition notifications.
func (m *ProbeMonitor) Subscribe(fn func(offline bool)) func() {
	return m.hub.subscribe(fn)
}

// RequestProbe schedules an immediate re-probe without waiting for the next
// interval. Safe to call from any goroutine; coalesces concurrent requests.
func (m *ProbeMonitor) RequestProbe() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Start begins probing. The first probe completes before Start returns.
func (m *ProbeMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("connectivity monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.probeOnce(runCtx)

	m.wg.Add(1)
	go m.loop(runCtx)

	if m.watcher != nil {
		m.watcher.Start(runCtx)
	}

	m.logger.Info("connectivity monitor started",
		logging.String(logging.FieldEventType, "connectivity_monitor_started"),
		logging.Duration("interval", m.interval),
		logging.Bool("offline", m.Offline()))
	return nil
}

// Stop halts probing and waits for the poll loop to exit.
func (m *ProbeMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	if m.watcher != nil {
		m.watcher.Stop()
	}

	m.logger.Info("connectivity monitor stopped",
		logging.String(logging.FieldEventType, "connectivity_monitor_stopped"))
}

func (m *ProbeMonitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeOnce(ctx)
		case <-m.kick:
			m.probeOnce(ctx)
		}
	}
}

func (m *ProbeMonitor) probeOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	m.setOffline(!m.probe(ctx))
}

func (m *ProbeMonitor) setOffline(offline bool) {
	m.mu.Lock()
	if m.offline == offline {
		m.mu.Unlock()
		return
	}
	m.offline = offline
	m.mu.Unlock()

	if offline {
		m.logger.Info("backend unreachable",
			logging.String(logging.FieldEventType, "connectivity_offline"))
	} else {
		m.logger.Info("backend reachable",
			logging.String(logging.FieldEventType, "connectivity_online"))
	}
	m.hub.notify(offline)
}
