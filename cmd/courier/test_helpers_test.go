package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"courier/internal/agent"
	"courier/internal/api"
	"courier/internal/config"
	"courier/internal/connectivity"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/queue"
	"courier/internal/testsupport"
)

// scriptedDeliverer stands in for the HTTP deliverer so CLI tests control
// delivery outcomes without a backend.
type scriptedDeliverer struct {
	mu    sync.Mutex
	fail  bool
	calls []queue.Action
}

func (d *scriptedDeliverer) deliver(_ context.Context, action queue.Action) queue.HandlerResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, action)
	if d.fail {
		return queue.HandlerResult{Err: "upstream unavailable"}
	}
	return queue.HandlerResult{Delivered: true}
}

func (d *scriptedDeliverer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *scriptedDeliverer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type cliTestEnv struct {
	cfg        *config.Config
	agent      *agent.Agent
	server     *ipc.Server
	monitor    *connectivity.StaticMonitor
	deliverer  *scriptedDeliverer
	socketPath string
	configPath string
}

// setupCLITestEnv starts an agent plus IPC server on a private socket. The
// connectivity monitor starts offline so no sweep runs until a test flips it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	cfg.Connectivity.ProbeURL = "http://127.0.0.1:0/generate_204"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	configPath := writeTestConfig(t, home, cfg)

	deliverer := &scriptedDeliverer{}
	monitor := connectivity.NewStaticMonitor(true)

	a, err := agent.New(cfg, logging.NewNop(), agent.Options{
		Monitor: monitor,
		Deliver: deliverer.deliver,
	})
	if err != nil {
		t.Fatalf("agent.New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start agent: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.StateDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, a, logging.NewNop())
	if err != nil {
		cancel()
		_ = a.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable in sandbox: %v", err)
		}
		t.Fatalf("ipc.NewServer failed: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = a.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		agent:      a,
		server:     srv,
		monitor:    monitor,
		deliverer:  deliverer,
		socketPath: socketPath,
		configPath: configPath,
	}
}

// setupStoppedEnv prepares config and state directories without starting an
// agent, for exercising the direct-store fallback paths. The socket path
// points at a file that never exists.
func setupStoppedEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t)
	cfg.Connectivity.ProbeURL = "http://127.0.0.1:0/generate_204"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	configPath := writeTestConfig(t, home, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		socketPath: filepath.Join(cfg.Paths.StateDir, "absent.sock"),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, home string, cfg *config.Config) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "courier")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)

	full := []string{"--socket", env.socketPath}
	if env.configPath != "" {
		full = append(full, "--config", env.configPath)
	}
	full = append(full, args...)
	root.SetArgs(full)

	err := root.Execute()
	return out.String(), err
}

// submitViaCLI queues an action through the submit command and decodes the
// JSON item so tests have its generated id.
func submitViaCLI(t *testing.T, env *cliTestEnv, actionType string, dataPairs ...string) api.QueueItem {
	t.Helper()

	args := []string{"submit", actionType, "--json"}
	for _, pair := range dataPairs {
		args = append(args, "--data", pair)
	}
	out, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("submit %s failed: %v\noutput: %s", actionType, err, out)
	}
	var item api.QueueItem
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode submit output: %v\noutput: %s", err, out)
	}
	if item.ID == "" {
		t.Fatalf("submit returned item without id: %s", out)
	}
	return item
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output missing %q:\n%s", want, output)
	}
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("append log line: %v", err)
	}
}

// syncBuffer guards a bytes.Buffer for tests that read CLI output while the
// command is still running.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
