// Package agentctl orchestrates the agent process from the CLI side:
// launching courierd, waiting for its socket, signalled shutdown with a
// force-kill fallback, and assembling status snapshots that work whether or
// not the agent is running.
package agentctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"courier/internal/api"
	"courier/internal/config"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/preflight"
	"courier/internal/queue"
	"courier/internal/store"
)

// ErrAgentNotRunning indicates agent IPC is unavailable.
var ErrAgentNotRunning = errors.New("agent not running")

// LaunchOptions controls agent process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures agent start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// StopResult captures agent stop/termination outcome.
type StopResult struct {
	SignalSent bool
	ForcedKill bool
	PID        int
}

// RestartResult captures stop/start outcomes for agent restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// AgentExecutable locates the courierd binary, preferring a sibling of the
// current executable over PATH.
func AgentExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "courierd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("courierd")
	if err != nil {
		return "", fmt.Errorf("locate courierd: %w", err)
	}
	return path, nil
}

// Launch starts a detached courier agent process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch agent: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for agent")
	}
	return nil, fmt.Errorf("agent failed to start: %w", lastErr)
}

// EnsureStarted launches the agent unless its socket already answers. The
// executable is resolved lazily so an already running agent never requires
// courierd to be locatable.
func EnsureStarted(socketPath string, resolveExecutable func() (string, error), opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		_ = client.Close()
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	executablePath, err := resolveExecutable()
	if err != nil {
		return StartResult{}, err
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	_ = client.Close()
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown waits for agent IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isAgentUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("agent still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("agent did not stop: %w", lastErr)
}

// ProcessInfo returns whether agent IPC is reachable and the agent PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isAgentUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// StopAndTerminate signals the agent to shut down and force-kills the
// process if it is still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isAgentUnavailable(err) {
			return StopResult{}, ErrAgentNotRunning
		}
		return StopResult{}, err
	}
	statusResp, statusErr := client.Status()
	_ = client.Close()

	pid := 0
	lockPath := ""
	if statusErr == nil && statusResp != nil {
		pid = statusResp.PID
		lockPath = statusResp.LockFilePath
	}

	result := StopResult{PID: pid}
	if pid > 0 && pid != os.Getpid() {
		if proc, findErr := os.FindProcess(pid); findErr == nil {
			if sigErr := proc.Signal(syscall.SIGTERM); sigErr == nil {
				result.SignalSent = true
			}
		}
	}

	if err := WaitForShutdown(socketPath, gracePeriod); err == nil {
		return result, nil
	}

	killedPID, killErr := ForceKillProcess(pidFilePath(lockPath, cfg), lockPath, pid)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop agent process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the agent if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, resolveExecutable func() (string, error), opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrAgentNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, resolveExecutable, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// ForceKillProcess sends SIGKILL to the agent process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read agent pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine agent pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate agent process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill agent process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

func pidFilePath(lockPath string, cfg *config.Config) string {
	if strings.TrimSpace(lockPath) != "" {
		return filepath.Join(filepath.Dir(lockPath), "courierd.pid")
	}
	if cfg != nil {
		return cfg.PIDFilePath()
	}
	return ""
}

func isAgentUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// StatusSnapshot aggregates agent runtime state, queue stats, and system
// checks for status output.
type StatusSnapshot struct {
	Agent      ipc.StatusResponse
	QueueStats map[string]int
	Checks     []api.StatusLine
}

// BuildStatusSnapshot collects agent status and falls back to direct store
// access for queue stats when the agent is not running.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snapshot := &StatusSnapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot.Agent = *resp
		}
		_ = client.Close()
	}

	queueStats := make(map[string]int, len(snapshot.Agent.QueueStats))
	for k, v := range snapshot.Agent.QueueStats {
		queueStats[k] = v
	}

	if !snapshot.Agent.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		st := store.Open(cfg, logging.NewNop())
		manager := queue.NewManager(queue.Options{
			Store:       st,
			Key:         cfg.Store.QueueKey,
			MaxAttempts: cfg.Queue.MaxAttempts,
			Logger:      logging.NewNop(),
		})
		if initErr := manager.Initialize(queryCtx); initErr == nil {
			queueStats = api.HealthCounts(manager.Health())
		}
		_ = st.Close()
	}

	snapshot.QueueStats = queueStats
	snapshot.Checks = BuildSystemChecks(ctx, cfg, snapshot.Agent.Running, snapshot.Agent.Offline)
	return snapshot, nil
}

// BuildSystemChecks resolves status lines that combine runtime state and
// config checks.
func BuildSystemChecks(ctx context.Context, cfg *config.Config, agentRunning, offline bool) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 5)

	if agentRunning {
		lines = append(lines, api.StatusLine{Label: "Agent", Severity: "ok", Detail: "Running"})
		if offline {
			lines = append(lines, api.StatusLine{Label: "Connectivity", Severity: "warn", Detail: "Offline (actions queue until reconnect)"})
		} else {
			lines = append(lines, api.StatusLine{Label: "Connectivity", Severity: "ok", Detail: "Online"})
		}
	} else {
		lines = append(lines, api.StatusLine{Label: "Agent", Severity: "warn", Detail: "Not running (run `courier start`)"})
		if strings.TrimSpace(cfg.Connectivity.ProbeURL) != "" {
			probe := preflight.CheckEndpoint(ctx, "Connectivity probe", cfg.Connectivity.ProbeURL)
			severity := "warn"
			if probe.Passed {
				severity = "ok"
			}
			lines = append(lines, api.StatusLine{Label: "Connectivity", Severity: severity, Detail: probe.Detail})
		}
	}

	stateDir := preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir)
	severity := "error"
	if stateDir.Passed {
		severity = "ok"
	}
	lines = append(lines, api.StatusLine{Label: "State directory", Severity: severity, Detail: stateDir.Detail})

	if strings.TrimSpace(cfg.Remote.Endpoint) == "" {
		lines = append(lines, api.StatusLine{Label: "Remote endpoint", Severity: "error", Detail: "Not configured (set remote.endpoint)"})
	} else {
		endpoint := preflight.CheckEndpoint(ctx, "Remote endpoint", cfg.Remote.Endpoint)
		severity := "warn"
		if endpoint.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{Label: "Remote endpoint", Severity: severity, Detail: endpoint.Detail})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}

	return lines
}
