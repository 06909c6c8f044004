// Package agentrun assembles and runs the courier agent process: config
// directories, logging, preflight, the agent itself, and the IPC server,
// shut down together on SIGINT or SIGTERM. Both `courier run` and the
// courierd binary call into it so foreground and daemonized runs behave
// identically.
package agentrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"log/slog"

	"courier/internal/agent"
	"courier/internal/config"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/preflight"
)

// Options configures agent process runtime behavior.
type Options struct {
	// SocketPath overrides the config-derived IPC socket location.
	SocketPath string
}

// Run starts the courier agent runtime loop and blocks until the context is
// cancelled or a shutdown signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(logger, preflight.RunAll(signalCtx, cfg))

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	a, err := agent.New(cfg, logger, agent.Options{})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	defer a.Close()

	// The instance lock is checked before the socket is claimed so a second
	// launch cannot steal the socket from a live agent.
	if err := a.Start(signalCtx); err != nil {
		logger.Error("agent start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "agent_start_failed"))
		return err
	}

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, a, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("courier agent shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	failed := 0
	for _, result := range results {
		if result.Passed {
			continue
		}
		failed++
		logging.WarnWithContext(logger, "preflight check failed", "preflight_check_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "deliveries may fail until this is resolved"))
	}
	logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("checks", len(results)),
		logging.Int("failed", failed))
}
