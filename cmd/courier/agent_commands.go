package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"courier/internal/agentctl"
)

func newAgentCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the courier agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := agentctl.EnsureStarted(
				ctx.socketPath(),
				agentctl.AgentExecutable,
				agentLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Agent not running, launching...")
			}

			switch result.State {
			case agentctl.StartStateStarted:
				fmt.Fprintln(stdout, "Agent started")
			case agentctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Agent already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the courier agent (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := agentctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, agentctl.ErrAgentNotRunning) {
				fmt.Fprintln(stdout, "Agent is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping agent process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Agent stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the courier agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := agentctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				agentctl.AgentExecutable,
				agentLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping agent process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Agent stopped")
			}
			fmt.Fprintln(stdout, "Agent restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show agent, connectivity, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snapshot, err := agentctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, snapshot)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range snapshot.Checks {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}

			if snapshot.Agent.Running {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Agent", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range agentDetailLines(snapshot, colorize) {
					fmt.Fprintln(stdout, line)
				}
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}

			rows := buildQueueStatusRows(snapshot.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}

			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func agentDetailLines(snapshot *agentctl.StatusSnapshot, colorize bool) []string {
	agent := snapshot.Agent
	lines := make([]string, 0, 5)
	if agent.PID > 0 {
		lines = append(lines, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", agent.PID), colorize))
	}
	if agent.UptimeSeconds > 0 {
		uptime := (time.Duration(agent.UptimeSeconds) * time.Second).String()
		lines = append(lines, renderStatusLine("Uptime", statusInfo, uptime, colorize))
	}
	lines = append(lines, renderStatusLine("Processing", statusInfo, yesNo(agent.Processing), colorize))
	if agent.StoreBackend != "" {
		lines = append(lines, renderStatusLine("Store backend", statusInfo, agent.StoreBackend, colorize))
	}
	if agent.SocketPath != "" {
		lines = append(lines, renderStatusLine("Socket", statusInfo, agent.SocketPath, colorize))
	}
	return lines
}

func agentLaunchOptions(ctx *commandContext) agentctl.LaunchOptions {
	opts := agentctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
