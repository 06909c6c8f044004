// Package logs provides log file tailing shared by the CLI and the agent's
// IPC surface.
//
// It reads log files with bounded memory usage, supports negative offsets for
// "last N lines" reads, and powers follow-mode updates for `courier logs -f`.
// Callers supply context deadlines so background polling shuts down cleanly
// when the CLI exits.
package logs
