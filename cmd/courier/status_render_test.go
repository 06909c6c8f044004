package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Agent", statusOK, "Running", false)
	want := fmt.Sprintf("  %-20s %s", "Agent:", "[OK] Running")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	got := renderStatusLine("Connectivity", statusWarn, "Offline", true)
	if !strings.HasPrefix(got, ansiYellow) {
		t.Fatalf("expected yellow prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
	if !strings.Contains(got, "[WARN] Offline") {
		t.Fatalf("missing status text in %q", got)
	}
}

func TestRenderStatusLineWithoutMessage(t *testing.T) {
	got := renderStatusLine("Probe", statusError, "", false)
	if !strings.HasSuffix(got, "[ERROR]") {
		t.Fatalf("expected bare status suffix, got %q", got)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := []struct {
		severity string
		want     statusKind
	}{
		{"ok", statusOK},
		{" OK ", statusOK},
		{"warn", statusWarn},
		{"warning", statusWarn},
		{"error", statusError},
		{"info", statusInfo},
		{"", statusInfo},
		{"unknown", statusInfo},
	}
	for _, tc := range cases {
		if got := statusKindFromSeverity(tc.severity); got != tc.want {
			t.Fatalf("severity %q: got %v, want %v", tc.severity, got, tc.want)
		}
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Queue Status", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %#v", lines)
	}
	if lines[0] != "== Queue Status ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) || strings.Trim(lines[1], "-") != "" {
		t.Fatalf("unexpected rule %q", lines[1])
	}
}

func TestShouldColorizeNonFileWriter(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("expected buffers to disable color")
	}
}
