package connectivity

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestLinkWatcherNilSafety(t *testing.T) {
	var w *linkWatcher
	w.Start(context.Background()) // must not panic
	w.Stop()
	if w.Running() {
		t.Error("expected Running() to return false for nil watcher")
	}
}

func TestLinkWatcherStopStartIdempotency(t *testing.T) {
	t.Run("unstarted watcher is not running", func(t *testing.T) {
		w := newLinkWatcher(nil, func() {})
		if w.Running() {
			t.Error("expected Running() to return false for unstarted watcher")
		}
	})

	t.Run("stop before start is safe", func(t *testing.T) {
		w := newLinkWatcher(nil, func() {})
		w.Stop()
		w.Stop()
		if w.Running() {
			t.Error("expected Running() to return false after Stop")
		}
	})

	t.Run("start in unprivileged environment is non-fatal", func(t *testing.T) {
		w := newLinkWatcher(nil, func() {})
		// Connecting to the udev netlink socket may fail without privileges;
		// the watcher must degrade to probe polling either way.
		w.Start(context.Background())
		w.Stop()
	})
}

func TestBuildMatcherTargetsNetSubsystem(t *testing.T) {
	w := newLinkWatcher(nil, nil)
	matcher := w.buildMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}

	addEvent := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "net"},
	}
	if !matcher.Evaluate(addEvent) {
		t.Error("expected matcher to accept ADD on net subsystem")
	}

	removeEvent := netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "net"},
	}
	if !matcher.Evaluate(removeEvent) {
		t.Error("expected matcher to accept REMOVE on net subsystem")
	}

	changeEvent := netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"SUBSYSTEM": "net"},
	}
	if !matcher.Evaluate(changeEvent) {
		t.Error("expected matcher to accept CHANGE on net subsystem")
	}

	blockEvent := netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"SUBSYSTEM": "block"},
	}
	if matcher.Evaluate(blockEvent) {
		t.Error("expected matcher to reject non-net subsystem")
	}
}

func TestHandleEventRequestsProbe(t *testing.T) {
	var kicks int
	w := newLinkWatcher(nil, func() { kicks++ })

	event := netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"SUBSYSTEM": "net",
			"INTERFACE": "wlan0",
		},
	}
	w.handleEvent(event)
	w.handleEvent(event)
	if kicks != 2 {
		t.Fatalf("expected 2 probe requests, got %d", kicks)
	}

	nilKick := newLinkWatcher(nil, nil)
	nilKick.handleEvent(event) // must not panic
}
