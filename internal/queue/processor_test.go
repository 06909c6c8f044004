package queue

import (
	"context"
	"strings"
	"testing"
)

func TestApplyResultDeliveredMarksSyncedAndRemoves(t *testing.T) {
	item := NewItem(Action{Type: "note.create"}, 3)
	item.Attempts = 1
	item.ErrorMessage = "earlier failure"

	remove := applyResult(&item, HandlerResult{Delivered: true})
	if !remove {
		t.Fatal("expected delivered item flagged for removal")
	}
	if item.Status != StatusSynced {
		t.Fatalf("expected synced status, got %s", item.Status)
	}
	if item.ErrorMessage != "" {
		t.Fatalf("expected error cleared on delivery, got %q", item.ErrorMessage)
	}
	if item.Attempts != 1 {
		t.Fatalf("delivery must not consume an attempt, got %d", item.Attempts)
	}
}

func TestApplyResultFailureIncrementsUntilExhausted(t *testing.T) {
	item := NewItem(Action{Type: "note.create"}, 2)

	remove := applyResult(&item, HandlerResult{Err: "upstream 503"})
	if remove {
		t.Fatal("failed attempt must keep the item queued")
	}
	if item.Status != StatusPending || item.Attempts != 1 {
		t.Fatalf("unexpected state after first failure: %+v", item)
	}
	if item.ErrorMessage != "upstream 503" {
		t.Fatalf("expected error recorded, got %q", item.ErrorMessage)
	}

	remove = applyResult(&item, HandlerResult{Err: "upstream 503 again"})
	if remove {
		t.Fatal("exhausted item stays in the queue for inspection")
	}
	if item.Status != StatusFailed || item.Attempts != 2 {
		t.Fatalf("expected failed at budget, got %+v", item)
	}
	if item.ErrorMessage != "upstream 503 again" {
		t.Fatalf("expected last error retained, got %q", item.ErrorMessage)
	}
}

func TestApplyResultFailureWithoutMessageUsesDefault(t *testing.T) {
	item := NewItem(Action{Type: "note.create"}, 3)

	applyResult(&item, HandlerResult{})
	if item.ErrorMessage != "delivery failed" {
		t.Fatalf("expected default error message, got %q", item.ErrorMessage)
	}
}

func TestApplyResultSkipChangesNothing(t *testing.T) {
	item := NewItem(Action{Type: "note.create"}, 3)
	item.Attempts = 1
	item.ErrorMessage = "earlier failure"

	remove := applyResult(&item, HandlerResult{Skip: true})
	if remove {
		t.Fatal("skip must not remove the item")
	}
	if item.Status != StatusPending || item.Attempts != 1 || item.ErrorMessage != "earlier failure" {
		t.Fatalf("skip must leave item untouched, got %+v", item)
	}
}

func TestSafeInvokeRecoversPanic(t *testing.T) {
	result := safeInvoke(context.Background(), func(context.Context, Action) HandlerResult {
		panic("payload encoder exploded")
	}, Action{Type: "note.create"})

	if result.Delivered || result.Skip {
		t.Fatalf("panic must become a failed attempt, got %+v", result)
	}
	if !strings.Contains(result.Err, "handler panic: payload encoder exploded") {
		t.Fatalf("expected panic message captured, got %q", result.Err)
	}
}

func TestSafeInvokePassesThroughResult(t *testing.T) {
	result := safeInvoke(context.Background(), func(_ context.Context, action Action) HandlerResult {
		if action.Type != "note.create" {
			return HandlerResult{Skip: true}
		}
		return HandlerResult{Delivered: true}
	}, Action{Type: "note.create"})

	if !result.Delivered {
		t.Fatalf("expected handler result passed through, got %+v", result)
	}
}

func TestNewItemDefaults(t *testing.T) {
	item := NewItem(Action{Type: "note.create", Payload: map[string]any{"k": "v"}}, 0)

	if item.ID == "" {
		t.Fatal("expected generated id")
	}
	if item.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.Attempts != 0 {
		t.Fatalf("expected zero attempts, got %d", item.Attempts)
	}
	if item.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("expected default attempt budget, got %d", item.MaxAttempts)
	}
	if item.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp set")
	}

	other := NewItem(Action{Type: "note.create"}, 5)
	if other.ID == item.ID {
		t.Fatal("expected unique ids per item")
	}
	if other.MaxAttempts != 5 {
		t.Fatalf("expected explicit attempt budget honored, got %d", other.MaxAttempts)
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"pending", StatusPending, true},
		{"SYNCED", StatusSynced, true},
		{" failed ", StatusFailed, true},
		{"mystery", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
