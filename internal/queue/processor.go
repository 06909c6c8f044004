package queue

import (
	"context"
	"fmt"
)

// Handler attempts to deliver one queued action to the backend.
//
// Return Delivered when the backend accepted the action, Skip when the
// action is not this handler's to deliver (a foreign action type), and Err
// describing the failure otherwise. Handlers are invoked without queue locks
// held and may block on the network.
type Handler func(ctx context.Context, action Action) HandlerResult

// HandlerResult is the three-way outcome of a delivery attempt.
type HandlerResult struct {
	// Delivered reports that the backend accepted the action.
	Delivered bool
	// Skip leaves the item untouched: no attempt is consumed and no status
	// changes. Used by orchestrators passing over foreign action types.
	Skip bool
	// Err describes a failed attempt when neither Delivered nor Skip is set.
	Err string
}

// ProcessResult records the outcome of one item handed to the handler
// during a sweep.
type ProcessResult struct {
	ItemID     string
	ActionType string
	Status     Status
	Attempts   int
	Skipped    bool
	Err        string
}

// applyResult advances item state for a single handler invocation and
// reports whether the item should be removed from the queue.
//
// Transitions: pending stays pending on Skip; pending becomes synced on
// Delivered (and the item is removed); a failed attempt increments Attempts,
// records the error, and marks the item failed when the budget is exhausted.
func applyResult(item *Item, result HandlerResult) (remove bool) {
	if result.Skip {
		return false
	}
	if result.Delivered {
		item.Status = StatusSynced
		item.ErrorMessage = ""
		return true
	}

	item.Attempts++
	message := result.Err
	if message == "" {
		message = "delivery failed"
	}
	item.ErrorMessage = message
	if item.Attempts >= item.MaxAttempts {
		item.Status = StatusFailed
	}
	return false
}

// safeInvoke runs the handler, converting a panic into a failed attempt so
// one bad action cannot take down a sweep.
func safeInvoke(ctx context.Context, handler Handler, action Action) (result HandlerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = HandlerResult{Err: fmt.Sprintf("handler panic: %v", r)}
		}
	}()
	return handler(ctx, action)
}
