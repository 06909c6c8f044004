package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queued action identifiers.
	FieldItemID = "item_id"
	// FieldActionType is the standardized structured logging key for action type names.
	FieldActionType = "action_type"
	// FieldAttempt is the standardized structured logging key for delivery attempt counts.
	FieldAttempt = "attempt"
	// FieldQueueKey is the standardized structured logging key for durable store keys.
	FieldQueueKey = "queue_key"
	// FieldEventType is the standardized structured logging key for event categories.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator next steps.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey string

const (
	itemIDContextKey     contextKey = "courier.item_id"
	actionTypeContextKey contextKey = "courier.action_type"
)

// WithItemID returns a context carrying the queued action identifier.
func WithItemID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, itemIDContextKey, id)
}

// ItemIDFromContext extracts the queued action identifier, if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(itemIDContextKey).(string)
	return id, ok && id != ""
}

// WithActionType returns a context carrying the action type name.
func WithActionType(ctx context.Context, actionType string) context.Context {
	return context.WithValue(ctx, actionTypeContextKey, actionType)
}

// ActionTypeFromContext extracts the action type name, if present.
func ActionTypeFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	t, ok := ctx.Value(actionTypeContextKey).(string)
	return t, ok && t != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemID, id))
	}
	if t, ok := ActionTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldActionType, t))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
