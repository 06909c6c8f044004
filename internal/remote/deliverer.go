// Package remote provides the agent's default delivery handler. Queued
// actions are POSTed as JSON to the configured endpoint; the response status
// decides whether the attempt counts as delivered. The queue core stays
// wire-format agnostic; this package is one replaceable collaborator.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/queue"
)

const userAgent = "Courier-Go/0.1.0"

// Deliverer posts actions to an HTTP endpoint. Its Deliver method satisfies
// queue.Handler. Endpoints should treat the Idempotency-Key header as the
// deduplication handle: delivery across restarts is at-least-once.
type Deliverer struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewDeliverer builds a deliverer from the remote config section.
func NewDeliverer(cfg *config.Config, logger *slog.Logger) *Deliverer {
	timeout := time.Duration(cfg.Remote.Timeout) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultRemoteTimeout) * time.Second
	}
	return &Deliverer{
		endpoint: strings.TrimSpace(cfg.Remote.Endpoint),
		token:    strings.TrimSpace(cfg.Remote.AuthToken),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "deliverer"),
	}
}

// Deliver sends one action. Every operational failure is reported through
// the result, never as a panic or error value, so the queue records it as a
// failed attempt.
func (d *Deliverer) Deliver(ctx context.Context, action queue.Action) queue.HandlerResult {
	if d == nil || d.endpoint == "" {
		return queue.HandlerResult{Err: "remote endpoint not configured"}
	}

	body, err := json.Marshal(action)
	if err != nil {
		return queue.HandlerResult{Err: fmt.Sprintf("encode action: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return queue.HandlerResult{Err: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
	if id, ok := logging.ItemIDFromContext(ctx); ok {
		req.Header.Set("Idempotency-Key", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return queue.HandlerResult{Err: fmt.Sprintf("deliver action: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("remote returned %d", resp.StatusCode)
		if text := strings.TrimSpace(string(detail)); text != "" {
			message = fmt.Sprintf("%s: %s", message, text)
		}
		return queue.HandlerResult{Err: message}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	d.logger.Debug("action delivered to remote",
		logging.String(logging.FieldActionType, action.Type),
		logging.Int("status_code", resp.StatusCode))
	return queue.HandlerResult{Delivered: true}
}

// Endpoint returns the configured target URL, empty when unset.
func (d *Deliverer) Endpoint() string {
	if d == nil {
		return ""
	}
	return d.endpoint
}
