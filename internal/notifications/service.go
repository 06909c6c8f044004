package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier/internal/config"
)

const userAgent = "Courier-Go/0.1.0"

// Service defines the push notification surface used by the agent. Every
// method is best effort: a notification failure never affects queue state.
type Service interface {
	NotifySweepCompleted(ctx context.Context, delivered, retried, failed int, duration time.Duration) error
	NotifyActionExhausted(ctx context.Context, actionType, itemID, errorMessage string) error
	NotifyStoreDegraded(ctx context.Context, backend string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultNtfyRequestTimeout) * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		sweeps:   cfg.Notifications.Sweeps,
		failures: cfg.Notifications.Failures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	sweeps   bool
	failures bool
}

func (n *ntfyService) NotifySweepCompleted(ctx context.Context, delivered, retried, failed int, duration time.Duration) error {
	if !n.sweeps {
		return nil
	}
	// An all-quiet sweep handled nothing and is not worth a push.
	if delivered == 0 && retried == 0 && failed == 0 {
		return nil
	}

	duration = duration.Round(time.Second)
	if duration <= 0 {
		duration = time.Second
	}

	var title string
	var message string
	if failed == 0 && retried == 0 {
		title = "Courier - Queue Synced"
		message = fmt.Sprintf("Replayed %d queued actions in %s", delivered, duration)
	} else {
		title = "Courier - Sweep Complete (with errors)"
		message = fmt.Sprintf("Sweep finished in %s: %d delivered, %d retrying, %d failed", duration, delivered, retried, failed)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"courier", "queue", "sweep"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyActionExhausted(ctx context.Context, actionType, itemID, errorMessage string) error {
	if !n.failures {
		return nil
	}

	actionType = strings.TrimSpace(actionType)
	if actionType == "" {
		actionType = "unknown"
	}
	message := fmt.Sprintf("Action %s (%s) exhausted its retries", actionType, itemID)
	if errorMessage = strings.TrimSpace(errorMessage); errorMessage != "" {
		message = fmt.Sprintf("%s\nLast error: %s", message, errorMessage)
	}
	message = fmt.Sprintf("%s\nRun 'courier queue retry' after fixing the cause", message)

	data := payload{
		title:    "Courier - Action Failed",
		message:  message,
		tags:     []string{"courier", "queue", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStoreDegraded(ctx context.Context, backend string) error {
	if !n.failures {
		return nil
	}

	backend = strings.TrimSpace(backend)
	if backend == "" {
		backend = "configured"
	}
	data := payload{
		title:    "Courier - Store Degraded",
		message:  fmt.Sprintf("The %s store is unavailable; queued actions will not survive a restart", backend),
		tags:     []string{"courier", "store", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Courier - Test",
		message:  "Notification system test",
		tags:     []string{"courier", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySweepCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyActionExhausted(context.Context, string, string, string) error {
	return nil
}

func (noopService) NotifyStoreDegraded(context.Context, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
