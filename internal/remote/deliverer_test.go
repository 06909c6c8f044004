package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/queue"
	"courier/internal/remote"
)

func newConfig(endpoint, token string) *config.Config {
	cfg := config.Default()
	cfg.Remote.Endpoint = endpoint
	cfg.Remote.AuthToken = token
	cfg.Remote.Timeout = 5
	return &cfg
}

func TestDeliverPostsActionJSON(t *testing.T) {
	var captured struct {
		method         string
		contentType    string
		authorization  string
		idempotencyKey string
		body           map[string]any
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.contentType = r.Header.Get("Content-Type")
		captured.authorization = r.Header.Get("Authorization")
		captured.idempotencyKey = r.Header.Get("Idempotency-Key")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &captured.body); err != nil {
			t.Fatalf("parse body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	deliverer := remote.NewDeliverer(newConfig(server.URL, "sekrit"), logging.NewNop())
	ctx := logging.WithItemID(context.Background(), "item-42")

	result := deliverer.Deliver(ctx, queue.Action{
		Type:    "note.create",
		Payload: map[string]any{"title": "hello"},
	})
	if !result.Delivered {
		t.Fatalf("expected delivery, got %+v", result)
	}

	if captured.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", captured.method)
	}
	if captured.contentType != "application/json" {
		t.Fatalf("unexpected content type %q", captured.contentType)
	}
	if captured.authorization != "Bearer sekrit" {
		t.Fatalf("unexpected authorization header %q", captured.authorization)
	}
	if captured.idempotencyKey != "item-42" {
		t.Fatalf("expected item id as idempotency key, got %q", captured.idempotencyKey)
	}
	if captured.body["type"] != "note.create" {
		t.Fatalf("unexpected body: %+v", captured.body)
	}
	payload, ok := captured.body["payload"].(map[string]any)
	if !ok || payload["title"] != "hello" {
		t.Fatalf("unexpected payload: %+v", captured.body)
	}
}

func TestDeliverOmitsAuthorizationWhenTokenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Fatalf("expected no authorization header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	deliverer := remote.NewDeliverer(newConfig(server.URL, ""), logging.NewNop())
	result := deliverer.Deliver(context.Background(), queue.Action{Type: "note.create"})
	if !result.Delivered {
		t.Fatalf("expected delivery, got %+v", result)
	}
}

func TestDeliverClassifiesRejections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema validation failed", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	deliverer := remote.NewDeliverer(newConfig(server.URL, ""), logging.NewNop())
	result := deliverer.Deliver(context.Background(), queue.Action{Type: "note.create"})
	if result.Delivered || result.Skip {
		t.Fatalf("expected failed attempt, got %+v", result)
	}
	if !strings.Contains(result.Err, "remote returned 422") {
		t.Fatalf("expected status in error, got %q", result.Err)
	}
	if !strings.Contains(result.Err, "schema validation failed") {
		t.Fatalf("expected response detail in error, got %q", result.Err)
	}
}

func TestDeliverReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	deliverer := remote.NewDeliverer(newConfig(endpoint, ""), logging.NewNop())
	result := deliverer.Deliver(context.Background(), queue.Action{Type: "note.create"})
	if result.Delivered {
		t.Fatal("expected failure against closed server")
	}
	if !strings.Contains(result.Err, "deliver action:") {
		t.Fatalf("expected transport error, got %q", result.Err)
	}
}

func TestDeliverWithoutEndpointFailsAttempt(t *testing.T) {
	deliverer := remote.NewDeliverer(newConfig("", ""), logging.NewNop())
	result := deliverer.Deliver(context.Background(), queue.Action{Type: "note.create"})
	if result.Delivered {
		t.Fatal("expected failure without endpoint")
	}
	if result.Err != "remote endpoint not configured" {
		t.Fatalf("unexpected error %q", result.Err)
	}
}
