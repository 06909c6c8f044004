package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"courier/internal/api"
)

const payloadPreviewWidth = 32

var statusTitleCaser = cases.Title(language.English)

// buildQueueStatusRows drops zero counts so an empty queue reads as empty
// instead of a table of zeros.
func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		if stats[key] == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

// buildQueueListRows renders items in the order given. The queue is a replay
// log, so list order is delivery order.
func buildQueueListRows(items []api.QueueItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.ActionType,
			formatStatusLabel(item.Status),
			formatAttempts(item.Attempts, item.MaxAttempts),
			formatDisplayTime(item.CreatedAt),
			api.PayloadPreview(item.Payload, payloadPreviewWidth),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return statusTitleCaser.String(strings.ReplaceAll(status, "_", " "))
}

func formatAttempts(attempts, maxAttempts int) string {
	if maxAttempts <= 0 {
		return fmt.Sprintf("%d", attempts)
	}
	return fmt.Sprintf("%d/%d", attempts, maxAttempts)
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}
