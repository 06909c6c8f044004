package api

import (
	"encoding/json"
	"sort"
	"strings"
)

// PayloadField extracts a string field from an action payload.
func PayloadField(payload json.RawMessage, field, fallback string) string {
	if len(payload) == 0 {
		return fallback
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fallback
	}
	value, ok := decoded[field].(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// PayloadPreview renders a compact key=value preview of an action payload for
// table display, truncated to max runes. Keys are sorted for stable output.
func PayloadPreview(payload json.RawMessage, max int) string {
	if len(payload) == 0 {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil || len(decoded) == 0 {
		return ""
	}

	keys := make([]string, 0, len(decoded))
	for key := range decoded {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+compactValue(decoded[key]))
	}
	preview := strings.Join(parts, " ")
	if max > 0 {
		runes := []rune(preview)
		if len(runes) > max {
			preview = string(runes[:max-1]) + "…"
		}
	}
	return preview
}

func compactValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case nil:
		return "null"
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
