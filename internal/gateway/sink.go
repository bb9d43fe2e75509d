package gateway

import (
	"context"
	"fmt"
)

// ApprovalSink executes the approve/reject callback on the host bot
// platform. One implementation exists per platform and is selected once
// at startup from configuration.
type ApprovalSink interface {
	Respond(ctx context.Context, requestID string, approve bool, reason string) error
}

// ResolveSessionID derives a log-correlation session identifier from a
// raw gateway event: the group if present, else the user, else a fixed
// placeholder. Pure; the event is never mutated.
func ResolveSessionID(raw map[string]any) string {
	if v, ok := stringField(raw, "group_id"); ok {
		return v
	}
	if v, ok := stringField(raw, "user_id"); ok {
		return v
	}
	return "unknown_session"
}

// stringField reads a raw event field as a string. JSON decoding hands
// numeric identifiers over as float64, so both shapes are accepted.
func stringField(raw map[string]any, key string) (string, bool) {
	val, ok := raw[key]
	if !ok || val == nil {
		return "", false
	}
	switch v := val.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		if v == 0 {
			return "", false
		}
		return fmt.Sprintf("%.0f", v), true
	case int64:
		if v == 0 {
			return "", false
		}
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}
