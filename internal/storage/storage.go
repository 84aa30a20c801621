// Package storage defines the key-value contract for persisted visitor state.
package storage

import (
	"context"
	"fmt"
)

// Store is a string key-value store. Implementations must treat a missing key as
// ("", false, nil), never as an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ProgressKey is the key of a visitor's serialized UserProgress blob.
func ProgressKey(visitorID string) string {
	return "user_progress:" + visitorID
}

// FirstVisitKey marks that a visitor has been seen before.
func FirstVisitKey(visitorID string) string {
	return "first_visit:" + visitorID
}

// ConsentKey holds a visitor's consent state ("granted" or "denied").
func ConsentKey(visitorID string) string {
	return "consent:" + visitorID
}

// ConsentAtKey holds the RFC 3339 timestamp of the last consent change.
func ConsentAtKey(visitorID string) string {
	return "consent_at:" + visitorID
}

// DailyEventKey holds the last time a once-a-day event fired for a visitor.
func DailyEventKey(visitorID, name string) string {
	return fmt.Sprintf("daily_event:%s:%s", visitorID, name)
}
