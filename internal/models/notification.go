package models

import "time"

// NotificationType classifies a notification for rendering.
type NotificationType string

// NotificationType constants.
const (
	NotificationAchievement NotificationType = "achievement"
	NotificationPoints      NotificationType = "points"
	NotificationLevel       NotificationType = "level"
)

// Notification is a transient, non-persisted message shown to the visitor.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}
