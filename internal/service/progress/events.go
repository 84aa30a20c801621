package progress

import (
	"time"

	"github.com/aimd54/engagement-engine/internal/models"
)

// EventType names a domain event emitted by the engine.
type EventType string

// EventType constants.
const (
	EventPointsAwarded       EventType = "points_awarded"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
)

// Event describes one state transition. Achievement is set only for EventAchievementUnlocked.
type Event struct {
	Type        EventType           `json:"type"`
	VisitorID   string              `json:"visitorId"`
	Points      int                 `json:"points"`
	Action      string              `json:"action,omitempty"`
	Level       int                 `json:"level"`
	Achievement *models.Achievement `json:"achievement,omitempty"`
	At          time.Time           `json:"at"`
}

// Sink receives events in emission order. Implementations must not call back into the Engine.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev Event) {
	f(ev)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
