package models

import (
	"time"

	"gorm.io/datatypes"
)

// Endpoint tags of the recorded log.
const (
	EndpointPageView = "pageview"
	EndpointEvent    = "event"
)

// AnalyticsRecord is one entry of the append-only analytics log.
// ClientTimestamp is epoch milliseconds as sent by the browser; RecordedAt is the server receive time.
type AnalyticsRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Endpoint        string         `gorm:"size:50;not null;index" json:"endpoint"`
	SessionID       string         `gorm:"size:100;index" json:"sessionId"`
	VisitorID       string         `gorm:"size:100;index" json:"visitorId,omitempty"`
	Page            string         `gorm:"size:500" json:"page,omitempty"`
	Referrer        string         `gorm:"type:text" json:"referrer,omitempty"`
	DeviceType      string         `gorm:"size:50" json:"deviceType,omitempty"`
	EventCategory   string         `gorm:"size:100" json:"eventCategory,omitempty"`
	EventAction     string         `gorm:"size:255" json:"eventAction,omitempty"`
	EventLabel      string         `gorm:"size:255" json:"eventLabel,omitempty"`
	EventValue      *float64       `json:"eventValue,omitempty"`
	ClientTimestamp int64          `gorm:"not null" json:"clientTimestamp"`
	Extra           datatypes.JSON `json:"extra,omitempty"`
	RecordedAt      time.Time      `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for AnalyticsRecord model.
func (AnalyticsRecord) TableName() string {
	return "analytics_records"
}
