package models

import "time"

// KVEntry is a persisted key-value pair: progress blobs, consent state and visitor flags.
type KVEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null;size:255" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for KVEntry model.
func (KVEntry) TableName() string {
	return "kv_entries"
}
