// Package domain defines the core persistence model for the application.
// It is used by GORM for database schema mapping and shared across the
// repository and service layers.
package domain

import "time"

// Reply records a Rocket.Chat message that was posted for a specific Zabbix
// alert occurrence. The (trigger_id, event_id) pair is the dedup key: a later
// notification carrying the same pair updates the recorded message instead of
// posting a new one.
//
// Fields:
//   - ID: the Rocket.Chat message id (primary key; a duplicate insert for the
//     same id is ignored, not an error).
//   - TriggerID / EventID: the Zabbix compound identity of the alert.
//   - RoomID: the Rocket.Chat room the message lives in, kept so an update
//     can be addressed without re-resolving the recipient.
//   - CreatedAt: insert timestamp, defaulted by GORM.
//
// Rows are never mutated or deleted; message updates target the chat system,
// not the local record.
type Reply struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	TriggerID int64     `gorm:"type:INTEGER NOT NULL;index:idx_trigger_event,priority:1"`
	EventID   int64     `gorm:"type:INTEGER NOT NULL;index:idx_trigger_event,priority:2"`
	RoomID    string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (Reply) TableName() string { return "replies" }
