// Package repo implements the data persistence layer for the reply store,
// backed by GORM. This file provides repository functions for the Reply model.
package repo

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zbx-rc/internal/domain"
)

// ErrNotFound indicates that no reply is recorded for the given pair.
var ErrNotFound = errors.New("not found")

// FindByTriggerEvent returns the recorded reply for a (trigger, event) pair,
// or ErrNotFound. The lookup is ordered (CreatedAt ASC, ID ASC) so the result
// is stable regardless of insertion order.
func FindByTriggerEvent(db *gorm.DB, triggerID, eventID int64) (*domain.Reply, error) {
	var r domain.Reply
	err := db.
		Where("trigger_id = ? AND event_id = ?", triggerID, eventID).
		Order("created_at ASC, id ASC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReply inserts a reply row. An existing row with the same message id
// is left untouched and reported as success: re-recording a message is
// intentional idempotency, not an error.
func CreateReply(db *gorm.DB, id string, triggerID, eventID int64, roomID string) error {
	r := &domain.Reply{
		ID:        id,
		TriggerID: triggerID,
		EventID:   eventID,
		RoomID:    roomID,
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(r).Error
}
