package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationEvent is the audit row written alongside each published
// lifecycle event. Delivery itself is the sink's problem.
type NotificationEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	GroupID   *uuid.UUID     `gorm:"column:group_id;type:uuid;index" json:"group_id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

func (e *NotificationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
