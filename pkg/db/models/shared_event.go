package models

import (
	"time"

	"github.com/google/uuid"
)

// SharedEvent records that a local copy of an event originated from a remote
// repost. The row is removed when the source event is deleted upstream.
type SharedEvent struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ObjectID   string    `gorm:"column:object_id;not null;uniqueIndex"`
	CalendarID uuid.UUID `gorm:"column:calendar_id;type:uuid;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SharedEvent) TableName() string {
	return "federation_shared_events"
}
