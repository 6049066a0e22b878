package models

import (
	"time"

	"github.com/google/uuid"
)

// FollowerRelationship records that a remote actor follows a local calendar.
type FollowerRelationship struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CalendarID  uuid.UUID `gorm:"column:calendar_id;type:uuid;not null;uniqueIndex:ux_followers_calendar_actor"`
	RemoteActor string    `gorm:"column:remote_actor;not null;uniqueIndex:ux_followers_calendar_actor"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (FollowerRelationship) TableName() string {
	return "federation_followers"
}
