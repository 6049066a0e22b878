package models

import (
	"time"

	"github.com/google/uuid"
)

// FollowingRelationship records that a local calendar follows a remote actor.
// The row id is also the "object" referenced by Follow and Undo(Follow)
// activities sent for this relationship.
type FollowingRelationship struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CalendarID      uuid.UUID `gorm:"column:calendar_id;type:uuid;not null;uniqueIndex:ux_following_calendar_actor"`
	RemoteActor     string    `gorm:"column:remote_actor;not null;uniqueIndex:ux_following_calendar_actor"`
	RepostOriginals bool      `gorm:"column:repost_originals;not null;default:false"`
	RepostReposts   bool      `gorm:"column:repost_reposts;not null;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (FollowingRelationship) TableName() string {
	return "federation_following"
}
