package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// EventActivity records that a remote actor shared or otherwise interacted
// with one specific local object. Rows feed future recipient computation for
// that object.
type EventActivity struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ObjectID    string                  `gorm:"column:object_id;not null;uniqueIndex:ux_event_activities_object_actor_kind"`
	RemoteActor string                  `gorm:"column:remote_actor;not null;uniqueIndex:ux_event_activities_object_actor_kind"`
	Kind        enums.EventActivityKind `gorm:"column:kind;not null;uniqueIndex:ux_event_activities_object_actor_kind"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (EventActivity) TableName() string {
	return "federation_event_activities"
}
