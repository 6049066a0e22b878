package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RemoteEvent is the local materialization of an event document received from
// a remote instance. ObjectID is the wire-level id of the source event and is
// the key every later Update/Delete from that instance references.
type RemoteEvent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID       `gorm:"column:account_id;type:uuid;not null"`
	ObjectID  string          `gorm:"column:object_id;not null;uniqueIndex"`
	Document  json.RawMessage `gorm:"column:document;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (RemoteEvent) TableName() string {
	return "federation_remote_events"
}
