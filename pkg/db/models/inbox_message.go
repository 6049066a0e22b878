package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// InboxMessage is an activity received from a remote instance, queued for
// local side effects. ActivityID holds the wire-level activity id so later
// Undo activities can reference the original message.
type InboxMessage struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    uuid.UUID          `gorm:"column:account_id;type:uuid;not null"`
	ActivityType enums.ActivityType `gorm:"column:activity_type;not null"`
	ActivityID   string             `gorm:"column:activity_id"`
	Payload      json.RawMessage    `gorm:"column:payload;type:jsonb;not null"`
	MessageAt    time.Time          `gorm:"column:message_at;not null"`
	ProcessedAt  *time.Time         `gorm:"column:processed_at"`
}

func (InboxMessage) TableName() string {
	return "federation_inbox_messages"
}
