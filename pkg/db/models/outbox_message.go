package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// OutboxMessage is an activity queued for delivery to remote instances.
// Rows are written once by a domain producer and mutated exactly once by the
// dispatcher, from unprocessed to a terminal status. They are never deleted:
// the table doubles as a delivery audit log.
type OutboxMessage struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActivityType    enums.ActivityType `gorm:"column:activity_type;not null"`
	CalendarID      uuid.UUID          `gorm:"column:calendar_id;type:uuid;not null"`
	Payload         json.RawMessage    `gorm:"column:payload;type:jsonb;not null"`
	MessageAt       time.Time          `gorm:"column:message_at;not null"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at"`
	ProcessedStatus *string            `gorm:"column:processed_status"`
}

func (OutboxMessage) TableName() string {
	return "federation_outbox_messages"
}
