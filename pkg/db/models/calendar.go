package models

import (
	"time"

	"github.com/google/uuid"
)

// Calendar is the slice of the calendar domain the federation engine reads.
// CRUD for calendars lives outside this subsystem; the dispatcher only needs
// the identity fields to build actor references.
type Calendar struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Title     string    `gorm:"column:title"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Calendar) TableName() string {
	return "calendars"
}

// Account is the slice of the account domain the ingestor reads. CalendarID
// names the calendar the account publishes under, which inbound Follow and
// Undo(Follow) activities attach follower rows to.
type Account struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username   string    `gorm:"column:username;not null"`
	CalendarID uuid.UUID `gorm:"column:calendar_id;type:uuid;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
