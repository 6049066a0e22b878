package models

import (
	"time"

	"github.com/google/uuid"
)

// ActorDirectoryEntry caches the result of resolving a remote actor, keyed by
// the actor document URI, so repeated fan-outs skip the discovery round-trip.
type ActorDirectoryEntry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorURI   string    `gorm:"column:actor_uri;not null;uniqueIndex"`
	Handle     string    `gorm:"column:handle"`
	InboxURL   string    `gorm:"column:inbox_url;not null"`
	ResolvedAt time.Time `gorm:"column:resolved_at;not null"`
}

func (ActorDirectoryEntry) TableName() string {
	return "federation_actor_directory"
}
