package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

// Repository persists resolved actors so repeated fan-outs skip discovery.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByActorURI(ctx context.Context, actorURI string) (*models.ActorDirectoryEntry, error)
	Upsert(ctx context.Context, entry *models.ActorDirectoryEntry) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an actor directory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByActorURI(ctx context.Context, actorURI string) (*models.ActorDirectoryEntry, error) {
	var entry models.ActorDirectoryEntry
	err := r.db.WithContext(ctx).Where("actor_uri = ?", actorURI).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, entry *models.ActorDirectoryEntry) error {
	if entry.ResolvedAt.IsZero() {
		entry.ResolvedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&models.ActorDirectoryEntry{}).
		Where("actor_uri = ?", entry.ActorURI).
		Updates(map[string]any{
			"handle":      entry.Handle,
			"inbox_url":   entry.InboxURL,
			"resolved_at": entry.ResolvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}
