package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

// Repository persists local copies of remote event documents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertByObjectID(ctx context.Context, event *models.RemoteEvent) error
	UpdateDocument(ctx context.Context, objectID string, document []byte) error
	DeleteByObjectID(ctx context.Context, objectID string) error
	ExistsByObjectID(ctx context.Context, objectID string) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a remote event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) UpsertByObjectID(ctx context.Context, event *models.RemoteEvent) error {
	result := r.db.WithContext(ctx).
		Model(&models.RemoteEvent{}).
		Where("object_id = ?", event.ObjectID).
		Updates(map[string]any{
			"account_id": event.AccountID,
			"document":   event.Document,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) UpdateDocument(ctx context.Context, objectID string, document []byte) error {
	return r.db.WithContext(ctx).
		Model(&models.RemoteEvent{}).
		Where("object_id = ?", objectID).
		Update("document", document).Error
}

func (r *repositoryImpl) DeleteByObjectID(ctx context.Context, objectID string) error {
	return r.db.WithContext(ctx).
		Where("object_id = ?", objectID).
		Delete(&models.RemoteEvent{}).Error
}

func (r *repositoryImpl) ExistsByObjectID(ctx context.Context, objectID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RemoteEvent{}).
		Where("object_id = ?", objectID).
		Count(&count).Error
	return count > 0, err
}
