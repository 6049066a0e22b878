package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

// Repository exposes persistence helpers for inbound federation messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Enqueue(ctx context.Context, message *models.InboxMessage) error
	FetchPending(ctx context.Context, limit int) ([]models.InboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	FindByActivityID(ctx context.Context, activityID string) (*models.InboxMessage, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inbox repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Enqueue(ctx context.Context, message *models.InboxMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.MessageAt.IsZero() {
		message.MessageAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repositoryImpl) FetchPending(ctx context.Context, limit int) ([]models.InboxMessage, error) {
	var messages []models.InboxMessage
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("message_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *repositoryImpl) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.InboxMessage{}).
		Where("id = ?", id).
		Update("processed_at", processedAt).Error
}

// FindByActivityID returns the most recently received message carrying the
// given wire-level activity id, or nil when none was recorded. Undo handling
// uses it to recover the original activity a remote actor is retracting.
func (r *repositoryImpl) FindByActivityID(ctx context.Context, activityID string) (*models.InboxMessage, error) {
	if activityID == "" {
		return nil, nil
	}
	var message models.InboxMessage
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("message_at DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}
