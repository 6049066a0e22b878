package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

// Terminal processed statuses written by the dispatcher. Partial outcomes are
// free-form: the prefix followed by the joined per-recipient errors.
const (
	StatusOK             = "ok"
	StatusBadMessageType = "bad message type"
	StatusPartialPrefix  = "partial: "
)

// Repository exposes persistence helpers for outbound federation messages.
// The claim step is a plain null-filter query: safe for a single dispatcher
// worker, not for concurrent ones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Enqueue(ctx context.Context, message *models.OutboxMessage) error
	FetchPending(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, status string, processedAt time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an outbox repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Enqueue(ctx context.Context, message *models.OutboxMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.MessageAt.IsZero() {
		message.MessageAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repositoryImpl) FetchPending(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var messages []models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("message_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *repositoryImpl) MarkProcessed(ctx context.Context, id uuid.UUID, status string, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed_at":     processedAt,
			"processed_status": status,
		}).Error
}
