package events

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

// Service materializes remote event documents locally. It is the default
// binding for the ingestor's event collaborator; deployments embedding the
// worker in a larger platform substitute their own event domain here.
type Service struct {
	logg *logger.Logger
	repo Repository
}

type ServiceParams struct {
	Logger     *logger.Logger
	Repository Repository
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, stdErrors.New("repository is required")
	}
	return &Service{logg: params.Logger, repo: params.Repository}, nil
}

type objectDocument struct {
	ID string `json:"id"`
}

// CreateEvent stores the embedded object document, keyed by its wire id.
// Redelivered Create activities overwrite the stored copy instead of
// duplicating it.
func (s *Service) CreateEvent(ctx context.Context, accountID uuid.UUID, object json.RawMessage) error {
	var doc objectDocument
	if err := json.Unmarshal(object, &doc); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "event object is not a JSON document")
	}
	if doc.ID == "" {
		return errors.New(errors.CodeValidation, "event object carries no id")
	}

	return s.repo.UpsertByObjectID(ctx, &models.RemoteEvent{
		AccountID: accountID,
		ObjectID:  doc.ID,
		Document:  object,
	})
}

// UpdateEvent replaces the stored document for the given object id. Updates
// for events never seen locally are logged and dropped.
func (s *Service) UpdateEvent(ctx context.Context, accountID uuid.UUID, objectID string, object json.RawMessage) error {
	if objectID == "" {
		return errors.New(errors.CodeValidation, "update names no object id")
	}
	exists, err := s.repo.ExistsByObjectID(ctx, objectID)
	if err != nil {
		return err
	}
	if !exists {
		s.logg.Warn(s.logg.WithField(ctx, "object_id", objectID), "update for an event never materialized locally")
		return nil
	}
	return s.repo.UpdateDocument(ctx, objectID, object)
}

// DeleteEvent drops the stored copy for the given object id.
func (s *Service) DeleteEvent(ctx context.Context, accountID uuid.UUID, objectID string) error {
	if objectID == "" {
		return errors.New(errors.CodeValidation, "delete names no object id")
	}
	return s.repo.DeleteByObjectID(ctx, objectID)
}
