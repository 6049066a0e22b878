package inbox

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/internal/activitypub"
	"github.com/gatherly-app/gatherly-backend/internal/relationships"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
)

const defaultBatchSize = 1000

// Processed-metric labels. Inbound messages carry no persisted status column;
// the labels only classify the handler outcome for observability.
const (
	labelOK      = "ok"
	labelError   = "error"
	labelSkipped = "skipped"
	labelBadType = "bad message type"
)

// EventService is the event-domain collaborator the ingestor forwards remote
// mutations to. This subsystem owns no event business rules, only the
// translation from wire activities to these calls.
type EventService interface {
	CreateEvent(ctx context.Context, accountID uuid.UUID, object json.RawMessage) error
	UpdateEvent(ctx context.Context, accountID uuid.UUID, objectID string, object json.RawMessage) error
	DeleteEvent(ctx context.Context, accountID uuid.UUID, objectID string) error
}

// Ingestor drains pending inbound messages and applies each activity as local
// side effects. Every visited message is stamped processed after its handler
// runs, whatever the handler outcome.
type Ingestor struct {
	logg          *logger.Logger
	repo          Repository
	accounts      Accounts
	relationships relationships.Repository
	events        EventService
	codec         *activitypub.Codec
	metrics       *metrics.FederationMetrics
	batchSize     int
	now           func() time.Time
}

// IngestorParams wires the ingestor dependencies.
type IngestorParams struct {
	Logger        *logger.Logger
	Repo          Repository
	Accounts      Accounts
	Relationships relationships.Repository
	Events        EventService
	Codec         *activitypub.Codec
	Metrics       *metrics.FederationMetrics
	BatchSize     int
}

// NewIngestor validates the dependency set and builds an ingestor.
func NewIngestor(params IngestorParams) (*Ingestor, error) {
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, stdErrors.New("inbox repository is required")
	}
	if params.Accounts == nil {
		return nil, stdErrors.New("account lookup is required")
	}
	if params.Relationships == nil {
		return nil, stdErrors.New("relationships repository is required")
	}
	if params.Events == nil {
		return nil, stdErrors.New("event service is required")
	}
	if params.Codec == nil {
		return nil, stdErrors.New("activity codec is required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Ingestor{
		logg:          params.Logger,
		repo:          params.Repo,
		accounts:      params.Accounts,
		relationships: params.Relationships,
		events:        params.Events,
		codec:         params.Codec,
		metrics:       params.Metrics,
		batchSize:     batchSize,
		now:           time.Now,
	}, nil
}

// ProcessInboxMessages fetches pending messages in arrival order and applies
// them until no pending work remains.
func (i *Ingestor) ProcessInboxMessages(ctx context.Context) error {
	start := i.now()
	defer func() {
		i.metrics.ObserveDrain("inbox", i.now().Sub(start))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := i.repo.FetchPending(ctx, i.batchSize)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "fetching pending inbox messages")
		}
		if len(batch) == 0 {
			return nil
		}

		settled := 0
		for idx := range batch {
			message := &batch[idx]
			logCtx := i.logg.WithMessageID(ctx, message.ID.String())

			label, err := i.processInboxMessage(ctx, message)
			if err != nil {
				i.logg.Error(logCtx, "applying inbox message failed", err)
				label = labelError
			}

			if markErr := i.repo.MarkProcessed(ctx, message.ID, i.now().UTC()); markErr != nil {
				i.logg.Error(logCtx, "marking inbox message processed failed", markErr)
				continue
			}
			i.metrics.IncProcessed("inbox", label)
			settled++
		}
		if settled == 0 {
			return nil
		}
	}
}

func (i *Ingestor) processInboxMessage(ctx context.Context, message *models.InboxMessage) (string, error) {
	logCtx := i.logg.WithMessageID(ctx, message.ID.String())

	account, err := i.accounts.FindAccount(ctx, message.AccountID)
	if err != nil {
		if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
			i.logg.Warn(i.logg.WithField(logCtx, "account_id", message.AccountID.String()), "account for inbox message no longer exists")
			return labelSkipped, nil
		}
		return labelError, err
	}

	activity, err := i.codec.Decode(message.ActivityType, message.Payload)
	if err != nil {
		i.logg.Warn(i.logg.WithField(logCtx, "error", err.Error()), "inbox payload is not an applicable activity")
		return labelBadType, nil
	}

	switch activity.Type {
	case enums.ActivityCreate:
		object, ok := activity.EmbeddedObject()
		if !ok {
			return labelError, fmt.Errorf("Create activity carries no embedded object")
		}
		return labelOK, i.events.CreateEvent(ctx, account.ID, object.Raw)

	case enums.ActivityUpdate:
		return labelOK, i.events.UpdateEvent(ctx, account.ID, activity.ObjectID(), activity.Object)

	case enums.ActivityDelete:
		objectID := activity.ObjectID()
		if err := i.events.DeleteEvent(ctx, account.ID, objectID); err != nil {
			return labelError, err
		}
		return labelOK, i.relationships.DeleteSharedEventByObjectID(ctx, objectID)

	case enums.ActivityFollow:
		actor := activity.RemoteActor()
		if actor == "" {
			return labelError, fmt.Errorf("Follow activity names no remote actor")
		}
		return labelOK, i.relationships.CreateFollower(ctx, &models.FollowerRelationship{
			CalendarID:  account.CalendarID,
			RemoteActor: actor,
		})

	case enums.ActivityAnnounce:
		return labelOK, i.relationships.CreateEventActivity(ctx, &models.EventActivity{
			ObjectID:    activity.ObjectID(),
			RemoteActor: activity.RemoteActor(),
			Kind:        enums.EventActivityShare,
		})

	case enums.ActivityUndo:
		return i.handleUndo(ctx, account, activity)

	case enums.ActivityAccept, enums.ActivityFlag:
		// Follow-acceptance tracking and moderation live outside this
		// subsystem; the message is recorded and stamped with no side effect.
		return labelSkipped, nil

	default:
		return labelBadType, nil
	}
}

// handleUndo retracts a previously recorded activity. The Undo's object names
// the original activity's wire id; the branch runs on the original message's
// recorded type, not on anything inside the Undo itself.
func (i *Ingestor) handleUndo(ctx context.Context, account *models.Account, activity *activitypub.Activity) (string, error) {
	original, err := i.repo.FindByActivityID(ctx, activity.ObjectID())
	if err != nil {
		return labelError, fmt.Errorf("looking up undone activity: %w", err)
	}
	if original == nil {
		i.logg.Warn(i.logg.WithField(ctx, "activity_id", activity.ObjectID()), "Undo references no recorded activity")
		return labelSkipped, nil
	}

	originalActivity, err := i.codec.Decode(original.ActivityType, original.Payload)
	if err != nil {
		return labelError, fmt.Errorf("decoding undone activity: %w", err)
	}

	switch original.ActivityType {
	case enums.ActivityFollow:
		return labelOK, i.relationships.DeleteFollower(ctx, account.CalendarID, originalActivity.RemoteActor())
	case enums.ActivityAnnounce:
		return labelOK, i.relationships.DeleteEventActivity(ctx, originalActivity.ObjectID(), originalActivity.RemoteActor(), enums.EventActivityShare)
	default:
		i.logg.Warn(i.logg.WithField(ctx, "activity_type", string(original.ActivityType)), "Undo targets an activity type with no retraction rule")
		return labelSkipped, nil
	}
}
