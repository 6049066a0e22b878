package outbox

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/internal/activitypub"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
)

const defaultBatchSize = 1000

// RecipientSource yields the actor references an activity fans out to.
type RecipientSource interface {
	GetRecipients(ctx context.Context, calendarID uuid.UUID, objectID string) ([]string, error)
}

// InboxResolver turns an actor reference into a deliverable inbox URL.
// An empty string means the recipient could not be resolved.
type InboxResolver interface {
	ResolveInboxURL(ctx context.Context, identifier string) string
}

// Dispatcher drains the pending outbound messages, fanning each activity out
// to its recipients and writing a single terminal status per message.
type Dispatcher struct {
	logg       *logger.Logger
	repo       Repository
	calendars  Calendars
	recipients RecipientSource
	discovery  InboxResolver
	deliverer  Deliverer
	codec      *activitypub.Codec
	metrics    *metrics.FederationMetrics
	batchSize  int
	now        func() time.Time
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Logger     *logger.Logger
	Repo       Repository
	Calendars  Calendars
	Recipients RecipientSource
	Discovery  InboxResolver
	Deliverer  Deliverer
	Codec      *activitypub.Codec
	Metrics    *metrics.FederationMetrics
	BatchSize  int
}

// NewDispatcher validates the dependency set and builds a dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, stdErrors.New("outbox repository is required")
	}
	if params.Calendars == nil {
		return nil, stdErrors.New("calendar lookup is required")
	}
	if params.Recipients == nil {
		return nil, stdErrors.New("recipient source is required")
	}
	if params.Discovery == nil {
		return nil, stdErrors.New("inbox resolver is required")
	}
	if params.Deliverer == nil {
		return nil, stdErrors.New("deliverer is required")
	}
	if params.Codec == nil {
		return nil, stdErrors.New("activity codec is required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Dispatcher{
		logg:       params.Logger,
		repo:       params.Repo,
		calendars:  params.Calendars,
		recipients: params.Recipients,
		discovery:  params.Discovery,
		deliverer:  params.Deliverer,
		codec:      params.Codec,
		metrics:    params.Metrics,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

// ProcessOutboxMessages fetches pending messages in creation order and
// processes them until no pending work remains. Messages that cannot reach a
// terminal status stay pending; a batch that settles nothing ends the pass so
// the next poll retries them instead of spinning on the same rows.
func (d *Dispatcher) ProcessOutboxMessages(ctx context.Context) error {
	start := d.now()
	defer func() {
		d.metrics.ObserveDrain("outbox", d.now().Sub(start))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := d.repo.FetchPending(ctx, d.batchSize)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "fetching pending outbox messages")
		}
		if len(batch) == 0 {
			return nil
		}

		settled := 0
		for i := range batch {
			message := &batch[i]
			done, err := d.processMessage(ctx, message)
			if err != nil {
				logCtx := d.logg.WithMessageID(ctx, message.ID.String())
				d.logg.Error(logCtx, "processing outbox message failed", err)
			}
			if done {
				settled++
			}
		}
		if settled == 0 {
			return nil
		}
	}
}

func (d *Dispatcher) processMessage(ctx context.Context, message *models.OutboxMessage) (bool, error) {
	logCtx := d.logg.WithMessageID(ctx, message.ID.String())
	logCtx = d.logg.WithCalendarID(logCtx, message.CalendarID.String())

	calendar, err := d.calendars.FindCalendar(ctx, message.CalendarID)
	if err != nil {
		if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
			d.logg.Warn(logCtx, "calendar for outbox message no longer exists, leaving message pending")
			return false, nil
		}
		return false, err
	}

	activity, err := d.codec.Decode(message.ActivityType, message.Payload)
	if err != nil {
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "outbox payload is not a deliverable activity")
		if markErr := d.repo.MarkProcessed(ctx, message.ID, StatusBadMessageType, d.now().UTC()); markErr != nil {
			return false, errors.Wrap(errors.CodeDependency, markErr, "marking undecodable message processed")
		}
		d.metrics.IncProcessed("outbox", StatusBadMessageType)
		return true, nil
	}

	recipients, err := d.recipientsFor(ctx, calendar, activity)
	if err != nil {
		return false, err
	}

	body, err := d.codec.Encode(activity)
	if err != nil {
		return false, fmt.Errorf("encoding activity for delivery: %w", err)
	}

	var deliveryErrs []string
	for _, recipient := range recipients {
		inboxURL := d.discovery.ResolveInboxURL(ctx, recipient)
		if inboxURL == "" {
			d.metrics.IncDiscoveryFailure()
			deliveryErrs = append(deliveryErrs, fmt.Sprintf("Failed to deliver to %s: no inbox resolved", recipient))
			continue
		}
		if err := d.deliverer.Deliver(ctx, inboxURL, body); err != nil {
			d.metrics.IncDelivery("error")
			deliveryErrs = append(deliveryErrs, fmt.Sprintf("Failed to deliver to %s: %v", recipient, err))
			continue
		}
		d.metrics.IncDelivery("ok")
	}

	status := StatusOK
	statusLabel := "ok"
	if len(deliveryErrs) > 0 {
		status = StatusPartialPrefix + strings.Join(deliveryErrs, "; ")
		statusLabel = "partial"
	}
	if err := d.repo.MarkProcessed(ctx, message.ID, status, d.now().UTC()); err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "marking outbox message processed")
	}
	d.metrics.IncProcessed("outbox", statusLabel)
	return true, nil
}

// recipientsFor applies the per-type addressing rules. Reference-style
// activities fan out to followers and observers; Follow and Accept address a
// single remote actor; Undo and Flag honor an explicit to list when present.
func (d *Dispatcher) recipientsFor(ctx context.Context, calendar *models.Calendar, activity *activitypub.Activity) ([]string, error) {
	switch activity.Type {
	case enums.ActivityCreate, enums.ActivityUpdate, enums.ActivityDelete, enums.ActivityAnnounce:
		return d.recipients.GetRecipients(ctx, calendar.ID, activity.ObjectID())
	case enums.ActivityFollow:
		if ref := activity.ObjectID(); ref != "" {
			return []string{ref}, nil
		}
		return nil, nil
	case enums.ActivityAccept:
		if actor := activity.ObjectActor(); actor != "" {
			return []string{actor}, nil
		}
		return nil, nil
	case enums.ActivityUndo, enums.ActivityFlag:
		if len(activity.To) > 0 {
			return activity.To, nil
		}
		return d.recipients.GetRecipients(ctx, calendar.ID, activity.ObjectID())
	default:
		return nil, fmt.Errorf("no addressing rule for activity type %q", activity.Type)
	}
}
