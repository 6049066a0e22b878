package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/internal/activitypub"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

type fakeOutboxRepo struct {
	messages []*models.OutboxMessage
	fetches  int
}

func (f *fakeOutboxRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeOutboxRepo) Enqueue(_ context.Context, message *models.OutboxMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeOutboxRepo) FetchPending(_ context.Context, limit int) ([]models.OutboxMessage, error) {
	f.fetches++
	var pending []models.OutboxMessage
	for _, message := range f.messages {
		if message.ProcessedAt != nil {
			continue
		}
		pending = append(pending, *message)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID, status string, processedAt time.Time) error {
	for _, message := range f.messages {
		if message.ID == id {
			at := processedAt
			st := status
			message.ProcessedAt = &at
			message.ProcessedStatus = &st
		}
	}
	return nil
}

type fakeCalendars struct {
	calendars map[uuid.UUID]*models.Calendar
}

func (f *fakeCalendars) FindCalendar(_ context.Context, id uuid.UUID) (*models.Calendar, error) {
	if calendar, ok := f.calendars[id]; ok {
		return calendar, nil
	}
	return nil, errors.New(errors.CodeNotFound, "calendar not found")
}

type fakeRecipientSource struct {
	recipients []string
	calls      int
}

func (f *fakeRecipientSource) GetRecipients(_ context.Context, _ uuid.UUID, _ string) ([]string, error) {
	f.calls++
	return f.recipients, nil
}

type fakeInboxResolver struct {
	inboxes map[string]string
	calls   int
}

func (f *fakeInboxResolver) ResolveInboxURL(_ context.Context, identifier string) string {
	f.calls++
	return f.inboxes[identifier]
}

type fakeDeliverer struct {
	delivered []string
	fail      map[string]error
}

func (f *fakeDeliverer) Deliver(_ context.Context, inboxURL string, _ []byte) error {
	if err, ok := f.fail[inboxURL]; ok {
		return err
	}
	f.delivered = append(f.delivered, inboxURL)
	return nil
}

type dispatcherHarness struct {
	dispatcher *Dispatcher
	repo       *fakeOutboxRepo
	calendars  *fakeCalendars
	recipients *fakeRecipientSource
	resolver   *fakeInboxResolver
	deliverer  *fakeDeliverer
	calendarID uuid.UUID
}

func newDispatcherHarness(t *testing.T) *dispatcherHarness {
	t.Helper()

	calendarID := uuid.New()
	harness := &dispatcherHarness{
		repo: &fakeOutboxRepo{},
		calendars: &fakeCalendars{calendars: map[uuid.UUID]*models.Calendar{
			calendarID: {ID: calendarID, Name: "community"},
		}},
		recipients: &fakeRecipientSource{},
		resolver:   &fakeInboxResolver{inboxes: map[string]string{}},
		deliverer:  &fakeDeliverer{},
		calendarID: calendarID,
	}

	dispatcher, err := NewDispatcher(DispatcherParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repo:       harness.repo,
		Calendars:  harness.calendars,
		Recipients: harness.recipients,
		Discovery:  harness.resolver,
		Deliverer:  harness.deliverer,
		Codec:      activitypub.NewCodec(),
		BatchSize:  10,
	})
	if err != nil {
		t.Fatalf("building dispatcher: %v", err)
	}
	harness.dispatcher = dispatcher
	return harness
}

func (h *dispatcherHarness) enqueue(t *testing.T, activityType enums.ActivityType, payload string) *models.OutboxMessage {
	t.Helper()
	message := &models.OutboxMessage{
		ActivityType: activityType,
		CalendarID:   h.calendarID,
		Payload:      json.RawMessage(payload),
		MessageAt:    time.Now().UTC(),
	}
	if err := h.repo.Enqueue(context.Background(), message); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return message
}

func statusOf(t *testing.T, message *models.OutboxMessage) string {
	t.Helper()
	if message.ProcessedAt == nil || message.ProcessedStatus == nil {
		t.Fatal("message was not marked processed")
	}
	return *message.ProcessedStatus
}

func TestProcessOutboxMessagesRecordsPartialOnResolutionFailure(t *testing.T) {
	h := newDispatcherHarness(t)
	h.recipients.recipients = []string{
		"https://remote.test/actors/a",
		"https://remote.test/actors/b",
		"unreachable@nowhere.test",
	}
	h.resolver.inboxes["https://remote.test/actors/a"] = "https://remote.test/inbox/a"
	h.resolver.inboxes["https://remote.test/actors/b"] = "https://remote.test/inbox/b"

	message := h.enqueue(t, enums.ActivityCreate, `{"type":"Create","actor":"local","object":{"id":"https://cal.example.org/events/1","type":"Event"}}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	if len(h.deliverer.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %v", len(h.deliverer.delivered), h.deliverer.delivered)
	}
	status := statusOf(t, message)
	if !strings.HasPrefix(status, StatusPartialPrefix) {
		t.Fatalf("expected partial status, got %q", status)
	}
	if !strings.Contains(status, "unreachable@nowhere.test") {
		t.Fatalf("expected failed recipient in status, got %q", status)
	}
}

func TestProcessOutboxMessagesRecordsPartialOnDeliveryFailure(t *testing.T) {
	h := newDispatcherHarness(t)
	h.recipients.recipients = []string{"https://remote.test/actors/a", "https://remote.test/actors/b"}
	h.resolver.inboxes["https://remote.test/actors/a"] = "https://remote.test/inbox/a"
	h.resolver.inboxes["https://remote.test/actors/b"] = "https://remote.test/inbox/b"
	h.deliverer.fail = map[string]error{"https://remote.test/inbox/b": fmt.Errorf("connection refused")}

	message := h.enqueue(t, enums.ActivityUpdate, `{"type":"Update","object":{"id":"https://cal.example.org/events/1"}}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	status := statusOf(t, message)
	if !strings.HasPrefix(status, StatusPartialPrefix) || !strings.Contains(status, "connection refused") {
		t.Fatalf("expected partial status carrying the delivery error, got %q", status)
	}
	if len(h.deliverer.delivered) != 1 {
		t.Fatalf("expected exactly one successful delivery, got %v", h.deliverer.delivered)
	}
}

func TestProcessOutboxMessagesMarksOKWhenAllDeliver(t *testing.T) {
	h := newDispatcherHarness(t)
	h.recipients.recipients = []string{"https://remote.test/actors/a"}
	h.resolver.inboxes["https://remote.test/actors/a"] = "https://remote.test/inbox/a"

	message := h.enqueue(t, enums.ActivityDelete, `{"type":"Delete","object":"https://cal.example.org/events/1"}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if got := statusOf(t, message); got != StatusOK {
		t.Fatalf("expected %q, got %q", StatusOK, got)
	}
}

func TestProcessOutboxMessagesMarksBadMessageType(t *testing.T) {
	h := newDispatcherHarness(t)
	message := h.enqueue(t, enums.ActivityType("Bogus"), `{"type":"Bogus"}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if got := statusOf(t, message); got != StatusBadMessageType {
		t.Fatalf("expected %q, got %q", StatusBadMessageType, got)
	}
	if h.resolver.calls != 0 || len(h.deliverer.delivered) != 0 {
		t.Fatal("undecodable message must trigger no network activity")
	}
}

func TestProcessOutboxMessagesSecondDrainIsNoOp(t *testing.T) {
	h := newDispatcherHarness(t)
	h.recipients.recipients = []string{"https://remote.test/actors/a"}
	h.resolver.inboxes["https://remote.test/actors/a"] = "https://remote.test/inbox/a"
	h.enqueue(t, enums.ActivityCreate, `{"type":"Create","object":{"id":"https://cal.example.org/events/1"}}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("first drain failed: %v", err)
	}
	delivered := len(h.deliverer.delivered)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("second drain failed: %v", err)
	}
	if len(h.deliverer.delivered) != delivered {
		t.Fatalf("second drain must deliver nothing, got %v", h.deliverer.delivered[delivered:])
	}
}

func TestProcessOutboxMessagesLeavesUnknownCalendarPending(t *testing.T) {
	h := newDispatcherHarness(t)
	message := h.enqueue(t, enums.ActivityCreate, `{"type":"Create","object":{"id":"x"}}`)
	message.CalendarID = uuid.New()

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if message.ProcessedAt != nil {
		t.Fatal("message for a missing calendar must stay pending")
	}
	if len(h.deliverer.delivered) != 0 {
		t.Fatal("no deliveries expected for a missing calendar")
	}
	if h.repo.fetches != 1 {
		t.Fatalf("a batch with no progress must end the pass, got %d fetches", h.repo.fetches)
	}
}

func TestProcessOutboxMessagesFollowAddressesObject(t *testing.T) {
	h := newDispatcherHarness(t)
	h.resolver.inboxes["https://remote.test/actors/feed"] = "https://remote.test/inbox/feed"
	message := h.enqueue(t, enums.ActivityFollow, `{"type":"Follow","actor":"local","object":"https://remote.test/actors/feed"}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if got := statusOf(t, message); got != StatusOK {
		t.Fatalf("expected %q, got %q", StatusOK, got)
	}
	if h.recipients.calls != 0 {
		t.Fatal("Follow must not consult the recipient source")
	}
	if len(h.deliverer.delivered) != 1 || h.deliverer.delivered[0] != "https://remote.test/inbox/feed" {
		t.Fatalf("expected a single delivery to the followed actor, got %v", h.deliverer.delivered)
	}
}

func TestProcessOutboxMessagesAcceptAddressesEmbeddedActor(t *testing.T) {
	h := newDispatcherHarness(t)
	h.resolver.inboxes["https://remote.test/actors/fan"] = "https://remote.test/inbox/fan"
	h.enqueue(t, enums.ActivityAccept, `{"type":"Accept","object":{"type":"Follow","actor":"https://remote.test/actors/fan","object":"https://cal.example.org/calendars/c"}}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(h.deliverer.delivered) != 1 || h.deliverer.delivered[0] != "https://remote.test/inbox/fan" {
		t.Fatalf("expected a single delivery to the original follower, got %v", h.deliverer.delivered)
	}
}

func TestProcessOutboxMessagesUndoHonorsToList(t *testing.T) {
	h := newDispatcherHarness(t)
	h.resolver.inboxes["https://remote.test/actors/feed"] = "https://remote.test/inbox/feed"
	h.enqueue(t, enums.ActivityUndo, `{"type":"Undo","to":["https://remote.test/actors/feed"],"object":"https://cal.example.org/follows/`+uuid.NewString()+`"}`)

	if err := h.dispatcher.ProcessOutboxMessages(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if h.recipients.calls != 0 {
		t.Fatal("an explicit to list must bypass the recipient source")
	}
	if len(h.deliverer.delivered) != 1 || h.deliverer.delivered[0] != "https://remote.test/inbox/feed" {
		t.Fatalf("expected delivery to the listed recipient, got %v", h.deliverer.delivered)
	}
}
