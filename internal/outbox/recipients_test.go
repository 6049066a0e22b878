package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/internal/relationships"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

func setupRelationshipsDB(t *testing.T) relationships.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE federation_followers (
  id TEXT PRIMARY KEY,
  calendar_id TEXT NOT NULL,
  remote_actor TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (calendar_id, remote_actor)
);`,
		`CREATE TABLE federation_following (
  id TEXT PRIMARY KEY,
  calendar_id TEXT NOT NULL,
  remote_actor TEXT NOT NULL,
  repost_originals INTEGER NOT NULL DEFAULT 0,
  repost_reposts INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  UNIQUE (calendar_id, remote_actor)
);`,
		`CREATE TABLE federation_event_activities (
  id TEXT PRIMARY KEY,
  object_id TEXT NOT NULL,
  remote_actor TEXT NOT NULL,
  kind TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (object_id, remote_actor, kind)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return relationships.NewRepository(db)
}

func TestGetRecipientsUnionsFollowersAndObservers(t *testing.T) {
	repo := setupRelationshipsDB(t)
	resolver, err := NewResolver(repo)
	require.NoError(t, err)

	ctx := context.Background()
	calendarID := uuid.New()
	objectID := "https://cal.example.org/events/42"

	require.NoError(t, repo.CreateFollower(ctx, &models.FollowerRelationship{
		CalendarID: calendarID, RemoteActor: "https://remote.test/actors/a",
	}))
	require.NoError(t, repo.CreateFollower(ctx, &models.FollowerRelationship{
		CalendarID: calendarID, RemoteActor: "https://remote.test/actors/b",
	}))
	require.NoError(t, repo.CreateEventActivity(ctx, &models.EventActivity{
		ObjectID: objectID, RemoteActor: "https://other.test/actors/observer", Kind: enums.EventActivityShare,
	}))

	recipients, err := resolver.GetRecipients(ctx, calendarID, objectID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://remote.test/actors/a",
		"https://remote.test/actors/b",
		"https://other.test/actors/observer",
	}, recipients)
}

func TestGetRecipientsKeepsDuplicateRows(t *testing.T) {
	repo := setupRelationshipsDB(t)
	resolver, err := NewResolver(repo)
	require.NoError(t, err)

	ctx := context.Background()
	calendarID := uuid.New()
	objectID := "https://cal.example.org/events/7"
	actor := "https://remote.test/actors/both"

	require.NoError(t, repo.CreateFollower(ctx, &models.FollowerRelationship{
		CalendarID: calendarID, RemoteActor: actor,
	}))
	require.NoError(t, repo.CreateEventActivity(ctx, &models.EventActivity{
		ObjectID: objectID, RemoteActor: actor, Kind: enums.EventActivityShare,
	}))

	recipients, err := resolver.GetRecipients(ctx, calendarID, objectID)
	require.NoError(t, err)
	assert.Equal(t, []string{actor, actor}, recipients)
}

func TestGetRecipientsForFollowingObject(t *testing.T) {
	repo := setupRelationshipsDB(t)
	resolver, err := NewResolver(repo)
	require.NoError(t, err)

	ctx := context.Background()
	following := &models.FollowingRelationship{
		CalendarID:  uuid.New(),
		RemoteActor: "https://remote.test/actors/feed",
	}
	require.NoError(t, repo.CreateFollowing(ctx, following))

	objectID := "https://cal.example.org/calendars/mine/follows/" + following.ID.String()
	recipients, err := resolver.GetRecipients(ctx, uuid.New(), objectID)
	require.NoError(t, err)
	assert.Equal(t, []string{following.RemoteActor}, recipients)

	missing := "https://cal.example.org/calendars/mine/follows/" + uuid.NewString()
	recipients, err = resolver.GetRecipients(ctx, uuid.New(), missing)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestFollowingIDFromObject(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		in string
		ok bool
	}{
		{"https://cal.example.org/calendars/c/follows/" + id.String(), true},
		{"https://cal.example.org/follows/" + id.String() + "/undo", true},
		{"https://cal.example.org/follows/not-a-uuid", false},
		{"https://cal.example.org/events/42", false},
		{"", false},
	}
	for _, tc := range cases {
		got, ok := followingIDFromObject(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, id, got, tc.in)
		}
	}
}
