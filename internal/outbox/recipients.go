package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/internal/relationships"
)

// followsPathSegment marks object ids that reference a following relationship
// rather than an event: Undo(Follow) activities name the original Follow's id
// as their object, and that id embeds the relationship row id.
const followsPathSegment = "/follows/"

// Resolver computes the actor references that must receive an activity about
// a given object. Reads only; recipient computation never mutates
// relationship data.
type Resolver struct {
	relationships relationships.Repository
}

// NewResolver builds a recipient resolver over the relationship tables.
func NewResolver(repo relationships.Repository) (*Resolver, error) {
	if repo == nil {
		return nil, errors.New("relationships repository is required")
	}
	return &Resolver{relationships: repo}, nil
}

// GetRecipients returns the union of the calendar's followers and the
// object's recorded observers. Duplicate relationship rows yield duplicate
// recipients: the dispatcher delivers per stored row, no de-duplication.
func (r *Resolver) GetRecipients(ctx context.Context, calendarID uuid.UUID, objectID string) ([]string, error) {
	if relationshipID, ok := followingIDFromObject(objectID); ok {
		following, err := r.relationships.FindFollowingByID(ctx, relationshipID)
		if errors.Is(err, relationships.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolving following relationship %s: %w", relationshipID, err)
		}
		return []string{following.RemoteActor}, nil
	}

	followers, err := r.relationships.FollowersForCalendar(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("loading followers: %w", err)
	}

	recipients := make([]string, 0, len(followers))
	for _, follower := range followers {
		recipients = append(recipients, follower.RemoteActor)
	}

	if objectID != "" {
		activities, err := r.relationships.ActivitiesForObject(ctx, objectID)
		if err != nil {
			return nil, fmt.Errorf("loading object activities: %w", err)
		}
		for _, activity := range activities {
			recipients = append(recipients, activity.RemoteActor)
		}
	}

	return recipients, nil
}

func followingIDFromObject(objectID string) (uuid.UUID, bool) {
	idx := strings.LastIndex(objectID, followsPathSegment)
	if idx < 0 {
		return uuid.Nil, false
	}
	tail := objectID[idx+len(followsPathSegment):]
	if end := strings.IndexByte(tail, '/'); end >= 0 {
		tail = tail[:end]
	}
	id, err := uuid.Parse(tail)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
