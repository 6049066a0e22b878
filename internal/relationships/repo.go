package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// ErrNotFound is returned when a relationship row does not exist.
var ErrNotFound = errors.New("relationship not found")

// Repository exposes persistence helpers for the federation relationship
// tables: followers, following, per-object activities, and shared events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FollowersForCalendar(ctx context.Context, calendarID uuid.UUID) ([]models.FollowerRelationship, error)
	CreateFollower(ctx context.Context, follower *models.FollowerRelationship) error
	DeleteFollower(ctx context.Context, calendarID uuid.UUID, remoteActor string) error

	FindFollowingByID(ctx context.Context, id uuid.UUID) (*models.FollowingRelationship, error)
	CreateFollowing(ctx context.Context, following *models.FollowingRelationship) error
	DeleteFollowing(ctx context.Context, id uuid.UUID) error

	ActivitiesForObject(ctx context.Context, objectID string) ([]models.EventActivity, error)
	CreateEventActivity(ctx context.Context, activity *models.EventActivity) error
	DeleteEventActivity(ctx context.Context, objectID, remoteActor string, kind enums.EventActivityKind) error

	CreateSharedEvent(ctx context.Context, shared *models.SharedEvent) error
	DeleteSharedEventByObjectID(ctx context.Context, objectID string) error
	SharedEventExists(ctx context.Context, objectID string) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a relationships repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FollowersForCalendar(ctx context.Context, calendarID uuid.UUID) ([]models.FollowerRelationship, error) {
	var followers []models.FollowerRelationship
	err := r.db.WithContext(ctx).
		Where("calendar_id = ?", calendarID).
		Order("created_at ASC").
		Find(&followers).Error
	return followers, err
}

func (r *repositoryImpl) CreateFollower(ctx context.Context, follower *models.FollowerRelationship) error {
	if follower.ID == uuid.Nil {
		follower.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(follower).Error
	if dbpkg.IsUniqueViolation(err, "ux_followers_calendar_actor") {
		return nil
	}
	return err
}

func (r *repositoryImpl) DeleteFollower(ctx context.Context, calendarID uuid.UUID, remoteActor string) error {
	return r.db.WithContext(ctx).
		Where("calendar_id = ? AND remote_actor = ?", calendarID, remoteActor).
		Delete(&models.FollowerRelationship{}).Error
}

func (r *repositoryImpl) FindFollowingByID(ctx context.Context, id uuid.UUID) (*models.FollowingRelationship, error) {
	var following models.FollowingRelationship
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&following).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("following %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &following, nil
}

func (r *repositoryImpl) CreateFollowing(ctx context.Context, following *models.FollowingRelationship) error {
	if following.ID == uuid.Nil {
		following.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(following).Error
	if dbpkg.IsUniqueViolation(err, "ux_following_calendar_actor") {
		return nil
	}
	return err
}

func (r *repositoryImpl) DeleteFollowing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FollowingRelationship{}).Error
}

func (r *repositoryImpl) ActivitiesForObject(ctx context.Context, objectID string) ([]models.EventActivity, error) {
	var activities []models.EventActivity
	err := r.db.WithContext(ctx).
		Where("object_id = ?", objectID).
		Order("created_at ASC").
		Find(&activities).Error
	return activities, err
}

func (r *repositoryImpl) CreateEventActivity(ctx context.Context, activity *models.EventActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(activity).Error
	if dbpkg.IsUniqueViolation(err, "ux_event_activities_object_actor_kind") {
		return nil
	}
	return err
}

func (r *repositoryImpl) DeleteEventActivity(ctx context.Context, objectID, remoteActor string, kind enums.EventActivityKind) error {
	return r.db.WithContext(ctx).
		Where("object_id = ? AND remote_actor = ? AND kind = ?", objectID, remoteActor, kind).
		Delete(&models.EventActivity{}).Error
}

func (r *repositoryImpl) CreateSharedEvent(ctx context.Context, shared *models.SharedEvent) error {
	if shared.ID == uuid.Nil {
		shared.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(shared).Error
	if dbpkg.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}

func (r *repositoryImpl) DeleteSharedEventByObjectID(ctx context.Context, objectID string) error {
	return r.db.WithContext(ctx).
		Where("object_id = ?", objectID).
		Delete(&models.SharedEvent{}).Error
}

func (r *repositoryImpl) SharedEventExists(ctx context.Context, objectID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SharedEvent{}).
		Where("object_id = ?", objectID).
		Count(&count).Error
	return count > 0, err
}
