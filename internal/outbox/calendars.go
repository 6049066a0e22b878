package outbox

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
)

// Calendars looks up the local calendar an outbound message belongs to.
type Calendars interface {
	FindCalendar(ctx context.Context, id uuid.UUID) (*models.Calendar, error)
}

type calendarsImpl struct {
	db *gorm.DB
}

// NewCalendars returns a calendar lookup bound to the provided database.
func NewCalendars(db *gorm.DB) Calendars {
	return &calendarsImpl{db: db}
}

func (c *calendarsImpl) FindCalendar(ctx context.Context, id uuid.UUID) (*models.Calendar, error) {
	var calendar models.Calendar
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&calendar).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "calendar not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading calendar")
	}
	return &calendar, nil
}
