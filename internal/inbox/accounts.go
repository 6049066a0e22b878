package inbox

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/errors"
)

// Accounts looks up the local account an inbound message belongs to.
type Accounts interface {
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type accountsImpl struct {
	db *gorm.DB
}

// NewAccounts returns an account lookup bound to the provided database.
func NewAccounts(db *gorm.DB) Accounts {
	return &accountsImpl{db: db}
}

func (a *accountsImpl) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := a.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading account")
	}
	return &account, nil
}
