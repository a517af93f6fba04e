package sqlite

import (
	"context"

	errwrap "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/helper"
)

type SettingsRepository interface {
	FindByConnectionID(ctx context.Context, connectionID int64) (*entity.CollectionSettings, error)
	Save(ctx context.Context, settings *entity.CollectionSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) FindByConnectionID(ctx context.Context, connectionID int64) (*entity.CollectionSettings, error) {
	funcName := "SettingsRepository.FindByConnectionID"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	var settings entity.CollectionSettings
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		First(&settings).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errwrap.Wrap(err, funcName)
	}
	return &settings, nil
}

// Save creates or updates the settings row. ID zero means create.
func (r *settingsRepository) Save(ctx context.Context, settings *entity.CollectionSettings) error {
	funcName := "SettingsRepository.Save"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	return r.db.WithContext(ctx).Save(settings).Error
}
