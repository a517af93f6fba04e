package sqlite

import (
	"context"
	"time"

	errwrap "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/helper"
)

type LogRepository interface {
	Create(ctx context.Context, log *entity.CollectionLog) error
	Update(ctx context.Context, log *entity.CollectionLog) error
	FindByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*entity.CollectionLog, error)
	Purge(ctx context.Context, connectionID int64, olderThanDays int) (int64, error)
}

type logRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, log *entity.CollectionLog) error {
	funcName := "LogRepository.Create"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	return r.db.WithContext(ctx).Create(log).Error
}

func (r *logRepository) Update(ctx context.Context, log *entity.CollectionLog) error {
	funcName := "LogRepository.Update"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	return r.db.WithContext(ctx).Save(log).Error
}

func (r *logRepository) FindByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*entity.CollectionLog, error) {
	funcName := "LogRepository.FindByConnectionID"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	var logs []*entity.CollectionLog
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("started_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	return logs, nil
}

// Purge deletes logs for the connection, optionally only those started more
// than olderThanDays ago. Records produced by the purged runs are untouched.
func (r *logRepository) Purge(ctx context.Context, connectionID int64, olderThanDays int) (int64, error) {
	funcName := "LogRepository.Purge"
	if err := helper.CheckDeadline(ctx); err != nil {
		return 0, errwrap.Wrap(err, funcName)
	}

	q := r.db.WithContext(ctx).Where("connection_id = ?", connectionID)
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		q = q.Where("started_at < ?", cutoff)
	}
	res := q.Delete(&entity.CollectionLog{})
	if res.Error != nil {
		return 0, errwrap.Wrap(res.Error, funcName)
	}
	return res.RowsAffected, nil
}
