package sqlite

import (
	"context"

	errwrap "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/helper"
)

type SummaryRepository interface {
	FindByConnectionAndDate(ctx context.Context, connectionID int64, date string) (*entity.DailySummary, error)
	Save(ctx context.Context, summary *entity.DailySummary) error
	FindByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*entity.DailySummary, error)
}

type summaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) FindByConnectionAndDate(ctx context.Context, connectionID int64, date string) (*entity.DailySummary, error) {
	funcName := "SummaryRepository.FindByConnectionAndDate"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	var summary entity.DailySummary
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND summary_date = ?", connectionID, date).
		First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errwrap.Wrap(err, funcName)
	}
	return &summary, nil
}

func (r *summaryRepository) Save(ctx context.Context, summary *entity.DailySummary) error {
	funcName := "SummaryRepository.Save"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	return r.db.WithContext(ctx).Save(summary).Error
}

func (r *summaryRepository) FindByConnectionID(ctx context.Context, connectionID int64, limit int) ([]*entity.DailySummary, error) {
	funcName := "SummaryRepository.FindByConnectionID"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	var summaries []*entity.DailySummary
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("summary_date desc").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	return summaries, nil
}
