package sqlite

import (
	"context"

	errwrap "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/helper"
)

// InsertChunkSize bounds one multi-row insert. One malformed row voids only
// its own chunk's bulk insert, never the whole run.
const InsertChunkSize = 500

// RecordError ties a failed insert to the record that caused it.
type RecordError struct {
	SQLID string
	Err   error
}

type RecordRepository interface {
	InsertBatch(ctx context.Context, records []*entity.PerformanceRecord) (int, []RecordError)
	FindByWindow(ctx context.Context, q RecordQuery) ([]*entity.PerformanceRecord, error)
	DeleteOlderThan(ctx context.Context, connectionID int64, cutoffDate string) (int64, error)
}

// RecordQuery scopes a tier-zero read: one connection, one calendar date,
// optional hour range, ordered by one metric descending.
type RecordQuery struct {
	ConnectionID int64
	Date         string // YYYY-MM-DD
	StartHour    *int
	EndHour      *int
	SortKey      entity.SortKey
	Limit        int
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// sortColumns whitelists the ORDER BY targets; the sort key arrives from the
// API layer and must never reach SQL verbatim.
var sortColumns = map[entity.SortKey]string{
	entity.SortElapsed:    "elapsed_ms",
	entity.SortCPU:        "cpu_ms",
	entity.SortBufferGets: "buffer_gets",
	entity.SortDiskReads:  "disk_reads",
	entity.SortExecutions: "executions",
}

// InsertBatch writes records in fixed-size chunks. When a chunk insert fails,
// every record in that chunk is retried individually so one bad row cannot
// discard its neighbors. Returns the number of rows inserted plus the
// per-record errors.
func (r *recordRepository) InsertBatch(ctx context.Context, records []*entity.PerformanceRecord) (int, []RecordError) {
	funcName := "RecordRepository.InsertBatch"

	inserted := 0
	var errs []RecordError
	for _, chunk := range helper.Chunk(records, InsertChunkSize) {
		if err := helper.CheckDeadline(ctx); err != nil {
			for _, rec := range chunk {
				errs = append(errs, RecordError{SQLID: rec.SQLID, Err: errwrap.Wrap(err, funcName)})
			}
			continue
		}

		if err := r.db.WithContext(ctx).Create(chunk).Error; err == nil {
			inserted += len(chunk)
			continue
		}

		// Chunk failed; isolate the offending rows one by one.
		for _, rec := range chunk {
			if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
				errs = append(errs, RecordError{SQLID: rec.SQLID, Err: errwrap.Wrap(err, funcName)})
				continue
			}
			inserted++
		}
	}
	return inserted, errs
}

func (r *recordRepository) FindByWindow(ctx context.Context, q RecordQuery) ([]*entity.PerformanceRecord, error) {
	funcName := "RecordRepository.FindByWindow"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	column, ok := sortColumns[q.SortKey]
	if !ok {
		column = sortColumns[entity.SortElapsed]
	}

	tx := r.db.WithContext(ctx).
		Where("connection_id = ? AND collection_date = ?", q.ConnectionID, q.Date)
	if q.StartHour != nil && q.EndHour != nil {
		tx = tx.Where("collection_hour BETWEEN ? AND ?", *q.StartHour, *q.EndHour)
	}

	var records []*entity.PerformanceRecord
	err := tx.Order(column + " desc").Limit(q.Limit).Find(&records).Error
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	return records, nil
}

// DeleteOlderThan removes records whose collection date precedes cutoffDate.
func (r *recordRepository) DeleteOlderThan(ctx context.Context, connectionID int64, cutoffDate string) (int64, error) {
	funcName := "RecordRepository.DeleteOlderThan"
	if err := helper.CheckDeadline(ctx); err != nil {
		return 0, errwrap.Wrap(err, funcName)
	}

	res := r.db.WithContext(ctx).
		Where("connection_id = ? AND collection_date < ?", connectionID, cutoffDate).
		Delete(&entity.PerformanceRecord{})
	if res.Error != nil {
		return 0, errwrap.Wrap(res.Error, funcName)
	}
	return res.RowsAffected, nil
}
