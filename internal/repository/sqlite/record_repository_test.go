package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(t.TempDir() + "/telemetry.db")
	require.NoError(t, err)
	return db
}

func makeRecords(n int) []*entity.PerformanceRecord {
	records := make([]*entity.PerformanceRecord, n)
	for i := range records {
		records[i] = &entity.PerformanceRecord{
			ConnectionID:   1,
			SQLID:          fmt.Sprintf("sqlid%08d", i),
			Executions:     int64(i + 1),
			ElapsedMs:      float64(100 * (i + 1)),
			CPUMs:          float64(50 * (i + 1)),
			BufferGets:     int64(1000 * (i + 1)),
			DiskReads:      int64(10 * (i + 1)),
			Grade:          entity.GradeB,
			SourceTier:     entity.SourceSQLArea,
			CollectionDate: "2025-01-10",
			CollectionHour: 10,
		}
	}
	return records
}

func TestInsertBatch(t *testing.T) {
	repo := NewRecordRepository(testDB(t))

	inserted, errs := repo.InsertBatch(context.Background(), makeRecords(42))
	assert.Equal(t, 42, inserted)
	assert.Empty(t, errs)
}

func TestInsertBatchIsolatesBadRow(t *testing.T) {
	db := testDB(t)
	repo := NewRecordRepository(db)

	records := makeRecords(10)
	// Force a primary-key collision inside the chunk: the bulk insert
	// fails, the per-record retry inserts everything but the duplicate.
	records[3].ID = 7
	records[7].ID = 7

	inserted, errs := repo.InsertBatch(context.Background(), records)
	assert.Equal(t, 9, inserted)
	require.Len(t, errs, 1)
	assert.Equal(t, records[7].SQLID, errs[0].SQLID)

	var count int64
	require.NoError(t, db.Model(&entity.PerformanceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(9), count)
}

func TestFindByWindowOrdering(t *testing.T) {
	repo := NewRecordRepository(testDB(t))
	ctx := context.Background()

	_, errs := repo.InsertBatch(ctx, makeRecords(5))
	require.Empty(t, errs)

	records, err := repo.FindByWindow(ctx, RecordQuery{
		ConnectionID: 1,
		Date:         "2025-01-10",
		SortKey:      entity.SortElapsed,
		Limit:        3,
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 500.0, records[0].ElapsedMs, "ordered by the requested metric descending")
	assert.Equal(t, 400.0, records[1].ElapsedMs)
}

func TestFindByWindowHourRange(t *testing.T) {
	db := testDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	records := makeRecords(6)
	for i, r := range records {
		r.CollectionHour = 8 + i*2 // 8, 10, 12, 14, 16, 18
	}
	_, errs := repo.InsertBatch(ctx, records)
	require.Empty(t, errs)

	start, end := 9, 14
	got, err := repo.FindByWindow(ctx, RecordQuery{
		ConnectionID: 1,
		Date:         "2025-01-10",
		StartHour:    &start,
		EndHour:      &end,
		SortKey:      entity.SortExecutions,
		Limit:        100,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.CollectionHour, 9)
		assert.LessOrEqual(t, r.CollectionHour, 14)
	}
}

func TestFindByWindowWrongDate(t *testing.T) {
	repo := NewRecordRepository(testDB(t))
	ctx := context.Background()

	_, errs := repo.InsertBatch(ctx, makeRecords(3))
	require.Empty(t, errs)

	got, err := repo.FindByWindow(ctx, RecordQuery{
		ConnectionID: 1,
		Date:         "2025-01-11",
		SortKey:      entity.SortElapsed,
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteOlderThan(t *testing.T) {
	db := testDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	old := makeRecords(3)
	for _, r := range old {
		r.CollectionDate = "2024-11-01"
	}
	fresh := makeRecords(2)

	_, errs := repo.InsertBatch(ctx, append(old, fresh...))
	require.Empty(t, errs)

	deleted, err := repo.DeleteOlderThan(ctx, 1, "2024-12-13")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var count int64
	require.NoError(t, db.Model(&entity.PerformanceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSummaryUniquePerConnectionAndDate(t *testing.T) {
	db := testDB(t)
	repo := NewSummaryRepository(db)
	ctx := context.Background()

	first := &entity.DailySummary{ConnectionID: 1, SummaryDate: "2025-01-10", CollectionCount: 1}
	require.NoError(t, repo.Save(ctx, first))

	dup := &entity.DailySummary{ConnectionID: 1, SummaryDate: "2025-01-10", CollectionCount: 1}
	assert.Error(t, db.Create(dup).Error, "unique index rejects a second row for the same day")

	// The merge path updates through Save on the loaded row instead.
	loaded, err := repo.FindByConnectionAndDate(ctx, 1, "2025-01-10")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	loaded.CollectionCount++
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.FindByConnectionAndDate(ctx, 1, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.CollectionCount)
}

func TestLogPurgeLeavesRecords(t *testing.T) {
	db := testDB(t)
	logRepo := NewLogRepository(db)
	recordRepo := NewRecordRepository(db)
	ctx := context.Background()

	require.NoError(t, logRepo.Create(ctx, &entity.CollectionLog{
		RunID:        "run-1",
		ConnectionID: 1,
		Status:       entity.StatusSuccess,
	}))
	_, errs := recordRepo.InsertBatch(ctx, makeRecords(4))
	require.Empty(t, errs)

	deleted, err := logRepo.Purge(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, db.Model(&entity.PerformanceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(4), count, "deleting a log never deletes the records it produced")
}
