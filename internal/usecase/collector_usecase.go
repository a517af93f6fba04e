package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/queue"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/sqlite"
)

// RunResult is what a collection attempt reports back to the caller.
// Skipped runs (disabled, outside allowed hours) are not failures; they
// simply did nothing.
type RunResult struct {
	Success       bool                    `json:"success"`
	Skipped       bool                    `json:"skipped,omitempty"`
	Message       string                  `json:"message,omitempty"`
	RunID         string                  `json:"run_id,omitempty"`
	Status        entity.CollectionStatus `json:"status,omitempty"`
	RowsCollected int                     `json:"rows_collected"`
	RowsInserted  int                     `json:"rows_inserted"`
	DurationMs    int64                   `json:"duration_ms"`
}

type CollectorUsecase struct {
	connections  ConnectionResolver
	settingsRepo sqlite.SettingsRepository
	logRepo      sqlite.LogRepository
	recordRepo   sqlite.RecordRepository
	summaryRepo  sqlite.SummaryRepository
	client       oracle.Client
	publisher    queue.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

func NewCollectorUsecase(
	connections ConnectionResolver,
	settingsRepo sqlite.SettingsRepository,
	logRepo sqlite.LogRepository,
	recordRepo sqlite.RecordRepository,
	summaryRepo sqlite.SummaryRepository,
	client oracle.Client,
	publisher queue.Publisher,
	logger *zap.Logger,
) *CollectorUsecase {
	return &CollectorUsecase{
		connections:  connections,
		settingsRepo: settingsRepo,
		logRepo:      logRepo,
		recordRepo:   recordRepo,
		summaryRepo:  summaryRepo,
		client:       client,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Collect runs one collection cycle for the connection: gate checks, cursor
// cache scrape, grading, batched persistence, daily rollup, log finalize.
// Engine and per-record failures end up in the log status, not in the
// returned error; only a missing connection is surfaced synchronously.
func (u *CollectorUsecase) Collect(ctx context.Context, connectionID int64) (*RunResult, error) {
	conn, err := u.connections.ResolveByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}

	settings, err := u.Settings(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if !settings.Enabled {
		return &RunResult{Skipped: true, Message: "collection is disabled for this connection"}, nil
	}
	startedAt := u.now()
	if hour := startedAt.Hour(); !settings.AllowsHour(hour) {
		return &RunResult{
			Skipped: true,
			Message: fmt.Sprintf("Collection not allowed at hour %d (allowed %d-%d)", hour, settings.StartHour, settings.EndHour),
		}, nil
	}

	log := &entity.CollectionLog{
		RunID:        uuid.NewString(),
		ConnectionID: connectionID,
		Status:       entity.StatusRunning,
		StartedAt:    startedAt,
	}
	if err := u.logRepo.Create(ctx, log); err != nil {
		return nil, err
	}

	stats, err := u.client.CollectCursorCache(ctx, conn, oracle.CollectOptions{
		MinExecutions:    settings.MinExecutions,
		MinElapsedMicros: settings.MinElapsedMs * 1000,
		ExcludedSchemas:  settings.ExcludedSchemaList(),
		RowLimit:         settings.RowLimit,
	})
	if err != nil {
		return u.finishRun(ctx, settings, log, entity.StatusFailed, 0, 0, "cursor cache scrape failed", err.Error()), nil
	}

	if len(stats) == 0 {
		return u.finishRun(ctx, settings, log, entity.StatusSuccess, 0, 0, "", ""), nil
	}

	records := make([]*entity.PerformanceRecord, 0, len(stats))
	for _, s := range stats {
		records = append(records, statToRecord(s, connectionID, entity.SourceSQLArea, startedAt))
	}

	inserted, recordErrs := u.recordRepo.InsertBatch(ctx, records)

	status := entity.StatusSuccess
	errMsg, errDetail := "", ""
	if len(recordErrs) > 0 {
		status = entity.StatusPartial
		if inserted == 0 {
			status = entity.StatusFailed
		}
		errMsg = fmt.Sprintf("%d of %d records failed to insert", len(recordErrs), len(records))
		errDetail = recordErrorDetail(recordErrs)
	}

	if inserted > 0 {
		if err := u.aggregate(ctx, connectionID, startedAt, records); err != nil {
			u.logger.Warn("daily summary update failed",
				zap.Int64("connection_id", connectionID),
				zap.Error(err))
		}
		u.prune(ctx, connectionID, settings.RetentionDays)
	}

	return u.finishRun(ctx, settings, log, status, len(records), inserted, errMsg, errDetail), nil
}

// finishRun finalizes the log exactly once, folds the outcome into the
// settings counters and emits the run event.
func (u *CollectorUsecase) finishRun(ctx context.Context, settings *entity.CollectionSettings, log *entity.CollectionLog, status entity.CollectionStatus, collected, inserted int, errMsg, errDetail string) *RunResult {
	completedAt := u.now()
	log.Finalize(status, collected, inserted, errMsg, errDetail, completedAt)
	if err := u.logRepo.Update(ctx, log); err != nil {
		u.logger.Error("collection log finalize failed",
			zap.String("run_id", log.RunID),
			zap.Error(err))
	}

	settings.RecordRun(status, inserted, completedAt)
	if err := u.settingsRepo.Save(ctx, settings); err != nil {
		u.logger.Warn("settings counter update failed",
			zap.Int64("connection_id", settings.ConnectionID),
			zap.Error(err))
	}

	if err := u.publisher.PublishRunEvent(ctx, queue.RunEvent{
		RunID:         log.RunID,
		ConnectionID:  log.ConnectionID,
		Status:        string(status),
		RowsCollected: collected,
		RowsInserted:  inserted,
		DurationMs:    log.DurationMs,
		CompletedAt:   completedAt,
	}); err != nil {
		u.logger.Warn("run event publish failed", zap.String("run_id", log.RunID), zap.Error(err))
	}

	u.logger.Info("collection run finished",
		zap.String("run_id", log.RunID),
		zap.Int64("connection_id", log.ConnectionID),
		zap.String("status", string(status)),
		zap.Int("rows_collected", collected),
		zap.Int("rows_inserted", inserted),
		zap.Int64("duration_ms", log.DurationMs))

	return &RunResult{
		Success:       status != entity.StatusFailed,
		Message:       errMsg,
		RunID:         log.RunID,
		Status:        status,
		RowsCollected: collected,
		RowsInserted:  inserted,
		DurationMs:    log.DurationMs,
	}
}

// aggregate seeds or merges the day's summary with this batch.
func (u *CollectorUsecase) aggregate(ctx context.Context, connectionID int64, at time.Time, records []*entity.PerformanceRecord) error {
	date := at.Format(dateLayout)
	stats := entity.NewBatchStats(records)

	summary, err := u.summaryRepo.FindByConnectionAndDate(ctx, connectionID, date)
	if err != nil {
		return err
	}
	if summary == nil {
		summary = &entity.DailySummary{ConnectionID: connectionID, SummaryDate: date}
		summary.SeedFrom(stats, at)
	} else {
		summary.Merge(stats, at)
	}
	return u.summaryRepo.Save(ctx, summary)
}

func (u *CollectorUsecase) prune(ctx context.Context, connectionID int64, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := u.now().AddDate(0, 0, -retentionDays).Format(dateLayout)
	deleted, err := u.recordRepo.DeleteOlderThan(ctx, connectionID, cutoff)
	if err != nil {
		u.logger.Warn("retention prune failed", zap.Int64("connection_id", connectionID), zap.Error(err))
		return
	}
	if deleted > 0 {
		u.logger.Info("retention prune removed records",
			zap.Int64("connection_id", connectionID),
			zap.Int64("deleted", deleted),
			zap.String("cutoff_date", cutoff))
	}
}

func recordErrorDetail(errs []sqlite.RecordError) string {
	const maxDetailed = 10
	var b strings.Builder
	for i, re := range errs {
		if i == maxDetailed {
			fmt.Fprintf(&b, "... and %d more", len(errs)-maxDetailed)
			break
		}
		fmt.Fprintf(&b, "%s: %v\n", re.SQLID, re.Err)
	}
	return b.String()
}

// Settings returns the connection's collection settings, creating the
// defaults on first access.
func (u *CollectorUsecase) Settings(ctx context.Context, connectionID int64) (*entity.CollectionSettings, error) {
	settings, err := u.settingsRepo.FindByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = entity.DefaultCollectionSettings(connectionID)
		if err := u.settingsRepo.Save(ctx, settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// UpdateSettings overwrites the policy fields, preserving the run counters.
func (u *CollectorUsecase) UpdateSettings(ctx context.Context, updated *entity.CollectionSettings) (*entity.CollectionSettings, error) {
	settings, err := u.Settings(ctx, updated.ConnectionID)
	if err != nil {
		return nil, err
	}

	settings.Enabled = updated.Enabled
	settings.IntervalMinutes = updated.IntervalMinutes
	settings.RetentionDays = updated.RetentionDays
	settings.MinExecutions = updated.MinExecutions
	settings.MinElapsedMs = updated.MinElapsedMs
	settings.ExcludedSchemas = updated.ExcludedSchemas
	settings.RowLimit = updated.RowLimit
	settings.CollectAllHours = updated.CollectAllHours
	settings.StartHour = updated.StartHour
	settings.EndHour = updated.EndHour

	if err := u.settingsRepo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Logs lists recent collection runs.
func (u *CollectorUsecase) Logs(ctx context.Context, connectionID int64, limit int) ([]*entity.CollectionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.logRepo.FindByConnectionID(ctx, connectionID, limit)
}

// PurgeLogs deletes run logs without touching the records they produced.
func (u *CollectorUsecase) PurgeLogs(ctx context.Context, connectionID int64, olderThanDays int) (int64, error) {
	return u.logRepo.Purge(ctx, connectionID, olderThanDays)
}

// Summaries lists recent daily rollups.
func (u *CollectorUsecase) Summaries(ctx context.Context, connectionID int64, limit int) ([]*entity.DailySummary, error) {
	if limit <= 0 {
		limit = 30
	}
	return u.summaryRepo.FindByConnectionID(ctx, connectionID, limit)
}
