package entity

import "time"

// CollectionStatus is the lifecycle state of one collection run.
type CollectionStatus string

const (
	StatusRunning CollectionStatus = "RUNNING"
	StatusSuccess CollectionStatus = "SUCCESS"
	StatusPartial CollectionStatus = "PARTIAL"
	StatusFailed  CollectionStatus = "FAILED"
)

// CollectionLog tracks one collection run. Created in RUNNING state when the
// run starts and finalized exactly once at run end. Purging logs never
// touches the records the run produced.
type CollectionLog struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID        string           `gorm:"size:36;uniqueIndex" json:"run_id"`
	ConnectionID int64            `gorm:"index;not null" json:"connection_id"`
	Status       CollectionStatus `gorm:"size:10" json:"status"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	DurationMs  int64      `json:"duration_ms"`

	RowsCollected int    `json:"rows_collected"`
	RowsInserted  int    `json:"rows_inserted"`
	ErrorMessage  string `json:"error_message"`
	ErrorDetail   string `gorm:"type:text" json:"error_detail"`
}

func (CollectionLog) TableName() string {
	return "collection_logs"
}

// Finalize closes the log. CompletedAt is clamped so it never precedes
// StartedAt even if the clock moved.
func (l *CollectionLog) Finalize(status CollectionStatus, collected, inserted int, errMsg, errDetail string, now time.Time) {
	if now.Before(l.StartedAt) {
		now = l.StartedAt
	}
	l.Status = status
	l.CompletedAt = &now
	l.DurationMs = now.Sub(l.StartedAt).Milliseconds()
	l.RowsCollected = collected
	l.RowsInserted = inserted
	l.ErrorMessage = errMsg
	l.ErrorDetail = errDetail
}
