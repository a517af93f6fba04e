package entity

import (
	"time"
)

// SQLTextLimit is the byte budget for stored statement text. v$sql holds the
// full text but one oversized literal-heavy statement must not blow up the
// local store.
const SQLTextLimit = 4000

// SortKey selects the metric a statement listing is ordered by.
type SortKey string

const (
	SortElapsed    SortKey = "elapsed_time"
	SortCPU        SortKey = "cpu_time"
	SortBufferGets SortKey = "buffer_gets"
	SortDiskReads  SortKey = "disk_reads"
	SortExecutions SortKey = "executions"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortElapsed, SortCPU, SortBufferGets, SortDiskReads, SortExecutions:
		return true
	}
	return false
}

// Source tags identify which tier satisfied a read.
const (
	SourceDatabase  = "database"    // previously collected records (tier zero)
	SourceAWR       = "dba_hist"    // AWR historical repository
	SourceSQLArea   = "v$sql"       // live cursor cache, window-filtered
	SourceSQLCache  = "v$sql_cache" // live cursor cache, unfiltered fallback
	SourceNone      = "none"
)

// PerformanceRecord is one observed statement in one collection run.
// Immutable once written; only retention pruning removes rows.
type PerformanceRecord struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID  int64   `gorm:"index:idx_perf_conn_date;not null" json:"connection_id"`
	SQLID         string  `gorm:"size:13;index" json:"sql_id"`
	PlanHashValue int64   `json:"plan_hash_value"`
	Schema        string  `json:"schema"`
	Module        string  `json:"module"`
	SQLText       string  `gorm:"type:text" json:"sql_text"`
	Executions    int64   `json:"executions"`
	ElapsedMs     float64 `json:"elapsed_ms"`
	CPUMs         float64 `json:"cpu_ms"`
	BufferGets    int64   `json:"buffer_gets"`
	DiskReads     int64   `json:"disk_reads"`
	RowsProcessed int64   `json:"rows_processed"`
	AppWaitMs     float64 `json:"app_wait_ms"`
	ConcWaitMs    float64 `json:"conc_wait_ms"`
	UserIOWaitMs  float64 `json:"user_io_wait_ms"`
	Grade         Grade   `gorm:"size:1" json:"grade"`
	SourceTier    string  `gorm:"size:16" json:"source_tier"`

	CollectedAt    time.Time `json:"collected_at"`
	CollectionHour int       `json:"collection_hour"`
	CollectionDate string    `gorm:"size:10;index:idx_perf_conn_date" json:"collection_date"`
}

func (PerformanceRecord) TableName() string {
	return "performance_records"
}

// ElapsedMsPerExec is the zero-guarded per-execution elapsed time.
func (r *PerformanceRecord) ElapsedMsPerExec() float64 {
	return PerExec(r.ElapsedMs, r.Executions)
}

// BufferGetsPerExec is the zero-guarded per-execution buffer-get count.
func (r *PerformanceRecord) BufferGetsPerExec() float64 {
	return PerExec(float64(r.BufferGets), r.Executions)
}

// Stamp derives the collection timestamp fields from one instant.
// CollectionDate and CollectionHour are always derived from CollectedAt in
// local time, never set independently.
func (r *PerformanceRecord) Stamp(now time.Time) {
	r.CollectedAt = now
	r.CollectionHour = now.Hour()
	r.CollectionDate = now.Format("2006-01-02")
}

// Regrade recomputes the grade from the record's own raw counters.
func (r *PerformanceRecord) Regrade() {
	r.Grade = GradeOf(r.ElapsedMsPerExec(), r.BufferGetsPerExec())
}
