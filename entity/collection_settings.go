package entity

import (
	"strings"
	"time"
)

// DefaultExcludedSchemas are the Oracle-internal schemas skipped during
// collection unless the user overrides the list.
var DefaultExcludedSchemas = []string{"SYS", "SYSTEM", "DBSNMP", "SYSMAN", "OUTLN", "MDSYS", "ORDSYS", "XDB", "CTXSYS", "WMSYS"}

// CollectionSettings holds the per-connection collection policy plus
// best-effort run counters. Counters are read-then-write, not transactional;
// concurrent runs for one connection may race on them.
type CollectionSettings struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID int64 `gorm:"uniqueIndex;not null" json:"connection_id"`

	Enabled         bool    `gorm:"default:true" json:"enabled"`
	IntervalMinutes int     `gorm:"default:60" json:"interval_minutes"`
	RetentionDays   int     `gorm:"default:30" json:"retention_days"`
	MinExecutions   int64   `gorm:"default:2" json:"min_executions"`
	MinElapsedMs    float64 `gorm:"default:100" json:"min_elapsed_ms"`
	ExcludedSchemas string  `gorm:"type:text" json:"excluded_schemas"` // comma-separated
	RowLimit        int     `gorm:"default:500" json:"row_limit"`
	CollectAllHours bool    `gorm:"default:true" json:"collect_all_hours"`
	StartHour       int     `gorm:"default:0" json:"start_hour"`
	EndHour         int     `gorm:"default:23" json:"end_hour"`

	TotalCollections      int64      `json:"total_collections"`
	SuccessfulCollections int64      `json:"successful_collections"`
	FailedCollections     int64      `json:"failed_collections"`
	LastRunAt             *time.Time `json:"last_run_at"`
	LastRunStatus         string     `json:"last_run_status"`
	LastRunCount          int        `json:"last_run_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CollectionSettings) TableName() string {
	return "collection_settings"
}

// DefaultCollectionSettings returns the settings row created the first time a
// connection is configured.
func DefaultCollectionSettings(connectionID int64) *CollectionSettings {
	return &CollectionSettings{
		ConnectionID:    connectionID,
		Enabled:         true,
		IntervalMinutes: 60,
		RetentionDays:   30,
		MinExecutions:   2,
		MinElapsedMs:    100,
		ExcludedSchemas: strings.Join(DefaultExcludedSchemas, ","),
		RowLimit:        500,
		CollectAllHours: true,
		StartHour:       0,
		EndHour:         23,
	}
}

// AllowsHour reports whether a collection run may start at the given hour.
func (s *CollectionSettings) AllowsHour(hour int) bool {
	if s.CollectAllHours {
		return true
	}
	return hour >= s.StartHour && hour <= s.EndHour
}

// ExcludedSchemaList splits the stored comma-separated schema list.
func (s *CollectionSettings) ExcludedSchemaList() []string {
	if s.ExcludedSchemas == "" {
		return nil
	}
	parts := strings.Split(s.ExcludedSchemas, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// RecordRun folds one finished run into the counters.
func (s *CollectionSettings) RecordRun(status CollectionStatus, rows int, at time.Time) {
	s.TotalCollections++
	if status == StatusFailed {
		s.FailedCollections++
	} else {
		s.SuccessfulCollections++
	}
	s.LastRunAt = &at
	s.LastRunStatus = string(status)
	s.LastRunCount = rows
}
