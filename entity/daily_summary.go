package entity

import "time"

// DailySummary is the running per-day rollup for one connection. The first
// run of a day seeds it; every later run merges in.
type DailySummary struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID int64  `gorm:"uniqueIndex:idx_summary_conn_date;not null" json:"connection_id"`
	SummaryDate  string `gorm:"size:10;uniqueIndex:idx_summary_conn_date;not null" json:"summary_date"`

	TotalStatements int64 `json:"total_statements"`
	TotalExecutions int64 `json:"total_executions"`

	AvgElapsedMs  float64 `json:"avg_elapsed_ms"`
	AvgCPUMs      float64 `json:"avg_cpu_ms"`
	AvgBufferGets float64 `json:"avg_buffer_gets"`
	AvgDiskReads  float64 `json:"avg_disk_reads"`

	MaxElapsedMs  float64 `json:"max_elapsed_ms"`
	MaxCPUMs      float64 `json:"max_cpu_ms"`
	MaxBufferGets int64   `json:"max_buffer_gets"`
	MaxDiskReads  int64   `json:"max_disk_reads"`

	GradeACount int64 `json:"grade_a_count"`
	GradeBCount int64 `json:"grade_b_count"`
	GradeCCount int64 `json:"grade_c_count"`
	GradeDCount int64 `json:"grade_d_count"`
	GradeFCount int64 `json:"grade_f_count"`

	CollectionCount   int64     `json:"collection_count"`
	FirstCollectionAt time.Time `json:"first_collection_at"`
	LastCollectionAt  time.Time `json:"last_collection_at"`
}

func (DailySummary) TableName() string {
	return "daily_summaries"
}

// BatchStats are the aggregate statistics of one persisted batch, computed
// once and folded into the day's summary.
type BatchStats struct {
	Statements int64
	Executions int64

	AvgElapsedMs  float64
	AvgCPUMs      float64
	AvgBufferGets float64
	AvgDiskReads  float64

	MaxElapsedMs  float64
	MaxCPUMs      float64
	MaxBufferGets int64
	MaxDiskReads  int64

	GradeCounts map[Grade]int64
}

// NewBatchStats aggregates one batch of records. Statements counts distinct
// sql_ids; averages are plain means across the batch rows.
func NewBatchStats(records []*PerformanceRecord) BatchStats {
	stats := BatchStats{GradeCounts: make(map[Grade]int64)}
	if len(records) == 0 {
		return stats
	}

	seen := make(map[string]struct{}, len(records))
	var sumElapsed, sumCPU, sumGets, sumReads float64
	for _, r := range records {
		if _, ok := seen[r.SQLID]; !ok {
			seen[r.SQLID] = struct{}{}
		}
		stats.Executions += r.Executions
		sumElapsed += r.ElapsedMs
		sumCPU += r.CPUMs
		sumGets += float64(r.BufferGets)
		sumReads += float64(r.DiskReads)

		if r.ElapsedMs > stats.MaxElapsedMs {
			stats.MaxElapsedMs = r.ElapsedMs
		}
		if r.CPUMs > stats.MaxCPUMs {
			stats.MaxCPUMs = r.CPUMs
		}
		if r.BufferGets > stats.MaxBufferGets {
			stats.MaxBufferGets = r.BufferGets
		}
		if r.DiskReads > stats.MaxDiskReads {
			stats.MaxDiskReads = r.DiskReads
		}
		stats.GradeCounts[r.Grade]++
	}
	stats.Statements = int64(len(seen))

	n := float64(len(records))
	stats.AvgElapsedMs = sumElapsed / n
	stats.AvgCPUMs = sumCPU / n
	stats.AvgBufferGets = sumGets / n
	stats.AvgDiskReads = sumReads / n
	return stats
}

// SeedFrom initializes a fresh summary directly from the first batch of the
// day.
func (s *DailySummary) SeedFrom(stats BatchStats, at time.Time) {
	s.TotalStatements = stats.Statements
	s.TotalExecutions = stats.Executions
	s.AvgElapsedMs = stats.AvgElapsedMs
	s.AvgCPUMs = stats.AvgCPUMs
	s.AvgBufferGets = stats.AvgBufferGets
	s.AvgDiskReads = stats.AvgDiskReads
	s.MaxElapsedMs = stats.MaxElapsedMs
	s.MaxCPUMs = stats.MaxCPUMs
	s.MaxBufferGets = stats.MaxBufferGets
	s.MaxDiskReads = stats.MaxDiskReads
	s.GradeACount = stats.GradeCounts[GradeA]
	s.GradeBCount = stats.GradeCounts[GradeB]
	s.GradeCCount = stats.GradeCounts[GradeC]
	s.GradeDCount = stats.GradeCounts[GradeD]
	s.GradeFCount = stats.GradeCounts[GradeF]
	s.CollectionCount = 1
	s.FirstCollectionAt = at
	s.LastCollectionAt = at
}

// Merge folds a later batch of the same day into the summary. Additive fields
// sum; averages take the unweighted mean of the old average and the batch
// average (a known approximation kept for continuity with historical
// summaries); maxima take the elementwise max.
func (s *DailySummary) Merge(stats BatchStats, at time.Time) {
	s.TotalStatements += stats.Statements
	s.TotalExecutions += stats.Executions

	s.AvgElapsedMs = (s.AvgElapsedMs + stats.AvgElapsedMs) / 2
	s.AvgCPUMs = (s.AvgCPUMs + stats.AvgCPUMs) / 2
	s.AvgBufferGets = (s.AvgBufferGets + stats.AvgBufferGets) / 2
	s.AvgDiskReads = (s.AvgDiskReads + stats.AvgDiskReads) / 2

	if stats.MaxElapsedMs > s.MaxElapsedMs {
		s.MaxElapsedMs = stats.MaxElapsedMs
	}
	if stats.MaxCPUMs > s.MaxCPUMs {
		s.MaxCPUMs = stats.MaxCPUMs
	}
	if stats.MaxBufferGets > s.MaxBufferGets {
		s.MaxBufferGets = stats.MaxBufferGets
	}
	if stats.MaxDiskReads > s.MaxDiskReads {
		s.MaxDiskReads = stats.MaxDiskReads
	}

	s.GradeACount += stats.GradeCounts[GradeA]
	s.GradeBCount += stats.GradeCounts[GradeB]
	s.GradeCCount += stats.GradeCounts[GradeC]
	s.GradeDCount += stats.GradeCounts[GradeD]
	s.GradeFCount += stats.GradeCounts[GradeF]

	s.CollectionCount++
	if at.After(s.LastCollectionAt) {
		s.LastCollectionAt = at
	}
}
