package usecase

import (
	"time"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/helper"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
)

// statToRecord normalizes one raw tier row into a graded record. Oracle time
// counters are microseconds; records store milliseconds. The same conversion
// and grading feed both the collection path and ad-hoc history reads.
func statToRecord(s oracle.StatementStats, connectionID int64, source string, now time.Time) *entity.PerformanceRecord {
	r := &entity.PerformanceRecord{
		ConnectionID:  connectionID,
		SQLID:         s.SQLID,
		PlanHashValue: s.PlanHashValue,
		Schema:        s.Schema,
		Module:        s.Module,
		SQLText:       helper.TruncateText(s.SQLText, entity.SQLTextLimit),
		Executions:    s.Executions,
		ElapsedMs:     s.ElapsedMicros / 1000,
		CPUMs:         s.CPUMicros / 1000,
		BufferGets:    s.BufferGets,
		DiskReads:     s.DiskReads,
		RowsProcessed: s.RowsProcessed,
		AppWaitMs:     s.AppWaitMicros / 1000,
		ConcWaitMs:    s.ConcWaitMicros / 1000,
		UserIOWaitMs:  s.UserIOWaitMicros / 1000,
		SourceTier:    source,
	}
	r.Stamp(now)
	r.Regrade()
	return r
}
