package usecase

import (
	"context"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/sqlite"
)

type fakeResolver struct {
	conn *entity.OracleConnection
}

func (f *fakeResolver) ResolveByID(_ context.Context, id int64) (*entity.OracleConnection, error) {
	if f.conn == nil || f.conn.ID != id {
		return nil, nil
	}
	c := *f.conn
	return &c, nil
}

// fakeClient counts every live query so tests can assert the cascade never
// touched a tier it should have skipped.
type fakeClient struct {
	ashOK bool

	collectStats []oracle.StatementStats
	collectErr   error

	awrStats []oracle.StatementStats
	awrErr   error

	cacheWindowStats []oracle.StatementStats
	cacheWindowErr   error

	cacheAllStats []oracle.StatementStats

	sqlIDStat *oracle.StatementStats

	collectCalls     int
	awrCalls         int
	cacheWindowCalls int
	cacheAllCalls    int

	lastBegin, lastEnd string
}

func (f *fakeClient) Ping(context.Context, *entity.OracleConnection) error { return nil }

func (f *fakeClient) EditionBanner(context.Context, *entity.OracleConnection) (string, error) {
	return "", nil
}

func (f *fakeClient) ProbeASH(context.Context, *entity.OracleConnection) bool { return f.ashOK }

func (f *fakeClient) CollectCursorCache(_ context.Context, _ *entity.OracleConnection, _ oracle.CollectOptions) ([]oracle.StatementStats, error) {
	f.collectCalls++
	return f.collectStats, f.collectErr
}

func (f *fakeClient) QueryAWR(_ context.Context, _ *entity.OracleConnection, begin, end string, _ entity.SortKey, _ int) ([]oracle.StatementStats, error) {
	f.awrCalls++
	f.lastBegin, f.lastEnd = begin, end
	return f.awrStats, f.awrErr
}

func (f *fakeClient) QueryCursorCacheWindow(_ context.Context, _ *entity.OracleConnection, begin, end string, _ entity.SortKey, _ int) ([]oracle.StatementStats, error) {
	f.cacheWindowCalls++
	f.lastBegin, f.lastEnd = begin, end
	return f.cacheWindowStats, f.cacheWindowErr
}

func (f *fakeClient) QueryCursorCacheAll(_ context.Context, _ *entity.OracleConnection, _ entity.SortKey, _ int) ([]oracle.StatementStats, error) {
	f.cacheAllCalls++
	return f.cacheAllStats, nil
}

func (f *fakeClient) FindBySQLID(_ context.Context, _ *entity.OracleConnection, _ string) (*oracle.StatementStats, error) {
	return f.sqlIDStat, nil
}

func (f *fakeClient) CacheStats(context.Context, *entity.OracleConnection) (*oracle.CacheStats, error) {
	return &oracle.CacheStats{}, nil
}

func (f *fakeClient) Close() error { return nil }

type fakeRecordRepo struct {
	stored      []*entity.PerformanceRecord
	findCalls   int
	insertCalls int
}

func (f *fakeRecordRepo) InsertBatch(_ context.Context, records []*entity.PerformanceRecord) (int, []sqlite.RecordError) {
	f.insertCalls++
	f.stored = append(f.stored, records...)
	return len(records), nil
}

func (f *fakeRecordRepo) FindByWindow(_ context.Context, _ sqlite.RecordQuery) ([]*entity.PerformanceRecord, error) {
	f.findCalls++
	return f.stored, nil
}

func (f *fakeRecordRepo) DeleteOlderThan(context.Context, int64, string) (int64, error) {
	return 0, nil
}
