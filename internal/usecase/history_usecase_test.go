package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
)

func enterpriseConn() *entity.OracleConnection {
	return &entity.OracleConnection{
		ID:            1,
		Name:          "prod",
		EditionBanner: "Oracle Database 19c Enterprise Edition Release 19.0.0.0.0",
	}
}

func newHistory(conn *entity.OracleConnection, repo *fakeRecordRepo, client *fakeClient, now time.Time) *HistoryUsecase {
	u := NewHistoryUsecase(&fakeResolver{conn: conn}, repo, client, zap.NewNop())
	u.now = func() time.Time { return now }
	return u
}

func someStats(n int) []oracle.StatementStats {
	out := make([]oracle.StatementStats, n)
	for i := range out {
		out[i] = oracle.StatementStats{
			SQLID:         "abc123def4567",
			Executions:    10,
			ElapsedMicros: 2_000_000,
			BufferGets:    5_000,
		}
	}
	return out
}

func TestQueryStorageHitSkipsLiveTiers(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	repo := &fakeRecordRepo{}
	for i := 0; i < 12; i++ {
		repo.stored = append(repo.stored, &entity.PerformanceRecord{
			ConnectionID:   1,
			CollectionDate: "2025-01-10",
		})
	}
	client := &fakeClient{}
	u := newHistory(enterpriseConn(), repo, client, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-10"})
	require.NoError(t, err)

	assert.Len(t, res.Records, 12)
	assert.Equal(t, entity.SourceDatabase, res.Source)
	assert.Zero(t, client.awrCalls, "storage hit must not reach AWR")
	assert.Zero(t, client.cacheWindowCalls, "storage hit must not reach the cursor cache")
	assert.Zero(t, client.cacheAllCalls)
}

func TestQueryFallsBackToAWR(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	client := &fakeClient{awrStats: someStats(3)}
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, client, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-05"})
	require.NoError(t, err)

	assert.Equal(t, entity.SourceAWR, res.Source)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 1, client.awrCalls)
	// AWR windows are exact, never widened.
	assert.Equal(t, "2025-01-05 00:00:00", client.lastBegin)
	assert.Equal(t, "2025-01-06 00:00:00", client.lastEnd)
	assert.Equal(t, entity.GradeB, res.Records[0].Grade, "200ms/exec, 500 gets/exec")
}

func TestQueryLimitedEditionSkipsAWR(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	conn := enterpriseConn()
	conn.EditionBanner = "Oracle Database 21c Express Edition Release 21.0.0.0.0"
	client := &fakeClient{awrStats: someStats(3), cacheAllStats: someStats(2)}
	u := newHistory(conn, &fakeRecordRepo{}, client, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-05"})
	require.NoError(t, err)

	assert.Zero(t, client.awrCalls, "non-enterprise editions must not be probed for AWR")
	assert.Equal(t, entity.SourceSQLCache, res.Source)
}

func TestQueryOldDateFallsBackToUnfilteredCache(t *testing.T) {
	// 3 days back, AWR empty: the cache cannot hold the window, so the
	// selector returns current cache contents with a warning, not an
	// empty set.
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	client := &fakeClient{cacheAllStats: someStats(5)}
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, client, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-09"})
	require.NoError(t, err)

	assert.Equal(t, entity.SourceSQLCache, res.Source)
	assert.NotEmpty(t, res.Warning)
	assert.Len(t, res.Records, 5)
	assert.Zero(t, client.cacheWindowCalls, "window filter cannot apply to an aged-out date")
	assert.Equal(t, 1, client.cacheAllCalls)
}

func TestQueryRecentDateUsesWidenedCacheWindow(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	client := &fakeClient{cacheWindowStats: someStats(1)}
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, client, now)

	res, err := u.Query(context.Background(), QueryRequest{
		ConnectionID: 1,
		Date:         "2025-01-12",
		StartTime:    "09:00",
		EndTime:      "10:00",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.SourceSQLArea, res.Source)
	// Cursor-cache bounds widen one minute each way.
	assert.Equal(t, "2025-01-12 08:59:00", client.lastBegin)
	assert.Equal(t, "2025-01-12 10:01:00", client.lastEnd)
}

func TestQueryAWRFailureCascades(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	client := &fakeClient{
		awrErr:           assert.AnError,
		cacheWindowStats: someStats(2),
	}
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, client, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-12"})
	require.NoError(t, err, "a failing tier is absorbed, not surfaced")
	assert.Equal(t, entity.SourceSQLArea, res.Source)
}

func TestQueryAllTiersEmpty(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, &fakeClient{}, now)

	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, Date: "2025-01-12"})
	require.NoError(t, err)

	assert.Equal(t, entity.SourceNone, res.Source)
	assert.Empty(t, res.Records)
}

func TestQuerySQLIDValidation(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	client := &fakeClient{}
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, client, now)

	_, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, SQLID: "DROP TABLE x"})
	assert.ErrorIs(t, err, ErrInvalidSQLID)

	_, err = u.Query(context.Background(), QueryRequest{ConnectionID: 1, SQLID: "abc123def4567"})
	assert.ErrorIs(t, err, ErrStatementNotFound)

	stat := someStats(1)[0]
	client.sqlIDStat = &stat
	res, err := u.Query(context.Background(), QueryRequest{ConnectionID: 1, SQLID: "abc123def4567"})
	require.NoError(t, err)
	assert.Equal(t, entity.SourceSQLArea, res.Source)
	assert.Len(t, res.Records, 1)
}

func TestQueryUnknownConnection(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, &fakeClient{}, now)

	_, err := u.Query(context.Background(), QueryRequest{ConnectionID: 99, Date: "2025-01-12"})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestTierStatus(t *testing.T) {
	now := time.Date(2025, 1, 12, 10, 0, 0, 0, time.Local)
	u := newHistory(enterpriseConn(), &fakeRecordRepo{}, &fakeClient{ashOK: true}, now)

	status, err := u.TierStatus(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, status.ASH)
	assert.True(t, status.AWR)
	assert.True(t, status.CursorCache)
}
