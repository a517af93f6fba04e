package usecase

import (
	"context"
	"regexp"
	"time"

	errwrap "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/sqlite"
)

var (
	ErrConnectionNotFound = errwrap.New("connection not found")
	ErrStatementNotFound  = errwrap.New("statement not found in cursor cache")
	ErrInvalidSQLID       = errwrap.New("invalid sql_id format")
)

// sqlIDPattern matches Oracle sql_ids: 13 lowercase base-32 characters.
// Checked before any tier is touched.
var sqlIDPattern = regexp.MustCompile(`^[0-9a-z]{13}$`)

// ConnectionResolver supplies a usable connection (password decrypted) for a
// connection id.
type ConnectionResolver interface {
	ResolveByID(ctx context.Context, id int64) (*entity.OracleConnection, error)
}

const defaultQueryLimit = 100

// QueryRequest is a historical read: one connection, one date, an optional
// intra-day time range, a sort metric and a row cap. SQLID set bypasses the
// cascade and reads the cursor cache directly.
type QueryRequest struct {
	ConnectionID int64
	Date         string // YYYY-MM-DD
	StartTime    string // HH:MM, optional
	EndTime      string // HH:MM, optional
	SortKey      entity.SortKey
	Limit        int
	SQLID        string
}

// QueryResult carries the ordered records plus the tier that satisfied the
// request. Warning is set when the time filter could not be honored.
type QueryResult struct {
	Records []*entity.PerformanceRecord `json:"records"`
	Source  string                      `json:"source"`
	Warning string                      `json:"warning,omitempty"`
}

// TierStatus reports which telemetry tiers the connection can serve.
type TierStatus struct {
	ASH         bool `json:"ash"`
	AWR         bool `json:"awr"`
	CursorCache bool `json:"cursor_cache"`
}

type HistoryUsecase struct {
	connections ConnectionResolver
	recordRepo  sqlite.RecordRepository
	client      oracle.Client
	logger      *zap.Logger
	now         func() time.Time
}

func NewHistoryUsecase(connections ConnectionResolver, recordRepo sqlite.RecordRepository, client oracle.Client, logger *zap.Logger) *HistoryUsecase {
	return &HistoryUsecase{
		connections: connections,
		recordRepo:  recordRepo,
		client:      client,
		logger:      logger,
		now:         time.Now,
	}
}

// tierAttempt is one step of the fallback cascade. ok=false or zero rows
// moves the selector to the next tier; rows plus ok=true stops it.
type tierAttempt struct {
	source  string
	warning string
	run     func(ctx context.Context) ([]*entity.PerformanceRecord, error)
}

// Query answers a historical read by walking the tier cascade:
// durable storage, then AWR (when the edition carries it), then the live
// cursor cache. Zero rows everywhere is an empty result, not an error.
func (u *HistoryUsecase) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	conn, err := u.connections.ResolveByID(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}

	if req.SQLID != "" {
		return u.lookupSQLID(ctx, conn, req.SQLID)
	}

	if !req.SortKey.Valid() {
		req.SortKey = entity.SortElapsed
	}
	if req.Limit <= 0 {
		req.Limit = defaultQueryLimit
	}

	window, err := ResolveWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	for _, attempt := range u.cascade(conn, req, window) {
		records, err := attempt.run(ctx)
		if err != nil {
			// Tier unavailable for this attempt; fall through.
			u.logger.Warn("tier query failed, cascading",
				zap.String("source", attempt.source),
				zap.Int64("connection_id", conn.ID),
				zap.Error(err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		return &QueryResult{Records: records, Source: attempt.source, Warning: attempt.warning}, nil
	}

	return &QueryResult{Records: []*entity.PerformanceRecord{}, Source: entity.SourceNone}, nil
}

// cascade builds the ordered tier strategies for one request.
func (u *HistoryUsecase) cascade(conn *entity.OracleConnection, req QueryRequest, window Window) []tierAttempt {
	attempts := []tierAttempt{{
		source: entity.SourceDatabase,
		run: func(ctx context.Context) ([]*entity.PerformanceRecord, error) {
			return u.recordRepo.FindByWindow(ctx, u.storageQuery(req))
		},
	}}

	if conn.Capability() == entity.EditionFullFeatured {
		attempts = append(attempts, tierAttempt{
			source: entity.SourceAWR,
			run: func(ctx context.Context) ([]*entity.PerformanceRecord, error) {
				stats, err := u.client.QueryAWR(ctx, conn, window.BeginString(), window.EndString(), req.SortKey, req.Limit)
				if err != nil {
					return nil, err
				}
				return u.mapStats(stats, conn.ID, entity.SourceAWR), nil
			},
		})
	}

	if DayGap(u.now(), req.Date) <= 1 {
		cacheWindow := window
		if req.StartTime != "" || req.EndTime != "" {
			cacheWindow = window.Widened(cacheGuardInterval)
		}
		attempts = append(attempts, tierAttempt{
			source: entity.SourceSQLArea,
			run: func(ctx context.Context) ([]*entity.PerformanceRecord, error) {
				stats, err := u.client.QueryCursorCacheWindow(ctx, conn, cacheWindow.BeginString(), cacheWindow.EndString(), req.SortKey, req.Limit)
				if err != nil {
					return nil, err
				}
				return u.mapStats(stats, conn.ID, entity.SourceSQLArea), nil
			},
		})
	} else {
		// The cursor cache has no retention; a window days in the past
		// cannot match last_active_time. Serve the current cache contents
		// instead and say so.
		attempts = append(attempts, tierAttempt{
			source:  entity.SourceSQLCache,
			warning: "requested date is no longer in the cursor cache; returning current cache contents without a time filter",
			run: func(ctx context.Context) ([]*entity.PerformanceRecord, error) {
				stats, err := u.client.QueryCursorCacheAll(ctx, conn, req.SortKey, req.Limit)
				if err != nil {
					return nil, err
				}
				return u.mapStats(stats, conn.ID, entity.SourceSQLCache), nil
			},
		})
	}

	return attempts
}

func (u *HistoryUsecase) storageQuery(req QueryRequest) sqlite.RecordQuery {
	q := sqlite.RecordQuery{
		ConnectionID: req.ConnectionID,
		Date:         req.Date,
		SortKey:      req.SortKey,
		Limit:        req.Limit,
	}
	if req.StartTime != "" && req.EndTime != "" {
		if start, err := time.Parse("15:04", req.StartTime); err == nil {
			if end, err := time.Parse("15:04", req.EndTime); err == nil {
				startHour, endHour := start.Hour(), end.Hour()
				q.StartHour = &startHour
				q.EndHour = &endHour
			}
		}
	}
	return q
}

func (u *HistoryUsecase) lookupSQLID(ctx context.Context, conn *entity.OracleConnection, sqlID string) (*QueryResult, error) {
	if !sqlIDPattern.MatchString(sqlID) {
		return nil, ErrInvalidSQLID
	}

	stat, err := u.client.FindBySQLID(ctx, conn, sqlID)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, ErrStatementNotFound
	}

	records := u.mapStats([]oracle.StatementStats{*stat}, conn.ID, entity.SourceSQLArea)
	return &QueryResult{Records: records, Source: entity.SourceSQLArea}, nil
}

// mapStats converts raw tier rows to graded records. These are ad-hoc read
// results; they are never persisted here.
func (u *HistoryUsecase) mapStats(stats []oracle.StatementStats, connectionID int64, source string) []*entity.PerformanceRecord {
	now := u.now()
	records := make([]*entity.PerformanceRecord, 0, len(stats))
	for _, s := range stats {
		records = append(records, statToRecord(s, connectionID, source, now))
	}
	return records
}

// TierStatus probes tier availability for one connection. The ASH probe
// result is scoped to this call; AWR availability comes from the edition
// capability without issuing a query.
func (u *HistoryUsecase) TierStatus(ctx context.Context, connectionID int64) (*TierStatus, error) {
	conn, err := u.connections.ResolveByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}

	return &TierStatus{
		ASH:         u.client.ProbeASH(ctx, conn),
		AWR:         conn.Capability() == entity.EditionFullFeatured,
		CursorCache: true,
	}, nil
}

// CacheStats reports what the live cursor cache currently holds, used by the
// dashboard to explain why an old date fell back to unfiltered cache reads.
func (u *HistoryUsecase) CacheStats(ctx context.Context, connectionID int64) (*oracle.CacheStats, error) {
	conn, err := u.connections.ResolveByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	return u.client.CacheStats(ctx, conn)
}
