// Package oracle talks to the monitored Oracle instances through
// database/sql. Handles are pooled per registered connection; every query
// shape carries its own timeout, and a timed-out query is reported to the
// caller as an ordinary error so the tier cascade can move on.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	errwrap "github.com/pkg/errors"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
)

const (
	probeTimeout   = 5 * time.Second
	historyTimeout = 10 * time.Second
	// Collection scans the whole cursor cache and may run long on large
	// shared pools.
	collectTimeout = 60 * time.Second
)

// StatementStats is one raw statement row from any tier. Time counters are
// microseconds, Oracle's native unit; callers convert when mapping to
// records.
type StatementStats struct {
	SQLID            string
	PlanHashValue    int64
	Schema           string
	Module           string
	SQLText          string
	Executions       int64
	ElapsedMicros    float64
	CPUMicros        float64
	BufferGets       int64
	DiskReads        int64
	RowsProcessed    int64
	AppWaitMicros    float64
	ConcWaitMicros   float64
	UserIOWaitMicros float64
}

// CacheStats describes what the live cursor cache currently holds.
type CacheStats struct {
	CachedStatements int64      `json:"cached_statements"`
	OldestActive     *time.Time `json:"oldest_active"`
	NewestActive     *time.Time `json:"newest_active"`
}

// CollectOptions filter the collection scrape.
type CollectOptions struct {
	MinExecutions    int64
	MinElapsedMicros float64
	ExcludedSchemas  []string
	RowLimit         int
}

type Client interface {
	Ping(ctx context.Context, conn *entity.OracleConnection) error
	EditionBanner(ctx context.Context, conn *entity.OracleConnection) (string, error)
	ProbeASH(ctx context.Context, conn *entity.OracleConnection) bool
	CollectCursorCache(ctx context.Context, conn *entity.OracleConnection, opts CollectOptions) ([]StatementStats, error)
	QueryAWR(ctx context.Context, conn *entity.OracleConnection, begin, end string, sortKey entity.SortKey, limit int) ([]StatementStats, error)
	QueryCursorCacheWindow(ctx context.Context, conn *entity.OracleConnection, begin, end string, sortKey entity.SortKey, limit int) ([]StatementStats, error)
	QueryCursorCacheAll(ctx context.Context, conn *entity.OracleConnection, sortKey entity.SortKey, limit int) ([]StatementStats, error)
	FindBySQLID(ctx context.Context, conn *entity.OracleConnection, sqlID string) (*StatementStats, error)
	CacheStats(ctx context.Context, conn *entity.OracleConnection) (*CacheStats, error)
	Close() error
}

type clientImpl struct {
	mu      sync.Mutex
	handles map[int64]*sql.DB
	opener  func(conn *entity.OracleConnection) (*sql.DB, error)
}

func NewClient() Client {
	return &clientImpl{
		handles: make(map[int64]*sql.DB),
		opener:  openHandle,
	}
}

func openHandle(conn *entity.OracleConnection) (*sql.DB, error) {
	dsn := go_ora.BuildUrl(conn.Host, conn.Port, conn.ServiceName, conn.Username, conn.Password, nil)
	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(3)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func (c *clientImpl) getHandle(conn *entity.OracleConnection) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.handles[conn.ID]; ok {
		return db, nil
	}
	db, err := c.opener(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, "Client.getHandle")
	}
	c.handles[conn.ID] = db
	return db, nil
}

func (c *clientImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for id, db := range c.handles {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.handles, id)
	}
	return errwrap.Wrap(first, "Client.Close")
}

// Ping opens a throwaway handle so an unsaved connection (no ID yet) can be
// validated without polluting the pool.
func (c *clientImpl) Ping(ctx context.Context, conn *entity.OracleConnection) error {
	funcName := "Client.Ping"

	db, err := c.opener(conn)
	if err != nil {
		return errwrap.Wrap(err, funcName)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return errwrap.Wrap(db.PingContext(ctx), funcName)
}

func (c *clientImpl) EditionBanner(ctx context.Context, conn *entity.OracleConnection) (string, error) {
	funcName := "Client.EditionBanner"

	db, err := c.opener(conn)
	if err != nil {
		return "", errwrap.Wrap(err, funcName)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var banner string
	if err := db.QueryRowContext(ctx, editionBannerSQL).Scan(&banner); err != nil {
		return "", errwrap.Wrap(err, funcName)
	}
	return banner, nil
}

// ProbeASH reports whether the session-sampling view is queryable. Any
// failure, missing object, privilege denial or timeout, means unavailable.
func (c *clientImpl) ProbeASH(ctx context.Context, conn *entity.OracleConnection) bool {
	db, err := c.getHandle(conn)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var one int
	err = db.QueryRowContext(ctx, probeASHSQL).Scan(&one)
	if err == sql.ErrNoRows {
		// The view exists and is readable; it just has no samples yet.
		return true
	}
	return err == nil
}

// buildCollectSQL assembles the cursor-cache scrape. The excluded-schema list
// is user-configurable, so its NOT IN placeholders are generated per call.
func buildCollectSQL(excludedCount int) string {
	var b strings.Builder
	b.WriteString(`SELECT ` + statColumns + `
 FROM v$sql
 WHERE executions >= :1
   AND elapsed_time / DECODE(executions, 0, 1, executions) >= :2`)
	if excludedCount > 0 {
		placeholders := make([]string, excludedCount)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf(":%d", i+3)
		}
		b.WriteString("\n   AND parsing_schema_name NOT IN (" + strings.Join(placeholders, ", ") + ")")
	}
	b.WriteString(fmt.Sprintf("\n ORDER BY elapsed_time DESC\n FETCH FIRST :%d ROWS ONLY", excludedCount+3))
	return b.String()
}

func (c *clientImpl) CollectCursorCache(ctx context.Context, conn *entity.OracleConnection, opts CollectOptions) ([]StatementStats, error) {
	funcName := "Client.CollectCursorCache"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	args := make([]interface{}, 0, len(opts.ExcludedSchemas)+3)
	args = append(args, opts.MinExecutions, opts.MinElapsedMicros)
	for _, schema := range opts.ExcludedSchemas {
		args = append(args, schema)
	}
	args = append(args, opts.RowLimit)

	rows, err := db.QueryContext(ctx, buildCollectSQL(len(opts.ExcludedSchemas)), args...)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	return stats, errwrap.Wrap(err, funcName)
}

func (c *clientImpl) QueryAWR(ctx context.Context, conn *entity.OracleConnection, begin, end string, sortKey entity.SortKey, limit int) ([]StatementStats, error) {
	funcName := "Client.QueryAWR"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	if limit <= 0 || limit > AWRQueryLimit {
		limit = AWRQueryLimit
	}
	query := fmt.Sprintf(awrWindowSQL, awrSortExpr(sortKey))
	rows, err := db.QueryContext(ctx, query, begin, end, limit)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	return stats, errwrap.Wrap(err, funcName)
}

func (c *clientImpl) QueryCursorCacheWindow(ctx context.Context, conn *entity.OracleConnection, begin, end string, sortKey entity.SortKey, limit int) ([]StatementStats, error) {
	funcName := "Client.QueryCursorCacheWindow"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	query := fmt.Sprintf(cacheWindowSQL, cacheSortExpr(sortKey))
	rows, err := db.QueryContext(ctx, query, begin, end, limit)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	return stats, errwrap.Wrap(err, funcName)
}

func (c *clientImpl) QueryCursorCacheAll(ctx context.Context, conn *entity.OracleConnection, sortKey entity.SortKey, limit int) ([]StatementStats, error) {
	funcName := "Client.QueryCursorCacheAll"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	query := fmt.Sprintf(cacheAllSQL, cacheSortExpr(sortKey))
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	return stats, errwrap.Wrap(err, funcName)
}

// FindBySQLID returns nil when the cursor cache no longer holds the
// statement.
func (c *clientImpl) FindBySQLID(ctx context.Context, conn *entity.OracleConnection, sqlID string) (*StatementStats, error) {
	funcName := "Client.FindBySQLID"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, sqlIDLookupSQL, sqlID)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	if len(stats) == 0 {
		return nil, nil
	}
	return &stats[0], nil
}

func (c *clientImpl) CacheStats(ctx context.Context, conn *entity.OracleConnection) (*CacheStats, error) {
	funcName := "Client.CacheStats"

	db, err := c.getHandle(conn)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	var stats CacheStats
	var oldest, newest sql.NullTime
	err = db.QueryRowContext(ctx, cacheStatsSQL).Scan(&stats.CachedStatements, &oldest, &newest)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	if oldest.Valid {
		stats.OldestActive = &oldest.Time
	}
	if newest.Valid {
		stats.NewestActive = &newest.Time
	}
	return &stats, nil
}

// scanStats reads statement rows from any of the tier projections; they all
// share the same column order. NULLs (background sessions have no module,
// AWR text can be absent) scan to zero values.
func scanStats(rows *sql.Rows) ([]StatementStats, error) {
	var out []StatementStats
	for rows.Next() {
		var s StatementStats
		var schema, module, text sql.NullString
		var planHash sql.NullInt64
		err := rows.Scan(
			&s.SQLID, &planHash, &schema, &module, &text,
			&s.Executions, &s.ElapsedMicros, &s.CPUMicros,
			&s.BufferGets, &s.DiskReads, &s.RowsProcessed,
			&s.AppWaitMicros, &s.ConcWaitMicros, &s.UserIOWaitMicros,
		)
		if err != nil {
			return nil, err
		}
		s.PlanHashValue = planHash.Int64
		s.Schema = schema.String
		s.Module = module.String
		s.SQLText = text.String
		out = append(out, s)
	}
	return out, rows.Err()
}
