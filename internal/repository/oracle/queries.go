package oracle

import "github.com/rahmatrdn/go-ora-telemetry/entity"

// AWRQueryLimit caps the AWR aggregate query; AWR windows can cover hundreds
// of snapshots and the dashboard never pages past the top statements.
const AWRQueryLimit = 100

const (
	probeASHSQL = `SELECT 1 FROM v$active_session_history WHERE ROWNUM = 1`

	editionBannerSQL = `SELECT banner FROM v$version WHERE ROWNUM = 1`

	// statColumns is the shared projection for cursor-cache reads.
	// sql_fulltext preserves newlines where sql_text does not; the substr
	// bounds the CLOB read.
	statColumns = `sql_id, plan_hash_value, parsing_schema_name, module,
 dbms_lob.substr(sql_fulltext, 4000, 1) AS sql_text,
 executions, elapsed_time, cpu_time, buffer_gets, disk_reads, rows_processed,
 application_wait_time, concurrency_wait_time, user_io_wait_time`

	cacheWindowSQL = `SELECT ` + statColumns + `
 FROM v$sql
 WHERE last_active_time BETWEEN TO_DATE(:1, 'YYYY-MM-DD HH24:MI:SS') AND TO_DATE(:2, 'YYYY-MM-DD HH24:MI:SS')
 ORDER BY %s DESC
 FETCH FIRST :3 ROWS ONLY`

	cacheAllSQL = `SELECT ` + statColumns + `
 FROM v$sql
 ORDER BY %s DESC
 FETCH FIRST :1 ROWS ONLY`

	sqlIDLookupSQL = `SELECT ` + statColumns + `
 FROM v$sql
 WHERE sql_id = :1
 FETCH FIRST 1 ROWS ONLY`

	cacheStatsSQL = `SELECT COUNT(*), MIN(last_active_time), MAX(last_active_time) FROM v$sql`

	// awrWindowSQL groups per-snapshot delta counters by statement across
	// every snapshot intersecting the window.
	awrWindowSQL = `SELECT s.sql_id, s.plan_hash_value, s.parsing_schema_name, s.module,
 MAX(dbms_lob.substr(t.sql_text, 4000, 1)) AS sql_text,
 SUM(s.executions_delta) AS executions,
 SUM(s.elapsed_time_delta) AS elapsed_time,
 SUM(s.cpu_time_delta) AS cpu_time,
 SUM(s.buffer_gets_delta) AS buffer_gets,
 SUM(s.disk_reads_delta) AS disk_reads,
 SUM(s.rows_processed_delta) AS rows_processed,
 SUM(s.apwait_delta) AS application_wait_time,
 SUM(s.ccwait_delta) AS concurrency_wait_time,
 SUM(s.iowait_delta) AS user_io_wait_time
 FROM dba_hist_sqlstat s
 JOIN dba_hist_snapshot sn
   ON sn.snap_id = s.snap_id AND sn.dbid = s.dbid AND sn.instance_number = s.instance_number
 LEFT JOIN dba_hist_sqltext t
   ON t.sql_id = s.sql_id AND t.dbid = s.dbid
 WHERE sn.end_interval_time >= TO_DATE(:1, 'YYYY-MM-DD HH24:MI:SS')
   AND sn.begin_interval_time <= TO_DATE(:2, 'YYYY-MM-DD HH24:MI:SS')
 GROUP BY s.sql_id, s.plan_hash_value, s.parsing_schema_name, s.module
 ORDER BY %s DESC
 FETCH FIRST :3 ROWS ONLY`
)

// cacheSortExprs and awrSortExprs whitelist the ORDER BY expression per sort
// key. Sort keys come from the API layer and are never spliced in raw.
var cacheSortExprs = map[entity.SortKey]string{
	entity.SortElapsed:    "elapsed_time",
	entity.SortCPU:        "cpu_time",
	entity.SortBufferGets: "buffer_gets",
	entity.SortDiskReads:  "disk_reads",
	entity.SortExecutions: "executions",
}

var awrSortExprs = map[entity.SortKey]string{
	entity.SortElapsed:    "SUM(s.elapsed_time_delta)",
	entity.SortCPU:        "SUM(s.cpu_time_delta)",
	entity.SortBufferGets: "SUM(s.buffer_gets_delta)",
	entity.SortDiskReads:  "SUM(s.disk_reads_delta)",
	entity.SortExecutions: "SUM(s.executions_delta)",
}

func cacheSortExpr(key entity.SortKey) string {
	if expr, ok := cacheSortExprs[key]; ok {
		return expr
	}
	return cacheSortExprs[entity.SortElapsed]
}

func awrSortExpr(key entity.SortKey) string {
	if expr, ok := awrSortExprs[key]; ok {
		return expr
	}
	return awrSortExprs[entity.SortElapsed]
}
