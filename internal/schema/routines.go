package schema

import (
	"context"

	"gorm.io/gorm"
)

const (
	RoutineDatabaseSize = "GetDatabaseSize"
	RoutineStats        = "GetSpeedtestStats"
	RoutineArchive      = "ArchiveOldEntries"
)

// Routine is one stored procedure or function owned by the bootstrap.
type Routine struct {
	Name string
	// Type is the catalog routine type, PROCEDURE or FUNCTION.
	Type string
	DDL  string
	// Call invokes the routine; result sets are read positionally.
	Call string
}

// RoutineCatalog looks up and creates stored routines. Engines without a
// "create if not exists" guard for routines need the lookup first.
type RoutineCatalog interface {
	RoutineExists(ctx context.Context, r Routine) (bool, error)
	CreateRoutine(ctx context.Context, r Routine) error
}

// FindRoutine returns the routine of the dialect with the given name.
func FindRoutine(d Dialect, name string) (Routine, bool) {
	for _, r := range d.Routines() {
		if r.Name == name {
			return r, true
		}
	}
	return Routine{}, false
}

const mysqlSizeQuery = `SELECT table_schema AS "Database",
	SUM(data_length + index_length) / 1024 / 1024 AS "Size in MB"
FROM information_schema.TABLES
WHERE table_schema = DATABASE()
GROUP BY table_schema`

const postgresSizeQuery = `SELECT schemaname::text AS "Database",
	SUM(pg_total_relation_size(format('%I.%I', schemaname, tablename)::regclass)) / 1024.0 / 1024.0 AS "Size in MB"
FROM pg_tables
WHERE schemaname = current_schema()
GROUP BY schemaname`

const sqliteSizeQuery = `SELECT 'main' AS "Database",
	page_count * page_size / 1024.0 / 1024.0 AS "Size in MB"
FROM pragma_page_count(), pragma_page_size()`

var mysqlRoutines = []Routine{
	{
		Name: RoutineDatabaseSize,
		Type: "PROCEDURE",
		DDL: `CREATE PROCEDURE GetDatabaseSize()
BEGIN
	` + mysqlSizeQuery + `;
END`,
		Call: "CALL GetDatabaseSize()",
	},
	{
		Name: RoutineStats,
		Type: "PROCEDURE",
		DDL: `CREATE PROCEDURE GetSpeedtestStats()
BEGIN
	SELECT
		MIN(timestamp) AS start_date,
		MAX(timestamp) AS end_date,
		AVG(download / 1024 / 1024) AS avg_download_mbps,
		AVG(upload / 1024 / 1024) AS avg_upload_mbps
	FROM speedtest_results;
END`,
		Call: "CALL GetSpeedtestStats()",
	},
	{
		Name: RoutineArchive,
		Type: "PROCEDURE",
		DDL: `CREATE PROCEDURE ArchiveOldEntries()
BEGIN
	DECLARE cutoff DATETIME DEFAULT UTC_TIMESTAMP() - INTERVAL 48 HOUR;
	DECLARE EXIT HANDLER FOR SQLEXCEPTION
	BEGIN
		ROLLBACK;
		RESIGNAL;
	END;
	START TRANSACTION;
	INSERT INTO speedtest_results_archive SELECT * FROM speedtest_results WHERE timestamp < cutoff;
	DELETE FROM speedtest_results WHERE timestamp < cutoff;
	COMMIT;
END`,
		Call: "CALL ArchiveOldEntries()",
	},
}

var postgresRoutines = []Routine{
	{
		Name: RoutineDatabaseSize,
		Type: "FUNCTION",
		DDL: `CREATE FUNCTION "GetDatabaseSize"()
RETURNS TABLE ("Database" text, "Size in MB" numeric)
LANGUAGE sql STABLE AS $$
` + postgresSizeQuery + `
$$`,
		Call: `SELECT * FROM "GetDatabaseSize"()`,
	},
	{
		Name: RoutineStats,
		Type: "FUNCTION",
		DDL: `CREATE FUNCTION "GetSpeedtestStats"()
RETURNS TABLE (start_date timestamptz, end_date timestamptz, avg_download_mbps double precision, avg_upload_mbps double precision)
LANGUAGE sql STABLE AS $$
	SELECT MIN("timestamp"), MAX("timestamp"), AVG(download / 1024 / 1024), AVG(upload / 1024 / 1024)
	FROM speedtest_results
$$`,
		Call: `SELECT * FROM "GetSpeedtestStats"()`,
	},
	{
		// a procedure body runs inside the transaction of its CALL
		Name: RoutineArchive,
		Type: "PROCEDURE",
		DDL: `CREATE PROCEDURE "ArchiveOldEntries"()
LANGUAGE plpgsql AS $$
DECLARE
	cutoff timestamptz := now() - interval '48 hours';
BEGIN
	INSERT INTO speedtest_results_archive SELECT * FROM speedtest_results WHERE "timestamp" < cutoff;
	DELETE FROM speedtest_results WHERE "timestamp" < cutoff;
END
$$`,
		Call: `CALL "ArchiveOldEntries"()`,
	},
}

type mysqlCatalog struct {
	db *gorm.DB
}

func (c *mysqlCatalog) RoutineExists(ctx context.Context, r Routine) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_NAME = ? AND ROUTINE_TYPE = ?`, r.Name, r.Type).
		Scan(&count).Error
	return count > 0, err
}

func (c *mysqlCatalog) CreateRoutine(ctx context.Context, r Routine) error {
	return c.db.WithContext(ctx).Exec(r.DDL).Error
}

type postgresCatalog struct {
	db *gorm.DB
}

func (c *postgresCatalog) RoutineExists(ctx context.Context, r Routine) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = current_schema() AND p.proname = ?`, r.Name).
		Scan(&count).Error
	return count > 0, err
}

func (c *postgresCatalog) CreateRoutine(ctx context.Context, r Routine) error {
	return c.db.WithContext(ctx).Exec(r.DDL).Error
}
