package repository

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/schema"
	"github.com/talkincode/speedlog/pkg/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDatabase = "testhost_speedtest"

func setupDB(t *testing.T) (*gorm.DB, schema.Dialect) {
	t.Helper()
	cfg := &config.AppConfig{
		Database: config.DBConfig{Type: "sqlite"},
		System:   config.SysConfig{Workdir: t.TempDir()},
	}
	d, err := schema.NewDialect(cfg)
	require.NoError(t, err)

	db, err := gorm.Open(d.Dialector(testDatabase), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	_, err = schema.NewBootstrapper(d, testDatabase).Bootstrap(context.Background(), db)
	require.NoError(t, err)
	return db, d
}

func newResult(ts time.Time, download float64) *domain.SpeedtestResult {
	return &domain.SpeedtestResult{
		Download:   download,
		Upload:     download / 5,
		Ping:       12.3,
		ServerName: "Frankfurt",
		ServerID:   "1234",
		Timestamp:  domain.NewTimestamp(ts),
		ClientIP:   "203.0.113.7",
	}
}

func TestCreateAndList(t *testing.T) {
	db, _ := setupDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()

	ts := time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC)
	r := newResult(ts, 50000000)
	require.NoError(t, repo.Create(ctx, r))
	assert.NotZero(t, r.ID)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 50000000.0, rows[0].Download)
	assert.Equal(t, "Frankfurt", rows[0].ServerName)
	assert.True(t, ts.Equal(rows[0].Timestamp.Time))
	assert.Equal(t, "2024-01-20 23:00:00", rows[0].TimestampText())
}

func TestArchiveMovesOnlyAgedRows(t *testing.T) {
	db, _ := setupDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{72 * time.Hour, 49 * time.Hour, 47 * time.Hour, time.Hour} {
		require.NoError(t, repo.Create(ctx, newResult(now.Add(-age), 1e6)))
	}

	moved, err := repo.Archive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	live, err := repo.List(ctx)
	require.NoError(t, err)
	archived, err := repo.ListArchive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 2)
	require.Len(t, archived, 2)

	cutoff := now.Add(-domain.ArchiveRetention)
	seen := map[int64]bool{}
	for _, r := range live {
		assert.False(t, r.Timestamp.Before(cutoff))
		seen[r.ID] = true
	}
	for _, r := range archived {
		assert.True(t, r.Timestamp.Before(cutoff))
		assert.False(t, seen[r.ID], "row %d in both tables", r.ID)
	}
	// archive keeps the original ids
	assert.Equal(t, int64(1), archived[0].ID)
	assert.Equal(t, int64(2), archived[1].ID)

	moved, err = repo.Archive(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, moved)

	liveCount, archivedCount, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), liveCount)
	assert.Equal(t, int64(2), archivedCount)
}

func TestComputeStats(t *testing.T) {
	db, _ := setupDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()

	empty, err := ComputeStats(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.True(t, empty.StartDate.IsZero())

	base := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	for i, mb := range []float64{3, 1, 2} {
		require.NoError(t, repo.Create(ctx, newResult(base.Add(time.Duration(i)*time.Hour), mb*bitsPerMB)))
	}

	s, err := ComputeStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Count)
	assert.True(t, base.Equal(s.StartDate))
	assert.True(t, base.Add(2*time.Hour).Equal(s.EndDate))
	assert.InDelta(t, 2.0, s.AvgDownloadMbps, 1e-9)
	assert.InDelta(t, 0.4, s.AvgUploadMbps, 1e-9)
	assert.InDelta(t, 2.0, s.MedianDownloadMbps, 1e-9)
	assert.InDelta(t, 12.3, s.AvgPingMs, 1e-9)
	assert.GreaterOrEqual(t, s.P95DownloadMbps, s.MedianDownloadMbps)
}

func TestQueryDatabaseSize(t *testing.T) {
	db, d := setupDB(t)

	sizes, err := QueryDatabaseSize(context.Background(), db, d.SizeQuery())
	require.NoError(t, err)
	require.Len(t, sizes, 1)
	assert.Equal(t, "main", sizes[0].Database)
	assert.Greater(t, sizes[0].SizeMB, 0.0)

	_, err = QueryDatabaseSize(context.Background(), db, "SELECT * FROM no_such_table")
	assert.True(t, errs.Is(err, errs.KindDatabase))
}

func TestExportCSV(t *testing.T) {
	db, _ := setupDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()

	ts := time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newResult(ts, 50000000)))

	var buf bytes.Buffer
	n, err := ExportCSV(ctx, repo, ExportResults, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,download,upload,ping,"))
	assert.True(t, strings.HasSuffix(lines[0], ",timestamp"))
	assert.Contains(t, lines[1], "2024-01-20 23:00:00")
	assert.Contains(t, lines[1], "Frankfurt")

	buf.Reset()
	n, err = ExportCSV(ctx, repo, ExportArchive, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.True(t, strings.HasPrefix(buf.String(), "id,"))

	_, err = ExportCSV(ctx, repo, "users", &buf)
	assert.True(t, errs.Is(err, errs.KindConfig))
}

func TestStatusList(t *testing.T) {
	db, _ := setupDB(t)

	rows, err := NewGormStatusRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Enabled)
}

func TestTimestampStoredAsDatetimeText(t *testing.T) {
	db, _ := setupDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newResult(time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC), 50000000)))

	var stored string
	require.NoError(t, db.Raw("SELECT CAST(timestamp AS TEXT) FROM speedtest_results").Scan(&stored).Error)
	assert.Equal(t, "2024-01-20 23:00:00", stored)

	var first, last string
	require.NoError(t, db.Raw("SELECT MIN(timestamp), MAX(timestamp) FROM speedtest_results").
		Row().Scan(&first, &last))
	assert.Equal(t, "2024-01-20 23:00:00", first)
	assert.Equal(t, "2024-01-20 23:00:00", last)
}

func TestCallStatsWithSingleConnection(t *testing.T) {
	db, _ := setupDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewGormResultRepository(db)
	ts := time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(context.Background(), newResult(ts, 2*bitsPerMB)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := CallStats(ctx, db, "SELECT MIN(timestamp), MAX(timestamp), "+
		"AVG(download / 1024 / 1024), AVG(upload / 1024 / 1024) FROM speedtest_results")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Count)
	assert.True(t, ts.Equal(s.StartDate))
	assert.True(t, ts.Equal(s.EndDate))
	assert.InDelta(t, 2.0, s.AvgDownloadMbps, 1e-9)
	assert.InDelta(t, 0.4, s.AvgUploadMbps, 1e-9)

	_, err = CallStats(ctx, db, "SELECT * FROM no_such_routine")
	assert.True(t, errs.Is(err, errs.KindDatabase))
}

func TestCallProcedure(t *testing.T) {
	db, _ := setupDB(t)

	affected, err := CallProcedure(context.Background(), db, "UPDATE status SET enabled = enabled")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = CallProcedure(context.Background(), db, "CALL ArchiveOldEntries()")
	assert.True(t, errs.Is(err, errs.KindDatabase))
}
