package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/araddon/dateparse"
	"github.com/montanaflynn/stats"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bitsPerMB = 1024 * 1024

// Stats summarises the live results table. Throughput figures use the same
// download / 1024 / 1024 conversion as the GetSpeedtestStats routine.
type Stats struct {
	Count              int64     `json:"count" yaml:"count"`
	StartDate          time.Time `json:"start_date" yaml:"start_date"`
	EndDate            time.Time `json:"end_date" yaml:"end_date"`
	AvgDownloadMbps    float64   `json:"avg_download_mbps" yaml:"avg_download_mbps"`
	AvgUploadMbps      float64   `json:"avg_upload_mbps" yaml:"avg_upload_mbps"`
	MedianDownloadMbps float64   `json:"median_download_mbps,omitempty" yaml:"median_download_mbps,omitempty"`
	MedianUploadMbps   float64   `json:"median_upload_mbps,omitempty" yaml:"median_upload_mbps,omitempty"`
	P95DownloadMbps    float64   `json:"p95_download_mbps,omitempty" yaml:"p95_download_mbps,omitempty"`
	P95UploadMbps      float64   `json:"p95_upload_mbps,omitempty" yaml:"p95_upload_mbps,omitempty"`
	AvgPingMs          float64   `json:"avg_ping_ms,omitempty" yaml:"avg_ping_ms,omitempty"`
}

// DatabaseSize is one row of the GetDatabaseSize report.
type DatabaseSize struct {
	Database string  `json:"database" yaml:"database"`
	SizeMB   float64 `json:"size_mb" yaml:"size_mb"`
}

type sample struct {
	Download  float64
	Upload    float64
	Ping      float64
	Timestamp domain.Timestamp
}

// ComputeStats reads the live table and aggregates it in Go.
func ComputeStats(ctx context.Context, db *gorm.DB) (*Stats, error) {
	var samples []sample
	err := db.WithContext(ctx).Model(&domain.SpeedtestResult{}).
		Select("download", "upload", "ping", "timestamp").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&samples).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "read stats", err)
	}

	result := &Stats{Count: int64(len(samples))}
	if len(samples) == 0 {
		return result, nil
	}
	result.StartDate = samples[0].Timestamp.Time
	result.EndDate = samples[len(samples)-1].Timestamp.Time

	down := make(stats.Float64Data, len(samples))
	up := make(stats.Float64Data, len(samples))
	ping := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		down[i] = s.Download / bitsPerMB
		up[i] = s.Upload / bitsPerMB
		ping[i] = s.Ping
	}
	// the stats functions only fail on empty input
	result.AvgDownloadMbps, _ = down.Mean()
	result.AvgUploadMbps, _ = up.Mean()
	result.AvgPingMs, _ = ping.Mean()
	result.MedianDownloadMbps, _ = down.Median()
	result.MedianUploadMbps, _ = up.Median()
	result.P95DownloadMbps, _ = down.Percentile(95)
	result.P95UploadMbps, _ = up.Percentile(95)
	return result, nil
}

// CallStats reads the GetSpeedtestStats routine result. The row count is
// taken first; the pool may hold a single connection, which the open result
// cursor would otherwise keep.
func CallStats(ctx context.Context, db *gorm.DB, call string) (*Stats, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.SpeedtestResult{}).Count(&count).Error; err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "count results", err)
	}

	rows, err := db.WithContext(ctx).Raw(call).Rows()
	if err != nil {
		return nil, errs.Wrapf(errs.KindDatabase, "call stats", err, "%s", call)
	}
	defer rows.Close()

	result := &Stats{Count: count}
	if !rows.Next() {
		return result, errs.Wrap(errs.KindDatabase, "call stats", rows.Err())
	}
	var start, end sql.NullString
	var down, up sql.NullFloat64
	if err := rows.Scan(&start, &end, &down, &up); err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "scan stats", err)
	}
	if result.StartDate, err = nullTime(start); err != nil {
		return nil, err
	}
	if result.EndDate, err = nullTime(end); err != nil {
		return nil, err
	}
	result.AvgDownloadMbps = down.Float64
	result.AvgUploadMbps = up.Float64
	return result, nil
}

// QueryDatabaseSize runs a size query or routine call returning
// (schema, size in MB) rows.
func QueryDatabaseSize(ctx context.Context, db *gorm.DB, query string) ([]DatabaseSize, error) {
	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "query database size", err)
	}
	defer rows.Close()

	var sizes []DatabaseSize
	for rows.Next() {
		var name sql.NullString
		var size sql.NullFloat64
		if err := rows.Scan(&name, &size); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan database size", err)
		}
		sizes = append(sizes, DatabaseSize{Database: name.String, SizeMB: size.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "query database size", err)
	}
	return sizes, nil
}

func parseDBTime(value string) (time.Time, error) {
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, errs.Wrapf(errs.KindParse, "parse database time", err, "value %q", value)
	}
	return t, nil
}
