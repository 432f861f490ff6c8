package app

import (
	"context"
	"io"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/repository"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Commands depend on this interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider

	// Record runs one measurement and stores it
	Record(ctx context.Context) (*domain.SpeedtestResult, error)
	// Archive moves rows older than 48 hours into the archive table
	Archive(ctx context.Context, procedure bool) (int64, error)
	// Stats summarises the live table
	Stats(ctx context.Context, procedure bool) (*repository.Stats, error)
	// DatabaseSize reports the size of the speedtest database
	DatabaseSize(ctx context.Context, procedure bool) ([]repository.DatabaseSize, error)
	// Export writes a result table as CSV
	Export(ctx context.Context, table string, w io.Writer) (int, error)
	// Status lists the status rows
	Status(ctx context.Context) ([]domain.Status, error)
	// StartJobs schedules measurement and archival until Release
	StartJobs(ctx context.Context) error
	Release()
}
