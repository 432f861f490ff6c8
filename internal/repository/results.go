package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultRepository handles database operations for speedtest results
type ResultRepository interface {
	// Create inserts one measurement
	Create(ctx context.Context, result *domain.SpeedtestResult) error

	// Archive moves rows older than the retention window into the archive
	// table and returns the number of rows moved
	Archive(ctx context.Context, now time.Time) (int64, error)

	// List returns the rows of the live table ordered by id
	List(ctx context.Context) ([]domain.SpeedtestResult, error)

	// ListArchive returns the rows of the archive table ordered by id
	ListArchive(ctx context.Context) ([]domain.SpeedtestResultArchive, error)

	// Count returns the number of live and archived rows
	Count(ctx context.Context) (live int64, archived int64, err error)
}

// GormResultRepository is the GORM implementation of ResultRepository
type GormResultRepository struct {
	db *gorm.DB
}

// NewGormResultRepository creates a new GORM-based repository
func NewGormResultRepository(db *gorm.DB) *GormResultRepository {
	return &GormResultRepository{db: db}
}

func (r *GormResultRepository) Create(ctx context.Context, result *domain.SpeedtestResult) error {
	tx := r.db.WithContext(ctx).Create(result)
	if tx.Error != nil {
		return errs.Wrap(errs.KindDatabase, "insert result", tx.Error)
	}
	zap.L().Info("speedtest result inserted",
		zap.String("namespace", "recorder"),
		zap.Int64("id", result.ID),
		zap.Int64("rows_affected", tx.RowsAffected))
	return nil
}

// Archive copies then deletes with one cutoff inside a single transaction, so
// a failure between the two statements leaves both tables unchanged.
func (r *GormResultRepository) Archive(ctx context.Context, now time.Time) (int64, error) {
	cutoff := domain.NewTimestamp(now.Add(-domain.ArchiveRetention))
	var moved, deleted int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := quoteColumns(tx, domain.ResultColumns)
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE %s < ?",
			tx.Statement.Quote(domain.SpeedtestResultArchive{}.TableName()),
			columns, columns,
			tx.Statement.Quote(domain.SpeedtestResult{}.TableName()),
			tx.Statement.Quote("timestamp"))
		copied := tx.Exec(copySQL, cutoff)
		if copied.Error != nil {
			return copied.Error
		}
		moved = copied.RowsAffected

		removed := tx.Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff}).
			Delete(&domain.SpeedtestResult{})
		if removed.Error != nil {
			return removed.Error
		}
		deleted = removed.RowsAffected
		if deleted != moved {
			return fmt.Errorf("archived %d rows but deleted %d", moved, deleted)
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "archive old entries", err)
	}

	zap.L().Info("old entries archived",
		zap.String("namespace", "archive"),
		zap.String("cutoff", cutoff.Text()),
		zap.Int64("rows_affected", moved))
	return moved, nil
}

func (r *GormResultRepository) List(ctx context.Context) ([]domain.SpeedtestResult, error) {
	var rows []domain.SpeedtestResult
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "list results", err)
	}
	return rows, nil
}

func (r *GormResultRepository) ListArchive(ctx context.Context) ([]domain.SpeedtestResultArchive, error) {
	var rows []domain.SpeedtestResultArchive
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "list archive", err)
	}
	return rows, nil
}

func (r *GormResultRepository) Count(ctx context.Context) (int64, int64, error) {
	var live, archived int64
	if err := r.db.WithContext(ctx).Model(&domain.SpeedtestResult{}).Count(&live).Error; err != nil {
		return 0, 0, errs.Wrap(errs.KindDatabase, "count results", err)
	}
	if err := r.db.WithContext(ctx).Model(&domain.SpeedtestResultArchive{}).Count(&archived).Error; err != nil {
		return 0, 0, errs.Wrap(errs.KindDatabase, "count archive", err)
	}
	return live, archived, nil
}

// CallProcedure runs a stored routine that changes data and returns the rows
// affected as reported by the driver.
func CallProcedure(ctx context.Context, db *gorm.DB, call string) (int64, error) {
	tx := db.WithContext(ctx).Exec(call)
	if tx.Error != nil {
		return 0, errs.Wrapf(errs.KindDatabase, "call procedure", tx.Error, "%s", call)
	}
	zap.L().Info("stored procedure called",
		zap.String("namespace", "archive"),
		zap.String("call", call),
		zap.Int64("rows_affected", tx.RowsAffected))
	return tx.RowsAffected, nil
}

func quoteColumns(tx *gorm.DB, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = tx.Statement.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func nullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return parseDBTime(s.String)
}
