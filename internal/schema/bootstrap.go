package schema

import (
	"context"

	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Report lists what one bootstrap run created. An empty report means the
// schema was already complete.
type Report struct {
	DatabaseCreated   bool
	TablesCreated     []string
	StatusSeeded      bool
	RoutinesCreated   []string
	RoutinesSupported bool
}

// Bootstrapper creates the speedtest schema objects that are missing. Every
// step is safe to repeat; any error is a Schema error.
type Bootstrapper struct {
	dialect Dialect
	dbName  string
}

func NewBootstrapper(dialect Dialect, dbName string) *Bootstrapper {
	return &Bootstrapper{dialect: dialect, dbName: dbName}
}

func (b *Bootstrapper) DatabaseName() string {
	return b.dbName
}

// EnsureDatabase creates the database through a short-lived server
// connection.
func (b *Bootstrapper) EnsureDatabase(ctx context.Context, opener func(gorm.Dialector) (*gorm.DB, error)) (bool, error) {
	var server *gorm.DB
	if b.dialect.NeedsServer() {
		var err error
		server, err = opener(b.dialect.Dialector(""))
		if err != nil {
			return false, errs.Wrap(errs.KindSchema, "connect database server", err)
		}
		defer closeDB(server)
	}
	created, err := b.dialect.EnsureDatabase(ctx, server, b.dbName)
	if err != nil {
		return false, errs.Wrapf(errs.KindSchema, "create database", err, "database %s", b.dbName)
	}
	zap.L().Info("database ready",
		zap.String("namespace", "schema"),
		zap.String("database", b.dbName),
		zap.Bool("created", created))
	return created, nil
}

// Bootstrap creates the tables, seeds the status row and installs the stored
// routines on an open connection to the target database.
func (b *Bootstrapper) Bootstrap(ctx context.Context, db *gorm.DB) (*Report, error) {
	report := &Report{}

	created, err := b.EnsureTables(ctx, db)
	if err != nil {
		return report, err
	}
	report.TablesCreated = created

	statusCreated := false
	for _, name := range created {
		if name == (domain.Status{}).TableName() {
			statusCreated = true
		}
	}
	if statusCreated {
		seeded, err := b.SeedStatus(ctx, db)
		if err != nil {
			return report, err
		}
		report.StatusSeeded = seeded
	}

	catalog := b.dialect.Catalog(db)
	if catalog == nil {
		zap.L().Info("stored routines not supported, skipped",
			zap.String("namespace", "schema"),
			zap.String("dialect", b.dialect.Name()))
		return report, nil
	}
	report.RoutinesSupported = true
	report.RoutinesCreated, err = EnsureRoutines(ctx, catalog, b.dialect.Routines())
	return report, err
}

// EnsureTables creates the missing tables and returns their names. Existing
// tables are left untouched.
func (b *Bootstrapper) EnsureTables(ctx context.Context, db *gorm.DB) ([]string, error) {
	migrator := db.WithContext(ctx).Migrator()
	var created []string
	for _, table := range domain.Tables {
		name := tableName(table)
		if migrator.HasTable(table) {
			continue
		}
		if err := migrator.CreateTable(table); err != nil {
			return created, errs.Wrapf(errs.KindSchema, "create table", err, "table %s", name)
		}
		zap.L().Info("table created", zap.String("namespace", "schema"), zap.String("table", name))
		created = append(created, name)
	}
	return created, nil
}

// SeedStatus inserts the single enabled status row when the table is empty.
func (b *Bootstrapper) SeedStatus(ctx context.Context, db *gorm.DB) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.Status{}).Count(&count).Error; err != nil {
		return false, errs.Wrap(errs.KindSchema, "count status", err)
	}
	if count > 0 {
		return false, nil
	}
	result := db.WithContext(ctx).Create(&domain.Status{Enabled: true})
	if result.Error != nil {
		return false, errs.Wrap(errs.KindSchema, "seed status", result.Error)
	}
	zap.L().Info("initialized status row",
		zap.String("namespace", "schema"),
		zap.Int64("rows_affected", result.RowsAffected))
	return true, nil
}

// EnsureRoutines checks each routine in the catalog and creates the missing
// ones.
func EnsureRoutines(ctx context.Context, catalog RoutineCatalog, routines []Routine) ([]string, error) {
	var created []string
	for _, r := range routines {
		exists, err := catalog.RoutineExists(ctx, r)
		if err != nil {
			return created, errs.Wrapf(errs.KindSchema, "lookup routine", err, "routine %s", r.Name)
		}
		if exists {
			continue
		}
		if err := catalog.CreateRoutine(ctx, r); err != nil {
			return created, errs.Wrapf(errs.KindSchema, "create routine", err, "routine %s", r.Name)
		}
		zap.L().Info("stored routine created",
			zap.String("namespace", "schema"),
			zap.String("routine", r.Name),
			zap.String("type", r.Type))
		created = append(created, r.Name)
	}
	return created, nil
}

type tabler interface {
	TableName() string
}

func tableName(model interface{}) string {
	if t, ok := model.(tabler); ok {
		return t.TableName()
	}
	return ""
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zap.L().Warn("close server connection", zap.Error(err))
	}
}
