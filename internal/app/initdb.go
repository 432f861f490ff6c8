package app

import (
	"context"

	"github.com/talkincode/speedlog/internal/schema"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitDB creates whatever part of the schema is missing and keeps the
// connection to the speedtest database open for the rest of the run.
func (a *Application) InitDB(ctx context.Context) (*schema.Report, error) {
	dbConfig := a.appConfig.Database
	b := schema.NewBootstrapper(a.dialect, a.dbName)
	opener := func(d gorm.Dialector) (*gorm.DB, error) {
		return openDatabase(d, dbConfig)
	}

	created, err := b.EnsureDatabase(ctx, opener)
	if err != nil {
		return nil, err
	}

	if a.gormDB == nil {
		db, err := opener(a.dialect.Dialector(a.dbName))
		if err != nil {
			return nil, errs.Wrapf(errs.KindSchema, "connect database", err, "database %s", a.dbName)
		}
		a.gormDB = db
		zap.S().Infof("Database connection successful, type: %s", a.dialect.Name())
	}

	report, err := b.Bootstrap(ctx, a.gormDB)
	if err != nil {
		return report, err
	}
	report.DatabaseCreated = created

	zap.L().Info("schema bootstrap finished",
		zap.String("namespace", "schema"),
		zap.String("database", a.dbName),
		zap.Bool("database_created", report.DatabaseCreated),
		zap.Strings("tables_created", report.TablesCreated),
		zap.Bool("status_seeded", report.StatusSeeded),
		zap.Strings("routines_created", report.RoutinesCreated))
	return report, nil
}
