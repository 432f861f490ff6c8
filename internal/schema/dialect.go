package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/pkg/errs"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect hides the engine specific parts of the bootstrap: how to reach the
// server, how to create the database and which catalog lists stored routines.
type Dialect interface {
	Name() string
	// Dialector opens dbName, or the server itself when dbName is empty.
	Dialector(dbName string) gorm.Dialector
	// EnsureDatabase creates dbName when absent. server is a connection
	// opened with Dialector(""); sqlite passes nil.
	EnsureDatabase(ctx context.Context, server *gorm.DB, dbName string) (created bool, err error)
	// NeedsServer reports whether EnsureDatabase needs a server connection.
	NeedsServer() bool
	// Catalog returns nil when the engine has no stored routines.
	Catalog(db *gorm.DB) RoutineCatalog
	// Routines are the stored routines installed by the bootstrap.
	Routines() []Routine
	// SizeQuery returns (schema, size in MB) rows for the current database.
	SizeQuery() string
}

// NewDialect picks the dialect for database.type.
func NewDialect(cfg *config.AppConfig) (Dialect, error) {
	switch cfg.Database.Type {
	case "", "mysql":
		return &MySQL{cfg: cfg.Database}, nil
	case "postgres":
		return &Postgres{cfg: cfg.Database}, nil
	case "sqlite":
		return &Sqlite{workdir: cfg.System.Workdir}, nil
	default:
		return nil, errs.New(errs.KindConfig, "select dialect",
			fmt.Sprintf("unsupported database.type %q", cfg.Database.Type))
	}
}

// MySQL covers MySQL and MariaDB.
type MySQL struct {
	cfg config.DBConfig
}

func (d *MySQL) Name() string { return "mysql" }

func (d *MySQL) NeedsServer() bool { return true }

func (d *MySQL) Dialector(dbName string) gorm.Dialector {
	// loc=UTC keeps DATETIME values as the wall clock they were written with
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.cfg.User, d.cfg.Passwd, d.cfg.Host, d.cfg.Port, dbName)
	// plain DATETIME columns, so CURRENT_TIMESTAMP is a valid default
	return mysql.New(mysql.Config{DSN: dsn, DisableDatetimePrecision: true})
}

func (d *MySQL) EnsureDatabase(ctx context.Context, server *gorm.DB, dbName string) (bool, error) {
	result := server.WithContext(ctx).Exec("CREATE DATABASE IF NOT EXISTS " + quoteIdentifier(dbName, d.Name()))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (d *MySQL) Catalog(db *gorm.DB) RoutineCatalog {
	return &mysqlCatalog{db: db}
}

func (d *MySQL) Routines() []Routine {
	return mysqlRoutines
}

func (d *MySQL) SizeQuery() string {
	return mysqlSizeQuery
}

// Postgres creates the database through pg_database and installs the routines
// as functions and a procedure in the current schema.
type Postgres struct {
	cfg config.DBConfig
}

func (d *Postgres) Name() string { return "postgres" }

func (d *Postgres) NeedsServer() bool { return true }

func (d *Postgres) Dialector(dbName string) gorm.Dialector {
	if dbName == "" {
		dbName = "postgres"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		d.cfg.Host, d.cfg.Port, d.cfg.User, d.cfg.Passwd, dbName)
	return postgres.Open(dsn)
}

func (d *Postgres) EnsureDatabase(ctx context.Context, server *gorm.DB, dbName string) (bool, error) {
	var count int64
	err := server.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM pg_database WHERE datname = ?", dbName).
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	// CREATE DATABASE has no IF NOT EXISTS guard on postgres
	if err := server.WithContext(ctx).Exec("CREATE DATABASE " + quoteIdentifier(dbName, d.Name())).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (d *Postgres) Catalog(db *gorm.DB) RoutineCatalog {
	return &postgresCatalog{db: db}
}

func (d *Postgres) Routines() []Routine {
	return postgresRoutines
}

func (d *Postgres) SizeQuery() string {
	return postgresSizeQuery
}

// Sqlite keeps the database in <workdir>/<name>.db and has no stored routines.
type Sqlite struct {
	workdir string
}

func (d *Sqlite) Name() string { return "sqlite" }

func (d *Sqlite) NeedsServer() bool { return false }

func (d *Sqlite) Path(dbName string) string {
	return filepath.Join(d.workdir, dbName+".db")
}

func (d *Sqlite) Dialector(dbName string) gorm.Dialector {
	return sqlite.Open(d.Path(dbName))
}

func (d *Sqlite) EnsureDatabase(_ context.Context, _ *gorm.DB, dbName string) (bool, error) {
	if d.workdir != "" {
		if err := os.MkdirAll(d.workdir, 0o755); err != nil {
			return false, err
		}
	}
	_, err := os.Stat(d.Path(dbName))
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}

func (d *Sqlite) Catalog(*gorm.DB) RoutineCatalog {
	return nil
}

func (d *Sqlite) Routines() []Routine {
	return nil
}

func (d *Sqlite) SizeQuery() string {
	return sqliteSizeQuery
}

func quoteIdentifier(name, dbType string) string {
	switch dbType {
	case "mysql":
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}
