package app

import (
	"context"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/internal/schema"
	"github.com/talkincode/speedlog/internal/speedtest"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	dialect   schema.Dialect
	dbName    string
	sched     *cron.Cron
	runner    speedtest.Runner

	resolveBinary func() (string, error)
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{
		appConfig:     appConfig,
		runner:        speedtest.NewOSRunner(appConfig.Speedtest.Timeout),
		resolveBinary: appConfig.SpeedtestBinary,
	}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// OverrideRunner replaces the speedtest-cli runner (used in tests).
func (a *Application) OverrideRunner(r speedtest.Runner) {
	a.runner = r
}

// Scheduler returns the cron scheduler, nil outside serve mode
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Dialect() schema.Dialect {
	return a.dialect
}

// DatabaseName is <hostname>_speedtest, known after Init.
func (a *Application) DatabaseName() string {
	return a.dbName
}

// Init prepares logging and the time zone, then bootstraps the schema and
// keeps the connection to the target database. Every error it returns is
// fatal.
func (a *Application) Init(ctx context.Context) (*schema.Report, error) {
	cfg := a.appConfig
	if err := InitLogger(cfg.Logger); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "init logger", err)
	}

	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Errorf("timezone config error: %v", err)
	} else {
		time.Local = loc
	}

	a.dialect, err = schema.NewDialect(cfg)
	if err != nil {
		return nil, err
	}
	a.dbName = config.DatabaseName(resolveHostname(cfg.System.Hostname))

	return a.InitDB(ctx)
}

// InitLogger installs the global zap logger. With file output enabled, JSON
// lines go to a rotated file and console lines to stdout.
func InitLogger(cfg config.LogConfig) error {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var log *zap.Logger
	if cfg.FileEnable {
		filename := cfg.Filename
		if filename == "" {
			filename = config.DefaultLogFile
		}
		lumberJackLogger := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		log = zap.New(core, zap.AddCaller())
	} else {
		var err error
		log, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return err
		}
	}

	zap.ReplaceGlobals(log)
	return nil
}

// openDatabase opens a gorm connection with the pool limits from the config.
func openDatabase(dialector gorm.Dialector, cfg config.DBConfig) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxConn := cfg.MaxConn
	if maxConn <= 0 {
		maxConn = 1
	}
	sqlDB.SetMaxOpenConns(maxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// resolveHostname prefers the configured name, then the host name reported by
// the OS.
func resolveHostname(configured string) string {
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, err := os.Hostname()
	if err != nil || name == "" {
		zap.S().Warnf("cannot resolve host name, using localhost: %v", err)
		return "localhost"
	}
	return name
}

// Release stops the scheduler, waits for a running job and closes the
// database connection.
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Warn("close database", zap.Error(err))
			}
		}
		a.gormDB = nil
	}
	_ = zap.L().Sync()
}
