package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/talkincode/speedlog/pkg/errs"
)

const (
	DefaultConfigFile   = "config.ini"
	DefaultDatabaseType = "mysql"
	DefaultLogFile      = "speedtest.log"
	DefaultMeasureSpec  = "@hourly"
	DefaultArchiveSpec  = "@daily"
	DatabaseNameSuffix  = "_speedtest"
)

type DBConfig struct {
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Passwd   string `mapstructure:"password"`
	MaxConn  int    `mapstructure:"max_conn"`
	IdleConn int    `mapstructure:"idle_conn"`
	Debug    bool   `mapstructure:"debug"`
}

type SysConfig struct {
	Hostname string `mapstructure:"hostname"`
	Workdir  string `mapstructure:"workdir"`
	Location string `mapstructure:"location"`
}

type LogConfig struct {
	Mode       string `mapstructure:"mode"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

type SpeedtestConfig struct {
	Binary  string        `mapstructure:"binary"`
	Args    string        `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Measure string `mapstructure:"measure"`
	Archive string `mapstructure:"archive"`
}

// AppConfig is the whole config.ini file.
type AppConfig struct {
	System    SysConfig       `mapstructure:"system"`
	Database  DBConfig        `mapstructure:"database"`
	Logger    LogConfig       `mapstructure:"logger"`
	Speedtest SpeedtestConfig `mapstructure:"speedtest"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// requiredKeys must be present in the file for network database engines.
var requiredKeys = []string{
	"database.host",
	"database.port",
	"database.user",
	"database.password",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SPEEDLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.type", DefaultDatabaseType)
	v.SetDefault("database.max_conn", 1)
	v.SetDefault("database.idle_conn", 1)
	v.SetDefault("database.debug", false)
	v.SetDefault("system.workdir", ".")
	v.SetDefault("system.location", "Local")
	v.SetDefault("logger.mode", "production")
	v.SetDefault("logger.file_enable", true)
	v.SetDefault("logger.filename", DefaultLogFile)
	v.SetDefault("speedtest.args", "--json")
	v.SetDefault("speedtest.timeout", "0s")
	v.SetDefault("schedule.measure", DefaultMeasureSpec)
	v.SetDefault("schedule.archive", DefaultArchiveSpec)
	// bind so SPEEDLOG_* can supply keys that have no default
	for _, key := range requiredKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("system.hostname")
	_ = v.BindEnv("speedtest.binary")
	return v
}

// LoadConfig reads the configuration file. The file format follows its
// extension; a bare key-value file is read as INI.
func LoadConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("ini")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errs.Wrapf(errs.KindConfig, "read config", err, "config file %s", path)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Wrapf(errs.KindConfig, "decode config", err, "config file %s", path)
	}
	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))

	if cfg.Database.Type != "sqlite" {
		for _, key := range requiredKeys {
			if !v.IsSet(key) {
				return nil, errs.New(errs.KindConfig, "validate config", fmt.Sprintf("missing key %s", key))
			}
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that decoding alone cannot catch.
func Validate(cfg *AppConfig) error {
	switch cfg.Database.Type {
	case "mysql", "postgres", "sqlite":
	default:
		return errs.New(errs.KindConfig, "validate config",
			fmt.Sprintf("unsupported database.type %q", cfg.Database.Type))
	}
	if cfg.Database.Type != "sqlite" && (cfg.Database.Port <= 0 || cfg.Database.Port > 65535) {
		return errs.New(errs.KindConfig, "validate config",
			fmt.Sprintf("database.port %d out of range", cfg.Database.Port))
	}
	if cfg.Speedtest.Timeout < 0 {
		return errs.New(errs.KindConfig, "validate config", "speedtest.timeout must not be negative")
	}
	return nil
}

// DatabaseName returns the per-host schema name.
func DatabaseName(hostname string) string {
	return hostname + DatabaseNameSuffix
}

// SpeedtestArgs splits the configured argument string.
func (c *AppConfig) SpeedtestArgs() []string {
	return strings.Fields(c.Speedtest.Args)
}

// SpeedtestBinary resolves the measurement binary. The default lives in
// bin/ next to the running executable.
func (c *AppConfig) SpeedtestBinary() (string, error) {
	if c.Speedtest.Binary != "" {
		return c.Speedtest.Binary, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", errs.Wrap(errs.KindConfig, "resolve speedtest binary", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "bin", "speedtest-cli"), nil
}
