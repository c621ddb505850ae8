package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	XLSX    XLSXConfig    `mapstructure:"xlsx"`
	GSheets GSheetsConfig `mapstructure:"gsheets"`
	Guard   GuardConfig   `mapstructure:"guard"`
	Pending PendingConfig `mapstructure:"pending"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type SQLiteConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type XLSXConfig struct {
	Path  string `mapstructure:"path"`
	Sheet string `mapstructure:"sheet"`
}

type GSheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Sheet           string `mapstructure:"sheet"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// GuardConfig holds the shared password for mutating operations.
type GuardConfig struct {
	Secret string `mapstructure:"secret"`
}

type PendingConfig struct {
	Driver        string        `mapstructure:"driver"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	MaxRetryCount int           `mapstructure:"max_retry_count"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "TINBOX"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("sqlite.path", "data/tinbox.db")
	v.SetDefault("sqlite.busy_timeout_ms", 5000)

	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.max_open_conns", 10)
	v.SetDefault("mysql.max_idle_conns", 5)

	v.SetDefault("xlsx.path", "data/donation_data.xlsx")
	v.SetDefault("xlsx.sheet", "donation_data")
	v.SetDefault("gsheets.sheet", "donation_data")
	v.SetDefault("gsheets.credentials_json", "")
	v.SetDefault("gsheets.credentials_file", "")

	v.SetDefault("guard.secret", "")

	v.SetDefault("pending.driver", "memory")
	v.SetDefault("pending.ttl", 10*time.Minute)
	v.SetDefault("pending.sweep_interval", time.Minute)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("kafka.topic", "donation-events")
	v.SetDefault("kafka.max_retry_count", 5)
	v.SetDefault("kafka.poll_interval", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads the YAML file at configPath, if any, and applies
// TINBOX_* environment overrides (TINBOX_GUARD_SECRET for guard.secret).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var ErrMissingSecret = errors.New("guard.secret must be set (TINBOX_GUARD_SECRET)")

// Validate checks the settings every deployment needs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "mysql", "xlsx", "gsheets":
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	switch c.Pending.Driver {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("pending.driver redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unsupported pending.driver %q", c.Pending.Driver)
	}
	if c.Guard.Secret == "" {
		return ErrMissingSecret
	}
	if c.Store.Driver == "gsheets" && c.GSheets.SpreadsheetID == "" {
		return errors.New("gsheets.spreadsheet_id is required for the gsheets driver")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Pending.TTL <= 0 {
		return errors.New("pending.ttl must be positive")
	}
	if c.Pending.Driver == "memory" && c.Pending.SweepInterval <= 0 {
		return errors.New("pending.sweep_interval must be positive")
	}
	if c.Kafka.Enabled && c.Kafka.PollInterval <= 0 {
		return errors.New("kafka.poll_interval must be positive")
	}
	return nil
}
