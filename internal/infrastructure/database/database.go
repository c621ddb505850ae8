package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tinbox/internal/config"
)

// Open connects to the relational backend selected by cfg.Store.Driver.
// Tables are created later by the repository's Initialize.
func Open(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return OpenSQLite(SQLiteDSN(cfg.SQLite), log)
	case "mysql":
		return OpenMySQL(&cfg.MySQL, log)
	}
	return nil, fmt.Errorf("store driver %q is not relational", cfg.Store.Driver)
}

// SQLiteDSN builds a go-sqlite3 DSN. The busy timeout bounds how long a
// statement waits on a locked database file.
func SQLiteDSN(cfg config.SQLiteConfig) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeoutMS)
}

// OpenSQLite opens a SQLite database with a single connection, so every
// store call gets its own short-lived scope without a pool.
func OpenSQLite(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.WithField("dsn", dsn).Info("sqlite opened")
	return db, nil
}

func OpenMySQL(cfg *config.MySQLConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get mysql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.WithFields(logrus.Fields{"host": cfg.Host, "database": cfg.Database}).Info("mysql connected")
	return db, nil
}

func gormConfig(log logrus.FieldLogger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
