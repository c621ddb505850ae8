package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tinbox/internal/config"
	"tinbox/internal/infrastructure/cache"
	"tinbox/internal/infrastructure/database"
	"tinbox/internal/infrastructure/lock"
	"tinbox/internal/logging"
	"tinbox/internal/repository"
	"tinbox/internal/sheet"
	"tinbox/internal/store"
	"tinbox/pkg/idgen"
)

// app holds the shared infrastructure both commands start from.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *gorm.DB
	redis  *redis.Client
	store  store.RecordStore
	outbox *repository.OutboxRepository
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log)

	if err := idgen.Init(1); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	if cfg.Redis.Enabled {
		a.redis, err = cache.InitRedis(&cfg.Redis, log)
		if err != nil {
			return nil, err
		}
	}

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg

	switch cfg.Store.Driver {
	case store.DriverSQLite, store.DriverMySQL:
		db, err := database.Open(cfg, a.log)
		if err != nil {
			return err
		}
		a.db = db

		repo := repository.NewDonationRepository(db)
		if cfg.Kafka.Enabled {
			a.outbox = repository.NewOutboxRepository(db)
			repo = repo.WithNotifications(a.outbox, cfg.Kafka.Topic)
		}
		a.store = repo

	case store.DriverXLSX:
		a.store = sheet.NewXLSXStore(cfg.XLSX.Path, cfg.XLSX.Sheet, a.locker())

	case store.DriverGSheets:
		svc, err := sheet.NewSheetsService(ctx, cfg.GSheets.CredentialsJSON, cfg.GSheets.CredentialsFile)
		if err != nil {
			return err
		}
		a.store = sheet.NewGSheetsStore(svc, cfg.GSheets.SpreadsheetID, cfg.GSheets.Sheet, a.locker())

	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	if cfg.Kafka.Enabled && a.outbox == nil {
		a.log.WithField("driver", cfg.Store.Driver).Warn("change notifications need a relational store; kafka disabled")
	}
	a.log.WithField("driver", cfg.Store.Driver).Info("record store selected")
	return nil
}

// locker serializes spreadsheet writes across replicas when Redis is
// available, otherwise within this process.
func (a *app) locker() sheet.Locker {
	if a.redis != nil {
		return lock.NewRedisLocker(a.redis)
	}
	return &sheet.MutexLocker{}
}

func (a *app) close() {
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			logging.LogError(a.log, "app", "close", "database", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.LogError(a.log, "app", "close", "redis", err)
		}
	}
}
