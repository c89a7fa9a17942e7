package main

import (
	"context"
	"fmt"
	"log/slog"

	gormlogger "gorm.io/gorm/logger"

	"github.com/example/planning-service/internal/config"
	"github.com/example/planning-service/internal/persistence"
	"github.com/example/planning-service/internal/persistence/gormstore"
	"github.com/example/planning-service/internal/persistence/sqlite"
)

// backend bundles the repositories of one storage driver.
type backend struct {
	driver         string
	users          persistence.UserRepository
	projects       persistence.ProjectRepository
	tasks          persistence.TaskRepository
	availabilities persistence.AvailabilityRepository
	plannings      persistence.PlanningRepository
	tx             persistence.Transactor

	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	close   func() error
}

// openBackend connects the store selected by cfg.DBDriver: the database/sql
// SQLite store, or GORM on PostgreSQL.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return openPostgresBackend(ctx, cfg, logger)
	case config.DriverSQLite, "":
		return openSQLiteBackend(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func openSQLiteBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	sqliteCfg := sqlite.DefaultConfig(cfg.SQLiteDSN)
	if cfg.SQLiteDSN == ":memory:" {
		sqliteCfg = sqlite.InMemoryConfig()
	}
	store, err := sqlite.Open(ctx, sqliteCfg)
	if err != nil {
		return nil, err
	}

	return &backend{
		driver:         config.DriverSQLite,
		users:          sqlite.NewUserRepository(store),
		projects:       sqlite.NewProjectRepository(store),
		tasks:          sqlite.NewTaskRepository(store),
		availabilities: sqlite.NewAvailabilityRepository(store),
		plannings:      sqlite.NewPlanningRepository(store),
		tx:             store,
		migrate: func(ctx context.Context) error {
			applied, err := store.Migrate(ctx, logger)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "schema migrated", "driver", config.DriverSQLite, "applied", applied)
			return nil
		},
		ping:  store.Ping,
		close: store.Close,
	}, nil
}

func openPostgresBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	gormCfg := gormstore.Config{MaxOpenConns: 10, MaxIdleConns: 5}
	if logger.Enabled(ctx, slog.LevelDebug) {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}
	store, err := gormstore.OpenPostgres(ctx, cfg.PostgresDSN, gormCfg)
	if err != nil {
		return nil, err
	}

	return &backend{
		driver:         config.DriverPostgres,
		users:          gormstore.NewUserRepository(store),
		projects:       gormstore.NewProjectRepository(store),
		tasks:          gormstore.NewTaskRepository(store),
		availabilities: gormstore.NewAvailabilityRepository(store),
		plannings:      gormstore.NewPlanningRepository(store),
		tx:             store,
		migrate: func(ctx context.Context) error {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.InfoContext(ctx, "schema migrated", "driver", config.DriverPostgres)
			return nil
		},
		ping:  store.Ping,
		close: store.Close,
	}, nil
}
