package cmd

import (
	"context"
	"fmt"

	"directory-sync/core/audit"
	"directory-sync/core/config"
	"directory-sync/core/database"
	"directory-sync/core/logger"
	"directory-sync/core/reconcile"
	"directory-sync/core/storage"
	"directory-sync/feature/users"
	"directory-sync/feature/users/directory"
	"directory-sync/feature/users/source"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application holds the components shared by the commands.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *users.Service
	dbs     []*gorm.DB
}

// newApplication loads configuration and connects every store the sync
// configuration needs. Observers receive every decision the service makes.
func newApplication(ctx context.Context, observers ...reconcile.Observer) (*application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &application{cfg: cfg, logger: l}
	if err := app.build(ctx, observers); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) build(ctx context.Context, observers []reconcile.Observer) error {
	cfg := a.cfg

	srcDB, err := database.Connect(cfg.Source.Database)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	a.dbs = append(a.dbs, srcDB)
	a.logger.Info("Connected to source database",
		zap.String("driver", cfg.Source.Database.Driver),
		zap.String("name", cfg.Source.Database.Name))

	var client storage.Client
	if cfg.Target.Kind == config.TargetStorage || cfg.Audit.Enabled {
		client, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return err
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return err
		}
	}

	// Target entries are keyed by the identifier field, or by account name
	// when the identifier is not a user field.
	key := reconcile.FieldSamAccountName
	if sel := reconcile.NewSelector(cfg.Sync.Identifier); sel.Resolvable() {
		key = sel.Field()
	}

	var target reconcile.Target
	switch cfg.Target.Kind {
	case config.TargetStorage:
		target = directory.NewStorageRepository(client, cfg.Storage.Bucket, cfg.Target.Prefix, key)
	default:
		dstDB, err := database.Connect(cfg.Target.Database)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		a.dbs = append(a.dbs, dstDB)
		target = directory.NewDBRepository(dstDB, cfg.Target.Table, key)
	}

	var writer *audit.Writer
	if cfg.Audit.Enabled {
		writer = audit.NewWriter(client, cfg.Storage.Bucket, cfg.Audit.Prefix)
	}

	svc, err := users.NewService(source.NewRepository(srcDB, cfg.Source.Table), target, cfg.Sync, writer, a.logger, observers...)
	if err != nil {
		return err
	}
	a.service = svc
	return nil
}

// Close releases database connections and flushes the logger.
func (a *application) Close() {
	for _, db := range a.dbs {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.logger.Sync()
}
