// Package app wires configuration, stores and services into a runnable
// application shared by the HTTP server and the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"gold_debts/internal/adapters/opener"
	"gold_debts/internal/config"
	"gold_debts/internal/handlers"
	"gold_debts/internal/observability"
	"gold_debts/internal/ports"
	"gold_debts/internal/repository/cache"
	"gold_debts/internal/repository/state"
	"gold_debts/internal/server"
	"gold_debts/internal/services/backup"
	"gold_debts/internal/services/debts"
	"gold_debts/internal/services/importer"
	"gold_debts/internal/services/importer/processors"
	"gold_debts/internal/services/syncer"
	"gold_debts/internal/transport/auth"

	"go.uber.org/zap"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Local        *cache.FileStore
	Orchestrator *syncer.Orchestrator
	Debts        *debts.Service
	Backup       *backup.Service
	Importer     *importer.Service
	Handlers     *handlers.Handlers
}

// New builds the application from cfg. Connections in cfg must already be
// created (see config.Init); nothing here dials.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics()

	local := cache.NewFileStore(cfg.CacheFile, logger.Named("cache"))
	if err := local.EnsureFile(); err != nil {
		return nil, fmt.Errorf("prepare local cache: %w", err)
	}

	remote, err := remoteStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	orch := syncer.New(local, remote, logger.Named("sync"), metrics, syncer.Options{
		Mode:         syncer.Mode(cfg.SyncMode),
		WriteTimeout: cfg.SyncTimeout,
	})
	debtSvc := debts.NewService(orch, logger.Named("debts"), metrics, cfg.LateAfterDays)

	var (
		s3Opener *opener.S3Opener
		uploads  backup.ObjectPutter
		bucket   string
	)
	if cfg.S3 != nil {
		s3Opener = opener.NewS3Opener(cfg.S3.Client, logger.Named("opener"))
		uploads = cfg.S3.Client
		bucket = cfg.S3.Bucket
	}
	// local paths are only served from IMPORT_DIR
	var localOpener *opener.FileOpener
	if cfg.ImportDir != "" {
		localOpener = opener.NewFileOpener(cfg.ImportDir)
	}
	files := opener.NewCompoundOpener(
		opener.NewHTTPOpener(nil, logger.Named("opener")),
		s3Opener,
		localOpener,
		bucket,
	)

	backupSvc := backup.NewService(debtSvc, uploads, bucket, files, logger.Named("backup"))

	registry := processors.DefaultRegistry(processors.DebtsProcessor{
		Creator: debtSvc,
		Logger:  logger.Named("import"),
	})
	importSvc := importer.NewService(files, registry, cfg.ImportBatchSize, logger.Named("import"))

	h := handlers.New(handlers.Deps{
		Debts:      debtSvc,
		Backup:     backupSvc,
		Importer:   importSvc,
		Uploads:    uploads,
		Bucket:     bucket,
		Checker:    cfg,
		RemoteName: orch.RemoteName(),
		Logger:     logger.Named("http"),
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Local:        local,
		Orchestrator: orch,
		Debts:        debtSvc,
		Backup:       backupSvc,
		Importer:     importSvc,
		Handlers:     h,
	}, nil
}

func remoteStore(cfg *config.Config, logger *zap.Logger) (ports.RemoteStore, error) {
	var inner ports.RemoteStore
	switch cfg.RemoteDriver {
	case config.DriverMongo:
		if cfg.Mongo == nil {
			return nil, errors.New("mongo driver selected but no connection was created")
		}
		inner = state.NewMongoStore(cfg.Mongo, cfg.MongoCollection, cfg.StateID)
	case config.DriverPostgres:
		if cfg.Postgres == nil {
			return nil, errors.New("postgres driver selected but no connection was created")
		}
		inner = state.NewPostgresStore(cfg.Postgres, cfg.PGTable, cfg.StateID)
	default:
		logger.Warn("no remote store configured, running on the local cache only")
		return nil, nil
	}
	return state.NewBreakerStore(inner, logger.Named("remote")), nil
}

// Server builds the HTTP server for the app.
func (a *App) Server() *server.Server {
	return server.NewServer(a.Handlers, server.Options{
		Port:      a.Config.Port,
		StaticDir: a.Config.StaticDir,
		Auth: auth.Credentials{
			Username:     a.Config.AuthUsername,
			Password:     a.Config.AuthPassword,
			PasswordHash: []byte(a.Config.AuthPasswordBcrypt),
		},
		Registry: a.Metrics.Registry,
		Logger:   a.Logger,
	})
}

// Close waits for background remote writes and releases connections.
func (a *App) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.Orchestrator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("gave up waiting for background sync", zap.Error(ctx.Err()))
	}
	return a.Config.Close(ctx)
}
