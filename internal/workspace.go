package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/marginalia/internal/annotationservice"
	"github.com/starford/marginalia/internal/export"
	"github.com/starford/marginalia/internal/index"
	"github.com/starford/marginalia/internal/storage"
)

// Workspace is an opened vault: storage, a synced index and the service
// on top of them.
type Workspace struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	DB      *index.DB
	Service *annotationservice.Service
}

// OpenWorkspace opens the vault and index named by the configuration and
// brings the index up to date.
func OpenWorkspace(opts ...Option) (*Workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.openWorkspace()
}

func (a *application) openWorkspace(svcOpts ...annotationservice.Option) (*Workspace, error) {
	cfg, logger := a.config, a.logger

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	dispatcher := export.NewDispatcher(export.WithDefaults(cfg.Export.Config))
	svcOpts = append([]annotationservice.Option{
		annotationservice.WithDispatcher(dispatcher),
		annotationservice.WithListOptions(cfg.Annotations.ListOptions()),
		annotationservice.WithDefaultKinds(cfg.Annotations.ParsedKinds()),
	}, svcOpts...)

	return &Workspace{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Service: annotationservice.NewService(store, db, svcOpts...),
	}, nil
}

// Close releases the index.
func (w *Workspace) Close() error {
	return w.DB.Close()
}
