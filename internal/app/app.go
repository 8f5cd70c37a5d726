package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"dsync/internal/backend"
	"dsync/internal/config"
	"dsync/internal/core"
	"dsync/internal/database"
	"dsync/internal/model"
)

// App is the application layer between the CLI and the SyncService.
// It constructs all dependencies from config, exposes high-level operations
// keyed by source name, and manages the store lifecycle on Close.
//
// App also plays the role of the external job layer around a sync: the core
// orchestrator never transitions a source to "failed" on its own, so App
// applies that transition when a sync returns anything other than a
// precondition error.
type App struct {
	cfg     *config.Config
	store   core.Store
	service *core.SyncService
	logger  core.Logger
	clock   core.Clock
	idgen   core.IDGenerator
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Sync", "AddSource").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// The store is schema-migrated on open; dsync owns its database file.
	if m, ok := store.(interface{ Migrate() error }); ok {
		if err := m.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	// Every log line carries the operation and a start timestamp, so one
	// CLI invocation's records can be pulled out of the shared logfile.
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	hooks := core.Hooks{
		PreSync: []func(*model.DataSource){
			func(src *model.DataSource) {
				logger.Info("sync starting", "source", src.Name, "type", src.Type, "url", src.SourceURL)
			},
		},
		PostSync: []func(*model.DataSource){
			func(src *model.DataSource) {
				logger.Info("sync finished", "source", src.Name, "status", src.Status)
			},
		},
	}

	clock := core.RealClock{}
	idgen := core.UUIDGenerator{}
	service := core.NewSyncService(store, backend.New, hooks, logger, clock, idgen)

	return &App{
		cfg:     cfg,
		store:   store,
		service: service,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		logFile: logFile,
	}, nil
}

// SyncSource runs the full synchronization for the named source. When the
// sync fails past the precondition gate, the source is marked "failed" so it
// is not stranded at "syncing".
func (a *App) SyncSource(ctx context.Context, name string) error {
	err := a.service.Sync(ctx, name)
	if err == nil {
		return nil
	}

	var syncErr *core.SyncError
	if errors.As(err, &syncErr) {
		// Precondition failure: nothing was mutated.
		return err
	}

	a.logger.Error("sync failed", "source", name, "error", err)
	if src, lookupErr := a.store.GetDataSourceByName(ctx, name); lookupErr == nil && src != nil {
		if statusErr := a.store.SetStatus(ctx, src.ID, model.StatusFailed); statusErr != nil {
			a.logger.Error("marking source failed", "source", name, "error", statusErr)
		}
	}
	return err
}

// AddSource creates a new data source. Backend parameters are validated by
// constructing the backend before anything is persisted.
func (a *App) AddSource(ctx context.Context, name string, typ model.SourceType, sourceURL string, params map[string]string, ignoreRules string, enabled bool) (*model.DataSource, error) {
	existing, err := a.store.GetDataSourceByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing source: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("data source %q already exists", name)
	}

	src := &model.DataSource{
		ID:          a.idgen.New(),
		Name:        name,
		Type:        typ,
		SourceURL:   sourceURL,
		Status:      model.StatusNew,
		Enabled:     enabled,
		IgnoreRules: ignoreRules,
		Parameters:  params,
		Created:     a.clock.Now(),
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if _, err := backend.New(src); err != nil {
		return nil, err
	}

	if err := a.store.CreateDataSource(ctx, src); err != nil {
		return nil, err
	}

	a.logger.Info("data source created", "source", src.Name, "type", src.Type)
	return src, nil
}

// GetSource returns the named data source.
func (a *App) GetSource(ctx context.Context, name string) (*model.DataSource, error) {
	src, err := a.store.GetDataSourceByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("unknown data source: %s", name)
	}
	return src, nil
}

// ListSources returns all data sources.
func (a *App) ListSources(ctx context.Context) ([]*model.DataSource, error) {
	return a.store.ListDataSources(ctx)
}

// RemoveSource deletes the named data source and all of its data files.
func (a *App) RemoveSource(ctx context.Context, name string) error {
	src, err := a.GetSource(ctx, name)
	if err != nil {
		return err
	}
	if err := a.store.DeleteDataSource(ctx, src.ID); err != nil {
		return err
	}
	a.logger.Info("data source removed", "source", name)
	return nil
}

// SetSourceEnabled flips the enabled flag of the named source.
func (a *App) SetSourceEnabled(ctx context.Context, name string, enabled bool) error {
	src, err := a.GetSource(ctx, name)
	if err != nil {
		return err
	}
	return a.store.SetEnabled(ctx, src.ID, enabled)
}

// ListFiles returns the synchronized files of the named source, ordered by path.
func (a *App) ListFiles(ctx context.Context, name string) ([]*model.DataFile, error) {
	src, err := a.GetSource(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.store.ListDataFiles(ctx, src.ID)
}

// GetFile returns one synchronized file of the named source by relative path.
func (a *App) GetFile(ctx context.Context, name, path string) (*model.DataFile, error) {
	src, err := a.GetSource(ctx, name)
	if err != nil {
		return nil, err
	}
	df, err := a.store.GetDataFile(ctx, src.ID, path)
	if err != nil {
		return nil, err
	}
	if df == nil {
		return nil, fmt.Errorf("no such file in source %s: %s", name, path)
	}
	return df, nil
}

// Close closes all resources.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
