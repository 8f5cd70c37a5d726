package core

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"sort"

	dsfs "dsync/internal/fs"
	"dsync/internal/model"
)

// Hooks are lifecycle listeners registered at construction time. PreSync
// listeners run before any mutation; PostSync listeners run after a sync
// completes successfully. Listeners are invoked in registration order.
type Hooks struct {
	PreSync  []func(src *model.DataSource)
	PostSync []func(src *model.DataSource)
}

// SyncService coordinates the fetch → diff → reconcile → commit cycle that
// brings a data source's DataFile records in line with its remote content.
type SyncService struct {
	store    Store
	backends BackendFactory
	hooks    Hooks
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewSyncService creates a SyncService with the provided dependencies.
func NewSyncService(store Store, backends BackendFactory, hooks Hooks, logger Logger, clock Clock, idgen IDGenerator) *SyncService {
	return &SyncService{
		store:    store,
		backends: backends,
		hooks:    hooks,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Sync creates, updates, and deletes the named source's data files as
// necessary to synchronize with the remote content.
//
// A SyncError is returned, with nothing mutated, when the source is unknown
// or not ready (disabled, queued, or already syncing). Any other failure
// propagates to the caller with the source left at "syncing"; the
// surrounding job layer decides whether to mark the source failed.
func (s *SyncService) Sync(ctx context.Context, name string) error {
	src, err := s.store.GetDataSourceByName(ctx, name)
	if err != nil {
		return fmt.Errorf("loading data source: %w", err)
	}
	if src == nil {
		return NewSyncError(fmt.Sprintf("unknown data source %q", name))
	}
	if !src.ReadyForSync() {
		return NewSyncError(fmt.Sprintf("data source %q not ready/enabled", name))
	}

	for _, h := range s.hooks.PreSync {
		h(src)
	}

	// Claim the syncing state up front so concurrent readers observe the
	// in-progress sync. The conditional write also closes the gate against
	// a second sync racing past the readiness check above.
	ok, err := s.store.BeginSync(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("marking data source syncing: %w", err)
	}
	if !ok {
		return NewSyncError(fmt.Sprintf("data source %q not ready/enabled", name))
	}
	src.Status = model.StatusSyncing

	// Replicate source data locally.
	backend, err := s.backends(src)
	if err != nil {
		return fmt.Errorf("resolving backend: %w", err)
	}
	replica, err := backend.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", src.SourceURL, err)
	}
	defer replica.Close()

	s.logger.Debug("syncing files from source root", "source", src.Name, "root", replica.Root())

	dataFiles, err := s.store.ListDataFiles(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("loading known data files: %w", err)
	}
	knownPaths := make(map[string]struct{}, len(dataFiles))
	for _, df := range dataFiles {
		knownPaths[df.Path] = struct{}{}
	}
	s.logger.Debug("starting with known files", "count", len(knownPaths))

	// Check for any updated or deleted files.
	var updatedFiles []*model.DataFile
	var deletedFileIDs []string
	for _, df := range dataFiles {
		changed, err := RefreshFromDisk(df, replica.Root(), s.clock.Now())
		if errors.Is(err, iofs.ErrNotExist) {
			// File no longer exists.
			deletedFileIDs = append(deletedFileIDs, df.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("refreshing %s: %w", df.Path, err)
		}
		if changed {
			updatedFiles = append(updatedFiles, df)
		}
	}

	updated, err := s.store.UpdateDataFiles(ctx, updatedFiles)
	if err != nil {
		return fmt.Errorf("updating data files: %w", err)
	}
	s.logger.Debug("updated files", "count", updated)

	deleted, err := s.store.DeleteDataFiles(ctx, deletedFileIDs)
	if err != nil {
		return fmt.Errorf("deleting data files: %w", err)
	}
	s.logger.Debug("deleted files", "count", deleted)

	// Walk the local replica to find new files. The set difference is taken
	// against the pre-sync known set: a path deleted above was absent from
	// disk and therefore can never reappear in the walk.
	currentPaths, err := dsfs.Walk(replica.Root(), dsfs.NewIgnoreMatcher(src.IgnoreRules))
	if err != nil {
		return fmt.Errorf("walking replica: %w", err)
	}
	newPaths := make([]string, 0, len(currentPaths))
	for p := range currentPaths {
		if _, known := knownPaths[p]; !known {
			newPaths = append(newPaths, p)
		}
	}
	sort.Strings(newPaths)

	newDataFiles := make([]*model.DataFile, 0, len(newPaths))
	for _, path := range newPaths {
		df := &model.DataFile{
			ID:       s.idgen.New(),
			SourceID: src.ID,
			Path:     path,
			Created:  s.clock.Now(),
		}
		// A record with no hash yet is always treated as modified.
		if _, err := RefreshFromDisk(df, replica.Root(), s.clock.Now()); err != nil {
			return fmt.Errorf("reading new file %s: %w", path, err)
		}
		if err := df.Validate(); err != nil {
			return fmt.Errorf("validating new file %s: %w", path, err)
		}
		newDataFiles = append(newDataFiles, df)
	}

	created, err := s.store.CreateDataFiles(ctx, newDataFiles)
	if err != nil {
		return fmt.Errorf("creating data files: %w", err)
	}
	s.logger.Debug("created data files", "count", created)

	// Release the replica before committing completion.
	if err := replica.Close(); err != nil {
		return fmt.Errorf("releasing replica: %w", err)
	}

	now := s.clock.Now()
	if err := s.store.CompleteSync(ctx, src.ID, now); err != nil {
		return fmt.Errorf("completing sync: %w", err)
	}
	src.Status = model.StatusCompleted
	src.LastSynced = &now

	s.logger.Info("sync complete", "source", src.Name,
		"updated", updated, "deleted", deleted, "created", created)

	for _, h := range s.hooks.PostSync {
		h(src)
	}
	return nil
}
