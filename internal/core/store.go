package core

import (
	"context"
	"time"

	"dsync/internal/model"
)

// Store provides an interface for data source and data file persistence.
// Bulk operations must be applied atomically (a single transaction per call).
type Store interface {
	// Data source operations

	// CreateDataSource persists a new data source.
	CreateDataSource(ctx context.Context, src *model.DataSource) error

	// GetDataSource returns a data source by ID, or nil if not found.
	GetDataSource(ctx context.Context, id string) (*model.DataSource, error)

	// GetDataSourceByName returns a data source by its unique name, or nil if not found.
	GetDataSourceByName(ctx context.Context, name string) (*model.DataSource, error)

	// ListDataSources returns all data sources ordered by name.
	ListDataSources(ctx context.Context) ([]*model.DataSource, error)

	// DeleteDataSource removes a data source and, by cascade, all of its data files.
	DeleteDataSource(ctx context.Context, id string) error

	// SetEnabled flips the enabled flag of a data source.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// SetStatus writes the status of a data source. Reserved for the sync
	// orchestration and the surrounding job layer; general CRUD never calls it.
	SetStatus(ctx context.Context, id string, status model.SourceStatus) error

	// BeginSync atomically transitions a source to "syncing", but only if it
	// is enabled and not already queued or syncing. It reports whether the
	// transition was applied; false means another sync won the gate.
	BeginSync(ctx context.Context, id string) (bool, error)

	// CompleteSync transitions a source to "completed" and stamps last_synced,
	// both in a single write.
	CompleteSync(ctx context.Context, id string, at time.Time) error

	// Data file operations

	// GetDataFile returns one data file by source and relative path, or nil if not found.
	GetDataFile(ctx context.Context, sourceID, path string) (*model.DataFile, error)

	// ListDataFiles returns all data files belonging to a source, ordered by path.
	ListDataFiles(ctx context.Context, sourceID string) ([]*model.DataFile, error)

	// CreateDataFiles bulk-inserts new data files and returns the number created.
	CreateDataFiles(ctx context.Context, files []*model.DataFile) (int, error)

	// UpdateDataFiles bulk-updates the last_updated, size, hash, and data
	// fields of existing records and returns the number updated.
	UpdateDataFiles(ctx context.Context, files []*model.DataFile) (int, error)

	// DeleteDataFiles bulk-deletes data files by ID and returns the number deleted.
	DeleteDataFiles(ctx context.Context, ids []string) (int, error)

	// Close closes the store.
	Close() error
}
