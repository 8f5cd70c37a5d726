package core

import (
	"context"

	"dsync/internal/model"
)

// Backend replicates a data source's content to the local filesystem.
// Implementations exist per source type (local, git, s3).
type Backend interface {
	// Fetch produces a local replica of the source's file tree. The replica
	// is valid only until Close is called; callers must Close it
	// unconditionally, including on error paths.
	Fetch(ctx context.Context) (*Replica, error)
}

// BackendFactory resolves the Backend implementation for a data source.
// Backends are constructed per sync rather than registered globally.
type BackendFactory func(src *model.DataSource) (Backend, error)

// Replica is a scoped local filesystem view of a source's content, valid
// for the duration of one sync pass.
type Replica struct {
	root    string
	cleanup func() error
}

// NewReplica creates a replica rooted at root. cleanup releases any
// temporary resources backing the replica and may be nil.
func NewReplica(root string, cleanup func() error) *Replica {
	return &Replica{root: root, cleanup: cleanup}
}

// Root returns the local filesystem root of the replica.
func (r *Replica) Root() string { return r.root }

// Close releases the replica's resources. It is idempotent.
func (r *Replica) Close() error {
	if r.cleanup == nil {
		return nil
	}
	cleanup := r.cleanup
	r.cleanup = nil
	return cleanup()
}
