package backend

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"dsync/internal/core"
)

// LocalBackend serves a data source rooted on the local filesystem. The
// source URL must use the file:// scheme or omit the scheme entirely.
type LocalBackend struct {
	root string
}

// NewLocalBackend parses the source URL into a filesystem root.
func NewLocalBackend(sourceURL string) (*LocalBackend, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "":
		return &LocalBackend{root: sourceURL}, nil
	case "file":
		return &LocalBackend{root: u.Path}, nil
	default:
		return nil, fmt.Errorf("local sources require a file:// URL or no scheme, got %q", u.Scheme)
	}
}

// Fetch validates the root and returns it directly: local sources need no
// replication, and the replica's Close is a no-op.
func (b *LocalBackend) Fetch(ctx context.Context) (*core.Replica, error) {
	info, err := os.Stat(b.root)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root is not a directory: %s", b.root)
	}
	return core.NewReplica(b.root, nil), nil
}

// Compile-time check that LocalBackend implements core.Backend
var _ core.Backend = (*LocalBackend)(nil)
