package testutil

import (
	"context"
	"fmt"

	"dsync/internal/core"
	"dsync/internal/model"
)

// DirBackend serves a fixed local directory as a source replica and records
// how many times the replica was closed.
type DirBackend struct {
	Root       string
	FetchCount int
	CloseCount int
}

func (b *DirBackend) Fetch(ctx context.Context) (*core.Replica, error) {
	b.FetchCount++
	return core.NewReplica(b.Root, func() error {
		b.CloseCount++
		return nil
	}), nil
}

// FailingBackend always fails to fetch.
type FailingBackend struct {
	Err error
}

func (b *FailingBackend) Fetch(ctx context.Context) (*core.Replica, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return nil, fmt.Errorf("fetch failed")
}

// FactoryFor returns a core.BackendFactory that resolves every source to
// the given backend.
func FactoryFor(b core.Backend) core.BackendFactory {
	return func(*model.DataSource) (core.Backend, error) {
		return b, nil
	}
}
