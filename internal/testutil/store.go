package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dsync/internal/core"
	"dsync/internal/model"
)

// MemStore is an in-memory core.Store for tests. Like a real database, it
// hands out copies of its records, so callers never observe each other's
// in-memory mutations until they are written back.
type MemStore struct {
	mu      sync.Mutex
	sources map[string]*model.DataSource
	files   map[string]*model.DataFile
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sources: make(map[string]*model.DataSource),
		files:   make(map[string]*model.DataFile),
	}
}

func (s *MemStore) CreateDataSource(_ context.Context, src *model.DataSource) error {
	if err := src.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sources {
		if existing.Name == src.Name {
			return fmt.Errorf("data source name not unique: %s", src.Name)
		}
	}
	s.sources[src.ID] = copySource(src)
	return nil
}

func (s *MemStore) GetDataSource(_ context.Context, id string) (*model.DataSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, nil
	}
	return copySource(src), nil
}

func (s *MemStore) GetDataSourceByName(_ context.Context, name string) (*model.DataSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		if src.Name == name {
			return copySource(src), nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListDataSources(_ context.Context) ([]*model.DataSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sources := make([]*model.DataSource, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, copySource(src))
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

func (s *MemStore) DeleteDataSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
	for fid, df := range s.files {
		if df.SourceID == id {
			delete(s.files, fid)
		}
	}
	return nil
}

func (s *MemStore) SetEnabled(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("unknown data source: %s", id)
	}
	src.Enabled = enabled
	return nil
}

func (s *MemStore) SetStatus(_ context.Context, id string, status model.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("unknown data source: %s", id)
	}
	src.Status = status
	return nil
}

func (s *MemStore) BeginSync(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return false, nil
	}
	if !src.ReadyForSync() {
		return false, nil
	}
	src.Status = model.StatusSyncing
	return true, nil
}

func (s *MemStore) CompleteSync(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("unknown data source: %s", id)
	}
	src.Status = model.StatusCompleted
	t := at
	src.LastSynced = &t
	return nil
}

func (s *MemStore) GetDataFile(_ context.Context, sourceID, path string) (*model.DataFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, df := range s.files {
		if df.SourceID == sourceID && df.Path == path {
			return copyFile(df), nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListDataFiles(_ context.Context, sourceID string) ([]*model.DataFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var files []*model.DataFile
	for _, df := range s.files {
		if df.SourceID == sourceID {
			files = append(files, copyFile(df))
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *MemStore) CreateDataFiles(_ context.Context, files []*model.DataFile) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, df := range files {
		for _, existing := range s.files {
			if existing.SourceID == df.SourceID && existing.Path == df.Path {
				return 0, fmt.Errorf("duplicate path for source: %s", df.Path)
			}
		}
		s.files[df.ID] = copyFile(df)
	}
	return len(files), nil
}

func (s *MemStore) UpdateDataFiles(_ context.Context, files []*model.DataFile) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, df := range files {
		existing, ok := s.files[df.ID]
		if !ok {
			return 0, fmt.Errorf("unknown data file: %s", df.ID)
		}
		existing.LastUpdated = df.LastUpdated
		existing.Size = df.Size
		existing.Hash = df.Hash
		existing.Data = append([]byte(nil), df.Data...)
	}
	return len(files), nil
}

func (s *MemStore) DeleteDataFiles(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := s.files[id]; ok {
			delete(s.files, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemStore) Close() error { return nil }

func copySource(src *model.DataSource) *model.DataSource {
	cp := *src
	if src.LastSynced != nil {
		t := *src.LastSynced
		cp.LastSynced = &t
	}
	if src.Parameters != nil {
		cp.Parameters = make(map[string]string, len(src.Parameters))
		for k, v := range src.Parameters {
			cp.Parameters[k] = v
		}
	}
	return &cp
}

func copyFile(df *model.DataFile) *model.DataFile {
	cp := *df
	cp.Data = append([]byte(nil), df.Data...)
	return &cp
}

// Compile-time check that MemStore implements core.Store
var _ core.Store = (*MemStore)(nil)
