package backend

import (
	"fmt"

	"dsync/internal/core"
	"dsync/internal/model"
)

// New resolves the Backend implementation for a data source's type.
// It satisfies core.BackendFactory.
func New(src *model.DataSource) (core.Backend, error) {
	switch src.Type {
	case model.SourceTypeLocal:
		return NewLocalBackend(src.SourceURL)
	case model.SourceTypeGit:
		return NewGitBackend(src.SourceURL, src.Parameters)
	case model.SourceTypeS3:
		return NewS3Backend(src.SourceURL, src.Parameters)
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
