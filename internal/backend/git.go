package backend

import (
	"context"
	"fmt"
	"os"
	"strconv"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"dsync/internal/core"
)

// GitBackend clones a git repository into a temporary directory for the
// duration of one sync pass.
//
// Recognized parameters: branch, username, password, depth.
type GitBackend struct {
	url      string
	branch   string
	username string
	password string
	depth    int
}

// NewGitBackend validates the backend parameters and constructs a GitBackend.
// Unknown parameter keys are rejected.
func NewGitBackend(sourceURL string, params map[string]string) (*GitBackend, error) {
	b := &GitBackend{
		url:   sourceURL,
		depth: 1,
	}
	for key, value := range params {
		switch key {
		case "branch":
			b.branch = value
		case "username":
			b.username = value
		case "password":
			b.password = value
		case "depth":
			depth, err := strconv.Atoi(value)
			if err != nil || depth < 0 {
				return nil, fmt.Errorf("invalid depth parameter: %q", value)
			}
			b.depth = depth
		default:
			return nil, fmt.Errorf("unknown git backend parameter: %s", key)
		}
	}
	return b, nil
}

// Fetch clones the repository into a temp directory. The replica's Close
// removes the clone.
func (b *GitBackend) Fetch(ctx context.Context) (*core.Replica, error) {
	dir, err := os.MkdirTemp("", "dsync-git-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:          b.url,
		Depth:        b.depth,
		SingleBranch: true,
	}
	if b.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(b.branch)
	}
	if b.username != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: b.username,
			Password: b.password,
		}
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", b.url, err)
	}

	return core.NewReplica(dir, func() error {
		return os.RemoveAll(dir)
	}), nil
}

// Compile-time check that GitBackend implements core.Backend
var _ core.Backend = (*GitBackend)(nil)
