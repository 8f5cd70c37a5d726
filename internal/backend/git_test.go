package backend_test

import (
	"testing"

	"dsync/internal/backend"
)

func TestNewGitBackend(t *testing.T) {
	t.Parallel()

	t.Run("no parameters", func(t *testing.T) {
		if _, err := backend.NewGitBackend("https://github.com/org/repo", nil); err != nil {
			t.Errorf("NewGitBackend() error = %v", err)
		}
	})

	t.Run("all recognized parameters", func(t *testing.T) {
		params := map[string]string{
			"branch":   "develop",
			"username": "deploy",
			"password": "secret",
			"depth":    "5",
		}
		if _, err := backend.NewGitBackend("https://github.com/org/repo", params); err != nil {
			t.Errorf("NewGitBackend() error = %v", err)
		}
	})

	t.Run("unknown parameter is rejected", func(t *testing.T) {
		params := map[string]string{"refspec": "main"}
		if _, err := backend.NewGitBackend("https://github.com/org/repo", params); err == nil {
			t.Error("NewGitBackend() expected error for unknown parameter")
		}
	})

	t.Run("non-numeric depth is rejected", func(t *testing.T) {
		params := map[string]string{"depth": "shallow"}
		if _, err := backend.NewGitBackend("https://github.com/org/repo", params); err == nil {
			t.Error("NewGitBackend() expected error for bad depth")
		}
	})

	t.Run("negative depth is rejected", func(t *testing.T) {
		params := map[string]string{"depth": "-1"}
		if _, err := backend.NewGitBackend("https://github.com/org/repo", params); err == nil {
			t.Error("NewGitBackend() expected error for negative depth")
		}
	})
}
