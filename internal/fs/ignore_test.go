package fs_test

import (
	"testing"

	"dsync/internal/fs"
)

func TestIgnoreMatcher_ShouldIgnore(t *testing.T) {
	t.Parallel()

	t.Run("dotfiles are always ignored", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("")
		if !m.ShouldIgnore(".cache") {
			t.Error("ShouldIgnore(.cache) = false, want true")
		}
		if !m.ShouldIgnore(".hidden") {
			t.Error("ShouldIgnore(.hidden) = false, want true")
		}
	})

	t.Run("dotfiles are ignored regardless of rules", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("*.txt")
		if !m.ShouldIgnore(".cache") {
			t.Error("ShouldIgnore(.cache) = false, want true")
		}
	})

	t.Run("glob pattern matches basename", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("*.txt")
		if !m.ShouldIgnore("notes.txt") {
			t.Error("ShouldIgnore(notes.txt) = false, want true")
		}
		if m.ShouldIgnore("notes.md") {
			t.Error("ShouldIgnore(notes.md) = true, want false")
		}
	})

	t.Run("matching is case-sensitive", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("*.txt")
		if m.ShouldIgnore("notes.TXT") {
			t.Error("ShouldIgnore(notes.TXT) = true, want false")
		}
	})

	t.Run("any rule line may match", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("*.tmp\n*.bak\nREADME")
		for _, name := range []string{"a.tmp", "b.bak", "README"} {
			if !m.ShouldIgnore(name) {
				t.Errorf("ShouldIgnore(%s) = false, want true", name)
			}
		}
		if m.ShouldIgnore("README.md") {
			t.Error("ShouldIgnore(README.md) = true, want false")
		}
	})

	t.Run("question mark and character class globs", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("file?.log\ndata[0-9].csv")
		if !m.ShouldIgnore("file1.log") {
			t.Error("ShouldIgnore(file1.log) = false, want true")
		}
		if m.ShouldIgnore("file12.log") {
			t.Error("ShouldIgnore(file12.log) = true, want false")
		}
		if !m.ShouldIgnore("data7.csv") {
			t.Error("ShouldIgnore(data7.csv) = false, want true")
		}
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("\n\n*.tmp\n\n")
		if !m.ShouldIgnore("a.tmp") {
			t.Error("ShouldIgnore(a.tmp) = false, want true")
		}
		if m.ShouldIgnore("a.txt") {
			t.Error("ShouldIgnore(a.txt) = true, want false")
		}
	})

	t.Run("bad pattern is skipped", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("[unclosed\n*.tmp")
		if !m.ShouldIgnore("a.tmp") {
			t.Error("ShouldIgnore(a.tmp) = false, want true")
		}
		if m.ShouldIgnore("unclosed") {
			t.Error("ShouldIgnore(unclosed) = true, want false")
		}
	})

	t.Run("no rules ignores nothing but dotfiles", func(t *testing.T) {
		m := fs.NewIgnoreMatcher("")
		if m.ShouldIgnore("regular.txt") {
			t.Error("ShouldIgnore(regular.txt) = true, want false")
		}
	})
}
