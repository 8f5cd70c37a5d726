package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// SourceType identifies the backend used to fetch a data source's content.
type SourceType string

const (
	SourceTypeLocal SourceType = "local"
	SourceTypeGit   SourceType = "git"
	SourceTypeS3    SourceType = "s3"
)

// KnownSourceTypes lists every source type with a backend implementation.
var KnownSourceTypes = []SourceType{SourceTypeLocal, SourceTypeGit, SourceTypeS3}

// SourceStatus tracks the synchronization state of a data source.
// Transitions are owned exclusively by the sync orchestration.
type SourceStatus string

const (
	StatusNew       SourceStatus = "new"
	StatusQueued    SourceStatus = "queued"
	StatusSyncing   SourceStatus = "syncing"
	StatusCompleted SourceStatus = "completed"
	StatusFailed    SourceStatus = "failed"
)

// DataSource is a remote or local origin, such as a git repository, from
// which DataFiles are synchronized.
type DataSource struct {
	ID          string // UUID
	Name        string // Unique
	Type        SourceType
	SourceURL   string
	Status      SourceStatus
	Enabled     bool
	IgnoreRules string            // Glob patterns, one per line, matched against file basenames
	Parameters  map[string]string // Backend-specific parameters
	LastSynced  *time.Time
	Created     time.Time
}

// URLScheme returns the lowercased scheme of the source URL, or "" if the
// URL has no scheme or cannot be parsed.
func (s *DataSource) URLScheme() string {
	u, err := url.Parse(s.SourceURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// ReadyForSync reports whether a sync may be initiated: the source must be
// enabled and must not already be queued or mid-sync.
func (s *DataSource) ReadyForSync() bool {
	return s.Enabled && s.Status != StatusQueued && s.Status != StatusSyncing
}

// Validate checks the data source's invariants. It is called before the
// record is persisted.
func (s *DataSource) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("data source name is required")
	}
	if !knownType(s.Type) {
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
	if s.SourceURL == "" {
		return fmt.Errorf("source URL is required")
	}
	// Local sources must use file:// or omit the scheme entirely.
	if s.Type == SourceTypeLocal {
		if scheme := s.URLScheme(); scheme != "" && scheme != "file" {
			return fmt.Errorf("URLs for local sources must start with file:// (or omit the scheme)")
		}
	}
	return nil
}

func knownType(t SourceType) bool {
	for _, k := range KnownSourceTypes {
		if t == k {
			return true
		}
	}
	return false
}

// hashPattern matches a SHA-256 digest in lowercase hex.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// DataFile is the stored representation of one file fetched from a data
// source. DataFiles are created, updated, and deleted only by the owning
// source's sync operation.
type DataFile struct {
	ID          string // UUID
	SourceID    string // Foreign key to DataSource; immutable
	Path        string // Path relative to the source root, '/'-separated; immutable
	Size        int64  // Size in bytes
	Hash        string // SHA-256 of Data, lowercase hex
	Data        []byte // Raw file content
	Created     time.Time
	LastUpdated time.Time
}

// Validate checks the data file's invariants. It is called before new
// records are staged for bulk creation.
func (f *DataFile) Validate() error {
	if f.SourceID == "" {
		return fmt.Errorf("data file has no owning source")
	}
	if f.Path == "" {
		return fmt.Errorf("data file path is required")
	}
	if !hashPattern.MatchString(f.Hash) {
		return fmt.Errorf("invalid hash %q: length must be 64 hexadecimal characters", f.Hash)
	}
	if f.Size < 0 {
		return fmt.Errorf("data file size cannot be negative")
	}
	return nil
}

// Text returns the file content decoded as UTF-8. The second return value
// is false when the content is not valid UTF-8 text.
func (f *DataFile) Text() (string, bool) {
	if !utf8.Valid(f.Data) {
		return "", false
	}
	return string(f.Data), true
}

// Parse reads the file content as YAML (a superset of JSON) and returns the
// native value. A decode failure is returned to the caller; it never affects
// the stored record.
func (f *DataFile) Parse() (any, error) {
	text, ok := f.Text()
	if !ok {
		return nil, fmt.Errorf("file %s does not contain text", f.Path)
	}
	var value any
	if err := yaml.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return value, nil
}
