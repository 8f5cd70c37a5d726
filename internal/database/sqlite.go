package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dsync/internal/core"
	"dsync/internal/database/migrations"
	"dsync/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the core.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:   db,
		path: path,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// Enable foreign key constraints (SQLite default is OFF for backward
	// compatibility); data file cascade deletion relies on them. The DSN
	// parameter applies to every pooled connection, unlike a one-off PRAGMA.
	dsn := path + "?_foreign_keys=on"
	if strings.Contains(path, "?") {
		dsn = path + "&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; cap the pool at one so
	// every query sees the same database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Data source operations

const sourceColumns = "id, name, type, source_url, status, enabled, ignore_rules, parameters, last_synced, created"

func (s *SQLiteStore) CreateDataSource(ctx context.Context, src *model.DataSource) error {
	if err := src.Validate(); err != nil {
		return err
	}

	params, err := marshalParameters(src.Parameters)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO data_sources (`+sourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, string(src.Type), src.SourceURL, string(src.Status),
		src.Enabled, src.IgnoreRules, params, nullTime(src.LastSynced), src.Created,
	)
	if err != nil {
		return fmt.Errorf("creating data source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM data_sources WHERE id = ?`, id)
	return scanDataSource(row)
}

func (s *SQLiteStore) GetDataSourceByName(ctx context.Context, name string) (*model.DataSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM data_sources WHERE name = ?`, name)
	return scanDataSource(row)
}

func (s *SQLiteStore) ListDataSources(ctx context.Context) ([]*model.DataSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM data_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing data sources: %w", err)
	}
	defer rows.Close()

	var sources []*model.DataSource
	for rows.Next() {
		src, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing data sources: %w", err)
	}
	return sources, nil
}

func (s *SQLiteStore) DeleteDataSource(ctx context.Context, id string) error {
	// Data files cascade via the foreign key.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM data_sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting data source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET enabled = ? WHERE id = ?`, enabled, id); err != nil {
		return fmt.Errorf("updating enabled flag: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status model.SourceStatus) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return nil
}

// BeginSync claims the syncing state with a single conditional update. The
// WHERE clause re-checks the readiness gate so two racing sync requests
// cannot both pass; exactly one sees an affected row.
func (s *SQLiteStore) BeginSync(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET status = ?
		 WHERE id = ? AND enabled = 1 AND status NOT IN (?, ?)`,
		string(model.StatusSyncing), id,
		string(model.StatusQueued), string(model.StatusSyncing),
	)
	if err != nil {
		return false, fmt.Errorf("claiming sync: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming sync: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) CompleteSync(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET status = ?, last_synced = ? WHERE id = ?`,
		string(model.StatusCompleted), at, id)
	if err != nil {
		return fmt.Errorf("completing sync: %w", err)
	}
	return nil
}

// Data file operations

const fileColumns = "id, source_id, path, size, hash, data, created, last_updated"

func (s *SQLiteStore) GetDataFile(ctx context.Context, sourceID, path string) (*model.DataFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM data_files WHERE source_id = ? AND path = ?`,
		sourceID, path)

	df, err := scanDataFile(row)
	if err != nil {
		return nil, err
	}
	return df, nil
}

func (s *SQLiteStore) ListDataFiles(ctx context.Context, sourceID string) ([]*model.DataFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM data_files WHERE source_id = ? ORDER BY path`,
		sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing data files: %w", err)
	}
	defer rows.Close()

	var files []*model.DataFile
	for rows.Next() {
		df, err := scanDataFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, df)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing data files: %w", err)
	}
	return files, nil
}

func (s *SQLiteStore) CreateDataFiles(ctx context.Context, files []*model.DataFile) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO data_files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, df := range files {
		_, err := stmt.ExecContext(ctx,
			df.ID, df.SourceID, df.Path, df.Size, df.Hash, df.Data, df.Created, df.LastUpdated)
		if err != nil {
			return 0, fmt.Errorf("inserting data file %s: %w", df.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(files), nil
}

func (s *SQLiteStore) UpdateDataFiles(ctx context.Context, files []*model.DataFile) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE data_files SET last_updated = ?, size = ?, hash = ?, data = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()

	for _, df := range files {
		_, err := stmt.ExecContext(ctx, df.LastUpdated, df.Size, df.Hash, df.Data, df.ID)
		if err != nil {
			return 0, fmt.Errorf("updating data file %s: %w", df.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(files), nil
}

func (s *SQLiteStore) DeleteDataFiles(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM data_files WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting data files: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting data files: %w", err)
	}
	return int(n), nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate brings the database schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDataSource(row scanner) (*model.DataSource, error) {
	var src model.DataSource
	var typ, status, params string
	var lastSynced sql.NullTime

	err := row.Scan(&src.ID, &src.Name, &typ, &src.SourceURL, &status,
		&src.Enabled, &src.IgnoreRules, &params, &lastSynced, &src.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("scanning data source: %w", err)
	}

	src.Type = model.SourceType(typ)
	src.Status = model.SourceStatus(status)
	if lastSynced.Valid {
		t := lastSynced.Time
		src.LastSynced = &t
	}
	if err := json.Unmarshal([]byte(params), &src.Parameters); err != nil {
		return nil, fmt.Errorf("decoding backend parameters: %w", err)
	}
	return &src, nil
}

func scanDataFile(row scanner) (*model.DataFile, error) {
	var df model.DataFile
	err := row.Scan(&df.ID, &df.SourceID, &df.Path, &df.Size, &df.Hash,
		&df.Data, &df.Created, &df.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("scanning data file: %w", err)
	}
	return &df, nil
}

func marshalParameters(params map[string]string) (string, error) {
	if params == nil {
		return "{}", nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encoding backend parameters: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Compile-time check that SQLiteStore implements core.Store
var _ core.Store = (*SQLiteStore)(nil)
