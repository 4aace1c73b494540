package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultFileName is the database file created under the data directory.
const DefaultFileName = "docchat.db"

// Store owns the SQLite database and hands out stores backed by it.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database in dataDir and applies migrations.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DefaultFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// TrackerStore returns a TrackerStore backed by this store. Embedding and
// index sets are scoped by model.
func (s *Store) TrackerStore(model string) driven.TrackerStore {
	return &trackerStore{store: s, model: model}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := migrations.Up(fsys)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if m.Version <= currentVersion {
			continue
		}
		if err := s.apply(m.Version, m.SQL); err != nil {
			return fmt.Errorf("executing migration %s: %w", m.Name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, stmt string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	if _, err := tx.Exec(stmt); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Tracker Store ====================

// trackerStore implements driven.TrackerStore.
type trackerStore struct {
	store *Store
	model string
}

var _ driven.TrackerStore = (*trackerStore)(nil)

// scope partitions model-dependent stages by embedding model.
func (t *trackerStore) scope(stage domain.Stage) string {
	switch stage {
	case domain.StageEmbedding, domain.StageIndex:
		return t.model
	default:
		return ""
	}
}

// Load returns the ids recorded for a stage, sorted.
func (t *trackerStore) Load(ctx context.Context, stage domain.Stage) ([]string, error) {
	rows, err := t.store.db.QueryContext(ctx,
		"SELECT item_id FROM processed_items WHERE stage = ? AND scope = ? ORDER BY item_id",
		string(stage), t.scope(stage))
	if err != nil {
		return nil, fmt.Errorf("querying %s tracker: %w", stage, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning %s tracker: %w", domain.ErrTrackerCorrupt, stage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s tracker: %w", stage, err)
	}
	return ids, nil
}

// Save replaces the ids for a stage in one transaction.
func (t *trackerStore) Save(ctx context.Context, stage domain.Stage, ids []string) error {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	scope := t.scope(stage)
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM processed_items WHERE stage = ? AND scope = ?", string(stage), scope); err != nil {
		return fmt.Errorf("clearing %s tracker: %w", stage, err)
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO processed_items (stage, scope, item_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()

	for _, id := range ids {
		if _, err := insert.ExecContext(ctx, string(stage), scope, id); err != nil {
			return fmt.Errorf("inserting %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s tracker: %w", stage, err)
	}
	return nil
}
