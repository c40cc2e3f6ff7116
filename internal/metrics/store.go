package metrics

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	counterStarted   = "downloads_started"
	counterSucceeded = "downloads_succeeded"
	counterFailed    = "downloads_failed"
)

// writeTimeout bounds a single counter write; Sink methods carry no context.
const writeTimeout = 5 * time.Second

// Store persists counters in SQLite so totals survive restarts.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// OpenStore initializes or connects to the metrics database at path and
// applies migrations.
func OpenStore(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure metrics dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logger}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DownloadStarted() {
	s.bump(counterStarted)
}

func (s *Store) DownloadFinished(ok bool) {
	if ok {
		s.bump(counterSucceeded)
	} else {
		s.bump(counterFailed)
	}
}

func (s *Store) ImageOptimized(originalSize, compressedSize int64) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO image_events (original_size, compressed_size, created_at) VALUES (?, ?, ?)`,
		originalSize, compressedSize, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("record image event")
	}
}

// Totals returns the persisted counters. LiveDownloads is always zero; the
// live gauge is process local.
func (s *Store) Totals(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return snap, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return snap, fmt.Errorf("scan counter: %w", err)
		}
		switch name {
		case counterStarted:
			snap.DownloadsStarted = value
		case counterSucceeded:
			snap.DownloadsSucceeded = value
		case counterFailed:
			snap.DownloadsFailed = value
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate counters: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(CASE WHEN original_size > compressed_size
                                 THEN original_size - compressed_size ELSE 0 END), 0)
        FROM image_events`)
	if err := row.Scan(&snap.ImagesOptimized, &snap.BytesSaved); err != nil {
		return snap, fmt.Errorf("scan image totals: %w", err)
	}
	return snap, nil
}

func (s *Store) bump(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO counters (name, value, updated_at) VALUES (?, 1, ?)
         ON CONFLICT(name) DO UPDATE SET value = value + 1, updated_at = excluded.updated_at`,
		name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("counter", name).Msg("bump counter")
	}
}

type migration struct {
	version string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		versions = append(versions, entry.Name())
	}
	sort.Strings(versions)

	migrations := make([]migration, 0, len(versions))
	for _, name := range versions {
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{version: strings.TrimSuffix(name, ".sql"), sql: string(data)})
	}
	return migrations, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
