// Package ledger keeps a local SQLite history of sync passes and the pages
// they created.
//
// The ledger is informational. Duplicate detection always asks the
// destination database; the ledger only answers "what happened recently"
// for the history command and the dashboard.
//
// The database is embedded SQLite in WAL mode so the daemon can write while
// the CLI reads.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

const timeLayout = time.RFC3339Nano

// Ledger wraps the SQLite connection.
type Ledger struct {
	conn *sql.DB
	path string
}

var _ sync.Recorder = (*Ledger)(nil)

// Open opens (creating if needed) the ledger at path and initializes the
// schema. The caller must call Close.
//
// Example:
//
//	l, err := ledger.Open(config.LedgerPath())
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	l := &Ledger{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := l.InitSchema(); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file.
func (l *Ledger) Path() string {
	return l.path
}

// Close checkpoints the WAL and closes the connection.
func (l *Ledger) Close() error {
	if l.conn == nil {
		return nil
	}
	if _, err := l.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint ledger WAL: %v\n", err)
	}
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	l.conn = nil
	return nil
}

// InitSchema creates the tables if they don't exist. Safe to call more
// than once.
func (l *Ledger) InitSchema() error {
	return l.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the tables with context support.
func (l *Ledger) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS synced_pages (
		stable_id TEXT PRIMARY KEY,
		page_id TEXT NOT NULL,
		recording_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		recording_created_at TEXT NOT NULL,
		synced_at TEXT NOT NULL,
		run_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS passes (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		dry_run INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		skipped_duplicate INTEGER NOT NULL DEFAULT 0,
		pending INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		fatal TEXT,
		errors TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_synced_pages_synced_at ON synced_pages(synced_at);
	CREATE INDEX IF NOT EXISTS idx_passes_started_at ON passes(started_at);
	`
	if _, err := l.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return nil
}

// RecordCreated stores a created page. A repeated stable id replaces the
// earlier row.
func (l *Ledger) RecordCreated(ctx context.Context, page sync.CreatedPage) error {
	query := `
	INSERT INTO synced_pages (stable_id, page_id, recording_id, title, recording_created_at, synced_at, run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(stable_id) DO UPDATE SET
		page_id = excluded.page_id,
		recording_id = excluded.recording_id,
		title = excluded.title,
		recording_created_at = excluded.recording_created_at,
		synced_at = excluded.synced_at,
		run_id = excluded.run_id
	`
	_, err := l.conn.ExecContext(ctx, query,
		page.StableID,
		page.PageID,
		page.RecordingID,
		page.Title,
		page.RecordingCreatedAt.UTC().Format(timeLayout),
		page.SyncedAt.UTC().Format(timeLayout),
		page.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", page.StableID, err)
	}
	return nil
}

// RecordPass stores the outcome of a pass.
func (l *Ledger) RecordPass(ctx context.Context, result *sync.Result) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	var fatal sql.NullString
	if result.Fatal != nil {
		fatal = sql.NullString{String: result.Fatal.Error(), Valid: true}
	}
	var errs sql.NullString
	if len(result.Errors) > 0 {
		lines := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			lines[i] = e.Error()
		}
		errs = sql.NullString{String: strings.Join(lines, "\n"), Valid: true}
	}

	query := `
	INSERT OR REPLACE INTO passes
		(run_id, started_at, duration_ms, dry_run, created, skipped_duplicate, pending, failed, fatal, errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.conn.ExecContext(ctx, query,
		result.RunID,
		result.StartedAt.UTC().Format(timeLayout),
		result.Duration.Milliseconds(),
		result.DryRun,
		result.Created,
		result.SkippedDuplicate,
		result.Pending,
		result.Failed,
		fatal,
		errs,
	)
	if err != nil {
		return fmt.Errorf("failed to record pass %s: %w", result.RunID, err)
	}
	return nil
}
