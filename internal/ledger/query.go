package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

// Pass is a stored pass outcome.
type Pass struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
	Summary   sync.Summary
	Fatal     string
	Errors    []string
}

// RecentPages returns the most recently synced pages, newest first.
func (l *Ledger) RecentPages(ctx context.Context, limit int) ([]sync.CreatedPage, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT stable_id, page_id, recording_id, title, recording_created_at, synced_at, run_id
	FROM synced_pages
	ORDER BY synced_at DESC, stable_id
	LIMIT ?
	`
	rows, err := l.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query synced pages: %w", err)
	}
	defer rows.Close()

	var pages []sync.CreatedPage
	for rows.Next() {
		var page sync.CreatedPage
		var createdAt, syncedAt string
		if err := rows.Scan(&page.StableID, &page.PageID, &page.RecordingID, &page.Title,
			&createdAt, &syncedAt, &page.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan synced page: %w", err)
		}
		page.RecordingCreatedAt = parseTime(createdAt)
		page.SyncedAt = parseTime(syncedAt)
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating synced pages: %w", err)
	}
	return pages, nil
}

// RecentPasses returns the most recent passes, newest first.
func (l *Ledger) RecentPasses(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT run_id, started_at, duration_ms, dry_run, created, skipped_duplicate, pending, failed, fatal, errors
	FROM passes
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := l.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []Pass
	for rows.Next() {
		var p Pass
		var startedAt string
		var durationMs int64
		var fatal, errs sql.NullString
		if err := rows.Scan(&p.RunID, &startedAt, &durationMs, &p.DryRun,
			&p.Summary.Created, &p.Summary.SkippedDuplicate, &p.Summary.Pending, &p.Summary.Failed,
			&fatal, &errs); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		p.StartedAt = parseTime(startedAt)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		p.Fatal = fatal.String
		if errs.Valid && errs.String != "" {
			p.Errors = strings.Split(errs.String, "\n")
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passes: %w", err)
	}
	return passes, nil
}

// PageCount returns the number of pages in the ledger.
func (l *Ledger) PageCount(ctx context.Context) (int, error) {
	var count int
	if err := l.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM synced_pages").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count synced pages: %w", err)
	}
	return count, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
