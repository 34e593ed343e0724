package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenCreatesSchema(t *testing.T) {
	l := openTestLedger(t)

	for _, table := range []string{"synced_pages", "passes"} {
		var count int
		err := l.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	require.NoError(t, l.InitSchema(), "schema init is idempotent")
}

func TestRecordCreatedUpserts(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	page := sync.CreatedPage{
		RunID:              "run-1",
		StableID:           "pocket:recording:a",
		PageID:             "page-1",
		RecordingID:        "a",
		Title:              "Standup",
		RecordingCreatedAt: base,
		SyncedAt:           base.Add(time.Hour),
	}
	require.NoError(t, l.RecordCreated(ctx, page))

	page.PageID = "page-2"
	page.SyncedAt = base.Add(2 * time.Hour)
	require.NoError(t, l.RecordCreated(ctx, page))

	require.NoError(t, l.RecordCreated(ctx, sync.CreatedPage{
		RunID:              "run-1",
		StableID:           "pocket:recording:b",
		PageID:             "page-3",
		RecordingID:        "b",
		RecordingCreatedAt: base,
		SyncedAt:           base.Add(30 * time.Minute),
	}))

	count, err := l.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pages, err := l.RecentPages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, page, pages[0])
	assert.Equal(t, "pocket:recording:b", pages[1].StableID)

	limited, err := l.RecentPages(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordPass(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordPass(ctx, &sync.Result{
		RunID:     "ok",
		StartedAt: start,
		Duration:  1500 * time.Millisecond,
		Created:   2,
		Pending:   1,
	}))
	require.NoError(t, l.RecordPass(ctx, &sync.Result{
		RunID:     "bad",
		StartedAt: start.Add(time.Minute),
		Failed:    1,
		Fatal:     errors.New("list failed: boom"),
		Errors: []sync.ItemError{
			{Stage: sync.StageList, Err: errors.New("boom")},
		},
	}))

	passes, err := l.RecentPasses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, passes, 2)

	assert.Equal(t, "bad", passes[0].RunID)
	assert.Equal(t, "list failed: boom", passes[0].Fatal)
	assert.Equal(t, []string{"list: boom"}, passes[0].Errors)

	assert.Equal(t, "ok", passes[1].RunID)
	assert.Equal(t, start, passes[1].StartedAt)
	assert.Equal(t, 1500*time.Millisecond, passes[1].Duration)
	assert.Equal(t, sync.Summary{Created: 2, Pending: 1}, passes[1].Summary)
	assert.Empty(t, passes[1].Errors)

	assert.Error(t, l.RecordPass(ctx, nil))
}

func TestCloseTwice(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
