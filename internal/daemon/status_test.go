package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

func TestStatusRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "daemon_status.json")
	last := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	next := last.Add(15 * time.Minute)

	in := Status{
		State:               StateSuccessWait,
		PID:                 42,
		IntervalSeconds:     900,
		LastSyncAt:          &last,
		NextSyncAt:          &next,
		LastResult:          &sync.Summary{Created: 1, SkippedDuplicate: 2},
		ConsecutiveFailures: 0,
	}
	require.NoError(t, WriteStatus(path, in))

	out, err := ReadStatus(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 15*time.Minute, out.Interval())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"state"`, `"lastSyncAt"`, `"nextSyncAt"`, `"lastResult"`, `"skippedDuplicate"`, `"consecutiveFailures"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestReadStatusMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	status, err := ReadStatus(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadStatus(bad)
	assert.Error(t, err)
}

func TestWatchStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon_status.json")
	require.NoError(t, WriteStatus(path, Status{State: StateIdle}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Status, 16)
	done := make(chan error, 1)
	go func() {
		done <- WatchStatus(ctx, path, func(s Status) { updates <- s })
	}()

	select {
	case s := <-updates:
		assert.Equal(t, StateIdle, s.State)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial status")
	}

	require.NoError(t, WriteStatus(path, Status{State: StateRunning}))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-updates:
			if s.State == StateRunning {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("status change not observed")
		}
	}
}
