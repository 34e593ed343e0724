package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("date", func(t *testing.T) {
		got, err := parseSince("2025-03-01", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseSince("2025-03-01T08:30:00+01:00", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 7, 30, 0, 0, time.UTC), got)
	})

	t.Run("natural", func(t *testing.T) {
		got, err := parseSince("yesterday", now)
		require.NoError(t, err)
		assert.True(t, got.Before(now))
		assert.True(t, got.After(now.Add(-48*time.Hour)))
		assert.Equal(t, time.UTC, got.Location())
	})

	for _, bad := range []string{"", "   ", "not a time at all"} {
		_, err := parseSince(bad, now)
		assert.Error(t, err, "input %q", bad)
	}

	_, err := parseSince("tomorrow", now)
	assert.ErrorContains(t, err, "future")
}
