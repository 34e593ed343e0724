package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, payload string) *RawRecording {
	t.Helper()
	var raw RawRecording
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return &raw
}

func TestBuildRecordingFullPayload(t *testing.T) {
	raw := decodeRaw(t, `{
		"id": "rec-1",
		"title": "Weekly sync",
		"createdAt": "2025-01-15T10:30:00Z",
		"duration": 125,
		"tags": ["Work", {"name": "meeting"}, {"label": "q1"}, null, 7],
		"transcript": {"text": "hello world"},
		"summarizations": {
			"v2_summary": {"markdown": "### Notes\n- one"},
			"v2_action_items": {"actions": [
				{"label": "Send deck", "priority": "high", "dueDate": "2025-01-20", "assignee": "sam", "context": "Q1 plan", "type": "CreateReminder"},
				{"label": ""},
				"garbage"
			]},
			"v2_mind_map": {"nodes": [
				{"node_id": "a", "parent_node_id": "a", "title": "Root"},
				{"node_id": "b", "parent_node_id": "a", "title": "Child"}
			]}
		}
	}`)

	rec, err := BuildRecording(raw)
	require.NoError(t, err)

	due := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	want := &Recording{
		ID:         "rec-1",
		Title:      "Weekly sync",
		CreatedAt:  time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Duration:   125,
		Tags:       []string{"Work", "meeting", "q1"},
		Summary:    "### Notes\n- one",
		Transcript: "hello world",
		SourceURL:  "https://heypocket.com/recordings/rec-1",
		ActionItems: []ActionItem{{
			Label: "Send deck", Assignee: "sam", Context: "Q1 plan",
			DueDate: &due, Priority: PriorityHigh, Kind: "CreateReminder",
		}},
		MindMap: []MindMapNode{
			{ID: "a", ParentID: "a", Title: "Root"},
			{ID: "b", ParentID: "a", Title: "Child"},
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("BuildRecording mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecordingOptionalFieldsAbsent(t *testing.T) {
	raw := decodeRaw(t, `{"id": "rec-2", "created_at": "2025-01-15T10:30:00", "durationSeconds": "42.7", "transcript": "plain"}`)

	rec, err := BuildRecording(raw)
	require.NoError(t, err)
	assert.Equal(t, "rec-2", rec.ID)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Equal(t, 42, rec.Duration)
	assert.Equal(t, "plain", rec.Transcript)
	assert.Empty(t, rec.Summary)
	assert.Empty(t, rec.ActionItems)
	assert.Empty(t, rec.MindMap)
	assert.False(t, rec.IsProcessingComplete())
}

func TestBuildRecordingUnexpectedShapesDegrade(t *testing.T) {
	raw := decodeRaw(t, `{
		"id": "rec-3",
		"createdAt": "2025-01-15T10:30:00+02:00",
		"duration": -5,
		"summarizations": {"v2_summary": "plain summary", "v2_action_items": [1, 2], "v2_mind_map": "none"}
	}`)

	rec, err := BuildRecording(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC), rec.CreatedAt)
	assert.Equal(t, 0, rec.Duration)
	assert.Equal(t, "plain summary", rec.Summary)
	assert.Nil(t, rec.ActionItems)
	assert.Nil(t, rec.MindMap)
}

func TestBuildRecordingMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   *RawRecording
		field string
	}{
		{"nil payload", nil, "id"},
		{"missing id", &RawRecording{CreatedAt: "2025-01-01T00:00:00Z"}, "id"},
		{"blank id", &RawRecording{ID: "  ", CreatedAt: "2025-01-01T00:00:00Z"}, "id"},
		{"missing createdAt", &RawRecording{ID: "x"}, "createdAt"},
		{"bad createdAt", &RawRecording{ID: "x", CreatedAt: "yesterday"}, "createdAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := BuildRecording(tt.raw)
			require.Error(t, err)
			assert.Nil(t, rec)

			var malformed *MalformedDataError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}
