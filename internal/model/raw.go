package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecording is the recording payload returned by the Pocket API detail
// endpoint. Fields whose shape varies between API versions are kept as raw
// JSON and interpreted leniently by BuildRecording.
type RawRecording struct {
	ID              string                     `json:"id"`
	Title           string                     `json:"title"`
	Name            string                     `json:"name"`
	URL             string                     `json:"url"`
	CreatedAt       string                     `json:"createdAt"`
	CreatedAtSnake  string                     `json:"created_at"`
	Duration        json.RawMessage            `json:"duration"`
	DurationSeconds json.RawMessage            `json:"durationSeconds"`
	Tags            []json.RawMessage          `json:"tags"`
	Transcript      json.RawMessage            `json:"transcript"`
	Summarizations  map[string]json.RawMessage `json:"summarizations"`
}

// Summarization keys used by the Pocket API.
const (
	SummaryKey     = "v2_summary"
	ActionItemsKey = "v2_action_items"
	MindMapKey     = "v2_mind_map"
)

type rawSummary struct {
	Markdown string `json:"markdown"`
	Summary  string `json:"summary"`
}

type rawActionItems struct {
	Actions []json.RawMessage `json:"actions"`
}

type rawAction struct {
	Label    string `json:"label"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	DueDate  string `json:"dueDate"`
	Assignee string `json:"assignee"`
	Context  string `json:"context"`
	Type     string `json:"type"`
}

type rawMindMap struct {
	Nodes []json.RawMessage `json:"nodes"`
}

type rawMindMapNode struct {
	NodeID       string `json:"node_id"`
	ParentNodeID string `json:"parent_node_id"`
	Title        string `json:"title"`
}

type rawTag struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type rawTranscript struct {
	Text string `json:"text"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeString accepts a JSON string and returns ok=false for anything else.
func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// decodeSeconds accepts a number or a numeric string.
func decodeSeconds(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}
	if s, ok := decodeString(raw); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}
