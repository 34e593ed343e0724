package model

import (
	"encoding/json"
	"strings"
)

// BuildRecording maps a raw payload onto a Recording.
//
// Only the id and creation timestamp are mandatory; a missing or unparsable
// value for either yields a *MalformedDataError. Every other field degrades
// to its zero value when absent or of an unexpected shape.
func BuildRecording(raw *RawRecording) (*Recording, error) {
	if raw == nil {
		return nil, &MalformedDataError{Field: "id", Reason: "missing"}
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, &MalformedDataError{Field: "id", Reason: "missing"}
	}

	createdRaw := raw.CreatedAt
	if createdRaw == "" {
		createdRaw = raw.CreatedAtSnake
	}
	if strings.TrimSpace(createdRaw) == "" {
		return nil, &MalformedDataError{Field: "createdAt", Reason: "missing"}
	}
	createdAt, err := ParseTimestamp(createdRaw)
	if err != nil {
		return nil, &MalformedDataError{Field: "createdAt", Reason: "unparsable", Err: err}
	}

	rec := &Recording{
		ID:        id,
		Title:     raw.Title,
		CreatedAt: createdAt,
		SourceURL: raw.URL,
	}
	if rec.Title == "" {
		rec.Title = raw.Name
	}
	if rec.SourceURL == "" {
		rec.SourceURL = SourceWebURL + "/recordings/" + id
	}

	if secs, ok := decodeSeconds(raw.Duration); ok {
		rec.Duration = secs
	} else if secs, ok := decodeSeconds(raw.DurationSeconds); ok {
		rec.Duration = secs
	}
	if rec.Duration < 0 {
		rec.Duration = 0
	}

	rec.Tags = raw.TagNames()
	rec.Transcript = buildTranscript(raw.Transcript)
	rec.Summary = buildSummary(raw.Summarizations[SummaryKey])
	rec.ActionItems = buildActionItems(raw.Summarizations[ActionItemsKey])
	rec.MindMap = buildMindMap(raw.Summarizations[MindMapKey])

	return rec, nil
}

// TagNames returns the tag names of the payload. Tags may be plain strings
// or objects with a name or label.
func (r *RawRecording) TagNames() []string {
	var tags []string
	for _, raw := range r.Tags {
		if s, ok := decodeString(raw); ok {
			if s != "" {
				tags = append(tags, s)
			}
			continue
		}
		var tag rawTag
		if isNull(raw) || json.Unmarshal(raw, &tag) != nil {
			continue
		}
		name := tag.Name
		if name == "" {
			name = tag.Label
		}
		if name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}

func buildTranscript(raw json.RawMessage) string {
	if s, ok := decodeString(raw); ok {
		return s
	}
	var t rawTranscript
	if isNull(raw) || json.Unmarshal(raw, &t) != nil {
		return ""
	}
	return t.Text
}

func buildSummary(raw json.RawMessage) string {
	if s, ok := decodeString(raw); ok {
		return s
	}
	var s rawSummary
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	if s.Markdown != "" {
		return s.Markdown
	}
	return s.Summary
}

func buildActionItems(raw json.RawMessage) []ActionItem {
	var container rawActionItems
	if isNull(raw) || json.Unmarshal(raw, &container) != nil {
		return nil
	}

	var items []ActionItem
	for _, rawItem := range container.Actions {
		var a rawAction
		if isNull(rawItem) || json.Unmarshal(rawItem, &a) != nil {
			continue
		}
		label := a.Label
		if label == "" {
			label = a.Title
		}
		if strings.TrimSpace(label) == "" {
			continue
		}
		item := ActionItem{
			Label:    label,
			Assignee: a.Assignee,
			Context:  a.Context,
			Priority: ParsePriority(a.Priority),
			Kind:     a.Type,
		}
		if a.DueDate != "" {
			if due, err := ParseTimestamp(a.DueDate); err == nil {
				item.DueDate = &due
			}
		}
		items = append(items, item)
	}
	return items
}

func buildMindMap(raw json.RawMessage) []MindMapNode {
	var container rawMindMap
	if isNull(raw) || json.Unmarshal(raw, &container) != nil {
		return nil
	}

	var nodes []MindMapNode
	for _, rawNode := range container.Nodes {
		var n rawMindMapNode
		if isNull(rawNode) || json.Unmarshal(rawNode, &n) != nil {
			continue
		}
		if n.NodeID == "" && n.Title == "" {
			continue
		}
		nodes = append(nodes, MindMapNode{ID: n.NodeID, ParentID: n.ParentNodeID, Title: n.Title})
	}
	return nodes
}
