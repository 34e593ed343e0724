package model

import (
	"strings"
	"time"
)

// StableIDPrefix namespaces recording ids in the destination database.
const StableIDPrefix = "pocket:recording:"

// SourceWebURL is the base of the deep links back to a recording.
const SourceWebURL = "https://heypocket.com"

// UntitledRecording is the display title used when neither a title nor a
// summary sentence is available.
const UntitledRecording = "Untitled Recording"

// maxDerivedTitle bounds titles derived from the first summary sentence.
const maxDerivedTitle = 60

// Recording is one captured and processed audio recording.
//
// A Recording is rebuilt from the source on every pass and is never
// mutated after BuildRecording returns it.
type Recording struct {
	ID          string
	Title       string
	CreatedAt   time.Time
	Duration    int // seconds
	Tags        []string
	Summary     string
	ActionItems []ActionItem
	MindMap     []MindMapNode
	Transcript  string
	SourceURL   string
}

// MindMapNode is one node of the AI-generated mind map. A node whose
// ParentID is empty, equal to its own ID, or unknown is a root.
type MindMapNode struct {
	ID       string
	ParentID string
	Title    string
}

// StableID returns the deduplication key for a source recording id.
func StableID(id string) string {
	return StableIDPrefix + id
}

// StableID returns the deduplication key of the recording.
func (r *Recording) StableID() string {
	return StableID(r.ID)
}

// IsProcessingComplete reports whether the source has finished producing AI
// content for the recording: a non-blank summary, at least one action item
// or at least one mind map node.
func (r *Recording) IsProcessingComplete() bool {
	return strings.TrimSpace(r.Summary) != "" || len(r.ActionItems) > 0 || len(r.MindMap) > 0
}

// Icon returns the page icon selected from the recording's tags.
func (r *Recording) Icon() Icon {
	return SelectIcon(r.Tags)
}

// DisplayTitle returns the page title: the trimmed title, else the first
// sentence of the summary, else UntitledRecording.
func (r *Recording) DisplayTitle() string {
	if title := strings.TrimSpace(r.Title); title != "" {
		return title
	}

	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		return UntitledRecording
	}

	first := summary
	if i := strings.IndexAny(summary, ".\n"); i >= 0 {
		first = summary[:i]
	}
	first = strings.TrimSpace(strings.TrimLeft(first, "#*- "))
	first = strings.ReplaceAll(first, "**", "")
	if first == "" {
		return UntitledRecording
	}

	runes := []rune(first)
	if len(runes) > maxDerivedTitle {
		return string(runes[:maxDerivedTitle-3]) + "..."
	}
	return first
}
