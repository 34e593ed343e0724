package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority of an action item. The zero value means no priority was set.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps a source priority string onto Priority. Unknown values
// yield PriorityNone.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "p1":
		return PriorityHigh
	case "medium", "normal", "p2":
		return PriorityMedium
	case "low", "p3":
		return PriorityLow
	default:
		return PriorityNone
	}
}

// Rank orders priorities; higher is more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ActionItem is one task extracted from a recording.
type ActionItem struct {
	Label    string
	Assignee string
	Context  string
	DueDate  *time.Time
	Priority Priority
	Kind     string
}

// ChecklistText renders the item as a single checklist line, for example
// "Send the deck [High] — due Jan 02".
func (a ActionItem) ChecklistText() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Label))
	if a.Priority != PriorityNone {
		fmt.Fprintf(&b, " [%s]", a.Priority)
	}
	if a.DueDate != nil {
		fmt.Fprintf(&b, " — due %s", a.DueDate.Format("Jan 02"))
	}
	return b.String()
}
