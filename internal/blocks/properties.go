package blocks

import (
	"strings"

	"github.com/powerflow-sync/powerflow/internal/model"
)

const maxSelectName = 100

// Property is one Notion page property value. Exactly one field is set.
type Property struct {
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	URL         string         `json:"url,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
}

// SelectOption names a select or multi-select option.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a Notion date property value.
type DateValue struct {
	Start string `json:"start"`
}

// Properties maps destination property names to values.
type Properties map[string]Property

// BuildProperties fills the mapped properties of a page for rec. Fields
// without a mapping or without data are omitted.
func BuildProperties(rec *model.Recording, mapping model.FieldMapping) Properties {
	props := Properties{}

	if name, ok := mapping.Property(model.FieldTitle); ok {
		props[name] = Property{Title: []RichText{Plain(rec.DisplayTitle())}}
	}
	if name, ok := mapping.Property(model.FieldStableID); ok {
		props[name] = Property{RichText: []RichText{Plain(rec.StableID())}}
	}
	if name, ok := mapping.Property(model.FieldSourceURL); ok && rec.SourceURL != "" {
		props[name] = Property{URL: rec.SourceURL}
	}
	if name, ok := mapping.Property(model.FieldTags); ok {
		if opts := TagOptions(rec.Tags); len(opts) > 0 {
			props[name] = Property{MultiSelect: opts}
		}
	}
	if name, ok := mapping.Property(model.FieldPriority); ok {
		if p := highestPriority(rec.ActionItems); p != model.PriorityNone {
			props[name] = Property{Select: &SelectOption{Name: string(p)}}
		}
	}
	if name, ok := mapping.Property(model.FieldDueDate); ok {
		if due := earliestDue(rec.ActionItems); due != "" {
			props[name] = Property{Date: &DateValue{Start: due}}
		}
	}
	if name, ok := mapping.Property(model.FieldContext); ok {
		if ctx := firstContext(rec.ActionItems); ctx != "" {
			props[name] = Property{RichText: []RichText{Plain(ctx)}}
		}
	}

	return props
}

// TagOptions deduplicates tags case-insensitively, keeping first spelling.
// Commas are not allowed in Notion option names.
func TagOptions(tags []string) []SelectOption {
	seen := make(map[string]bool, len(tags))
	var out []SelectOption
	for _, tag := range tags {
		name := strings.TrimSpace(strings.ReplaceAll(tag, ",", " "))
		if name == "" {
			continue
		}
		if r := []rune(name); len(r) > maxSelectName {
			name = string(r[:maxSelectName])
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, SelectOption{Name: name})
	}
	return out
}

func highestPriority(items []model.ActionItem) model.Priority {
	best := model.PriorityNone
	for _, item := range items {
		if item.Priority.Rank() > best.Rank() {
			best = item.Priority
		}
	}
	return best
}

func earliestDue(items []model.ActionItem) string {
	var earliest string
	for _, item := range items {
		if item.DueDate == nil {
			continue
		}
		d := item.DueDate.UTC().Format("2006-01-02")
		if earliest == "" || d < earliest {
			earliest = d
		}
	}
	return earliest
}

func firstContext(items []model.ActionItem) string {
	for _, item := range items {
		if c := strings.TrimSpace(item.Context); c != "" {
			return c
		}
	}
	return ""
}
