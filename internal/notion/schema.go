package notion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

// Property types used in page properties.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
	TypeDate        = "date"
	TypeURL         = "url"
)

// fieldTypes is the property type each semantic field is written as.
var fieldTypes = map[model.Field]string{
	model.FieldTitle:     TypeTitle,
	model.FieldStableID:  TypeRichText,
	model.FieldPriority:  TypeSelect,
	model.FieldDueDate:   TypeDate,
	model.FieldContext:   TypeRichText,
	model.FieldTags:      TypeMultiSelect,
	model.FieldSourceURL: TypeURL,
}

// PropertySchema describes one database property.
type PropertySchema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Select      *selectConfig `json:"select,omitempty"`
	MultiSelect *selectConfig `json:"multi_select,omitempty"`
}

type selectConfig struct {
	Options []blocks.SelectOption `json:"options"`
}

// Options returns the choices of a select or multi-select property.
func (p PropertySchema) Options() []blocks.SelectOption {
	switch {
	case p.Type == TypeSelect && p.Select != nil:
		return p.Select.Options
	case p.Type == TypeMultiSelect && p.MultiSelect != nil:
		return p.MultiSelect.Options
	}
	return nil
}

// Database is a database visible to the integration.
type Database struct {
	ID    string
	Title string
	Emoji string
	URL   string
}

type databaseResponse struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url"`
	Title      []richTextValue           `json:"title"`
	Properties map[string]PropertySchema `json:"properties"`
	Icon       *struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	} `json:"icon"`
}

func (d databaseResponse) toDatabase() Database {
	db := Database{ID: d.ID, URL: d.URL, Title: "Untitled", Emoji: "📄"}
	var title strings.Builder
	for _, rt := range d.Title {
		title.WriteString(rt.PlainText)
	}
	if title.Len() > 0 {
		db.Title = title.String()
	}
	if d.Icon != nil && d.Icon.Type == "emoji" && d.Icon.Emoji != "" {
		db.Emoji = d.Icon.Emoji
	}
	return db
}

// DatabaseSchema returns the properties of a database keyed by name.
func (c *Client) DatabaseSchema(ctx context.Context, databaseID string) (map[string]PropertySchema, error) {
	var resp databaseResponse
	if err := c.api.Get(ctx, "/databases/"+databaseID, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to read database %s: %w", databaseID, err)
	}
	schema := make(map[string]PropertySchema, len(resp.Properties))
	for name, prop := range resp.Properties {
		if prop.Name == "" {
			prop.Name = name
		}
		schema[name] = prop
	}
	return schema, nil
}

// RequiredProperties returns the property name to type map a mapping
// needs in the database.
func RequiredProperties(mapping model.FieldMapping) map[string]string {
	out := make(map[string]string, len(mapping))
	for field, name := range mapping {
		if name == "" {
			continue
		}
		if typ, ok := fieldTypes[field]; ok {
			out[name] = typ
		}
	}
	return out
}

// ValidateMapping lists problems that would make page creation fail:
// mapped properties that are missing or of the wrong type.
func ValidateMapping(schema map[string]PropertySchema, mapping model.FieldMapping) []string {
	var problems []string
	for name, want := range RequiredProperties(mapping) {
		prop, ok := schema[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("property %q is missing (want %s)", name, want))
		case prop.Type != want:
			problems = append(problems, fmt.Sprintf("property %q is %s, want %s", name, prop.Type, want))
		}
	}
	sort.Strings(problems)
	return problems
}

// EnsureProperties creates the properties in required (name to type) that
// the database lacks and returns the names it created. A database has
// exactly one title property, so a missing title is renamed instead.
func (c *Client) EnsureProperties(ctx context.Context, databaseID string, required map[string]string) ([]string, error) {
	schema, err := c.DatabaseSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []string
	for _, name := range names {
		typ := required[name]
		if _, ok := schema[name]; ok {
			continue
		}

		var update map[string]any
		if typ == TypeTitle {
			current := titleProperty(schema)
			if current == "" {
				return created, fmt.Errorf("database %s has no title property", databaseID)
			}
			update = map[string]any{current: map[string]any{"name": name}}
		} else {
			update = map[string]any{name: propertyConfig(typ)}
		}

		c.logger.Printf("Creating property %q (%s) in database %s", name, typ, databaseID)
		if err := c.api.Patch(ctx, "/databases/"+databaseID, map[string]any{"properties": update}, nil); err != nil {
			return created, fmt.Errorf("failed to create property %q: %w", name, err)
		}
		created = append(created, name)
	}
	return created, nil
}

// AddSelectOptions adds options to a select or multi-select property and
// returns the names it added. Notion replaces the option list on update, so
// the existing options are sent along.
func (c *Client) AddSelectOptions(ctx context.Context, databaseID, property string, options []blocks.SelectOption) ([]string, error) {
	schema, err := c.DatabaseSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	prop, ok := schema[property]
	if !ok {
		return nil, fmt.Errorf("property %q not found in database %s", property, databaseID)
	}
	if prop.Type != TypeSelect && prop.Type != TypeMultiSelect {
		return nil, fmt.Errorf("property %q is %s, not a select", property, prop.Type)
	}

	existing := prop.Options()
	have := make(map[string]bool, len(existing))
	merged := make([]blocks.SelectOption, 0, len(existing)+len(options))
	for _, opt := range existing {
		have[strings.ToLower(opt.Name)] = true
		merged = append(merged, blocks.SelectOption{Name: opt.Name})
	}
	var added []string
	for _, opt := range options {
		key := strings.ToLower(opt.Name)
		if opt.Name == "" || have[key] {
			continue
		}
		have[key] = true
		merged = append(merged, opt)
		added = append(added, opt.Name)
	}
	if len(added) == 0 {
		return nil, nil
	}

	update := map[string]any{property: map[string]any{prop.Type: map[string]any{"options": merged}}}
	c.logger.Printf("Adding %d options to %q in database %s", len(added), property, databaseID)
	if err := c.api.Patch(ctx, "/databases/"+databaseID, map[string]any{"properties": update}, nil); err != nil {
		return nil, fmt.Errorf("failed to add options to %q: %w", property, err)
	}
	return added, nil
}

func titleProperty(schema map[string]PropertySchema) string {
	for name, prop := range schema {
		if prop.Type == TypeTitle {
			return name
		}
	}
	return ""
}

func propertyConfig(typ string) map[string]any {
	switch typ {
	case TypeSelect, TypeMultiSelect:
		return map[string]any{typ: map[string]any{"options": []any{}}}
	case TypeDate, TypeURL, TypeRichText:
		return map[string]any{typ: map[string]any{}}
	default:
		return map[string]any{TypeRichText: map[string]any{}}
	}
}

type searchRequest struct {
	Filter      map[string]string `json:"filter"`
	StartCursor string            `json:"start_cursor,omitempty"`
}

type searchResponse struct {
	Results    []databaseResponse `json:"results"`
	HasMore    bool               `json:"has_more"`
	NextCursor *string            `json:"next_cursor"`
}

// SearchDatabases lists every database shared with the integration.
func (c *Client) SearchDatabases(ctx context.Context) ([]Database, error) {
	req := searchRequest{Filter: map[string]string{"property": "object", "value": "database"}}
	var out []Database
	for {
		var resp searchResponse
		if err := c.api.Post(ctx, "/search", req, &resp); err != nil {
			return nil, fmt.Errorf("failed to search databases: %w", err)
		}
		for _, db := range resp.Results {
			out = append(out, db.toDatabase())
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return out, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

// Ping checks that the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct{}
	if err := c.api.Get(ctx, "/users/me", nil, &resp); err != nil {
		return fmt.Errorf("notion connection check failed: %w", err)
	}
	return nil
}
