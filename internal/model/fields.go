package model

import (
	"fmt"
	"sort"
	"strings"
)

// Field is a semantic page property the sync engine knows how to fill.
type Field string

const (
	FieldTitle     Field = "title"
	FieldStableID  Field = "stable_id"
	FieldPriority  Field = "priority"
	FieldDueDate   Field = "due_date"
	FieldContext   Field = "context"
	FieldTags      Field = "tags"
	FieldSourceURL Field = "source_url"
)

// Fields lists every semantic field in display order.
var Fields = []Field{
	FieldTitle, FieldStableID, FieldPriority, FieldDueDate,
	FieldContext, FieldTags, FieldSourceURL,
}

// fieldAliases maps legacy configuration keys onto semantic fields.
var fieldAliases = map[string]Field{
	"pocket_id": FieldStableID,
	"stableid":  FieldStableID,
	"duedate":   FieldDueDate,
	"sourceurl": FieldSourceURL,
}

// ParseField resolves a configuration key to a semantic field.
func ParseField(key string) (Field, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range Fields {
		if string(f) == key {
			return f, true
		}
	}
	f, ok := fieldAliases[key]
	return f, ok
}

// FieldMapping maps semantic fields to destination property names. Fields
// absent from the mapping are not written.
type FieldMapping map[Field]string

// DefaultFieldMapping returns the property names created by setup.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		FieldTitle:     "Name",
		FieldStableID:  "Inbox ID",
		FieldPriority:  "Priority",
		FieldDueDate:   "Due Date",
		FieldContext:   "Context",
		FieldSourceURL: "Source",
	}
}

// FieldMappingFromKeys builds a mapping from configuration keys, accepting
// legacy aliases. Unknown keys are returned as an error.
func FieldMappingFromKeys(m map[string]string) (FieldMapping, error) {
	out := make(FieldMapping, len(m))
	var unknown []string
	for key, prop := range m {
		f, ok := ParseField(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		out[f] = strings.TrimSpace(prop)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown property map fields: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Property returns the destination property for f, if mapped.
func (m FieldMapping) Property(f Field) (string, bool) {
	name, ok := m[f]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Validate fails if a required field (title, stable_id) is unmapped.
func (m FieldMapping) Validate() error {
	for _, f := range []Field{FieldTitle, FieldStableID} {
		if _, ok := m.Property(f); !ok {
			return fmt.Errorf("property map is missing required field %q", f)
		}
	}
	return nil
}

// Keys returns the mapping keyed by plain strings, for persistence.
func (m FieldMapping) Keys() map[string]string {
	out := make(map[string]string, len(m))
	for f, name := range m {
		out[string(f)] = name
	}
	return out
}
