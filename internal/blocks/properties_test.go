package blocks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/model"
)

func TestBuildProperties(t *testing.T) {
	mapping := model.DefaultFieldMapping()
	mapping[model.FieldTags] = "Tags"

	props := BuildProperties(sampleRecording(), mapping)

	assert.Equal(t, "Planning", PlainText(props["Name"].Title))
	assert.Equal(t, "pocket:recording:rec-1", PlainText(props["Inbox ID"].RichText))
	assert.Equal(t, "https://heypocket.com/recordings/rec-1", props["Source"].URL)
	assert.Equal(t, []SelectOption{{Name: "Work"}, {Name: "Q1  plan"}}, props["Tags"].MultiSelect)
	require.NotNil(t, props["Priority"].Select)
	assert.Equal(t, "High", props["Priority"].Select.Name)
	require.NotNil(t, props["Due Date"].Date)
	assert.Equal(t, "2025-01-02", props["Due Date"].Date.Start)
	assert.Equal(t, "budget", PlainText(props["Context"].RichText))
}

func TestBuildPropertiesOmitsUnmappedAndEmpty(t *testing.T) {
	mapping := model.FieldMapping{
		model.FieldTitle:    "Title",
		model.FieldStableID: "Key",
		model.FieldPriority: "Priority",
	}
	rec := &model.Recording{ID: "r", Summary: "Short note."}

	props := BuildProperties(rec, mapping)

	assert.Len(t, props, 2)
	assert.Equal(t, "Short note", PlainText(props["Title"].Title))

	data, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Title": {"title": [{"type": "text", "text": {"content": "Short note"}}]},
		"Key": {"rich_text": [{"type": "text", "text": {"content": "pocket:recording:r"}}]}
	}`, string(data))
}
