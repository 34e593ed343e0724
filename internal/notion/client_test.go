package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/apiclient"
	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeNotion struct {
	mu       gosync.Mutex
	requests []recordedRequest
	handle   func(w http.ResponseWriter, req recordedRequest)
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	req := recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if r.Header.Get("Notion-Version") != APIVersion {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.handle(w, req)
}

func newTestClient(t *testing.T, handle func(w http.ResponseWriter, req recordedRequest)) (*Client, *fakeNotion) {
	t.Helper()
	fake := &fakeNotion{handle: handle}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := New(&Config{
		APIKey:    "ntn_test_key_000000000",
		BaseURL:   server.URL,
		Timeout:   2 * time.Second,
		BaseDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return client, fake
}

func stableIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = model.StableID(fmt.Sprintf("rec-%03d", i))
	}
	return ids
}

func TestBatchExistsChunksAndMerges(t *testing.T) {
	existing := map[string]bool{
		model.StableID("rec-005"): true,
		model.StableID("rec-150"): true,
		model.StableID("rec-249"): true,
	}

	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		assert.Equal(t, "/databases/db-1/query", req.Path)
		filter := req.Body["filter"].(map[string]any)
		conditions := filter["or"].([]any)
		assert.LessOrEqual(t, len(conditions), MaxFilterConditions)

		var results []string
		for _, c := range conditions {
			cond := c.(map[string]any)
			assert.Equal(t, "Inbox ID", cond["property"])
			id := cond["rich_text"].(map[string]any)["equals"].(string)
			if existing[id] {
				results = append(results, fmt.Sprintf(
					`{"id":"p-%s","properties":{"Inbox ID":{"type":"rich_text","rich_text":[{"plain_text":%q}]}}}`, id, id))
			}
		}
		fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`, strings.Join(results, ","))
	})

	ids := stableIDs(250)
	ids = append(ids, ids[0]) // duplicates are checked once

	got, err := client.BatchExists(context.Background(), ids, "db-1", "Inbox ID")
	require.NoError(t, err)
	assert.Equal(t, existing, got)
	assert.Len(t, fake.requests, 3, "250 ids need three queries")
}

func TestBatchExistsFollowsCursor(t *testing.T) {
	calls := 0
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		calls++
		if calls == 1 {
			assert.Nil(t, req.Body["start_cursor"])
			fmt.Fprint(w, `{"results":[{"properties":{"Key":{"type":"rich_text","rich_text":[{"plain_text":"pocket:recording:a"}]}}}],"has_more":true,"next_cursor":"c2"}`)
			return
		}
		assert.Equal(t, "c2", req.Body["start_cursor"])
		fmt.Fprint(w, `{"results":[{"properties":{"Key":{"type":"rich_text","rich_text":[{"plain_text":"pocket:recording:"},{"plain_text":"b"}]}}}],"has_more":false,"next_cursor":null}`)
	})

	got, err := client.BatchExists(context.Background(),
		[]string{"pocket:recording:a", "pocket:recording:b", "pocket:recording:c"}, "db", "Key")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"pocket:recording:a": true, "pocket:recording:b": true}, got)
	assert.Len(t, fake.requests, 2)
}

func TestBatchExistsEmptyInput(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		t.Fatal("no request expected")
	})

	got, err := client.BatchExists(context.Background(), nil, "db", "Key")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, fake.requests)
}

func TestBatchExistsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"object":"error","code":"unauthorized","message":"API token is invalid."}`)
	})

	_, err := client.BatchExists(context.Background(), []string{"x"}, "db", "Key")
	assert.True(t, errors.Is(err, apiclient.ErrAuth))
}

func TestCreatePageAppendsOverflowChildren(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		switch {
		case req.Method == http.MethodPost && req.Path == "/pages":
			fmt.Fprint(w, `{"object":"page","id":"page-1"}`)
		case req.Method == http.MethodPatch && req.Path == "/blocks/page-1/children":
			fmt.Fprint(w, `{"object":"list","results":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	children := make([]blocks.Block, 250)
	for i := range children {
		children[i] = blocks.Paragraph(fmt.Sprintf("line %d", i))
	}
	props := blocks.Properties{"Name": {Title: []blocks.RichText{blocks.Plain("Hello")}}}

	pageID, err := client.CreatePage(context.Background(), "db-1", props, model.Icon{Emoji: "💡"}, children)
	require.NoError(t, err)
	assert.Equal(t, "page-1", pageID)

	require.Len(t, fake.requests, 3)
	create := fake.requests[0].Body
	assert.Equal(t, "db-1", create["parent"].(map[string]any)["database_id"])
	assert.Equal(t, map[string]any{"type": "emoji", "emoji": "💡"}, create["icon"])
	assert.Len(t, create["children"], 100)
	assert.Len(t, fake.requests[1].Body["children"], 100)
	assert.Len(t, fake.requests[2].Body["children"], 50)
}

func TestCreatePageValidationError(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"object":"error","code":"validation_error","message":"Priority is not a property that exists."}`)
	})

	_, err := client.CreatePage(context.Background(), "db", blocks.Properties{}, model.Icon{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apiclient.ErrValidation))
	assert.Contains(t, err.Error(), "Priority is not a property")
	assert.Len(t, fake.requests, 1, "validation errors are not retried")
	assert.Nil(t, fake.requests[0].Body["icon"])
}

func TestEnsureProperties(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"id":"db","properties":{
				"Title":{"id":"title","name":"Title","type":"title"},
				"Inbox ID":{"id":"a","name":"Inbox ID","type":"rich_text"}
			}}`)
		case http.MethodPatch:
			fmt.Fprint(w, `{"id":"db"}`)
		}
	})

	required := RequiredProperties(model.FieldMapping{
		model.FieldTitle:     "Name",
		model.FieldStableID:  "Inbox ID",
		model.FieldPriority:  "Priority",
		model.FieldSourceURL: "Source",
	})

	created, err := client.EnsureProperties(context.Background(), "db", required)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Priority", "Source"}, created)

	patches := fake.requests[1:]
	require.Len(t, patches, 3)
	assert.Equal(t, map[string]any{"Title": map[string]any{"name": "Name"}}, patches[0].Body["properties"])
	assert.Equal(t, map[string]any{"Priority": map[string]any{"select": map[string]any{"options": []any{}}}}, patches[1].Body["properties"])
	assert.Equal(t, map[string]any{"Source": map[string]any{"url": map[string]any{}}}, patches[2].Body["properties"])
}

func TestAddSelectOptionsKeepsExisting(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"id":"db","properties":{
				"Tags":{"id":"t","name":"Tags","type":"multi_select","multi_select":{"options":[{"id":"o1","name":"work","color":"red"}]}},
				"Name":{"id":"title","name":"Name","type":"title"}
			}}`)
		case http.MethodPatch:
			fmt.Fprint(w, `{"id":"db"}`)
		}
	})

	added, err := client.AddSelectOptions(context.Background(), "db", "Tags",
		blocks.TagOptions([]string{"Work", "personal", "ideas"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"personal", "ideas"}, added)

	require.Len(t, fake.requests, 2)
	want := map[string]any{"Tags": map[string]any{"multi_select": map[string]any{"options": []any{
		map[string]any{"name": "work"},
		map[string]any{"name": "personal"},
		map[string]any{"name": "ideas"},
	}}}}
	assert.Equal(t, want, fake.requests[1].Body["properties"])
}

func TestAddSelectOptionsNothingNew(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		fmt.Fprint(w, `{"id":"db","properties":{
			"Tags":{"name":"Tags","type":"multi_select","multi_select":{"options":[{"name":"work"}]}}
		}}`)
	})

	added, err := client.AddSelectOptions(context.Background(), "db", "Tags", blocks.TagOptions([]string{"work"}))
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Len(t, fake.requests, 1, "no update without new options")

	_, err = client.AddSelectOptions(context.Background(), "db", "Missing", nil)
	assert.ErrorContains(t, err, "not found")
}

func TestValidateMapping(t *testing.T) {
	schema := map[string]PropertySchema{
		"Name":     {Name: "Name", Type: TypeTitle},
		"Inbox ID": {Name: "Inbox ID", Type: TypeTitle},
	}
	problems := ValidateMapping(schema, model.FieldMapping{
		model.FieldTitle:    "Name",
		model.FieldStableID: "Inbox ID",
		model.FieldTags:     "Tags",
	})
	assert.Equal(t, []string{
		`property "Inbox ID" is title, want rich_text`,
		`property "Tags" is missing (want multi_select)`,
	}, problems)
}

func TestSearchDatabases(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, req recordedRequest) {
		calls++
		assert.Equal(t, "/search", req.Path)
		assert.Equal(t, map[string]any{"property": "object", "value": "database"}, req.Body["filter"])
		if calls == 1 {
			fmt.Fprint(w, `{"results":[{"id":"db1","url":"u1","title":[{"plain_text":"Inbox"}],"icon":{"type":"emoji","emoji":"📥"}}],"has_more":true,"next_cursor":"n"}`)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":"db2","title":[]}],"has_more":false}`)
	})

	dbs, err := client.SearchDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Database{
		{ID: "db1", Title: "Inbox", Emoji: "📥", URL: "u1"},
		{ID: "db2", Title: "Untitled", Emoji: "📄"},
	}, dbs)
}
