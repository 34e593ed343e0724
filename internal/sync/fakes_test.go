package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	gosync "sync"
	"time"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

var errBoom = errors.New("boom")

type fakeSource struct {
	refs      []RecordingRef
	details   map[string]*model.RawRecording
	fetchErrs map[string]error
	listErr   error

	listCalls  int
	lastSince  *time.Time
	fetchOrder []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		details:   make(map[string]*model.RawRecording),
		fetchErrs: make(map[string]error),
	}
}

// add registers a recording; complete controls whether it carries a summary.
func (s *fakeSource) add(id string, createdAt time.Time, complete bool) {
	raw := &model.RawRecording{
		ID:        id,
		Title:     "Recording " + id,
		CreatedAt: createdAt.Format(time.RFC3339),
	}
	if complete {
		raw.Summarizations = map[string]json.RawMessage{
			model.SummaryKey: json.RawMessage(`{"markdown":"Summary of ` + id + `"}`),
		}
	}
	s.refs = append(s.refs, RecordingRef{ID: id, Title: raw.Title, CreatedAt: createdAt})
	s.details[id] = raw
}

func (s *fakeSource) ListSince(ctx context.Context, since *time.Time) ([]RecordingRef, error) {
	s.listCalls++
	s.lastSince = since
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []RecordingRef
	for _, ref := range s.refs {
		if since == nil || ref.CreatedAt.After(*since) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *fakeSource) FetchDetail(ctx context.Context, id string) (*model.RawRecording, error) {
	s.fetchOrder = append(s.fetchOrder, id)
	if err := s.fetchErrs[id]; err != nil {
		return nil, err
	}
	raw, ok := s.details[id]
	if !ok {
		return nil, fmt.Errorf("recording %s: not found", id)
	}
	return raw, nil
}

type createCall struct {
	databaseID string
	props      blocks.Properties
	icon       model.Icon
	children   []blocks.Block
}

// fakeDestination behaves like a database keyed on the stable id property.
type fakeDestination struct {
	mu         gosync.Mutex
	pages      map[string]string // stable id -> page id
	createErrs map[string]error  // stable id -> error
	existsErr  error

	existsCalls [][]string
	creates     []createCall
	property    string
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		pages:      make(map[string]string),
		createErrs: make(map[string]error),
	}
}

func (d *fakeDestination) BatchExists(ctx context.Context, ids []string, databaseID, property string) (map[string]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.existsCalls = append(d.existsCalls, append([]string(nil), ids...))
	d.property = property
	if d.existsErr != nil {
		return nil, d.existsErr
	}
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := d.pages[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (d *fakeDestination) CreatePage(ctx context.Context, databaseID string, props blocks.Properties, icon model.Icon, children []blocks.Block) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates = append(d.creates, createCall{databaseID: databaseID, props: props, icon: icon, children: children})

	stableID := blocks.PlainText(props["Inbox ID"].RichText)
	if err := d.createErrs[stableID]; err != nil {
		return "", err
	}
	pageID := fmt.Sprintf("page-%d", len(d.pages)+1)
	d.pages[stableID] = pageID
	return pageID, nil
}

func (d *fakeDestination) createdIDs() []string {
	var ids []string
	for _, c := range d.creates {
		ids = append(ids, blocks.PlainText(c.props["Inbox ID"].RichText))
	}
	return ids
}

type fakeConfig struct {
	databaseID string
	mapping    model.FieldMapping
	lastSync   *time.Time
	saveErr    error
	saves      []time.Time
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{databaseID: "db-1", mapping: model.DefaultFieldMapping()}
}

func (c *fakeConfig) IsConfigured() bool               { return c.databaseID != "" }
func (c *fakeConfig) DatabaseID() string               { return c.databaseID }
func (c *fakeConfig) FieldMapping() model.FieldMapping { return c.mapping }
func (c *fakeConfig) LastSync() *time.Time             { return c.lastSync }

func (c *fakeConfig) SaveWatermark(t time.Time) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.saves = append(c.saves, t)
	if c.lastSync == nil || t.After(*c.lastSync) {
		c.lastSync = &t
	}
	return nil
}

type fakeRecorder struct {
	pages []CreatedPage
	err   error
}

func (r *fakeRecorder) RecordCreated(ctx context.Context, page CreatedPage) error {
	r.pages = append(r.pages, page)
	return r.err
}

// fakeClock advances by one second each call.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEngine(cfg ConfigStore, src Source, dst Destination, clock *fakeClock, rec Recorder) *Engine {
	engine, err := NewEngineWithConfig(cfg, src, dst, &EngineConfig{
		Recorder: rec,
		Now:      clock.Now,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		panic(err)
	}
	return engine
}
