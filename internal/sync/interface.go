package sync

import (
	"context"
	"time"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

// RecordingRef is one entry of a source listing.
type RecordingRef struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Source lists and fetches recordings.
type Source interface {
	// ListSince returns recordings created strictly after since, or all
	// recordings when since is nil, in source order. Pagination is handled
	// by the implementation.
	ListSince(ctx context.Context, since *time.Time) ([]RecordingRef, error)

	// FetchDetail returns the full payload of one recording.
	FetchDetail(ctx context.Context, id string) (*model.RawRecording, error)
}

// Destination checks for and creates pages.
type Destination interface {
	// BatchExists returns the subset of stableIDs that already have a page
	// in the database, matching on the given property. Implementations
	// split large sets to respect per-request limits.
	BatchExists(ctx context.Context, stableIDs []string, databaseID, property string) (map[string]bool, error)

	// CreatePage creates a page and returns its id.
	CreatePage(ctx context.Context, databaseID string, props blocks.Properties, icon model.Icon, children []blocks.Block) (string, error)
}

// ConfigStore is the configuration a pass reads and the watermark it
// writes.
type ConfigStore interface {
	IsConfigured() bool
	DatabaseID() string
	FieldMapping() model.FieldMapping
	LastSync() *time.Time
	SaveWatermark(t time.Time) error
}

// CreatedPage describes a page created by a pass.
type CreatedPage struct {
	RunID              string
	StableID           string
	PageID             string
	RecordingID        string
	Title              string
	RecordingCreatedAt time.Time
	SyncedAt           time.Time
}

// Recorder is notified of every page a pass creates. It is informational
// and never consulted for deduplication.
type Recorder interface {
	RecordCreated(ctx context.Context, page CreatedPage) error
}
