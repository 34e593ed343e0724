package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

// Options control a single pass.
type Options struct {
	// DryRun reports what would be created without creating pages or
	// moving the watermark.
	DryRun bool

	// Since overrides the stored watermark for this pass only.
	Since *time.Time
}

// EngineConfig holds configuration for the engine.
type EngineConfig struct {
	// Recorder is told about created pages. Optional.
	Recorder Recorder

	// Now returns the current time; the pre-listing timestamp comes from it.
	Now func() time.Time

	// Logger for pass activity
	Logger *log.Logger
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Now:    time.Now,
		Logger: log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Engine runs sync passes. It holds no state between passes beyond what
// the ConfigStore persists.
type Engine struct {
	config ConfigStore
	source Source
	dest   Destination
	opts   *EngineConfig
}

// NewEngine creates an engine with default configuration.
func NewEngine(config ConfigStore, source Source, dest Destination) (*Engine, error) {
	return NewEngineWithConfig(config, source, dest, DefaultEngineConfig())
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(config ConfigStore, source Source, dest Destination, opts *EngineConfig) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if dest == nil {
		return nil, fmt.Errorf("destination cannot be nil")
	}
	if opts == nil {
		opts = DefaultEngineConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = DefaultEngineConfig().Logger
	}
	return &Engine{config: config, source: source, dest: dest, opts: opts}, nil
}

// RunPass executes one pass with a new engine. See Engine.RunPass.
func RunPass(ctx context.Context, config ConfigStore, source Source, dest Destination, opts Options) *Result {
	engine, err := NewEngine(config, source, dest)
	if err != nil {
		result := FailedResult(StageList, err)
		result.DryRun = opts.DryRun
		return result
	}
	return engine.RunPass(ctx, opts)
}

// RunPass executes one pass and always returns a Result. Per-recording
// failures are collected in Result.Errors; Result.Fatal is set when the
// pass had to stop early.
func (e *Engine) RunPass(ctx context.Context, opts Options) *Result {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: e.opts.Now().UTC(),
		DryRun:    opts.DryRun,
	}
	defer func() {
		result.Duration = e.opts.Now().Sub(result.StartedAt)
	}()

	logger := e.opts.Logger
	if !e.config.IsConfigured() {
		result.abort(StageList, ErrNotConfigured)
		return result
	}
	databaseID := e.config.DatabaseID()
	mapping := e.config.FieldMapping()
	stableProp, ok := mapping.Property(model.FieldStableID)
	if !ok {
		result.abort(StageList, fmt.Errorf("property map has no stable id field"))
		return result
	}

	since := e.config.LastSync()
	if opts.Since != nil {
		since = opts.Since
	}

	// Captured before listing so a recording created while the pass runs
	// is listed again next time.
	listedAt := e.opts.Now().UTC()

	refs, err := e.source.ListSince(ctx, since)
	if err != nil {
		logger.Printf("Listing recordings failed: %v", err)
		result.abort(StageList, err)
		return result
	}
	logger.Printf("Pass %s: %d recordings since %s", result.RunID, len(refs), formatSince(since))

	complete := e.collectComplete(ctx, refs, result)

	if len(complete) > 0 {
		ids := make([]string, len(complete))
		for i, rec := range complete {
			ids[i] = rec.StableID()
		}

		existing, err := e.dest.BatchExists(ctx, ids, databaseID, stableProp)
		if err != nil {
			logger.Printf("Duplicate check failed: %v", err)
			result.abort(StageDedup, err)
			return result
		}

		// A recording listed twice in one pass is created once.
		handled := make(map[string]bool, len(complete))
		for _, rec := range complete {
			id := rec.StableID()
			if existing[id] || handled[id] {
				result.SkippedDuplicate++
				continue
			}
			handled[id] = true
			e.create(ctx, rec, databaseID, mapping, opts.DryRun, result)
		}
	}

	if opts.DryRun {
		logger.Printf("Dry run complete: %s", result)
		return result
	}

	// Items skipped by a cancelled context would fall below the new
	// watermark and never be listed again.
	if err := ctx.Err(); err != nil {
		logger.Printf("Pass %s interrupted, keeping watermark: %v", result.RunID, err)
		result.abort(StageWatermark, fmt.Errorf("pass interrupted: %w", err))
		return result
	}

	if err := e.config.SaveWatermark(listedAt); err != nil {
		logger.Printf("Failed to save watermark: %v", err)
		result.addError("", "", StageWatermark, err)
	} else {
		result.Watermark = e.config.LastSync()
	}

	logger.Printf("Pass %s complete: %s", result.RunID, result)
	return result
}

// collectComplete fetches every listed recording in order and returns the
// ones whose processing has finished.
func (e *Engine) collectComplete(ctx context.Context, refs []RecordingRef, result *Result) []*model.Recording {
	var complete []*model.Recording
	for _, ref := range refs {
		raw, err := e.source.FetchDetail(ctx, ref.ID)
		if err != nil {
			e.opts.Logger.Printf("WARNING: Failed to fetch recording %s: %v", ref.ID, err)
			result.addError(ref.ID, ref.Title, StageFetch, err)
			continue
		}

		rec, err := model.BuildRecording(raw)
		if err != nil {
			e.opts.Logger.Printf("WARNING: Skipping malformed recording %s: %v", ref.ID, err)
			result.addError(ref.ID, ref.Title, StageBuild, err)
			continue
		}

		if !rec.IsProcessingComplete() {
			e.opts.Logger.Printf("Recording %s is still processing", rec.ID)
			result.Pending++
			continue
		}
		complete = append(complete, rec)
	}
	return complete
}

func (e *Engine) create(ctx context.Context, rec *model.Recording, databaseID string, mapping model.FieldMapping, dryRun bool, result *Result) {
	title := rec.DisplayTitle()
	props := blocks.BuildProperties(rec, mapping)
	body := blocks.RenderBody(rec)

	if dryRun {
		e.opts.Logger.Printf("Would create page: %s (%s)", title, rec.ID)
		result.Created++
		return
	}

	pageID, err := e.dest.CreatePage(ctx, databaseID, props, rec.Icon(), body)
	if err != nil {
		e.opts.Logger.Printf("WARNING: Failed to create page for %s: %v", rec.ID, err)
		result.addError(rec.ID, title, StageCreate, err)
		return
	}

	result.Created++
	e.opts.Logger.Printf("Created page %s: %s (%s)", pageID, title, rec.ID)

	if e.opts.Recorder == nil {
		return
	}
	page := CreatedPage{
		RunID:              result.RunID,
		StableID:           rec.StableID(),
		PageID:             pageID,
		RecordingID:        rec.ID,
		Title:              title,
		RecordingCreatedAt: rec.CreatedAt,
		SyncedAt:           e.opts.Now().UTC(),
	}
	if err := e.opts.Recorder.RecordCreated(ctx, page); err != nil {
		e.opts.Logger.Printf("WARNING: Failed to record page %s in history: %v", pageID, err)
	}
}

// CountPending returns how many finished recordings since the watermark
// have no page yet. Nothing is created.
func (e *Engine) CountPending(ctx context.Context) (int, error) {
	if !e.config.IsConfigured() {
		return 0, ErrNotConfigured
	}
	stableProp, ok := e.config.FieldMapping().Property(model.FieldStableID)
	if !ok {
		return 0, fmt.Errorf("property map has no stable id field")
	}

	refs, err := e.source.ListSince(ctx, e.config.LastSync())
	if err != nil {
		return 0, fmt.Errorf("failed to list recordings: %w", err)
	}

	scratch := &Result{}
	complete := e.collectComplete(ctx, refs, scratch)
	if len(complete) == 0 {
		return 0, nil
	}

	ids := make([]string, len(complete))
	for i, rec := range complete {
		ids[i] = rec.StableID()
	}
	existing, err := e.dest.BatchExists(ctx, ids, e.config.DatabaseID(), stableProp)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing pages: %w", err)
	}

	count := 0
	for _, id := range ids {
		if !existing[id] {
			count++
		}
	}
	return count, nil
}

func formatSince(since *time.Time) string {
	if since == nil {
		return "the beginning"
	}
	return since.UTC().Format(time.RFC3339)
}
