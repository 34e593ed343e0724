package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no destination database is set.
var ErrNotConfigured = errors.New("no destination database configured; run `powerflow setup`")

// Stage names the step of a pass where an error happened.
type Stage string

const (
	StageList      Stage = "list"
	StageFetch     Stage = "fetch"
	StageBuild     Stage = "build"
	StageDedup     Stage = "dedup"
	StageCreate    Stage = "create"
	StageWatermark Stage = "watermark"
)

// ItemError describes one failure inside a pass.
type ItemError struct {
	RecordingID string
	Title       string
	Stage       Stage
	Err         error
}

func (e ItemError) Error() string {
	switch {
	case e.RecordingID == "":
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	case e.Title != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Stage, e.RecordingID, e.Title, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Stage, e.RecordingID, e.Err)
	}
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one pass.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	Created          int
	SkippedDuplicate int
	Pending          int
	Failed           int
	Errors           []ItemError

	// Fatal is set when the pass was aborted: the listing or the batched
	// existence check failed, or the configuration is unusable.
	Fatal error

	// Watermark is the value stored at the end of the pass, if advanced.
	Watermark *time.Time
}

// Summary is the persisted form of a Result.
type Summary struct {
	Created          int `json:"created" yaml:"created"`
	SkippedDuplicate int `json:"skippedDuplicate" yaml:"skippedDuplicate"`
	Pending          int `json:"pending" yaml:"pending"`
	Failed           int `json:"failed" yaml:"failed"`
}

// OK reports whether the pass ran to completion.
func (r *Result) OK() bool {
	return r.Fatal == nil
}

// Total returns the number of recordings the pass accounted for.
func (r *Result) Total() int {
	return r.Created + r.SkippedDuplicate + r.Pending + r.Failed
}

// Summary returns the counters of the result.
func (r *Result) Summary() Summary {
	return Summary{
		Created:          r.Created,
		SkippedDuplicate: r.SkippedDuplicate,
		Pending:          r.Pending,
		Failed:           r.Failed,
	}
}

func (r *Result) String() string {
	s := fmt.Sprintf("Created: %d, Skipped: %d, Pending: %d, Failed: %d",
		r.Created, r.SkippedDuplicate, r.Pending, r.Failed)
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

// FailedResult returns the Result of a pass that could not start.
func FailedResult(stage Stage, err error) *Result {
	r := &Result{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	r.abort(stage, err)
	return r
}

func (r *Result) addError(id, title string, stage Stage, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemError{RecordingID: id, Title: title, Stage: stage, Err: err})
}

func (r *Result) abort(stage Stage, err error) {
	r.Fatal = fmt.Errorf("%s failed: %w", stage, err)
	r.addError("", "", stage, err)
}
