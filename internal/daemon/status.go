package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/powerflow-sync/powerflow/internal/fsutil"
	"github.com/powerflow-sync/powerflow/internal/sync"
)

// Status is the persisted daemon status.
type Status struct {
	State               State         `json:"state" yaml:"state"`
	PID                 int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	IntervalSeconds     int64         `json:"intervalSeconds,omitempty" yaml:"intervalSeconds,omitempty"`
	StartedAt           *time.Time    `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	LastSyncAt          *time.Time    `json:"lastSyncAt" yaml:"lastSyncAt"`
	NextSyncAt          *time.Time    `json:"nextSyncAt" yaml:"nextSyncAt"`
	LastResult          *sync.Summary `json:"lastResult" yaml:"lastResult"`
	LastError           string        `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	RunID               string        `json:"runId,omitempty" yaml:"runId,omitempty"`
	ConsecutiveFailures int           `json:"consecutiveFailures" yaml:"consecutiveFailures"`
	StoppedAt           *time.Time    `json:"stoppedAt,omitempty" yaml:"stoppedAt,omitempty"`
}

// Interval returns the configured pass interval.
func (s Status) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// WriteStatus writes status to path atomically.
func WriteStatus(path string, status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// ReadStatus reads the status file. A missing file yields a zero Status
// and no error.
func ReadStatus(path string) (Status, error) {
	var status Status
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("failed to read status file: %w", err)
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("failed to parse status file %s: %w", path, err)
	}
	return status, nil
}
