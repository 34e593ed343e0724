package dashboard

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/powerflow-sync/powerflow/internal/daemon"
	"github.com/powerflow-sync/powerflow/internal/sync"
)

// StateData is sent with state_changed messages.
type StateData struct {
	State               daemon.State `json:"state"`
	NextSyncAt          *time.Time   `json:"nextSyncAt,omitempty"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
}

// PassData is sent with pass_completed messages.
type PassData struct {
	RunID      string          `json:"runId"`
	DryRun     bool            `json:"dryRun,omitempty"`
	DurationMs int64           `json:"durationMs"`
	Summary    sync.Summary    `json:"summary"`
	Fatal      string          `json:"fatal,omitempty"`
	Errors     []ItemErrorData `json:"errors,omitempty"`
}

// ItemErrorData describes one failed recording.
type ItemErrorData struct {
	RecordingID string `json:"recordingId,omitempty"`
	Title       string `json:"title,omitempty"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

// Handler turns daemon events into dashboard messages. It implements
// daemon.Observer.
type Handler struct {
	server *Server
	logger *log.Logger
}

var _ daemon.Observer = (*Handler)(nil)

// NewHandler creates a handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{server: server, logger: logger}
}

// Observe broadcasts event and refreshes the connect snapshot.
func (h *Handler) Observe(event daemon.Event) {
	if snapshot, err := json.Marshal(event.Status); err == nil {
		h.server.SetSnapshot(snapshot)
	}

	var (
		typ  MessageType
		data any
	)
	switch event.Type {
	case daemon.EventStateChanged:
		typ = MessageTypeStateChanged
		data = StateData{
			State:               event.State,
			NextSyncAt:          event.Status.NextSyncAt,
			ConsecutiveFailures: event.Status.ConsecutiveFailures,
		}
	case daemon.EventPassStarted:
		typ = MessageTypePassStarted
	case daemon.EventPassCompleted:
		typ = MessageTypePassCompleted
		data = passData(event.Result)
	default:
		return
	}

	msg := Message{Type: typ, Timestamp: event.Time}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			h.logger.Printf("Failed to marshal %s data: %v", typ, err)
			return
		}
		msg.Data = raw
	}
	h.server.Broadcast(msg)
}

func passData(result *sync.Result) PassData {
	if result == nil {
		return PassData{}
	}
	data := PassData{
		RunID:      result.RunID,
		DryRun:     result.DryRun,
		DurationMs: result.Duration.Milliseconds(),
		Summary:    result.Summary(),
	}
	if result.Fatal != nil {
		data.Fatal = result.Fatal.Error()
	}
	for _, e := range result.Errors {
		item := ItemErrorData{
			RecordingID: e.RecordingID,
			Title:       e.Title,
			Stage:       string(e.Stage),
		}
		if e.Err != nil {
			item.Error = e.Err.Error()
		}
		data.Errors = append(data.Errors, item)
	}
	return data
}
