package daemon

import (
	"time"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventStateChanged  EventType = "state_changed"
	EventPassStarted   EventType = "pass_started"
	EventPassCompleted EventType = "pass_completed"
)

// Event is a lifecycle notification sent to an Observer.
type Event struct {
	Type   EventType
	Time   time.Time
	State  State
	Status Status

	// Result is set for EventPassCompleted.
	Result *sync.Result
}

// Observer receives lifecycle events. Observe is called synchronously from
// the loop and must not block.
type Observer interface {
	Observe(event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(event).
func (f ObserverFunc) Observe(event Event) {
	f(event)
}
