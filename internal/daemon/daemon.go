package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/powerflow-sync/powerflow/internal/sync"
)

// State is the lifecycle state of the loop.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateSuccessWait State = "success_wait"
	StateRetryWait   State = "retry_wait"
	StateStopping    State = "stopping"
	StateTerminated  State = "terminated"
)

// Defaults for Config.
const (
	DefaultInterval     = 15 * time.Minute
	DefaultRetryDelay   = 60 * time.Second
	DefaultMaxRetries   = 2
	DefaultPollInterval = 10 * time.Second
)

// PassFunc runs one sync pass. It must always return a result.
type PassFunc func(ctx context.Context) *sync.Result

// Config holds configuration for the daemon.
type Config struct {
	// Interval between passes after a success
	Interval time.Duration

	// RetryDelay is the wait after a fatal pass while the retry budget lasts
	RetryDelay time.Duration

	// MaxRetries is the number of consecutive fast retries
	MaxRetries int

	// PollInterval is how often a wait checks for shutdown
	PollInterval time.Duration

	// StatusPath is where the status file is written; empty disables it
	StatusPath string

	// Notifier receives user-facing notifications. Optional.
	Notifier Notifier

	// Observer receives lifecycle events. Optional.
	Observer Observer

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:     DefaultInterval,
		RetryDelay:   DefaultRetryDelay,
		MaxRetries:   DefaultMaxRetries,
		PollInterval: DefaultPollInterval,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon runs passes until its context is cancelled.
type Daemon struct {
	pass   PassFunc
	config *Config

	status   Status
	failures int

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a daemon with default configuration.
func New(pass PassFunc) (*Daemon, error) {
	return NewWithConfig(pass, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(pass PassFunc, config *Config) (*Daemon, error) {
	if pass == nil {
		return nil, fmt.Errorf("pass cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", config.Interval)
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.Notifier == nil {
		config.Notifier = NopNotifier{}
	}

	return &Daemon{
		pass:   pass,
		config: config,
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Status returns a copy of the current status.
func (d *Daemon) Status() Status {
	return d.status
}

// Run executes passes until ctx is cancelled, then writes the terminated
// status and returns. A pass in flight when ctx is cancelled runs to
// completion first.
func (d *Daemon) Run(ctx context.Context) error {
	logger := d.config.Logger
	started := d.now().UTC()
	d.status = Status{
		PID:             os.Getpid(),
		IntervalSeconds: int64(d.config.Interval / time.Second),
		StartedAt:       &started,
	}
	d.setState(StateIdle)
	if err := d.writeStatus(); err != nil {
		return err
	}

	logger.Printf("Daemon started (PID: %d, interval: %s)", d.status.PID, d.config.Interval)
	d.config.Notifier.Notify("PowerFlow Started", fmt.Sprintf("Syncing every %s", d.config.Interval))

	for ctx.Err() == nil {
		d.setState(StateRunning)
		d.persist()

		result := d.runPass(ctx)
		wait := d.afterPass(result)
		d.persist()

		if !d.sleep(ctx, wait) {
			break
		}
	}

	d.setState(StateStopping)
	logger.Println("Shutdown requested")

	stopped := d.now().UTC()
	d.status.StoppedAt = &stopped
	d.status.NextSyncAt = nil
	d.setState(StateTerminated)
	d.persist()

	logger.Println("Daemon stopped")
	return nil
}

// runPass runs one pass detached from ctx cancellation.
func (d *Daemon) runPass(ctx context.Context) *sync.Result {
	d.emit(Event{Type: EventPassStarted})
	d.config.Logger.Println("Starting sync pass")

	result := d.pass(context.WithoutCancel(ctx))
	if result == nil {
		result = &sync.Result{Fatal: fmt.Errorf("pass returned no result")}
	}

	d.emit(Event{Type: EventPassCompleted, Result: result})
	return result
}

// afterPass updates the status and failure counter from result and
// returns how long to wait before the next pass.
func (d *Daemon) afterPass(result *sync.Result) time.Duration {
	logger := d.config.Logger
	finished := d.now().UTC()
	summary := result.Summary()

	d.status.LastSyncAt = &finished
	d.status.LastResult = &summary
	d.status.RunID = result.RunID

	var wait time.Duration
	if result.OK() {
		d.failures = 0
		d.status.LastError = ""
		wait = d.config.Interval
		d.setState(StateSuccessWait)

		logger.Printf("Sync complete in %s: %s", result.Duration.Round(time.Millisecond), result)
		if result.Created > 0 {
			d.config.Notifier.Notify("PowerFlow Synced",
				fmt.Sprintf("%d new recording(s) added to Notion", result.Created))
		}
	} else {
		d.failures++
		d.status.LastError = result.Fatal.Error()
		logger.Printf("Sync failed: %v", result.Fatal)

		if d.failures <= d.config.MaxRetries {
			wait = d.config.RetryDelay
			logger.Printf("Will retry in %s (attempt %d/%d)", wait, d.failures, d.config.MaxRetries)
		} else {
			wait = d.config.Interval
			logger.Printf("Max retries reached, waiting for next interval")
			msg := "Check the daemon log"
			if d.config.StatusPath != "" {
				msg = fmt.Sprintf("Check logs next to %s", d.config.StatusPath)
			}
			d.config.Notifier.Notify("PowerFlow Sync Failed", msg)
		}
		d.setState(StateRetryWait)
	}

	next := finished.Add(wait)
	d.status.NextSyncAt = &next
	d.status.ConsecutiveFailures = d.failures
	return wait
}

// sleep waits for total in PollInterval steps. It returns false as soon
// as ctx is cancelled.
func (d *Daemon) sleep(ctx context.Context, total time.Duration) bool {
	for remaining := total; remaining > 0; remaining -= d.config.PollInterval {
		step := d.config.PollInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-d.after(step):
		}
	}
	return ctx.Err() == nil
}

func (d *Daemon) setState(state State) {
	if d.status.State == state {
		return
	}
	d.status.State = state
	d.emit(Event{Type: EventStateChanged})
}

func (d *Daemon) emit(event Event) {
	if d.config.Observer == nil {
		return
	}
	event.Time = d.now().UTC()
	event.State = d.status.State
	event.Status = d.status
	d.config.Observer.Observe(event)
}

func (d *Daemon) writeStatus() error {
	if d.config.StatusPath == "" {
		return nil
	}
	return WriteStatus(d.config.StatusPath, d.status)
}

// persist writes the status, logging failures. A broken status file never
// stops the loop.
func (d *Daemon) persist() {
	if err := d.writeStatus(); err != nil {
		d.config.Logger.Printf("Warning: %v", err)
	}
}
