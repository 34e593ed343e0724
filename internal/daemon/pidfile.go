package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrAlreadyRunning is returned by AcquirePID when another live process
// holds the PID file.
var ErrAlreadyRunning = errors.New("powerflow is already running")

// Role names the kind of process holding the PID file. The daemon and an
// interactive sync share one guard so they never write the config at once.
type Role string

const (
	RoleDaemon Role = "daemon"
	RoleSync   Role = "sync"
)

// Describe returns a phrase for user-facing messages.
func (r Role) Describe() string {
	if r == RoleSync {
		return "an interactive sync"
	}
	return "the daemon"
}

// Owner is the process recorded in a PID file.
type Owner struct {
	PID  int
	Role Role
}

// PIDFile is a held single-instance guard.
type PIDFile struct {
	path  string
	owner Owner
}

// AcquirePID creates the PID file at path for the current process acting
// as role. A file left behind by a dead process is replaced.
func AcquirePID(path string, role Role) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	self := Owner{PID: os.Getpid(), Role: role}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n%s\n", self.PID, self.Role)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write PID file: %w", errors.Join(werr, cerr))
			}
			return &PIDFile{path: path, owner: self}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create PID file: %w", err)
		}

		holder, ok := ReadOwner(path)
		if ok && holder.PID != self.PID && processAlive(holder.PID) {
			return nil, fmt.Errorf("%w: %s holds the lock (PID %d)", ErrAlreadyRunning, holder.Role.Describe(), holder.PID)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to acquire PID file %s", path)
}

// PID returns the process id written to the file.
func (p *PIDFile) PID() int {
	return p.owner.PID
}

// Release removes the PID file if it still belongs to this guard.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	if holder, ok := ReadOwner(p.path); ok && holder.PID != p.owner.PID {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ReadOwner returns the process stored at path. Files without a role line
// belong to the daemon.
func ReadOwner(path string) (Owner, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Owner{}, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return Owner{}, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return Owner{}, false
	}
	owner := Owner{PID: pid, Role: RoleDaemon}
	if len(fields) > 1 {
		owner.Role = Role(fields[1])
	}
	return owner, true
}

// ReadPID returns the process id stored at path.
func ReadPID(path string) (int, bool) {
	owner, ok := ReadOwner(path)
	return owner.PID, ok
}

// Running returns the live process holding the PID file, if any.
func Running(path string) (Owner, bool) {
	owner, ok := ReadOwner(path)
	if !ok || !processAlive(owner.PID) {
		return Owner{}, false
	}
	return owner, true
}

// IsRunning reports whether a live process holds the PID file.
func IsRunning(path string) (int, bool) {
	owner, ok := Running(path)
	return owner.PID, ok
}

// StopOptions controls Stop.
type StopOptions struct {
	// Attempts is how many times liveness is polled after SIGTERM
	Attempts int

	// PollInterval is the wait between polls
	PollInterval time.Duration
}

// DefaultStopOptions polls ten times, half a second apart.
func DefaultStopOptions() StopOptions {
	return StopOptions{Attempts: 10, PollInterval: 500 * time.Millisecond}
}

// StopResult describes what Stop did.
type StopResult struct {
	PID        int
	WasRunning bool
	Killed     bool
}

// Stop asks the process in the PID file to terminate and waits for it to
// exit. A process that outlives the polling window is killed. The PID file
// is removed once the process is gone.
func Stop(path string, opts StopOptions) (StopResult, error) {
	pid, running := IsRunning(path)
	if !running {
		_ = os.Remove(path)
		return StopResult{}, nil
	}
	result := StopResult{PID: pid, WasRunning: true}

	if err := terminateProcess(pid); err != nil {
		if !processAlive(pid) {
			_ = os.Remove(path)
			return result, nil
		}
		return result, fmt.Errorf("failed to signal PID %d: %w", pid, err)
	}

	for i := 0; i < opts.Attempts; i++ {
		time.Sleep(opts.PollInterval)
		if !processAlive(pid) {
			_ = os.Remove(path)
			return result, nil
		}
	}

	if err := killProcess(pid); err != nil && processAlive(pid) {
		return result, fmt.Errorf("failed to kill PID %d: %w", pid, err)
	}
	result.Killed = true
	time.Sleep(opts.PollInterval)
	_ = os.Remove(path)
	return result, nil
}
