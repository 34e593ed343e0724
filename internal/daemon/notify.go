package daemon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Notifier delivers user-facing notifications. Delivery is best effort and
// must never fail the caller.
type Notifier interface {
	Notify(title, message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(title, message string) {}

// DesktopNotifier shows notifications with osascript on macOS and
// notify-send on Linux. Other platforms are a no-op.
type DesktopNotifier struct {
	Timeout time.Duration
	Logger  *log.Logger

	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier returns a notifier with a five second timeout.
func NewDesktopNotifier(logger *log.Logger) *DesktopNotifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &DesktopNotifier{
		Timeout: 5 * time.Second,
		Logger:  logger,
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

// Notify sends the notification, logging any failure.
func (n *DesktopNotifier) Notify(title, message string) {
	name, args, ok := notifyCommand(n.goos, title, message)
	if !ok {
		return
	}

	ctx := context.Background()
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	if err := n.run(ctx, name, args...); err != nil {
		n.Logger.Printf("Notification failed: %v", err)
	}
}

func notifyCommand(goos, title, message string) (string, []string, bool) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptString(message), appleScriptString(title))
		return "osascript", []string{"-e", script}, true
	case "linux":
		return "notify-send", []string{"--app-name=powerflow", title, message}, true
	default:
		return "", nil, false
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return err
	}
	return nil
}
