package daemon

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCommand(t *testing.T) {
	name, args, ok := notifyCommand("darwin", `Say "hi"`, "2 new")
	require.True(t, ok)
	assert.Equal(t, "osascript", name)
	assert.Equal(t, []string{"-e", `display notification "2 new" with title "Say \"hi\""`}, args)

	name, args, ok = notifyCommand("linux", "Title", "Body")
	require.True(t, ok)
	assert.Equal(t, "notify-send", name)
	assert.Equal(t, []string{"--app-name=powerflow", "Title", "Body"}, args)

	_, _, ok = notifyCommand("windows", "Title", "Body")
	assert.False(t, ok)
}

func TestDesktopNotifierSwallowsErrors(t *testing.T) {
	var logs bytes.Buffer
	n := NewDesktopNotifier(log.New(&logs, "", 0))
	n.goos = "linux"

	var gotDeadline bool
	n.run = func(ctx context.Context, name string, args ...string) error {
		_, gotDeadline = ctx.Deadline()
		return errors.New("no display")
	}

	n.Notify("Title", "Body")
	assert.True(t, gotDeadline)
	assert.Equal(t, 5*time.Second, n.Timeout)
	assert.Contains(t, logs.String(), "no display")
}

func TestDesktopNotifierUnsupportedPlatform(t *testing.T) {
	n := NewDesktopNotifier(nil)
	n.goos = "plan9"
	n.run = func(context.Context, string, ...string) error {
		t.Fatal("no command expected")
		return nil
	}
	n.Notify("Title", "Body")
}
