package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWritesAndTees(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	var mirror bytes.Buffer

	config := DefaultFileConfig(path)
	config.Tee = &mirror

	out, err := Open(config)
	require.NoError(t, err)

	logger := New(out, "daemon")
	logger.Print("pass started")
	require.NoError(t, out.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[daemon] pass started")
	assert.Contains(t, mirror.String(), "[daemon] pass started")
}

func TestOpenWithoutPathUsesStderr(t *testing.T) {
	out, err := Open(nil)
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, out.Writer)
	assert.NoError(t, out.Close())
	assert.NoError(t, out.Rotate())
}

func TestNewPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "").Print("plain")
	assert.NotContains(t, buf.String(), "[")

	Discard().Print("nothing")
}
