package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_MissingIsNotRunning(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "server.pid"))
	running, _, err := p.Check()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestPIDFile_LiveProcessIsRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	p := NewPIDFile(path)
	require.NoError(t, p.Write())

	running, pid, err := p.Check()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_DifferentExecutableIsNotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	// The parent process (whatever invoked this test binary) is alive
	// but is never this same executable, so it must be treated as a
	// recycled PID, not a live daemon.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	p := NewPIDFile(path)
	running, pid, err := p.Check()
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, os.Getppid(), pid)
}

func TestPIDFile_StalePIDIsNotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	// PID 999999 is extremely unlikely to be alive in any test sandbox.
	require.NoError(t, os.WriteFile(path, []byte("999999"), 0o600))

	p := NewPIDFile(path)
	running, pid, err := p.Check()
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, 999999, pid)
}

func TestPIDFile_RemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	p := NewPIDFile(path)
	require.NoError(t, p.Write())
	require.NoError(t, p.Remove())
	require.NoError(t, p.Remove())
}
