package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "robotwatch.pid")

	require.NoError(t, pid.Write(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	// Rewriting our own PID is allowed.
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, pid.Remove(path))
}

func TestWriteDetectsRunningProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robotwatch.pid")
	// The parent of the test binary is alive for the duration of the test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(path)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robotwatch.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o600))

	err := pid.Write(path)
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
}
