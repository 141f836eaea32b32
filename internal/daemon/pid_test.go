package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_Acquire(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pf := NewPIDFile(pidPath)
	err := pf.Acquire()
	require.NoError(t, err)

	// Verify file contains current PID
	content, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, pf.Release())
}

func TestPIDFile_Acquire_AlreadyRunning(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pf1 := NewPIDFile(pidPath)
	err := pf1.Acquire()
	require.NoError(t, err)

	// Second acquire should fail (current process is still running)
	pf2 := NewPIDFile(pidPath)
	err = pf2.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon already running")

	require.NoError(t, pf1.Release())
}

func TestPIDFile_Acquire_StaleFile(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	// Write a PID that cannot be a live process
	require.NoError(t, os.WriteFile(pidPath, []byte("999999999"), 0644))

	pf := NewPIDFile(pidPath)
	err := pf.Acquire()
	require.NoError(t, err, "stale PID files are reclaimed")

	require.NoError(t, pf.Release())
}

func TestPIDFile_Release_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	pf := NewPIDFile(filepath.Join(tmpDir, "test.pid"))

	require.NoError(t, pf.Acquire())
	require.NoError(t, pf.Release())
	require.NoError(t, pf.Release())
}

func TestReadPID_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.pid")

	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))
	_, err := ReadPID(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
	_, err = ReadPID(path)
	require.Error(t, err)
}
