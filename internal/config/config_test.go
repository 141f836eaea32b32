package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultHistoryPath, cfg.HistoryPath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, time.Duration(0), cfg.JobTimeout())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unitd.yaml")
	content := `
listen_addr: "0.0.0.0:9000"
default_job_timeout: "90s"
log_level: "debug"
event_log: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.JobTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.EventLog)
	// Unset fields keep their defaults
	assert.Equal(t, DefaultHistoryPath, cfg.HistoryPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/unitd.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unitd.yaml")
	content := `
default_job_timeout: "not-a-duration"
log_level: "loud"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_job_timeout")
	assert.Contains(t, err.Error(), "log_level")
}
