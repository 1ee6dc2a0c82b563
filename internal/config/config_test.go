package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "recordings", cfg.Record.OutputDir)
	require.Equal(t, 3, cfg.Record.Concurrency)
	require.False(t, cfg.Record.Parallel)
	require.Equal(t, 10*time.Second, cfg.CaptureDuration())
	require.Equal(t, 99, cfg.Record.Display)
	require.False(t, cfg.Probe.Enabled)
	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "webreel.yaml")
	body := `
record:
  output_dir: /var/recordings
  parallel: true
  concurrency: 5
  duration_seconds: 30
probe:
  enabled: true
  timeout_seconds: 5
storage:
  gcs_bucket: reels
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/recordings", cfg.Record.OutputDir)
	require.True(t, cfg.Record.Parallel)
	require.Equal(t, 5, cfg.Record.Concurrency)
	require.Equal(t, 30*time.Second, cfg.CaptureDuration())
	require.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	require.Equal(t, "reels", cfg.Storage.GCSBucket)
	// untouched keys keep their defaults
	require.Equal(t, 1920, cfg.Record.Width)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "webreel.yaml")
	body := `
record:
  concurrency: 0
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "record.concurrency")
}

func TestValidatePubSubNeedsProject(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.PubSub.TopicName = "recordings-done"

	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "pubsub.project_id")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
