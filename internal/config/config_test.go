package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[output]
json = true
context_lines = 5

[watch]
patterns = ["*.log", "*.txt"]
dedupe_seconds = 60

[history]
enabled = false

[log]
path = "/tmp/buildlog-debug.log"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Output.JSON)
	assert.Equal(t, 5, cfg.Output.GetContextLines())
	assert.Equal(t, []string{"*.log", "*.txt"}, cfg.Watch.GetPatterns())
	assert.Equal(t, time.Minute, cfg.Watch.GetDedupeTTL())
	assert.False(t, cfg.History.IsEnabled())
	assert.Equal(t, "/tmp/buildlog-debug.log", cfg.Log.Path)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	// Everything falls back to defaults.
	assert.False(t, cfg.Output.JSON)
	assert.Equal(t, 2, cfg.Output.GetContextLines())
	assert.True(t, cfg.Output.ShouldColor())
	assert.Equal(t, 100, cfg.Output.GetWrapWidth())
	assert.Equal(t, []string{"*.log"}, cfg.Watch.GetPatterns())
	assert.Equal(t, 30*time.Second, cfg.Watch.GetDedupeTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.GetSettleDelay())
	assert.True(t, cfg.History.IsEnabled())
	assert.NotEmpty(t, cfg.History.GetPath())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
