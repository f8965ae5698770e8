package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaultsWithWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, loaded.Exists)
	assert.Len(t, loaded.Warnings, 1)
	assert.Equal(t, 900*time.Millisecond, loaded.Config.ASR.PartialTick)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
documents_dir: /tmp/notes
database_path: /tmp/notes/notes.db
scratch_dir: /tmp/notes/scratch
asr:
  model_path: /tmp/models/ggml-small.bin
  default_mode: tr
  partial_tick_ms: 750ms
  rolling_window_seconds: 8
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Exists)
	assert.Equal(t, "/tmp/notes", loaded.Config.DocumentsDir)
	assert.Equal(t, "tr", loaded.Config.ASR.DefaultMode)
	assert.Equal(t, 750*time.Millisecond, loaded.Config.ASR.PartialTick)
	assert.Equal(t, 8, loaded.Config.ASR.RollingWindowS)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `asr:
  default_mode: fr
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/explicit/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/config.yaml", path)
}

func TestResolvePathUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, "/xdg/voicenoted/config.yaml", path)
}

func TestExpandHomeResolvesTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Documents"), expandHome("~/Documents"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}
