package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(1<<20), cfg.GC.InitialThresholdBytes)
	assert.Equal(t, 2.0, cfg.GC.GrowthFactor)
	assert.False(t, cfg.GC.StressMode)
	assert.Equal(t, 64*256, cfg.Stack.MaxValues)
	assert.Equal(t, 64, cfg.Stack.MaxFrames)
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gc:\n  stressMode: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.GC.StressMode)
	// Untouched fields keep their defaults.
	assert.Equal(t, int64(1<<20), cfg.GC.InitialThresholdBytes)
	assert.Equal(t, 64, cfg.Stack.MaxFrames)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
