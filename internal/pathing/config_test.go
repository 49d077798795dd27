package pathing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_DefaultsForMissingKeys(t *testing.T) {
	cfg, err := ParseConfig([]byte("iterations_per_tick: 50\nverbose: true\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.IterationsPerTick)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 2, cfg.Ratio)
	assert.Equal(t, 300, cfg.GraceTicks)
	assert.Equal(t, 1024, cfg.EventQueueSize)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero iterations", "iterations_per_tick: 0"},
		{"zero ratio", "ratio: 0"},
		{"negative grace", "grace_ticks: -1"},
		{"empty queue", "event_queue_size: 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := ParseConfig([]byte("ratio: [1, 2]"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratio: 4\ngrace_ticks: 10\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Ratio)
	assert.Equal(t, 10, cfg.GraceTicks)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
