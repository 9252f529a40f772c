package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWorldConfig(t *testing.T) {
	t.Setenv("KYANITE_ECS_WORKERS", "3")
	t.Setenv("KYANITE_ECS_CHUNK_SIZE", "64")
	t.Setenv("KYANITE_ECS_COMMIT_MODE", "after_system")

	cfg, err := LoadWorldConfig()
	require.NoError(t, err)
	assert.Equal(t, WorldConfig{Workers: 3, ChunkSize: 64, CommitMode: "after_system"}, cfg)

	w := newTestWorld(t, cfg.Options()...)
	assert.Equal(t, 3, w.options.workers)
	assert.Equal(t, 64, w.options.chunkSize)
	assert.Equal(t, CommitAfterSystem, w.options.commitMode)
}

func TestLoadWorldConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "negative workers", key: "KYANITE_ECS_WORKERS", val: "-1"},
		{name: "zero chunk size", key: "KYANITE_ECS_CHUNK_SIZE", val: "0"},
		{name: "unknown commit mode", key: "KYANITE_ECS_COMMIT_MODE", val: "never"},
		{name: "not a number", key: "KYANITE_ECS_WORKERS", val: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadWorldConfig()
			require.Error(t, err)
		})
	}
}
