package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	store, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)
	assert.Equal(t, path, store.Path())
	assert.Equal(t, []int{1, 2, 3, 4}, store.ModelIDs())

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, store.Checkpoints, again.Checkpoints)
}

func TestLoadOrCreate_ReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `onnxruntime_lib: /opt/ort/libonnxruntime.so
use_cuda: true
num_threads: 4
points_per_side: 8
checkpoints:
  2: /models/base
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)

	ckpt, err := store.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, "/models/base", ckpt.Dir)

	cfg, err := store.EngineConfig(2)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.OnnxRuntimeLibPath)
	assert.True(t, cfg.UseCuda)
	assert.Equal(t, 4, cfg.NumThreads)
	assert.Equal(t, 8, cfg.PointsPerSide)
	assert.Equal(t, filepath.Join("/models/base", "vision_encoder.onnx"), cfg.EncodeModelPath)
}

func TestLookup_MissingKey(t *testing.T) {
	store := DefaultStore()
	delete(store.Checkpoints, 3)

	_, err := store.Lookup(3)
	assert.ErrorIs(t, err, ErrUnknownModel)
	_, err = store.EngineConfig(9)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestLoadOrCreate_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checkpoints: [oops"), 0o644))

	_, _, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestModelByName(t *testing.T) {
	id, ok := ModelByName("Base+")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = ModelByName("Huge")
	assert.False(t, ok)
}
