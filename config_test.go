package guide

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 0, cfg.GetInt("matcher.max_rollback_tokens"))
	assert.False(t, cfg.GetBool("matcher.terminate_without_stop_token"))
	assert.Equal(t, 128, cfg.GetInt("matcher.mask_cache_size"))
	assert.Equal(t, 2048, cfg.GetInt("matcher.max_stack_depth"))
	assert.Equal(t, 4096, cfg.GetInt("jump_forward.max_bytes"))
	assert.False(t, cfg.GetBool("bitmask.pin_memory"))
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.GetInt("batch.max_workers"))
	assert.False(t, cfg.Has("matcher.override_stop_tokens"))
}

func TestConfigSetAndGet(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("matcher.max_rollback_tokens", 10)
	cfg.SetString("vocab.type", "byte_level")
	cfg.SetInts("matcher.override_stop_tokens", 2, 1)

	assert.Equal(t, 10, cfg.GetInt("matcher.max_rollback_tokens"))
	assert.Equal(t, "byte_level", cfg.GetString("vocab.type"))
	assert.True(t, cfg.Has("matcher.override_stop_tokens"))

	ids := cfg.GetInts("matcher.override_stop_tokens")
	assert.Equal(t, []int{2, 1}, ids)
	ids[0] = 9
	assert.Equal(t, []int{2, 1}, cfg.GetInts("matcher.override_stop_tokens"), "returned slices are copies")
}

func TestConfigMisuse(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetBool("matcher.max_rollback_tokens") })
	assert.Panics(t, func() { cfg.GetInt("missing") })
	assert.Panics(t, func() { cfg.GetInts("missing") })
	assert.Panics(t, func() { cfg.GetString("missing") })
	assert.Panics(t, func() { cfg.GetBool("missing") })
}

func TestConfigDebug(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("batch.max_workers", 3)
	cfg.SetInts("matcher.override_stop_tokens", 7)

	var buf bytes.Buffer
	cfg.Debug(&buf)
	expected := `Configuration
batch.max_workers                    : 3 (int)
bitmask.pin_memory                   : false (bool)
jump_forward.max_bytes               : 4096 (int)
matcher.mask_cache_size              : 128 (int)
matcher.max_rollback_tokens          : 0 (int)
matcher.max_stack_depth              : 2048 (int)
matcher.override_stop_tokens         : [7] ([]int)
matcher.terminate_without_stop_token : false (bool)
`
	require.Equal(t, expected, buf.String())
}
