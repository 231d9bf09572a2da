package guide

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmaskShape(t *testing.T) {
	tests := []struct {
		batch, vocab int
		rows, words  int
	}{
		{1, 1, 1, 1},
		{1, 32, 1, 1},
		{1, 33, 1, 2},
		{4, 128256, 4, 4008},
	}
	for _, tc := range tests {
		rows, words := BitmaskShape(tc.batch, tc.vocab)
		assert.Equal(t, tc.rows, rows)
		assert.Equal(t, tc.words, words)
	}
}

func TestAllocateTokenBitmask(t *testing.T) {
	b, err := AllocateTokenBitmask(2, 40, nil)
	require.NoError(t, err)
	assert.Len(t, b.Data, 4)
	assert.Equal(t, 2, b.Words())
	assert.Equal(t, DeviceCPU, b.Device)
	assert.False(t, b.Pinned)
	for _, w := range b.Data {
		assert.Equal(t, int32(-1), w, "everything is allowed by default")
	}
	assert.Len(t, b.AllowedTokens(1), 40, "bits past the vocabulary aren't tokens")
	assert.True(t, b.Allowed(1, 39))
	assert.False(t, b.Allowed(1, 40))
	assert.False(t, b.Allowed(1, -1))

	cfg := NewConfig()
	cfg.SetBool("bitmask.pin_memory", true)
	b, err = AllocateTokenBitmask(1, 8, cfg)
	require.NoError(t, err)
	assert.True(t, b.Pinned)

	var berr *BitmaskError
	_, err = AllocateTokenBitmask(0, 8, nil)
	assert.True(t, errors.As(err, &berr))
	_, err = AllocateTokenBitmask(1, 0, nil)
	assert.True(t, errors.As(err, &berr))
}

func TestBitmaskBits(t *testing.T) {
	b, err := AllocateTokenBitmask(2, 64, nil)
	require.NoError(t, err)
	clear(b.Data)

	setBit(b.Row(1), 0)
	setBit(b.Row(1), 31)
	setBit(b.Row(1), 63)
	assert.Empty(t, b.AllowedTokens(0), "rows don't overlap")
	assert.Equal(t, []int32{0, 31, 63}, b.AllowedTokens(1))
	assert.Equal(t, int32(-1<<31|1), b.Row(1)[0])

	clearBit(b.Row(1), 31)
	assert.Equal(t, []int32{0, 63}, b.AllowedTokens(1))
}

func TestBitmaskCheck(t *testing.T) {
	tests := []struct {
		name    string
		bitmask func() *TokenBitmask
		index   int
		message string
	}{
		{"nil", func() *TokenBitmask { return nil }, 0, "nil bitmask"},
		{
			"accelerator",
			func() *TokenBitmask {
				b, _ := AllocateTokenBitmask(1, 64, nil)
				b.Device = DeviceAccelerator
				return b
			},
			0, "must live on the cpu, found accelerator",
		},
		{
			"vocab too small",
			func() *TokenBitmask {
				b, _ := AllocateTokenBitmask(1, 10, nil)
				return b
			},
			0, "smaller than the vocabulary",
		},
		{
			"inconsistent data",
			func() *TokenBitmask {
				b, _ := AllocateTokenBitmask(2, 64, nil)
				b.Data = b.Data[:3]
				return b
			},
			0, "expected 2 rows of 2",
		},
		{
			"row out of range",
			func() *TokenBitmask {
				b, _ := AllocateTokenBitmask(2, 64, nil)
				return b
			},
			2, "row 2 out of range",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bitmask().check(tc.index, 64)
			var berr *BitmaskError
			require.True(t, errors.As(err, &berr), "expected a BitmaskError, got %v", err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}

	b, err := AllocateTokenBitmask(2, 100, nil)
	require.NoError(t, err)
	assert.NoError(t, b.check(1, 64), "larger bitmasks are fine")
}

func TestFillNextTokenBitmaskPaddedVocabulary(t *testing.T) {
	cg := compileTestGrammar(t, booleanGrammar, "root", booleanTokens, WithSpecialTokens(12), WithVocabSize(40))
	m, err := NewGrammarMatcher(cg, nil)
	require.NoError(t, err)

	b, err := AllocateTokenBitmask(1, 64, nil)
	require.NoError(t, err)
	require.NoError(t, m.FillNextTokenBitmask(b, 0))
	assert.Equal(t, []int32{1, 5, 7, 8, 9}, b.AllowedTokens(0), "padding and trailing bits are cleared")

	var berr *BitmaskError
	small, err := AllocateTokenBitmask(1, 13, nil)
	require.NoError(t, err)
	assert.True(t, errors.As(m.FillNextTokenBitmask(small, 0), &berr))
}

func TestDeviceString(t *testing.T) {
	assert.Equal(t, "cpu", DeviceCPU.String())
	assert.Equal(t, "accelerator", DeviceAccelerator.String())
	assert.Equal(t, "device(5)", Device(5).String())
}
