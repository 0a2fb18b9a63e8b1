package energy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNull(t *testing.T) {
	var b Backend = Null{}
	require.NoError(t, b.Init(context.Background()))
	e, err := b.Read(-1, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, e)
	assert.Equal(t, "None", b.Source())
	assert.NoError(t, b.Finish())
}

func TestFunc(t *testing.T) {
	var calls [][2]int64
	f := NewFunc("trace", func(last, curr int64) (float64, error) {
		calls = append(calls, [2]int64{last, curr})
		return float64(curr) / 1e9, nil
	})

	_, err := f.Read(0, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, f.Init(context.Background()))
	e, err := f.Read(-1, 2e9)
	require.NoError(t, err)
	assert.Equal(t, 2.0, e)
	assert.Equal(t, [][2]int64{{-1, 2e9}}, calls)
	assert.Equal(t, "trace", f.Source())

	require.NoError(t, f.Finish())
	_, err = f.Read(0, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOpen(t *testing.T) {
	b, err := Open("", Options{})
	require.NoError(t, err)
	assert.Equal(t, "None", b.Source())

	_, err = Open("odroid", Options{})
	assert.True(t, errors.Is(err, ErrUnknownSource))

	Register("test-const", func(Options) (Backend, error) {
		return NewFunc("const", func(int64, int64) (float64, error) { return 1, nil }), nil
	})
	assert.Contains(t, Names(), "test-const")
	assert.Contains(t, Names(), "null")

	b, err = Open("test-const", Options{})
	require.NoError(t, err)
	assert.Equal(t, "const", b.Source())
}
