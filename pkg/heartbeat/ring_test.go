package heartbeat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushUntilFull(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 0, r.Cursor())
	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))
	assert.Equal(t, 2, r.Cursor())
	assert.True(t, r.Push(3))
	assert.Equal(t, []int{1, 2, 3}, r.Items())
	assert.Equal(t, 0, r.Cursor(), "cursor wraps at capacity")
}

func TestRing_OverwriteOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 2, r.Cursor())

	var got []int
	r.Do(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{3, 4, 5}, got)
}

func TestRing_Reset(t *testing.T) {
	r := NewRing[string](2)
	r.Push("a")
	r.Push("b")
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Cursor())
	assert.Empty(t, r.Items())
	assert.Equal(t, 2, r.Cap())
}

func TestRing_CapacityOne(t *testing.T) {
	r := NewRing[int](1)
	assert.True(t, r.Push(7))
	assert.Equal(t, 0, r.Cursor())
	assert.True(t, r.Push(8))
	assert.Equal(t, []int{8}, r.Items())
}

func TestNewRing_Panics(t *testing.T) {
	assert.Panics(t, func() { NewRing[int](0) })
}
