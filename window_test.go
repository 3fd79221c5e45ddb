package relnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowMarkSeenIncreasing(t *testing.T) {
	var w Window

	// Three full cycles in send order: every ID is new exactly once per cycle.
	for i := 0; i < 3*WindowSize; i++ {
		id := uint8(i)
		require.False(t, w.MarkSeen(id), "id %d, iteration %d", id, i)
		require.True(t, w.MarkSeen(id), "repeat of id %d, iteration %d", id, i)
	}
}

func TestWindowRepeatWithinHorizon(t *testing.T) {
	var w Window

	assert.False(t, w.MarkSeen(10))
	for id := uint8(11); id < 10+127; id++ {
		assert.False(t, w.MarkSeen(id))
	}

	assert.True(t, w.MarkSeen(10))
}

func TestWindowRetiresHalfCycle(t *testing.T) {
	var w Window

	assert.False(t, w.MarkSeen(200))
	assert.True(t, w.Seen(200))

	// 200+128 wraps to 72.
	assert.False(t, w.MarkSeen(72))
	assert.False(t, w.Seen(200))
	assert.False(t, w.MarkSeen(200))
	assert.False(t, w.Seen(72))
}

func TestWindowReuseAcrossWraparound(t *testing.T) {
	var w Window

	for cycle := 0; cycle < 5; cycle++ {
		assert.False(t, w.MarkSeen(0), "cycle %d", cycle)
		assert.False(t, w.Seen(128), "cycle %d", cycle)
		assert.False(t, w.MarkSeen(128), "cycle %d", cycle)
		assert.False(t, w.Seen(0), "cycle %d", cycle)
	}
}

func TestWindowReset(t *testing.T) {
	var w Window
	w.MarkSeen(1)
	w.MarkSeen(2)

	w.Reset()
	assert.False(t, w.Seen(1))
	assert.False(t, w.MarkSeen(2))
}

func TestWindowSetGrowth(t *testing.T) {
	var ws WindowSet
	assert.Equal(t, 0, ws.Len())

	assert.False(t, ws.MarkSeen(0, 5))
	assert.Equal(t, 1, ws.Len())

	assert.False(t, ws.MarkSeen(5, 5))
	assert.Equal(t, 8, ws.Len())

	assert.False(t, ws.MarkSeen(200, 5))
	assert.Equal(t, 256, ws.Len())

	// Growing keeps old state.
	assert.True(t, ws.MarkSeen(0, 5))
	assert.True(t, ws.MarkSeen(5, 5))

	ws.Reset(5)
	assert.False(t, ws.MarkSeen(5, 5))
	assert.True(t, ws.MarkSeen(200, 5))
}
