package relnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsBlocks(t *testing.T) {
	var r Registry
	a, b, c := newRecorder("a", 2), newRecorder("b", 0), newRecorder("c", 3)

	for _, tt := range []struct {
		e    *recorder
		base uint8
	}{{a, 0}, {b, 2}, {c, 2}} {
		base, err := r.Register(tt.e)
		require.NoError(t, err)
		assert.Equal(t, tt.base, base, tt.e.Name())
	}

	assert.Equal(t, 5, r.Total())
	assert.Equal(t, 3, r.Len())

	for id, want := range []*recorder{a, a, c, c, c} {
		e, ok := r.Owner(uint8(id))
		require.True(t, ok)
		assert.Same(t, want, e)
	}
	_, ok := r.Owner(5)
	assert.False(t, ok)
	_, ok = r.Owner(EventAck)
	assert.False(t, ok)

	base, ok := r.Base(c)
	assert.True(t, ok)
	assert.Equal(t, uint8(2), base)
	_, ok = r.Base(newRecorder("d", 1))
	assert.False(t, ok)

	var order []string
	r.Each(func(e Executor) { order = append(order, e.Name()) })
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRegistryExhausted(t *testing.T) {
	var r Registry

	_, err := r.Register(newRecorder("big", 200))
	require.NoError(t, err)
	_, err = r.Register(newRecorder("rest", 55))
	require.NoError(t, err)
	assert.Equal(t, int(EventAck), r.Total())

	_, err = r.Register(newRecorder("one more", 1))
	assert.ErrorIs(t, err, ErrTooManyEvents)
	assert.Equal(t, 2, r.Len())
}

func TestDispatchUnknownEvent(t *testing.T) {
	var r Registry
	_, err := r.Register(newRecorder("ids 0-4", 5))
	require.NoError(t, err)

	msg := NewInboundPool(64).Lease()
	b := make([]byte, ReliableHeaderSize+1)
	b[offEventID] = 9
	require.NoError(t, msg.Parse(b, nil))

	_, err = r.Dispatch(msg, &Peer{ID: 4}, 9, msg.HeaderSize())
	assert.ErrorIs(t, err, ErrProtocolViolation)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Contains(t, err.Error(), "event 9")

	next, err := r.Dispatch(msg, &Peer{ID: 4}, 4, msg.HeaderSize())
	require.NoError(t, err)
	assert.Equal(t, msg.Length, next)
}

func TestBaseExecutorEvents(t *testing.T) {
	e := newRecorder("x", 3)
	e.Attach(nil, 10)

	assert.Equal(t, uint8(12), e.Event(2))
	assert.Equal(t, 2, e.Local(12))
}
