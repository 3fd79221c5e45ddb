package relnet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundRoundTrip(t *testing.T) {
	for _, mode := range []Mode{Immediate, ReliableOrdered, FastOrdered} {
		t.Run(mode.String(), func(t *testing.T) {
			s, _ := newTestSession(t, 2)

			out := s.NewMessage(mode, 9, StringSize("payload"))
			out.WriteString("payload")
			out.AddTarget(6, makeMsgID(mode, 300))
			if mode == FastOrdered {
				out.AddFastOrderValue(6, 77)
				out.LoadFastOrderValue(6)
			}
			out.LoadAckFromIndex(0)

			addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 4000}
			in := s.InboundPool().Lease()
			require.NoError(t, in.Parse(out.Bytes(), addr))

			assert.Equal(t, PeerID(2), in.Src)
			assert.Equal(t, PeerID(6), in.Dst)
			assert.Equal(t, makeMsgID(mode, 300), in.MsgID)
			assert.Equal(t, uint8(9), in.EventID)
			assert.Equal(t, mode, in.Mode)
			assert.Equal(t, mode == Immediate, in.Immediate)
			assert.Equal(t, out.Payload(), in.Payload())
			assert.Equal(t, addr, in.Addr)
			if mode == FastOrdered {
				assert.Equal(t, uint16(77), in.Order)
			}

			r := in.Reader(in.HeaderSize())
			assert.Equal(t, "payload", r.ReadString())
			assert.NoError(t, r.Err())

			out.Release()
		})
	}
}

func TestInboundParseErrors(t *testing.T) {
	p := NewInboundPool(32)
	m := p.Lease()

	assert.ErrorIs(t, m.Parse(make([]byte, ReliableHeaderSize-1), nil), ErrShortDatagram)
	assert.ErrorIs(t, m.Parse(make([]byte, 33), nil), ErrLongDatagram)

	b := make([]byte, ReliableHeaderSize)
	le.PutUint16(b[offMsgID:], makeMsgID(FastOrdered, 1))
	assert.ErrorIs(t, m.Parse(b, nil), ErrShortDatagram)

	le.PutUint16(b[offMsgID:], 3<<seqnumBits)
	assert.ErrorIs(t, m.Parse(b, nil), ErrBadMode)
}

func TestInboundHold(t *testing.T) {
	p := NewInboundPool(32)

	m := p.Lease()
	m.markProcessed()
	assert.Equal(t, 0, p.Leased())

	m = p.Lease()
	m.Hold()
	m.markProcessed()
	assert.True(t, m.Processed())
	assert.False(t, m.MayRelease())
	assert.Equal(t, 1, p.Leased())

	m.Unhold()
	assert.Equal(t, 0, p.Leased())

	// Unhold before processing leaves the release to dispatch.
	m = p.Lease()
	m.Hold()
	m.Unhold()
	assert.Equal(t, 1, p.Leased())
	m.markProcessed()
	assert.Equal(t, 0, p.Leased())

	// Two holders: the buffer stays valid until both let go.
	m = p.Lease()
	m.Hold()
	m.Hold()
	m.markProcessed()
	m.Unhold()
	assert.False(t, m.MayRelease())
	assert.Equal(t, 1, p.Leased())
	m.Unhold()
	assert.True(t, m.MayRelease())
	assert.Equal(t, 0, p.Leased())

	assert.Panics(t, func() { m.Unhold() })
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, 1)
	assert.Equal(t, uint16(0x0302), r.ReadUint16())
	assert.Equal(t, uint32(0), r.ReadUint32())
	assert.ErrorIs(t, r.Err(), ErrShortRead)
	assert.Equal(t, uint8(0), r.ReadUint8())
	assert.Equal(t, 0, r.Remaining())

	r = NewReader([]byte{5, 0, 'a'}, 0)
	assert.Equal(t, "", r.ReadString())
	assert.ErrorIs(t, r.Err(), ErrShortRead)

	assert.ErrorIs(t, NewReader(nil, 1).Err(), ErrShortRead)
}
