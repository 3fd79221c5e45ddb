package position

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimbeerserverDE/relnet"
)

func addr(id relnet.PeerID) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 42000 + int(id)}
}

type datagram struct {
	data []byte
	to   net.Addr
}

type transport struct {
	sent []datagram
}

func (tr *transport) Enqueue(b []byte, to net.Addr) error {
	tr.sent = append(tr.sent, datagram{bytes.Clone(b), to})
	return nil
}

func newSession(t *testing.T, id relnet.PeerID, peers ...relnet.PeerID) (*relnet.Session, *transport, *Tracker) {
	t.Helper()

	cfg := relnet.DefaultConfig()
	cfg.PeerID = id
	cfg.IsHost = id == relnet.PeerIDHost

	tr := &transport{}
	s := relnet.NewSession(cfg, tr, nil)
	tk := New()
	_, err := s.Register(tk)
	require.NoError(t, err)

	for _, p := range peers {
		s.AddPeer(&relnet.Peer{ID: p, Addr: addr(p)})
	}

	return s, tr, tk
}

func TestPublish(t *testing.T) {
	_, tr, alice := newSession(t, 1, 0, 2)
	host, _, tk := newSession(t, 0, 1, 2)

	var updates []Pos
	tk.OnUpdate = func(p *relnet.Peer, pos Pos) {
		assert.Equal(t, relnet.PeerID(1), p.ID)
		updates = append(updates, pos)
	}

	alice.Publish(Pos{1, 2, 3})
	alice.Publish(Pos{4, 5, 6})
	require.Len(t, tr.sent, 4)

	// Deliver the datagrams for the host newest first.
	for i := len(tr.sent) - 1; i >= 0; i-- {
		d := tr.sent[i]
		if d.to.String() == addr(0).String() {
			require.NoError(t, host.Deliver(d.data, addr(1)))
		}
	}
	require.NoError(t, host.Tick(0))

	assert.Equal(t, []Pos{{4, 5, 6}}, updates)
	pos, ok := tk.Get(1)
	assert.True(t, ok)
	assert.Equal(t, Pos{4, 5, 6}, pos)

	_, ok = tk.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 0, host.OutboundPool().Leased())
}

func TestPeersAndRemoval(t *testing.T) {
	host, _, tk := newSession(t, 0, 1, 2, 3)

	for _, id := range []relnet.PeerID{3, 1} {
		_, tr, other := newSession(t, id, 0)
		other.Publish(Pos{X: float32(id)})
		require.NoError(t, host.Deliver(tr.sent[0].data, addr(id)))
	}
	require.NoError(t, host.Tick(0))

	assert.Equal(t, []relnet.PeerID{1, 3}, tk.Peers())

	host.RemovePeer(3)
	assert.Equal(t, []relnet.PeerID{1}, tk.Peers())
}

func TestReceiveForeignEvent(t *testing.T) {
	_, _, tk := newSession(t, 0, 1)
	called := false
	tk.OnUpdate = func(p *relnet.Peer, pos Pos) { called = true }

	msg := relnet.NewInboundPool(relnet.DefaultMaxDatagramSize).Lease()
	cursor := relnet.FastOrderHeaderSize
	next, err := tk.Receive(msg, &relnet.Peer{ID: 1}, tk.Event(EventUpdate)+1, cursor)

	assert.ErrorIs(t, err, relnet.ErrUnknownEvent)
	assert.Equal(t, cursor, next)
	assert.False(t, called)
	assert.Empty(t, tk.Peers())
}
