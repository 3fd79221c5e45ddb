// Package position broadcasts entity positions as fast-ordered
// relnet messages. Receivers only keep the newest position per peer.
package position

import (
	"sort"

	"github.com/HimbeerserverDE/relnet"
)

// Local event indices.
const (
	EventUpdate = iota

	eventCount
)

// Size of one encoded update.
const updateSize = 3 * 4

// A Pos is a point in world coordinates.
type Pos struct {
	X, Y, Z float32
}

// Tracker implements relnet.Executor.
type Tracker struct {
	relnet.BaseExecutor

	// OnUpdate is called with every accepted update if not nil.
	OnUpdate func(p *relnet.Peer, pos Pos)

	latest map[relnet.PeerID]Pos
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{latest: make(map[relnet.PeerID]Pos)}
}

func (t *Tracker) Name() string { return "position" }

func (t *Tracker) EventCount() int { return eventCount }

// Publish sends pos to every active peer.
func (t *Tracker) Publish(pos Pos) {
	m := t.Session.NewMessage(relnet.FastOrdered, t.Event(EventUpdate), updateSize)
	m.WriteFloat32(pos.X)
	m.WriteFloat32(pos.Y)
	m.WriteFloat32(pos.Z)

	t.Session.SendAll(m)
}

// Get returns the newest position of peer.
func (t *Tracker) Get(peer relnet.PeerID) (Pos, bool) {
	pos, ok := t.latest[peer]
	return pos, ok
}

// Peers returns the IDs of every peer with a known position.
func (t *Tracker) Peers() []relnet.PeerID {
	ids := make([]relnet.PeerID, 0, len(t.latest))
	for id := range t.latest {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Tracker) Receive(msg *relnet.InboundMessage, sender *relnet.Peer, eventID uint8, cursor int) (int, error) {
	if t.Local(eventID) != EventUpdate {
		return cursor, relnet.ErrUnknownEvent
	}

	r := msg.Reader(cursor)
	pos := Pos{
		X: r.ReadFloat32(),
		Y: r.ReadFloat32(),
		Z: r.ReadFloat32(),
	}
	if err := r.Err(); err != nil {
		return cursor, err
	}

	t.latest[sender.ID] = pos
	if t.OnUpdate != nil {
		t.OnUpdate(sender, pos)
	}

	return r.Offset(), nil
}

func (t *Tracker) PlayerRemoved(p *relnet.Peer) {
	delete(t.latest, p.ID)
}
