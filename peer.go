package relnet

import (
	"net"
	"sort"
)

// A Peer is one participant of a Session.
// The session layer owns Peers; executors only read them.
type Peer struct {
	ID        PeerID
	Addr      net.Addr
	Name      string
	Active    bool
	Challenge uint32
	Removed   bool
}

// IsHost reports whether the Peer is the session authority.
func (p *Peer) IsHost() bool { return p.ID == PeerIDHost }

// A PeerList indexes Peers by ID.
type PeerList struct {
	peers map[PeerID]*Peer
}

// NewPeerList returns an empty PeerList.
func NewPeerList() *PeerList {
	return &PeerList{peers: make(map[PeerID]*Peer)}
}

// Get returns the Peer with the given ID or nil.
func (l *PeerList) Get(id PeerID) *Peer { return l.peers[id] }

// Put adds p, replacing any Peer with the same ID.
func (l *PeerList) Put(p *Peer) { l.peers[p.ID] = p }

// Delete removes the Peer with the given ID.
func (l *PeerList) Delete(id PeerID) { delete(l.peers, id) }

// Len returns the number of Peers.
func (l *PeerList) Len() int { return len(l.peers) }

// Active returns the active, not removed Peers ordered by ID.
func (l *PeerList) Active() []*Peer {
	var r []*Peer
	for _, p := range l.peers {
		if p.Active && !p.Removed {
			r = append(r, p)
		}
	}

	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// ByAddr returns the Peer using addr or nil.
func (l *PeerList) ByAddr(addr net.Addr) *Peer {
	if addr == nil {
		return nil
	}

	for _, p := range l.peers {
		if p.Addr != nil && p.Addr.String() == addr.String() {
			return p
		}
	}

	return nil
}

// ByName returns the Peer that is using name or nil.
func (l *PeerList) ByName(name string) *Peer {
	for _, p := range l.peers {
		if p.Name == name {
			return p
		}
	}

	return nil
}
