package relnet

import "log"

// AddPeer makes p an active participant and resets all delivery
// state kept for its ID. Executors get PlayerAdded afterwards.
func (s *Session) AddPeer(p *Peer) {
	if old := s.peers.Get(p.ID); old != nil && !old.Removed {
		s.failTargets(p.ID)
	}

	p.Active = true
	p.Removed = false
	s.peers.Put(p)
	s.resetPeer(p.ID)

	log.Printf("peer %d (%s) joined from %v", p.ID, p.Name, p.Addr)

	s.registry.Each(func(e Executor) { e.PlayerAdded(p) })
}

// RemovePeer marks the peer as removed. Every message in flight
// to it reports failure. Executors get PlayerRemoved afterwards.
func (s *Session) RemovePeer(id PeerID) {
	p := s.peers.Get(id)
	if p == nil || p.Removed {
		return
	}

	p.Active = false
	p.Removed = true
	s.failTargets(id)
	s.acks[id].reset()

	log.Printf("peer %d (%s) left", p.ID, p.Name)

	s.registry.Each(func(e Executor) { e.PlayerRemoved(p) })
}

// ConfirmLocal records the PeerID the session layer assigned to
// this participant. Executors get ClientConnected afterwards.
func (s *Session) ConfirmLocal(id PeerID) {
	s.local = id
	s.host = id == PeerIDHost

	s.registry.Each(func(e Executor) { e.ClientConnected() })
}

func (s *Session) resetPeer(id PeerID) {
	s.windows.Reset(id)
	s.acks[id].reset()
	for i := range s.nextSeq {
		s.nextSeq[i][id] = 0
	}

	for k := range s.sendOrder {
		if k.peer == id {
			delete(s.sendOrder, k)
		}
	}
	for k := range s.recvOrder {
		if k.peer == id {
			delete(s.recvOrder, k)
		}
	}
}
