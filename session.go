package relnet

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// A Transport sends raw datagrams. Enqueue must not retain b.
type Transport interface {
	Enqueue(b []byte, addr net.Addr) error
}

type datagram struct {
	data []byte
	addr net.Addr
}

type orderKey struct {
	peer  PeerID
	event uint8
}

func awaitKey(peer PeerID, msgID uint16) uint32 {
	return uint32(peer)<<16 | uint32(msgID)
}

// A Session is one participant's view of a game network:
// its peers, executors, message pools and delivery state.
//
// Everything except Deliver and Post must be called from the
// goroutine that calls Tick.
type Session struct {
	cfg   *Config
	local PeerID
	host  bool

	peers    *PeerList
	registry Registry
	ticked   bool

	out *OutboundPool
	in  *InboundPool

	inflight []*OutboundMessage
	awaiting map[uint32]*OutboundMessage

	windows WindowSet
	acks    [WindowSize]ackState
	nextSeq [3][WindowSize]seqnum

	sendOrder map[orderKey]uint16
	recvOrder map[orderKey]uint16

	queue  lfq.SPSC[datagram]
	posted chan func()

	transport Transport
	metrics   *Metrics
}

// NewSession returns a Session sending through t.
// cfg must be valid; m may be nil.
func NewSession(cfg *Config, t Transport, m *Metrics) *Session {
	if m == nil {
		m = NewMetrics(nil)
	}

	s := &Session{
		cfg:       cfg,
		local:     cfg.PeerID,
		host:      cfg.IsHost,
		peers:     NewPeerList(),
		out:       NewOutboundPool(cfg.MaxDatagramSize),
		in:        NewInboundPool(cfg.MaxDatagramSize),
		awaiting:  make(map[uint32]*OutboundMessage),
		sendOrder: make(map[orderKey]uint16),
		recvOrder: make(map[orderKey]uint16),
		posted:    make(chan func(), 64),
		transport: t,
		metrics:   m,
	}
	s.queue.Init(cfg.QueueCapacity)

	return s
}

// LocalID returns the PeerID of this participant.
func (s *Session) LocalID() PeerID { return s.local }

// IsHost reports whether this participant is the authority.
func (s *Session) IsHost() bool { return s.host }

// Config returns the settings the Session was created with.
func (s *Session) Config() *Config { return s.cfg }

// Peers returns the participants known to the Session.
func (s *Session) Peers() *PeerList { return s.peers }

// Registry returns the event ID table.
func (s *Session) Registry() *Registry { return &s.registry }

func (s *Session) Metrics() *Metrics { return s.metrics }

func (s *Session) OutboundPool() *OutboundPool { return s.out }

func (s *Session) InboundPool() *InboundPool { return s.in }

// InFlight returns the number of reliable messages awaiting acks.
func (s *Session) InFlight() int { return len(s.inflight) }

// Register assigns event IDs to e and attaches it.
// It fails once the first tick has run.
func (s *Session) Register(e Executor) (uint8, error) {
	if s.ticked {
		return 0, ErrRegistered
	}

	base, err := s.registry.Register(e)
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", e.Name(), err)
	}
	e.Attach(s, base)

	return base, nil
}

// NewMessage leases an OutboundMessage, writes its header and
// positions the cursor at the payload. It panics if payloadLen
// doesn't fit into a datagram.
func (s *Session) NewMessage(mode Mode, eventID uint8, payloadLen int) *OutboundMessage {
	m := s.out.Lease()
	if mode.HeaderSize()+payloadLen > m.Cap() {
		m.Release()
		panic(fmt.Sprintf("relnet: payload of %d bytes exceeds datagram size %d", payloadLen, s.out.Size()))
	}

	m.setHeader(mode, s.local, eventID)
	m.threshold = s.cfg.RetryThreshold()

	return m
}

// Send transmits m to every target and takes ownership of it.
// Reliable messages stay in flight until every target is removed,
// all others go back to the pool right away.
func (s *Session) Send(m *OutboundMessage, targets ...PeerID) {
	if m.finalized {
		panic("relnet: message sent twice")
	}

	for _, id := range targets {
		p := s.peers.Get(id)
		if p == nil || !p.Active || p.Removed || id == s.local || m.TargetIndex(id) >= 0 {
			if m.OnComplete != nil {
				m.OnComplete(id, 0, false)
			}
			continue
		}

		seq := s.nextSeq[m.mode][id]
		s.nextSeq[m.mode][id] = seq.next()
		m.AddTarget(id, makeMsgID(m.mode, seq))

		if m.mode == FastOrdered {
			k := orderKey{id, m.eventID}
			s.sendOrder[k]++
			m.AddFastOrderValue(id, s.sendOrder[k])
		}
	}

	for i := 0; i < m.pending; i++ {
		s.transmit(m, i)
	}
	if m.pending > 0 {
		m.finalized = true
	}

	if m.mode != ReliableOrdered || m.pending == 0 {
		for m.pending > 0 {
			m.RemoveTargetIndex(m.pending-1, false)
		}
		m.Release()
		return
	}

	for i := 0; i < m.pending; i++ {
		s.awaiting[awaitKey(m.targets[i], m.msgIDs[i])] = m
	}
	s.inflight = append(s.inflight, m)
	s.metrics.InFlight.Set(float64(len(s.inflight)))
}

// SendAll sends m to every active peer except the local one.
func (s *Session) SendAll(m *OutboundMessage) {
	var targets []PeerID
	for _, p := range s.peers.Active() {
		if p.ID != s.local {
			targets = append(targets, p.ID)
		}
	}

	s.Send(m, targets...)
}

// SendHost sends m to the host.
func (s *Session) SendHost(m *OutboundMessage) { s.Send(m, PeerIDHost) }

// transmit sends m to the target at index i alone.
func (s *Session) transmit(m *OutboundMessage, i int) {
	p := s.peers.Get(m.targets[i])
	if p == nil {
		return
	}

	if m.mode == FastOrdered {
		m.LoadAckFromIndex(i)
		m.LoadFastOrderValue(p.ID)
	} else {
		m.acks[i] = s.acks[p.ID].encode()
		m.LoadAckFromIndex(i)
		s.acks[p.ID].dirty = false
	}

	if err := s.transport.Enqueue(m.Bytes(), p.Addr); err != nil {
		log.Printf("send to peer %d: %v", p.ID, err)
		return
	}
	s.metrics.DatagramsSent.Inc()
}

// Deliver queues a received datagram for the next Tick.
// It is the only method that may be called from the I/O goroutine
// and there must be only one such goroutine. It returns
// iox.ErrWouldBlock if the queue is full.
func (s *Session) Deliver(b []byte, addr net.Addr) error {
	d := datagram{data: bytes.Clone(b), addr: addr}
	if err := s.queue.Enqueue(&d); err != nil {
		s.metrics.drop(DropOverflow)
		return err
	}

	return nil
}

// Post runs fn on the tick goroutine at the start of the next Tick.
// It may be called from any goroutine. It doesn't block: if the
// queue is full, fn is dropped and ErrPostQueueFull is returned.
func (s *Session) Post(fn func()) error {
	select {
	case s.posted <- fn:
		return nil
	default:
		return ErrPostQueueFull
	}
}

func (s *Session) runPosted() {
	for {
		select {
		case fn := <-s.posted:
			fn()
		default:
			return
		}
	}
}

// Tick runs one scheduling step: posted functions, PreTick,
// dispatch of every queued datagram in arrival order, PostTick,
// resends and ack-only datagrams.
// A non-nil error is a *ProtocolError and is fatal.
func (s *Session) Tick(elapsed time.Duration) error {
	s.ticked = true
	s.runPosted()

	s.registry.Each(func(e Executor) { e.PreTick() })

	if err := s.drain(); err != nil {
		return err
	}

	s.registry.Each(func(e Executor) { e.PostTick() })

	s.advance(elapsed)
	s.flushAcks()

	return nil
}

func (s *Session) drain() error {
	for {
		d, err := s.queue.Dequeue()
		if iox.IsWouldBlock(err) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.receive(d); err != nil {
			return err
		}
	}
}

func sameAddr(a, b net.Addr) bool {
	return a != nil && b != nil && a.String() == b.String()
}

func (s *Session) receive(d datagram) error {
	s.metrics.DatagramsReceived.Inc()

	msg := s.in.Lease()
	defer msg.markProcessed()

	if err := msg.Parse(d.data, d.addr); err != nil {
		s.metrics.drop(DropMalformed)
		return nil
	}

	sender := s.peers.Get(msg.Src)
	if sender == nil || !sender.Active || sender.Removed || !sameAddr(sender.Addr, d.addr) {
		s.metrics.drop(DropUnknown)
		return nil
	}
	if msg.Dst != s.local && msg.Dst != PeerIDBroadcast {
		s.metrics.drop(DropForeign)
		return nil
	}

	if msg.Mode != FastOrdered {
		s.applyAcks(sender.ID, msg.ackBlock())
	}

	switch msg.Mode {
	case ReliableOrdered:
		seq := msg.seq()
		s.acks[sender.ID].record(seq)
		if s.windows.MarkSeen(sender.ID, uint8(seq)) {
			s.metrics.drop(DropDuplicate)
			return nil
		}
	case FastOrdered:
		if !s.acceptOrder(sender.ID, msg.EventID, msg.Order) {
			s.metrics.drop(DropStale)
			return nil
		}
	}

	if msg.EventID == EventAck {
		return nil
	}

	return s.dispatch(msg, sender)
}

// dispatch hands every sub-message of msg to its executor.
// Sub-messages after the first are prefixed by their event ID.
func (s *Session) dispatch(msg *InboundMessage, sender *Peer) error {
	eventID := msg.EventID
	cursor := msg.HeaderSize()
	for {
		next, err := s.registry.Dispatch(msg, sender, eventID, cursor)
		if err != nil {
			return err
		}
		if next == msg.Length {
			return nil
		}

		eventID = msg.buf[next]
		cursor = next + 1
	}
}

// acceptOrder reports whether v is newer than the last order value
// accepted from peer for event and remembers it if so.
func (s *Session) acceptOrder(peer PeerID, event uint8, v uint16) bool {
	k := orderKey{peer, event}
	if last, ok := s.recvOrder[k]; ok && int16(v-last) <= 0 {
		return false
	}

	s.recvOrder[k] = v
	return true
}

// applyAcks removes every target of peer confirmed by the block.
func (s *Session) applyAcks(peer PeerID, block []byte) {
	acked := false
	decodeAcks(block, func(seq seqnum) {
		id := makeMsgID(ReliableOrdered, seq)
		k := awaitKey(peer, id)

		m, ok := s.awaiting[k]
		if !ok {
			return
		}
		delete(s.awaiting, k)

		if i := m.TargetIndex(peer); i >= 0 && m.msgIDs[i] == id {
			m.RemoveTargetIndex(i, false)
			s.metrics.TargetsAcked.Inc()
			acked = true
		}
	})

	if acked {
		s.reap()
	}
}

// advance runs the retry scheduler for elapsed time.
func (s *Session) advance(elapsed time.Duration) {
	for _, m := range s.inflight {
		due := false
		for i := 0; i < m.pending; i++ {
			m.waits[i] += elapsed
			if m.waits[i] >= m.threshold {
				due = true
			}
		}
		if !due {
			continue
		}

		m.retries++
		if m.retries > s.cfg.MaxRetries {
			// Removal swaps the last target in, so walk backwards.
			for i := m.pending - 1; i >= 0; i-- {
				if m.waits[i] < m.threshold {
					continue
				}

				log.Printf("peer %d unreachable, giving up on message %#04x", m.targets[i], m.msgIDs[i])
				s.failTarget(m, i)
			}
			continue
		}

		for i := 0; i < m.pending; i++ {
			if m.waits[i] < m.threshold {
				continue
			}

			m.waits[i] = 0
			s.transmit(m, i)
			s.metrics.Resends.Inc()
		}
	}

	s.reap()
}

func (s *Session) failTarget(m *OutboundMessage, i int) {
	delete(s.awaiting, awaitKey(m.targets[i], m.msgIDs[i]))
	m.RemoveTargetIndex(i, true)
	s.metrics.TargetsFailed.Inc()
}

// failTargets removes peer from every message in flight.
func (s *Session) failTargets(peer PeerID) {
	for _, m := range s.inflight {
		if i := m.TargetIndex(peer); i >= 0 {
			s.failTarget(m, i)
		}
	}

	s.reap()
}

// reap returns messages without pending targets to the pool.
func (s *Session) reap() {
	n := 0
	for _, m := range s.inflight {
		if m.pending > 0 {
			s.inflight[n] = m
			n++
			continue
		}

		m.Release()
	}

	clear(s.inflight[n:])
	s.inflight = s.inflight[:n]
	s.metrics.InFlight.Set(float64(n))
}

// flushAcks sends an ack-only datagram to every peer whose
// reliable messages haven't been acknowledged by other traffic.
func (s *Session) flushAcks() {
	for id := range s.acks {
		if !s.acks[id].dirty {
			continue
		}

		p := s.peers.Get(PeerID(id))
		if p == nil || !p.Active || p.Removed {
			s.acks[id].dirty = false
			continue
		}

		s.Send(s.NewMessage(Immediate, EventAck, 0), p.ID)
	}
}
