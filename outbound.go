package relnet

import (
	"fmt"
	"math"
	"time"
)

// CompletionFunc is called once per removed target of an OutboundMessage.
// success is false if the target was dropped or ran out of retries.
type CompletionFunc func(peer PeerID, msgID uint16, success bool)

// An OutboundMessage is a pooled datagram buffer together with the
// per-target state needed to deliver it.
//
// Targets live in parallel slices. A target index is stable until
// that target or another one is removed: removal swaps the last
// target into the freed slot.
type OutboundMessage struct {
	index int
	pool  *OutboundPool

	buf []byte
	// Length is the write cursor.
	Length int

	mode    Mode
	eventID uint8

	targets []PeerID
	waits   []time.Duration
	msgIDs  []uint16
	acks    [][AckSize]byte
	pending int

	retries   int
	threshold time.Duration

	fastOrder     []uint16
	fastOrderSet  [WindowSize / 64]uint64
	usedFastOrder bool

	finalized bool

	// OnComplete is called with every removed target if not nil.
	OnComplete CompletionFunc
}

func newOutboundMessage(p *OutboundPool, index, size int) *OutboundMessage {
	return &OutboundMessage{
		index: index,
		pool:  p,
		buf:   make([]byte, size),
	}
}

// Index returns the position of m in its pool.
func (m *OutboundMessage) Index() int { return m.index }

// Mode returns the ordering discipline.
func (m *OutboundMessage) Mode() Mode { return m.mode }

// EventID returns the event ID of the first sub-message.
func (m *OutboundMessage) EventID() uint8 { return m.eventID }

// Cap returns the maximum datagram size.
func (m *OutboundMessage) Cap() int { return len(m.buf) }

// HeaderSize returns the size of the header variant in use.
func (m *OutboundMessage) HeaderSize() int { return m.mode.HeaderSize() }

// Bytes returns the written part of the buffer.
// It is only valid until the buffer is modified.
func (m *OutboundMessage) Bytes() []byte { return m.buf[:m.Length] }

// Payload returns the written bytes following the header.
func (m *OutboundMessage) Payload() []byte { return m.buf[m.HeaderSize():m.Length] }

// Finalized reports whether m has been sent to at least one target.
func (m *OutboundMessage) Finalized() bool { return m.finalized }

// Retries returns how many resend rounds m went through.
func (m *OutboundMessage) Retries() int { return m.retries }

// RetryThreshold returns how long a target waits for an ack before a resend.
func (m *OutboundMessage) RetryThreshold() time.Duration { return m.threshold }

// SetRetryThreshold overrides the session default for m.
func (m *OutboundMessage) SetRetryThreshold(d time.Duration) { m.threshold = d }

// setHeader writes the base header and positions the cursor
// at the start of the payload.
func (m *OutboundMessage) setHeader(mode Mode, src PeerID, eventID uint8) {
	m.mode = mode
	m.eventID = eventID

	n := mode.HeaderSize()
	clear(m.buf[:n])
	m.buf[offSrc] = src
	m.buf[offDst] = PeerIDBroadcast
	m.buf[offEventID] = eventID
	m.Length = n
}

// Pending returns the number of targets that haven't been removed.
func (m *OutboundMessage) Pending() int { return m.pending }

// Target returns the PeerID of the target at index i.
func (m *OutboundMessage) Target(i int) PeerID { return m.targets[i] }

// TargetMsgID returns the message ID assigned to the target at index i.
func (m *OutboundMessage) TargetMsgID(i int) uint16 { return m.msgIDs[i] }

// TargetWait returns how long the target at index i has been waiting.
func (m *OutboundMessage) TargetWait(i int) time.Duration { return m.waits[i] }

// SetTargetAck replaces the acknowledgment block sent to the target at index i.
func (m *OutboundMessage) SetTargetAck(i int, ack [AckSize]byte) { m.acks[i] = ack }

// TargetIndex returns the index of peer or -1 if it isn't a target.
func (m *OutboundMessage) TargetIndex(peer PeerID) int {
	for i := 0; i < m.pending; i++ {
		if m.targets[i] == peer {
			return i
		}
	}
	return -1
}

// AddTarget appends peer as a target with the given message ID
// and returns its index.
func (m *OutboundMessage) AddTarget(peer PeerID, msgID uint16) int {
	if m.pending == len(m.targets) {
		m.growTargets()
	}

	i := m.pending
	m.targets[i] = peer
	m.waits[i] = 0
	m.msgIDs[i] = msgID
	m.acks[i] = [AckSize]byte{}
	m.pending++

	return i
}

func (m *OutboundMessage) growTargets() {
	n := 2 * len(m.targets)
	if n == 0 {
		n = 4
	}

	targets := make([]PeerID, n)
	waits := make([]time.Duration, n)
	msgIDs := make([]uint16, n)
	acks := make([][AckSize]byte, n)

	copy(targets, m.targets[:m.pending])
	copy(waits, m.waits[:m.pending])
	copy(msgIDs, m.msgIDs[:m.pending])
	copy(acks, m.acks[:m.pending])

	m.targets, m.waits, m.msgIDs, m.acks = targets, waits, msgIDs, acks
}

// RemoveTargetIndex removes the target at index i, reporting
// success = !failed to OnComplete. The last target takes its place.
func (m *OutboundMessage) RemoveTargetIndex(i int, failed bool) {
	if i < 0 || i >= m.pending {
		panic(fmt.Sprintf("relnet: target index %d out of range [0, %d)", i, m.pending))
	}

	if m.OnComplete != nil {
		m.OnComplete(m.targets[i], m.msgIDs[i], !failed)
	}

	if m.pending == 1 {
		m.pending = 0
		return
	}

	last := m.pending - 1
	if i != last {
		m.targets[i] = m.targets[last]
		m.waits[i] = m.waits[last]
		m.msgIDs[i] = m.msgIDs[last]
		m.acks[i] = m.acks[last]
	}
	m.pending--
}

// LoadAckFromPeer is LoadAckFromIndex for the target peer.
// It panics if peer isn't a target.
func (m *OutboundMessage) LoadAckFromPeer(peer PeerID) {
	i := m.TargetIndex(peer)
	if i < 0 {
		panic(fmt.Sprintf("relnet: peer %d is not a target of message %d", peer, m.index))
	}
	m.LoadAckFromIndex(i)
}

// LoadAckFromIndex writes the destination, message ID and acknowledgment
// block of the target at index i into the header.
func (m *OutboundMessage) LoadAckFromIndex(i int) {
	if i < 0 || i >= m.pending {
		panic(fmt.Sprintf("relnet: target index %d out of range [0, %d)", i, m.pending))
	}

	m.buf[offDst] = m.targets[i]
	le.PutUint16(m.buf[offMsgID:], m.msgIDs[i])
	if m.mode != FastOrdered {
		copy(m.buf[offAck:offAck+AckSize], m.acks[i][:])
	}
}

// AddFastOrderValue stamps the order value sent to peer.
func (m *OutboundMessage) AddFastOrderValue(peer PeerID, v uint16) {
	if m.fastOrder == nil {
		m.fastOrder = make([]uint16, WindowSize)
	}

	m.fastOrder[peer] = v
	m.fastOrderSet[peer/64] |= 1 << (peer % 64)
	m.usedFastOrder = true
}

// HasFastOrderValue reports whether an order value was stamped for peer.
func (m *OutboundMessage) HasFastOrderValue(peer PeerID) bool {
	return m.fastOrderSet[peer/64]&(1<<(peer%64)) != 0
}

// LoadFastOrderValue writes the order value stamped for peer into the header.
// It panics if none was stamped.
func (m *OutboundMessage) LoadFastOrderValue(peer PeerID) {
	if m.mode != FastOrdered {
		panic("relnet: fast order value on " + m.mode.String() + " message")
	}
	if !m.HasFastOrderValue(peer) {
		panic(fmt.Sprintf("relnet: no fast order value for peer %d", peer))
	}

	le.PutUint16(m.buf[offOrder:], m.fastOrder[peer])
}

func (m *OutboundMessage) reserve(n int) []byte {
	if m.finalized {
		panic("relnet: write to finalized message")
	}
	if m.Length+n > len(m.buf) {
		panic(fmt.Sprintf("relnet: message capacity exceeded: %d+%d > %d", m.Length, n, len(m.buf)))
	}

	b := m.buf[m.Length : m.Length+n]
	m.Length += n

	return b
}

func (m *OutboundMessage) WriteUint8(v uint8) { m.reserve(1)[0] = v }

func (m *OutboundMessage) WriteUint16(v uint16) { le.PutUint16(m.reserve(2), v) }

func (m *OutboundMessage) WriteInt32(v int32) { m.WriteUint32(uint32(v)) }

func (m *OutboundMessage) WriteUint32(v uint32) { le.PutUint32(m.reserve(4), v) }

func (m *OutboundMessage) WriteFloat32(v float32) { m.WriteUint32(math.Float32bits(v)) }

func (m *OutboundMessage) WriteFloat64(v float64) { le.PutUint64(m.reserve(8), math.Float64bits(v)) }

// WriteString writes len(s) as uint16 followed by s.
func (m *OutboundMessage) WriteString(s string) {
	if len(s) > math.MaxUint16 {
		panic("relnet: string too long")
	}

	m.WriteUint16(uint16(len(s)))
	copy(m.reserve(len(s)), s)
}

// WriteBytes appends raw bytes.
func (m *OutboundMessage) WriteBytes(b []byte) { copy(m.reserve(len(b)), b) }

// Clear resets m for reuse.
func (m *OutboundMessage) Clear() {
	m.Length = 0
	m.mode = Immediate
	m.eventID = 0
	m.pending = 0
	m.retries = 0
	m.threshold = 0
	m.finalized = false
	m.OnComplete = nil

	if m.usedFastOrder {
		m.fastOrderSet = [WindowSize / 64]uint64{}
		m.usedFastOrder = false
	}
}

// Release returns m to its pool. m must not be used afterwards.
func (m *OutboundMessage) Release() { m.pool.Release(m) }
