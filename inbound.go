package relnet

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrShortDatagram = errors.New("relnet: datagram shorter than its header")
	ErrLongDatagram  = errors.New("relnet: datagram exceeds maximum size")
	ErrBadMode       = errors.New("relnet: unknown delivery mode")
)

// An InboundMessage is a pooled copy of a received datagram
// together with its parsed header.
//
// It goes back to its pool once it has been processed and nobody
// holds it, so several consumers can finish with the buffer in
// any order.
type InboundMessage struct {
	index int
	pool  *InboundPool

	buf    []byte
	Length int
	Addr   net.Addr

	Src       PeerID
	Dst       PeerID
	MsgID     uint16
	EventID   uint8
	Mode      Mode
	Immediate bool
	Order     uint16

	processed bool
	holds     int
}

func newInboundMessage(p *InboundPool, index, size int) *InboundMessage {
	return &InboundMessage{
		index: index,
		pool:  p,
		buf:   make([]byte, size),
	}
}

// Index returns the position of m in its pool.
func (m *InboundMessage) Index() int { return m.index }

// Parse copies b into m and decodes the header.
func (m *InboundMessage) Parse(b []byte, addr net.Addr) error {
	if len(b) > len(m.buf) {
		return ErrLongDatagram
	}
	if len(b) < ReliableHeaderSize {
		return ErrShortDatagram
	}

	m.Length = copy(m.buf, b)
	m.Addr = addr

	m.Src = m.buf[offSrc]
	m.Dst = m.buf[offDst]
	m.MsgID = le.Uint16(m.buf[offMsgID:])
	m.EventID = m.buf[offEventID]

	m.Mode, _ = splitMsgID(m.MsgID)
	switch m.Mode {
	case Immediate:
		m.Immediate = true
	case ReliableOrdered:
	case FastOrdered:
		if m.Length < FastOrderHeaderSize {
			return ErrShortDatagram
		}
		m.Order = le.Uint16(m.buf[offOrder:])
	default:
		return ErrBadMode
	}

	return nil
}

// seq returns the sequence number part of the message ID.
func (m *InboundMessage) seq() seqnum {
	_, s := splitMsgID(m.MsgID)
	return s
}

// HeaderSize returns the size of the header variant of m.
func (m *InboundMessage) HeaderSize() int { return m.Mode.HeaderSize() }

// Bytes returns the whole datagram.
func (m *InboundMessage) Bytes() []byte { return m.buf[:m.Length] }

// Payload returns the bytes following the header.
func (m *InboundMessage) Payload() []byte { return m.buf[m.HeaderSize():m.Length] }

// Reader returns a Reader starting at cursor.
func (m *InboundMessage) Reader(cursor int) *Reader {
	return NewReader(m.buf[:m.Length], cursor)
}

// ackBlock returns the acknowledgment block.
// It is only meaningful for the reliable header variant.
func (m *InboundMessage) ackBlock() []byte {
	return m.buf[offAck : offAck+AckSize]
}

// Processed reports whether dispatch has finished with m.
func (m *InboundMessage) Processed() bool { return m.processed }

// MayRelease reports whether no consumer holds m.
func (m *InboundMessage) MayRelease() bool { return m.holds == 0 }

// Hold keeps m out of its pool after dispatch until a matching
// Unhold is called. Every Hold needs its own Unhold.
func (m *InboundMessage) Hold() { m.holds++ }

// Unhold undoes one Hold and releases m if it has been processed
// and nobody else holds it.
func (m *InboundMessage) Unhold() {
	if m.holds == 0 {
		panic(fmt.Sprintf("relnet: unhold of inbound message %d that isn't held", m.index))
	}

	m.holds--
	m.pool.TryRelease(m)
}

// markProcessed ends dispatch and releases m unless it is held.
func (m *InboundMessage) markProcessed() {
	m.processed = true
	m.pool.TryRelease(m)
}

// Clear resets m for reuse.
func (m *InboundMessage) Clear() {
	m.Length = 0
	m.Addr = nil
	m.Src, m.Dst = 0, 0
	m.MsgID = 0
	m.EventID = 0
	m.Mode = Immediate
	m.Immediate = false
	m.Order = 0
	m.processed = false
	m.holds = 0
}
