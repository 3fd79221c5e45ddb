/*
Package relnet adds selective reliability, per-recipient acknowledgment,
resends and duplicate suppression to an unreliable datagram transport
for real-time multiplayer games.

Datagram header format (all multi-byte fields little-endian):

	src PeerID
	dst PeerID
	msgID uint16 // mode << 14 | seqnum
	eventID uint8
	ack [12]byte // reliable header: ackValid | ackBase uint16, ackBits [10]byte
	order uint16 // fast-ordered header only, ack block zeroed
	payload...
*/
package relnet

// PeerIDs identify participants of one session.
type PeerID = uint8

const (
	// The host always has this ID.
	PeerIDHost PeerID = 0

	// Destination of datagrams meant for every peer.
	PeerIDBroadcast PeerID = 0xFF
)

const (
	offSrc     = 0
	offDst     = 1
	offMsgID   = 2
	offEventID = 4
	offAck     = 5
	offOrder   = 17
)

const (
	// AckSize is the size of the acknowledgment block.
	AckSize = 12

	// ReliableHeaderSize is the header size of Immediate
	// and Reliable-Ordered messages.
	ReliableHeaderSize = offAck + AckSize

	// FastOrderHeaderSize is the header size of Fast-Ordered messages.
	FastOrderHeaderSize = offOrder + 2

	// DefaultMaxDatagramSize fits one UDP payload on common paths.
	DefaultMaxDatagramSize = 1200
)

// EventAck is reserved for ack-only datagrams.
// Executors can therefore claim at most EventAck event IDs.
const EventAck uint8 = 0xFF

// A Mode is an ordering discipline of an OutboundMessage.
type Mode uint8

const (
	// Immediate messages are sent once and never acknowledged.
	Immediate Mode = iota

	// ReliableOrdered messages are resent until every target
	// acknowledges, is removed or exhausts the retry budget.
	ReliableOrdered

	// FastOrdered messages are sent once and carry a per-peer
	// order value; receivers drop anything not newer than
	// the last accepted value.
	FastOrdered
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case ReliableOrdered:
		return "reliable-ordered"
	case FastOrdered:
		return "fast-ordered"
	}
	return "unknown"
}

// HeaderSize returns the header size of the header variant m uses.
func (m Mode) HeaderSize() int {
	if m == FastOrdered {
		return FastOrderHeaderSize
	}
	return ReliableHeaderSize
}

// seqnums count messages per destination peer and Mode. They occupy
// the low 14 bits of the message ID, the mode the high 2 bits.
type seqnum uint16

const (
	seqnumBits = 14
	seqnumMask = 1<<seqnumBits - 1

	// ackValid marks an ack base that refers to a received seqnum.
	ackValid = 1 << 15
)

func (s seqnum) next() seqnum { return (s + 1) & seqnumMask }

// seqnumDiff returns b - a as a signed distance on the 14-bit cycle.
func seqnumDiff(a, b seqnum) int {
	d := int(b-a) & seqnumMask
	if d >= 1<<(seqnumBits-1) {
		d -= 1 << seqnumBits
	}
	return d
}

func makeMsgID(m Mode, s seqnum) uint16 {
	return uint16(m)<<seqnumBits | uint16(s)&seqnumMask
}

func splitMsgID(id uint16) (Mode, seqnum) {
	return Mode(id >> seqnumBits), seqnum(id & seqnumMask)
}
