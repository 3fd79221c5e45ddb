package relnet

// ackBits is the number of seqnums older than the ack base
// an acknowledgment block can confirm.
const ackBits = (AckSize - 2) * 8

// An ackState records which reliable seqnums have been received
// from one peer.
type ackState struct {
	has   bool
	base  seqnum
	lo    uint64 // bit i: base-1-i received
	hi    uint16 // bit i: base-65-i received
	dirty bool   // received something not yet acknowledged
}

// record notes s as received.
func (a *ackState) record(s seqnum) {
	a.dirty = true

	if !a.has {
		a.has = true
		a.base = s
		return
	}

	d := seqnumDiff(a.base, s)
	switch {
	case d == 0:
	case d > 0:
		a.shift(d)
		a.set(d - 1)
		a.base = s
	default:
		a.set(-d - 1)
	}
}

// shift moves every bit n positions further from the base.
func (a *ackState) shift(n int) {
	switch {
	case n >= ackBits:
		a.lo, a.hi = 0, 0
	case n >= 64:
		a.hi = uint16(a.lo << (n - 64))
		a.lo = 0
	default:
		a.hi = uint16(uint64(a.hi)<<n | a.lo>>(64-n))
		a.lo <<= n
	}
}

func (a *ackState) set(i int) {
	switch {
	case i < 0 || i >= ackBits:
	case i < 64:
		a.lo |= 1 << i
	default:
		a.hi |= 1 << (i - 64)
	}
}

// encode returns the acknowledgment block for the current state.
func (a *ackState) encode() [AckSize]byte {
	var b [AckSize]byte
	if !a.has {
		return b
	}

	le.PutUint16(b[0:], ackValid|uint16(a.base))
	le.PutUint64(b[2:], a.lo)
	le.PutUint16(b[10:], a.hi)
	return b
}

func (a *ackState) reset() { *a = ackState{} }

// decodeAcks calls fn with every seqnum confirmed by the block b.
func decodeAcks(b []byte, fn func(seqnum)) {
	raw := le.Uint16(b[0:])
	if raw&ackValid == 0 {
		return
	}

	base := seqnum(raw & seqnumMask)
	fn(base)

	lo := le.Uint64(b[2:])
	hi := le.Uint16(b[10:])
	for i := 0; i < ackBits; i++ {
		var set bool
		if i < 64 {
			set = lo&(1<<i) != 0
		} else {
			set = hi&(1<<(i-64)) != 0
		}
		if !set {
			continue
		}

		fn((base - 1 - seqnum(i)) & seqnumMask)
	}
}
