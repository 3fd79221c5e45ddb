package relnet

import "fmt"

// An OutboundPool hands out OutboundMessages of one fixed capacity.
// It is not safe for concurrent use.
type OutboundPool struct {
	size   int
	all    []*OutboundMessage
	free   []int
	leased []bool
}

// NewOutboundPool returns a pool of messages with size-byte buffers.
func NewOutboundPool(size int) *OutboundPool {
	return &OutboundPool{size: size}
}

// Lease returns a cleared message, allocating one if the pool is empty.
func (p *OutboundPool) Lease() *OutboundMessage {
	var m *OutboundMessage
	if n := len(p.free); n > 0 {
		m = p.all[p.free[n-1]]
		p.free = p.free[:n-1]
	} else {
		m = newOutboundMessage(p, len(p.all), p.size)
		p.all = append(p.all, m)
		p.leased = append(p.leased, false)
	}

	p.leased[m.index] = true
	return m
}

// Release clears m and returns it to the pool.
// It panics if m isn't currently leased from p.
func (p *OutboundPool) Release(m *OutboundMessage) {
	if m.pool != p || !p.leased[m.index] {
		panic(fmt.Sprintf("relnet: release of outbound message %d not leased from this pool", m.index))
	}

	m.Clear()
	p.leased[m.index] = false
	p.free = append(p.free, m.index)
}

// Leased returns the number of messages currently in use.
func (p *OutboundPool) Leased() int { return len(p.all) - len(p.free) }

// Size returns the buffer capacity of every message.
func (p *OutboundPool) Size() int { return p.size }

// An InboundPool hands out InboundMessages of one fixed capacity.
// It is not safe for concurrent use.
type InboundPool struct {
	size   int
	all    []*InboundMessage
	free   []int
	leased []bool
}

// NewInboundPool returns a pool of messages with size-byte buffers.
func NewInboundPool(size int) *InboundPool {
	return &InboundPool{size: size}
}

// Lease returns a cleared message, allocating one if the pool is empty.
func (p *InboundPool) Lease() *InboundMessage {
	var m *InboundMessage
	if n := len(p.free); n > 0 {
		m = p.all[p.free[n-1]]
		p.free = p.free[:n-1]
	} else {
		m = newInboundMessage(p, len(p.all), p.size)
		p.all = append(p.all, m)
		p.leased = append(p.leased, false)
	}

	p.leased[m.index] = true
	return m
}

// TryRelease returns m to the pool if it has been processed and
// nobody holds it. It reports whether m was released.
func (p *InboundPool) TryRelease(m *InboundMessage) bool {
	if m.pool != p || !p.leased[m.index] {
		panic(fmt.Sprintf("relnet: release of inbound message %d not leased from this pool", m.index))
	}

	if !m.processed || m.holds > 0 {
		return false
	}

	m.Clear()
	p.leased[m.index] = false
	p.free = append(p.free, m.index)

	return true
}

// Leased returns the number of messages currently in use.
func (p *InboundPool) Leased() int { return len(p.all) - len(p.free) }

// Size returns the buffer capacity of every message.
func (p *InboundPool) Size() int { return p.size }
