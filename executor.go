package relnet

// An Executor implements one sub-protocol on top of a Session.
//
// At registration it is handed a contiguous block of EventCount
// event IDs starting at its base. The block depends on registration
// order, so Executors must never hardcode absolute event IDs.
//
// All methods are called on the tick goroutine.
type Executor interface {
	// Name identifies the Executor in logs.
	Name() string

	// EventCount is the number of event IDs the Executor needs.
	EventCount() int

	// Attach is called once the event IDs have been assigned.
	Attach(s *Session, base uint8)

	// Receive consumes exactly one sub-message of msg starting
	// at cursor and returns the cursor following it.
	Receive(msg *InboundMessage, sender *Peer, eventID uint8, cursor int) (int, error)

	PreTick()
	PostTick()
	PlayerAdded(p *Peer)
	PlayerRemoved(p *Peer)
	ClientConnected()
}

// BaseExecutor stores the attachment of an Executor and provides
// no-op lifecycle hooks. Embed it and override what you need.
type BaseExecutor struct {
	Session *Session
	Base    uint8
}

func (b *BaseExecutor) Attach(s *Session, base uint8) {
	b.Session = s
	b.Base = base
}

// Event returns the absolute event ID of the local event i.
func (b *BaseExecutor) Event(i int) uint8 { return b.Base + uint8(i) }

// Local returns the local event index of the absolute event ID.
func (b *BaseExecutor) Local(eventID uint8) int { return int(eventID - b.Base) }

func (b *BaseExecutor) PreTick()              {}
func (b *BaseExecutor) PostTick()             {}
func (b *BaseExecutor) PlayerAdded(p *Peer)   {}
func (b *BaseExecutor) PlayerRemoved(p *Peer) {}
func (b *BaseExecutor) ClientConnected()      {}

// A Registry assigns event ID blocks to Executors and routes
// event IDs to their owner.
type Registry struct {
	execs []Executor
	bases []uint8
	owner [EventAck]uint8 // index into execs + 1, 0 if unowned
	next  int
}

// Register appends e and returns the first event ID of its block.
func (r *Registry) Register(e Executor) (uint8, error) {
	n := e.EventCount()
	if n < 0 || r.next+n > int(EventAck) {
		return 0, ErrTooManyEvents
	}

	base := uint8(r.next)
	r.execs = append(r.execs, e)
	r.bases = append(r.bases, base)
	for i := 0; i < n; i++ {
		r.owner[r.next+i] = uint8(len(r.execs))
	}
	r.next += n

	return base, nil
}

// Total returns the number of assigned event IDs.
func (r *Registry) Total() int { return r.next }

// Len returns the number of registered Executors.
func (r *Registry) Len() int { return len(r.execs) }

// Owner returns the Executor owning eventID.
func (r *Registry) Owner(eventID uint8) (Executor, bool) {
	if eventID == EventAck || r.owner[eventID] == 0 {
		return nil, false
	}
	return r.execs[r.owner[eventID]-1], true
}

// Base returns the first event ID of e or false if e isn't registered.
func (r *Registry) Base(e Executor) (uint8, bool) {
	for i, x := range r.execs {
		if x == e {
			return r.bases[i], true
		}
	}
	return 0, false
}

// Each calls fn with every Executor in registration order.
func (r *Registry) Each(fn func(Executor)) {
	for _, e := range r.execs {
		fn(e)
	}
}

// Dispatch hands the sub-message at cursor to the owner of eventID
// and returns the cursor following it.
func (r *Registry) Dispatch(msg *InboundMessage, sender *Peer, eventID uint8, cursor int) (int, error) {
	perr := func(err error) error {
		pe := &ProtocolError{Op: "dispatch", EventID: eventID, Err: err}
		if sender != nil {
			pe.Sender = sender.ID
		}
		return pe
	}

	e, ok := r.Owner(eventID)
	if !ok {
		return cursor, perr(ErrUnknownEvent)
	}

	next, err := e.Receive(msg, sender, eventID, cursor)
	if err != nil {
		return cursor, perr(err)
	}
	if next < cursor || next > msg.Length {
		return cursor, perr(ErrBadCursor)
	}

	return next, nil
}
