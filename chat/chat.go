/*
Package chat is a relnet Executor for text chat.

Clients send Say messages to the host. The host validates them and
relays them to every peer under its own send key. Each message carries
an 8-bit send key that receivers run through a Sequence Window, so the
application sees every message at most once.
*/
package chat

import (
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/HimbeerserverDE/relnet"
)

// Local event indices.
const (
	EventSay = iota
	EventRelay

	eventCount
)

var (
	ErrTooLong     = errors.New("chat message too long")
	ErrEmpty       = errors.New("chat message empty")
	ErrInvalidUTF8 = errors.New("chat message is not valid UTF-8")
	ErrNoHost      = errors.New("host is not connected")
)

type relay struct {
	msg    *relnet.InboundMessage
	origin relnet.PeerID
	cursor int
}

// Chat implements relnet.Executor.
type Chat struct {
	relnet.BaseExecutor

	// Validate is consulted by the host before relaying a message.
	// A nil Validate accepts everything.
	Validate func(p *relnet.Peer, text string) bool

	// OnMessage is called once per chat message, including the
	// ones sent locally.
	OnMessage func(from relnet.PeerID, name, text string)

	key      uint8
	relayKey uint8

	said    relnet.WindowSet
	relayed relnet.WindowSet

	pending []relay
}

// New returns a Chat calling onMessage for every message.
func New(onMessage func(from relnet.PeerID, name, text string)) *Chat {
	return &Chat{OnMessage: onMessage}
}

func (c *Chat) Name() string { return "chat" }

func (c *Chat) EventCount() int { return eventCount }

// Key returns the send key the next Say will use.
func (c *Chat) Key() uint8 { return c.key }

// RelayKey returns the send key the next relay will use.
func (c *Chat) RelayKey() uint8 { return c.relayKey }

func (c *Chat) check(text string) error {
	switch {
	case text == "":
		return ErrEmpty
	case len(text) > c.Session.Config().MaxChatLength():
		return ErrTooLong
	case !utf8.ValidString(text):
		return ErrInvalidUTF8
	}
	return nil
}

// Say sends text as the local participant.
// On the host it is relayed to every peer right away.
func (c *Chat) Say(text string) error {
	if err := c.check(text); err != nil {
		return err
	}

	s := c.Session
	if s.IsHost() {
		c.relay(s.LocalID(), text)
		c.deliver(s.LocalID(), text)
		return nil
	}

	host := s.Peers().Get(relnet.PeerIDHost)
	if host == nil || !host.Active || host.Removed {
		return ErrNoHost
	}

	m := s.NewMessage(relnet.ReliableOrdered, c.Event(EventSay), 1+relnet.StringSize(text))
	m.WriteUint8(c.key)
	m.WriteString(text)
	m.OnComplete = c.complete
	c.key++

	s.SendHost(m)
	return nil
}

func (c *Chat) relay(origin relnet.PeerID, text string) {
	s := c.Session

	m := s.NewMessage(relnet.ReliableOrdered, c.Event(EventRelay), 2+relnet.StringSize(text))
	m.WriteUint8(c.relayKey)
	m.WriteUint8(origin)
	m.WriteString(text)
	m.OnComplete = c.complete
	c.relayKey++

	s.SendAll(m)
}

func (c *Chat) complete(peer relnet.PeerID, msgID uint16, success bool) {
	if !success {
		log.Printf("chat message %#04x to peer %d was not delivered", msgID, peer)
	}
}

func (c *Chat) deliver(from relnet.PeerID, text string) {
	if c.OnMessage == nil {
		return
	}

	name := fmt.Sprintf("peer %d", from)
	if p := c.Session.Peers().Get(from); p != nil && p.Name != "" {
		name = p.Name
	} else if from == c.Session.LocalID() && c.Session.Config().Name != "" {
		name = c.Session.Config().Name
	}

	c.OnMessage(from, name, text)
}

func (c *Chat) Receive(msg *relnet.InboundMessage, sender *relnet.Peer, eventID uint8, cursor int) (int, error) {
	r := msg.Reader(cursor)

	switch c.Local(eventID) {
	case EventSay:
		key := r.ReadUint8()
		start := r.Offset()
		text := r.ReadString()
		if err := r.Err(); err != nil {
			return cursor, err
		}

		if !c.Session.IsHost() {
			return r.Offset(), nil
		}
		if c.said.MarkSeen(sender.ID, key) {
			return r.Offset(), nil
		}
		if c.check(text) != nil || (c.Validate != nil && !c.Validate(sender, text)) {
			log.Printf("chat message from peer %d rejected", sender.ID)
			return r.Offset(), nil
		}

		msg.Hold()
		c.pending = append(c.pending, relay{msg: msg, origin: sender.ID, cursor: start})
	case EventRelay:
		key := r.ReadUint8()
		origin := r.ReadUint8()
		text := r.ReadString()
		if err := r.Err(); err != nil {
			return cursor, err
		}

		if !sender.IsHost() || c.relayed.MarkSeen(sender.ID, key) {
			return r.Offset(), nil
		}

		c.deliver(origin, text)
	}

	return r.Offset(), nil
}

// PostTick relays the messages accepted during this tick.
func (c *Chat) PostTick() {
	for i, p := range c.pending {
		r := p.msg.Reader(p.cursor)
		if text := r.ReadString(); r.Err() == nil {
			c.relay(p.origin, text)
			c.deliver(p.origin, text)
		} else {
			log.Printf("chat message from peer %d lost: %v", p.origin, r.Err())
		}

		p.msg.Unhold()
		c.pending[i] = relay{}
	}
	c.pending = c.pending[:0]
}

func (c *Chat) PlayerAdded(p *relnet.Peer) {
	c.said.Reset(p.ID)
	c.relayed.Reset(p.ID)
}

func (c *Chat) ClientConnected() {
	c.key = 0
	c.relayKey = 0
}
