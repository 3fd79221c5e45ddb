package relnet

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation is wrapped by every ProtocolError.
	ErrProtocolViolation = errors.New("protocol violation")

	ErrUnknownEvent  = errors.New("no executor owns event id")
	ErrBadCursor     = errors.New("receive handler consumed a wrong number of bytes")
	ErrTooManyEvents = errors.New("event id space exhausted")
	ErrRegistered    = errors.New("registration after first tick")
	ErrPostQueueFull = errors.New("posted function queue is full")
)

// A ProtocolError means the peers disagree about the protocol,
// usually because of mismatching executor registrations.
// It is fatal.
type ProtocolError struct {
	Op      string
	Sender  PeerID
	EventID uint8
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s from peer %d, event %d: %v", ErrProtocolViolation, e.Op, e.Sender, e.EventID, e.Err)
}

func (e *ProtocolError) Unwrap() []error { return []error{ErrProtocolViolation, e.Err} }
