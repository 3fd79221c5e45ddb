package relnet

import (
	"errors"
	"log"
	"net"

	"code.hybscloud.com/iox"
)

// A Conn is the UDP socket of a Session.
type Conn struct {
	net.PacketConn
}

// Listen opens a UDP socket on addr.
func Listen(addr string) (*Conn, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	return &Conn{PacketConn: pc}, nil
}

// Enqueue writes b to addr as one datagram.
func (c *Conn) Enqueue(b []byte, addr net.Addr) error {
	_, err := c.WriteTo(b, addr)
	return err
}

// Serve reads datagrams and passes them to s.Deliver until the
// Conn is closed. Datagrams that don't fit into the inbound queue
// are dropped.
func (c *Conn) Serve(s *Session) error {
	buf := make([]byte, s.Config().MaxDatagramSize+1)
	for {
		n, addr, err := c.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if err := s.Deliver(buf[:n], addr); err != nil {
			if iox.IsWouldBlock(err) {
				log.Print("inbound queue full, dropping datagram from ", addr)
				continue
			}
			return err
		}
	}
}
