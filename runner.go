package relnet

import (
	"context"
	"errors"
	"log"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// Run serves c and ticks s every Config.TickInterval of clk until
// ctx is done or a tick fails. It closes c before returning.
func Run(ctx context.Context, s *Session, c *Conn, clk clock.Clock) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.Serve(s) })
	g.Go(func() error {
		defer c.Close()
		return s.Loop(ctx, clk)
	})

	return g.Wait()
}

// Loop calls Tick with the time elapsed since the previous call
// whenever the ticker of clk fires. It returns nil once ctx is done.
func (s *Session) Loop(ctx context.Context, clk clock.Clock) error {
	t := clk.Ticker(s.cfg.TickInterval())
	defer t.Stop()

	last := clk.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		now := clk.Now()
		err := s.Tick(now.Sub(last))
		last = now

		var perr *ProtocolError
		if errors.As(err, &perr) {
			log.Print(perr)
			return perr
		}
		if err != nil {
			return err
		}
	}
}
