package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/protocol"
)

// errPeerClosed marks a clean EOF at a frame boundary.
var errPeerClosed = errors.New("peer closed connection")

const minWatchdogInterval = 10 * time.Millisecond

// start runs the reader, writer and watchdog for ep. The first task to
// fail cancels the others; pending deliveries are abandoned and the
// connection is closed to unblock the reader and writer.
// Called with s.mu held.
func (s *Session) start(ep *epoch) {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	ep.cancel = cancel
	ep.stop = gctx.Done()

	g.Go(func() error { return s.readLoop(gctx, ep) })
	g.Go(func() error { return s.writeLoop(gctx, ep) })
	g.Go(func() error { return s.watchdog(gctx, ep) })
	g.Go(func() error {
		<-gctx.Done()
		s.disp.AbandonAll()
		ep.conn.Close()
		return nil
	})

	go func() {
		err := g.Wait()
		cancel()
		s.finish(ep, err)
	}()
}

// readLoop decodes frames and hands them to the dispatcher in wire order.
// Undecodable frames are logged and skipped; only transport and framing
// errors end the loop.
func (s *Session) readLoop(ctx context.Context, ep *epoch) error {
	for {
		payload, err := protocol.ReadFrame(ep.r, s.cfg.MaxFrameSize)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, io.EOF):
				return errPeerClosed
			case errors.Is(err, protocol.ErrFrameTooLarge):
				return fmt.Errorf("%w: %w", ErrProtocol, err)
			default:
				return fmt.Errorf("%w: read: %w", ErrTransport, err)
			}
		}
		ep.touch()
		s.m.FrameIn(len(payload))

		ev := codec.Decode(s.cfg.Catalog, payload, ep.sv)
		switch {
		case ev.Err != nil:
			s.decodeFailed(ev)
		case ev.Kind == catalog.ManagedAccounts:
			s.setAccounts(ev.Str("accountsList"))
		}
		s.disp.Route(ev)
	}
}

func (s *Session) decodeFailed(ev codec.Event) {
	reason := "malformed"
	if errors.Is(ev.Err, codec.ErrUnknownOpcode) {
		reason = "unknown_opcode"
	}
	s.m.DecodeError(reason)
	s.logger.Warn("skipping inbound frame", "reason", reason, "kind", int(ev.Kind), "len", len(ev.Raw), "err", ev.Err)
}

// writeLoop drains the outbound queue one frame at a time.
func (s *Session) writeLoop(ctx context.Context, ep *epoch) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-ep.outq:
			if err := protocol.WriteFrame(ep.conn, f.payload); err != nil {
				ep.unsent = &f
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: write: %w", ErrTransport, err)
			}
			s.m.FrameOut(len(f.payload))
			if f.written != nil {
				f.written()
			}
		}
	}
}

// watchdog reports a link that stayed silent for HeartbeatMax. The report
// is an unsolicited event; the session stays up.
func (s *Session) watchdog(ctx context.Context, ep *epoch) error {
	interval := max(s.cfg.HeartbeatMax/4, minWatchdogInterval)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			idle := ep.idle()
			if idle < s.cfg.HeartbeatMax || !ep.silent.CompareAndSwap(false, true) {
				continue
			}
			s.logger.Warn("link silent", "idle", idle.Round(time.Millisecond))
			s.disp.Unsolicit(codec.Event{
				Err: fmt.Errorf("%w: idle %v", ErrSilentLink, idle.Round(time.Millisecond)),
			})
		}
	}
}

// finish settles the session after ep's tasks exited: it picks the final
// state, fails the requests behind unwritten frames and every live
// subscription.
func (s *Session) finish(ep *epoch, err error) {
	s.mu.Lock()
	var subErr error
	switch {
	case ep.closing.Load():
		subErr = ErrSessionClosed
		s.setStateLocked(Closed)
	case errors.Is(err, errPeerClosed):
		subErr = ErrSessionClosed
		s.setStateLocked(Draining)
		s.setStateLocked(Closed)
	default:
		if err == nil {
			err = ErrSessionClosed
		}
		subErr = err
		s.setStateLocked(Failed)
	}
	s.err = subErr
	s.ep = nil
	s.mu.Unlock()

	if ep.unsent != nil {
		ep.unsent.drop(subErr)
	}
drain:
	for {
		select {
		case f := <-ep.outq:
			f.drop(subErr)
		default:
			break drain
		}
	}
	s.disp.FailAll(subErr)

	if errors.Is(subErr, ErrSessionClosed) {
		s.logger.Info("session closed", "peer", !ep.closing.Load())
	} else {
		s.logger.Error("session failed", "err", subErr)
	}
	close(ep.done)
}
