package session

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chronologos/ibgw/internal/auth"
	"github.com/chronologos/ibgw/internal/gwtest"
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/dispatch"
	"github.com/chronologos/ibgw/pkg/protocol"
	"github.com/chronologos/ibgw/pkg/transport"
)

const waitTimeout = 5 * time.Second

func newSession(t *testing.T, gw *gwtest.Gateway, mod func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		Host:             gw.Host(),
		Port:             gw.Port(),
		ClientID:         100,
		HandshakeTimeout: 2 * time.Second,
	}
	if mod != nil {
		mod(&cfg)
	}
	s := New(cfg)
	t.Cleanup(func() { s.Close() })
	return s
}

func connect(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

// ready connects s and consumes the StartApi frame on the gateway side.
func ready(t *testing.T, gw *gwtest.Gateway, s *Session) *gwtest.Conn {
	t.Helper()
	connect(t, s)
	c := gw.Accept(t)
	c.Expect(t, int(catalog.StartApi))
	return c
}

func submit(t *testing.T, s *Session, req *codec.Request) *dispatch.Subscription {
	t.Helper()
	sub, err := s.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sub
}

func waitDone(t *testing.T, sub *dispatch.Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("subscription %d did not finish (state %v)", sub.ID(), sub.State())
	}
}

func recvEvent(t *testing.T, ch <-chan codec.Event) codec.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("events closed")
		}
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
	}
	return codec.Event{}
}

// awaitUnsolicited reads the unsolicited sink until match accepts an event.
func awaitUnsolicited(t *testing.T, s *Session, match func(codec.Event) bool) codec.Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-s.Unsolicited():
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for unsolicited event")
			return codec.Event{}
		}
	}
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state mismatch: got %v, want %v", s.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnectSendsHandshakeAndStartApi(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	connect(t, s)

	c := gw.Accept(t)
	if c.Version != "v100..157" {
		t.Fatalf("version string mismatch: got %q", c.Version)
	}
	got := c.Next(t)
	want := []string{"71", "2", "100", ""}
	if !slices.Equal(got, want) {
		t.Fatalf("StartApi mismatch: got %q, want %q", got, want)
	}
	if s.State() != Ready {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Ready)
	}
	if s.ServerVersion() != 157 {
		t.Fatalf("server version mismatch: got %d", s.ServerVersion())
	}
	if s.ConnectionTime() != "20261014 09:30:00 EST" {
		t.Fatalf("connection time mismatch: got %q", s.ConnectionTime())
	}
}

func TestConnectionOptionsInHandshake(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.ConnectionOptions = "+PACEAPI" })
	connect(t, s)
	if c := gw.Accept(t); c.Version != "v100..157 +PACEAPI" {
		t.Fatalf("version string mismatch: got %q", c.Version)
	}
}

func TestAsynchronousDefersStartApi(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.Asynchronous = true })
	connect(t, s)

	if s.State() != VersionNegotiated {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), VersionNegotiated)
	}
	if _, err := s.Submit(context.Background(), codec.NewRequest(catalog.ReqCurrentTime)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := s.StartAPI(); err != nil {
		t.Fatalf("StartAPI: %v", err)
	}
	if err := s.StartAPI(); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive on second StartAPI, got %v", err)
	}
	c := gw.Accept(t)
	if toks := c.Next(t); toks[0] != "71" {
		t.Fatalf("first frame mismatch: got %q", toks)
	}
}

func TestSubmitBeforeConnect(t *testing.T) {
	s := New(Config{})
	if _, err := s.Submit(context.Background(), codec.NewRequest(catalog.ReqCurrentTime)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestConnectWhileActive(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	connect(t, s)
	if err := s.Connect(context.Background()); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestCurrentTimeRoundTrip(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqCurrentTime))
	if toks := c.Expect(t, int(catalog.ReqCurrentTime)); !slices.Equal(toks, []string{"49", "1"}) {
		t.Fatalf("request mismatch: got %q", toks)
	}
	c.Send(t, "49", "1", "1700000000")

	ev := recvEvent(t, sub.Events())
	if ev.Kind != catalog.CurrentTime || ev.Int("time") != 1700000000 {
		t.Fatalf("event mismatch: %v %d", ev.Kind, ev.Int("time"))
	}
	waitDone(t, sub)
	if sub.Err() != nil {
		t.Fatalf("unexpected error: %v", sub.Err())
	}
}

func TestManagedAccountsAndNextValidID(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	c := ready(t, gw, s)

	c.Send(t, "9", "1", "1000")
	c.Send(t, "15", "1", "DU123,DU456,")

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	accounts, err := s.AwaitAccounts(ctx)
	if err != nil {
		t.Fatalf("AwaitAccounts: %v", err)
	}
	if !slices.Equal(accounts, []string{"DU123", "DU456"}) {
		t.Fatalf("accounts mismatch: got %q", accounts)
	}
	if s.NextID() != 1000 {
		t.Fatalf("next id mismatch: got %d, want 1000", s.NextID())
	}

	sub := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	if sub.ID() != 1000 {
		t.Fatalf("request id mismatch: got %d, want 1000", sub.ID())
	}
	if toks := c.Expect(t, int(catalog.ReqMarketData)); toks[2] != "1000" {
		t.Fatalf("encoded id mismatch: got %q", toks[2])
	}
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	c := ready(t, gw, s)

	c.SendRaw(t, []byte{'1', 0, 'A', 0})
	ev := awaitUnsolicited(t, s, func(ev codec.Event) bool { return ev.Err != nil })
	if !errors.Is(ev.Err, codec.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", ev.Err)
	}

	c.Send(t, "48", "1", "x")
	ev = awaitUnsolicited(t, s, func(ev codec.Event) bool { return ev.Err != nil })
	if !errors.Is(ev.Err, codec.ErrUnknownOpcode) || ev.Kind != 48 {
		t.Fatalf("expected ErrUnknownOpcode for 48, got %v %v", ev.Kind, ev.Err)
	}

	sub := submit(t, s, codec.NewRequest(catalog.ReqCurrentTime))
	c.Expect(t, int(catalog.ReqCurrentTime))
	c.Send(t, "49", "1", "1700000000")
	waitDone(t, sub)
	if s.State() != Ready {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Ready)
	}
}

func TestOversizedFrameFailsSession(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.MaxFrameSize = 1024 })
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	c.Expect(t, int(catalog.ReqMarketData))
	c.SendBytes(t, []byte{0x00, 0x00, 0x10, 0x00})

	waitDone(t, sub)
	if !errors.Is(sub.Err(), protocol.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", sub.Err())
	}
	waitState(t, s, Failed)
	if !errors.Is(s.Err(), ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", s.Err())
	}
	if _, err := s.Submit(context.Background(), codec.NewRequest(catalog.ReqCurrentTime)); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Fatalf("expected failure cause from Submit, got %v", err)
	}
	c.Closed(t)
}

func TestPeerCloseEndsSession(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	c.Expect(t, int(catalog.ReqMarketData))
	c.Close()

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not end")
	}
	waitDone(t, sub)
	if !errors.Is(sub.Err(), ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", sub.Err())
	}
	if s.State() != Closed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Closed)
	}
}

func TestCloseFailsLiveSubscriptions(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	c.Expect(t, int(catalog.ReqMarketData))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.State() != Closed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Closed)
	}
	waitDone(t, sub)
	if !errors.Is(sub.Err(), ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", sub.Err())
	}
	c.Closed(t)
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestVersionMismatch(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{ServerVersion: "99"})
	s := newSession(t, gw, nil)
	err := s.Connect(context.Background())
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if s.State() != Failed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Failed)
	}
}

func TestHandshakeTimeout(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{Silent: true})
	s := newSession(t, gw, func(c *Config) { c.HandshakeTimeout = 100 * time.Millisecond })

	start := time.Now()
	err := s.Connect(context.Background())
	if !errors.Is(err, ErrHandshakeTimeout) {
		t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
	if s.State() != Failed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Failed)
	}
}

func TestCloseDuringHandshake(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{Silent: true})
	s := newSession(t, gw, func(c *Config) { c.HandshakeTimeout = waitTimeout })

	errc := make(chan error, 1)
	go func() { errc <- s.Connect(context.Background()) }()
	waitState(t, s, HandshakeSent)
	s.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSessionClosed) {
			t.Fatalf("expected ErrSessionClosed, got %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Connect did not return")
	}
	if s.State() != Closed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Closed)
	}
}

func TestRedirectIsFollowed(t *testing.T) {
	target := gwtest.Start(t, gwtest.Config{})
	front := gwtest.Start(t, gwtest.Config{Redirect: target.Addr()})
	s := newSession(t, front, nil)
	connect(t, s)

	c := target.Accept(t)
	c.Expect(t, int(catalog.StartApi))
	if s.State() != Ready {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Ready)
	}
}

func TestRedirectLimit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	gw := gwtest.Start(t, gwtest.Config{Redirect: addr})
	s := newSession(t, gw, func(c *Config) {
		c.MaxRedirects = 1
		c.Dial = func(ctx context.Context, opts transport.DialOptions) (transport.Conn, error) {
			opts.Host, opts.Port = gw.Host(), gw.Port()
			return transport.Dial(ctx, opts)
		}
	})
	if err := s.Connect(context.Background()); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestCancelWaitsForGrace(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.CancelGrace = 50 * time.Millisecond })
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	c.Expect(t, int(catalog.ReqMarketData))
	c.Send(t, "1", "1", "4", "101.5", "3", "1")
	if ev := recvEvent(t, sub.Events()); ev.Kind != catalog.TickPrice {
		t.Fatalf("kind mismatch: got %v", ev.Kind)
	}

	if err := s.Cancel(context.Background(), sub); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if toks := c.Expect(t, int(catalog.CancelMarketData)); !slices.Equal(toks, []string{"2", "2", "1"}) {
		t.Fatalf("cancel mismatch: got %q", toks)
	}
	waitDone(t, sub)
	if !errors.Is(sub.Err(), dispatch.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", sub.Err())
	}
}

func TestReconnectKeepsIDsMonotonic(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, nil)
	ready(t, gw, s)

	first := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	s.Close()
	waitDone(t, first)

	c := ready(t, gw, s)
	second := submit(t, s, codec.NewRequest(catalog.ReqMarketData))
	if second.ID() <= first.ID() {
		t.Fatalf("id went backwards: %d after %d", second.ID(), first.ID())
	}
	if toks := c.Expect(t, int(catalog.ReqMarketData)); toks[2] != "2" {
		t.Fatalf("encoded id mismatch: got %q", toks[2])
	}
}

func TestSilentLinkNotice(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.HeartbeatMax = 50 * time.Millisecond })
	ready(t, gw, s)

	ev := awaitUnsolicited(t, s, func(ev codec.Event) bool { return ev.Err != nil })
	if !errors.Is(ev.Err, ErrSilentLink) {
		t.Fatalf("expected ErrSilentLink, got %v", ev.Err)
	}
	if s.State() != Ready {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Ready)
	}
}

// gatedConn blocks writes while armed.
type gatedConn struct {
	transport.Conn
	armed  atomic.Bool
	gate   chan struct{}
	closed chan struct{}
	once   sync.Once
}

func (g *gatedConn) Write(p []byte) (int, error) {
	if g.armed.Load() {
		select {
		case <-g.gate:
		case <-g.closed:
			return 0, net.ErrClosed
		}
	}
	return g.Conn.Write(p)
}

func (g *gatedConn) Close() error {
	g.once.Do(func() { close(g.closed) })
	return g.Conn.Close()
}

// gatedDial dials normally and keeps the wrapped connection in *out.
func gatedDial(out **gatedConn) func(context.Context, transport.DialOptions) (transport.Conn, error) {
	return func(ctx context.Context, opts transport.DialOptions) (transport.Conn, error) {
		nc, err := transport.Dial(ctx, opts)
		if err != nil {
			return nil, err
		}
		*out = &gatedConn{Conn: nc, gate: make(chan struct{}), closed: make(chan struct{})}
		return *out, nil
	}
}

func TestNonBlockingBackpressure(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	var conn *gatedConn
	s := newSession(t, gw, func(c *Config) {
		c.NonBlocking = true
		c.QueueCapacity = 1
		c.Dial = gatedDial(&conn)
	})
	ready(t, gw, s)
	conn.armed.Store(true)
	t.Cleanup(func() { close(conn.gate) })

	var accepted int
	var err error
	for range 3 {
		if _, err = s.Submit(context.Background(), codec.NewRequest(catalog.ReqMarketData)); err != nil {
			break
		}
		accepted++
	}
	if !errors.Is(err, ErrBackpressure) {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
	if s.disp.Len() != accepted {
		t.Fatalf("live subscriptions mismatch: got %d, want %d", s.disp.Len(), accepted)
	}
}

func TestCloseFailsUnwrittenOneWayRequests(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	var conn *gatedConn
	s := newSession(t, gw, func(c *Config) { c.Dial = gatedDial(&conn) })
	ready(t, gw, s)
	conn.armed.Store(true)

	inflight := submit(t, s, codec.NewRequest(catalog.SetServerLogLevel).Set("logLevel", protocol.Int(5)))
	queued := submit(t, s, codec.NewRequest(catalog.ReqGlobalCancel))

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(waitTimeout):
		t.Fatal("Close did not return")
	}
	for _, sub := range []*dispatch.Subscription{inflight, queued} {
		waitDone(t, sub)
		if !errors.Is(sub.Err(), ErrSessionClosed) {
			t.Fatalf("%v err mismatch: got %v, want %v", sub.Kind(), sub.Err(), ErrSessionClosed)
		}
	}
}

func TestCloseWithStalledConsumer(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) { c.SubscriptionBuffer = 1 })
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqAccountData).Set("subscribe", protocol.Int(1)))
	c.Expect(t, int(catalog.ReqAccountData))
	for _, key := range []string{"NetLiquidation", "BuyingPower", "CashBalance"} {
		c.Send(t, "6", "2", key, "1000", "USD", "DU1")
	}
	deadline := time.Now().Add(waitTimeout)
	for len(sub.Events()) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("no event buffered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(waitTimeout):
		t.Fatalf("Close did not return: session %v, subscription %v", s.State(), sub.State())
	}
	if s.State() != Closed {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Closed)
	}
	waitDone(t, sub)
	if !errors.Is(sub.Err(), ErrSessionClosed) {
		t.Fatalf("err mismatch: got %v, want %v", sub.Err(), ErrSessionClosed)
	}
}

func TestAwaitAccountsAfterFailedConnect(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{ServerVersion: "99"})
	s := newSession(t, gw, nil)
	if err := s.Connect(context.Background()); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	start := time.Now()
	_, err := s.AwaitAccounts(ctx)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("AwaitAccounts took %v", elapsed)
	}
}

func TestStartAPIAfterFailureReportsCause(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	s := newSession(t, gw, func(c *Config) {
		c.Asynchronous = true
		c.MaxFrameSize = 1024
	})
	connect(t, s)
	c := gw.Accept(t)
	c.SendBytes(t, []byte{0x00, 0x00, 0x10, 0x00})
	waitState(t, s, Failed)

	if err := s.StartAPI(); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestConnectWithRetry(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	var dials atomic.Int32
	s := newSession(t, gw, func(c *Config) {
		c.Dial = func(ctx context.Context, opts transport.DialOptions) (transport.Conn, error) {
			if dials.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return transport.Dial(ctx, opts)
		}
	})
	p := RetryPolicy{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond}
	if err := s.ConnectWithRetry(context.Background(), p); err != nil {
		t.Fatalf("ConnectWithRetry: %v", err)
	}
	if n := dials.Load(); n != 3 {
		t.Fatalf("dial count mismatch: got %d, want 3", n)
	}
	if s.State() != Ready {
		t.Fatalf("state mismatch: got %v, want %v", s.State(), Ready)
	}
}

func TestConnectWithRetryStopsOnVersionMismatch(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{ServerVersion: "99"})
	var dials atomic.Int32
	s := newSession(t, gw, func(c *Config) {
		c.Dial = func(ctx context.Context, opts transport.DialOptions) (transport.Conn, error) {
			dials.Add(1)
			return transport.Dial(ctx, opts)
		}
	})
	p := RetryPolicy{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond}
	if err := s.ConnectWithRetry(context.Background(), p); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if n := dials.Load(); n != 1 {
		t.Fatalf("dial count mismatch: got %d, want 1", n)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		Disconnected: "disconnected", HandshakeSent: "handshake-sent",
		Ready: "ready", Failed: "failed", State(99): "unknown",
	} {
		if st.String() != want {
			t.Fatalf("String(%d) mismatch: got %q, want %q", int(st), st.String(), want)
		}
	}
}

func TestConnectThroughRelay(t *testing.T) {
	gw := gwtest.Start(t, gwtest.Config{})
	passkey, err := auth.GeneratePasskey()
	if err != nil {
		t.Fatal(err)
	}
	r, err := transport.ListenRelay(transport.RelayConfig{Target: gw.Addr(), Passkey: passkey})
	if err != nil {
		t.Fatalf("ListenRelay: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go r.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		r.Close()
	})

	s := newSession(t, gw, func(c *Config) {
		c.Port = r.Port()
		c.DialMode = transport.DialQUIC
		c.Passkey = passkey
	})
	c := ready(t, gw, s)

	sub := submit(t, s, codec.NewRequest(catalog.ReqCurrentTime))
	c.Expect(t, int(catalog.ReqCurrentTime))
	c.Send(t, "49", "1", "1700000000")
	if ev := recvEvent(t, sub.Events()); ev.Int("time") != 1700000000 {
		t.Fatalf("time mismatch: got %d", ev.Int("time"))
	}
}
