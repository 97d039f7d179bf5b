// Package session runs one client connection to the gateway: the version
// handshake, the StartApi exchange, and the reader and writer tasks that
// move frames between the transport and the dispatcher.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronologos/ibgw/internal/metrics"
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/dispatch"
	"github.com/chronologos/ibgw/pkg/protocol"
	"github.com/chronologos/ibgw/pkg/transport"
)

const readBufferSize = 64 * 1024

// outFrame is one queued payload. written runs on the writer goroutine
// after the frame reached the transport; dropped runs instead when the
// connection ended first.
type outFrame struct {
	payload []byte
	written func()
	dropped func(error)
}

func (f *outFrame) drop(err error) {
	if f.dropped != nil {
		f.dropped(err)
	}
}

// epoch is the state of one live connection. A reconnect builds a new one.
type epoch struct {
	conn transport.Conn
	r    *bufio.Reader
	sv   int
	outq chan outFrame
	// unsent is the frame the writer failed on. Read only after the
	// tasks exited.
	unsent *outFrame

	cancel context.CancelFunc
	stop   <-chan struct{}
	done   chan struct{}

	closing  atomic.Bool
	lastRead atomic.Int64
	silent   atomic.Bool
}

func (ep *epoch) touch() {
	ep.lastRead.Store(time.Now().UnixNano())
	ep.silent.Store(false)
}

func (ep *epoch) idle() time.Duration {
	return time.Since(time.Unix(0, ep.lastRead.Load()))
}

// Session is a client of one gateway. It is safe for concurrent use.
type Session struct {
	cfg    Config
	id     string
	logger *slog.Logger
	m      *metrics.Metrics
	disp   *dispatch.Dispatcher

	mu            sync.Mutex
	state         State
	err           error
	ep            *epoch
	abortConnect  context.CancelFunc
	connectDone   chan struct{}
	closing       bool
	serverVersion int
	connTime      string
	accounts      []string
	accountsReady chan struct{}
}

// New creates a disconnected session. Call Connect to open it.
func New(cfg Config) *Session {
	cfg.setDefaults()
	id := uuid.NewString()

	var reg prometheus.Registerer
	if cfg.Registerer != nil {
		reg = prometheus.WrapRegistererWith(prometheus.Labels{"session": id}, cfg.Registerer)
	}
	m := metrics.New(reg)

	s := &Session{
		cfg:    cfg,
		id:     id,
		logger: cfg.Logger.With("component", "session", "session_id", id),
		m:      m,
	}
	s.disp = dispatch.New(dispatch.Config{
		Catalog:             cfg.Catalog,
		Logger:              cfg.Logger.With("session_id", id),
		Metrics:             m,
		Buffer:              cfg.SubscriptionBuffer,
		UnsolicitedCapacity: cfg.UnsolicitedCapacity,
		CancelGrace:         cfg.CancelGrace,
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Connect dials the gateway, negotiates the version and, unless the
// session is asynchronous, sends StartApi. It may be called again after
// the session closed or failed; request ids keep increasing across
// connections.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.active() {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.abortConnect = cancel
	s.connectDone = make(chan struct{})
	s.closing = false
	s.err = nil
	s.accounts = nil
	s.accountsReady = make(chan struct{})
	s.setStateLocked(Connecting)
	s.mu.Unlock()

	ep, err := s.negotiate(ctx)

	s.mu.Lock()
	if err == nil && s.closing {
		ep.conn.Close()
		err = ErrSessionClosed
	}
	if err != nil {
		if s.closing {
			err = ErrSessionClosed
			s.setStateLocked(Closed)
		} else {
			s.setStateLocked(Failed)
		}
		s.err = err
		s.abortConnect = nil
		close(s.connectDone)
		s.mu.Unlock()

		s.m.Connect(outcome(err))
		s.logger.Warn("connect failed", "err", err)
		s.disp.FailAll(err)
		return err
	}
	s.ep = ep
	s.serverVersion = ep.sv
	s.abortConnect = nil
	close(s.connectDone)
	s.setStateLocked(VersionNegotiated)
	s.start(ep)
	s.mu.Unlock()

	s.m.Connect("ok")
	s.logger.Info("connected", "server_version", ep.sv, "connection_time", s.ConnectionTime())

	if s.cfg.Asynchronous {
		return nil
	}
	return s.StartAPI()
}

// negotiate performs the handshake, following redirects.
func (s *Session) negotiate(ctx context.Context) (*epoch, error) {
	host, port := s.cfg.Host, s.cfg.Port
	for redirects := 0; ; redirects++ {
		conn, r, reply, err := s.handshake(ctx, host, port)
		if err != nil {
			return nil, err
		}
		if reply.Redirect == "" {
			sv := reply.ServerVersion
			if !supported(sv) {
				conn.Close()
				return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrVersionMismatch, sv,
					max(protocol.MinServerVersion, protocol.MinClientVersion),
					min(protocol.MaxServerVersion, protocol.MaxClientVersion))
			}
			s.mu.Lock()
			s.connTime = reply.ConnectionTime
			s.mu.Unlock()
			ep := &epoch{
				conn: conn,
				r:    r,
				sv:   sv,
				outq: make(chan outFrame, s.cfg.QueueCapacity),
				done: make(chan struct{}),
			}
			ep.touch()
			return ep, nil
		}

		conn.Close()
		if redirects >= s.cfg.MaxRedirects {
			return nil, fmt.Errorf("%w: more than %d redirects", ErrProtocol, s.cfg.MaxRedirects)
		}
		h, p, err := splitRedirect(reply.Redirect, port)
		if err != nil {
			return nil, err
		}
		s.logger.Info("redirected", "target", reply.Redirect)
		s.disp.FailAll(ErrRedirected)
		s.setState(Connecting)
		host, port = h, p
	}
}

func supported(sv int) bool {
	return sv >= protocol.MinServerVersion && sv <= protocol.MaxServerVersion &&
		sv >= protocol.MinClientVersion && sv <= protocol.MaxClientVersion
}

// splitRedirect parses "host[:port]"; a missing port keeps the current one.
func splitRedirect(target string, port int) (string, int, error) {
	if !strings.Contains(target, ":") {
		if target == "" {
			return "", 0, fmt.Errorf("%w: empty redirect target", ErrProtocol)
		}
		return target, port, nil
	}
	host, ps, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("%w: redirect target %q: %v", ErrProtocol, target, err)
	}
	p, err := strconv.Atoi(ps)
	if err != nil || p <= 0 || p > 65535 {
		return "", 0, fmt.Errorf("%w: redirect port %q", ErrProtocol, ps)
	}
	return host, p, nil
}

// handshake dials and exchanges the version frames. The whole exchange,
// dial included, is bounded by HandshakeTimeout.
func (s *Session) handshake(ctx context.Context, host string, port int) (transport.Conn, *bufio.Reader, protocol.HandshakeReply, error) {
	var none protocol.HandshakeReply
	hctx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()

	conn, err := s.cfg.Dial(hctx, transport.DialOptions{
		Mode:    s.cfg.DialMode,
		Host:    host,
		Port:    port,
		Passkey: s.cfg.Passkey,
	})
	if err != nil {
		return nil, nil, none, handshakeError(ctx, hctx, "dial", err)
	}
	if deadline, ok := hctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// Cancellation unblocks a pending read by expiring the deadline.
	stop := context.AfterFunc(hctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := protocol.WriteHandshake(conn, protocol.MinClientVersion, protocol.MaxClientVersion, s.cfg.ConnectionOptions); err != nil {
		conn.Close()
		return nil, nil, none, handshakeError(ctx, hctx, "write", err)
	}
	s.setState(HandshakeSent)

	r := bufio.NewReaderSize(conn, readBufferSize)
	payload, err := protocol.ReadFrame(r, s.cfg.MaxFrameSize)
	if err != nil {
		conn.Close()
		return nil, nil, none, handshakeError(ctx, hctx, "read", err)
	}
	if !stop() {
		conn.Close()
		return nil, nil, none, handshakeError(ctx, hctx, "read", context.Cause(hctx))
	}
	conn.SetDeadline(time.Time{})

	reply, err := protocol.ParseHandshakeReply(payload)
	if err != nil {
		conn.Close()
		return nil, nil, none, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return conn, r, reply, nil
}

func handshakeError(ctx, hctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.Is(hctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s", ErrHandshakeTimeout, op)
	}
	return fmt.Errorf("%w: handshake %s: %w", ErrTransport, op, err)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrHandshakeTimeout):
		return "timeout"
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrSessionClosed), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// StartAPI sends StartApi on an asynchronous session and marks it Ready.
// The writer preserves queue order, so requests submitted afterwards
// always follow it on the wire.
func (s *Session) StartAPI() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == Ready:
		return ErrAlreadyActive
	case (s.state == Failed || s.state == Closed) && s.err != nil:
		return s.err
	case s.state != VersionNegotiated || s.ep == nil:
		return ErrNotReady
	}
	req := codec.NewRequest(catalog.StartApi).
		Set("clientId", protocol.Int(s.cfg.ClientID)).
		Set("optionalCapabilities", protocol.String(s.cfg.OptionalCapabilities))
	payload, err := codec.Encode(s.cfg.Catalog, req, s.ep.sv)
	if err != nil {
		return err
	}
	select {
	case s.ep.outq <- outFrame{payload: payload}:
	default:
		return ErrBackpressure
	}
	s.setStateLocked(Ready)
	s.logger.Debug("api started", "client_id", s.cfg.ClientID)
	return nil
}

// Submit registers req with the dispatcher and queues its frame. The
// returned subscription yields the request's responses in wire order.
func (s *Session) Submit(ctx context.Context, req *codec.Request) (*dispatch.Subscription, error) {
	ep, err := s.ready()
	if err != nil {
		return nil, err
	}
	sub, payload, err := s.disp.Register(req, ep.sv)
	if err != nil {
		return nil, err
	}
	f := outFrame{
		payload: payload,
		written: func() { s.disp.Written(sub) },
		dropped: func(err error) { s.disp.Abort(sub, err) },
	}
	if err := s.enqueue(ctx, ep, f); err != nil {
		s.disp.Abort(sub, err)
		return nil, err
	}
	return sub, nil
}

// Cancel sends the cancel message for sub. Events already in flight are
// still delivered until the server confirms or the grace period ends.
func (s *Session) Cancel(ctx context.Context, sub *dispatch.Subscription) error {
	ep, err := s.ready()
	if err != nil {
		return err
	}
	payload, err := s.disp.Cancel(sub, ep.sv)
	if err != nil || payload == nil {
		return err
	}
	f := outFrame{payload: payload, written: func() { s.disp.CancelWritten(sub) }}
	if err := s.enqueue(ctx, ep, f); err != nil {
		s.disp.Abort(sub, dispatch.ErrCanceled)
		return err
	}
	return nil
}

func (s *Session) ready() (*epoch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == Ready && s.ep != nil:
		return s.ep, nil
	case (s.state == Failed || s.state == Closed) && s.err != nil:
		return nil, s.err
	default:
		return nil, fmt.Errorf("%w: %v", ErrNotReady, s.state)
	}
}

func (s *Session) enqueue(ctx context.Context, ep *epoch, f outFrame) error {
	if s.cfg.NonBlocking {
		select {
		case ep.outq <- f:
		default:
			return ErrBackpressure
		}
	} else {
		select {
		case ep.outq <- f:
		case <-ctx.Done():
			return ctx.Err()
		case <-ep.stop:
			return s.failure()
		}
	}
	// A frame queued after shutdown began is never written.
	select {
	case <-ep.stop:
		return s.failure()
	default:
		return nil
	}
}

func (s *Session) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return ErrSessionClosed
}

// Close shuts the connection down and fails every live subscription with
// ErrSessionClosed. It returns once the reader and writer have exited.
func (s *Session) Close() error {
	s.mu.Lock()
	switch {
	case s.ep != nil:
		ep := s.ep
		ep.closing.Store(true)
		s.setStateLocked(Draining)
		s.mu.Unlock()
		ep.cancel()
		<-ep.done
	case s.abortConnect != nil:
		s.closing = true
		s.abortConnect()
		wait := s.connectDone
		s.mu.Unlock()
		<-wait
	default:
		if s.state != Failed {
			s.setStateLocked(Closed)
			s.err = ErrSessionClosed
		}
		s.mu.Unlock()
	}
	return nil
}

// Done is closed when the current connection ends.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ep != nil {
		return s.ep.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Err returns why the session left Ready, or nil while it is usable.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ServerVersion is the negotiated version of the last handshake.
func (s *Session) ServerVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverVersion
}

func (s *Session) ConnectionTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connTime
}

// ManagedAccounts returns the accounts announced after StartApi, or nil
// before they arrive.
func (s *Session) ManagedAccounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts
}

// AwaitAccounts blocks until the server announced its managed accounts.
func (s *Session) AwaitAccounts(ctx context.Context) ([]string, error) {
	for {
		s.mu.Lock()
		ready := s.accountsReady
		ended := s.state == Failed || s.state == Closed
		// wait is the epoch end, or the pending Connect before it exists.
		var wait <-chan struct{}
		connecting := false
		switch {
		case s.ep != nil:
			wait = s.ep.done
		case s.abortConnect != nil:
			wait, connecting = s.connectDone, true
		}
		s.mu.Unlock()
		if ready == nil {
			return nil, ErrNotReady
		}
		select {
		case <-ready:
			return s.ManagedAccounts(), nil
		default:
		}
		if ended && wait == nil {
			return nil, s.failure()
		}

		select {
		case <-ready:
			return s.ManagedAccounts(), nil
		case <-wait:
			if !connecting {
				return nil, s.failure()
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Session) setAccounts(list string) {
	var accounts []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	select {
	case <-s.accountsReady:
	default:
		close(s.accountsReady)
	}
}

// Unsolicited carries events no request claimed, session notices such as
// ErrSilentLink, and frames that failed to decode.
func (s *Session) Unsolicited() <-chan codec.Event { return s.disp.Unsolicited() }

// NextID is the id the next correlated request will receive.
func (s *Session) NextID() int64 { return s.disp.NextID() }

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(st)
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.logger.Debug("state change", "from", s.state, "to", st)
	s.state = st
	s.m.SetState(int(st))
}
