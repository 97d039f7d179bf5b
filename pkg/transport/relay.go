package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/semaphore"

	"github.com/chronologos/ibgw/internal/auth"
)

const DefaultRelayStreams = 64

type RelayConfig struct {
	// Port is the UDP port to listen on; 0 picks one.
	Port int
	// Target is the gateway's TCP address, host:port.
	Target  string
	Passkey []byte
	// MaxStreams bounds concurrently spliced streams.
	MaxStreams int64
	Logger     *slog.Logger
	// Cert overrides the generated self-signed certificate.
	Cert *tls.Certificate
}

// Relay accepts QUIC streams, checks each stream's passkey token, and
// splices authenticated streams onto a fresh TCP connection to Target.
type Relay struct {
	tr      *quic.Transport
	ln      *quic.Listener
	port    int
	target  string
	passkey []byte
	sem     *semaphore.Weighted
	logger  *slog.Logger

	wg sync.WaitGroup
}

func ListenRelay(cfg RelayConfig) (*Relay, error) {
	if len(cfg.Passkey) != auth.PasskeySize {
		return nil, auth.ErrBadPasskey
	}
	if cfg.Target == "" {
		return nil, errors.New("relay: target address required")
	}
	if cfg.MaxStreams <= 0 {
		cfg.MaxStreams = DefaultRelayStreams
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var cert tls.Certificate
	if cfg.Cert != nil {
		cert = *cfg.Cert
	} else {
		var err error
		if cert, err = GenerateSelfSignedCert(); err != nil {
			return nil, fmt.Errorf("generate TLS cert: %w", err)
		}
	}

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("listen UDP: %w", err)
	}
	tr := &quic.Transport{Conn: udpConn}
	ln, err := tr.Listen(serverTLSConfig(cert), quicConfig())
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("QUIC listen: %w", err)
	}

	return &Relay{
		tr:      tr,
		ln:      ln,
		port:    udpConn.LocalAddr().(*net.UDPAddr).Port,
		target:  cfg.Target,
		passkey: cfg.Passkey,
		sem:     semaphore.NewWeighted(cfg.MaxStreams),
		logger:  cfg.Logger.With("component", "relay"),
	}, nil
}

// Port returns the UDP port the relay is bound to.
func (r *Relay) Port() int { return r.port }

// Serve accepts connections until ctx is done or the relay is closed.
func (r *Relay) Serve(ctx context.Context) error {
	for {
		qconn, err := r.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				r.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept QUIC connection: %w", err)
		}
		r.logger.Debug("relay connection", "remote", qconn.RemoteAddr().String())
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.serveConn(ctx, qconn)
		}()
	}
}

func (r *Relay) serveConn(ctx context.Context, qconn *quic.Conn) {
	material, err := auth.Material(qconn.ConnectionState().TLS)
	if err != nil {
		r.logger.Warn("relay keying material", "error", err)
		qconn.CloseWithError(1, "keying material")
		return
	}
	for {
		stream, err := qconn.AcceptStream(ctx)
		if err != nil {
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.serveStream(ctx, stream, material)
		}()
	}
}

func (r *Relay) serveStream(ctx context.Context, stream *quic.Stream, material []byte) {
	defer stream.Close()

	stream.SetReadDeadline(time.Now().Add(10 * time.Second))
	var token [auth.TokenSize]byte
	if _, err := io.ReadFull(stream, token[:]); err != nil {
		stream.CancelRead(0)
		return
	}
	stream.SetReadDeadline(time.Time{})

	if !auth.VerifyToken(r.passkey, material, token) {
		r.logger.Warn("relay stream rejected: bad passkey")
		stream.Write([]byte{relayDenied})
		stream.CancelRead(0)
		return
	}
	if !r.sem.TryAcquire(1) {
		r.logger.Warn("relay stream rejected: at capacity")
		stream.Write([]byte{relayBusy})
		stream.CancelRead(0)
		return
	}
	defer r.sem.Release(1)

	var d net.Dialer
	gw, err := d.DialContext(ctx, "tcp", r.target)
	if err != nil {
		r.logger.Warn("relay target dial failed", "target", r.target, "error", err)
		stream.CancelRead(0)
		return
	}
	if _, err := stream.Write([]byte{relayOK}); err != nil {
		gw.Close()
		return
	}
	r.logger.Info("relay stream spliced", "target", r.target)
	splice(stream, gw)
}

// splice copies both directions until either side ends, then tears down
// the other.
func splice(stream *quic.Stream, gw net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(gw, stream)
		gw.Close()
	}()
	go func() {
		defer wg.Done()
		io.Copy(stream, gw)
		stream.CancelRead(0)
		stream.Close()
	}()
	wg.Wait()
}

// Close stops accepting and shuts down the listener and transport.
func (r *Relay) Close() error {
	r.ln.Close()
	return r.tr.Close()
}
