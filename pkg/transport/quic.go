package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/chronologos/ibgw/internal/auth"
)

// Relay stream status, sent by the relay after reading the token.
const (
	relayOK     byte = 0
	relayDenied byte = 1
	relayBusy   byte = 2
)

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:    30 * time.Second,
		KeepAlivePeriod:   10 * time.Second,
		InitialPacketSize: 1200, // Tailscale MTU is 1280; default 1350 gets dropped
	}
}

// quicConn is one relay stream. It owns its QUIC connection and the UDP
// socket underneath.
type quicConn struct {
	tr     *quic.Transport
	qconn  *quic.Conn
	stream *quic.Stream
}

func (c *quicConn) Read(p []byte) (int, error)  { return c.stream.Read(p) }
func (c *quicConn) Write(p []byte) (int, error) { return c.stream.Write(p) }

func (c *quicConn) SetDeadline(t time.Time) error { return c.stream.SetDeadline(t) }

func (c *quicConn) Close() error {
	c.stream.CancelRead(0)
	c.stream.Close()
	c.qconn.CloseWithError(0, "closed")
	return c.tr.Close()
}

func dialQUIC(ctx context.Context, host string, port int, passkey []byte) (Conn, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", host, port, err)
	}

	udpConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("listen UDP: %w", err)
	}

	tr := &quic.Transport{Conn: udpConn}
	qconn, err := tr.Dial(ctx, addr, clientTLSConfig(), quicConfig())
	if err != nil {
		tr.Close()
		return nil, fmt.Errorf("QUIC dial: %w", err)
	}

	stream, err := openRelayStream(ctx, qconn, passkey)
	if err != nil {
		qconn.CloseWithError(1, "relay auth failed")
		tr.Close()
		return nil, err
	}
	return &quicConn{tr: tr, qconn: qconn, stream: stream}, nil
}

// openRelayStream opens a stream and authenticates it. The token write
// also announces the stream to the relay.
func openRelayStream(ctx context.Context, qconn *quic.Conn, passkey []byte) (*quic.Stream, error) {
	stream, err := qconn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open relay stream: %w", err)
	}

	material, err := auth.Material(qconn.ConnectionState().TLS)
	if err != nil {
		return nil, err
	}
	token := auth.ComputeToken(passkey, material)
	if _, err := stream.Write(token[:]); err != nil {
		return nil, fmt.Errorf("write relay token: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetReadDeadline(deadline)
		defer stream.SetReadDeadline(time.Time{})
	}
	var status [1]byte
	if _, err := io.ReadFull(stream, status[:]); err != nil {
		return nil, fmt.Errorf("read relay status: %w", err)
	}
	switch status[0] {
	case relayOK:
		return stream, nil
	case relayDenied:
		return nil, ErrRelayDenied
	case relayBusy:
		return nil, ErrRelayBusy
	default:
		return nil, fmt.Errorf("relay status %d", status[0])
	}
}
