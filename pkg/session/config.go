package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/dispatch"
	"github.com/chronologos/ibgw/pkg/protocol"
	"github.com/chronologos/ibgw/pkg/transport"
)

const (
	DefaultQueueCapacity    = 1024
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultHeartbeatMax     = 60 * time.Second
	DefaultMaxRedirects     = 2
)

var (
	ErrTransport        = errors.New("transport failure")
	ErrHandshakeTimeout = errors.New("handshake timed out")
	ErrVersionMismatch  = errors.New("server version outside supported range")
	ErrAlreadyActive    = errors.New("session already active")
	ErrNotReady         = errors.New("session not ready")
	ErrBackpressure     = errors.New("outbound queue full")
	ErrSessionClosed    = errors.New("session closed")
	ErrProtocol         = errors.New("protocol violation")
	ErrRedirected       = errors.New("session redirected")
	ErrSilentLink       = errors.New("no inbound traffic within heartbeat window")
)

// Config holds session configuration. Zero values select defaults.
type Config struct {
	Host     string
	Port     int
	ClientID int64

	// ConnectionOptions is appended to the handshake version range.
	ConnectionOptions string
	// OptionalCapabilities is sent with StartApi on servers that accept it.
	OptionalCapabilities string
	// Asynchronous defers StartApi until the caller invokes StartAPI.
	Asynchronous bool
	// NonBlocking makes Submit fail with ErrBackpressure instead of
	// waiting when the outbound queue is full.
	NonBlocking bool

	QueueCapacity       int
	MaxFrameSize        int
	HandshakeTimeout    time.Duration
	HeartbeatMax        time.Duration
	SubscriptionBuffer  int
	UnsolicitedCapacity int
	CancelGrace         time.Duration
	// MaxRedirects bounds how many redirect replies one Connect follows.
	MaxRedirects int

	DialMode transport.DialMode
	// Passkey authenticates relay streams in DialQUIC mode.
	Passkey []byte
	// Dial replaces transport.Dial; tests use it to inject failures.
	Dial func(ctx context.Context, opts transport.DialOptions) (transport.Conn, error)

	Catalog    *catalog.Catalog
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.HeartbeatMax <= 0 {
		c.HeartbeatMax = DefaultHeartbeatMax
	}
	if c.SubscriptionBuffer <= 0 {
		c.SubscriptionBuffer = dispatch.DefaultBuffer
	}
	if c.UnsolicitedCapacity <= 0 {
		c.UnsolicitedCapacity = dispatch.DefaultUnsolicitedCapacity
	}
	if c.CancelGrace <= 0 {
		c.CancelGrace = dispatch.DefaultCancelGrace
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	} else if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.Dial == nil {
		c.Dial = transport.Dial
	}
	if c.Catalog == nil {
		c.Catalog = catalog.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.New(discardHandler{})
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// State is the session lifecycle position.
type State int

const (
	Disconnected State = iota
	Connecting
	HandshakeSent
	VersionNegotiated
	Ready
	Draining
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case HandshakeSent:
		return "handshake-sent"
	case VersionNegotiated:
		return "version-negotiated"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// active reports whether a connection attempt or epoch owns the session.
func (s State) active() bool {
	return s >= Connecting && s <= Draining
}
