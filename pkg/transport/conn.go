// Package transport provides the byte streams a session runs over: a
// direct TCP connection to the gateway, or a QUIC stream through a relay
// that splices it onto the gateway's TCP port.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DialMode selects which transport to use when dialing.
type DialMode int

const (
	DialTCP DialMode = iota
	DialQUIC
)

func (m DialMode) String() string {
	switch m {
	case DialTCP:
		return "tcp"
	case DialQUIC:
		return "quic"
	default:
		return "unknown"
	}
}

// ParseDialMode maps a configuration string to a DialMode.
func ParseDialMode(s string) (DialMode, error) {
	switch s {
	case "", "tcp":
		return DialTCP, nil
	case "quic":
		return DialQUIC, nil
	default:
		return 0, fmt.Errorf("unknown dial mode %q", s)
	}
}

// Conn is a full-duplex byte stream to the gateway. One goroutine may read
// while another writes.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

var (
	ErrRelayDenied = errors.New("relay rejected passkey")
	ErrRelayBusy   = errors.New("relay at stream capacity")
)

type DialOptions struct {
	Mode DialMode
	Host string
	Port int
	// Passkey authenticates QUIC relay streams; unused for TCP.
	Passkey []byte
}

// Dial connects according to opts.Mode.
func Dial(ctx context.Context, opts DialOptions) (Conn, error) {
	switch opts.Mode {
	case DialTCP:
		return dialTCP(ctx, opts.Host, opts.Port)
	case DialQUIC:
		return dialQUIC(ctx, opts.Host, opts.Port, opts.Passkey)
	default:
		return nil, fmt.Errorf("dial: unsupported mode %d", opts.Mode)
	}
}
