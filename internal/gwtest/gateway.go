// Package gwtest is a scripted fake gateway for tests. It accepts TCP
// clients, performs the version handshake, records every frame the client
// sends, and lets the test push arbitrary frames back.
package gwtest

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/chronologos/ibgw/pkg/protocol"
)

const waitTimeout = 5 * time.Second

type Config struct {
	// ServerVersion is the version token of the handshake reply.
	ServerVersion string
	ConnTime      string
	// Redirect, when set, makes the reply a redirect to this host:port.
	Redirect string
	// Silent suppresses the handshake reply.
	Silent bool
}

type Gateway struct {
	cfg   Config
	ln    net.Listener
	conns chan *Conn
}

// Start listens on a loopback port. The gateway is closed by t.Cleanup.
func Start(t testing.TB, cfg Config) *Gateway {
	t.Helper()
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = strconv.Itoa(protocol.MaxServerVersion)
	}
	if cfg.ConnTime == "" {
		cfg.ConnTime = "20261014 09:30:00 EST"
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	g := &Gateway{cfg: cfg, ln: ln, conns: make(chan *Conn, 8)}
	go g.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return g
}

func (g *Gateway) Host() string { return "127.0.0.1" }

func (g *Gateway) Port() int { return g.ln.Addr().(*net.TCPAddr).Port }

func (g *Gateway) Addr() string { return g.ln.Addr().String() }

func (g *Gateway) acceptLoop() {
	for {
		nc, err := g.ln.Accept()
		if err != nil {
			return
		}
		go g.serve(nc)
	}
}

func (g *Gateway) serve(nc net.Conn) {
	c := &Conn{nc: nc, frames: make(chan []byte, 256), done: make(chan struct{})}
	prefix := make([]byte, len(protocol.APIPrefix))
	if _, err := io.ReadFull(nc, prefix); err != nil || string(prefix) != protocol.APIPrefix {
		nc.Close()
		return
	}
	version, err := protocol.ReadFrame(nc, 0)
	if err != nil {
		nc.Close()
		return
	}
	c.Version = string(version)

	if !g.cfg.Silent {
		reply := []string{g.cfg.ServerVersion, g.cfg.ConnTime}
		if g.cfg.Redirect != "" {
			reply = []string{strconv.Itoa(protocol.RedirectVersion), g.cfg.Redirect}
		}
		payload, _ := protocol.Join(reply...)
		if err := protocol.WriteFrame(nc, payload); err != nil {
			nc.Close()
			return
		}
	}
	go c.readLoop()
	g.conns <- c
}

// Accept waits for the next client that has sent its handshake.
func (g *Gateway) Accept(t testing.TB) *Conn {
	t.Helper()
	select {
	case c := <-g.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for client")
		return nil
	}
}

// Conn is one accepted client.
type Conn struct {
	nc      net.Conn
	Version string
	frames  chan []byte
	done    chan struct{}
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.frames)
	for {
		p, err := protocol.ReadFrame(c.nc, 0)
		if err != nil {
			return
		}
		c.frames <- p
	}
}

// Next returns the tokens of the next frame the client sent.
func (c *Conn) Next(t testing.TB) []string {
	t.Helper()
	select {
	case p, ok := <-c.frames:
		if !ok {
			t.Fatal("client closed before sending a frame")
		}
		toks, err := protocol.Split(p)
		if err != nil {
			t.Fatalf("client frame: %v", err)
		}
		return toks
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for client frame")
		return nil
	}
}

// Expect reads frames until one with the given opcode arrives and returns
// its tokens.
func (c *Conn) Expect(t testing.TB, opcode int) []string {
	t.Helper()
	want := strconv.Itoa(opcode)
	for {
		if toks := c.Next(t); len(toks) > 0 && toks[0] == want {
			return toks
		}
	}
}

// Send writes one frame built from tokens.
func (c *Conn) Send(t testing.TB, tokens ...string) {
	t.Helper()
	payload, err := protocol.Join(tokens...)
	if err != nil {
		t.Fatal(err)
	}
	c.SendRaw(t, payload)
}

// SendRaw writes one frame with an arbitrary payload.
func (c *Conn) SendRaw(t testing.TB, payload []byte) {
	t.Helper()
	if err := protocol.WriteFrame(c.nc, payload); err != nil {
		t.Fatalf("send frame: %v", err)
	}
}

// SendBytes writes bytes without framing.
func (c *Conn) SendBytes(t testing.TB, b []byte) {
	t.Helper()
	if _, err := c.nc.Write(b); err != nil {
		t.Fatalf("send bytes: %v", err)
	}
}

// Closed waits for the client to close its side.
func (c *Conn) Closed(t testing.TB) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(waitTimeout):
		t.Fatal("client did not close")
	}
}

func (c *Conn) Close() error { return c.nc.Close() }

// Tokens formats mixed values the way they travel on the wire.
func Tokens(vals ...any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case string:
			out[i] = x
		case int:
			out[i] = strconv.Itoa(x)
		case int64:
			out[i] = strconv.FormatInt(x, 10)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = "0"
			if x {
				out[i] = "1"
			}
		case protocol.Field:
			out[i] = x.Raw()
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
