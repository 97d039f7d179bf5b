package protocol

import (
	"fmt"
	"io"
	"strconv"
)

// VersionString returns the handshake body "v{min}..{max}" with opts
// appended. Non-empty opts are separated by a single space.
func VersionString(minVer, maxVer int, opts string) string {
	s := fmt.Sprintf("v%d..%d", minVer, maxVer)
	if opts != "" {
		if opts[0] != ' ' {
			s += " "
		}
		s += opts
	}
	return s
}

// WriteHandshake writes the unframed API prefix followed by the framed
// version range.
func WriteHandshake(w io.Writer, minVer, maxVer int, opts string) error {
	body := VersionString(minVer, maxVer, opts)
	buf := make([]byte, 0, len(APIPrefix)+HeaderSize+len(body))
	buf = append(buf, APIPrefix...)
	buf = append(buf, byte(len(body)>>24), byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))
	buf = append(buf, body...)
	return writeFull(w, buf)
}

// HandshakeReply is the server's first frame: its version and connection
// time. A version of RedirectVersion means Redirect holds "host[:port]".
type HandshakeReply struct {
	ServerVersion  int
	ConnectionTime string
	Redirect       string
}

// RedirectVersion in the version slot of a handshake reply asks the client
// to reconnect elsewhere.
const RedirectVersion = -1

// ParseHandshakeReply decodes the tokens of the server's first frame.
func ParseHandshakeReply(payload []byte) (HandshakeReply, error) {
	tokens, err := Split(payload)
	if err != nil {
		return HandshakeReply{}, err
	}
	if len(tokens) < 2 {
		return HandshakeReply{}, fmt.Errorf("handshake reply: want 2 tokens, got %d", len(tokens))
	}
	v, err := strconv.Atoi(tokens[0])
	if err != nil {
		return HandshakeReply{}, fmt.Errorf("handshake reply: server version %q: %w", tokens[0], err)
	}
	if v == RedirectVersion {
		return HandshakeReply{ServerVersion: v, Redirect: tokens[1]}, nil
	}
	return HandshakeReply{ServerVersion: v, ConnectionTime: tokens[1]}, nil
}
