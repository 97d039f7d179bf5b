package protocol

// APIPrefix is written once, unframed, before the version handshake.
const APIPrefix = "API\x00"

// Supported client version range, announced as "v{Min}..{Max}".
const (
	MinClientVersion = 100
	MaxClientVersion = 157
)

// Accepted server version range. The negotiated version must fall inside
// both this range and the client range.
const (
	MinServerVersion = 100
	MaxServerVersion = 157
)

// Frame header: [4B payload_length big-endian]
const HeaderSize = 4

// DefaultMaxFrameSize is the default cap on an inbound payload (16 MiB).
const DefaultMaxFrameSize = 16 * 1024 * 1024

// Delimiter terminates every token in a payload.
const Delimiter = 0x00

// UnsetFloatToken is the protocol's textual "unset" marker for floating
// fields: the largest finite double.
const UnsetFloatToken = "1.7976931348623157E308"
