// Package catalog is the single authority on message kinds: opcodes,
// field layouts, request-id positions and correlation rules. Encoder and
// decoder are interpreters of these tables.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chronologos/ibgw/pkg/protocol"
)

// FieldSpec is one row of a layout. A spec with a non-nil Group is a
// counted group: an integer count token followed by that many rows of
// the group's layout.
type FieldSpec struct {
	Name  string
	Kind  protocol.Kind
	Since int // minimum server version; 0 means always present
	Group []FieldSpec
}

// Present reports whether the field appears on the wire at serverVersion.
func (f FieldSpec) Present(serverVersion int) bool {
	return f.Since == 0 || serverVersion >= f.Since
}

func (f FieldSpec) IsGroup() bool { return f.Group != nil }

// Policy selects what the dispatcher does when a consumer falls behind.
type Policy uint8

const (
	// Block applies backpressure to the reader until the consumer drains.
	Block Policy = iota
	// DropOldest discards the oldest undelivered event to make room.
	DropOldest
)

func (p Policy) String() string {
	if p == DropOldest {
		return "drop-oldest"
	}
	return "block"
}

// Outbound describes a client-to-server message.
type Outbound struct {
	Kind    OutKind
	Name    string
	Version int // message version sent after the opcode; 0 if none
	Fields  []FieldSpec
	// ReqID names the field that carries the request id; empty when the
	// message is not correlated by id.
	ReqID string
	// Tail allows caller-supplied fields after the declared layout.
	Tail bool
	// Responses lists the inbound kinds legal for this request, other
	// than ErrMsg which is always legal for correlated requests.
	Responses []InKind
	// End is the end-sentinel kind; zero for open-ended streams.
	End    InKind
	Cancel OutKind
	Policy Policy
}

// Correlated reports whether the request carries a dispatcher-assigned id.
func (o *Outbound) Correlated() bool { return o.ReqID != "" }

// OneWay reports whether the server sends nothing back for this request.
func (o *Outbound) OneWay() bool { return len(o.Responses) == 0 && o.End == 0 }

// Accepts reports whether k is a legal response kind.
func (o *Outbound) Accepts(k InKind) bool {
	if k == o.End && o.End != 0 {
		return true
	}
	if k == ErrMsg && o.Correlated() {
		return true
	}
	for _, r := range o.Responses {
		if r == k {
			return true
		}
	}
	return false
}

// SlotKinds lists the inbound kinds claimed by an uncorrelated request.
func (o *Outbound) SlotKinds() []InKind {
	kinds := append([]InKind(nil), o.Responses...)
	if o.End != 0 && !containsKind(kinds, o.End) {
		kinds = append(kinds, o.End)
	}
	return kinds
}

// Inbound describes a server-to-client message.
type Inbound struct {
	Kind InKind
	Name string
	// Versioned messages carry a message-version token after the opcode.
	Versioned bool
	Fields    []FieldSpec
	// ReqID names the field holding the correlating request id.
	ReqID string
	// Final names an integer field whose non-zero value marks the event
	// as the last one for its request.
	Final string
}

// Catalog is an immutable pair of opcode tables.
type Catalog struct {
	out map[OutKind]*Outbound
	in  map[InKind]*Inbound
}

var ErrInvalidCatalog = errors.New("invalid catalog")

// New validates and indexes the given tables.
func New(out []Outbound, in []Inbound) (*Catalog, error) {
	c := &Catalog{
		out: make(map[OutKind]*Outbound, len(out)),
		in:  make(map[InKind]*Inbound, len(in)),
	}
	for i := range in {
		e := &in[i]
		if _, dup := c.in[e.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate inbound opcode %d", ErrInvalidCatalog, e.Kind)
		}
		if err := checkLayout(e.Name, e.Fields); err != nil {
			return nil, err
		}
		if e.ReqID != "" && !hasTopLevel(e.Fields, e.ReqID, protocol.KindInt) {
			return nil, fmt.Errorf("%w: %s: request id field %q missing", ErrInvalidCatalog, e.Name, e.ReqID)
		}
		if e.Final != "" && !hasTopLevel(e.Fields, e.Final, protocol.KindInt) {
			return nil, fmt.Errorf("%w: %s: final flag %q missing", ErrInvalidCatalog, e.Name, e.Final)
		}
		c.in[e.Kind] = e
	}
	for i := range out {
		e := &out[i]
		if _, dup := c.out[e.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate outbound opcode %d", ErrInvalidCatalog, e.Kind)
		}
		if err := checkLayout(e.Name, e.Fields); err != nil {
			return nil, err
		}
		if e.ReqID != "" && !hasTopLevel(e.Fields, e.ReqID, protocol.KindInt) {
			return nil, fmt.Errorf("%w: %s: request id field %q missing", ErrInvalidCatalog, e.Name, e.ReqID)
		}
		for _, r := range e.SlotKinds() {
			if _, ok := c.in[r]; !ok {
				return nil, fmt.Errorf("%w: %s: unknown response kind %d", ErrInvalidCatalog, e.Name, r)
			}
		}
		c.out[e.Kind] = e
	}
	for _, e := range c.out {
		if e.Cancel == 0 {
			continue
		}
		if _, ok := c.out[e.Cancel]; !ok {
			return nil, fmt.Errorf("%w: %s: unknown cancel kind %d", ErrInvalidCatalog, e.Name, e.Cancel)
		}
	}
	return c, nil
}

// Out returns the entry for an outbound opcode.
func (c *Catalog) Out(k OutKind) (*Outbound, bool) {
	e, ok := c.out[k]
	return e, ok
}

// In returns the entry for an inbound opcode.
func (c *Catalog) In(k InKind) (*Inbound, bool) {
	e, ok := c.in[k]
	return e, ok
}

var Default = sync.OnceValue(func() *Catalog {
	c, err := New(outboundTable(), inboundTable())
	if err != nil {
		panic(err)
	}
	return c
})

// NoValidID is the request id the server uses for session-level notices.
const NoValidID = -1

// IsSystemID reports whether an ErrMsg id refers to the session rather
// than to a request.
func IsSystemID(id int64) bool { return id <= 0 }

// IsWarning reports whether an ErrMsg code is informational: delivered to
// the request's consumer without terminating it.
func IsWarning(code int64) bool {
	return (code >= 2100 && code < 2200) || code == 10167
}

func checkLayout(owner string, fields []FieldSpec) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s: unnamed field", ErrInvalidCatalog, owner)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidCatalog, owner, f.Name)
		}
		seen[f.Name] = true
		if f.IsGroup() {
			if err := checkLayout(owner+"."+f.Name, f.Group); err != nil {
				return err
			}
			continue
		}
		switch f.Kind {
		case protocol.KindInt, protocol.KindFloat, protocol.KindString:
		default:
			return fmt.Errorf("%w: %s: field %q has no kind", ErrInvalidCatalog, owner, f.Name)
		}
	}
	return nil
}

func hasTopLevel(fields []FieldSpec, name string, k protocol.Kind) bool {
	for _, f := range fields {
		if f.Name == name && !f.IsGroup() && f.Kind == k && f.Since == 0 {
			return true
		}
	}
	return false
}

func containsKind(kinds []InKind, k InKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}
