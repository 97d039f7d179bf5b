package codec

import (
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/protocol"
)

// Request is an outbound message under construction. Fields are matched to
// the catalog layout by name at encode time; unset fields encode as the
// zero value of their kind.
type Request struct {
	Kind catalog.OutKind
	Record
	tail []protocol.Field
}

func NewRequest(kind catalog.OutKind) *Request {
	return &Request{Kind: kind}
}

// Set stores a field by name.
func (r *Request) Set(name string, f protocol.Field) *Request {
	r.Record.Set(name, f)
	return r
}

// SetGroup stores the rows of a counted group.
func (r *Request) SetGroup(name string, rows ...*Record) *Request {
	r.Record.SetGroup(name, rows...)
	return r
}

// Append adds fields after the declared layout. Only kinds whose catalog
// entry allows a tail accept them.
func (r *Request) Append(fields ...protocol.Field) *Request {
	r.tail = append(r.tail, fields...)
	return r
}

func (r *Request) Tail() []protocol.Field { return r.tail }
