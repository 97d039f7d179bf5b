// Package codec interprets catalog layouts: it encodes requests into frame
// payloads and decodes payloads into events.
package codec

import "github.com/chronologos/ibgw/pkg/protocol"

// Record holds the named fields of one layout and the rows of its counted
// groups. The zero Record is empty and ready to use.
type Record struct {
	values map[string]protocol.Field
	groups map[string][]*Record
}

// NewRecord returns an empty record, typically one row of a group.
func NewRecord() *Record { return &Record{} }

// Set stores a field by name.
func (r *Record) Set(name string, f protocol.Field) *Record {
	if r.values == nil {
		r.values = make(map[string]protocol.Field)
	}
	r.values[name] = f
	return r
}

// SetGroup stores the rows of a counted group.
func (r *Record) SetGroup(name string, rows ...*Record) *Record {
	if r.groups == nil {
		r.groups = make(map[string][]*Record)
	}
	r.groups[name] = rows
	return r
}

// Field returns the named field and whether it was present.
func (r *Record) Field(name string) (protocol.Field, bool) {
	if r == nil {
		return protocol.Field{}, false
	}
	f, ok := r.values[name]
	return f, ok
}

func (r *Record) Int(name string) int64 {
	f, _ := r.Field(name)
	return f.Int()
}

func (r *Record) Float(name string) float64 {
	f, _ := r.Field(name)
	return f.Float()
}

func (r *Record) Str(name string) string {
	f, _ := r.Field(name)
	return f.Str()
}

// Group returns the rows of a counted group; nil when absent.
func (r *Record) Group(name string) []*Record {
	if r == nil {
		return nil
	}
	return r.groups[name]
}

// Len is the number of scalar fields held.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}
