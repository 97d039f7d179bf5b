package codec

import (
	"fmt"
	"strconv"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/protocol"
)

// Event is one decoded inbound message. A frame that could not be decoded
// still yields an Event: Err is then ErrMalformed or ErrUnknownOpcode
// (wrapped), Raw holds the payload, and Kind is set when the opcode parsed.
type Event struct {
	Kind catalog.InKind
	// Version is the message-version token of versioned kinds.
	Version  int64
	ReqID    int64
	HasReqID bool
	// Final is set when the kind's final flag is non-zero.
	Final bool
	Record
	// Extra holds tokens that followed the declared layout.
	Extra []string
	Raw   []byte
	Err   error
}

// Decode parses one frame payload. It never fails; decoding problems are
// reported through Event.Err so that the reader can keep going.
func Decode(cat *catalog.Catalog, payload []byte, serverVersion int) Event {
	ev := Event{Raw: payload}
	tokens, err := protocol.Split(payload)
	if err != nil {
		ev.Err = fmt.Errorf("%w: %v", ErrMalformed, err)
		return ev
	}
	if len(tokens) == 0 {
		ev.Err = fmt.Errorf("%w: empty payload", ErrMalformed)
		return ev
	}
	op, err := strconv.ParseUint(tokens[0], 10, 16)
	if err != nil {
		ev.Err = fmt.Errorf("%w: opcode %q", ErrMalformed, tokens[0])
		return ev
	}
	ev.Kind = catalog.InKind(op)
	entry, ok := cat.In(ev.Kind)
	if !ok {
		ev.Err = fmt.Errorf("%w: inbound %d", ErrUnknownOpcode, op)
		return ev
	}

	d := decoder{tokens: tokens, pos: 1, sv: serverVersion}
	if entry.Versioned {
		tok, ok := d.next()
		if !ok {
			ev.Err = fmt.Errorf("%w: %s: missing message version", ErrMalformed, entry.Name)
			return ev
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			ev.Err = fmt.Errorf("%w: %s: message version %q", ErrMalformed, entry.Name, tok)
			return ev
		}
		ev.Version = v
	}
	if err := d.layout(entry.Name, entry.Fields, &ev.Record); err != nil {
		ev.Err = err
		return ev
	}
	if d.pos < len(tokens) {
		ev.Extra = tokens[d.pos:]
	}
	if entry.ReqID != "" {
		if f, ok := ev.Field(entry.ReqID); ok && !f.IsUnset() {
			ev.ReqID, ev.HasReqID = f.Int(), true
		}
	}
	if entry.Final != "" {
		ev.Final = ev.Int(entry.Final) != 0
	}
	return ev
}

type decoder struct {
	tokens []string
	pos    int
	sv     int
}

func (d *decoder) next() (string, bool) {
	if d.pos >= len(d.tokens) {
		return "", false
	}
	tok := d.tokens[d.pos]
	d.pos++
	return tok, true
}

func (d *decoder) layout(owner string, layout []catalog.FieldSpec, rec *Record) error {
	for _, spec := range layout {
		if !spec.Present(d.sv) {
			continue
		}
		tok, ok := d.next()
		if !ok {
			return fmt.Errorf("%w: %s: payload ends before %q", ErrMalformed, owner, spec.Name)
		}
		if spec.IsGroup() {
			n, err := strconv.Atoi(tok)
			if err != nil || n < 0 || n > len(d.tokens)-d.pos {
				return fmt.Errorf("%w: %s: group %q count %q", ErrMalformed, owner, spec.Name, tok)
			}
			rows := make([]*Record, n)
			for i := range rows {
				rows[i] = NewRecord()
				if err := d.layout(owner+"."+spec.Name, spec.Group, rows[i]); err != nil {
					return err
				}
			}
			rec.SetGroup(spec.Name, rows...)
			continue
		}
		f, err := protocol.ParseField(spec.Kind, tok)
		if err != nil {
			return fmt.Errorf("%w: %s field %q: %v", ErrMalformed, owner, spec.Name, err)
		}
		rec.Set(spec.Name, f)
	}
	return nil
}

// Name returns the catalog name of the event kind.
func (e *Event) Name() string { return e.Kind.String() }
