package codec

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/protocol"
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrMalformed     = errors.New("malformed message")
	ErrUnknownField  = errors.New("unknown field")
)

// Encode builds the payload of one frame: opcode, message version when the
// layout declares one, then every field whose gate is satisfied at
// serverVersion, then any tail fields.
func Encode(cat *catalog.Catalog, req *Request, serverVersion int) ([]byte, error) {
	entry, ok := cat.Out(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: outbound %d", ErrUnknownOpcode, req.Kind)
	}
	if err := checkNames(entry.Name, entry.Fields, &req.Record); err != nil {
		return nil, err
	}
	if len(req.tail) > 0 && !entry.Tail {
		return nil, fmt.Errorf("%w: %s takes no trailing fields", ErrUnknownField, entry.Name)
	}

	buf := make([]byte, 0, 64)
	buf = strconv.AppendUint(buf, uint64(req.Kind), 10)
	buf = append(buf, protocol.Delimiter)
	if entry.Version > 0 {
		buf = strconv.AppendInt(buf, int64(entry.Version), 10)
		buf = append(buf, protocol.Delimiter)
	}
	buf, err := encodeLayout(buf, entry.Name, entry.Fields, &req.Record, serverVersion)
	if err != nil {
		return nil, err
	}
	for _, f := range req.tail {
		if buf, err = protocol.AppendField(buf, f); err != nil {
			return nil, fmt.Errorf("%s tail: %w", entry.Name, err)
		}
	}
	return buf, nil
}

func encodeLayout(buf []byte, owner string, layout []catalog.FieldSpec, rec *Record, sv int) ([]byte, error) {
	var err error
	for _, spec := range layout {
		if !spec.Present(sv) {
			continue
		}
		if spec.IsGroup() {
			rows := rec.Group(spec.Name)
			buf = strconv.AppendInt(buf, int64(len(rows)), 10)
			buf = append(buf, protocol.Delimiter)
			for _, row := range rows {
				if buf, err = encodeLayout(buf, owner+"."+spec.Name, spec.Group, row, sv); err != nil {
					return nil, err
				}
			}
			continue
		}
		f, ok := rec.Field(spec.Name)
		if !ok {
			f = protocol.Zero(spec.Kind)
		} else if f.Kind() != spec.Kind {
			return nil, fmt.Errorf("%s field %q: %w: got %v, want %v",
				owner, spec.Name, protocol.ErrBadToken, f.Kind(), spec.Kind)
		}
		if buf, err = protocol.AppendField(buf, f); err != nil {
			return nil, fmt.Errorf("%s field %q: %w", owner, spec.Name, err)
		}
	}
	return buf, nil
}

// checkNames rejects fields and groups the layout does not declare.
func checkNames(owner string, layout []catalog.FieldSpec, rec *Record) error {
	if rec == nil {
		return nil
	}
	declared := make(map[string]catalog.FieldSpec, len(layout))
	for _, spec := range layout {
		declared[spec.Name] = spec
	}
	for name := range rec.values {
		if spec, ok := declared[name]; !ok || spec.IsGroup() {
			return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, owner, name)
		}
	}
	for name, rows := range rec.groups {
		spec, ok := declared[name]
		if !ok || !spec.IsGroup() {
			return fmt.Errorf("%w: %s has no group %q", ErrUnknownField, owner, name)
		}
		for _, row := range rows {
			if err := checkNames(owner+"."+name, spec.Group, row); err != nil {
				return err
			}
		}
	}
	return nil
}
