package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the scalar kind of a field. The wire carries no kind tag; the
// catalog layout decides how a token is parsed.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

var ErrBadToken = errors.New("token does not match field kind")

// Field is one scalar value. Integer and floating fields have an explicit
// unset arm; an empty string is a set string.
type Field struct {
	kind  Kind
	unset bool
	i     int64
	f     float64
	s     string
	raw   string // wire text when decoded, used for exact views
}

func Int(v int64) Field { return Field{kind: KindInt, i: v} }

// Bool encodes as the integer 1 or 0.
func Bool(v bool) Field {
	if v {
		return Int(1)
	}
	return Int(0)
}

func Float(v float64) Field { return Field{kind: KindFloat, f: v} }

func String(v string) Field { return Field{kind: KindString, s: v} }

// UnsetFloat is the floating field that encodes as UnsetFloatToken.
func UnsetFloat() Field { return Field{kind: KindFloat, unset: true} }

// UnsetInt is an integer field that encodes as the empty token.
func UnsetInt() Field { return Field{kind: KindInt, unset: true} }

// Zero returns the default field for a kind: 0, unset float, or "".
func Zero(k Kind) Field {
	switch k {
	case KindFloat:
		return UnsetFloat()
	case KindString:
		return String("")
	default:
		return Int(0)
	}
}

func (f Field) Kind() Kind     { return f.kind }
func (f Field) IsUnset() bool  { return f.unset }
func (f Field) Int() int64     { return f.i }
func (f Field) Bool() bool     { return f.kind == KindInt && f.i != 0 }
func (f Field) Float() float64 { return f.f }
func (f Field) Str() string    { return f.s }

// Raw returns the wire text the field was decoded from, or its encoding
// when it was built locally.
func (f Field) Raw() string {
	if f.raw != "" {
		return f.raw
	}
	tok, _ := f.Token()
	return tok
}

// Token returns the field's wire text without the trailing delimiter.
func (f Field) Token() (string, error) {
	switch f.kind {
	case KindInt:
		if f.unset {
			return "", nil
		}
		return strconv.FormatInt(f.i, 10), nil
	case KindFloat:
		if f.unset {
			return UnsetFloatToken, nil
		}
		if math.IsNaN(f.f) || math.IsInf(f.f, 0) {
			return "", fmt.Errorf("%w: non-finite float %v", ErrBadToken, f.f)
		}
		// Shortest representation that parses back to the same float64.
		return strconv.FormatFloat(f.f, 'f', -1, 64), nil
	case KindString:
		if strings.IndexByte(f.s, Delimiter) >= 0 {
			return "", ErrNulInString
		}
		return f.s, nil
	default:
		return "", fmt.Errorf("%w: zero field", ErrBadToken)
	}
}

// Equal reports whether two fields hold the same kind and value.
func (f Field) Equal(o Field) bool {
	if f.kind != o.kind || f.unset != o.unset {
		return false
	}
	if f.unset {
		return true
	}
	switch f.kind {
	case KindInt:
		return f.i == o.i
	case KindFloat:
		return f.f == o.f
	default:
		return f.s == o.s
	}
}

func (f Field) String() string {
	if f.unset {
		return "<unset>"
	}
	tok, err := f.Token()
	if err != nil {
		return "<invalid>"
	}
	return tok
}

// AppendField appends the field's token and a delimiter to dst.
func AppendField(dst []byte, f Field) ([]byte, error) {
	tok, err := f.Token()
	if err != nil {
		return dst, err
	}
	dst = append(dst, tok...)
	return append(dst, Delimiter), nil
}

// ParseField parses one token as a field of kind k.
//
// Empty integer and floating tokens decode as unset, as do the unset token
// and any float equal to the largest finite double.
func ParseField(k Kind, token string) (Field, error) {
	switch k {
	case KindInt:
		if token == "" {
			return Field{kind: KindInt, unset: true}, nil
		}
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return Field{}, fmt.Errorf("%w: %q is not an integer", ErrBadToken, token)
		}
		return Field{kind: KindInt, i: v, raw: token}, nil
	case KindFloat:
		if token == "" || token == UnsetFloatToken {
			return Field{kind: KindFloat, unset: true, raw: token}, nil
		}
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Field{}, fmt.Errorf("%w: %q is not a float", ErrBadToken, token)
		}
		if v == math.MaxFloat64 {
			return Field{kind: KindFloat, unset: true, raw: token}, nil
		}
		return Field{kind: KindFloat, f: v, raw: token}, nil
	case KindString:
		return Field{kind: KindString, s: token, raw: token}, nil
	default:
		return Field{}, fmt.Errorf("%w: kind %d", ErrBadToken, k)
	}
}

// Split breaks a payload into its tokens. Every token must be followed by
// a delimiter; the empty element after the final delimiter is dropped. An
// empty payload has no tokens.
func Split(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if payload[len(payload)-1] != Delimiter {
		return nil, ErrUnterminated
	}
	parts := bytes.Split(payload[:len(payload)-1], []byte{Delimiter})
	tokens := make([]string, len(parts))
	for i, p := range parts {
		tokens[i] = string(p)
	}
	return tokens, nil
}

// Join encodes tokens as a payload, each followed by a delimiter.
func Join(tokens ...string) ([]byte, error) {
	n := 0
	for _, t := range tokens {
		n += len(t) + 1
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		if strings.IndexByte(t, Delimiter) >= 0 {
			return nil, ErrNulInString
		}
		buf = append(buf, t...)
		buf = append(buf, Delimiter)
	}
	return buf, nil
}
