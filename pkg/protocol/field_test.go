package protocol

import (
	"errors"
	"math"
	"testing"
)

func roundTrip(t *testing.T, f Field) Field {
	t.Helper()
	buf, err := AppendField(nil, f)
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := Split(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 {
		t.Fatalf("token count mismatch: got %d, want 1", len(tokens))
	}
	got, err := ParseField(f.Kind(), tokens[0])
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestIntRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 157, math.MaxInt64, math.MinInt64} {
		if got := roundTrip(t, Int(v)); !got.Equal(Int(v)) {
			t.Fatalf("int mismatch: got %v, want %d", got, v)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, v := range []string{"", "AAPL", "Market data farm connection is OK", "日本語"} {
		if got := roundTrip(t, String(v)); !got.Equal(String(v)) {
			t.Fatalf("string mismatch: got %q, want %q", got.Str(), v)
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 101.5, -0.25, 1e-9, 123456789.123456789, math.SmallestNonzeroFloat64, 1e300} {
		got := roundTrip(t, Float(v))
		if got.IsUnset() || got.Float() != v {
			t.Fatalf("float mismatch: got %v, want %v", got.Float(), v)
		}
	}
}

func TestUnsetFloat(t *testing.T) {
	tok, err := UnsetFloat().Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok != UnsetFloatToken {
		t.Fatalf("unset token mismatch: got %q, want %q", tok, UnsetFloatToken)
	}
	if got := roundTrip(t, UnsetFloat()); !got.IsUnset() {
		t.Fatal("unset float did not survive round trip")
	}
	for _, tok := range []string{"", "1.7976931348623157e+308"} {
		f, err := ParseField(KindFloat, tok)
		if err != nil {
			t.Fatal(err)
		}
		if !f.IsUnset() {
			t.Fatalf("token %q should decode as unset", tok)
		}
	}
}

func TestEmptyStringIsNotUnset(t *testing.T) {
	f, err := ParseField(KindString, "")
	if err != nil {
		t.Fatal(err)
	}
	if f.IsUnset() {
		t.Fatal("empty string decoded as unset")
	}
}

func TestEmptyIntIsUnset(t *testing.T) {
	f, err := ParseField(KindInt, "")
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsUnset() || f.Int() != 0 {
		t.Fatalf("empty int mismatch: unset=%v value=%d", f.IsUnset(), f.Int())
	}
}

func TestParseFieldRejectsBadTokens(t *testing.T) {
	if _, err := ParseField(KindInt, "A"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for int, got %v", err)
	}
	if _, err := ParseField(KindInt, "1.5"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for fractional int, got %v", err)
	}
	if _, err := ParseField(KindFloat, "x"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for float, got %v", err)
	}
}

func TestStringWithNulRejected(t *testing.T) {
	if _, err := AppendField(nil, String("a\x00b")); !errors.Is(err, ErrNulInString) {
		t.Fatalf("expected ErrNulInString, got %v", err)
	}
}

func TestNonFiniteFloatRejected(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Float(v).Token(); !errors.Is(err, ErrBadToken) {
			t.Fatalf("expected ErrBadToken for %v, got %v", v, err)
		}
	}
}

func TestBoolEncoding(t *testing.T) {
	if tok, _ := Bool(true).Token(); tok != "1" {
		t.Fatalf("true mismatch: got %q", tok)
	}
	if tok, _ := Bool(false).Token(); tok != "0" {
		t.Fatalf("false mismatch: got %q", tok)
	}
}

func TestSplit(t *testing.T) {
	tokens, err := Split([]byte("1\x00\x00A\x00"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1", "", "A"}
	if len(tokens) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d mismatch: got %q, want %q", i, tokens[i], want[i])
		}
	}

	empty, err := Split(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty payload: tokens=%v err=%v", empty, err)
	}

	if _, err := Split([]byte("1\x00A")); !errors.Is(err, ErrUnterminated) {
		t.Fatalf("expected ErrUnterminated, got %v", err)
	}
}

func TestJoin(t *testing.T) {
	payload, err := Join("71", "2", "100", "")
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "71\x002\x00100\x00\x00" {
		t.Fatalf("payload mismatch: got %q", payload)
	}
	if _, err := Join("a\x00"); !errors.Is(err, ErrNulInString) {
		t.Fatalf("expected ErrNulInString, got %v", err)
	}
}
