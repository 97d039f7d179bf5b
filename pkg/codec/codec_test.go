package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/protocol"
)

func tokens(t *testing.T, payload []byte) []string {
	t.Helper()
	toks, err := protocol.Split(payload)
	if err != nil {
		t.Fatal(err)
	}
	return toks
}

func payload(t *testing.T, toks ...string) []byte {
	t.Helper()
	p, err := protocol.Join(toks...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEncodeStartApi(t *testing.T) {
	req := NewRequest(catalog.StartApi).Set("clientId", protocol.Int(100))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("71\x002\x00100\x00\x00")
	if !bytes.Equal(got, want) {
		t.Fatalf("payload mismatch: got %q, want %q", got, want)
	}
}

func TestEncodeSkipsGatedFields(t *testing.T) {
	req := NewRequest(catalog.StartApi).
		Set("clientId", protocol.Int(3)).
		Set("optionalCapabilities", protocol.String("+PACEAPI"))
	got, err := Encode(catalog.Default(), req, catalog.VerOptionalCapabilities-1)
	if err != nil {
		t.Fatal(err)
	}
	if toks := tokens(t, got); len(toks) != 3 {
		t.Fatalf("token count mismatch: got %v", toks)
	}
	got, err = Encode(catalog.Default(), req, catalog.VerOptionalCapabilities)
	if err != nil {
		t.Fatal(err)
	}
	if toks := tokens(t, got); len(toks) != 4 || toks[3] != "+PACEAPI" {
		t.Fatalf("gated field missing: got %v", toks)
	}
}

func TestEncodeUnversioned(t *testing.T) {
	req := NewRequest(catalog.ReqMatchingSymbols).
		Set("reqId", protocol.Int(5)).
		Set("pattern", protocol.String("AAP"))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	toks := tokens(t, got)
	if len(toks) != 3 || toks[0] != "81" || toks[1] != "5" || toks[2] != "AAP" {
		t.Fatalf("payload mismatch: got %v", toks)
	}
}

func TestEncodeDefaultsAndFloats(t *testing.T) {
	req := NewRequest(catalog.ReqCalcOptionPrice).
		Set("reqId", protocol.Int(1)).
		Set("volatility", protocol.Float(0.25))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	toks := tokens(t, got)
	// opcode, version, reqId, 12 contract fields, volatility, underPrice, options
	if len(toks) != 18 {
		t.Fatalf("token count mismatch: got %d", len(toks))
	}
	if toks[3] != "0" {
		t.Fatalf("unset conId mismatch: got %q", toks[3])
	}
	if toks[7] != protocol.UnsetFloatToken {
		t.Fatalf("unset strike mismatch: got %q", toks[7])
	}
	if toks[15] != "0.25" {
		t.Fatalf("volatility mismatch: got %q", toks[15])
	}
}

func TestEncodeGroup(t *testing.T) {
	req := NewRequest(catalog.ReqScannerSubscription).
		Set("reqId", protocol.Int(9)).
		SetGroup("filterOptions",
			NewRecord().Set("tag", protocol.String("a")).Set("value", protocol.String("1")),
			NewRecord().Set("tag", protocol.String("b")).Set("value", protocol.String("2")))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	toks := tokens(t, got)
	n := len(toks)
	want := []string{"2", "a", "1", "b", "2", ""}
	for i, w := range want {
		if toks[n-len(want)+i] != w {
			t.Fatalf("group tokens mismatch: got %v", toks[n-len(want):])
		}
	}
}

func TestEncodeRejectsUnknownField(t *testing.T) {
	req := NewRequest(catalog.ReqCurrentTime).Set("bogus", protocol.Int(1))
	if _, err := Encode(catalog.Default(), req, 157); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	req = NewRequest(catalog.ReqCurrentTime).Append(protocol.Int(1))
	if _, err := Encode(catalog.Default(), req, 157); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for tail, got %v", err)
	}
}

func TestEncodeRejectsKindMismatch(t *testing.T) {
	req := NewRequest(catalog.ReqIds).Set("numIds", protocol.String("1"))
	if _, err := Encode(catalog.Default(), req, 157); !errors.Is(err, protocol.ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestEncodeRejectsNul(t *testing.T) {
	req := NewRequest(catalog.ReqMatchingSymbols).Set("pattern", protocol.String("a\x00b"))
	if _, err := Encode(catalog.Default(), req, 157); !errors.Is(err, protocol.ErrNulInString) {
		t.Fatalf("expected ErrNulInString, got %v", err)
	}
}

func TestEncodeUnknownOpcode(t *testing.T) {
	if _, err := Encode(catalog.Default(), NewRequest(42), 157); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestEncodeTail(t *testing.T) {
	req := NewRequest(catalog.PlaceOrder).
		Set("orderId", protocol.Int(11)).
		Append(protocol.String("extra"), protocol.Int(7))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	toks := tokens(t, got)
	if toks[len(toks)-2] != "extra" || toks[len(toks)-1] != "7" {
		t.Fatalf("tail mismatch: got %v", toks[len(toks)-2:])
	}
}

func TestDecodeTickPrice(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "1", "8", "4", "101.5", "3", "1"), 157)
	if ev.Err != nil {
		t.Fatal(ev.Err)
	}
	if ev.Kind != catalog.TickPrice || !ev.HasReqID || ev.ReqID != 8 {
		t.Fatalf("event mismatch: kind %v id %d", ev.Kind, ev.ReqID)
	}
	if ev.Float("price") != 101.5 || ev.Int("size") != 3 || ev.Int("attrMask") != 1 {
		t.Fatalf("field mismatch: price %v size %d", ev.Float("price"), ev.Int("size"))
	}
}

func TestDecodeVersioned(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "4", "2", "-1", "2104", "Market data farm connection is OK"), 157)
	if ev.Err != nil {
		t.Fatal(ev.Err)
	}
	if ev.Version != 2 || ev.ReqID != -1 || ev.Int("code") != 2104 {
		t.Fatalf("event mismatch: %+v", ev)
	}
	if ev.Str("message") != "Market data farm connection is OK" {
		t.Fatalf("message mismatch: got %q", ev.Str("message"))
	}
}

func TestDecodeMalformedField(t *testing.T) {
	raw := []byte{0x31, 0x00, 0x41, 0x00}
	ev := Decode(catalog.Default(), raw, 157)
	if !errors.Is(ev.Err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", ev.Err)
	}
	if ev.Kind != catalog.TickPrice {
		t.Fatalf("kind mismatch: got %v", ev.Kind)
	}
	if !bytes.Equal(ev.Raw, raw) {
		t.Fatalf("raw payload mismatch: got %q", ev.Raw)
	}
}

func TestDecodeShortPayload(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "1", "8"), 157)
	if !errors.Is(ev.Err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", ev.Err)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "48", "x"), 157)
	if !errors.Is(ev.Err, ErrUnknownOpcode) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", ev.Err)
	}
	if ev.Kind != 48 {
		t.Fatalf("kind mismatch: got %d", ev.Kind)
	}
}

func TestDecodeBadFraming(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("1"), []byte("x\x00")} {
		ev := Decode(catalog.Default(), raw, 157)
		if !errors.Is(ev.Err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", raw, ev.Err)
		}
	}
}

func TestDecodeExtraTokens(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "49", "1", "1700000000", "a", "b"), 157)
	if ev.Err != nil {
		t.Fatal(ev.Err)
	}
	if ev.Int("time") != 1700000000 {
		t.Fatalf("time mismatch: got %d", ev.Int("time"))
	}
	if len(ev.Extra) != 2 || ev.Extra[0] != "a" {
		t.Fatalf("extra mismatch: got %v", ev.Extra)
	}
}

func TestDecodeGroups(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t,
		"79", "3", "2",
		"265598", "AAPL", "STK", "NASDAQ", "USD", "2", "OPT", "WAR",
		"8314", "IBM", "STK", "NYSE", "USD", "0",
	), 157)
	if ev.Err != nil {
		t.Fatal(ev.Err)
	}
	rows := ev.Group("contracts")
	if len(rows) != 2 {
		t.Fatalf("row count mismatch: got %d", len(rows))
	}
	if rows[0].Str("symbol") != "AAPL" || rows[1].Int("conId") != 8314 {
		t.Fatalf("row mismatch")
	}
	deriv := rows[0].Group("derivativeSecTypes")
	if len(deriv) != 2 || deriv[1].Str("secType") != "WAR" {
		t.Fatalf("nested group mismatch: %d rows", len(deriv))
	}
	if len(rows[1].Group("derivativeSecTypes")) != 0 {
		t.Fatal("empty nested group should have no rows")
	}
}

func TestDecodeGroupCountOverrun(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "85", "99", "BZ", "Benzinga"), 157)
	if !errors.Is(ev.Err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", ev.Err)
	}
}

func TestDecodeFinalFlag(t *testing.T) {
	ev := Decode(catalog.Default(), payload(t, "96", "4", "1", "1700000000", "0", "10.5", "100", "1"), 157)
	if ev.Err != nil {
		t.Fatal(ev.Err)
	}
	if !ev.Final || ev.ReqID != 4 {
		t.Fatalf("final mismatch: final %v id %d", ev.Final, ev.ReqID)
	}
	ev = Decode(catalog.Default(), payload(t, "96", "4", "0", "0"), 157)
	if ev.Err != nil || ev.Final {
		t.Fatalf("non-final mismatch: final %v err %v", ev.Final, ev.Err)
	}
}

func TestDecodeVersionGatedInbound(t *testing.T) {
	old := Decode(catalog.Default(), payload(t, "94", "3", "12.5"), catalog.VerPnlRealized-1)
	if old.Err != nil {
		t.Fatal(old.Err)
	}
	if _, ok := old.Field("realizedPnL"); ok {
		t.Fatal("gated field should be absent")
	}
	cur := Decode(catalog.Default(), payload(t, "94", "3", "12.5", "1", protocol.UnsetFloatToken), catalog.VerPnlRealized)
	if cur.Err != nil {
		t.Fatal(cur.Err)
	}
	f, ok := cur.Field("realizedPnL")
	if !ok || !f.IsUnset() {
		t.Fatalf("gated field mismatch: %v", f)
	}
}

func TestEncodeContractBlock(t *testing.T) {
	req := NewRequest(catalog.ReqContractData).
		Set("reqId", protocol.Int(12)).
		Set("symbol", protocol.String("AAPL")).
		Set("secType", protocol.String("STK")).
		Set("strike", protocol.Float(187.5))
	got, err := Encode(catalog.Default(), req, 157)
	if err != nil {
		t.Fatal(err)
	}
	toks := tokens(t, got)
	if toks[0] != "9" || toks[1] != "8" || toks[2] != "12" || toks[4] != "AAPL" || toks[7] != "187.5" {
		t.Fatalf("payload mismatch: got %v", toks)
	}
}
