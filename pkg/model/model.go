// Package model holds typed views over decoded events and the contract
// block shared by many requests. Prices that must compare exactly, such
// as strikes and tick increments, are decimals parsed from the wire text.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/protocol"
)

var ErrWrongKind = errors.New("event kind does not match view")

func expect(ev *codec.Event, kinds ...catalog.InKind) error {
	if ev.Err != nil {
		return ev.Err
	}
	for _, k := range kinds {
		if ev.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrWrongKind, ev.Kind)
}

// exact parses a floating field from its wire text. Unset fields give
// zero and false.
func exact(r *codec.Record, name string) (decimal.Decimal, bool) {
	f, ok := r.Field(name)
	if !ok || f.IsUnset() {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(f.Raw())
	if err != nil {
		return decimal.NewFromFloat(f.Float()), true
	}
	return d, true
}

// Contract identifies an instrument in requests and responses.
type Contract struct {
	ConID           int64
	Symbol          string
	SecType         string
	LastTradeDate   string
	Strike          decimal.Decimal
	Right           string
	Multiplier      string
	Exchange        string
	PrimaryExchange string
	Currency        string
	LocalSymbol     string
	TradingClass    string
}

// Stock is a SMART-routed equity contract.
func Stock(symbol, currency string) Contract {
	return Contract{Symbol: symbol, SecType: "STK", Exchange: "SMART", Currency: currency}
}

// Apply writes the contract block into req.
func (c Contract) Apply(req *codec.Request) *codec.Request {
	return req.
		Set("conId", protocol.Int(c.ConID)).
		Set("symbol", protocol.String(c.Symbol)).
		Set("secType", protocol.String(c.SecType)).
		Set("lastTradeDate", protocol.String(c.LastTradeDate)).
		Set("strike", protocol.Float(c.Strike.InexactFloat64())).
		Set("right", protocol.String(c.Right)).
		Set("multiplier", protocol.String(c.Multiplier)).
		Set("exchange", protocol.String(c.Exchange)).
		Set("primaryExchange", protocol.String(c.PrimaryExchange)).
		Set("currency", protocol.String(c.Currency)).
		Set("localSymbol", protocol.String(c.LocalSymbol)).
		Set("tradingClass", protocol.String(c.TradingClass))
}

func (c Contract) String() string {
	s := c.Symbol + " " + c.SecType
	if c.LastTradeDate != "" {
		s += " " + c.LastTradeDate
	}
	if !c.Strike.IsZero() {
		s += " " + c.Strike.String() + c.Right
	}
	if c.Exchange != "" {
		s += " @" + c.Exchange
	}
	return s
}

// ContractDetails is one ContractData event.
type ContractDetails struct {
	ReqID          int64
	Contract       Contract
	MarketName     string
	MinTick        decimal.Decimal
	OrderTypes     []string
	ValidExchanges []string
	PriceMagnifier int64
	UnderConID     int64
	LongName       string
}

func NewContractDetails(ev *codec.Event) (ContractDetails, error) {
	if err := expect(ev, catalog.ContractData); err != nil {
		return ContractDetails{}, err
	}
	strike, _ := exact(&ev.Record, "strike")
	minTick, _ := exact(&ev.Record, "minTick")
	return ContractDetails{
		ReqID: ev.Int("reqId"),
		Contract: Contract{
			ConID:           ev.Int("conId"),
			Symbol:          ev.Str("symbol"),
			SecType:         ev.Str("secType"),
			LastTradeDate:   ev.Str("lastTradeDate"),
			Strike:          strike,
			Right:           ev.Str("right"),
			Multiplier:      ev.Str("multiplier"),
			Exchange:        ev.Str("exchange"),
			PrimaryExchange: ev.Str("primaryExchange"),
			Currency:        ev.Str("currency"),
			LocalSymbol:     ev.Str("localSymbol"),
			TradingClass:    ev.Str("tradingClass"),
		},
		MarketName:     ev.Str("marketName"),
		MinTick:        minTick,
		OrderTypes:     splitList(ev.Str("orderTypes")),
		ValidExchanges: splitList(ev.Str("validExchanges")),
		PriceMagnifier: ev.Int("priceMagnifier"),
		UnderConID:     ev.Int("underConId"),
		LongName:       ev.Str("longName"),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Tick attribute bits of TickPrice.attrMask.
const (
	AttrCanAutoExecute = 1 << iota
	AttrPastLimit
	AttrPreOpen
)

type TickPrice struct {
	TickerID int64
	TickType int64
	Price    decimal.Decimal
	// HasPrice is false when the server sent the unset marker.
	HasPrice bool
	Size     int64
	Attrs    int64
}

func NewTickPrice(ev *codec.Event) (TickPrice, error) {
	if err := expect(ev, catalog.TickPrice); err != nil {
		return TickPrice{}, err
	}
	price, ok := exact(&ev.Record, "price")
	return TickPrice{
		TickerID: ev.Int("tickerId"),
		TickType: ev.Int("tickType"),
		Price:    price,
		HasPrice: ok,
		Size:     ev.Int("size"),
		Attrs:    ev.Int("attrMask"),
	}, nil
}

func (t TickPrice) PastLimit() bool { return t.Attrs&AttrPastLimit != 0 }
func (t TickPrice) PreOpen() bool   { return t.Attrs&AttrPreOpen != 0 }

// ServerNotice is an ErrMsg. Notices with system ids are connection-wide.
type ServerNotice struct {
	ID                  int64
	Code                int64
	Message             string
	AdvancedOrderReject string
}

func NewServerNotice(ev *codec.Event) (ServerNotice, error) {
	if err := expect(ev, catalog.ErrMsg); err != nil {
		return ServerNotice{}, err
	}
	return ServerNotice{
		ID:                  ev.Int("id"),
		Code:                ev.Int("code"),
		Message:             ev.Str("message"),
		AdvancedOrderReject: ev.Str("advancedOrderRejectJson"),
	}, nil
}

func (n ServerNotice) Warning() bool { return catalog.IsWarning(n.Code) }

func (n ServerNotice) System() bool { return catalog.IsSystemID(n.ID) }

func (n ServerNotice) String() string {
	return fmt.Sprintf("[%d] %d: %s", n.ID, n.Code, n.Message)
}

// Bar is one OHLCV bar from RealTimeBars or HistoricalData.
type Bar struct {
	Time   time.Time
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	WAP    float64
	Count  int64
}

// NewRealTimeBar views a RealTimeBars event. Time is the bar start.
func NewRealTimeBar(ev *codec.Event) (Bar, error) {
	if err := expect(ev, catalog.RealTimeBars); err != nil {
		return Bar{}, err
	}
	ts := time.Unix(ev.Int("time"), 0).UTC()
	return Bar{
		Time:   ts,
		Date:   ts.Format("20060102 15:04:05"),
		Open:   ev.Float("open"),
		High:   ev.Float("high"),
		Low:    ev.Float("low"),
		Close:  ev.Float("close"),
		Volume: ev.Int("volume"),
		WAP:    ev.Float("wap"),
		Count:  ev.Int("count"),
	}, nil
}

// NewHistoricalBars views the bar group of a HistoricalData event. Date is
// the server's text; Time is set when it is an epoch or a plain date.
func NewHistoricalBars(ev *codec.Event) ([]Bar, error) {
	if err := expect(ev, catalog.HistoricalData); err != nil {
		return nil, err
	}
	rows := ev.Group("bars")
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		b := Bar{
			Date:   r.Str("date"),
			Open:   r.Float("open"),
			High:   r.Float("high"),
			Low:    r.Float("low"),
			Close:  r.Float("close"),
			Volume: r.Int("volume"),
			WAP:    r.Float("wap"),
			Count:  r.Int("barCount"),
		}
		b.Time = parseBarDate(b.Date)
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarDate(s string) time.Time {
	if ts, err := time.Parse("20060102", s); err == nil {
		return ts
	}
	if len(s) > len("20060102") {
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC()
		}
	}
	return time.Time{}
}
