// Package dispatch correlates inbound events with the requests that caused
// them. It owns the request-id allocator, the subscription table, the
// per-kind slots used by requests without ids, and the unsolicited sink.
package dispatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chronologos/ibgw/internal/metrics"
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/protocol"
)

var (
	ErrSlotBusy       = errors.New("response kind already claimed by a pending request")
	ErrUnknownRequest = errors.New("unknown request kind")
	ErrDuplicateID    = errors.New("request id already live")
	ErrNotCancelable  = errors.New("request kind has no cancel message")
	ErrCanceled       = errors.New("subscription canceled")
)

// ServerError is the terminal error of a subscription failed by an ErrMsg.
type ServerError struct {
	ReqID   int64
	Code    int64
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d for request %d: %s", e.Code, e.ReqID, e.Message)
}

const (
	DefaultBuffer              = 64
	DefaultUnsolicitedCapacity = 256
	DefaultCancelGrace         = 5 * time.Second

	maxLoggedUnknown = 4096
)

type Config struct {
	Catalog *catalog.Catalog
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Buffer is the per-subscription channel capacity.
	Buffer              int
	UnsolicitedCapacity int
	CancelGrace         time.Duration
}

type unknownKey struct {
	id   int64
	kind catalog.InKind
}

type Dispatcher struct {
	cat    *catalog.Catalog
	logger *slog.Logger
	m      *metrics.Metrics
	buffer int
	grace  time.Duration

	unsolicited chan codec.Event

	mu      sync.Mutex
	next    int64
	subs    map[int64]*Subscription
	slots   map[catalog.InKind]*Subscription
	claimed map[*Subscription][]catalog.InKind
	logged  map[unknownKey]struct{}
}

func New(cfg Config) *Dispatcher {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.UnsolicitedCapacity <= 0 {
		cfg.UnsolicitedCapacity = DefaultUnsolicitedCapacity
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = DefaultCancelGrace
	}
	return &Dispatcher{
		cat:         cfg.Catalog,
		logger:      cfg.Logger.With("component", "dispatch"),
		m:           cfg.Metrics,
		buffer:      cfg.Buffer,
		grace:       cfg.CancelGrace,
		unsolicited: make(chan codec.Event, cfg.UnsolicitedCapacity),
		next:        1,
		subs:        make(map[int64]*Subscription),
		slots:       make(map[catalog.InKind]*Subscription),
		claimed:     make(map[*Subscription][]catalog.InKind),
		logged:      make(map[unknownKey]struct{}),
	}
}

// Unsolicited carries events no subscription claimed, session notices, and
// frames that failed to decode. When full, the oldest event is dropped.
// The channel is never closed.
func (d *Dispatcher) Unsolicited() <-chan codec.Event { return d.unsolicited }

// Register records a subscription for req and returns it with the encoded
// payload. Correlated kinds get the next request id written into their id
// field, unless the caller already set one. Kinds without an id claim
// their response kinds.
func (d *Dispatcher) Register(req *codec.Request, serverVersion int) (*Subscription, []byte, error) {
	entry, ok := d.cat.Out(req.Kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownRequest, req.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var sub *Subscription
	switch {
	case entry.OneWay():
		// One-way kinds are not registered. A caller-set id may name a
		// live subscription.
		var id int64
		if entry.Correlated() {
			id = d.idLocked(req, entry)
		}
		sub = newSubscription(id, entry, false, d.buffer, d.m)
	case entry.Correlated():
		id, err := d.assignLocked(req, entry)
		if err != nil {
			return nil, nil, err
		}
		sub = newSubscription(id, entry, false, d.buffer, d.m)
	default:
		kinds := entry.SlotKinds()
		for _, k := range kinds {
			if holder, busy := d.slots[k]; busy {
				return nil, nil, fmt.Errorf("%w: %v held by %v", ErrSlotBusy, k, holder.Kind())
			}
		}
		sub = newSubscription(0, entry, true, d.buffer, d.m)
	}

	payload, err := codec.Encode(d.cat, req, serverVersion)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case entry.OneWay():
	case entry.Correlated():
		d.subs[sub.id] = sub
	case sub.slot:
		kinds := entry.SlotKinds()
		for _, k := range kinds {
			d.slots[k] = sub
		}
		d.claimed[sub] = kinds
	}
	d.m.SetSubscriptions(d.liveLocked())
	return sub, payload, nil
}

func (d *Dispatcher) assignLocked(req *codec.Request, entry *catalog.Outbound) (int64, error) {
	if f, ok := req.Field(entry.ReqID); ok && !f.IsUnset() {
		if _, live := d.subs[f.Int()]; live {
			return 0, fmt.Errorf("%w: %d", ErrDuplicateID, f.Int())
		}
	}
	return d.idLocked(req, entry), nil
}

// idLocked returns the caller's id, advancing the allocator past it, or
// allocates a fresh one and writes it into the request.
func (d *Dispatcher) idLocked(req *codec.Request, entry *catalog.Outbound) int64 {
	if f, ok := req.Field(entry.ReqID); ok && !f.IsUnset() {
		id := f.Int()
		if id >= d.next {
			d.next = id + 1
		}
		return id
	}
	id := d.next
	d.next++
	req.Set(entry.ReqID, protocol.Int(id))
	return id
}

// Advance moves the allocator so that the next id is at least id. The
// server's NextValidId feeds it; ids never move backwards.
func (d *Dispatcher) Advance(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id > d.next {
		d.next = id
	}
}

// NextID returns the id the next correlated request will receive.
func (d *Dispatcher) NextID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}

// Written is called once the request frame of sub reached the transport.
// One-way requests end here.
func (d *Dispatcher) Written(sub *Subscription) {
	if sub.entry.OneWay() {
		sub.finish(nil, nil)
	}
}

// Abort removes a subscription whose frame never reached the writer.
func (d *Dispatcher) Abort(sub *Subscription, err error) {
	d.remove(sub)
	sub.finish(nil, err)
}

// Cancel moves sub to CancelPending and returns the cancel payload. Late
// events are still delivered until the end sentinel, a terminal error, or
// the release that CancelWritten schedules.
func (d *Dispatcher) Cancel(sub *Subscription, serverVersion int) ([]byte, error) {
	if sub.entry.Cancel == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotCancelable, sub.Kind())
	}
	if !sub.markCancel() {
		return nil, nil
	}
	req := codec.NewRequest(sub.entry.Cancel)
	if ce, ok := d.cat.Out(sub.entry.Cancel); ok && ce.Correlated() {
		req.Set(ce.ReqID, protocol.Int(sub.id))
	}
	payload, err := codec.Encode(d.cat, req, serverVersion)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// CancelWritten is called once the cancel frame reached the transport.
// Without an end sentinel the server confirms nothing, so the slot is
// released now; otherwise it is released by the sentinel or the grace
// timer.
func (d *Dispatcher) CancelWritten(sub *Subscription) {
	if sub.entry.End == 0 {
		d.release(sub)
		return
	}
	time.AfterFunc(d.grace, func() { d.release(sub) })
}

func (d *Dispatcher) release(sub *Subscription) {
	if sub.State().terminal() {
		return
	}
	d.remove(sub)
	if sub.finish(nil, ErrCanceled) {
		d.logger.Debug("subscription released after cancel", "id", sub.id, "kind", sub.Kind())
	}
}

// FailAll terminates every live subscription with err and empties the
// table. The id allocator keeps its position.
func (d *Dispatcher) FailAll(err error) {
	d.mu.Lock()
	subs := make([]*Subscription, 0, len(d.subs)+len(d.claimed))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	for s := range d.claimed {
		subs = append(subs, s)
	}
	clear(d.subs)
	clear(d.slots)
	clear(d.claimed)
	d.m.SetSubscriptions(0)
	d.mu.Unlock()

	for _, s := range subs {
		s.abandon()
		s.finish(nil, err)
	}
}

// AbandonAll unblocks every delivery waiting on a full Block-policy
// channel. Subscriptions stay registered; events routed afterwards are
// discarded until FailAll ends them.
func (d *Dispatcher) AbandonAll() {
	d.mu.Lock()
	subs := make([]*Subscription, 0, len(d.subs)+len(d.claimed))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	for s := range d.claimed {
		subs = append(subs, s)
	}
	d.mu.Unlock()

	for _, s := range subs {
		s.abandon()
	}
}

// Live reports whether a subscription is registered under id.
func (d *Dispatcher) Live(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.subs[id]
	return ok
}

// Len is the number of registered subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveLocked()
}

func (d *Dispatcher) liveLocked() int { return len(d.subs) + len(d.claimed) }

func (d *Dispatcher) remove(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub.slot {
		for _, k := range d.claimed[sub] {
			if d.slots[k] == sub {
				delete(d.slots, k)
			}
		}
		delete(d.claimed, sub)
	} else if d.subs[sub.id] == sub {
		delete(d.subs, sub.id)
	}
	d.m.SetSubscriptions(d.liveLocked())
}
