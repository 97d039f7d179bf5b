package dispatch

import (
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
)

// Route delivers one decoded event. It is called from the reader only, so
// events for one request reach their consumer in wire order.
//
// Resolution order: the request-id table, then the slot claimed for the
// event kind, then the unsolicited sink.
func (d *Dispatcher) Route(ev codec.Event) {
	if ev.Err != nil {
		d.Unsolicit(ev)
		return
	}
	if ev.Kind == catalog.NextValidId {
		d.Advance(ev.Int("orderId"))
	}
	if ev.Kind == catalog.ErrMsg {
		d.routeError(ev)
		return
	}

	if ev.HasReqID {
		d.mu.Lock()
		sub, ok := d.subs[ev.ReqID]
		d.mu.Unlock()
		if ok {
			if !sub.entry.Accepts(ev.Kind) {
				d.logger.Warn("event kind not legal for request",
					"id", ev.ReqID, "kind", ev.Kind, "request", sub.Kind())
				d.Unsolicit(ev)
				return
			}
			d.deliver(sub, ev)
			return
		}
	}

	d.mu.Lock()
	sub, ok := d.slots[ev.Kind]
	d.mu.Unlock()
	if ok {
		d.deliver(sub, ev)
		return
	}

	d.unknown(ev)
	d.Unsolicit(ev)
}

func (d *Dispatcher) deliver(sub *Subscription, ev codec.Event) {
	if ev.Final || (sub.entry.End != 0 && ev.Kind == sub.entry.End) {
		d.remove(sub)
		sub.finish(&ev, nil)
		return
	}
	sub.deliver(ev)
}

func (d *Dispatcher) routeError(ev codec.Event) {
	id := ev.ReqID
	if !ev.HasReqID || catalog.IsSystemID(id) {
		d.Unsolicit(ev)
		return
	}
	d.mu.Lock()
	sub, ok := d.subs[id]
	d.mu.Unlock()
	if !ok {
		d.unknown(ev)
		d.Unsolicit(ev)
		return
	}
	code := ev.Int("code")
	if catalog.IsWarning(code) {
		sub.deliver(ev)
		return
	}
	d.remove(sub)
	sub.finish(&ev, &ServerError{ReqID: id, Code: code, Message: ev.Str("message")})
}

// Unsolicit queues ev on the unsolicited sink, dropping the oldest queued
// event when full.
func (d *Dispatcher) Unsolicit(ev codec.Event) {
	d.m.Unsolicited()
	for {
		select {
		case d.unsolicited <- ev:
			return
		default:
		}
		select {
		case <-d.unsolicited:
			d.m.Dropped()
		default:
		}
	}
}

// unknown logs the first event seen for each (id, kind) pair.
func (d *Dispatcher) unknown(ev codec.Event) {
	key := unknownKey{id: ev.ReqID, kind: ev.Kind}
	d.mu.Lock()
	_, seen := d.logged[key]
	if !seen {
		if len(d.logged) >= maxLoggedUnknown {
			clear(d.logged)
		}
		d.logged[key] = struct{}{}
	}
	d.mu.Unlock()
	if seen {
		return
	}
	if ev.HasReqID {
		d.logger.Warn("event for unknown request id", "id", ev.ReqID, "kind", ev.Kind)
	} else {
		d.logger.Debug("unclaimed event", "kind", ev.Kind)
	}
}
