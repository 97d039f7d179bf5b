package dispatch

import (
	"sync"

	"github.com/chronologos/ibgw/internal/metrics"
	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
)

// State is the lifecycle of one subscription.
type State uint8

const (
	Pending State = iota
	Streaming
	CancelPending
	Ended
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Streaming:
		return "streaming"
	case CancelPending:
		return "cancel-pending"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool { return s == Ended || s == Failed }

// Subscription tracks one outstanding request. Events are delivered in
// wire order on Events, which is closed after the terminal event; Err then
// reports why the subscription ended (nil for a normal end).
type Subscription struct {
	id    int64
	entry *catalog.Outbound
	slot  bool

	events chan codec.Event
	quit   chan struct{}
	once   sync.Once
	done   chan struct{}
	m      *metrics.Metrics

	// send serializes channel writes with the final close.
	send  sync.Mutex
	mu    sync.Mutex
	state State
	err   error
}

func newSubscription(id int64, entry *catalog.Outbound, slot bool, buffer int, m *metrics.Metrics) *Subscription {
	return &Subscription{
		id:     id,
		entry:  entry,
		slot:   slot,
		events: make(chan codec.Event, buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		m:      m,
	}
}

// ID is the request id, or 0 for requests correlated by inbound kind.
func (s *Subscription) ID() int64 { return s.id }

func (s *Subscription) Kind() catalog.OutKind { return s.entry.Kind }

func (s *Subscription) Events() <-chan codec.Event { return s.events }

// Done is closed once the subscription reaches Ended or Failed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// abandon unblocks a delivery waiting on a full Block-policy channel.
func (s *Subscription) abandon() {
	s.once.Do(func() { close(s.quit) })
}

// deliver queues ev for the consumer. It reports false when the
// subscription is already terminal.
func (s *Subscription) deliver(ev codec.Event) bool {
	s.send.Lock()
	defer s.send.Unlock()
	s.mu.Lock()
	if s.state.terminal() {
		s.mu.Unlock()
		return false
	}
	if s.state == Pending {
		s.state = Streaming
	}
	s.mu.Unlock()
	s.push(ev)
	return true
}

// finish delivers an optional terminal event and closes the channel.
func (s *Subscription) finish(ev *codec.Event, err error) bool {
	s.send.Lock()
	defer s.send.Unlock()
	if s.State().terminal() {
		return false
	}
	if ev != nil {
		s.push(*ev)
	}
	s.mu.Lock()
	s.err = err
	if err != nil {
		s.state = Failed
	} else {
		s.state = Ended
	}
	s.mu.Unlock()
	s.abandon()
	close(s.events)
	close(s.done)
	return true
}

func (s *Subscription) markCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() || s.state == CancelPending {
		return false
	}
	s.state = CancelPending
	return true
}

// push must be called with send held.
func (s *Subscription) push(ev codec.Event) {
	if s.entry.Policy == catalog.DropOldest {
		for {
			select {
			case s.events <- ev:
				return
			default:
			}
			select {
			case <-s.events:
				s.m.Dropped()
			default:
			}
		}
	}
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}
