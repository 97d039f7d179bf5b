// Package metrics exposes per-session prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ibgw"

type Metrics struct {
	framesIn      prometheus.Counter
	framesOut     prometheus.Counter
	bytesIn       prometheus.Counter
	bytesOut      prometheus.Counter
	decodeErrors  *prometheus.CounterVec
	dropped       prometheus.Counter
	unsolicited   prometheus.Counter
	subscriptions prometheus.Gauge
	state         prometheus.Gauge
	connects      *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg gets
// a private registry so that several sessions can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		framesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_received_total",
			Help: "Frames read from the gateway.",
		}),
		framesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_sent_total",
			Help: "Frames written to the gateway.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "received_bytes_total",
			Help: "Payload bytes read from the gateway.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sent_bytes_total",
			Help: "Payload bytes written to the gateway.",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decode_errors_total",
			Help: "Inbound frames that did not decode, by reason.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_events_total",
			Help: "Events discarded by drop-oldest delivery.",
		}),
		unsolicited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unsolicited_events_total",
			Help: "Events routed to the unsolicited sink.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_subscriptions",
			Help: "Subscriptions awaiting a terminal event.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_state",
			Help: "Current session state as its numeric code.",
		}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "connect_attempts_total",
			Help: "Connection attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.framesIn, m.framesOut, m.bytesIn, m.bytesOut, m.decodeErrors,
		m.dropped, m.unsolicited, m.subscriptions, m.state, m.connects)
	return m
}

func (m *Metrics) FrameIn(n int) {
	if m == nil {
		return
	}
	m.framesIn.Inc()
	m.bytesIn.Add(float64(n))
}

func (m *Metrics) FrameOut(n int) {
	if m == nil {
		return
	}
	m.framesOut.Inc()
	m.bytesOut.Add(float64(n))
}

// DecodeError counts a frame that failed to decode; reason is a short tag
// such as "malformed" or "unknown_opcode".
func (m *Metrics) DecodeError(reason string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) Unsolicited() {
	if m == nil {
		return
	}
	m.unsolicited.Inc()
}

func (m *Metrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(n))
}

func (m *Metrics) SetState(code int) {
	if m == nil {
		return
	}
	m.state.Set(float64(code))
}

// Connect counts a connection attempt; outcome is "ok" or an error tag.
func (m *Metrics) Connect(outcome string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(outcome).Inc()
}
