package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "ocpp_central"

// Call outcomes reported by CallCompleted.
const (
	OutcomeResult    = "result"
	OutcomeCallError = "call_error"
	OutcomeTimeout   = "timeout"
	OutcomeClosed    = "closed"
	OutcomeFailed    = "failed"
)

// Authentication results reported by AuthAttempt.
const (
	AuthAccepted = "accepted"
	AuthDenied   = "denied"
	AuthError    = "error"
)

// Collector is a prometheus.Collector for the session layer. A nil *Collector
// discards everything.
type Collector struct {
	activeSessions prometheus.Gauge
	inboundFrames  *prometheus.CounterVec
	callErrorsSent *prometheus.CounterVec
	outgoingCalls  *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	authAttempts   *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_sessions",
				Help:      "The number of charge point sessions currently open.",
			},
		),
		inboundFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "inbound_frames_total",
				Help:      "Frames received from charge points by message type.",
			}, []string{"message_type"},
		),
		callErrorsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "call_errors_sent_total",
				Help:      "CallError frames sent to charge points by error code.",
			}, []string{"code"},
		),
		outgoingCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "outgoing_calls_total",
				Help:      "Calls sent to charge points by action and outcome.",
			}, []string{"action", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "outgoing_call_duration_seconds",
				Help:      "Time from sending a Call until it completed.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			}, []string{"action"},
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_attempts_total",
				Help:      "Charge point connection attempts by authentication result.",
			}, []string{"result"},
		),
	}
}

// NewRegistry returns a registry holding c plus the Go runtime and process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	r := prometheus.NewRegistry()
	if err := r.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := r.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	if c != nil {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

func (c *Collector) FrameReceived(messageType string) {
	if c == nil {
		return
	}
	c.inboundFrames.WithLabelValues(messageType).Inc()
}

func (c *Collector) CallErrorSent(code string) {
	if c == nil {
		return
	}
	c.callErrorsSent.WithLabelValues(code).Inc()
}

func (c *Collector) CallCompleted(action string, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.outgoingCalls.WithLabelValues(action, outcome).Inc()
	c.callDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (c *Collector) AuthAttempt(result string) {
	if c == nil {
		return
	}
	c.authAttempts.WithLabelValues(result).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.activeSessions.Describe(ch)
	c.inboundFrames.Describe(ch)
	c.callErrorsSent.Describe(ch)
	c.outgoingCalls.Describe(ch)
	c.callDuration.Describe(ch)
	c.authAttempts.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.activeSessions.Collect(ch)
	c.inboundFrames.Collect(ch)
	c.callErrorsSent.Collect(ch)
	c.outgoingCalls.Collect(ch)
	c.callDuration.Collect(ch)
	c.authAttempts.Collect(ch)
}
