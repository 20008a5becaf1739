package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the booking service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	slotsReturned  prometheus.Histogram
	bookings       *prometheus.CounterVec
	hoursCache     *prometheus.CounterVec
	outboxSent     prometheus.Counter
	outboxFailures prometheus.Counter
	consumed       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carebook",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carebook",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Free slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome (created, unavailable, error)",
		}, []string{"outcome"}),
		hoursCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "hours_cache",
			Name:      "lookups_total",
			Help:      "Operating-hours cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		outboxSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events published to Kafka",
		}),
		outboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "outbox",
			Name:      "publish_failures_total",
			Help:      "Outbox batches that failed to publish",
		}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "consumer",
			Name:      "events_total",
			Help:      "Consumed Kafka events by topic and outcome",
		}, []string{"topic", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.httpLatency, m.slotsReturned, m.bookings,
		m.hoursCache, m.outboxSent, m.outboxFailures, m.consumed)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSlots(n int) {
	if m == nil {
		return
	}
	m.slotsReturned.Observe(float64(n))
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHoursCache(result string) {
	if m == nil {
		return
	}
	m.hoursCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxSent.Add(float64(n))
}

func (m *Metrics) ObserveOutboxFailure() {
	if m == nil {
		return
	}
	m.outboxFailures.Inc()
}

func (m *Metrics) ObserveConsumed(topic, outcome string) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(topic, outcome).Inc()
}
