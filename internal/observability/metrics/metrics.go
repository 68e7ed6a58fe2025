package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	submissions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	reserveLatency prometheus.Histogram
	notifications  *prometheus.CounterVec
	sessionEvents  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "slot_rejections_total",
			Help:      "Start slots rejected by the allocator",
		}, []string{"reason"}),
		reserveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "reserve_latency_seconds",
			Help:      "Latency of the reservation transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Notification emails by event type and status",
		}, []string{"event_type", "status"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "identity",
			Name:      "session_events_total",
			Help:      "Session changes applied by the identity holder",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.rejections, m.reserveLatency, m.notifications, m.sessionEvents)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveReserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.reserveLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveNotification(eventType, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, status).Inc()
}

func (m *BookingMetrics) ObserveSessionEvent(kind string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(kind).Inc()
}
