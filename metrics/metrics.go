package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters and histograms for the public booking flows.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	bookingLatency  prometheus.Histogram
	invitationViews prometheus.Counter
	surveysTotal    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massage_panel",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Public booking attempts by outcome code",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "massage_panel",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of the booking transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		invitationViews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "massage_panel",
			Subsystem: "invitation",
			Name:      "views_total",
			Help:      "Public invitation page views",
		}),
		surveysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massage_panel",
			Subsystem: "survey",
			Name:      "submitted_total",
			Help:      "Service surveys submitted by rating",
		}, []string{"rating"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massage_panel",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the public rate limiter",
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.invitationViews, m.surveysTotal, m.rateLimited)
	return m
}

// ObserveBooking records one booking attempt. outcome is "booked" or the
// rejection code.
func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveInvitationView() {
	if m == nil {
		return
	}
	m.invitationViews.Inc()
}

func (m *BookingMetrics) ObserveSurvey(rating int) {
	if m == nil {
		return
	}
	m.surveysTotal.WithLabelValues(strconv.Itoa(rating)).Inc()
}

func (m *BookingMetrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
