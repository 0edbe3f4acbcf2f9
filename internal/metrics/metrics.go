// Package metrics exposes prometheus collectors for the HTTP surface and the
// notification fan-out. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

// New registers the collectors on reg. A nil registerer yields a Metrics
// that records nothing.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "potluck_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_notifications_total",
		Help: "Notifications appended to the feed by event type.",
	}, []string{"event_type"})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_broadcasts_total",
		Help: "Messages handed to live subscribers by stream and outcome.",
	}, []string{"stream", "outcome"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "potluck_websocket_clients",
		Help: "Connected websocket subscribers.",
	})
	reg.MustRegister(requests, duration, notifications, broadcasts, subscribers)
	return &Metrics{
		requests:      requests,
		duration:      duration,
		notifications: notifications,
		broadcasts:    broadcasts,
		subscribers:   subscribers,
	}
}

// ObserveRequest records one served request. route is the matched mux
// pattern, or "unmatched".
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route, "unmatched")
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncNotification(eventType string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(eventType, "unknown")).Inc()
}

// IncBroadcast counts a broadcast attempt; ok is false when it failed.
func (m *Metrics) IncBroadcast(stream string, ok bool) {
	if m == nil || m.broadcasts == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.broadcasts.WithLabelValues(normalizeLabel(stream, "unknown"), outcome).Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func normalizeLabel(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
