package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	registrationsTotal    prometheus.Counter
	capacityConflicts     prometheus.Counter
	compensations         prometheus.Counter
	notificationsTotal    *prometheus.CounterVec
	statusTransitionTotal *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registrations_created_total",
		Help: "Total registrations accepted",
	})

	capacityConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_conflicts_total",
		Help: "Registrations rejected because a chosen date option was full",
	})

	compensations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registration_compensations_total",
		Help: "Registrations rolled back after a partial insert failure",
	})

	notificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Outbound notification attempts by outcome",
	}, []string{"type", "outcome"})

	statusTransitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_status_transitions_total",
		Help: "Registration status transitions by target status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, registrationsTotal, capacityConflicts,
		compensations, notificationsTotal, statusTransitionTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		registrationsTotal:    registrationsTotal,
		capacityConflicts:     capacityConflicts,
		compensations:         compensations,
		notificationsTotal:    notificationsTotal,
		statusTransitionTotal: statusTransitionTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRegistration counts an accepted registration.
func (m *MetricsService) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrationsTotal.Inc()
}

// RecordCapacityConflict counts a booking rejected at the availability gate.
func (m *MetricsService) RecordCapacityConflict() {
	if m == nil {
		return
	}
	m.capacityConflicts.Inc()
}

// RecordCompensation counts a compensating registration delete.
func (m *MetricsService) RecordCompensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}

// RecordNotification counts a notification attempt by outcome.
func (m *MetricsService) RecordNotification(kind string, success bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !success {
		outcome = "failed"
	}
	m.notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordStatusTransition counts a workflow transition.
func (m *MetricsService) RecordStatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitionTotal.WithLabelValues(status).Inc()
}
