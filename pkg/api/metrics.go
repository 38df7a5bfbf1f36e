package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the server and its device. It is
// also a blockdev.EventSink, so correction events are counted as they happen.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Device operation metrics
	deviceOperationsTotal   *prometheus.CounterVec
	deviceOperationDuration *prometheus.HistogramVec

	// Error correction metrics
	correctionsTotal   *prometheus.CounterVec
	uncorrectableTotal prometheus.Counter
	faultsInjected     prometheus.Counter

	authRequestsTotal *prometheus.CounterVec
	healthChecksTotal *prometheus.CounterVec
}

var _ blockdev.EventSink = (*Metrics)(nil)

// NewMetrics creates all Prometheus metrics and registers them with reg. A
// nil registry gets a fresh one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crcbd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crcbd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crcbd_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		deviceOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crcbd_device_operations_total",
				Help: "Total number of block device operations",
			},
			[]string{"operation", "status"},
		),

		deviceOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crcbd_device_operation_duration_seconds",
				Help:    "Block device operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"operation"},
		),

		correctionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crcbd_corrections_total",
				Help: "Codewords repaired on read, by number of bits flipped",
			},
			[]string{"bits"},
		),

		uncorrectableTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crcbd_uncorrectable_total",
				Help: "Codewords whose checksum mismatch could not be corrected",
			},
		),

		faultsInjected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crcbd_faults_injected_total",
				Help: "Bits flipped through the fault injection endpoint",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crcbd_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crcbd_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe counts a correction event.
func (m *Metrics) Observe(e blockdev.Event) {
	switch e.Kind {
	case blockdev.EventCorrected:
		m.correctionsTotal.WithLabelValues(strconv.Itoa(len(e.Bits))).Inc()
	case blockdev.EventUncorrectable:
		m.uncorrectableTotal.Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDeviceOperation records a block device operation
func (m *Metrics) RecordDeviceOperation(operation string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.deviceOperationsTotal.WithLabelValues(operation, status).Inc()
	m.deviceOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFault records an injected bit flip
func (m *Metrics) RecordFault() {
	m.faultsInjected.Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
