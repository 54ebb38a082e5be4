package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ResolveTotal counts resolutions by answering source ("none" on failure)
	// and outcome ("hit" or an error kind).
	ResolveTotal *prometheus.CounterVec

	// ResolveDuration tracks end-to-end chain latency.
	ResolveDuration prometheus.Histogram

	// LocationCallsTotal counts remote location service calls by outcome.
	LocationCallsTotal *prometheus.CounterVec

	// LocationCacheTotal counts location cache lookups (hit, miss, shared).
	LocationCacheTotal *prometheus.CounterVec

	// Overrides is the number of user-defined endpoint overrides.
	Overrides prometheus.Gauge

	// ConfigReloadsTotal counts local configuration reloads by status.
	ConfigReloadsTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests by route pattern, method and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// RejectedTotal counts requests turned away by access middlewares.
	RejectedTotal *prometheus.CounterVec
)

func init() {
	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "resolve_total",
			Help:      "Total endpoint resolutions",
		},
		[]string{"source", "outcome"},
	)

	ResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "endpointd",
			Name:      "resolve_duration_seconds",
			Help:      "Endpoint resolution duration in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	LocationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "location_calls_total",
			Help:      "Total calls to the remote location service",
		},
		[]string{"outcome"},
	)

	LocationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "location_cache_total",
			Help:      "Location cache lookups by result",
		},
		[]string{"result"},
	)

	Overrides = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "endpointd",
			Name:      "overrides",
			Help:      "Number of user-defined endpoint overrides",
		},
	)

	ConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "config_reloads_total",
			Help:      "Local endpoint configuration reloads by status",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	RejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "endpointd",
			Name:      "http_rejected_total",
			Help:      "Requests rejected by rate limiting or access rules",
		},
		[]string{"reason"},
	)

	prometheus.MustRegister(
		ResolveTotal,
		ResolveDuration,
		LocationCallsTotal,
		LocationCacheTotal,
		Overrides,
		ConfigReloadsTotal,
		HTTPRequestsTotal,
		RejectedTotal,
	)
}

// ObserveResolve records one chain resolution.
func ObserveResolve(source, outcome string, started time.Time) {
	ResolveTotal.WithLabelValues(source, outcome).Inc()
	ResolveDuration.Observe(time.Since(started).Seconds())
}

// RecordLocationCall records one remote call.
func RecordLocationCall(outcome string) {
	LocationCallsTotal.WithLabelValues(outcome).Inc()
}

// RecordLocationCache records one location cache lookup.
func RecordLocationCache(result string) {
	LocationCacheTotal.WithLabelValues(result).Inc()
}

// SetOverrides publishes the current override count.
func SetOverrides(n int) {
	Overrides.Set(float64(n))
}

// RecordConfigReload records a local configuration reload attempt.
func RecordConfigReload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ConfigReloadsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served request. route is the chi pattern.
func RecordHTTPRequest(route, method string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordRejected records a request refused by a middleware
// ("rate_limited", "ip_denied" or "host_denied").
func RecordRejected(reason string) {
	RejectedTotal.WithLabelValues(reason).Inc()
}
