package services

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clara_keeper_request_total",
			Help: "Total HTTP requests handled by the keeper API",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clara_keeper_request_duration_seconds",
			Help:    "Duration of keeper API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	serviceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clara_service_up",
			Help: "1 when the managed service was last observed healthy",
		},
		[]string{"service", "mode"},
	)

	healthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clara_health_checks_total",
			Help: "Health checks performed, by service and result",
		},
		[]string{"service", "result"},
	)

	remoteDeployments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clara_remote_deployments_total",
			Help: "Remote deployment runs, by result",
		},
		[]string{"result"},
	)

	totalRequests int64
	errorRequests int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(serviceUp)
	prometheus.MustRegister(healthChecks)
	prometheus.MustRegister(remoteDeployments)
}

// RecordRequest is called by the gin metrics middleware per request.
func RecordRequest(path string, statusCode int, seconds float64) {
	requestCount.WithLabelValues(path).Inc()
	requestDuration.WithLabelValues(path).Observe(seconds)
	atomic.AddInt64(&totalRequests, 1)
	if statusCode >= 400 {
		atomic.AddInt64(&errorRequests, 1)
	}
}

// GetTotalRequestCount returns requests handled since startup.
func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

// GetTotalErrorCount returns error responses since startup.
func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&errorRequests)
}

/**
 * Push all registered metrics to a Pushgateway
 * @param {string} addr - Pushgateway address, e.g. "http://host:9091"
 */
func PushMetrics(addr string) error {
	return push.New(addr, "clara_keeper").
		Gatherer(prometheus.DefaultGatherer).
		Push()
}

func recordServiceUp(service, mode string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	serviceUp.WithLabelValues(service, mode).Set(v)
}

func recordHealthCheck(service string, healthy bool) {
	result := "unhealthy"
	if healthy {
		result = "healthy"
	}
	healthChecks.WithLabelValues(service, result).Inc()
}

func recordRemoteDeployment(success bool) {
	result := "error"
	if success {
		result = "deployed"
	}
	remoteDeployments.WithLabelValues(result).Inc()
}
