package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlvwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	validationMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "validation",
			Name:      "messages_total",
			Help:      "Messages validated, by outcome.",
		},
		[]string{"domain", "level", "result"},
	)
	validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "validation",
			Name:      "rejections_total",
			Help:      "Rejected messages by error kind.",
		},
		[]string{"domain", "kind"},
	)
	validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlvwire",
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Time spent validating one message.",
			Buckets:   []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3},
		},
		[]string{"domain", "level"},
	)
	discoveryQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "discovery",
			Name:      "queued_total",
			Help:      "Unknown pools pushed to the discovery queue.",
		},
	)
	discoveryResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "discovery",
			Name:      "resolved_total",
			Help:      "Finished pool resolutions by result.",
		},
		[]string{"result"},
	)
	bufpoolFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvwire",
			Subsystem: "bufpool",
			Name:      "failures_total",
			Help:      "Rejected buffer borrows.",
		},
		[]string{"tier", "reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			validationMessages, validationRejections, validationDuration,
			discoveryQueued, discoveryResolved,
			bufpoolFailures,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordValidation counts one outcome. result is "ok", "advisory" or
// "rejected"; kind is empty unless rejected.
func RecordValidation(domain, level, result, kind string, duration time.Duration) {
	RegisterMetrics()
	validationMessages.WithLabelValues(domain, level, result).Inc()
	validationDuration.WithLabelValues(domain, level).Observe(duration.Seconds())
	if kind != "" {
		validationRejections.WithLabelValues(domain, kind).Inc()
	}
}

func RecordDiscoveryQueued() {
	RegisterMetrics()
	discoveryQueued.Inc()
}

func RecordDiscoveryResult(result string) {
	RegisterMetrics()
	discoveryResolved.WithLabelValues(result).Inc()
}

func RecordBufpoolFailure(tier, reason string) {
	RegisterMetrics()
	bufpoolFailures.WithLabelValues(tier, reason).Inc()
}
