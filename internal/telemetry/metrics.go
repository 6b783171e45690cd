package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency for the RPC endpoint.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "integrationcore",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// RPCRequestsTotal counts dispatched RPC calls by namespace/method/outcome.
var RPCRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Total number of dispatched RPC calls.",
	},
	[]string{"namespace", "method", "outcome"},
)

// CacheHitsTotal / CacheMissesTotal track the Redis cache manager (4.D).
var CacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of cache hits by family.",
	},
	[]string{"family"},
)

var CacheMissesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total number of cache misses by family.",
	},
	[]string{"family"},
)

// ConnectionCacheEvictionsTotal counts TTL-driven connection evictions (4.C).
var ConnectionCacheEvictionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "connpool",
		Name:      "evictions_total",
		Help:      "Total number of connection cache entries evicted by TTL.",
	},
	[]string{"kind"},
)

// JobberSubmissionsTotal / JobberCallbacksTotal track the Jobber client (4.H).
var JobberSubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "jobber",
		Name:      "submissions_total",
		Help:      "Total number of jobs submitted to the Jobber by type and outcome.",
	},
	[]string{"job_type", "status"},
)

var JobberCallbacksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "integrationcore",
		Subsystem: "jobber",
		Name:      "callbacks_total",
		Help:      "Total number of Jobber callbacks received by outcome.",
	},
	[]string{"outcome"},
)

// All returns every service-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RPCRequestsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		ConnectionCacheEvictionsTotal,
		JobberSubmissionsTotal,
		JobberCallbacksTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional service-specific
// collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
